package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/edumanager/edumanager/edu"
	"github.com/edumanager/edumanager/notify"
)

// TurmaView is a turma row with the professor display name resolved
// against the current professores rows. The name is never stored, so a
// professor rename is reflected on the next read.
type TurmaView struct {
	edu.Turma
	Professor string `json:"professor,omitempty"`
}

func (a *API) turmasList(w http.ResponseWriter, r *http.Request) {
	a.queries.turmas.Refetch(r.Context())
	if message := a.queries.turmas.Err(); message != "" {
		queryError(w, r, message)
		return
	}
	rows := a.queries.turmas.Data()
	names, err := a.professorNames(r)
	if err != nil {
		storeError(w, r, err)
		return
	}
	views := make([]TurmaView, 0, len(rows))
	for _, t := range rows {
		views = append(views, TurmaView{Turma: t, Professor: nameOf(names, t.ProfessorID)})
	}
	writeJSON(w, http.StatusOK, views)
}

func (a *API) turmasCreate(w http.ResponseWriter, r *http.Request) {
	var turma edu.Turma
	if !a.readValidated(w, r, "turma.json", &turma) {
		return
	}
	if turma.CodFormacao == "" {
		turma.CodFormacao = edu.GenerateFormationCode(turma.Curso, turma.Ano)
	}
	if errs := edu.Validate(turma); len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}

	created, err := a.mutators.turmas.Insert(r.Context(), turma)
	if err != nil {
		storeError(w, r, err)
		return
	}

	names, err := a.professorNames(r)
	if err != nil {
		// the row is in; name resolution is best effort here
		names = map[string]string{}
	}
	view := TurmaView{Turma: created, Professor: nameOf(names, created.ProfessorID)}

	a.dispatch(w, r, notify.TurmaCreated{
		Curso:       created.Curso,
		CodFormacao: created.CodFormacao,
		Professor:   view.Professor,
		DataInicio:  created.DataInicio,
	})
	writeJSON(w, http.StatusCreated, view)
}

func (a *API) turmasUpdate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var turma edu.Turma
	if !a.readValidated(w, r, "turma.json", &turma) {
		return
	}
	turma.ID = ""
	if errs := edu.Validate(turma); len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}

	updated, err := a.mutators.turmas.Update(r.Context(), id, turma)
	if err != nil {
		storeError(w, r, err)
		return
	}
	names, err := a.professorNames(r)
	if err != nil {
		names = map[string]string{}
	}
	writeJSON(w, http.StatusOK, TurmaView{Turma: updated, Professor: nameOf(names, updated.ProfessorID)})
}

func (a *API) turmasDelete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := a.mutators.turmas.Remove(r.Context(), id); err != nil {
		storeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
