package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/edumanager/edumanager/edu"
	"github.com/edumanager/edumanager/notify"
)

func (a *API) professoresList(w http.ResponseWriter, r *http.Request) {
	a.queries.professores.Refetch(r.Context())
	if message := a.queries.professores.Err(); message != "" {
		queryError(w, r, message)
		return
	}
	writeJSON(w, http.StatusOK, a.queries.professores.Data())
}

func (a *API) professoresCreate(w http.ResponseWriter, r *http.Request) {
	var professor edu.Professor
	if !a.readValidated(w, r, "professor.json", &professor) {
		return
	}
	if errs := edu.Validate(professor); len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}

	created, err := a.mutators.professores.Insert(r.Context(), professor)
	if err != nil {
		storeError(w, r, err)
		return
	}

	a.dispatch(w, r, notify.ProfessorAdded{
		Nome:         created.Nome,
		Email:        created.Email,
		Departamento: created.Departamento,
		Cargo:        created.Cargo,
	})
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) professoresUpdate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var professor edu.Professor
	if !a.readValidated(w, r, "professor.json", &professor) {
		return
	}
	professor.ID = "" // the path owns the identity
	if errs := edu.Validate(professor); len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}

	updated, err := a.mutators.professores.Update(r.Context(), id, professor)
	if err != nil {
		storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) professoresDelete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := a.mutators.professores.Remove(r.Context(), id); err != nil {
		storeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
