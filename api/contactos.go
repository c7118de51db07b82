package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/edumanager/edumanager/edu"
	"github.com/edumanager/edumanager/notify"
)

// ContactoView is a contacto row with both professor display names
// resolved at read time.
type ContactoView struct {
	edu.Contacto
	Emissor  string `json:"emissor,omitempty"`
	Receptor string `json:"receptor,omitempty"`
}

func (a *API) contactoView(names map[string]string, c edu.Contacto) ContactoView {
	return ContactoView{
		Contacto: c,
		Emissor:  nameOf(names, c.EmissorID),
		Receptor: nameOf(names, c.ReceptorID),
	}
}

func (a *API) contactosList(w http.ResponseWriter, r *http.Request) {
	a.queries.contactos.Refetch(r.Context())
	if message := a.queries.contactos.Err(); message != "" {
		queryError(w, r, message)
		return
	}
	rows := a.queries.contactos.Data()
	names, err := a.professorNames(r)
	if err != nil {
		storeError(w, r, err)
		return
	}
	views := make([]ContactoView, 0, len(rows))
	for _, row := range rows {
		views = append(views, a.contactoView(names, row))
	}
	writeJSON(w, http.StatusOK, views)
}

func (a *API) contactosCreate(w http.ResponseWriter, r *http.Request) {
	var contacto edu.Contacto
	if !a.readValidated(w, r, "contacto.json", &contacto) {
		return
	}
	if errs := edu.Validate(contacto); len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}

	created, err := a.mutators.contactos.Insert(r.Context(), contacto)
	if err != nil {
		storeError(w, r, err)
		return
	}

	names, err := a.professorNames(r)
	if err != nil {
		names = map[string]string{}
	}
	view := a.contactoView(names, created)

	a.dispatch(w, r, notify.ContactoRegistered{
		Motivo:   created.Motivo,
		Emissor:  view.Emissor,
		Receptor: view.Receptor,
		Data:     created.Data,
		Hora:     created.Hora,
	})
	writeJSON(w, http.StatusCreated, view)
}

func (a *API) contactosUpdate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var contacto edu.Contacto
	if !a.readValidated(w, r, "contacto.json", &contacto) {
		return
	}
	contacto.ID = ""
	if errs := edu.Validate(contacto); len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}

	updated, err := a.mutators.contactos.Update(r.Context(), id, contacto)
	if err != nil {
		storeError(w, r, err)
		return
	}
	names, err := a.professorNames(r)
	if err != nil {
		names = map[string]string{}
	}
	writeJSON(w, http.StatusOK, a.contactoView(names, updated))
}

func (a *API) contactosDelete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := a.mutators.contactos.Remove(r.Context(), id); err != nil {
		storeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
