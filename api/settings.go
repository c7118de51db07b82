package api

import (
	"net/http"

	"github.com/edumanager/edumanager/edu"
)

func (a *API) settingsGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.settings.Get(r.Context()))
}

func (a *API) settingsPut(w http.ResponseWriter, r *http.Request) {
	var settings edu.NotificationSettings
	if !a.readValidated(w, r, "settings.json", &settings) {
		return
	}
	if errs := edu.Validate(settings); len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}
	settings = settings.Normalized()
	if err := a.settings.Set(r.Context(), settings); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
