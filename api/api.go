// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

/*
Package api provides the dashboard's HTTP interface.

All row data lives in the remote store; the handlers proxy CRUD
requests through the collection client, validate payloads before they
leave the service, resolve professor display names at read time, and
fan out email notifications after successful mutations. Notification
settings are served from the durable mirror, never from the store.
*/
package api

import (
	"embed"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/edumanager/edumanager/auth"
	"github.com/edumanager/edumanager/core/client"
	"github.com/edumanager/edumanager/core/logger"
	"github.com/edumanager/edumanager/core/mirror"
	"github.com/edumanager/edumanager/core/query"
	"github.com/edumanager/edumanager/core/schema"
	"github.com/edumanager/edumanager/core/utils"
	"github.com/edumanager/edumanager/edu"
	"github.com/edumanager/edumanager/notify"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// settingsKey is the mirror key for the notification settings cell.
const settingsKey = "notification_settings"

// notificationFailuresHeader reports recipients whose notification email
// failed. The mutation itself has succeeded when this header appears.
const notificationFailuresHeader = "Notification-Failures"

// API is the dashboard backend service.
type API struct {
	queries struct {
		professores *query.Query[edu.Professor]
		turmas      *query.Query[edu.Turma]
		contactos   *query.Query[edu.Contacto]
	}
	mutators struct {
		professores *query.Mutator[edu.Professor]
		turmas      *query.Mutator[edu.Turma]
		contactos   *query.Mutator[edu.Contacto]
	}
	settings   *mirror.Cell[edu.NotificationSettings]
	dispatcher *notify.Dispatcher
	authClient *auth.Client
	validator  *schema.Validator
}

// Builder is a builder helper for the API.
type Builder struct {
	// Client is the remote store client. This is mandatory.
	Client client.Client
	// Mirror is the durable preference mirror. This is mandatory.
	Mirror mirror.Mirror
	// Dispatcher delivers email notifications. If nil, notifications
	// are written to the log.
	Dispatcher *notify.Dispatcher
	// Auth is the identity-provider client for the auth passthrough
	// routes. This is optional.
	Auth *auth.Client
	// Router is a mux router. This is mandatory.
	Router *mux.Router
	// DefaultRecipient seeds the notification recipient list when the
	// mirror holds no settings yet.
	DefaultRecipient string
}

// MustNew realizes the API and adds all routes to the router. It panics
// on an incomplete builder.
func MustNew(bb *Builder) *API {
	if bb.Router == nil {
		panic("router is missing")
	}
	if bb.Mirror == (mirror.Mirror{}) {
		panic("mirror is missing")
	}
	dispatcher := bb.Dispatcher
	if dispatcher == nil {
		dispatcher = notify.NewDispatcher(notify.ConsoleSender{})
	}

	a := &API{
		dispatcher: dispatcher,
		authClient: bb.Auth,
		validator:  schema.MustNewValidatorFromFS(schemaFS),
		settings: mirror.NewCell(bb.Mirror.Accessor("edumanager"), settingsKey,
			edu.DefaultNotificationSettings(bb.DefaultRecipient)),
	}
	c := bb.Client
	a.queries.professores = query.New[edu.Professor](c, edu.CollectionProfessores, client.Filter{})
	a.queries.turmas = query.New[edu.Turma](c, edu.CollectionTurmas, client.Filter{})
	a.queries.contactos = query.New[edu.Contacto](c, edu.CollectionContactos, client.Filter{})
	a.mutators.professores = query.NewMutator[edu.Professor](c, edu.CollectionProfessores)
	a.mutators.turmas = query.NewMutator[edu.Turma](c, edu.CollectionTurmas)
	a.mutators.contactos = query.NewMutator[edu.Contacto](c, edu.CollectionContactos)
	a.handleRoutes(bb.Router)
	return a
}

func (a *API) handleRoutes(router *mux.Router) {
	router.HandleFunc("/professores", a.professoresList).Methods(http.MethodGet)
	router.HandleFunc("/professores", a.professoresCreate).Methods(http.MethodPost)
	router.HandleFunc("/professores/{id}", a.professoresUpdate).Methods(http.MethodPut)
	router.HandleFunc("/professores/{id}", a.professoresDelete).Methods(http.MethodDelete)

	router.HandleFunc("/turmas", a.turmasList).Methods(http.MethodGet)
	router.HandleFunc("/turmas", a.turmasCreate).Methods(http.MethodPost)
	router.HandleFunc("/turmas/{id}", a.turmasUpdate).Methods(http.MethodPut)
	router.HandleFunc("/turmas/{id}", a.turmasDelete).Methods(http.MethodDelete)

	router.HandleFunc("/contactos", a.contactosList).Methods(http.MethodGet)
	router.HandleFunc("/contactos", a.contactosCreate).Methods(http.MethodPost)
	router.HandleFunc("/contactos/{id}", a.contactosUpdate).Methods(http.MethodPut)
	router.HandleFunc("/contactos/{id}", a.contactosDelete).Methods(http.MethodDelete)

	router.HandleFunc("/dashboard", a.dashboard).Methods(http.MethodGet)

	router.HandleFunc("/settings/notifications", a.settingsGet).Methods(http.MethodGet)
	router.HandleFunc("/settings/notifications", a.settingsPut).Methods(http.MethodPut)

	if a.authClient != nil {
		router.HandleFunc("/auth/login", a.authLogin).Methods(http.MethodPost)
		router.HandleFunc("/auth/register", a.authRegister).Methods(http.MethodPost)
		router.HandleFunc("/auth/logout", a.authLogout).Methods(http.MethodPost)
		router.HandleFunc("/auth/recover", a.authRecover).Methods(http.MethodPost)
		router.HandleFunc("/auth/user", a.authUser).Methods(http.MethodGet)
	}
}

func writeJSON(w http.ResponseWriter, status int, object interface{}) {
	jsonData, _ := json.Marshal(object)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(jsonData)
}

// writeFieldErrors reports per-field validation failures.
func writeFieldErrors(w http.ResponseWriter, errs map[string]string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{"errors": errs})
}

// readValidated reads the request body, checks it against schemaID and
// unmarshals it into record. It writes the error response itself and
// returns false when the payload is unusable.
func (a *API) readValidated(w http.ResponseWriter, r *http.Request, schemaID string, record interface{}) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "cannot read body", http.StatusBadRequest)
		return false
	}
	if err := a.validator.ValidateBytes(body, schemaID); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	if err := json.Unmarshal(body, record); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// storeError maps a remote store failure to a response. ErrNotFound
// becomes 404, everything else a bad gateway with the store's message.
func storeError(w http.ResponseWriter, r *http.Request, err error) {
	if err == client.ErrNotFound {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	logger.FromContext(r.Context()).Errorf("store request failed: %s", err)
	http.Error(w, err.Error(), http.StatusBadGateway)
}

// queryError reports a failed list refetch.
func queryError(w http.ResponseWriter, r *http.Request, message string) {
	logger.FromContext(r.Context()).Errorf("store request failed: %s", message)
	http.Error(w, message, http.StatusBadGateway)
}

// dispatch fans the event out to the configured recipients and reports
// failed recipients on the response header. Must be called before the
// response body is written.
func (a *API) dispatch(w http.ResponseWriter, r *http.Request, event notify.Event) {
	ctx := r.Context()
	results := a.dispatcher.Dispatch(ctx, event, a.settings.Get(ctx))
	failed := notify.Failed(results)
	if len(failed) == 0 {
		return
	}
	recipients := make([]string, 0, len(failed))
	for _, f := range failed {
		recipients = append(recipients, f.Recipient)
	}
	w.Header().Set(notificationFailuresHeader, strings.Join(recipients, ", "))
}

// professorNames returns the display name for every professor id, from
// a fresh read of the professores collection.
func (a *API) professorNames(r *http.Request) (map[string]string, error) {
	a.queries.professores.Refetch(r.Context())
	if message := a.queries.professores.Err(); message != "" {
		return nil, errors.New(message)
	}
	rows := a.queries.professores.Data()
	names := make(map[string]string, len(rows))
	for _, p := range rows {
		names[p.ID] = p.Nome
	}
	return names, nil
}

func nameOf(names map[string]string, id *string) string {
	return names[utils.SafeString(id)]
}
