package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edumanager/edumanager/core/client"
	"github.com/edumanager/edumanager/core/client/storestub"
	"github.com/edumanager/edumanager/core/mirror"
	"github.com/edumanager/edumanager/edu"
	"github.com/edumanager/edumanager/notify"
)

// recordingSender captures outbound email and fails for chosen
// recipients.
type recordingSender struct {
	sent    []notify.Email
	failFor map[string]error
}

func (s *recordingSender) Send(ctx context.Context, email notify.Email) error {
	if err, ok := s.failFor[email.To]; ok {
		return err
	}
	s.sent = append(s.sent, email)
	return nil
}

type testAPI struct {
	api    *API
	router *mux.Router
	store  *storestub.Store
	sender *recordingSender
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	storeRouter := mux.NewRouter()
	store := storestub.MustNewStore(storeRouter)

	sender := &recordingSender{failFor: map[string]error{}}
	router := mux.NewRouter()
	a := MustNew(&Builder{
		Client:           client.NewWithRouter(storeRouter),
		Mirror:           mirror.New(mirror.MustNewFileBackend(t.TempDir())),
		Dispatcher:       notify.NewDispatcher(sender),
		Router:           router,
		DefaultRecipient: "admin@escola.com",
	})
	return &testAPI{api: a, router: router, store: store, sender: sender}
}

func (ta *testAPI) request(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	ta.router.ServeHTTP(rec, req)
	return rec
}

const validProfessor = `{
	"nome": "Prof. Teste",
	"email": "teste@escola.com",
	"telefone": "+351 21 123 4567",
	"cargo": "Professor Auxiliar",
	"departamento": "Matemática",
	"status": "ativo"
}`

func TestCreateProfessorRoundTrip(t *testing.T) {
	ta := newTestAPI(t)

	rec := ta.request(t, http.MethodPost, "/professores", validProfessor)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created edu.Professor
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Prof. Teste", created.Nome)
	assert.Equal(t, "teste@escola.com", created.Email)
	assert.Equal(t, "+351 21 123 4567", created.Telefone)
	assert.Equal(t, "Professor Auxiliar", created.Cargo)
	assert.Equal(t, "Matemática", created.Departamento)
	assert.Equal(t, edu.ProfessorAtivo, created.Status)
	assert.NotEmpty(t, created.ID)
	assert.NotEmpty(t, created.CreatedAt)
	assert.NotEmpty(t, created.UpdatedAt)

	// the new-professor notification went to the default recipient
	require.Len(t, ta.sender.sent, 1)
	assert.Equal(t, "admin@escola.com", ta.sender.sent[0].To)
	assert.Equal(t, "🎓 Novo Professor: Prof. Teste", ta.sender.sent[0].Subject)

	rec = ta.request(t, http.MethodGet, "/professores", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []edu.Professor
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)
}

func TestCreateProfessorFieldErrors(t *testing.T) {
	ta := newTestAPI(t)

	rec := ta.request(t, http.MethodPost, "/professores", `{
		"nome": "Prof. Teste",
		"email": "not-an-email",
		"telefone": "123",
		"cargo": "Professor",
		"departamento": "Matemática",
		"status": "ativo"
	}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var reply struct {
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	assert.Equal(t, "Email inválido", reply.Errors["email"])
	assert.Equal(t, "Telefone inválido (formato: +351 21 123 4567)", reply.Errors["telefone"])
	assert.Empty(t, ta.sender.sent)
	assert.Empty(t, ta.store.Rows(edu.CollectionProfessores))
}

func TestCreateProfessorBadStatusRejectedBySchema(t *testing.T) {
	ta := newTestAPI(t)
	rec := ta.request(t, http.MethodPost, "/professores",
		strings.Replace(validProfessor, "ativo", "maybe", 1))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateProfessorNotFound(t *testing.T) {
	ta := newTestAPI(t)
	rec := ta.request(t, http.MethodPut, "/professores/no-such-id", validProfessor)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteProfessor(t *testing.T) {
	ta := newTestAPI(t)
	ta.store.Seed(edu.CollectionProfessores, storestub.Row{"id": "p1", "nome": "Ana"})

	rec := ta.request(t, http.MethodDelete, "/professores/p1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = ta.request(t, http.MethodDelete, "/professores/p1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateTurmaGeneratesCodeAndResolvesName(t *testing.T) {
	ta := newTestAPI(t)
	ta.store.Seed(edu.CollectionProfessores, storestub.Row{
		"id": "p1", "nome": "Ana Silva", "status": "ativo",
	})

	rec := ta.request(t, http.MethodPost, "/turmas", `{
		"curso": "Programação Web",
		"ano": "2025",
		"professor_id": "p1",
		"total_alunos": 20,
		"status": "ativa",
		"data_inicio": "2025-09-15"
	}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var view TurmaView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Regexp(t, regexp.MustCompile(`^PRO2025-\d{3}$`), view.CodFormacao)
	assert.Equal(t, "Ana Silva", view.Professor)

	require.Len(t, ta.sender.sent, 1)
	assert.Equal(t, "📚 Nova Turma: Programação Web", ta.sender.sent[0].Subject)
	assert.Contains(t, ta.sender.sent[0].HTML, "Ana Silva")
	assert.Contains(t, ta.sender.sent[0].HTML, "15/09/2025")
}

func TestTurmaNameFollowsProfessorRename(t *testing.T) {
	ta := newTestAPI(t)
	ta.store.Seed(edu.CollectionProfessores, storestub.Row{
		"id": "p1", "nome": "Ana Silva", "status": "ativo",
	})
	ta.store.Seed(edu.CollectionTurmas, storestub.Row{
		"id": "t1", "curso": "Inglês", "ano": "2025", "cod_formacao": "ING2025-001",
		"professor_id": "p1", "total_alunos": 10, "status": "ativa", "data_inicio": "2025-01-10",
	})

	listViews := func() []TurmaView {
		rec := ta.request(t, http.MethodGet, "/turmas", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var views []TurmaView
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
		return views
	}

	views := listViews()
	require.Len(t, views, 1)
	assert.Equal(t, "Ana Silva", views[0].Professor)

	// rename the professor; the turma view follows on the next read
	rec := ta.request(t, http.MethodPut, "/professores/p1", `{
		"nome": "Ana Santos",
		"email": "ana@escola.com",
		"telefone": "+351 21 123 4567",
		"cargo": "Professora",
		"departamento": "Línguas",
		"status": "ativo"
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	views = listViews()
	require.Len(t, views, 1)
	assert.Equal(t, "Ana Santos", views[0].Professor)
}

func TestCreateContactoSenderReceiverMustDiffer(t *testing.T) {
	ta := newTestAPI(t)
	rec := ta.request(t, http.MethodPost, "/contactos", `{
		"emissor_id": "p1",
		"receptor_id": "p1",
		"motivo": "Reunião",
		"estado": "pendente",
		"data": "2025-03-02",
		"hora": "14:30"
	}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var reply struct {
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	assert.Equal(t, "Emissor e receptor devem ser diferentes", reply.Errors["receptor_id"])
}

func TestCreateContactoResolvesNamesAndStaysQuiet(t *testing.T) {
	ta := newTestAPI(t)
	ta.store.Seed(edu.CollectionProfessores, storestub.Row{"id": "p1", "nome": "Ana Silva", "status": "ativo"})
	ta.store.Seed(edu.CollectionProfessores, storestub.Row{"id": "p2", "nome": "Rui Costa", "status": "ativo"})

	rec := ta.request(t, http.MethodPost, "/contactos", `{
		"emissor_id": "p1",
		"receptor_id": "p2",
		"motivo": "Reunião de pais",
		"estado": "pendente",
		"data": "2025-03-02",
		"hora": "14:30"
	}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var view ContactoView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "Ana Silva", view.Emissor)
	assert.Equal(t, "Rui Costa", view.Receptor)

	// contacto email notifications are off by default
	assert.Empty(t, ta.sender.sent)
}

func TestDashboardSummary(t *testing.T) {
	ta := newTestAPI(t)
	today := time.Now().Format("2006-01-02")

	ta.store.Seed(edu.CollectionProfessores, storestub.Row{"id": "p1", "nome": "Ana Silva", "status": "ativo"})
	ta.store.Seed(edu.CollectionProfessores, storestub.Row{"id": "p2", "nome": "Rui Costa", "status": "inativo"})
	ta.store.Seed(edu.CollectionTurmas, storestub.Row{"id": "t1", "curso": "Inglês", "status": "ativa"})
	ta.store.Seed(edu.CollectionTurmas, storestub.Row{"id": "t2", "curso": "Física", "status": "concluida"})
	ta.store.Seed(edu.CollectionContactos, storestub.Row{"id": "c1", "motivo": "Reunião", "estado": "pendente", "data": today})
	ta.store.Seed(edu.CollectionContactos, storestub.Row{"id": "c2", "motivo": "Avaliação", "estado": "pendente", "data": "2020-01-01"})

	rec := ta.request(t, http.MethodGet, "/dashboard", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var summary DashboardSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 2, summary.TotalProfessores)
	assert.Equal(t, 1, summary.TurmasAtivas)
	assert.Equal(t, 1, summary.ContactosHoje)
	require.Len(t, summary.RecentActivities, 4)
	assert.Equal(t, "Novo professor adicionado: Ana Silva", summary.RecentActivities[0].Message)
	assert.Equal(t, `Turma "Inglês" criada`, summary.RecentActivities[2].Message)
}

func TestSettingsRoundTrip(t *testing.T) {
	ta := newTestAPI(t)

	rec := ta.request(t, http.MethodGet, "/settings/notifications", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var settings edu.NotificationSettings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &settings))
	assert.True(t, settings.EmailNovoProfessor)
	assert.False(t, settings.EmailNovoContacto)
	assert.Equal(t, []string{"admin@escola.com"}, settings.EmailRecipients)

	rec = ta.request(t, http.MethodPut, "/settings/notifications", `{
		"emailNovoProfessor": false,
		"emailNovaTurma": true,
		"emailNovoContacto": true,
		"relatoriosSemanais": false,
		"emailRecipients": ["a@escola.com", "b@escola.com", "a@escola.com"]
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &settings))
	// duplicates are dropped, order preserved
	assert.Equal(t, []string{"a@escola.com", "b@escola.com"}, settings.EmailRecipients)

	rec = ta.request(t, http.MethodGet, "/settings/notifications", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &settings))
	assert.False(t, settings.EmailNovoProfessor)
	assert.True(t, settings.EmailNovoContacto)
}

func TestSettingsRejectBadRecipient(t *testing.T) {
	ta := newTestAPI(t)
	rec := ta.request(t, http.MethodPut, "/settings/notifications", `{
		"emailNovoProfessor": true,
		"emailNovaTurma": true,
		"emailNovoContacto": false,
		"relatoriosSemanais": true,
		"emailRecipients": ["not-an-email"]
	}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestNotificationFailureReportedOnHeader(t *testing.T) {
	ta := newTestAPI(t)
	ta.sender.failFor["admin@escola.com"] = errors.New("mailbox unavailable")

	rec := ta.request(t, http.MethodPost, "/professores", validProfessor)
	// the row is created even though the notification failed
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "admin@escola.com", rec.Header().Get("Notification-Failures"))
	require.Len(t, ta.store.Rows(edu.CollectionProfessores), 1)
}

func TestStoreFailureSurfaced(t *testing.T) {
	ta := newTestAPI(t)
	ta.store.FailNext("connection reset")

	rec := ta.request(t, http.MethodGet, "/professores", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection reset")
}
