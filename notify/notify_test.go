package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edumanager/edumanager/edu"
)

// recordingSender captures sends and fails for chosen recipients.
type recordingSender struct {
	sent    []Email
	failFor map[string]error
}

func (s *recordingSender) Send(ctx context.Context, email Email) error {
	if err, ok := s.failFor[email.To]; ok {
		return err
	}
	s.sent = append(s.sent, email)
	return nil
}

func TestDispatchToggleOff(t *testing.T) {
	sender := &recordingSender{}
	dispatcher := NewDispatcher(sender)

	settings := edu.DefaultNotificationSettings("admin@escola.com")
	// contacto notifications default to off
	results := dispatcher.Dispatch(context.Background(),
		ContactoRegistered{Motivo: "Reunião"}, settings)

	assert.Nil(t, results)
	assert.Empty(t, sender.sent)
}

func TestDispatchNoRecipients(t *testing.T) {
	sender := &recordingSender{}
	dispatcher := NewDispatcher(sender)

	settings := edu.NotificationSettings{EmailNovoProfessor: true}
	results := dispatcher.Dispatch(context.Background(),
		ProfessorAdded{Nome: "Ana Silva"}, settings)

	assert.Nil(t, results)
	assert.Empty(t, sender.sent)
}

func TestDispatchSendsToAllRecipients(t *testing.T) {
	sender := &recordingSender{}
	dispatcher := NewDispatcher(sender)

	settings := edu.NotificationSettings{
		EmailNovoProfessor: true,
		EmailRecipients:    []string{"a@escola.com", "b@escola.com"},
	}
	event := ProfessorAdded{
		Nome:         "Ana Silva",
		Email:        "ana@escola.com",
		Departamento: "Matemática",
		Cargo:        "Professora",
	}
	results := dispatcher.Dispatch(context.Background(), event, settings)

	require.Len(t, results, 2)
	for _, r := range results {
		assert.NoError(t, r.Err)
	}
	require.Len(t, sender.sent, 2)
	assert.Equal(t, "a@escola.com", sender.sent[0].To)
	assert.Equal(t, "b@escola.com", sender.sent[1].To)
	assert.Equal(t, "🎓 Novo Professor: Ana Silva", sender.sent[0].Subject)
	assert.Equal(t, EventProfessorAdded, sender.sent[0].Type)
	assert.Contains(t, sender.sent[0].HTML, "Ana Silva")
	assert.Contains(t, sender.sent[0].HTML, "Matemática")
}

func TestDispatchOneFailureDoesNotStopTheOthers(t *testing.T) {
	boom := errors.New("mailbox unavailable")
	sender := &recordingSender{failFor: map[string]error{"b@escola.com": boom}}
	dispatcher := NewDispatcher(sender)

	settings := edu.NotificationSettings{
		EmailNovaTurma:  true,
		EmailRecipients: []string{"a@escola.com", "b@escola.com", "c@escola.com"},
	}
	event := TurmaCreated{Curso: "Programação", CodFormacao: "PRO2025-123"}
	results := dispatcher.Dispatch(context.Background(), event, settings)

	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, boom)
	assert.Equal(t, "b@escola.com", results[1].Recipient)
	assert.NoError(t, results[2].Err)

	// the two working recipients still got their email
	require.Len(t, sender.sent, 2)
	assert.Equal(t, "a@escola.com", sender.sent[0].To)
	assert.Equal(t, "c@escola.com", sender.sent[1].To)

	failed := Failed(results)
	require.Len(t, failed, 1)
	assert.Equal(t, "b@escola.com", failed[0].Recipient)
}

func TestRenderTurmaFormatsDate(t *testing.T) {
	html, err := Render(TurmaCreated{
		Curso:       "Programação Web",
		CodFormacao: "PRO2025-042",
		Professor:   "Ana Silva",
		DataInicio:  "2025-09-15",
	})
	require.NoError(t, err)
	assert.Contains(t, html, "Nova Turma Criada")
	assert.Contains(t, html, "PRO2025-042")
	assert.Contains(t, html, "15/09/2025")
}

func TestRenderContacto(t *testing.T) {
	html, err := Render(ContactoRegistered{
		Motivo:   "Reunião de pais",
		Emissor:  "Ana Silva",
		Receptor: "Rui Costa",
		Data:     "2025-03-02",
		Hora:     "14:30",
	})
	require.NoError(t, err)
	assert.Contains(t, html, "Ana Silva e Rui Costa")
	assert.Contains(t, html, "02/03/2025")
	assert.Contains(t, html, "14:30")
}

func TestRenderWeeklyReportCounts(t *testing.T) {
	html, err := Render(WeeklyReport{Professores: 12, Turmas: 5, Contactos: 3})
	require.NoError(t, err)
	assert.Contains(t, html, "Resumo da Semana")
	assert.Contains(t, html, ">12<")
	assert.Contains(t, html, ">5<")
	assert.Contains(t, html, ">3<")
}

func TestEdgeFunctionSender(t *testing.T) {
	var got Email
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/functions/v1/send-email", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("apikey"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": true, "message": "Email enviado com sucesso"}`))
	}))
	defer server.Close()

	sender := NewEdgeFunctionSender(server.URL, "test-key")
	err := sender.Send(context.Background(), Email{
		To:      "a@escola.com",
		Subject: "Teste",
		HTML:    "<p>olá</p>",
		Type:    EventProfessorAdded,
	})
	require.NoError(t, err)
	assert.Equal(t, "a@escola.com", got.To)
	assert.Equal(t, EventProfessorAdded, got.Type)
}

func TestEdgeFunctionSenderFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success": false, "error": "Credenciais Gmail não configuradas"}`))
	}))
	defer server.Close()

	sender := NewEdgeFunctionSender(server.URL, "test-key")
	err := sender.Send(context.Background(), Email{To: "a@escola.com"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "Credenciais Gmail não configuradas"))
}
