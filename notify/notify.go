/*
Package notify fans out dashboard events to email recipients.

Each event kind carries its own payload type; the dispatcher renders the
HTML body once, then sends one email per configured recipient,
sequentially and in list order. A failed send for one recipient is
logged and never aborts the remaining sends. The dispatcher reports a
per-recipient result list so callers can surface partial failures.
*/
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/edumanager/edumanager/core/logger"
	"github.com/edumanager/edumanager/edu"
)

// EventKind names one of the notification triggers.
type EventKind string

// all event kinds
const (
	EventProfessorAdded     EventKind = "professor_added"
	EventTurmaCreated       EventKind = "turma_created"
	EventContactoRegistered EventKind = "contacto_registered"
	EventWeeklyReport       EventKind = "weekly_report"
)

// Event is one notifiable occurrence. Every kind has its own payload
// shape; there is no untyped payload.
type Event interface {
	Kind() EventKind
	Subject() string
}

// ProfessorAdded is raised after a professor was inserted.
type ProfessorAdded struct {
	Nome         string
	Email        string
	Departamento string
	Cargo        string
}

// Kind implements Event.
func (e ProfessorAdded) Kind() EventKind { return EventProfessorAdded }

// Subject implements Event.
func (e ProfessorAdded) Subject() string { return "🎓 Novo Professor: " + e.Nome }

// TurmaCreated is raised after a turma was inserted.
type TurmaCreated struct {
	Curso       string
	CodFormacao string
	Professor   string
	DataInicio  string
}

// Kind implements Event.
func (e TurmaCreated) Kind() EventKind { return EventTurmaCreated }

// Subject implements Event.
func (e TurmaCreated) Subject() string { return "📚 Nova Turma: " + e.Curso }

// ContactoRegistered is raised after a contacto was inserted.
type ContactoRegistered struct {
	Motivo   string
	Emissor  string
	Receptor string
	Data     string
	Hora     string
}

// Kind implements Event.
func (e ContactoRegistered) Kind() EventKind { return EventContactoRegistered }

// Subject implements Event.
func (e ContactoRegistered) Subject() string { return "📞 Novo Contacto: " + e.Motivo }

// WeeklyReport is the weekly activity summary.
type WeeklyReport struct {
	Professores int
	Turmas      int
	Contactos   int
}

// Kind implements Event.
func (e WeeklyReport) Kind() EventKind { return EventWeeklyReport }

// Subject implements Event.
func (e WeeklyReport) Subject() string {
	return "📊 Relatório Semanal - " + time.Now().Format("02/01/2006")
}

// Email is one outbound message for the send endpoint.
type Email struct {
	To      string    `json:"to"`
	Subject string    `json:"subject"`
	HTML    string    `json:"html"`
	Type    EventKind `json:"type"`
}

// Sender delivers one email. Implementations must treat every call as
// independent; the dispatcher relies on that isolation.
type Sender interface {
	Send(ctx context.Context, email Email) error
}

// Result is the outcome of the send to one recipient.
type Result struct {
	Recipient string
	Err       error
}

// Failed filters a result list down to the failures.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}

// Dispatcher fans events out to the configured recipients.
type Dispatcher struct {
	sender Sender
}

// NewDispatcher creates a dispatcher delivering through sender.
func NewDispatcher(sender Sender) *Dispatcher {
	return &Dispatcher{sender: sender}
}

// Dispatch sends the event to every recipient in settings, in list
// order, one send at a time. It is a no-op when the event's toggle is
// off or the recipient list is empty. The returned slice has one entry
// per attempted recipient; a nil slice means nothing was attempted.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event, settings edu.NotificationSettings) []Result {
	if !enabled(settings, event.Kind()) || len(settings.EmailRecipients) == 0 {
		return nil
	}

	rlog := logger.FromContext(ctx)
	html, err := Render(event)
	if err != nil {
		// a template that does not render is a programming error; report
		// it once per recipient so the caller sees a complete picture
		rlog.Errorf("notify: cannot render %s: %s", event.Kind(), err)
		results := make([]Result, 0, len(settings.EmailRecipients))
		for _, recipient := range settings.EmailRecipients {
			results = append(results, Result{Recipient: recipient, Err: err})
		}
		return results
	}

	results := make([]Result, 0, len(settings.EmailRecipients))
	for _, recipient := range settings.EmailRecipients {
		sendErr := d.sender.Send(ctx, Email{
			To:      recipient,
			Subject: event.Subject(),
			HTML:    html,
			Type:    event.Kind(),
		})
		if sendErr != nil {
			rlog.Errorf("notify: %s to %s failed: %s", event.Kind(), recipient, sendErr)
			sendErr = fmt.Errorf("send to %s: %w", recipient, sendErr)
		}
		results = append(results, Result{Recipient: recipient, Err: sendErr})
	}
	return results
}

func enabled(settings edu.NotificationSettings, kind EventKind) bool {
	switch kind {
	case EventProfessorAdded:
		return settings.EmailNovoProfessor
	case EventTurmaCreated:
		return settings.EmailNovaTurma
	case EventContactoRegistered:
		return settings.EmailNovoContacto
	case EventWeeklyReport:
		return settings.RelatoriosSemanais
	default:
		return false
	}
}
