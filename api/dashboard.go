package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/edumanager/edumanager/edu"
)

// Activity is one line of the dashboard's recent-activity feed.
type Activity struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// DashboardSummary holds the numbers the dashboard tiles render.
type DashboardSummary struct {
	TotalProfessores int        `json:"total_professores"`
	TurmasAtivas     int        `json:"turmas_ativas"`
	ContactosHoje    int        `json:"contactos_hoje"`
	RecentActivities []Activity `json:"recent_activities"`
}

func (a *API) dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a.queries.professores.Refetch(ctx)
	a.queries.turmas.Refetch(ctx)
	a.queries.contactos.Refetch(ctx)
	for _, message := range []string{
		a.queries.professores.Err(),
		a.queries.turmas.Err(),
		a.queries.contactos.Err(),
	} {
		if message != "" {
			queryError(w, r, message)
			return
		}
	}
	professores := a.queries.professores.Data()
	turmas := a.queries.turmas.Data()
	contactos := a.queries.contactos.Data()

	summary := DashboardSummary{
		TotalProfessores: len(professores),
		RecentActivities: []Activity{},
	}
	for _, t := range turmas {
		if t.Status == edu.TurmaAtiva {
			summary.TurmasAtivas++
		}
	}
	today := time.Now().Format("2006-01-02")
	for _, contacto := range contactos {
		if contacto.Data == today {
			summary.ContactosHoje++
		}
	}

	// the feed takes the newest two rows of each collection, four lines total
	for _, p := range lastTwo(professores) {
		summary.RecentActivities = append(summary.RecentActivities, Activity{
			ID:      "prof-" + p.ID,
			Type:    "professor",
			Message: "Novo professor adicionado: " + p.Nome,
		})
	}
	for _, t := range lastTwo(turmas) {
		summary.RecentActivities = append(summary.RecentActivities, Activity{
			ID:      "turma-" + t.ID,
			Type:    "turma",
			Message: fmt.Sprintf("Turma %q criada", t.Curso),
		})
	}
	for _, contacto := range lastTwo(contactos) {
		summary.RecentActivities = append(summary.RecentActivities, Activity{
			ID:      "contacto-" + contacto.ID,
			Type:    "contacto",
			Message: "Contacto registado: " + contacto.Motivo,
		})
	}
	if len(summary.RecentActivities) > 4 {
		summary.RecentActivities = summary.RecentActivities[:4]
	}

	writeJSON(w, http.StatusOK, summary)
}

func lastTwo[T any](rows []T) []T {
	if len(rows) <= 2 {
		return rows
	}
	return rows[len(rows)-2:]
}
