/*
Package reports produces the weekly activity summary email.

A heartbeat loop checks the mirror for the time the last report went
out; once a week has elapsed and the weekly toggle is on, it counts the
active rows and dispatches the summary to all recipients. The mirror's
write timestamp doubles as the last-sent time, so a restart never sends
a duplicate report.
*/
package reports

import (
	"context"
	"time"

	"github.com/edumanager/edumanager/core/client"
	"github.com/edumanager/edumanager/core/logger"
	"github.com/edumanager/edumanager/core/mirror"
	"github.com/edumanager/edumanager/edu"
	"github.com/edumanager/edumanager/notify"
)

const (
	settingsKey   = "notification_settings"
	lastReportKey = "weekly_report_sent"

	reportInterval = 7 * 24 * time.Hour
)

// Reporter gathers and dispatches the weekly summary.
type Reporter struct {
	client     client.Client
	acc        mirror.Accessor
	dispatcher *notify.Dispatcher
	defaults   edu.NotificationSettings
	running    bool
}

// New creates a reporter. The mirror must be the one the API writes its
// notification settings to; defaults apply while it holds none.
func New(c client.Client, m mirror.Mirror, dispatcher *notify.Dispatcher, defaults edu.NotificationSettings) *Reporter {
	return &Reporter{
		client:     c,
		acc:        m.Accessor("edumanager"),
		dispatcher: dispatcher,
		defaults:   defaults,
	}
}

// RunAsync starts the heartbeat loop. It returns immediately. This
// function must only be called once; the loop stops when ctx is done.
func (r *Reporter) RunAsync(ctx context.Context, heartbeat time.Duration) {
	if r.running {
		panic("already running")
	}
	r.running = true
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(heartbeat):
				if err := r.RunOnce(ctx); err != nil {
					logger.FromContext(ctx).Errorf("weekly report: %s", err)
				}
			}
		}
	}()
}

// RunOnce sends the weekly report if it is due. It is a no-op when the
// weekly toggle is off or the last report is younger than a week. The
// sent marker is only written when at least one recipient got the
// email, so a failed run is retried on the next heartbeat.
func (r *Reporter) RunOnce(ctx context.Context) error {
	settings := r.defaults
	if _, err := r.acc.Read(ctx, settingsKey, &settings); err != nil {
		return err
	}
	if !settings.RelatoriosSemanais {
		return nil
	}

	var marker string
	sentAt, err := r.acc.Read(ctx, lastReportKey, &marker)
	if err != nil {
		return err
	}
	if time.Since(sentAt) < reportInterval {
		return nil
	}

	report, err := r.gather(ctx)
	if err != nil {
		return err
	}

	results := r.dispatcher.Dispatch(ctx, report, settings)
	delivered := len(results) - len(notify.Failed(results))
	if delivered == 0 {
		return nil
	}
	logger.FromContext(ctx).Infof("weekly report sent to %d of %d recipients",
		delivered, len(results))
	return r.acc.Write(ctx, lastReportKey, "sent")
}

// gather counts active professores, active turmas and the contactos of
// the last seven days.
func (r *Reporter) gather(ctx context.Context) (notify.WeeklyReport, error) {
	var report notify.WeeklyReport
	c := r.client.WithContext(ctx)

	var professores []edu.Professor
	if _, err := c.Collection(edu.CollectionProfessores).List(&professores); err != nil {
		return report, err
	}
	for _, p := range professores {
		if p.Status == edu.ProfessorAtivo {
			report.Professores++
		}
	}

	var turmas []edu.Turma
	if _, err := c.Collection(edu.CollectionTurmas).List(&turmas); err != nil {
		return report, err
	}
	for _, t := range turmas {
		if t.Status == edu.TurmaAtiva {
			report.Turmas++
		}
	}

	var contactos []edu.Contacto
	if _, err := c.Collection(edu.CollectionContactos).List(&contactos); err != nil {
		return report, err
	}
	// ISO dates compare correctly as strings
	weekAgo := time.Now().Add(-reportInterval).Format("2006-01-02")
	for _, contacto := range contactos {
		if contacto.Data >= weekAgo {
			report.Contactos++
		}
	}
	return report, nil
}
