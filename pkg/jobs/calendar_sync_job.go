package jobs

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/localpulse/jobs/pkg/alerts"
	"github.com/localpulse/jobs/pkg/logger"
	"github.com/localpulse/jobs/pkg/models"
	"github.com/localpulse/jobs/pkg/services"
	"github.com/localpulse/jobs/pkg/store"
)

const CalendarSyncJobName = "calendar.events.sync"

const maxEventPages = 50

type CalendarRepository interface {
	ActiveCalendarLinks(ctx context.Context, limit int) ([]models.CalendarLink, error)
	UpsertCalendarEvent(ctx context.Context, e models.CalendarEvent) error
	SetSyncToken(ctx context.Context, calendarID string, token *string) error
}

type EventLister interface {
	ListEvents(ctx context.Context, calendarID, syncToken, pageToken string) (*models.CalendarEventsPage, error)
}

// CalendarSyncJob mirrors linked calendars incrementally. The stored sync
// token is the marker; it only advances after every page was written.
type CalendarSyncJob struct {
	repo   CalendarRepository
	lister EventLister
	store  store.ConfigStore
	sink   alerts.Sink
}

func NewCalendarSyncJob(repo CalendarRepository, lister EventLister, s store.ConfigStore, sink alerts.Sink) *CalendarSyncJob {
	return &CalendarSyncJob{repo: repo, lister: lister, store: s, sink: sink}
}

func (j *CalendarSyncJob) Name() string {
	return CalendarSyncJobName
}

func (j *CalendarSyncJob) Execute(ctx context.Context) (*Result, error) {
	params, err := LoadParams(ctx, j.store, j.Name())
	if err != nil {
		return nil, err
	}
	limit := params.BatchSize()

	return Pipeline[models.CalendarLink]{
		Name: j.Name(),
		Fetch: func(ctx context.Context) ([]models.CalendarLink, error) {
			return j.repo.ActiveCalendarLinks(ctx, limit)
		},
		Effect: j.syncCalendar,
		Key:    func(l models.CalendarLink) string { return l.CalendarID },
	}.Run(ctx)
}

func (j *CalendarSyncJob) syncCalendar(ctx context.Context, link models.CalendarLink) error {
	token := ""
	if link.SyncToken != nil {
		token = *link.SyncToken
	}

	written, next, err := j.pull(ctx, link, token)
	if errors.Is(err, services.ErrSyncTokenExpired) && token != "" {
		if err := j.repo.SetSyncToken(ctx, link.CalendarID, nil); err != nil {
			return err
		}
		j.alertResync(ctx, link)
		written, next, err = j.pull(ctx, link, "")
	}
	if err != nil {
		return err
	}

	if next != "" {
		if err := j.repo.SetSyncToken(ctx, link.CalendarID, &next); err != nil {
			return err
		}
	}

	logger.WithContext(ctx, j.Name()).WithTenant(link.Tenant).Debug().
		Str("action", "calendar_synced").
		Str("calendar_id", link.CalendarID).
		Bool("incremental", token != "").
		Int("events", written).
		Msg("Calendar synced")
	return nil
}

// pull writes every page of changes and returns the next sync token
func (j *CalendarSyncJob) pull(ctx context.Context, link models.CalendarLink, syncToken string) (int, string, error) {
	written := 0
	pageToken := ""
	for page := 0; page < maxEventPages; page++ {
		resp, err := j.lister.ListEvents(ctx, link.CalendarID, syncToken, pageToken)
		if err != nil {
			return written, "", err
		}

		for _, pe := range resp.Items {
			if err := j.repo.UpsertCalendarEvent(ctx, toCalendarEvent(link, pe)); err != nil {
				return written, "", err
			}
			written++
		}

		if resp.NextPageToken == "" {
			return written, resp.NextSyncToken, nil
		}
		pageToken = resp.NextPageToken
	}
	return written, "", errors.Newf("calendar %s: more than %d pages of changes", link.CalendarID, maxEventPages)
}

func (j *CalendarSyncJob) alertResync(ctx context.Context, link models.CalendarLink) {
	if j.sink == nil {
		return
	}
	alert := alerts.New(
		"Calendario resincronizado",
		"calendar_resync",
		link.Tenant,
		"El token de sincronización expiró; se hizo una sincronización completa",
		map[string]any{"calendar_id": link.CalendarID},
		alerts.PriorityLow,
	)
	if err := j.sink.RaiseAlert(ctx, alert); err != nil {
		logger.WithContext(ctx, j.Name()).Warn().
			Err(err).
			Str("action", "alert_failed").
			Str("calendar_id", link.CalendarID).
			Msg("Failed to raise resync alert")
	}
}

func toCalendarEvent(link models.CalendarLink, pe models.PlatformEvent) models.CalendarEvent {
	return models.CalendarEvent{
		CalendarID: link.CalendarID,
		EventID:    pe.ID,
		Tenant:     link.Tenant,
		Summary:    pe.Summary,
		Status:     pe.Status,
		StartsAt:   eventTime(pe.Start),
		EndsAt:     eventTime(pe.End),
	}
}

// eventTime parses a timed or all-day boundary; cancelled events carry none
func eventTime(t models.EventDateTime) *time.Time {
	if t.DateTime != "" {
		if parsed, err := time.Parse(time.RFC3339, t.DateTime); err == nil {
			return &parsed
		}
	}
	if t.Date != "" {
		if parsed, err := time.Parse(time.DateOnly, t.Date); err == nil {
			return &parsed
		}
	}
	return nil
}
