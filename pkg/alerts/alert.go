// Package alerts records notable conditions found by jobs (table alertas)
// and relays short messages to the team chat.
package alerts

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/localpulse/jobs/pkg/utils"
)

// SystemTenant owns alerts about the scheduler itself
const SystemTenant = "system"

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	}
	return "", errors.Newf("invalid alert priority %q", s)
}

// Alert is one row of alertas. New alerts are active, unseen and unresolved.
type Alert struct {
	ID          uuid.UUID
	Title       string // nombre
	Category    string // tipo
	Tenant      string
	Description string // descripcion
	Data        map[string]any
	Priority    Priority // prioridad
	Active      bool     // activa
	Seen        bool     // vista
	Resolved    bool     // resuelta
	CreatedAt   time.Time
}

// New builds an alert with the default flags and a normalized category tag
func New(title, category, tenant, description string, data map[string]any, priority Priority) Alert {
	return Alert{
		ID:          uuid.New(),
		Title:       title,
		Category:    utils.CategoryTag(category),
		Tenant:      tenant,
		Description: description,
		Data:        data,
		Priority:    priority,
		Active:      true,
	}
}

func (a Alert) validate() error {
	if strings.TrimSpace(a.Title) == "" {
		return errors.New("alert title is required")
	}
	if strings.TrimSpace(a.Tenant) == "" {
		return errors.New("alert tenant is required")
	}
	if _, err := ParsePriority(string(a.Priority)); err != nil {
		return err
	}
	return nil
}

// TenantCount is the number of unseen active alerts of one tenant
type TenantCount struct {
	Tenant string
	Count  int
	High   int
}

// Sink is what jobs and the batch runner use to surface notable conditions
type Sink interface {
	RaiseAlert(ctx context.Context, alert Alert) error
	// SendNotification is best-effort: failures are logged and reported as false
	SendNotification(ctx context.Context, message string, silent bool) bool
}
