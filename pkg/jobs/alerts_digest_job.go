package jobs

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/localpulse/jobs/pkg/alerts"
	"github.com/localpulse/jobs/pkg/store"
)

const AlertsDigestJobName = "alerts.digest.daily"

type UnseenCounter interface {
	CountUnseenByTenant(ctx context.Context, tenants []string) ([]alerts.TenantCount, error)
}

// AlertsDigestJob sends one quiet chat message with unseen alerts per tenant
type AlertsDigestJob struct {
	counter UnseenCounter
	store   store.ConfigStore
	sink    alerts.Sink
}

func NewAlertsDigestJob(counter UnseenCounter, s store.ConfigStore, sink alerts.Sink) *AlertsDigestJob {
	return &AlertsDigestJob{counter: counter, store: s, sink: sink}
}

func (j *AlertsDigestJob) Name() string {
	return AlertsDigestJobName
}

func (j *AlertsDigestJob) Execute(ctx context.Context) (*Result, error) {
	params, err := LoadParams(ctx, j.store, j.Name())
	if err != nil {
		return nil, err
	}

	counts, err := j.counter.CountUnseenByTenant(ctx, params.Strings("tenants"))
	if err != nil {
		return nil, err
	}

	res := &Result{Processed: len(counts)}
	if len(counts) == 0 {
		return res, nil
	}

	if j.sink == nil || !j.sink.SendNotification(ctx, digestMessage(counts), true) {
		res.Failed = len(counts)
		return res, errors.New("alert digest was not delivered")
	}
	res.Succeeded = len(counts)
	return res, nil
}

func digestMessage(counts []alerts.TenantCount) string {
	var b strings.Builder
	total := 0
	for _, c := range counts {
		total += c.Count
	}

	fmt.Fprintf(&b, "🔔 %d alertas sin revisar", total)
	for _, c := range counts {
		fmt.Fprintf(&b, "\n• %s: %d", c.Tenant, c.Count)
		if c.High > 0 {
			fmt.Fprintf(&b, " (%d altas)", c.High)
		}
	}
	return b.String()
}
