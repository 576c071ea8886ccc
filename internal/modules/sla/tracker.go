// Package sla derives response and completion timing from status history.
package sla

import (
	"time"

	"hotelrides/internal/domain"
)

const (
	DefaultResponseMinutes   = 30
	DefaultCompletionMinutes = 240
)

type Targets struct {
	ResponseMinutes   int
	CompletionMinutes int
}

func DefaultTargets() Targets {
	return Targets{ResponseMinutes: DefaultResponseMinutes, CompletionMinutes: DefaultCompletionMinutes}
}

func (t Targets) withDefaults() Targets {
	if t.ResponseMinutes <= 0 {
		t.ResponseMinutes = DefaultResponseMinutes
	}
	if t.CompletionMinutes <= 0 {
		t.CompletionMinutes = DefaultCompletionMinutes
	}
	return t
}

// Compute is a pure function of the booking's creation time and history.
//
// The provider has responded at the first quote_sent or payment_pending entry.
// Service starts at the first service_active entry. When a booking completes
// without those entries, missing timestamps collapse onto the previous one so
// created <= accepted <= started <= completed always holds.
func Compute(createdAt time.Time, history []domain.StatusHistoryEntry, targets Targets) domain.SLA {
	targets = targets.withDefaults()
	out := domain.SLA{
		TargetResponseMinutes:   targets.ResponseMinutes,
		TargetCompletionMinutes: targets.CompletionMinutes,
		Status:                  domain.SLAPending,
	}

	var accepted, started, completed *time.Time
	for i := range history {
		at := history[i].At
		switch history[i].Status {
		case domain.StatusQuoteSent, domain.StatusPaymentPending:
			if accepted == nil {
				accepted = &at
			}
		case domain.StatusServiceActive:
			if started == nil {
				started = &at
			}
		case domain.StatusCompleted:
			if completed == nil {
				completed = &at
			}
		}
	}

	if completed != nil {
		if accepted == nil {
			accepted = &createdAt
		}
		if started == nil {
			started = accepted
		}
	}

	accepted = notBefore(accepted, createdAt)
	if accepted != nil {
		started = notBefore(started, *accepted)
	}
	if started != nil {
		completed = notBefore(completed, *started)
	}

	out.AcceptedAt = accepted
	out.StartedAt = started
	out.CompletedAt = completed

	if accepted != nil {
		resp := minutesBetween(createdAt, *accepted)
		onTime := resp <= targets.ResponseMinutes
		out.ActualResponseMinutes = &resp
		out.ResponseOnTime = &onTime
	}

	if completed == nil {
		if out.ResponseOnTime != nil && !*out.ResponseOnTime {
			out.Status = domain.SLAAtRisk
		}
		return out
	}

	total := minutesBetween(createdAt, *completed)
	service := minutesBetween(*started, *completed)
	onTime := total <= targets.CompletionMinutes
	out.ActualCompletionMinutes = &total
	out.ActualServiceMinutes = &service
	out.CompletionOnTime = &onTime
	out.DelayMinutes = total - targets.CompletionMinutes

	if *out.ResponseOnTime && onTime {
		out.Status = domain.SLAMet
	} else {
		out.Status = domain.SLAMissed
	}
	return out
}

func notBefore(t *time.Time, floor time.Time) *time.Time {
	if t == nil {
		return nil
	}
	if t.Before(floor) {
		f := floor
		return &f
	}
	v := *t
	return &v
}

func minutesBetween(from, to time.Time) int {
	return int(to.Sub(from) / time.Minute)
}
