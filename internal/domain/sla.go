package domain

import "time"

type SLAStatus string

const (
	SLAPending SLAStatus = "pending"
	SLAMet     SLAStatus = "met"
	SLAMissed  SLAStatus = "missed"
	SLAAtRisk  SLAStatus = "at_risk"
)

// SLA holds configured targets and the actuals derived from status history.
type SLA struct {
	TargetResponseMinutes   int        `json:"target_response_minutes"`
	TargetCompletionMinutes int        `json:"target_completion_minutes"`
	AcceptedAt              *time.Time `json:"accepted_at,omitempty"`
	StartedAt               *time.Time `json:"started_at,omitempty"`
	CompletedAt             *time.Time `json:"completed_at,omitempty"`
	ActualResponseMinutes   *int       `json:"actual_response_minutes,omitempty"`
	ActualCompletionMinutes *int       `json:"actual_completion_minutes,omitempty"`
	ActualServiceMinutes    *int       `json:"actual_service_minutes,omitempty"`
	ResponseOnTime          *bool      `json:"response_on_time,omitempty"`
	CompletionOnTime        *bool      `json:"completion_on_time,omitempty"`
	DelayMinutes            int        `json:"delay_minutes"`
	Status                  SLAStatus  `gorm:"type:varchar(16);default:'pending'" json:"status"`
}
