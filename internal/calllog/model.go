package calllog

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

var (
	ErrNotFound     = errors.New("call log not found")
	ErrDuplicateSID = errors.New("duplicate call sid")
)

type CallLog struct {
	ID              uint           `gorm:"column:id;primaryKey"              json:"id"`
	PhoneNumberID   uint           `gorm:"column:phone_number_id;index"      json:"phone_number_id"`
	CallSID         string         `gorm:"column:call_sid;uniqueIndex"       json:"call_sid"`
	Status          string         `gorm:"column:status"                     json:"status"`
	Direction       string         `gorm:"column:direction"                  json:"direction"`
	StartedAt       *time.Time     `gorm:"column:started_at"                 json:"started_at,omitempty"`
	AnsweredAt      *time.Time     `gorm:"column:answered_at"                json:"answered_at,omitempty"`
	EndedAt         *time.Time     `gorm:"column:ended_at"                   json:"ended_at,omitempty"`
	DurationSeconds int            `gorm:"column:duration_seconds;default:0" json:"duration_seconds"`
	Cost            float64        `gorm:"column:cost;type:decimal(8,4)"     json:"cost"`
	FromNumber      string         `gorm:"column:from_number"                json:"from_number"`
	ToNumber        string         `gorm:"column:to_number"                  json:"to_number"`
	ErrorMessage    string         `gorm:"column:error_message"              json:"error_message,omitempty"`
	Simulation      bool           `gorm:"column:simulation;default:true"    json:"simulation"`
	Metadata        datatypes.JSON `gorm:"column:metadata;type:jsonb"        json:"metadata,omitempty"`
	CreatedAt       time.Time      `gorm:"column:created_at"                 json:"created_at"`
	UpdatedAt       time.Time      `gorm:"column:updated_at"                 json:"updated_at"`
}

func (CallLog) TableName() string {
	return "call_logs"
}

const (
	StatusQueued     = "queued"
	StatusRinging    = "ringing"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
	StatusBusy       = "busy"
	StatusFailed     = "failed"
	StatusNoAnswer   = "no-answer"
	StatusCancelled  = "cancelled"
)

const DirectionOutboundAPI = "outbound-api"

func FailureStatuses() []string {
	return []string{StatusFailed, StatusBusy, StatusNoAnswer, StatusCancelled}
}

func ActiveStatuses() []string {
	return []string{StatusQueued, StatusRinging, StatusInProgress}
}

func (log *CallLog) Successful() bool {
	return log.Status == StatusCompleted
}

func (log *CallLog) Failed() bool {
	for _, status := range FailureStatuses() {
		if log.Status == status {
			return true
		}
	}

	return false
}

func (log *CallLog) Active() bool {
	for _, status := range ActiveStatuses() {
		if log.Status == status {
			return true
		}
	}

	return false
}

// NewCallSID generates a Twilio-shaped call session token ("CA" + 32 hex).
// UUID-backed, so collisions are not a practical concern; the unique index
// on call_sid turns one into a hard error rather than a silent overwrite.
func NewCallSID() string {
	id := uuid.New()

	return "CA" + hex.EncodeToString(id[:])
}

// Cost derives the monetary cost of a call from its duration, rounded to
// four decimals. Cost is never stored independently of duration.
func Cost(durationSeconds int, ratePerMinute float64) float64 {
	minutes := float64(durationSeconds) / 60.0

	return math.Round(minutes*ratePerMinute*10000) / 10000
}

// The transition helpers below mutate the struct and return the matching
// column updates, so every persisted write mirrors the in-memory state.

func (log *CallLog) StartRinging(now time.Time) map[string]any {
	log.Status = StatusRinging
	log.StartedAt = &now

	return map[string]any{
		"status":     StatusRinging,
		"started_at": now,
	}
}

func (log *CallLog) Answer(now time.Time) map[string]any {
	log.Status = StatusInProgress
	log.AnsweredAt = &now

	return map[string]any{
		"status":      StatusInProgress,
		"answered_at": now,
	}
}

func (log *CallLog) Complete(now time.Time, durationSeconds int, ratePerMinute float64) map[string]any {
	log.Status = StatusCompleted
	log.EndedAt = &now
	log.DurationSeconds = durationSeconds
	log.Cost = Cost(durationSeconds, ratePerMinute)

	return map[string]any{
		"status":           StatusCompleted,
		"ended_at":         now,
		"duration_seconds": log.DurationSeconds,
		"cost":             log.Cost,
	}
}

func (log *CallLog) Terminate(status string, now time.Time, errorMessage string) map[string]any {
	log.Status = status
	log.EndedAt = &now
	log.ErrorMessage = errorMessage

	return map[string]any{
		"status":        status,
		"ended_at":      now,
		"error_message": errorMessage,
	}
}

func FormatDuration(durationSeconds int) string {
	if durationSeconds <= 0 {
		return "0s"
	}

	hours := durationSeconds / 3600
	minutes := (durationSeconds % 3600) / 60
	seconds := durationSeconds % 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
