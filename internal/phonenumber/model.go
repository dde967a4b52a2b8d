package phonenumber

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	ErrInvalidNumber = errors.New("not a valid Indian phone number")
	ErrNotCallable   = errors.New("phone number is not callable")
	ErrNotFound      = errors.New("phone number not found")
	ErrLimitReached  = errors.New("phone number limit reached")
)

type PhoneNumber struct {
	ID              uint       `gorm:"column:id;primaryKey"            json:"id"`
	Number          string     `gorm:"column:number;uniqueIndex"       json:"number"`
	FormattedNumber string     `gorm:"column:formatted_number"         json:"formatted_number"`
	Status          string     `gorm:"column:status;default:pending"   json:"status"`
	Notes           string     `gorm:"column:notes"                    json:"notes,omitempty"`
	LastCalledAt    *time.Time `gorm:"column:last_called_at"           json:"last_called_at,omitempty"`
	CallAttempts    int        `gorm:"column:call_attempts;default:0"  json:"call_attempts"`
	Source          string     `gorm:"column:source;default:manual"    json:"source"`
	CreatedAt       time.Time  `gorm:"column:created_at"               json:"created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at"               json:"updated_at"`
}

func (PhoneNumber) TableName() string {
	return "phone_numbers"
}

const (
	StatusPending   = "pending"
	StatusQueued    = "queued"
	StatusCalling   = "calling"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

const (
	SourceManual = "manual"
	SourceUpload = "upload"
	SourcePaste  = "paste"
)

// CallableStatuses are the statuses a number may be dialed from.
func CallableStatuses() []string {
	return []string{StatusPending, StatusFailed}
}

func (phone *PhoneNumber) CanBeCalled() bool {
	return phone.Status == StatusPending || phone.Status == StatusFailed
}

var (
	mobilePattern   = regexp.MustCompile(`^[6-9]\d{9}$`)
	tollFreePattern = regexp.MustCompile(`^1800\d{6,7}$`)
	nonDigits       = regexp.MustCompile(`\D`)
)

// Normalize strips formatting and country prefixes down to the bare
// subscriber number, rejecting anything that is not an Indian mobile
// or toll-free number.
func Normalize(raw string) (string, error) {
	cleaned := nonDigits.ReplaceAllString(raw, "")

	if len(cleaned) == 12 && strings.HasPrefix(cleaned, "91") {
		cleaned = cleaned[2:]
	}

	if len(cleaned) == 11 {
		cleaned = strings.TrimPrefix(cleaned, "0")
	}

	if !mobilePattern.MatchString(cleaned) && !tollFreePattern.MatchString(cleaned) {
		return "", fmt.Errorf("%w: %q", ErrInvalidNumber, raw)
	}

	return cleaned, nil
}

// Format renders a normalized number for display:
// mobiles as "+91 XXXXX XXXXX", toll-free as "1800-XXX-XXXX".
func Format(number string) string {
	switch {
	case mobilePattern.MatchString(number):
		return fmt.Sprintf("+91 %s %s", number[:5], number[5:])
	case tollFreePattern.MatchString(number) && len(number) == 10:
		return fmt.Sprintf("%s-%s-%s", number[:4], number[4:7], number[7:])
	case tollFreePattern.MatchString(number):
		return fmt.Sprintf("%s-%s", number[:4], number[4:])
	default:
		return number
	}
}
