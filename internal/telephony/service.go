package telephony

import (
	"context"
	"errors"
	"fmt"
	"time"

	"autodialer/internal/calllog"
	"autodialer/internal/logging"
	"autodialer/internal/phonenumber"
	"go.uber.org/zap"
)

// Twilio-shaped simulator client. It reads and writes through the call
// log store and never talks to a real carrier.

var ErrCallNotFound = errors.New("call not found")

// CallResponse mirrors the shape of a Twilio REST call resource.
type CallResponse struct {
	SID        string  `json:"sid"`
	AccountSID string  `json:"account_sid"`
	To         string  `json:"to"`
	From       string  `json:"from"`
	Status     string  `json:"status"`
	Direction  string  `json:"direction"`
	StartTime  string  `json:"start_time,omitempty"`
	EndTime    string  `json:"end_time,omitempty"`
	Duration   string  `json:"duration"`
	Price      float64 `json:"price"`
	PriceUnit  string  `json:"price_unit"`
	AnsweredBy string  `json:"answered_by,omitempty"`
	URI        string  `json:"uri"`
}

type CallStore interface {
	GetBySID(ctx context.Context, callSID string) (*calllog.CallLog, error)
	ListRecent(ctx context.Context, limit int) ([]calllog.CallLog, error)
	Update(ctx context.Context, log *calllog.CallLog, updates map[string]any) error
}

type PhoneRegistry interface {
	UpdateStatus(ctx context.Context, id uint, status string) error
}

type Service struct {
	AccountSID    string
	FromNumber    string
	RatePerMinute float64
	Calls         CallStore
	Phones        PhoneRegistry
}

func NewService(accountSID, fromNumber string, ratePerMinute float64, calls CallStore, phones PhoneRegistry) *Service {
	return &Service{
		AccountSID:    accountSID,
		FromNumber:    fromNumber,
		RatePerMinute: ratePerMinute,
		Calls:         calls,
		Phones:        phones,
	}
}

func (service *Service) GetCall(ctx context.Context, callSID string) (*CallResponse, error) {
	log, err := service.Calls.GetBySID(ctx, callSID)
	if errors.Is(err, calllog.ErrNotFound) {
		return nil, ErrCallNotFound
	}

	if err != nil {
		return nil, err
	}

	return service.toResponse(log), nil
}

func (service *Service) ListCalls(ctx context.Context, limit int) ([]CallResponse, error) {
	if limit <= 0 {
		limit = 20
	}

	logs, err := service.Calls.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}

	responses := make([]CallResponse, 0, len(logs))
	for i := range logs {
		responses = append(responses, *service.toResponse(&logs[i]))
	}

	return responses, nil
}

// HangupCall forces an active call into a terminal cancelled status, the
// way a REST client would POST Status=canceled.
func (service *Service) HangupCall(ctx context.Context, callSID string) (*CallResponse, error) {
	log, err := service.Calls.GetBySID(ctx, callSID)
	if errors.Is(err, calllog.ErrNotFound) {
		return nil, ErrCallNotFound
	}

	if err != nil {
		return nil, err
	}

	if log.Active() {
		updates := log.Terminate(calllog.StatusCancelled, time.Now().UTC(), "Call cancelled via API")

		err = service.Calls.Update(ctx, log, updates)
		if err != nil {
			return nil, err
		}

		// Cancelled is a failure outcome, so the owning number follows
		// the call into failed and stays eligible for a retry.
		err = service.Phones.UpdateStatus(ctx, log.PhoneNumberID, phonenumber.StatusFailed)
		if err != nil {
			return nil, err
		}

		logging.Logger.Info("call hung up via API",
			zap.String("call_sid", callSID),
			zap.Uint("phone_number_id", log.PhoneNumberID),
		)
	}

	return service.toResponse(log), nil
}

// EstimateCallCost exposes the simulated pricing model.
func (service *Service) EstimateCallCost(durationSeconds int) float64 {
	return calllog.Cost(durationSeconds, service.RatePerMinute)
}

func (service *Service) toResponse(log *calllog.CallLog) *CallResponse {
	response := &CallResponse{
		SID:        log.CallSID,
		AccountSID: service.AccountSID,
		To:         log.ToNumber,
		From:       log.FromNumber,
		Status:     MapStatus(log.Status),
		Direction:  log.Direction,
		Duration:   fmt.Sprintf("%d", log.DurationSeconds),
		Price:      log.Cost,
		PriceUnit:  "USD",
		URI:        fmt.Sprintf("/2010-04-01/Accounts/%s/Calls/%s.json", service.AccountSID, log.CallSID),
	}

	if log.StartedAt != nil {
		response.StartTime = log.StartedAt.UTC().Format(time.RFC3339)
	}

	if log.EndedAt != nil {
		response.EndTime = log.EndedAt.UTC().Format(time.RFC3339)
	}

	if log.Successful() {
		response.AnsweredBy = "human"
	}

	return response
}

// MapStatus translates internal statuses to their Twilio spellings;
// only "cancelled" differs.
func MapStatus(status string) string {
	if status == calllog.StatusCancelled {
		return "canceled"
	}

	return status
}
