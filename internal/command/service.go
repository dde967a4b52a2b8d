package command

import (
	"context"
	"errors"
	"fmt"

	"autodialer/internal/calllog"
	"autodialer/internal/dialer"
	"autodialer/internal/logging"
	"autodialer/internal/phonenumber"
	"autodialer/internal/settings"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Dispatcher interface {
	DispatchSingle(ctx context.Context, id uint) dialer.Dispatch
	DispatchBatch(ctx context.Context) dialer.Dispatch
}

type PhoneDirectory interface {
	GetByNumber(ctx context.Context, number string) (*phonenumber.PhoneNumber, error)
	CountByStatus(ctx context.Context, status string) (int64, error)
}

type CallJournal interface {
	CountByStatuses(ctx context.Context, statuses []string) (int64, error)
	CountToday(ctx context.Context, statuses []string) (int64, error)
}

type SettingsWriter interface {
	Set(ctx context.Context, key string, value any) error
}

type Store interface {
	Create(ctx context.Context, cmd *Command) error
}

type Service struct {
	Store      Store
	Phones     PhoneDirectory
	Calls      CallJournal
	Dialer     Dispatcher
	SettingsKV SettingsWriter
}

func NewService(
	store Store,
	phones PhoneDirectory,
	calls CallJournal,
	dispatcher Dispatcher,
	settingsKV SettingsWriter,
) *Service {
	return &Service{
		Store:      store,
		Phones:     phones,
		Calls:      calls,
		Dialer:     dispatcher,
		SettingsKV: settingsKV,
	}
}

// Process parses one instruction, executes it, and records the exchange.
func (service *Service) Process(ctx context.Context, inputText, commandType string) (*Command, error) {
	action, parameters := Parse(inputText)

	rawParameters, err := json.Marshal(parameters)
	if err != nil {
		return nil, err
	}

	cmd := &Command{
		InputText:        inputText,
		CommandType:      commandType,
		ParsedAction:     action,
		ParsedParameters: datatypes.JSON(rawParameters),
		SessionID:        uuid.NewString(),
		Status:           StatusProcessed,
	}

	response, err := service.execute(ctx, action, parameters)
	if err != nil {
		cmd.Status = StatusFailed
		cmd.ErrorMessage = err.Error()
		cmd.ResponseText = fmt.Sprintf("Sorry, I encountered an error: %s", err.Error())
	} else {
		cmd.ResponseText = response
	}

	storeErr := service.Store.Create(ctx, cmd)
	if storeErr != nil {
		logging.Logger.Error("failed to persist command",
			zap.String("action", action),
			zap.String("error", storeErr.Error()),
		)

		return nil, storeErr
	}

	return cmd, nil
}

func (service *Service) execute(
	ctx context.Context,
	action string,
	parameters map[string]string,
) (string, error) {
	switch action {
	case ActionStartCalling:
		return service.startCalling(ctx)
	case ActionMakeCall:
		return service.makeCall(ctx, parameters["phone_number"])
	case ActionShowLogs:
		return service.showLogs(ctx)
	case ActionShowTodayLogs:
		return service.showTodayLogs(ctx)
	case ActionShowStatistics:
		return service.showStatistics(ctx)
	case ActionStopCalling:
		return service.stopCalling(ctx)
	case ActionClearLogs:
		return service.clearLogs(ctx)
	case ActionHelp:
		return helpText, nil
	default:
		return "I didn't understand that command. Try saying 'help' to see available commands.", nil
	}
}

func (service *Service) startCalling(ctx context.Context) (string, error) {
	pendingCount, err := service.Phones.CountByStatus(ctx, phonenumber.StatusPending)
	if err != nil {
		return "", err
	}

	if pendingCount == 0 {
		return "No pending phone numbers found. Please upload some numbers first.", nil
	}

	dispatch := service.Dialer.DispatchBatch(ctx)
	if !dispatch.Accepted {
		return "", errors.New(dispatch.Reason)
	}

	return fmt.Sprintf(
		"Started calling %d phone numbers. You can monitor progress in the dashboard.",
		pendingCount,
	), nil
}

func (service *Service) makeCall(ctx context.Context, number string) (string, error) {
	if number == "" {
		return "Please provide a valid phone number to call.", nil
	}

	normalized, err := phonenumber.Normalize(number)
	if err != nil {
		return fmt.Sprintf("%s is not a valid phone number.", number), nil
	}

	phone, err := service.Phones.GetByNumber(ctx, normalized)
	if errors.Is(err, phonenumber.ErrNotFound) {
		return fmt.Sprintf(
			"Phone number %s not found in the system. Please add it first.", normalized,
		), nil
	}

	if err != nil {
		return "", err
	}

	dispatch := service.Dialer.DispatchSingle(ctx, phone.ID)
	if !dispatch.Accepted {
		return dispatch.Reason, nil
	}

	return fmt.Sprintf(
		"Initiated call to %s. Check the call logs for updates.", phone.FormattedNumber,
	), nil
}

func (service *Service) showLogs(ctx context.Context) (string, error) {
	total, err := service.Calls.CountByStatuses(ctx, nil)
	if err != nil {
		return "", err
	}

	today, err := service.Calls.CountToday(ctx, nil)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(
		"Total calls: %d, Today's calls: %d. Visit the call logs page for detailed information.",
		total, today,
	), nil
}

func (service *Service) showTodayLogs(ctx context.Context) (string, error) {
	total, err := service.Calls.CountToday(ctx, nil)
	if err != nil {
		return "", err
	}

	completed, err := service.Calls.CountToday(ctx, []string{calllog.StatusCompleted})
	if err != nil {
		return "", err
	}

	failed, err := service.Calls.CountToday(ctx, calllog.FailureStatuses())
	if err != nil {
		return "", err
	}

	inProgress, err := service.Calls.CountToday(ctx, calllog.ActiveStatuses())
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(
		"Today's calls: %d total, %d completed, %d failed, %d in progress.",
		total, completed, failed, inProgress,
	), nil
}

func (service *Service) showStatistics(ctx context.Context) (string, error) {
	totalNumbers, err := service.Phones.CountByStatus(ctx, "")
	if err != nil {
		return "", err
	}

	totalCalls, err := service.Calls.CountByStatuses(ctx, nil)
	if err != nil {
		return "", err
	}

	completedCalls, err := service.Calls.CountByStatuses(ctx, []string{calllog.StatusCompleted})
	if err != nil {
		return "", err
	}

	successRate := 0.0
	if totalCalls > 0 {
		successRate = float64(completedCalls) / float64(totalCalls) * 100
	}

	return fmt.Sprintf(
		"Statistics: %d phone numbers, %d calls made, %.1f%% success rate.",
		totalNumbers, totalCalls, successRate,
	), nil
}

// stopCalling flips simulation mode off; a running sweep observes the
// change at its next target boundary.
func (service *Service) stopCalling(ctx context.Context) (string, error) {
	err := service.SettingsKV.Set(ctx, settings.KeySimulationMode, false)
	if err != nil {
		return "", err
	}

	return "Autodialer stopped. Any calls in progress will complete, but no new calls will be initiated.", nil
}

func (service *Service) clearLogs(ctx context.Context) (string, error) {
	total, err := service.Calls.CountByStatuses(ctx, nil)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(
		"This action requires administrative privileges. Found %d call logs that could be cleared.",
		total,
	), nil
}

const helpText = `Available commands:
- "Start calling" - Begin calling all pending numbers
- "Call [phone number]" - Make a call to specific number
- "Show logs" or "Show today's logs" - Display call history
- "Statistics" - Show system statistics
- "Stop calling" - Halt the autodialer
- "Help" - Show this help message`
