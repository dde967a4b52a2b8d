package command

import (
	"context"
	"testing"
	"time"

	"autodialer/internal/calllog"
	"autodialer/internal/dialer"
	"autodialer/internal/phonenumber"
	"autodialer/internal/settings"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	commands []*Command
}

func (store *memoryStore) Create(ctx context.Context, cmd *Command) error {
	store.commands = append(store.commands, cmd)

	return nil
}

type stubDispatcher struct {
	singleIDs []uint
	batches   int
	response  dialer.Dispatch
}

func (stub *stubDispatcher) DispatchSingle(ctx context.Context, id uint) dialer.Dispatch {
	stub.singleIDs = append(stub.singleIDs, id)

	return stub.response
}

func (stub *stubDispatcher) DispatchBatch(ctx context.Context) dialer.Dispatch {
	stub.batches++

	return stub.response
}

type recordedSetting struct {
	key   string
	value any
}

type stubSettingsWriter struct {
	writes []recordedSetting
}

func (stub *stubSettingsWriter) Set(ctx context.Context, key string, value any) error {
	stub.writes = append(stub.writes, recordedSetting{key: key, value: value})

	return nil
}

type commandFixture struct {
	service    *Service
	store      *memoryStore
	phones     *phonenumber.MemoryRepository
	calls      *calllog.MemoryRepository
	dispatcher *stubDispatcher
	settingsKV *stubSettingsWriter
}

func setupCommandService(t *testing.T) *commandFixture {
	t.Helper()

	fixture := &commandFixture{
		store:      &memoryStore{},
		phones:     phonenumber.NewMemoryRepository(),
		calls:      calllog.NewMemoryRepository(),
		dispatcher: &stubDispatcher{response: dialer.Dispatch{Accepted: true}},
		settingsKV: &stubSettingsWriter{},
	}

	fixture.service = NewService(
		fixture.store,
		fixture.phones,
		fixture.calls,
		fixture.dispatcher,
		fixture.settingsKV,
	)

	return fixture
}

func TestProcessMakeCall(t *testing.T) {
	fixture := setupCommandService(t)
	phone := fixture.phones.Add("9876543210")

	cmd, err := fixture.service.Process(context.Background(), "call +91 9876543210", TypeText)
	require.NoError(t, err)

	require.Equal(t, ActionMakeCall, cmd.ParsedAction)
	require.Equal(t, StatusProcessed, cmd.Status)
	require.Contains(t, cmd.ResponseText, "Initiated call to")
	require.Contains(t, cmd.ResponseText, phone.FormattedNumber)
	require.NotEmpty(t, cmd.SessionID)
	require.JSONEq(t, `{"phone_number":"9876543210"}`, string(cmd.ParsedParameters))

	require.Equal(t, []uint{phone.ID}, fixture.dispatcher.singleIDs)
	require.Len(t, fixture.store.commands, 1)
}

func TestProcessMakeCallUnknownNumber(t *testing.T) {
	fixture := setupCommandService(t)

	cmd, err := fixture.service.Process(context.Background(), "call 9876543210", TypeText)
	require.NoError(t, err)

	require.Equal(t, StatusProcessed, cmd.Status)
	require.Contains(t, cmd.ResponseText, "not found in the system")
	require.Empty(t, fixture.dispatcher.singleIDs)
}

func TestProcessMakeCallInvalidNumber(t *testing.T) {
	fixture := setupCommandService(t)

	cmd, err := fixture.service.Process(context.Background(), "call 1234567890", TypeText)
	require.NoError(t, err)

	require.Contains(t, cmd.ResponseText, "not a valid phone number")
	require.Empty(t, fixture.dispatcher.singleIDs)
}

func TestProcessStartCalling(t *testing.T) {
	fixture := setupCommandService(t)
	fixture.phones.Add("9876543210")
	fixture.phones.Add("9123456789")

	cmd, err := fixture.service.Process(context.Background(), "start calling", TypeVoice)
	require.NoError(t, err)

	require.Equal(t, ActionStartCalling, cmd.ParsedAction)
	require.Equal(t, TypeVoice, cmd.CommandType)
	require.Contains(t, cmd.ResponseText, "Started calling 2 phone numbers")
	require.Equal(t, 1, fixture.dispatcher.batches)
}

func TestProcessStartCallingWithoutPendingNumbers(t *testing.T) {
	fixture := setupCommandService(t)

	cmd, err := fixture.service.Process(context.Background(), "start calling", TypeText)
	require.NoError(t, err)

	require.Contains(t, cmd.ResponseText, "No pending phone numbers")
	require.Zero(t, fixture.dispatcher.batches)
}

func TestProcessStartCallingDispatchRejected(t *testing.T) {
	fixture := setupCommandService(t)
	fixture.phones.Add("9876543210")
	fixture.dispatcher.response = dialer.Dispatch{Reason: "dialer is not accepting jobs"}

	cmd, err := fixture.service.Process(context.Background(), "start calling", TypeText)
	require.NoError(t, err)

	require.Equal(t, StatusFailed, cmd.Status)
	require.Equal(t, "dialer is not accepting jobs", cmd.ErrorMessage)
	require.Contains(t, cmd.ResponseText, "Sorry, I encountered an error")
	require.Len(t, fixture.store.commands, 1)
}

func TestProcessStopCalling(t *testing.T) {
	fixture := setupCommandService(t)

	cmd, err := fixture.service.Process(context.Background(), "stop calling", TypeText)
	require.NoError(t, err)

	require.Contains(t, cmd.ResponseText, "Autodialer stopped")
	require.Equal(t, []recordedSetting{
		{key: settings.KeySimulationMode, value: false},
	}, fixture.settingsKV.writes)
}

func TestProcessShowStatistics(t *testing.T) {
	fixture := setupCommandService(t)
	fixture.phones.Add("9876543210")

	now := time.Now().UTC()
	for i, status := range []string{
		calllog.StatusCompleted,
		calllog.StatusCompleted,
		calllog.StatusFailed,
		calllog.StatusBusy,
	} {
		require.NoError(t, fixture.calls.Create(context.Background(), &calllog.CallLog{
			CallSID:   calllog.NewCallSID(),
			Status:    status,
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		}))
	}

	cmd, err := fixture.service.Process(context.Background(), "statistics", TypeText)
	require.NoError(t, err)

	require.Contains(t, cmd.ResponseText, "1 phone numbers")
	require.Contains(t, cmd.ResponseText, "4 calls made")
	require.Contains(t, cmd.ResponseText, "50.0% success rate")
}

func TestProcessHelpAndUnknown(t *testing.T) {
	fixture := setupCommandService(t)

	cmd, err := fixture.service.Process(context.Background(), "help", TypeText)
	require.NoError(t, err)
	require.Contains(t, cmd.ResponseText, "Available commands")

	cmd, err = fixture.service.Process(context.Background(), "make me a sandwich", TypeText)
	require.NoError(t, err)
	require.Equal(t, ActionUnknown, cmd.ParsedAction)
	require.Contains(t, cmd.ResponseText, "didn't understand")

	require.Len(t, fixture.store.commands, 2)
}
