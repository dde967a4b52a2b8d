package simulator

import (
	"context"
	"testing"

	"autodialer/internal/calllog"
	"autodialer/internal/phonenumber"
	"github.com/stretchr/testify/require"
)

// scriptedRoller replays a fixed sequence of rolls.
type scriptedRoller struct {
	rolls []int
}

func (roller *scriptedRoller) Intn(n int) int {
	if len(roller.rolls) == 0 {
		return 0
	}

	roll := roller.rolls[0]
	roller.rolls = roller.rolls[1:]

	return roll % n
}

func setupSimulator(t *testing.T, profile Profile, rolls ...int) (
	*Simulator, *phonenumber.MemoryRepository, *calllog.MemoryRepository,
) {
	t.Helper()

	phones := phonenumber.NewMemoryRepository()
	calls := calllog.NewMemoryRepository()

	sim := New(
		phones,
		calls,
		Config{FromNumber: "+918001234567", RatePerMinute: 0.02},
		InstantProfile(profile),
		WithRoller(&scriptedRoller{rolls: rolls}),
	)

	return sim, phones, calls
}

func TestSimulateAnsweredCall(t *testing.T) {
	// Roll 0 draws answered, roll 7 lands on a 12 second talk.
	sim, phones, calls := setupSimulator(t, BatchProfile(), 0, 7)
	phone := phones.Add("9876543210")

	log, err := sim.Simulate(context.Background(), phone)
	require.NoError(t, err)

	require.Equal(t, calllog.StatusCompleted, log.Status)
	require.Equal(t, 12, log.DurationSeconds)
	require.InDelta(t, 0.0040, log.Cost, 1e-9)
	require.Equal(t, "+918001234567", log.FromNumber)
	require.Equal(t, "9876543210", log.ToNumber)
	require.True(t, log.Simulation)

	require.NotNil(t, log.StartedAt)
	require.NotNil(t, log.AnsweredAt)
	require.NotNil(t, log.EndedAt)
	require.False(t, log.AnsweredAt.Before(*log.StartedAt))
	require.False(t, log.EndedAt.Before(*log.AnsweredAt))

	require.Equal(t, phonenumber.StatusCompleted, phone.Status)
	require.Equal(t, 1, phone.CallAttempts)

	stored, err := phones.GetByID(context.Background(), phone.ID)
	require.NoError(t, err)
	require.Equal(t, phonenumber.StatusCompleted, stored.Status)

	persisted, err := calls.GetBySID(context.Background(), log.CallSID)
	require.NoError(t, err)
	require.Equal(t, calllog.StatusCompleted, persisted.Status)
	require.InDelta(t, 0.0040, persisted.Cost, 1e-9)
}

func TestSimulateBusyCall(t *testing.T) {
	// Roll 60 is the first busy slot in the batch distribution.
	sim, phones, _ := setupSimulator(t, BatchProfile(), 60)
	phone := phones.Add("9876543210")

	log, err := sim.Simulate(context.Background(), phone)
	require.NoError(t, err)

	require.Equal(t, calllog.StatusBusy, log.Status)
	require.Equal(t, "Line busy", log.ErrorMessage)
	require.Zero(t, log.DurationSeconds)
	require.Zero(t, log.Cost)
	require.Nil(t, log.AnsweredAt)

	require.Equal(t, phonenumber.StatusFailed, phone.Status)
	require.Equal(t, 1, phone.CallAttempts)
}

func TestSimulateNoAnswerCall(t *testing.T) {
	sim, phones, _ := setupSimulator(t, BatchProfile(), 75)
	phone := phones.Add("9876543210")

	log, err := sim.Simulate(context.Background(), phone)
	require.NoError(t, err)

	require.Equal(t, calllog.StatusNoAnswer, log.Status)
	require.Equal(t, "No answer after 30 seconds", log.ErrorMessage)
	require.Equal(t, phonenumber.StatusFailed, phone.Status)
}

func TestSimulateFailedCallPicksCarrierError(t *testing.T) {
	// Roll 90 draws failed, roll 2 picks the third carrier error.
	sim, phones, _ := setupSimulator(t, BatchProfile(), 90, 2)
	phone := phones.Add("9876543210")

	log, err := sim.Simulate(context.Background(), phone)
	require.NoError(t, err)

	require.Equal(t, calllog.StatusFailed, log.Status)
	require.Equal(t, "Service temporarily unavailable", log.ErrorMessage)
	require.Equal(t, phonenumber.StatusFailed, phone.Status)
}

func TestSimulateCancelledCall(t *testing.T) {
	// Roll 97 sits in the single profile's cancelled band.
	sim, phones, _ := setupSimulator(t, SingleProfile(), 97)
	phone := phones.Add("9876543210")

	log, err := sim.Simulate(context.Background(), phone)
	require.NoError(t, err)

	require.Equal(t, calllog.StatusCancelled, log.Status)
	require.Equal(t, "Call cancelled by system", log.ErrorMessage)
	require.Equal(t, phonenumber.StatusFailed, phone.Status)
}

func TestSimulateRejectsNonCallableNumber(t *testing.T) {
	sim, phones, calls := setupSimulator(t, BatchProfile(), 0, 0)
	phone := phones.Add("9876543210")

	for _, status := range []string{
		phonenumber.StatusQueued,
		phonenumber.StatusCalling,
		phonenumber.StatusCompleted,
	} {
		phone.Status = status

		_, err := sim.Simulate(context.Background(), phone)
		require.ErrorIs(t, err, phonenumber.ErrNotCallable)
	}

	require.Empty(t, calls.Logs)
}

func TestSimulateRetryAfterFailure(t *testing.T) {
	sim, phones, _ := setupSimulator(t, BatchProfile(), 90, 0, 0, 7)
	phone := phones.Add("9876543210")

	_, err := sim.Simulate(context.Background(), phone)
	require.NoError(t, err)
	require.Equal(t, phonenumber.StatusFailed, phone.Status)

	// A failed number is callable again; the retry increments attempts.
	log, err := sim.Simulate(context.Background(), phone)
	require.NoError(t, err)

	require.Equal(t, calllog.StatusCompleted, log.Status)
	require.Equal(t, phonenumber.StatusCompleted, phone.Status)
	require.Equal(t, 2, phone.CallAttempts)
}

func TestSimulateReusesQueuedRecord(t *testing.T) {
	sim, phones, calls := setupSimulator(t, BatchProfile(), 0, 7)
	phone := phones.Add("9876543210")

	queued := &calllog.CallLog{
		PhoneNumberID: phone.ID,
		CallSID:       calllog.NewCallSID(),
		Status:        calllog.StatusQueued,
		ToNumber:      phone.Number,
	}
	require.NoError(t, calls.Create(context.Background(), queued))

	log, err := sim.Simulate(context.Background(), phone)
	require.NoError(t, err)

	require.Equal(t, queued.CallSID, log.CallSID)
	require.Len(t, calls.Logs, 1)
}

func TestMetadataRecordsProfileAndAttempt(t *testing.T) {
	sim, phones, calls := setupSimulator(t, BatchProfile(), 0, 0)
	phone := phones.Add("9876543210")

	log, err := sim.Simulate(context.Background(), phone)
	require.NoError(t, err)

	persisted, err := calls.GetBySID(context.Background(), log.CallSID)
	require.NoError(t, err)
	require.JSONEq(t, `{"initiated_by":"batch","attempt":1}`, string(persisted.Metadata))
}
