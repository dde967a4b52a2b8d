package dialer

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"autodialer/internal/calllog"
	"autodialer/internal/phonenumber"
	"autodialer/internal/settings"
	"autodialer/internal/simulator"
	"github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/require"
)

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

type stubSettings struct {
	boolChecks atomic.Int64
	stopAfter  int64
}

func (stub *stubSettings) Bool(ctx context.Context, key string, fallback bool) bool {
	if key != settings.KeySimulationMode {
		return fallback
	}

	checks := stub.boolChecks.Add(1)

	return stub.stopAfter == 0 || checks <= stub.stopAfter
}

func (stub *stubSettings) Int(ctx context.Context, key string, fallback int) int {
	return 0
}

type dialerFixture struct {
	dialer *Dialer
	phones *phonenumber.MemoryRepository
	calls  *calllog.MemoryRepository
	pool   *ants.Pool
}

func setupDialer(t *testing.T, settingsStore Settings, rolls ...int) *dialerFixture {
	t.Helper()

	pool, err := ants.NewPool(2)
	require.NoError(t, err)
	t.Cleanup(pool.Release)

	phones := phonenumber.NewMemoryRepository()
	calls := calllog.NewMemoryRepository()
	cfg := simulator.Config{FromNumber: "+918001234567", RatePerMinute: 0.02}
	roller := &scriptedRoller{rolls: rolls}

	single := simulator.New(phones, calls, cfg,
		simulator.InstantProfile(simulator.SingleProfile()),
		simulator.WithRoller(roller),
	)
	batch := simulator.New(phones, calls, cfg,
		simulator.InstantProfile(simulator.BatchProfile()),
		simulator.WithRoller(roller),
	)

	return &dialerFixture{
		dialer: New(pool, phones, settingsStore, single, batch),
		phones: phones,
		calls:  calls,
		pool:   pool,
	}
}

func (fixture *dialerFixture) phoneStatus(t *testing.T, id uint) string {
	t.Helper()

	phone, err := fixture.phones.GetByID(context.Background(), id)
	require.NoError(t, err)

	return phone.Status
}

func TestDispatchSingleAccepted(t *testing.T) {
	fixture := setupDialer(t, &stubSettings{}, 0, 0)
	phone := fixture.phones.Add("9876543210")

	dispatch := fixture.dialer.DispatchSingle(context.Background(), phone.ID)
	require.True(t, dispatch.Accepted)
	require.Empty(t, dispatch.Reason)

	require.Eventually(t, func() bool {
		return fixture.phoneStatus(t, phone.ID) == phonenumber.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDispatchSingleRejectsNonCallable(t *testing.T) {
	fixture := setupDialer(t, &stubSettings{})
	phone := fixture.phones.Add("9876543210")
	require.NoError(t, fixture.phones.UpdateStatus(
		context.Background(), phone.ID, phonenumber.StatusCompleted,
	))

	dispatch := fixture.dialer.DispatchSingle(context.Background(), phone.ID)
	require.False(t, dispatch.Accepted)
	require.Contains(t, dispatch.Reason, "cannot be called")
	require.Empty(t, fixture.calls.Logs)
}

func TestDispatchSingleUnknownNumber(t *testing.T) {
	fixture := setupDialer(t, &stubSettings{})

	dispatch := fixture.dialer.DispatchSingle(context.Background(), 42)
	require.False(t, dispatch.Accepted)
	require.Contains(t, dispatch.Reason, "not found")
}

func TestDispatchBatchDialsInCreationOrder(t *testing.T) {
	fixture := setupDialer(t, &stubSettings{}, 0, 0, 0, 0)
	first := fixture.phones.Add("9876543210")
	second := fixture.phones.Add("9123456789")

	dispatch := fixture.dialer.DispatchBatch(context.Background())
	require.True(t, dispatch.Accepted)

	require.Eventually(t, func() bool {
		return fixture.phoneStatus(t, first.ID) == phonenumber.StatusCompleted &&
			fixture.phoneStatus(t, second.ID) == phonenumber.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	require.Len(t, fixture.calls.Logs, 2)
	require.Equal(t, first.Number, fixture.calls.Logs[0].ToNumber)
	require.Equal(t, second.Number, fixture.calls.Logs[1].ToNumber)
}

func TestSweepStopsWhenSimulationModeDisabled(t *testing.T) {
	// The continuation predicate passes once, so only the first target
	// is dialed and the second stays pending.
	fixture := setupDialer(t, &stubSettings{stopAfter: 1}, 0, 0)
	first := fixture.phones.Add("9876543210")
	second := fixture.phones.Add("9123456789")

	dispatch := fixture.dialer.DispatchBatch(context.Background())
	require.True(t, dispatch.Accepted)

	require.Eventually(t, func() bool {
		return fixture.phoneStatus(t, first.ID) == phonenumber.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	require.Equal(t, phonenumber.StatusPending, fixture.phoneStatus(t, second.ID))
	require.Len(t, fixture.calls.Logs, 1)
}

type failingCallStore struct{}

func (failingCallStore) Create(ctx context.Context, log *calllog.CallLog) error {
	return errors.New("storage offline")
}

func (failingCallStore) FindQueuedByPhoneNumber(ctx context.Context, phoneNumberID uint) (*calllog.CallLog, error) {
	return nil, calllog.ErrNotFound
}

func (failingCallStore) Update(ctx context.Context, log *calllog.CallLog, updates map[string]any) error {
	return errors.New("storage offline")
}

func TestDialMarksNumberFailedWhenSimulationErrors(t *testing.T) {
	pool, err := ants.NewPool(1)
	require.NoError(t, err)
	t.Cleanup(pool.Release)

	phones := phonenumber.NewMemoryRepository()
	broken := simulator.New(phones, failingCallStore{}, simulator.Config{},
		simulator.InstantProfile(simulator.SingleProfile()),
	)

	dialerService := New(pool, phones, &stubSettings{}, broken, broken)
	phone := phones.Add("9876543210")

	dispatch := dialerService.DispatchSingle(context.Background(), phone.ID)
	require.True(t, dispatch.Accepted)

	require.Eventually(t, func() bool {
		stored, getErr := phones.GetByID(context.Background(), phone.ID)
		require.NoError(t, getErr)

		return stored.Status == phonenumber.StatusFailed
	}, 2*time.Second, 10*time.Millisecond)
}

// cancelAwareRegistry fails like a gorm-backed store does once the
// context carried into the query has been canceled.
type cancelAwareRegistry struct {
	*phonenumber.MemoryRepository
}

func (registry *cancelAwareRegistry) GetByID(ctx context.Context, id uint) (*phonenumber.PhoneNumber, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return registry.MemoryRepository.GetByID(ctx, id)
}

func (registry *cancelAwareRegistry) FindPendingOrdered(ctx context.Context) ([]phonenumber.PhoneNumber, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return registry.MemoryRepository.FindPendingOrdered(ctx)
}

func (registry *cancelAwareRegistry) MarkCalling(ctx context.Context, phone *phonenumber.PhoneNumber) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return registry.MemoryRepository.MarkCalling(ctx, phone)
}

func (registry *cancelAwareRegistry) UpdateStatus(ctx context.Context, id uint, status string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return registry.MemoryRepository.UpdateStatus(ctx, id, status)
}

type cancelAwareCallStore struct {
	*calllog.MemoryRepository
}

func (store *cancelAwareCallStore) Create(ctx context.Context, log *calllog.CallLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return store.MemoryRepository.Create(ctx, log)
}

func (store *cancelAwareCallStore) FindQueuedByPhoneNumber(ctx context.Context, phoneNumberID uint) (*calllog.CallLog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return store.MemoryRepository.FindQueuedByPhoneNumber(ctx, phoneNumberID)
}

func (store *cancelAwareCallStore) Update(ctx context.Context, log *calllog.CallLog, updates map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return store.MemoryRepository.Update(ctx, log, updates)
}

func TestDialOutlivesDispatchingContext(t *testing.T) {
	pool, err := ants.NewPool(1)
	require.NoError(t, err)
	t.Cleanup(pool.Release)

	phones := &cancelAwareRegistry{MemoryRepository: phonenumber.NewMemoryRepository()}
	calls := &cancelAwareCallStore{MemoryRepository: calllog.NewMemoryRepository()}

	// Keep a short ring delay so the simulator is still mid-call when
	// the dispatching context gets canceled below.
	profile := simulator.InstantProfile(simulator.SingleProfile())
	profile.RingDelay = 50 * time.Millisecond

	single := simulator.New(phones, calls,
		simulator.Config{FromNumber: "+918001234567", RatePerMinute: 0.02},
		profile,
		simulator.WithRoller(&scriptedRoller{rolls: []int{0, 0}}),
	)

	dialerService := New(pool, phones, &stubSettings{}, single, single)
	phone := phones.Add("9876543210")

	ctx, cancel := context.WithCancel(context.Background())
	dispatch := dialerService.DispatchSingle(ctx, phone.ID)
	require.True(t, dispatch.Accepted)

	// An HTTP handler's request context is canceled as soon as the 202
	// goes out. The in-flight call must still run to completion.
	cancel()

	require.Eventually(t, func() bool {
		stored, getErr := phones.GetByID(context.Background(), phone.ID)
		require.NoError(t, getErr)

		return stored.Status == phonenumber.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	require.Len(t, calls.Logs, 1)
	require.Equal(t, calllog.StatusCompleted, calls.Logs[0].Status)
	require.Equal(t, 1, phone.CallAttempts)
}
