package simulator

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"autodialer/internal/calllog"
	"autodialer/internal/logging"
	"autodialer/internal/metrics"
	"autodialer/internal/phonenumber"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Roller is the source of randomness for outcome draws and talk
// durations; tests inject a deterministic one.
type Roller interface {
	Intn(n int) int
}

type systemRoller struct{}

func (systemRoller) Intn(n int) int {
	return rand.Intn(n)
}

// PhoneRegistry is the slice of the phone number store the simulator
// needs to acquire targets and sync their status.
type PhoneRegistry interface {
	MarkCalling(ctx context.Context, phone *phonenumber.PhoneNumber) error
	UpdateStatus(ctx context.Context, id uint, status string) error
}

// CallStore persists call records. Every transition is written through it
// immediately so dashboards observe live progress.
type CallStore interface {
	Create(ctx context.Context, log *calllog.CallLog) error
	FindQueuedByPhoneNumber(ctx context.Context, phoneNumberID uint) (*calllog.CallLog, error)
	Update(ctx context.Context, log *calllog.CallLog, updates map[string]any) error
}

type Config struct {
	FromNumber    string
	RatePerMinute float64
	CarrierErrors []string
}

// DefaultCarrierErrors are the error strings a failed outcome picks from.
func DefaultCarrierErrors() []string {
	return []string{
		"Network unreachable",
		"Invalid number format",
		"Service temporarily unavailable",
		"Call blocked by carrier",
		"Insufficient balance",
	}
}

type Simulator struct {
	phones  PhoneRegistry
	calls   CallStore
	cfg     Config
	profile Profile
	roller  Roller
}

type Option func(*Simulator)

// WithRoller replaces the default random source.
func WithRoller(roller Roller) Option {
	return func(sim *Simulator) {
		sim.roller = roller
	}
}

func New(phones PhoneRegistry, calls CallStore, cfg Config, profile Profile, opts ...Option) *Simulator {
	if len(cfg.CarrierErrors) == 0 {
		cfg.CarrierErrors = DefaultCarrierErrors()
	}

	sim := &Simulator{
		phones:  phones,
		calls:   calls,
		cfg:     cfg,
		profile: profile,
		roller:  systemRoller{},
	}

	for _, opt := range opts {
		opt(sim)
	}

	return sim
}

// Simulate drives one call for the given number from queued to a terminal
// status. The owning number's status is synced as part of every terminal
// record write. Once the ring has started the call always runs to a
// terminal status; cancellation is a dispatcher concern between targets.
func (sim *Simulator) Simulate(ctx context.Context, phone *phonenumber.PhoneNumber) (*calllog.CallLog, error) {
	if !phone.CanBeCalled() {
		return nil, fmt.Errorf("%w: status is %s", phonenumber.ErrNotCallable, phone.Status)
	}

	err := sim.phones.MarkCalling(ctx, phone)
	if err != nil {
		return nil, err
	}

	log, err := sim.acquireCallLog(ctx, phone)
	if err != nil {
		return nil, err
	}

	sim.wait(ctx, sim.profile.RingDelay)

	err = sim.calls.Update(ctx, log, log.StartRinging(time.Now().UTC()))
	if err != nil {
		return log, err
	}

	outcome := sim.profile.Draw(sim.roller)

	err = sim.resolve(ctx, phone, log, outcome)
	if err != nil {
		return log, err
	}

	metrics.CallOutcomes.WithLabelValues(string(outcome)).Inc()

	logging.Logger.Info("call resolved",
		zap.String("call_sid", log.CallSID),
		zap.String("to_number", log.ToNumber),
		zap.String("profile", sim.profile.Name),
		zap.String("status", log.Status),
	)

	return log, nil
}

// acquireCallLog reuses an already-queued record for the number if one
// exists, otherwise creates a fresh one.
func (sim *Simulator) acquireCallLog(
	ctx context.Context,
	phone *phonenumber.PhoneNumber,
) (*calllog.CallLog, error) {
	log, err := sim.calls.FindQueuedByPhoneNumber(ctx, phone.ID)
	if err == nil {
		return log, nil
	}

	metadata, err := json.Marshal(map[string]any{
		"initiated_by": sim.profile.Name,
		"attempt":      phone.CallAttempts,
	})
	if err != nil {
		return nil, err
	}

	log = &calllog.CallLog{
		PhoneNumberID: phone.ID,
		CallSID:       calllog.NewCallSID(),
		Status:        calllog.StatusQueued,
		Direction:     calllog.DirectionOutboundAPI,
		FromNumber:    sim.cfg.FromNumber,
		ToNumber:      phone.Number,
		Simulation:    true,
		Metadata:      datatypes.JSON(metadata),
	}

	err = sim.calls.Create(ctx, log)
	if err != nil {
		return nil, err
	}

	return log, nil
}

func (sim *Simulator) resolve(
	ctx context.Context,
	phone *phonenumber.PhoneNumber,
	log *calllog.CallLog,
	outcome Outcome,
) error {
	switch outcome {
	case OutcomeAnswered:
		return sim.resolveAnswered(ctx, phone, log)
	case OutcomeBusy:
		sim.wait(ctx, sim.profile.ResolveDelay)

		return sim.finalize(ctx, phone, log, log.Terminate(
			calllog.StatusBusy, time.Now().UTC(), sim.profile.BusyMessage,
		))
	case OutcomeNoAnswer:
		sim.wait(ctx, sim.profile.ResolveDelay)

		return sim.finalize(ctx, phone, log, log.Terminate(
			calllog.StatusNoAnswer, time.Now().UTC(), sim.profile.NoAnswerMessage,
		))
	case OutcomeCancelled:
		sim.wait(ctx, sim.profile.ResolveDelay)

		return sim.finalize(ctx, phone, log, log.Terminate(
			calllog.StatusCancelled, time.Now().UTC(), sim.profile.CancelledMessage,
		))
	case OutcomeFailed:
		carrierError := sim.cfg.CarrierErrors[sim.roller.Intn(len(sim.cfg.CarrierErrors))]

		return sim.finalize(ctx, phone, log, log.Terminate(
			calllog.StatusFailed, time.Now().UTC(), carrierError,
		))
	default:
		return fmt.Errorf("unknown outcome %q", outcome)
	}
}

func (sim *Simulator) resolveAnswered(
	ctx context.Context,
	phone *phonenumber.PhoneNumber,
	log *calllog.CallLog,
) error {
	sim.wait(ctx, sim.profile.AnswerDelay)

	err := sim.calls.Update(ctx, log, log.Answer(time.Now().UTC()))
	if err != nil {
		return err
	}

	talkSeconds := sim.profile.TalkSeconds(sim.roller)

	sim.wait(ctx, sim.profile.HangupDelay)

	err = sim.finalize(ctx, phone, log, log.Complete(
		time.Now().UTC(), talkSeconds, sim.cfg.RatePerMinute,
	))
	if err != nil {
		return err
	}

	metrics.CallDuration.Observe(float64(talkSeconds))

	return nil
}

// finalize writes a terminal transition and, in the same step, syncs the
// owning number's status. The sync lives here, next to the record write,
// rather than as a save hook.
func (sim *Simulator) finalize(
	ctx context.Context,
	phone *phonenumber.PhoneNumber,
	log *calllog.CallLog,
	updates map[string]any,
) error {
	err := sim.calls.Update(ctx, log, updates)
	if err != nil {
		return err
	}

	return sim.syncPhoneStatus(ctx, phone, log)
}

func (sim *Simulator) syncPhoneStatus(
	ctx context.Context,
	phone *phonenumber.PhoneNumber,
	log *calllog.CallLog,
) error {
	var status string

	switch {
	case log.Successful():
		status = phonenumber.StatusCompleted
	case log.Failed():
		status = phonenumber.StatusFailed
	default:
		return nil
	}

	err := sim.phones.UpdateStatus(ctx, phone.ID, status)
	if err != nil {
		return err
	}

	phone.Status = status

	return nil
}

// wait sleeps for the configured simulated delay. A cancelled context
// shortens the wait but never aborts the call; an in-flight call always
// reaches a terminal status.
func (sim *Simulator) wait(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
