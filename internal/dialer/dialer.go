package dialer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"autodialer/internal/logging"
	"autodialer/internal/metrics"
	"autodialer/internal/phonenumber"
	"autodialer/internal/settings"
	"autodialer/internal/simulator"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// Dispatch is the immediate reply to a dial request; the call itself runs
// asynchronously and is observable only through the stores.
type Dispatch struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

// Registry is the slice of the phone number store the dialer needs for
// target selection and failure marking.
type Registry interface {
	GetByID(ctx context.Context, id uint) (*phonenumber.PhoneNumber, error)
	FindPendingOrdered(ctx context.Context) ([]phonenumber.PhoneNumber, error)
	UpdateStatus(ctx context.Context, id uint, status string) error
}

// Settings supplies the continuation predicate and inter-call pacing,
// read at call time so a running sweep can be stopped.
type Settings interface {
	Bool(ctx context.Context, key string, fallback bool) bool
	Int(ctx context.Context, key string, fallback int) int
}

type Dialer struct {
	pool     *ants.Pool
	phones   Registry
	settings Settings
	single   *simulator.Simulator
	batch    *simulator.Simulator
}

func New(
	pool *ants.Pool,
	phones Registry,
	settingsStore Settings,
	single *simulator.Simulator,
	batch *simulator.Simulator,
) *Dialer {
	return &Dialer{
		pool:     pool,
		phones:   phones,
		settings: settingsStore,
		single:   single,
		batch:    batch,
	}
}

// DispatchSingle enqueues one dial and returns immediately. The
// callability precondition is checked synchronously so the caller gets a
// useful reason; the check repeats atomically inside the simulator.
func (dialer *Dialer) DispatchSingle(ctx context.Context, id uint) Dispatch {
	phone, err := dialer.phones.GetByID(ctx, id)
	if err != nil {
		return Dispatch{Reason: fmt.Sprintf("phone number %d not found", id)}
	}

	if !phone.CanBeCalled() {
		return Dispatch{Reason: fmt.Sprintf(
			"phone number %s cannot be called (status: %s)", phone.Number, phone.Status,
		)}
	}

	// The job outlives the request that dispatched it: only context
	// values carry over, cancellation does not.
	jobCtx := context.WithoutCancel(ctx)

	err = dialer.pool.Submit(func() {
		dialer.dialOne(jobCtx, phone, dialer.single)
	})
	if err != nil {
		logging.Logger.Error("failed to submit single dial to ants pool",
			zap.Uint("phone_number_id", id),
			zap.String("error", err.Error()),
		)

		return Dispatch{Reason: "dialer is not accepting jobs"}
	}

	metrics.DialSubmissions.WithLabelValues("single").Inc()

	logging.Logger.Info("single dial submitted",
		zap.Uint("phone_number_id", id),
		zap.String("number", phone.FormattedNumber),
	)

	return Dispatch{Accepted: true}
}

// DispatchBatch enqueues a sweep over all pending numbers and returns
// immediately.
func (dialer *Dialer) DispatchBatch(ctx context.Context) Dispatch {
	jobCtx := context.WithoutCancel(ctx)

	err := dialer.pool.Submit(func() {
		dialer.runSweep(jobCtx)
	})
	if err != nil {
		logging.Logger.Error("failed to submit sweep to ants pool",
			zap.String("error", err.Error()),
		)

		return Dispatch{Reason: "dialer is not accepting jobs"}
	}

	metrics.DialSubmissions.WithLabelValues("batch").Inc()

	return Dispatch{Accepted: true}
}

// runSweep dials every pending number in creation order. The selection is
// captured once up front; statuses changing mid-sweep do not reorder it.
func (dialer *Dialer) runSweep(ctx context.Context) {
	start := time.Now()

	pending, err := dialer.phones.FindPendingOrdered(ctx)
	if err != nil {
		logging.Logger.Error("sweep aborted, could not list pending numbers",
			zap.String("error", err.Error()),
		)

		return
	}

	logging.Logger.Info("starting sweep", zap.Int("pending", len(pending)))

	for i := range pending {
		if !dialer.settings.Bool(ctx, settings.KeySimulationMode, true) {
			logging.Logger.Warn("simulation mode disabled, stopping sweep",
				zap.Int("remaining", len(pending)-i),
			)

			break
		}

		dialer.dialOne(ctx, &pending[i], dialer.batch)

		delay := dialer.settings.Int(ctx, settings.KeyCallDelaySeconds, 2)
		if delay > 0 && i < len(pending)-1 {
			dialer.pause(ctx, time.Duration(delay)*time.Second)
		}
	}

	metrics.SweepDuration.Observe(time.Since(start).Seconds())

	logging.Logger.Info("sweep finished",
		zap.Int("targets", len(pending)),
		zap.Duration("elapsed", time.Since(start)),
	)
}

// dialOne runs one simulated call and absorbs its failure. A not-callable
// target is a no-op; anything else marks the target failed. Panics are
// contained at the same per-target scope.
func (dialer *Dialer) dialOne(
	ctx context.Context,
	phone *phonenumber.PhoneNumber,
	sim *simulator.Simulator,
) {
	defer func() {
		if r := recover(); r != nil {
			logging.Logger.Error("panic in dial worker",
				zap.Uint("phone_number_id", phone.ID),
				zap.Any("recover", r),
			)

			dialer.markFailed(ctx, phone)
		}
	}()

	_, err := sim.Simulate(ctx, phone)
	if err == nil {
		return
	}

	if errors.Is(err, phonenumber.ErrNotCallable) {
		logging.Logger.Warn("skipping number that cannot be called",
			zap.Uint("phone_number_id", phone.ID),
			zap.String("number", phone.Number),
			zap.String("status", phone.Status),
		)

		return
	}

	logging.Logger.Error("simulated call failed",
		zap.Uint("phone_number_id", phone.ID),
		zap.String("number", phone.Number),
		zap.String("error", err.Error()),
	)

	dialer.markFailed(ctx, phone)
}

func (dialer *Dialer) markFailed(ctx context.Context, phone *phonenumber.PhoneNumber) {
	err := dialer.phones.UpdateStatus(ctx, phone.ID, phonenumber.StatusFailed)
	if err != nil {
		logging.Logger.Error("failed to mark phone number as failed",
			zap.Uint("phone_number_id", phone.ID),
			zap.String("error", err.Error()),
		)

		return
	}

	phone.Status = phonenumber.StatusFailed
}

func (dialer *Dialer) pause(ctx context.Context, delay time.Duration) {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
