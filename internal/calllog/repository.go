package calllog

import (
	"context"
	"errors"
	"strings"
	"time"

	"autodialer/internal/database"
	"autodialer/internal/logging"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidCallLogResult = errors.New("invalid result type, it should be pointer to CallLog struct")

type Repository struct {
	DBConn         *gorm.DB
	CircuitBreaker *gobreaker.CircuitBreaker[any]
}

func NewRepository(dbConn *gorm.DB) *Repository {
	cbSettings := database.GetCircuitBreakerSettings()

	return &Repository{
		DBConn:         dbConn,
		CircuitBreaker: gobreaker.NewCircuitBreaker[any](cbSettings),
	}
}

func (repository *Repository) Create(ctx context.Context, log *CallLog) error {
	_, err := repository.CircuitBreaker.Execute(func() (any, error) {
		err := repository.DBConn.WithContext(ctx).Create(log).Error
		if err != nil {
			if isUniqueViolation(err) {
				logging.Logger.Error("[Create] Call SID collision, refusing to retry",
					zap.String("call_sid", log.CallSID),
				)

				return nil, ErrDuplicateSID
			}

			logging.Logger.Error("[Create] Failed to create call log",
				zap.String("call_sid", log.CallSID),
				zap.String("error", err.Error()),
			)

			return nil, err
		}

		return nil, nil
	})

	return err
}

func (repository *Repository) GetBySID(ctx context.Context, callSID string) (*CallLog, error) {
	result, err := repository.CircuitBreaker.Execute(func() (any, error) {
		var log CallLog

		err := repository.DBConn.WithContext(ctx).
			Where("call_sid = ?", callSID).
			First(&log).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		if err != nil {
			return nil, err
		}

		return &log, nil
	})
	if err != nil {
		return nil, err
	}

	return asCallLog(result)
}

// FindQueuedByPhoneNumber returns the oldest still-queued record for a
// number, if any; dispatchers reuse it instead of queuing a duplicate.
func (repository *Repository) FindQueuedByPhoneNumber(ctx context.Context, phoneNumberID uint) (*CallLog, error) {
	result, err := repository.CircuitBreaker.Execute(func() (any, error) {
		var log CallLog

		err := repository.DBConn.WithContext(ctx).
			Where("phone_number_id = ? AND status = ?", phoneNumberID, StatusQueued).
			Order("created_at ASC").
			First(&log).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		if err != nil {
			return nil, err
		}

		return &log, nil
	})
	if err != nil {
		return nil, err
	}

	return asCallLog(result)
}

// Update applies column updates to a record identified by its SID.
func (repository *Repository) Update(ctx context.Context, log *CallLog, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}

	_, err := repository.CircuitBreaker.Execute(func() (any, error) {
		err := repository.DBConn.WithContext(ctx).
			Model(log).
			Where("call_sid = ?", log.CallSID).
			Updates(updates).Error
		if err != nil {
			logging.Logger.Error("[Update] Failed to update call log",
				zap.String("call_sid", log.CallSID),
				zap.Any("updates", updates),
				zap.String("error", err.Error()),
			)

			return nil, err
		}

		return nil, nil
	})

	return err
}

func (repository *Repository) ListRecent(ctx context.Context, limit int) ([]CallLog, error) {
	return repository.list(ctx, func(query *gorm.DB) *gorm.DB {
		return query.Order("created_at DESC").Limit(limit)
	})
}

func (repository *Repository) ListByPhoneNumber(ctx context.Context, phoneNumberID uint) ([]CallLog, error) {
	return repository.list(ctx, func(query *gorm.DB) *gorm.DB {
		return query.Where("phone_number_id = ?", phoneNumberID).Order("created_at DESC")
	})
}

func (repository *Repository) ListToday(ctx context.Context) ([]CallLog, error) {
	start := time.Now().UTC().Truncate(24 * time.Hour)

	return repository.list(ctx, func(query *gorm.DB) *gorm.DB {
		return query.Where("created_at >= ?", start).Order("created_at DESC")
	})
}

func (repository *Repository) CountByStatuses(ctx context.Context, statuses []string) (int64, error) {
	result, err := repository.CircuitBreaker.Execute(func() (any, error) {
		var count int64

		query := repository.DBConn.WithContext(ctx).Model(&CallLog{})
		if len(statuses) > 0 {
			query = query.Where("status IN ?", statuses)
		}

		err := query.Count(&count).Error
		if err != nil {
			return nil, err
		}

		return count, nil
	})
	if err != nil {
		return 0, err
	}

	count, ok := result.(int64)
	if !ok {
		return 0, ErrInvalidCallLogResult
	}

	return count, nil
}

func (repository *Repository) CountToday(ctx context.Context, statuses []string) (int64, error) {
	start := time.Now().UTC().Truncate(24 * time.Hour)

	result, err := repository.CircuitBreaker.Execute(func() (any, error) {
		var count int64

		query := repository.DBConn.WithContext(ctx).
			Model(&CallLog{}).
			Where("created_at >= ?", start)
		if len(statuses) > 0 {
			query = query.Where("status IN ?", statuses)
		}

		err := query.Count(&count).Error
		if err != nil {
			return nil, err
		}

		return count, nil
	})
	if err != nil {
		return 0, err
	}

	count, ok := result.(int64)
	if !ok {
		return 0, ErrInvalidCallLogResult
	}

	return count, nil
}

func (repository *Repository) list(
	ctx context.Context,
	scope func(*gorm.DB) *gorm.DB,
) ([]CallLog, error) {
	result, err := repository.CircuitBreaker.Execute(func() (any, error) {
		var logs []CallLog

		err := scope(repository.DBConn.WithContext(ctx)).Find(&logs).Error
		if err != nil {
			logging.Logger.Error("[list] Failed to fetch call logs",
				zap.String("error", err.Error()),
			)

			return nil, err
		}

		return logs, nil
	})
	if err != nil {
		return nil, err
	}

	logs, ok := result.([]CallLog)
	if !ok {
		return nil, ErrInvalidCallLogResult
	}

	return logs, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	return strings.Contains(err.Error(), "duplicate key value")
}

func asCallLog(result any) (*CallLog, error) {
	log, ok := result.(*CallLog)
	if !ok {
		return nil, ErrInvalidCallLogResult
	}

	return log, nil
}
