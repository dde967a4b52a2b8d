package phonenumber

import (
	"context"
	"errors"
	"time"

	"autodialer/internal/calllog"
	"autodialer/internal/database"
	"autodialer/internal/logging"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidPhoneNumberResult = errors.New("invalid result type, it should be pointer to PhoneNumber struct")

type Repository struct {
	DBConn         *gorm.DB
	CircuitBreaker *gobreaker.CircuitBreaker[any]
	MaxNumbers     int
}

func NewRepository(dbConn *gorm.DB, maxNumbers int) *Repository {
	cbSettings := database.GetCircuitBreakerSettings()

	return &Repository{
		DBConn:         dbConn,
		CircuitBreaker: gobreaker.NewCircuitBreaker[any](cbSettings),
		MaxNumbers:     maxNumbers,
	}
}

// Create normalizes and stores a new number. The limit check and the insert
// are not transactional; the unique index on number is the real guard.
func (repository *Repository) Create(ctx context.Context, raw, source, notes string) (*PhoneNumber, error) {
	number, err := Normalize(raw)
	if err != nil {
		return nil, err
	}

	result, err := repository.CircuitBreaker.Execute(func() (any, error) {
		if repository.MaxNumbers > 0 {
			var count int64

			err := repository.DBConn.WithContext(ctx).Model(&PhoneNumber{}).Count(&count).Error
			if err != nil {
				return nil, err
			}

			if count >= int64(repository.MaxNumbers) {
				return nil, ErrLimitReached
			}
		}

		phone := PhoneNumber{
			Number:          number,
			FormattedNumber: Format(number),
			Status:          StatusPending,
			Source:          source,
			Notes:           notes,
		}

		err := repository.DBConn.WithContext(ctx).Create(&phone).Error
		if err != nil {
			logging.Logger.Error("[Create] Failed to create phone number",
				zap.String("number", number),
				zap.String("error", err.Error()),
			)

			return nil, err
		}

		return &phone, nil
	})
	if err != nil {
		return nil, err
	}

	return asPhoneNumber(result)
}

func (repository *Repository) GetByID(ctx context.Context, id uint) (*PhoneNumber, error) {
	result, err := repository.CircuitBreaker.Execute(func() (any, error) {
		var phone PhoneNumber

		err := repository.DBConn.WithContext(ctx).First(&phone, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		if err != nil {
			return nil, err
		}

		return &phone, nil
	})
	if err != nil {
		return nil, err
	}

	return asPhoneNumber(result)
}

func (repository *Repository) GetByNumber(ctx context.Context, number string) (*PhoneNumber, error) {
	result, err := repository.CircuitBreaker.Execute(func() (any, error) {
		var phone PhoneNumber

		err := repository.DBConn.WithContext(ctx).
			Where("number = ?", number).
			First(&phone).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		if err != nil {
			return nil, err
		}

		return &phone, nil
	})
	if err != nil {
		return nil, err
	}

	return asPhoneNumber(result)
}

// FindPendingOrdered returns pending numbers oldest first; this ordering
// governs batch submission order.
func (repository *Repository) FindPendingOrdered(ctx context.Context) ([]PhoneNumber, error) {
	result, err := repository.CircuitBreaker.Execute(func() (any, error) {
		var phones []PhoneNumber

		err := repository.DBConn.WithContext(ctx).
			Where("status = ?", StatusPending).
			Order("created_at ASC").
			Find(&phones).Error
		if err != nil {
			logging.Logger.Error("[FindPendingOrdered] Failed to fetch pending numbers",
				zap.String("error", err.Error()),
			)

			return nil, err
		}

		return phones, nil
	})
	if err != nil {
		return nil, err
	}

	phones, ok := result.([]PhoneNumber)
	if !ok {
		return nil, ErrInvalidPhoneNumberResult
	}

	return phones, nil
}

func (repository *Repository) List(ctx context.Context, status string) ([]PhoneNumber, error) {
	result, err := repository.CircuitBreaker.Execute(func() (any, error) {
		var phones []PhoneNumber

		query := repository.DBConn.WithContext(ctx).Order("created_at DESC")
		if status != "" {
			query = query.Where("status = ?", status)
		}

		err := query.Find(&phones).Error
		if err != nil {
			return nil, err
		}

		return phones, nil
	})
	if err != nil {
		return nil, err
	}

	phones, ok := result.([]PhoneNumber)
	if !ok {
		return nil, ErrInvalidPhoneNumberResult
	}

	return phones, nil
}

// MarkCalling performs the acquire step of a dial: status, attempt counter
// and last-called stamp move in one statement, guarded so a number already
// in calling state cannot be acquired twice.
func (repository *Repository) MarkCalling(ctx context.Context, phone *PhoneNumber) error {
	now := time.Now().UTC()

	_, err := repository.CircuitBreaker.Execute(func() (any, error) {
		result := repository.DBConn.WithContext(ctx).
			Model(&PhoneNumber{}).
			Where("id = ? AND status IN ?", phone.ID, CallableStatuses()).
			Updates(map[string]any{
				"status":         StatusCalling,
				"call_attempts":  gorm.Expr("call_attempts + 1"),
				"last_called_at": now,
			})
		if result.Error != nil {
			logging.Logger.Error("[MarkCalling] Failed to acquire phone number",
				zap.Uint("phone_number_id", phone.ID),
				zap.String("error", result.Error.Error()),
			)

			return nil, result.Error
		}

		if result.RowsAffected == 0 {
			return nil, ErrNotCallable
		}

		return nil, nil
	})
	if err != nil {
		return err
	}

	phone.Status = StatusCalling
	phone.CallAttempts++
	phone.LastCalledAt = &now

	return nil
}

func (repository *Repository) UpdateStatus(ctx context.Context, id uint, status string) error {
	_, err := repository.CircuitBreaker.Execute(func() (any, error) {
		err := repository.DBConn.WithContext(ctx).
			Model(&PhoneNumber{}).
			Where("id = ?", id).
			Update("status", status).Error
		if err != nil {
			logging.Logger.Error("[UpdateStatus] Failed to update phone number status",
				zap.Uint("phone_number_id", id),
				zap.String("status", status),
				zap.String("error", err.Error()),
			)

			return nil, err
		}

		return nil, nil
	})

	return err
}

// Delete removes a number together with its call logs.
func (repository *Repository) Delete(ctx context.Context, id uint) error {
	_, err := repository.CircuitBreaker.Execute(func() (any, error) {
		err := repository.DBConn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			err := tx.Where("phone_number_id = ?", id).Delete(&calllog.CallLog{}).Error
			if err != nil {
				return err
			}

			result := tx.Delete(&PhoneNumber{}, id)
			if result.Error != nil {
				return result.Error
			}

			if result.RowsAffected == 0 {
				return ErrNotFound
			}

			return nil
		})
		if err != nil {
			return nil, err
		}

		return nil, nil
	})

	return err
}

func (repository *Repository) CountByStatus(ctx context.Context, status string) (int64, error) {
	result, err := repository.CircuitBreaker.Execute(func() (any, error) {
		var count int64

		query := repository.DBConn.WithContext(ctx).Model(&PhoneNumber{})
		if status != "" {
			query = query.Where("status = ?", status)
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
		return 0, ErrInvalidPhoneNumberResult
	}

	return count, nil
}

func asPhoneNumber(result any) (*PhoneNumber, error) {
	phone, ok := result.(*PhoneNumber)
	if !ok {
		return nil, ErrInvalidPhoneNumberResult
	}

	return phone, nil
}
