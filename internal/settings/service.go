package settings

import (
	"context"
	"errors"
	"strconv"

	"autodialer/internal/config"
	"autodialer/internal/database"
	"autodialer/internal/logging"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidSettingResult = errors.New("invalid result type, it should be pointer to SystemSetting struct")

// Service is the typed key-value configuration store. The dialer reads
// simulation_mode and call_delay_seconds through it at call time, so
// operators can pause a sweep mid-flight.
type Service struct {
	DBConn         *gorm.DB
	CircuitBreaker *gobreaker.CircuitBreaker[any]
}

func NewService(dbConn *gorm.DB) *Service {
	cbSettings := database.GetCircuitBreakerSettings()

	return &Service{
		DBConn:         dbConn,
		CircuitBreaker: gobreaker.NewCircuitBreaker[any](cbSettings),
	}
}

func (service *Service) Get(ctx context.Context, key string) (*SystemSetting, error) {
	result, err := service.CircuitBreaker.Execute(func() (any, error) {
		var setting SystemSetting

		err := service.DBConn.WithContext(ctx).
			Where("key = ?", key).
			First(&setting).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		if err != nil {
			return nil, err
		}

		return &setting, nil
	})
	if err != nil {
		return nil, err
	}

	setting, ok := result.(*SystemSetting)
	if !ok {
		return nil, ErrInvalidSettingResult
	}

	return setting, nil
}

func (service *Service) List(ctx context.Context) ([]SystemSetting, error) {
	result, err := service.CircuitBreaker.Execute(func() (any, error) {
		var all []SystemSetting

		err := service.DBConn.WithContext(ctx).Order("key ASC").Find(&all).Error
		if err != nil {
			return nil, err
		}

		return all, nil
	})
	if err != nil {
		return nil, err
	}

	all, ok := result.([]SystemSetting)
	if !ok {
		return nil, ErrInvalidSettingResult
	}

	return all, nil
}

// Set upserts a key, inferring the stored type from the Go value.
func (service *Service) Set(ctx context.Context, key string, value any) error {
	stored, dataType, err := encode(value)
	if err != nil {
		return err
	}

	_, err = service.CircuitBreaker.Execute(func() (any, error) {
		var setting SystemSetting

		err := service.DBConn.WithContext(ctx).
			Where("key = ?", key).
			First(&setting).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			setting = SystemSetting{
				Key:      key,
				Value:    stored,
				DataType: dataType,
				Editable: true,
			}

			return nil, service.DBConn.WithContext(ctx).Create(&setting).Error
		}

		if err != nil {
			return nil, err
		}

		err = service.DBConn.WithContext(ctx).
			Model(&setting).
			Where("key = ?", key).
			Updates(map[string]any{"value": stored, "data_type": dataType}).Error
		if err != nil {
			logging.Logger.Error("[Set] Failed to update setting",
				zap.String("key", key),
				zap.String("error", err.Error()),
			)

			return nil, err
		}

		return nil, nil
	})

	return err
}

// Bool reads a boolean setting, falling back when the key is missing or
// the store is unreachable.
func (service *Service) Bool(ctx context.Context, key string, fallback bool) bool {
	setting, err := service.Get(ctx, key)
	if err != nil {
		return fallback
	}

	value, ok := setting.TypedValue().(bool)
	if !ok {
		return fallback
	}

	return value
}

func (service *Service) Int(ctx context.Context, key string, fallback int) int {
	setting, err := service.Get(ctx, key)
	if err != nil {
		return fallback
	}

	value, ok := setting.TypedValue().(int)
	if !ok {
		return fallback
	}

	return value
}

func (service *Service) String(ctx context.Context, key, fallback string) string {
	setting, err := service.Get(ctx, key)
	if err != nil {
		return fallback
	}

	return setting.Value
}

func (service *Service) Float(ctx context.Context, key string, fallback float64) float64 {
	setting, err := service.Get(ctx, key)
	if err != nil {
		return fallback
	}

	value, err := strconv.ParseFloat(setting.Value, 64)
	if err != nil {
		return fallback
	}

	return value
}

// SeedDefaults inserts missing settings with their defaults from the env
// config. Existing keys are left untouched.
func (service *Service) SeedDefaults(ctx context.Context) error {
	defaults := []SystemSetting{
		{
			Key:         KeySimulationMode,
			Value:       strconv.FormatBool(config.Conf.SimulationMode),
			DataType:    TypeBoolean,
			Description: "Enable simulation mode for all calls",
		},
		{
			Key:         KeyCallDelaySeconds,
			Value:       strconv.Itoa(config.Conf.CallDelaySeconds),
			DataType:    TypeInteger,
			Description: "Delay between calls in seconds",
		},
		{
			Key:         KeyDefaultFromNumber,
			Value:       config.Conf.DefaultFromNumber,
			DataType:    TypeString,
			Description: "Default caller ID number",
		},
		{
			Key:         KeyRatePerMinute,
			Value:       strconv.FormatFloat(config.Conf.RatePerMinute, 'f', -1, 64),
			DataType:    TypeFloat,
			Description: "Simulated per-minute call rate in USD",
		},
		{
			Key:         KeyMaxPhoneNumbers,
			Value:       strconv.Itoa(config.Conf.MaxPhoneNumbers),
			DataType:    TypeInteger,
			Description: "Maximum number of phone numbers allowed",
		},
		{
			Key:         KeyDailyCallLimit,
			Value:       strconv.Itoa(config.Conf.DailyCallLimit),
			DataType:    TypeInteger,
			Description: "Maximum calls per day",
		},
	}

	for _, setting := range defaults {
		_, err := service.Get(ctx, setting.Key)
		if err == nil {
			continue
		}

		if !errors.Is(err, ErrNotFound) {
			return err
		}

		setting.Editable = true

		_, err = service.CircuitBreaker.Execute(func() (any, error) {
			return nil, service.DBConn.WithContext(ctx).Create(&setting).Error
		})
		if err != nil {
			return err
		}

		logging.Logger.Info("seeded default setting", zap.String("key", setting.Key))
	}

	return nil
}
