package command

import (
	"context"

	"autodialer/internal/database"
	"autodialer/internal/logging"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

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

func (repository *Repository) Create(ctx context.Context, cmd *Command) error {
	_, err := repository.CircuitBreaker.Execute(func() (any, error) {
		err := repository.DBConn.WithContext(ctx).Create(cmd).Error
		if err != nil {
			logging.Logger.Error("[Create] Failed to create command record",
				zap.String("action", cmd.ParsedAction),
				zap.String("error", err.Error()),
			)

			return nil, err
		}

		return nil, nil
	})

	return err
}

func (repository *Repository) ListRecent(ctx context.Context, limit int) ([]Command, error) {
	result, err := repository.CircuitBreaker.Execute(func() (any, error) {
		var commands []Command

		err := repository.DBConn.WithContext(ctx).
			Order("created_at DESC").
			Limit(limit).
			Find(&commands).Error
		if err != nil {
			return nil, err
		}

		return commands, nil
	})
	if err != nil {
		return nil, err
	}

	commands, ok := result.([]Command)
	if !ok {
		return nil, gorm.ErrInvalidData
	}

	return commands, nil
}
