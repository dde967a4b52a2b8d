package app

import (
	"context"

	"autodialer/internal/api"
	"autodialer/internal/calllog"
	"autodialer/internal/command"
	"autodialer/internal/config"
	"autodialer/internal/database"
	"autodialer/internal/dialer"
	"autodialer/internal/logging"
	"autodialer/internal/phonenumber"
	"autodialer/internal/settings"
	"autodialer/internal/simulator"
	"autodialer/internal/telephony"
	"autodialer/internal/voice"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// demoAccountSID identifies the simulated telephony account. No real
// provider account exists in simulation mode.
const demoAccountSID = "AC0123456789abcdef0123456789abcdef"

type AutoDialer struct {
	DBConn     *gorm.DB
	WorkerPool *ants.Pool
	Phones     *phonenumber.Repository
	Calls      *calllog.Repository
	Settings   *settings.Service
	Dialer     *dialer.Dialer
	Commands   *command.Service
	Server     *api.Server
}

func NewApp(ctx context.Context) (*AutoDialer, error) {
	logging.Logger.Info("[NewApp] Initializing autodialer application...")

	dbConn, err := database.NewDatabase()
	if err != nil {
		logging.Logger.Error("[NewApp] Failed to initialize database", zap.Error(err))
		return nil, err
	}

	logging.Logger.Info("[NewApp] Database connection established")

	workerPool, err := initializeWorkerPool()
	if err != nil {
		return nil, err
	}

	phones, calls, settingsService, err := initializeStores(ctx, dbConn)
	if err != nil {
		return nil, err
	}

	dialerService := initializeDialer(workerPool, phones, calls, settingsService)

	commandService, commandLog := initializeCommands(dbConn, phones, calls, dialerService, settingsService)

	logging.Logger.Info("[NewApp] Creating voice and telephony services...")

	voiceService := voice.NewService()
	telephonyService := telephony.NewService(
		demoAccountSID,
		config.Conf.DefaultFromNumber,
		config.Conf.RatePerMinute,
		calls,
		phones,
	)

	logging.Logger.Info("[NewApp] Voice and telephony services created")

	logging.Logger.Info("[NewApp] Creating API server...")

	server := api.NewServer(
		phones,
		calls,
		settingsService,
		commandService,
		commandLog,
		dialerService,
		voiceService,
		telephonyService,
	)

	logging.Logger.Info("[NewApp] API server created")

	return &AutoDialer{
		DBConn:     dbConn,
		WorkerPool: workerPool,
		Phones:     phones,
		Calls:      calls,
		Settings:   settingsService,
		Dialer:     dialerService,
		Commands:   commandService,
		Server:     server,
	}, nil
}

func initializeWorkerPool() (*ants.Pool, error) {
	logging.Logger.Info("[NewApp] Creating worker pool",
		zap.Int("pool_size", config.Conf.PoolSize),
	)

	workerPool, err := ants.NewPool(config.Conf.PoolSize, ants.WithPreAlloc(true))
	if err != nil {
		logging.Logger.Error("[NewApp] Failed to create worker pool", zap.Error(err))
		return nil, err
	}

	logging.Logger.Info("[NewApp] Worker pool created successfully")

	return workerPool, nil
}

func initializeStores(
	ctx context.Context,
	dbConn *gorm.DB,
) (*phonenumber.Repository, *calllog.Repository, *settings.Service, error) {
	logging.Logger.Info("[NewApp] Creating repositories...")

	phones := phonenumber.NewRepository(dbConn, config.Conf.MaxPhoneNumbers)
	calls := calllog.NewRepository(dbConn)

	logging.Logger.Info("[NewApp] Repositories created")

	logging.Logger.Info("[NewApp] Creating settings service...")

	settingsService := settings.NewService(dbConn)

	err := settingsService.SeedDefaults(ctx)
	if err != nil {
		logging.Logger.Error("[NewApp] Failed to seed default settings", zap.Error(err))
		return nil, nil, nil, err
	}

	logging.Logger.Info("[NewApp] Settings service created and defaults seeded")

	return phones, calls, settingsService, nil
}

func initializeDialer(
	workerPool *ants.Pool,
	phones *phonenumber.Repository,
	calls *calllog.Repository,
	settingsService *settings.Service,
) *dialer.Dialer {
	logging.Logger.Info("[NewApp] Creating call simulators...")

	simulatorConfig := simulator.Config{
		FromNumber:    config.Conf.DefaultFromNumber,
		RatePerMinute: config.Conf.RatePerMinute,
	}

	singleSim := simulator.New(phones, calls, simulatorConfig, simulator.SingleProfile())
	batchSim := simulator.New(phones, calls, simulatorConfig, simulator.BatchProfile())

	logging.Logger.Info("[NewApp] Call simulators created")

	logging.Logger.Info("[NewApp] Creating dialer...")

	dialerService := dialer.New(workerPool, phones, settingsService, singleSim, batchSim)

	logging.Logger.Info("[NewApp] Dialer created")

	return dialerService
}

func initializeCommands(
	dbConn *gorm.DB,
	phones *phonenumber.Repository,
	calls *calllog.Repository,
	dialerService *dialer.Dialer,
	settingsService *settings.Service,
) (*command.Service, *command.Repository) {
	logging.Logger.Info("[NewApp] Creating command service...")

	commandLog := command.NewRepository(dbConn)
	commandService := command.NewService(commandLog, phones, calls, dialerService, settingsService)

	logging.Logger.Info("[NewApp] Command service created")

	return commandService, commandLog
}

func (app *AutoDialer) Run(ctx context.Context) error {
	// The pool must be released however the server exits.
	defer app.shutdown()

	logging.Logger.Info("[Run] Starting API server (BLOCKING)",
		zap.String("port", config.Conf.HTTPPort),
		zap.Int("worker_pool_size", config.Conf.PoolSize),
	)

	err := app.Server.Run(ctx)
	if err != nil {
		logging.Logger.Error("[Run] API server returned error", zap.Error(err))
		return err
	}

	logging.Logger.Warn("[Run] API server returned (context canceled), beginning shutdown...")

	return nil
}

func (app *AutoDialer) shutdown() {
	logging.Logger.Info("[Run] Releasing worker pool...",
		zap.Int("running_workers", app.WorkerPool.Running()),
		zap.Int("free_workers", app.WorkerPool.Free()),
	)
	app.WorkerPool.Release()
	logging.Logger.Info("[Run] Worker pool released")

	logging.Logger.Info("[Run] ===== App shutdown complete =====")
}
