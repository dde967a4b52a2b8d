package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"autodialer/internal/calllog"
	"autodialer/internal/command"
	"autodialer/internal/config"
	"autodialer/internal/dialer"
	"autodialer/internal/logging"
	"autodialer/internal/phonenumber"
	"autodialer/internal/settings"
	"autodialer/internal/telephony"
	"autodialer/internal/voice"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	Router     *gin.Engine
	Phones     *phonenumber.Repository
	Calls      *calllog.Repository
	Settings   *settings.Service
	Commands   *command.Service
	CommandLog *command.Repository
	Dialer     *dialer.Dialer
	Voice      *voice.Service
	Telephony  *telephony.Service
}

func NewServer(
	phones *phonenumber.Repository,
	calls *calllog.Repository,
	settingsService *settings.Service,
	commandService *command.Service,
	commandLog *command.Repository,
	dialerService *dialer.Dialer,
	voiceService *voice.Service,
	telephonyService *telephony.Service,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		Router:     gin.New(),
		Phones:     phones,
		Calls:      calls,
		Settings:   settingsService,
		Commands:   commandService,
		CommandLog: commandLog,
		Dialer:     dialerService,
		Voice:      voiceService,
		Telephony:  telephonyService,
	}

	server.Router.Use(gin.Recovery(), requestLogger())
	server.registerRoutes()

	return server
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logging.Logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

func (server *Server) registerRoutes() {
	v1 := server.Router.Group("/api/v1")

	v1.GET("/phone_numbers", server.listPhoneNumbers)
	v1.POST("/phone_numbers", server.createPhoneNumber)
	v1.GET("/phone_numbers/:id", server.getPhoneNumber)
	v1.DELETE("/phone_numbers/:id", server.deletePhoneNumber)
	v1.POST("/phone_numbers/:id/dial", server.dialPhoneNumber)

	v1.GET("/calls", server.listCalls)
	v1.GET("/calls/today", server.listTodayCalls)
	v1.GET("/calls/:sid", server.getCall)
	v1.POST("/calls/:sid/hangup", server.hangupCall)
	v1.POST("/calls/dial_all", server.dialAll)

	v1.GET("/dashboard", server.dashboard)

	v1.POST("/commands", server.processCommand)
	v1.GET("/commands", server.listCommands)

	v1.GET("/settings", server.listSettings)
	v1.PUT("/settings/:key", server.updateSetting)

	v1.GET("/voices", server.listVoices)
	v1.POST("/tts", server.textToSpeech)
	v1.POST("/call_script", server.generateCallScript)
}

// Run serves the API until the context is cancelled, then shuts down
// gracefully.
func (server *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              ":" + config.Conf.HTTPPort,
		Handler:           server.Router,
		ReadHeaderTimeout: time.Duration(config.Conf.HTTPTimeout) * time.Second,
	}

	errChan := make(chan error, 1)

	go func() {
		logging.Logger.Info("start API server on port " + config.Conf.HTTPPort)

		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return httpServer.Shutdown(shutdownCtx)
}
