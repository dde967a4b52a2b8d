package api

import (
	"math"
	"net/http"

	"autodialer/internal/calllog"
	"autodialer/internal/phonenumber"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

type dashboardStats struct {
	TotalNumbers     int64   `json:"total_numbers"`
	PendingNumbers   int64   `json:"pending_numbers"`
	CompletedNumbers int64   `json:"completed_numbers"`
	FailedNumbers    int64   `json:"failed_numbers"`
	TotalCalls       int64   `json:"total_calls"`
	CompletedCalls   int64   `json:"completed_calls"`
	FailedCalls      int64   `json:"failed_calls"`
	ActiveCalls      int64   `json:"active_calls"`
	CallsToday       int64   `json:"calls_today"`
	SuccessRate      float64 `json:"success_rate"`
}

func (server *Server) dashboard(c *gin.Context) {
	ctx := c.Request.Context()

	var stats dashboardStats

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		count, err := server.Phones.CountByStatus(groupCtx, "")
		stats.TotalNumbers = count

		return err
	})
	group.Go(func() error {
		count, err := server.Phones.CountByStatus(groupCtx, phonenumber.StatusPending)
		stats.PendingNumbers = count

		return err
	})
	group.Go(func() error {
		count, err := server.Phones.CountByStatus(groupCtx, phonenumber.StatusCompleted)
		stats.CompletedNumbers = count

		return err
	})
	group.Go(func() error {
		count, err := server.Phones.CountByStatus(groupCtx, phonenumber.StatusFailed)
		stats.FailedNumbers = count

		return err
	})
	group.Go(func() error {
		count, err := server.Calls.CountByStatuses(groupCtx, nil)
		stats.TotalCalls = count

		return err
	})
	group.Go(func() error {
		count, err := server.Calls.CountByStatuses(groupCtx, []string{calllog.StatusCompleted})
		stats.CompletedCalls = count

		return err
	})
	group.Go(func() error {
		count, err := server.Calls.CountByStatuses(groupCtx, calllog.FailureStatuses())
		stats.FailedCalls = count

		return err
	})
	group.Go(func() error {
		count, err := server.Calls.CountByStatuses(groupCtx, calllog.ActiveStatuses())
		stats.ActiveCalls = count

		return err
	})
	group.Go(func() error {
		count, err := server.Calls.CountToday(groupCtx, nil)
		stats.CallsToday = count

		return err
	})

	err := group.Wait()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build dashboard"})
		return
	}

	if stats.TotalCalls > 0 {
		rate := float64(stats.CompletedCalls) / float64(stats.TotalCalls) * 100
		stats.SuccessRate = math.Round(rate*10) / 10
	}

	c.JSON(http.StatusOK, stats)
}
