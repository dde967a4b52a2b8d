package app

import (
	"context"
	"testing"

	"autodialer/internal/api"
	"autodialer/internal/config"
	"github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/require"
)

func TestRunReleasesPoolWhenServerFails(t *testing.T) {
	pool, err := ants.NewPool(1)
	require.NoError(t, err)

	originalPort := config.Conf.HTTPPort
	config.Conf.HTTPPort = "not-a-port"
	t.Cleanup(func() { config.Conf.HTTPPort = originalPort })

	app := &AutoDialer{
		WorkerPool: pool,
		Server:     api.NewServer(nil, nil, nil, nil, nil, nil, nil, nil),
	}

	require.Error(t, app.Run(context.Background()))
	require.True(t, pool.IsClosed())
}
