package phonenumber

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMarkCallingIsExclusive(t *testing.T) {
	repository := NewMemoryRepository()
	phone := repository.Add("9876543210")

	const contenders = 8

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
	)

	for i := 0; i < contenders; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			candidate := *phone
			if repository.MarkCalling(context.Background(), &candidate) == nil {
				successes.Add(1)
			}
		}()
	}

	wg.Wait()

	require.EqualValues(t, 1, successes.Load())

	stored, err := repository.GetByID(context.Background(), phone.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCalling, stored.Status)
	require.Equal(t, 1, stored.CallAttempts)
	require.NotNil(t, stored.LastCalledAt)
}

func TestFindPendingOrderedSortsByCreation(t *testing.T) {
	repository := NewMemoryRepository()
	first := repository.Add("9876543210")
	second := repository.Add("9123456789")
	third := repository.Add("9988776655")

	require.NoError(t, repository.UpdateStatus(
		context.Background(), second.ID, StatusCompleted,
	))

	pending, err := repository.FindPendingOrdered(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, first.Number, pending[0].Number)
	require.Equal(t, third.Number, pending[1].Number)
}
