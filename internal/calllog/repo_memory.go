package calllog

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository is an in-memory call log store for tests. Update
// persists the caller's struct wholesale, matching the gorm repository's
// write-through behavior.
type MemoryRepository struct {
	mu   sync.Mutex
	seq  uint
	Logs []*CallLog
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (repository *MemoryRepository) Create(ctx context.Context, log *CallLog) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	for _, existing := range repository.Logs {
		if existing.CallSID == log.CallSID {
			return ErrDuplicateSID
		}
	}

	repository.seq++
	log.ID = repository.seq

	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	copied := *log
	repository.Logs = append(repository.Logs, &copied)

	return nil
}

func (repository *MemoryRepository) GetBySID(ctx context.Context, callSID string) (*CallLog, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	for _, log := range repository.Logs {
		if log.CallSID == callSID {
			copied := *log

			return &copied, nil
		}
	}

	return nil, ErrNotFound
}

func (repository *MemoryRepository) FindQueuedByPhoneNumber(ctx context.Context, phoneNumberID uint) (*CallLog, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	var oldest *CallLog

	for _, log := range repository.Logs {
		if log.PhoneNumberID != phoneNumberID || log.Status != StatusQueued {
			continue
		}

		if oldest == nil || log.CreatedAt.Before(oldest.CreatedAt) {
			oldest = log
		}
	}

	if oldest == nil {
		return nil, ErrNotFound
	}

	copied := *oldest

	return &copied, nil
}

func (repository *MemoryRepository) Update(ctx context.Context, log *CallLog, updates map[string]any) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	for i, stored := range repository.Logs {
		if stored.CallSID == log.CallSID {
			copied := *log
			copied.ID = stored.ID
			copied.CreatedAt = stored.CreatedAt
			repository.Logs[i] = &copied

			return nil
		}
	}

	return ErrNotFound
}

func (repository *MemoryRepository) ListRecent(ctx context.Context, limit int) ([]CallLog, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	logs := make([]CallLog, 0, len(repository.Logs))
	for _, log := range repository.Logs {
		logs = append(logs, *log)
	}

	sort.Slice(logs, func(i, j int) bool {
		return logs[i].CreatedAt.After(logs[j].CreatedAt)
	})

	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}

	return logs, nil
}

func (repository *MemoryRepository) ListByPhoneNumber(ctx context.Context, phoneNumberID uint) ([]CallLog, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	logs := make([]CallLog, 0)

	for _, log := range repository.Logs {
		if log.PhoneNumberID == phoneNumberID {
			logs = append(logs, *log)
		}
	}

	sort.Slice(logs, func(i, j int) bool {
		return logs[i].CreatedAt.After(logs[j].CreatedAt)
	})

	return logs, nil
}

func (repository *MemoryRepository) CountByStatuses(ctx context.Context, statuses []string) (int64, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	return countMatching(repository.Logs, statuses, time.Time{}), nil
}

func (repository *MemoryRepository) CountToday(ctx context.Context, statuses []string) (int64, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	start := time.Now().UTC().Truncate(24 * time.Hour)

	return countMatching(repository.Logs, statuses, start), nil
}

func countMatching(logs []*CallLog, statuses []string, since time.Time) int64 {
	var count int64

	for _, log := range logs {
		if !since.IsZero() && log.CreatedAt.Before(since) {
			continue
		}

		if len(statuses) == 0 {
			count++
			continue
		}

		for _, status := range statuses {
			if log.Status == status {
				count++
				break
			}
		}
	}

	return count
}
