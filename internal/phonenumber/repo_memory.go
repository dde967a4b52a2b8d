package phonenumber

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository is an in-memory phone number store for tests. It
// mirrors the semantics of the gorm repository, including the atomic
// acquire guard in MarkCalling.
type MemoryRepository struct {
	mu      sync.Mutex
	seq     uint
	clock   time.Time
	Numbers map[uint]*PhoneNumber
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		clock:   time.Unix(1700000000, 0).UTC(),
		Numbers: map[uint]*PhoneNumber{},
	}
}

// Add inserts a pending number with a strictly increasing creation time.
func (repository *MemoryRepository) Add(number string) *PhoneNumber {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	repository.seq++
	repository.clock = repository.clock.Add(time.Second)

	phone := &PhoneNumber{
		ID:              repository.seq,
		Number:          number,
		FormattedNumber: Format(number),
		Status:          StatusPending,
		Source:          SourceManual,
		CreatedAt:       repository.clock,
		UpdatedAt:       repository.clock,
	}
	repository.Numbers[phone.ID] = phone

	return phone
}

func (repository *MemoryRepository) GetByID(ctx context.Context, id uint) (*PhoneNumber, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	phone, ok := repository.Numbers[id]
	if !ok {
		return nil, ErrNotFound
	}

	copied := *phone

	return &copied, nil
}

func (repository *MemoryRepository) GetByNumber(ctx context.Context, number string) (*PhoneNumber, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	for _, phone := range repository.Numbers {
		if phone.Number == number {
			copied := *phone

			return &copied, nil
		}
	}

	return nil, ErrNotFound
}

func (repository *MemoryRepository) FindPendingOrdered(ctx context.Context) ([]PhoneNumber, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	pending := make([]PhoneNumber, 0)

	for _, phone := range repository.Numbers {
		if phone.Status == StatusPending {
			pending = append(pending, *phone)
		}
	}

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})

	return pending, nil
}

func (repository *MemoryRepository) MarkCalling(ctx context.Context, phone *PhoneNumber) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	stored, ok := repository.Numbers[phone.ID]
	if !ok {
		return ErrNotFound
	}

	if !stored.CanBeCalled() {
		return ErrNotCallable
	}

	now := time.Now().UTC()
	stored.Status = StatusCalling
	stored.CallAttempts++
	stored.LastCalledAt = &now

	phone.Status = stored.Status
	phone.CallAttempts = stored.CallAttempts
	phone.LastCalledAt = stored.LastCalledAt

	return nil
}

func (repository *MemoryRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	stored, ok := repository.Numbers[id]
	if !ok {
		return ErrNotFound
	}

	stored.Status = status

	return nil
}

func (repository *MemoryRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	var count int64

	for _, phone := range repository.Numbers {
		if status == "" || phone.Status == status {
			count++
		}
	}

	return count, nil
}
