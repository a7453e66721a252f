package battle

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Store persists battles. Update must only succeed when the stored version
// equals b.Version, and must bump the version on success.
type Store interface {
	Create(ctx context.Context, b *Battle) error
	Get(ctx context.Context, id uuid.UUID) (*Battle, error)
	GetByRoomCode(ctx context.Context, code string) (*Battle, error)
	List(ctx context.Context) ([]*Battle, error)
	Update(ctx context.Context, b *Battle) error
	Delete(ctx context.Context, id uuid.UUID) error
	RoomCodeInUse(ctx context.Context, code string) (bool, error)
}

// MemoryStore is a process-local Store used when Postgres is not configured.
type MemoryStore struct {
	mu      sync.RWMutex
	battles map[uuid.UUID]*Battle
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{battles: make(map[uuid.UUID]*Battle)}
}

func (s *MemoryStore) Create(_ context.Context, b *Battle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.codeActiveLocked(b.RoomCode) {
		return ErrRoomCodeTaken
	}
	stored := b.Clone()
	stored.Version = 1
	s.battles[b.ID] = stored
	b.Version = 1
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*Battle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.battles[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return b.Clone(), nil
}

// GetByRoomCode prefers the active battle holding code over completed ones.
func (s *MemoryStore) GetByRoomCode(_ context.Context, code string) (*Battle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *Battle
	for _, b := range s.battles {
		if b.RoomCode != code {
			continue
		}
		if b.Status != StatusCompleted {
			return b.Clone(), nil
		}
		if found == nil || b.CreatedAt.After(found.CreatedAt) {
			found = b
		}
	}
	if found == nil {
		return nil, ErrRecordNotFound
	}
	return found.Clone(), nil
}

func (s *MemoryStore) List(_ context.Context) ([]*Battle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Battle, 0, len(s.battles))
	for _, b := range s.battles {
		out = append(out, b.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) Update(_ context.Context, b *Battle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.battles[b.ID]
	if !ok {
		return ErrRecordNotFound
	}
	if current.Version != b.Version {
		return ErrStaleWrite
	}
	stored := b.Clone()
	stored.Version = current.Version + 1
	s.battles[b.ID] = stored
	b.Version = stored.Version
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.battles[id]; !ok {
		return ErrRecordNotFound
	}
	delete(s.battles, id)
	return nil
}

func (s *MemoryStore) RoomCodeInUse(_ context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.codeActiveLocked(code), nil
}

func (s *MemoryStore) codeActiveLocked(code string) bool {
	for _, b := range s.battles {
		if b.RoomCode == code && b.Status != StatusCompleted {
			return true
		}
	}
	return false
}
