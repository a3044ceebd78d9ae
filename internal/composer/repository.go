package composer

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/campusboard/bulletin/internal/cache"
)

type Repository interface {
	CreateDraft() (*Draft, error)
	GetDraft(id DraftID) (*Draft, error)
	SaveDraft(draft *Draft) error
	DeleteDraft(id DraftID) error
}

// MemoryRepository keeps drafts in process memory. Drafts are composition
// state, so losing them on restart is acceptable.
type MemoryRepository struct {
	drafts *cache.Cache[DraftID, *Draft]
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		drafts: cache.NewCache[DraftID, *Draft](),
	}
}

func (m *MemoryRepository) CreateDraft() (*Draft, error) {
	draft := &Draft{
		ID: DraftID(uuid.New().String()),
	}
	m.drafts.Set(draft.ID, draft)
	return draft, nil
}

func (m *MemoryRepository) GetDraft(id DraftID) (*Draft, error) {
	if draft, ok := m.drafts.Get(id); ok {
		return draft, nil
	}
	return nil, fmt.Errorf("draft not found: %s", id)
}

func (m *MemoryRepository) SaveDraft(draft *Draft) error {
	m.drafts.Set(draft.ID, draft)
	return nil
}

func (m *MemoryRepository) DeleteDraft(id DraftID) error {
	m.drafts.Delete(id)
	return nil
}

var composerLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	composerLogger = l
}
