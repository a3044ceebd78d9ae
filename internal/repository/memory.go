package repository

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campusboard/bulletin/internal/model"
	"github.com/campusboard/bulletin/internal/util"
)

// MemoryAnnouncementRepository keeps announcements in process memory.
// Used by handler tests and useful for running without a database file.
type MemoryAnnouncementRepository struct { // implements AnnouncementRepository
	mu   sync.RWMutex
	anns []model.Announcement
	seq  map[model.AnnouncementID]int
	next int
}

func NewMemoryAnnouncementRepository() *MemoryAnnouncementRepository {
	return &MemoryAnnouncementRepository{
		seq: make(map[model.AnnouncementID]int),
	}
}

func (m *MemoryAnnouncementRepository) Create(blocks []model.ContentBlock) (model.AnnouncementID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := model.AnnouncementID(uuid.New().String())
	m.anns = append(m.anns, model.Announcement{
		ID:        id,
		Blocks:    slices.Clone(blocks),
		CreatedAt: time.Now().UTC(),
	})
	m.seq[id] = m.next
	m.next++
	return id, nil
}

func (m *MemoryAnnouncementRepository) ListAll() ([]model.Announcement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := slices.Clone(m.anns)
	slices.SortStableFunc(out, func(a, b model.Announcement) int {
		if c := -a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return m.seq[a.ID] - m.seq[b.ID]
	})
	return out, nil
}

func (m *MemoryAnnouncementRepository) FeedHash() (string, error) {
	anns, err := m.ListAll()
	if err != nil {
		return "", err
	}

	var hashInput []byte
	for _, ann := range anns {
		hashInput = append(hashInput, ann.ID...)
		hashInput = append(hashInput, ann.CreatedAt.String()...)
	}
	return util.ContentHash(hashInput), nil
}

func (m *MemoryAnnouncementRepository) Delete(id model.AnnouncementID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.anns = slices.DeleteFunc(m.anns, func(a model.Announcement) bool {
		return a.ID == id
	})
	return nil
}
