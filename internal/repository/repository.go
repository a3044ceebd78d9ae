// Package repository implements the announcement store.
package repository

import (
	"github.com/rs/zerolog"

	"github.com/campusboard/bulletin/internal/model"
)

// AnnouncementRepository owns the canonical announcement records.
//
// ListAll returns the feed most recent first (created_at descending,
// insertion order among equal timestamps). FeedHash is a content hash over
// that listing, served as its ETag. Delete is idempotent: removing an
// unknown id is success.
type AnnouncementRepository interface {
	Create(blocks []model.ContentBlock) (model.AnnouncementID, error)
	ListAll() ([]model.Announcement, error)
	FeedHash() (string, error)
	Delete(id model.AnnouncementID) error
}

var repoLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	repoLogger = l
}
