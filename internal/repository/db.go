package repository

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/campusboard/bulletin/internal/apperr"
	"github.com/campusboard/bulletin/internal/cache"
	"github.com/campusboard/bulletin/internal/db"
	"github.com/campusboard/bulletin/internal/model"
	"github.com/campusboard/bulletin/internal/util"
	"github.com/campusboard/bulletin/internal/util/compression"
)

type DBAnnouncementRepository struct { // implements AnnouncementRepository
	db         db.DB
	compressor compression.Compressor

	feed *cache.FeedSnapshot
}

func NewDBAnnouncementRepository(db db.DB) *DBAnnouncementRepository {
	return &DBAnnouncementRepository{
		db: db,

		compressor: compression.ZstdCompressor{},

		feed: cache.NewFeedSnapshot(),
	}
}

func (r *DBAnnouncementRepository) Create(blocks []model.ContentBlock) (model.AnnouncementID, error) {
	id := model.AnnouncementID(uuid.New().String())
	createdAt := time.Now().UTC()

	data, err := model.EncodeBlocks(blocks)
	if err != nil {
		return "", apperr.Persistence(fmt.Errorf("error encoding announcement: %w", err))
	}

	compressed, err := r.compressor.Compress(data)
	if err != nil {
		return "", apperr.Persistence(fmt.Errorf("error compressing announcement: %w", err))
	}

	_, err = r.db.Exec(
		`INSERT INTO announcements (id, content, created_at) VALUES (?, ?, ?)`,
		id, compressed, createdAt,
	)
	if err != nil {
		return "", apperr.Persistence(fmt.Errorf("error inserting announcement: %w", err))
	}

	r.feed.Invalidate()

	repoLogger.Debug().
		Str("announcement_id", string(id)).
		Int("blocks", len(blocks)).
		Msg("Announcement created")

	return id, nil
}

func (r *DBAnnouncementRepository) ListAll() ([]model.Announcement, error) {
	announcements, _, gen, ok := r.feed.Get()
	if ok {
		return announcements, nil
	}

	announcements, hash, err := r.loadAll()
	if err != nil {
		return nil, err
	}

	// Presenting gen keeps a concurrent mutation's invalidation in force:
	// if one landed during loadAll this Set is a no-op and the next read
	// reloads.
	r.feed.Set(announcements, hash, gen)
	return announcements, nil
}

// FeedHash returns the content hash of the current feed snapshot, used as
// the listing's ETag. Loads the feed if the snapshot is stale.
func (r *DBAnnouncementRepository) FeedHash() (string, error) {
	_, hash, gen, ok := r.feed.Get()
	if ok {
		return hash, nil
	}

	announcements, hash, err := r.loadAll()
	if err != nil {
		return "", err
	}

	r.feed.Set(announcements, hash, gen)
	return hash, nil
}

func (r *DBAnnouncementRepository) loadAll() ([]model.Announcement, string, error) {
	rows, err := r.db.Query(
		`SELECT id, content, created_at FROM announcements ORDER BY created_at DESC, rowid ASC`,
	)
	if err != nil {
		return nil, "", apperr.Persistence(fmt.Errorf("error querying announcements: %w", err))
	}
	defer rows.Close()

	announcements := make([]model.Announcement, 0)
	var hashInput []byte

	for rows.Next() {
		var ann model.Announcement
		var compressed []byte

		if err := rows.Scan(&ann.ID, &compressed, &ann.CreatedAt); err != nil {
			return nil, "", apperr.Persistence(fmt.Errorf("error scanning announcement: %w", err))
		}

		// A row that fails to decode degrades the feed by one entry, never
		// the whole listing.
		blocks, err := r.decodeContent(compressed)
		if err != nil {
			repoLogger.Warn().
				Err(apperr.CorruptRecord(string(ann.ID), err)).
				Str("announcement_id", string(ann.ID)).
				Msg("Skipping corrupt announcement record")
			continue
		}
		ann.Blocks = blocks

		announcements = append(announcements, ann)
		hashInput = append(hashInput, ann.ID...)
		hashInput = append(hashInput, ann.CreatedAt.String()...)
	}
	if err := rows.Err(); err != nil {
		return nil, "", apperr.Persistence(fmt.Errorf("error iterating announcements: %w", err))
	}

	return announcements, util.ContentHash(hashInput), nil
}

func (r *DBAnnouncementRepository) decodeContent(compressed []byte) ([]model.ContentBlock, error) {
	data, err := r.compressor.Decompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("error decompressing content: %w", err)
	}
	return model.DecodeBlocks(data)
}

func (r *DBAnnouncementRepository) Delete(id model.AnnouncementID) error {
	_, err := r.db.Exec(`DELETE FROM announcements WHERE id = ?`, id)
	if err != nil {
		return apperr.Persistence(fmt.Errorf("error deleting announcement: %w", err))
	}

	// Deleting a row that never existed still succeeds.
	r.feed.Invalidate()

	repoLogger.Debug().Str("announcement_id", string(id)).Msg("Announcement deleted")
	return nil
}
