package upload

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/campusboard/bulletin/internal/apperr"
	"github.com/campusboard/bulletin/internal/model"
)

// Part is one binary payload accompanying a submission, in the same order
// as the image/file placeholders in the block sequence.
type Part struct {
	Filename string
	Data     []byte
}

type Pipeline struct {
	store BlobStore
}

func NewPipeline(store BlobStore) *Pipeline {
	return &Pipeline{store: store}
}

// Resolve walks the block sequence once, persisting each image/file block's
// binary part and rewriting its content to the stored reference. Text and
// link blocks pass through unchanged; trailing empty text blocks are
// dropped. All-or-nothing: any storage failure rolls back already-written
// blobs and no block sequence is returned.
func (p *Pipeline) Resolve(ctx context.Context, blocks []model.ContentBlock, parts []Part) ([]model.ContentBlock, error) {
	placeholders := 0
	for _, b := range blocks {
		if b.IsMedia() {
			placeholders++
		}
	}
	if placeholders != len(parts) {
		// Count drift means the client and server disagree about the
		// submission's shape. Not a user-correctable condition.
		return nil, apperr.MalformedSubmission(
			"submission has %d media blocks but %d binary parts", placeholders, len(parts))
	}

	resolved := make([]model.ContentBlock, 0, len(blocks))
	var written []string

	cursor := 0
	for _, block := range blocks {
		if !block.IsMedia() {
			resolved = append(resolved, block)
			continue
		}

		part := parts[cursor]
		cursor++

		name := storageName(part.Filename)
		ref, err := p.store.Save(ctx, name, part.Data)
		if err != nil {
			p.rollback(ctx, written)
			return nil, apperr.Storage(err)
		}
		written = append(written, name)

		block.Content = ref
		block.Binary = nil
		resolved = append(resolved, block)
	}

	return trimTrailingEmptyText(resolved), nil
}

func (p *Pipeline) rollback(ctx context.Context, names []string) {
	for _, name := range names {
		if err := p.store.Remove(ctx, name); err != nil {
			uploadLogger.Warn().Err(err).Str("name", name).Msg("Rollback failed for stored upload")
		}
	}
}

var extPattern = regexp.MustCompile(`^\.[A-Za-z0-9]{1,10}$`)

// storageName derives a collision-resistant object name. Only a sanitized
// extension survives from the user-controlled filename.
func storageName(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if !extPattern.MatchString(ext) {
		ext = ""
	}
	return "files-" + uuid.New().String() + ext
}

func trimTrailingEmptyText(blocks []model.ContentBlock) []model.ContentBlock {
	for len(blocks) > 0 && blocks[len(blocks)-1].IsEmptyText() {
		blocks = blocks[:len(blocks)-1]
	}
	return blocks
}
