// Package composer implements the draft editing model: an ordered block
// sequence under active edit, ending in an open text block.
package composer

import (
	"net/url"
	"strings"

	"github.com/campusboard/bulletin/internal/apperr"
	"github.com/campusboard/bulletin/internal/model"
	"github.com/campusboard/bulletin/internal/upload"
)

type DraftID string

// Draft is an in-progress announcement. The zero draft is empty; the first
// AppendText opens the trailing text block. Whenever blocks are present,
// the last one is a text block so typing always has somewhere to go.
type Draft struct {
	ID     DraftID
	blocks []model.ContentBlock
}

// Blocks returns a copy of the draft's block sequence.
func (d *Draft) Blocks() []model.ContentBlock {
	out := make([]model.ContentBlock, len(d.blocks))
	copy(out, d.blocks)
	return out
}

func (d *Draft) Len() int {
	return len(d.blocks)
}

// AppendText replaces the trailing text block's content, opening one if the
// draft is empty or ends in a non-text block. Earlier blocks are never touched.
func (d *Draft) AppendText(content string) {
	if n := len(d.blocks); n > 0 && d.blocks[n-1].Kind == model.BlockText {
		d.blocks[n-1].Content = content
		return
	}
	d.blocks = append(d.blocks, model.TextBlock(content))
}

// InsertLink appends a link block followed by a fresh open text block.
func (d *Draft) InsertLink(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return apperr.Validation("invalid URL %q: not an absolute URL", rawURL)
	}

	d.blocks = append(d.blocks, model.LinkBlock(u.String()), model.TextBlock(""))
	return nil
}

// InsertMedia appends one block per accepted file, then a fresh open text
// block. For image blocks only PNG and JPEG payloads are accepted; the
// names of rejected files are returned so the caller can report them.
// Rejection is partial and non-fatal.
func (d *Draft) InsertMedia(files []model.LocalBinary, kind model.BlockKind) (rejected []string, err error) {
	if kind != model.BlockImage && kind != model.BlockFile {
		return nil, apperr.Validation("cannot insert media of kind %q", kind)
	}

	var accepted []model.ContentBlock
	for _, f := range files {
		f := f
		if kind == model.BlockImage && f.MimeType != "image/png" && f.MimeType != "image/jpeg" {
			rejected = append(rejected, f.Filename)
			continue
		}
		accepted = append(accepted, model.MediaBlock(kind, &f))
	}

	if len(accepted) > 0 {
		d.blocks = append(d.blocks, accepted...)
		d.blocks = append(d.blocks, model.TextBlock(""))
	}

	return rejected, nil
}

// RemoveAt removes the block at index. Removing the sole remaining block
// leaves an empty draft.
func (d *Draft) RemoveAt(index int) error {
	if index < 0 || index >= len(d.blocks) {
		return apperr.Validation("block index %d out of range", index)
	}
	d.blocks = append(d.blocks[:index], d.blocks[index+1:]...)
	return nil
}

// HasContent reports whether the draft holds anything worth publishing:
// any non-text block, or any text block with non-whitespace content.
func (d *Draft) HasContent() bool {
	for _, b := range d.blocks {
		if b.Kind != model.BlockText {
			return true
		}
		if strings.TrimSpace(b.Content) != "" {
			return true
		}
	}
	return false
}

// ToSubmission produces the wire form of the draft: the block sequence with
// every local binary swapped for the placeholder content value, plus the
// binary parts in the same order as their blocks. Empty drafts are rejected
// here, before any network or storage work happens.
func (d *Draft) ToSubmission() ([]model.ContentBlock, []upload.Part, error) {
	if !d.HasContent() {
		return nil, nil, apperr.Validation("draft has no content")
	}

	blocks := make([]model.ContentBlock, 0, len(d.blocks))
	var parts []upload.Part

	for _, b := range d.blocks {
		if b.IsMedia() {
			if b.Binary == nil {
				// A media block without a payload would desync the part
				// cursor on the server.
				return nil, nil, apperr.Validation("media block missing its payload")
			}
			parts = append(parts, upload.Part{
				Filename: b.Binary.Filename,
				Data:     b.Binary.Data,
			})
			b.Content = model.Placeholder
			b.Binary = nil
		}
		blocks = append(blocks, b)
	}

	return blocks, parts, nil
}
