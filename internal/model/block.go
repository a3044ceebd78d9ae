// Package model defines core data structures and types for the announcement board.
package model

import (
	"encoding/json"
	"fmt"
)

type BlockKind string

const (
	BlockText  BlockKind = "text"
	BlockLink  BlockKind = "link"
	BlockImage BlockKind = "image"
	BlockFile  BlockKind = "file"
)

// Placeholder is the content value carried by image/file blocks on the wire
// while the actual bytes travel as separate multipart parts.
const Placeholder = "FILE_OR_IMAGE_PLACEHOLDER"

// LocalBinary is a client-held payload that has not been durably stored yet.
// It only ever exists inside an unsubmitted draft.
type LocalBinary struct {
	Filename string
	MimeType string
	Data     []byte
}

// ContentBlock is one tagged unit of announcement content. Text and link
// blocks carry their content inline. Image and file blocks carry either a
// stable reference (after upload) or a LocalBinary (draft only).
type ContentBlock struct {
	Kind    BlockKind
	Content string

	// Binary is set only while the block lives in a draft. Persisted
	// sequences never carry it.
	Binary *LocalBinary
}

func TextBlock(content string) ContentBlock {
	return ContentBlock{Kind: BlockText, Content: content}
}

func LinkBlock(url string) ContentBlock {
	return ContentBlock{Kind: BlockLink, Content: url}
}

func MediaBlock(kind BlockKind, bin *LocalBinary) ContentBlock {
	return ContentBlock{Kind: kind, Content: Placeholder, Binary: bin}
}

// IsMedia reports whether the block references a binary payload.
func (b ContentBlock) IsMedia() bool {
	return b.Kind == BlockImage || b.Kind == BlockFile
}

// IsEmptyText reports whether the block is a text block with no content.
func (b ContentBlock) IsEmptyText() bool {
	return b.Kind == BlockText && b.Content == ""
}

type blockJSON struct {
	Type    BlockKind `json:"type"`
	Content string    `json:"content"`
}

func (b ContentBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(blockJSON{Type: b.Kind, Content: b.Content})
}

func (b *ContentBlock) UnmarshalJSON(data []byte) error {
	var raw blockJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch raw.Type {
	case BlockText, BlockLink, BlockImage, BlockFile:
	default:
		return fmt.Errorf("unknown block type %q", raw.Type)
	}

	b.Kind = raw.Type
	b.Content = raw.Content
	b.Binary = nil
	return nil
}

// DecodeBlocks parses a serialized block sequence and validates every tag.
func DecodeBlocks(data []byte) ([]ContentBlock, error) {
	var blocks []ContentBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return nil, fmt.Errorf("error decoding block sequence: %w", err)
	}
	return blocks, nil
}

// EncodeBlocks serializes a block sequence, order preserved.
func EncodeBlocks(blocks []ContentBlock) ([]byte, error) {
	data, err := json.Marshal(blocks)
	if err != nil {
		return nil, fmt.Errorf("error encoding block sequence: %w", err)
	}
	return data, nil
}
