package model

import "time"

type AnnouncementID string

// Announcement is one published entry in the feed. Created only through a
// successful submission and immutable afterwards, except for deletion.
type Announcement struct {
	ID        AnnouncementID
	Blocks    []ContentBlock
	CreatedAt time.Time
}
