// package models defines the data model for the queue service
package models

import (
	"strings"
	"time"
)

// Service identifiers reported by the resolver.
const (
	ServiceYouTube    = "youtube"
	ServiceSoundCloud = "soundcloud"
	ServiceCustom     = "custom"
	ServiceUnknown    = "unknown"
)

// BasicInfo is the resolved metadata of one track.
type BasicInfo struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	ServiceID     string `json:"service_id"`
	LengthSeconds int    `json:"length_seconds"`
	Thumbnail     string `json:"thumbnail,omitempty"`
	IsLive        bool   `json:"is_live"`
}

// Length returns the track duration as a [time.Duration].
func (b BasicInfo) Length() time.Duration {
	return time.Duration(b.LengthSeconds) * time.Second
}

// AddedBy identifies the contributor of an entry. The display name is captured at insertion time.
type AddedBy struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

// Entry is one queued track. Entries are values: reordering and removal act on positions, never on the entry.
type Entry struct {
	ID      string    `json:"id"`
	Info    BasicInfo `json:"info"`
	AddedBy AddedBy   `json:"added_by"`
}

// Unknown contributor used when a reference has no attributable user.
var Unknown = AddedBy{UserID: "0", DisplayName: "unknown"}

// Mode selects where Enqueue inserts.
type Mode int

const (
	Append Mode = iota
	Prepend
)

func (m Mode) String() string {
	switch m {
	case Append:
		return "append"
	case Prepend:
		return "prepend"
	default:
		return ""
	}
}

// ParseMode reads "append" or "prepend". An empty string selects [Append].
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "append":
		return Append, true
	case "prepend", "next":
		return Prepend, true
	default:
		return Append, false
	}
}

// Ref is an unresolved track reference plus an optional type hint.
type Ref struct {
	URL  string `json:"url"`
	Hint string `json:"hint,omitempty"`
	// Known carries metadata the caller already fetched; Enqueue skips resolution when set.
	Known *BasicInfo `json:"known,omitempty"`
}

// Snapshot is a persisted copy of a session's queue and flags.
type Snapshot struct {
	SessionID    string
	Sequence     int
	Entries      []Entry
	Fairness     bool
	QueueLoop    bool
	TrackLoop    bool
	AutoContinue bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Playable points at the raw audio bytes of a resolved entry.
type Playable struct {
	StreamURL     string `json:"stream_url"`
	ContentLength int64  `json:"content_length"`
	MimeType      string `json:"mime_type,omitempty"`
}
