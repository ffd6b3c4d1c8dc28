// Package events holds the raw interaction event log: one table per
// event kind (play, like, share, download, save, profile visit).
// Rows are append-only; the analytics core only reads and counts them.
package events

import "time"

// Source identifies the discovery surface an interaction came from.
type Source string

const (
	SourceSearch   Source = "search"
	SourcePlaylist Source = "playlist"
	SourceProfile  Source = "profile"
	SourceRadio    Source = "radio"
	SourceChart    Source = "chart"
	SourceDirect   Source = "direct"
)

// Action distinguishes toggled interactions from their reversals.
type Action string

const (
	ActionLike   Action = "like"
	ActionUnlike Action = "unlike"
	ActionSave   Action = "save"
	ActionUnsave Action = "unsave"
)

// SharePlatform identifies where a track was shared to.
type SharePlatform string

const (
	PlatformTwitter   SharePlatform = "twitter"
	PlatformInstagram SharePlatform = "instagram"
	PlatformTikTok    SharePlatform = "tiktok"
	PlatformWhatsApp  SharePlatform = "whatsapp"
	PlatformLink      SharePlatform = "link"
)

// PlayEvent records a single playback of a track.
type PlayEvent struct {
	ID              uint      `gorm:"primaryKey;autoIncrement"`
	TrackID         uint      `gorm:"index:idx_play_track_timestamp;not null"`
	SessionID       string    `gorm:"index;size:64;not null"`
	Source          Source    `gorm:"index;not null;default:direct"`
	Country         string    `gorm:"index;size:2"`
	DurationSeconds float64   `gorm:"not null;default:0"`
	CompletionRate  float64   `gorm:"not null;default:0"`
	Timestamp       time.Time `gorm:"index:idx_play_track_timestamp;not null"`
	CreatedAt       time.Time
}

// LikeEvent records a like or unlike on a track.
type LikeEvent struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	TrackID   uint      `gorm:"index:idx_like_track_timestamp;not null"`
	SessionID string    `gorm:"index;size:64;not null"`
	Source    Source    `gorm:"not null;default:direct"`
	Action    Action    `gorm:"not null;default:like"`
	Timestamp time.Time `gorm:"index:idx_like_track_timestamp;not null"`
	CreatedAt time.Time
}

// ShareEvent records a track being shared to an external platform.
type ShareEvent struct {
	ID        uint          `gorm:"primaryKey;autoIncrement"`
	TrackID   uint          `gorm:"index:idx_share_track_timestamp;not null"`
	SessionID string        `gorm:"index;size:64;not null"`
	Platform  SharePlatform `gorm:"not null;default:link"`
	Timestamp time.Time     `gorm:"index:idx_share_track_timestamp;not null"`
	CreatedAt time.Time
}

// DownloadEvent records a track download.
type DownloadEvent struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	TrackID   uint      `gorm:"index:idx_download_track_timestamp;not null"`
	SessionID string    `gorm:"index;size:64;not null"`
	Source    Source    `gorm:"not null;default:direct"`
	Timestamp time.Time `gorm:"index:idx_download_track_timestamp;not null"`
	CreatedAt time.Time
}

// SaveEvent records a track being saved to or removed from a library.
type SaveEvent struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	TrackID   uint      `gorm:"index:idx_save_track_timestamp;not null"`
	SessionID string    `gorm:"index;size:64;not null"`
	Action    Action    `gorm:"not null;default:save"`
	Timestamp time.Time `gorm:"index:idx_save_track_timestamp;not null"`
	CreatedAt time.Time
}

// ProfileVisitEvent records a visit to an artist profile page.
type ProfileVisitEvent struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	ArtistID  uint      `gorm:"index:idx_visit_artist_timestamp;not null"`
	SessionID string    `gorm:"index;size:64;not null"`
	Source    Source    `gorm:"not null;default:direct"`
	Timestamp time.Time `gorm:"index:idx_visit_artist_timestamp;not null"`
	CreatedAt time.Time
}
