// Package catalog holds the artist, track and playlist models the
// analytics core reads. The CRUD surface that maintains them lives
// outside this service; the core needs them to resolve artists to
// track sets and to derive artist-level scoring signals.
package catalog

import "time"

// Artist is a music artist profile.
type Artist struct {
	ID     uint   `gorm:"primaryKey;autoIncrement"`
	UserID uint   `gorm:"index"`
	Name   string `gorm:"index;not null"`
	Genre  string `gorm:"index"`
	// PlatformCount is the number of external platforms the artist is
	// present on, maintained by the profile-sync surface. Feeds the
	// cross-platform scoring signal.
	PlatformCount int `gorm:"not null;default:0"`
	// GenreFit is a 0-100 affinity signal between the artist's catalog
	// and their declared genre, produced by the recommendation surface.
	GenreFit  float64 `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Track is a single released track.
type Track struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	ArtistID  uint   `gorm:"index;not null"`
	Title     string `gorm:"not null"`
	Genre     string `gorm:"index"`
	Public    bool   `gorm:"index;not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Playlist is a user-curated track list.
type Playlist struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"not null"`
	OwnerID   uint   `gorm:"index"`
	Public    bool   `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PlaylistTrack places a track in a playlist.
type PlaylistTrack struct {
	ID         uint `gorm:"primaryKey;autoIncrement"`
	PlaylistID uint `gorm:"uniqueIndex:idx_playlist_track;not null"`
	TrackID    uint `gorm:"uniqueIndex:idx_playlist_track;not null"`
	Position   int  `gorm:"not null;default:0"`
	CreatedAt  time.Time
}
