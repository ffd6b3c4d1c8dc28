package catalog

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrArtistNotFound is returned when an artist lookup fails.
var ErrArtistNotFound = errors.New("artist not found")

// FindArtist retrieves an artist by ID.
func FindArtist(db *gorm.DB, artistID uint) (*Artist, error) {
	var artist Artist
	if err := db.First(&artist, artistID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrArtistNotFound
		}
		return nil, err
	}
	return &artist, nil
}

// FindArtistByUser retrieves the artist profile owned by a user.
func FindArtistByUser(db *gorm.DB, userID uint) (*Artist, error) {
	var artist Artist
	if err := db.Where("user_id = ?", userID).First(&artist).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrArtistNotFound
		}
		return nil, err
	}
	return &artist, nil
}

// GetPublicTrackIDs returns the IDs of an artist's public tracks.
func GetPublicTrackIDs(db *gorm.DB, artistID uint) ([]uint, error) {
	var ids []uint
	err := db.Model(&Track{}).
		Where("artist_id = ? AND public = ?", artistID, true).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("error fetching track ids for artist %d: %w", artistID, err)
	}
	return ids, nil
}

// GetAllPublicTrackIDs returns the IDs of every public track.
func GetAllPublicTrackIDs(db *gorm.DB) ([]uint, error) {
	var ids []uint
	err := db.Model(&Track{}).
		Where("public = ?", true).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("error fetching public track ids: %w", err)
	}
	return ids, nil
}

// GetScorableArtists returns every artist with at least one public
// track. This is the batch recalculation population.
func GetScorableArtists(db *gorm.DB) ([]Artist, error) {
	var artists []Artist
	err := db.Where("id IN (?)",
		db.Model(&Track{}).Select("DISTINCT artist_id").Where("public = ?", true),
	).Order("id ASC").Find(&artists).Error
	if err != nil {
		return nil, fmt.Errorf("error fetching scorable artists: %w", err)
	}
	return artists, nil
}

// CountScorableArtists counts artists with at least one public track.
func CountScorableArtists(db *gorm.DB) (int64, error) {
	var count int64
	err := db.Model(&Artist{}).
		Where("id IN (?)",
			db.Model(&Track{}).Select("DISTINCT artist_id").Where("public = ?", true),
		).Count(&count).Error
	return count, err
}

// GetTracksByIDs retrieves tracks by their IDs.
func GetTracksByIDs(db *gorm.DB, ids []uint) ([]Track, error) {
	tracks := []Track{}
	if len(ids) == 0 {
		return tracks, nil
	}
	err := db.Where("id IN ?", ids).Find(&tracks).Error
	return tracks, err
}

// PlaylistPlacement reports how often an artist's tracks appear in playlists.
type PlaylistPlacement struct {
	PlaylistID   uint   `json:"playlist_id"`
	PlaylistName string `json:"playlist_name"`
	TrackCount   int64  `json:"track_count"`
}

// GetPlaylistPlacements returns, for the given tracks, the playlists
// containing them and how many of the tracks each playlist holds.
func GetPlaylistPlacements(db *gorm.DB, trackIDs []uint, limit int) ([]PlaylistPlacement, error) {
	placements := []PlaylistPlacement{}
	if len(trackIDs) == 0 {
		return placements, nil
	}
	err := db.Model(&PlaylistTrack{}).
		Select("playlist_tracks.playlist_id, playlists.name as playlist_name, COUNT(playlist_tracks.track_id) as track_count").
		Joins("JOIN playlists ON playlists.id = playlist_tracks.playlist_id").
		Where("playlist_tracks.track_id IN ?", trackIDs).
		Group("playlist_tracks.playlist_id, playlists.name").
		Order("track_count DESC").
		Limit(limit).
		Scan(&placements).Error
	if err != nil {
		return nil, fmt.Errorf("error fetching playlist placements: %w", err)
	}
	return placements, nil
}
