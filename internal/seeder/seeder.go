// Package seeder populates a development database with a realistic
// listening history: artists with catalogs, playlists, and a month of
// play, like, share, download and save events skewed so a few artists
// trend while the rest simmer.
package seeder

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge"
	"gorm.io/gorm"

	"soundpulse/internal/catalog"
	"soundpulse/internal/events"
	"soundpulse/internal/users"
)

const (
	seedAdminEmail    = "admin@soundpulse.local"
	seedAdminPassword = "password123456"

	tracksPerArtist = 4
	seedWindowDays  = 30
)

var seedGenres = []string{
	"electronic", "hip-hop", "indie-rock", "house", "ambient",
	"jazz", "folk", "techno", "r&b", "pop",
}

var seedSources = []events.Source{
	events.SourceSearch, events.SourcePlaylist, events.SourceProfile,
	events.SourceRadio, events.SourceChart, events.SourceDirect,
}

var seedPlatforms = []events.SharePlatform{
	events.PlatformTwitter, events.PlatformInstagram, events.PlatformTikTok,
	events.PlatformWhatsApp, events.PlatformLink,
}

// seedCountries weights listener geography toward a handful of major
// markets with a long tail.
var seedCountries = []string{
	"US", "US", "US", "GB", "GB", "DE", "BR", "MX", "FR", "JP",
	"NL", "SE", "CA", "AU", "ES", "IT", "PL", "IN", "NG", "KR",
}

// Options controls how much data the seeder generates.
type Options struct {
	Artists int
	Events  int
}

// Seeder handles the data seeding process.
type Seeder struct {
	DBManager cartridge.DBManager
	Logger    *slog.Logger
	Opts      Options
}

// NewSeeder creates a new seeder instance
func NewSeeder(dbManager cartridge.DBManager, logger *slog.Logger, opts Options) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Artists < 1 {
		opts.Artists = 25
	}
	if opts.Events < opts.Artists*10 {
		opts.Events = opts.Artists * 10
	}
	return &Seeder{
		DBManager: dbManager,
		Logger:    logger,
		Opts:      opts,
	}
}

// Run executes the seeding process
func (s *Seeder) Run(ctx context.Context) error {
	start := time.Now()
	s.Logger.Info("Starting database seeding...",
		slog.Int("artists", s.Opts.Artists), slog.Int("events", s.Opts.Events))

	if err := s.seedAdminUser(); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	artists, tracks, err := s.seedCatalog()
	if err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}

	if err := s.seedPlaylists(tracks); err != nil {
		return fmt.Errorf("failed to seed playlists: %w", err)
	}

	created, err := s.seedEvents(ctx, artists, tracks)
	if err != nil {
		return fmt.Errorf("failed to seed events: %w", err)
	}

	s.Logger.Info("Seeding completed successfully",
		slog.Int("artists", len(artists)),
		slog.Int("tracks", len(tracks)),
		slog.Int("events", created),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

func (s *Seeder) seedAdminUser() error {
	db := s.DBManager.GetConnection()
	if err := users.CreateAdminUser(db, seedAdminEmail, seedAdminPassword); err != nil {
		if errors.Is(err, users.ErrUserExists) {
			s.Logger.Info("Admin user already exists, skipping", slog.String("email", seedAdminEmail))
			return nil
		}
		return err
	}
	s.Logger.Info("Created admin user", slog.String("email", seedAdminEmail))
	return nil
}

// seedCatalog creates artists and their tracks. Existing artists are
// reused so repeated seed runs extend the history instead of
// duplicating profiles.
func (s *Seeder) seedCatalog() ([]catalog.Artist, []catalog.Track, error) {
	db := s.DBManager.GetConnection()

	artists := make([]catalog.Artist, 0, s.Opts.Artists)
	tracks := make([]catalog.Track, 0, s.Opts.Artists*tracksPerArtist)

	for i := 0; i < s.Opts.Artists; i++ {
		genre := seedGenres[i%len(seedGenres)]
		artist := catalog.Artist{
			Name:          fmt.Sprintf("Seed Artist %02d", i+1),
			Genre:         genre,
			PlatformCount: rand.IntN(5) + 1,
			GenreFit:      50 + rand.Float64()*50,
		}

		var existing catalog.Artist
		err := db.Where("name = ?", artist.Name).First(&existing).Error
		switch {
		case err == nil:
			artist = existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := db.Create(&artist).Error; err != nil {
				return nil, nil, err
			}
		default:
			return nil, nil, err
		}
		artists = append(artists, artist)

		var trackCount int64
		if err := db.Model(&catalog.Track{}).Where("artist_id = ?", artist.ID).Count(&trackCount).Error; err != nil {
			return nil, nil, err
		}
		for t := int(trackCount); t < tracksPerArtist; t++ {
			track := catalog.Track{
				ArtistID: artist.ID,
				Title:    fmt.Sprintf("%s - Track %d", artist.Name, t+1),
				Genre:    genre,
				Public:   true,
			}
			if err := db.Create(&track).Error; err != nil {
				return nil, nil, err
			}
		}

		var artistTracks []catalog.Track
		if err := db.Where("artist_id = ?", artist.ID).Find(&artistTracks).Error; err != nil {
			return nil, nil, err
		}
		tracks = append(tracks, artistTracks...)
	}

	return artists, tracks, nil
}

func (s *Seeder) seedPlaylists(tracks []catalog.Track) error {
	if len(tracks) == 0 {
		return nil
	}
	db := s.DBManager.GetConnection()

	names := []string{"Fresh Finds", "Late Night Drive", "Morning Coffee", "Underground Heat"}
	for _, name := range names {
		playlist := catalog.Playlist{Name: name, Public: true}

		var existing catalog.Playlist
		err := db.Where("name = ?", name).First(&existing).Error
		switch {
		case err == nil:
			continue
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := db.Create(&playlist).Error; err != nil {
				return err
			}
		default:
			return err
		}

		// Each playlist picks a random slice of the catalog.
		count := rand.IntN(10) + 5
		for pos := 0; pos < count; pos++ {
			placement := catalog.PlaylistTrack{
				PlaylistID: playlist.ID,
				TrackID:    tracks[rand.IntN(len(tracks))].ID,
				Position:   pos,
			}
			// The playlist/track pair is unique; collisions from the
			// random pick are fine to skip.
			db.Create(&placement)
		}
	}
	return nil
}

// seedEvents generates the listening history. A quarter of the artists
// get a popularity boost so scores spread out instead of clustering.
func (s *Seeder) seedEvents(ctx context.Context, artists []catalog.Artist, tracks []catalog.Track) (int, error) {
	if len(tracks) == 0 {
		return 0, nil
	}
	db := s.DBManager.GetConnection()

	boosted := make(map[uint]bool, len(artists)/4)
	for i, artist := range artists {
		if i%4 == 0 {
			boosted[artist.ID] = true
		}
	}

	sessionPool := make([]string, 200)
	for i := range sessionPool {
		sessionPool[i] = fmt.Sprintf("seed-session-%03d", i)
	}

	created := 0
	for created < s.Opts.Events {
		if ctx.Err() != nil {
			return created, ctx.Err()
		}

		track := tracks[rand.IntN(len(tracks))]
		// Boosted artists soak up extra plays.
		if !boosted[track.ArtistID] && rand.Float64() < 0.5 {
			track = tracks[rand.IntN(len(tracks))]
		}

		ageSeconds := rand.IntN(seedWindowDays * 24 * 60 * 60)
		// Recent days are denser, which gives the growth signals
		// something to measure.
		if rand.Float64() < 0.4 {
			ageSeconds = rand.IntN(7 * 24 * 60 * 60)
		}
		ts := time.Now().UTC().Add(-time.Duration(ageSeconds) * time.Second)

		completion := 0.3 + rand.Float64()*0.7
		if boosted[track.ArtistID] {
			completion = 0.6 + rand.Float64()*0.4
		}

		play := events.PlayEvent{
			TrackID:         track.ID,
			SessionID:       sessionPool[rand.IntN(len(sessionPool))],
			Source:          seedSources[rand.IntN(len(seedSources))],
			Country:         seedCountries[rand.IntN(len(seedCountries))],
			DurationSeconds: completion * 180,
			CompletionRate:  completion,
			Timestamp:       ts,
		}
		if err := db.Create(&play).Error; err != nil {
			return created, err
		}
		created++

		// Downstream interactions trail plays at rough platform rates.
		if rand.Float64() < 0.15 {
			db.Create(&events.LikeEvent{
				TrackID: track.ID, SessionID: play.SessionID,
				Source: play.Source, Action: events.ActionLike, Timestamp: ts,
			})
		}
		if rand.Float64() < 0.04 {
			db.Create(&events.ShareEvent{
				TrackID: track.ID, SessionID: play.SessionID,
				Platform: seedPlatforms[rand.IntN(len(seedPlatforms))], Timestamp: ts,
			})
		}
		if rand.Float64() < 0.03 {
			db.Create(&events.DownloadEvent{
				TrackID: track.ID, SessionID: play.SessionID,
				Source: play.Source, Timestamp: ts,
			})
		}
		if rand.Float64() < 0.08 {
			db.Create(&events.SaveEvent{
				TrackID: track.ID, SessionID: play.SessionID,
				Action: events.ActionSave, Timestamp: ts,
			})
		}
		if rand.Float64() < 0.05 {
			db.Create(&events.ProfileVisitEvent{
				ArtistID: track.ArtistID, SessionID: play.SessionID,
				Source: play.Source, Timestamp: ts,
			})
		}
	}

	return created, nil
}
