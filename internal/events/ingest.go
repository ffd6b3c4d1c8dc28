package events

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"soundpulse/internal/pkg/geoip"
)

// Kind names an ingestable event kind on the wire.
type Kind string

const (
	KindPlay         Kind = "play"
	KindLike         Kind = "like"
	KindShare        Kind = "share"
	KindDownload     Kind = "download"
	KindSave         Kind = "save"
	KindProfileVisit Kind = "profile_visit"
)

// ErrUnknownKind is returned when the ingest payload names no known event kind.
var ErrUnknownKind = errors.New("unknown event kind")

// ErrMissingSubject is returned when the payload carries neither a
// track nor an artist reference appropriate for its kind.
var ErrMissingSubject = errors.New("event is missing its track or artist reference")

// CollectInput carries one raw interaction from the ingest API.
type CollectInput struct {
	Kind            Kind
	TrackID         uint
	ArtistID        uint
	SessionID       string
	Source          Source
	Platform        SharePlatform
	Action          Action
	DurationSeconds float64
	CompletionRate  float64
	Timestamp       time.Time
	IPAddress       string
}

// CollectEvent appends one raw event row for the input. The listener
// country on plays is resolved from the client IP when a GeoIP
// database is configured; events are stored regardless.
func CollectEvent(db *gorm.DB, logger *slog.Logger, input *CollectInput) error {
	ts := input.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	source := input.Source
	if source == "" {
		source = SourceDirect
	}

	switch input.Kind {
	case KindPlay:
		if input.TrackID == 0 {
			return ErrMissingSubject
		}
		country := geoip.CountryCode(input.IPAddress)
		return wrapCreate(db.Create(&PlayEvent{
			TrackID:         input.TrackID,
			SessionID:       input.SessionID,
			Source:          source,
			Country:         country,
			DurationSeconds: input.DurationSeconds,
			CompletionRate:  input.CompletionRate,
			Timestamp:       ts,
		}), input.Kind)
	case KindLike:
		if input.TrackID == 0 {
			return ErrMissingSubject
		}
		action := input.Action
		if action != ActionUnlike {
			action = ActionLike
		}
		return wrapCreate(db.Create(&LikeEvent{
			TrackID:   input.TrackID,
			SessionID: input.SessionID,
			Source:    source,
			Action:    action,
			Timestamp: ts,
		}), input.Kind)
	case KindShare:
		if input.TrackID == 0 {
			return ErrMissingSubject
		}
		platform := input.Platform
		if platform == "" {
			platform = PlatformLink
		}
		return wrapCreate(db.Create(&ShareEvent{
			TrackID:   input.TrackID,
			SessionID: input.SessionID,
			Platform:  platform,
			Timestamp: ts,
		}), input.Kind)
	case KindDownload:
		if input.TrackID == 0 {
			return ErrMissingSubject
		}
		return wrapCreate(db.Create(&DownloadEvent{
			TrackID:   input.TrackID,
			SessionID: input.SessionID,
			Source:    source,
			Timestamp: ts,
		}), input.Kind)
	case KindSave:
		if input.TrackID == 0 {
			return ErrMissingSubject
		}
		action := input.Action
		if action != ActionUnsave {
			action = ActionSave
		}
		return wrapCreate(db.Create(&SaveEvent{
			TrackID:   input.TrackID,
			SessionID: input.SessionID,
			Action:    action,
			Timestamp: ts,
		}), input.Kind)
	case KindProfileVisit:
		if input.ArtistID == 0 {
			return ErrMissingSubject
		}
		return wrapCreate(db.Create(&ProfileVisitEvent{
			ArtistID:  input.ArtistID,
			SessionID: input.SessionID,
			Source:    source,
			Timestamp: ts,
		}), input.Kind)
	default:
		logger.Debug("Rejected event with unknown kind", slog.String("kind", string(input.Kind)))
		return ErrUnknownKind
	}
}

func wrapCreate(tx *gorm.DB, kind Kind) error {
	if tx.Error != nil {
		return fmt.Errorf("failed to store %s event: %w", kind, tx.Error)
	}
	return nil
}
