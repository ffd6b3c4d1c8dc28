// Package v1 is the public event ingestion API consumed by the player
// clients.
package v1

import (
	"errors"
	"net/http"
	"time"

	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"soundpulse/internal/events"
)

const (
	msgEventAdded     = "Event added successfully"
	errInvalidRequest = "Invalid request"
)

// CreateEventParams is the wire shape of one interaction event.
type CreateEventParams struct {
	Kind            string    `json:"kind"`
	TrackID         uint      `json:"trackId"`
	ArtistID        uint      `json:"artistId"`
	SessionID       string    `json:"sessionId"`
	Source          string    `json:"source"`
	Platform        string    `json:"platform"`
	Action          string    `json:"action"`
	DurationSeconds float64   `json:"durationSeconds"`
	CompletionRate  float64   `json:"completionRate"`
	Timestamp       time.Time `json:"timestamp"`
}

// CreateEventPublicAPIHandler ingests one raw interaction event.
func CreateEventPublicAPIHandler(ctx *cartridge.Context) error {
	var params CreateEventParams
	if err := ctx.BodyParser(&params); err != nil {
		ctx.Logger.Debug("Failed to parse event request", slog.Any("error", err))
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": errInvalidRequest,
		})
	}

	input := &events.CollectInput{
		Kind:            events.Kind(params.Kind),
		TrackID:         params.TrackID,
		ArtistID:        params.ArtistID,
		SessionID:       params.SessionID,
		Source:          events.Source(params.Source),
		Platform:        events.SharePlatform(params.Platform),
		Action:          events.Action(params.Action),
		DurationSeconds: params.DurationSeconds,
		CompletionRate:  params.CompletionRate,
		Timestamp:       params.Timestamp,
		IPAddress:       getClientIP(ctx.Ctx),
	}

	db := ctx.DBManager.GetConnection()
	if err := events.CollectEvent(db, ctx.Logger, input); err != nil {
		if errors.Is(err, events.ErrUnknownKind) || errors.Is(err, events.ErrMissingSubject) {
			return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
				"code":  "INVALID_EVENT",
			})
		}
		ctx.Logger.Error("Failed to collect event",
			slog.String("kind", params.Kind), slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to collect event",
			"code":  "COLLECTION_ERROR",
		})
	}

	ctx.Logger.Debug("Collected event",
		slog.String("kind", params.Kind), slog.Uint64("track_id", uint64(params.TrackID)))
	return ctx.Status(http.StatusAccepted).JSON(fiber.Map{
		"message": msgEventAdded,
		"status":  http.StatusAccepted,
	})
}
