// Package http holds the JSON handlers for the analytics and scoring
// API surface.
package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"soundpulse/internal/config"
	"soundpulse/internal/scoring"
	"soundpulse/internal/users"
)

// authenticatedUser resolves the session to a user row, or nil when
// the request carries no valid session.
func authenticatedUser(ctx *cartridge.Context) *users.User {
	userID, ok := ctx.Session.GetUserID(ctx.Ctx)
	if !ok {
		return nil
	}
	user, err := users.FindByID(ctx.DBManager.GetConnection(), userID)
	if err != nil {
		return nil
	}
	return user
}

func unauthorized(ctx *cartridge.Context) error {
	return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "authentication required",
	})
}

func forbidden(ctx *cartridge.Context) error {
	return ctx.Status(fiber.StatusForbidden).JSON(fiber.Map{
		"error": "admin access required",
	})
}

func serverError(ctx *cartridge.Context) error {
	return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "internal server error",
	})
}

func notFound(ctx *cartridge.Context, msg string) error {
	return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error": msg,
	})
}

// newScoringService builds a request-scoped scoring service from the
// current scoring configuration.
func newScoringService(ctx *cartridge.Context) *scoring.Service {
	cfg := config.GetConfig()
	engine := scoring.NewEngine(cfg.ScoreWeights, cfg.ScoreScales, cfg.ScoreCategories)
	return scoring.NewService(ctx.DBManager.GetConnection(), ctx.Logger, engine)
}
