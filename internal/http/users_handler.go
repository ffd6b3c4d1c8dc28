package http

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/crypto"
	"gorm.io/gorm"

	"soundpulse/internal/users"
)

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// ProcessLoginAction authenticates a user and sets the session cookie.
func ProcessLoginAction(ctx *cartridge.Context) error {
	var req loginRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	db := ctx.DBManager.GetConnection()

	user, err := users.FindByEmail(db, email)
	passwordValid := false
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.Logger.Error("Failed to look up user", slog.Any("error", err))
			return serverError(ctx)
		}
		// Burn a comparison so response timing doesn't reveal whether
		// the email exists.
		dummyHash := "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
		crypto.VerifyPassword(dummyHash, req.Password)
	} else {
		passwordValid = crypto.VerifyPassword(user.EncryptedPassword, req.Password)
	}

	if !passwordValid {
		ctx.Logger.Debug("Invalid login attempt", slog.String("email", email))
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "invalid email or password",
		})
	}

	if err := ctx.Session.SetSession(ctx.Ctx, user.ID); err != nil {
		ctx.Logger.Error("Failed to set session", slog.Any("error", err))
		return serverError(ctx)
	}

	ctx.Logger.Debug("Login successful",
		slog.String("email", email), slog.Int("userId", int(user.ID)))

	return ctx.JSON(fiber.Map{
		"user_id":  user.ID,
		"is_admin": user.IsAdmin,
	})
}

// LogoutAction clears the session.
func LogoutAction(ctx *cartridge.Context) error {
	ctx.Session.ClearSession(ctx.Ctx)
	return ctx.JSON(fiber.Map{"message": "logged out"})
}
