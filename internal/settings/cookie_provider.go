package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
)

const cookieName = "plant-care-settings"

// CookieProvider reads and writes settings on the current request's cookie.
// Useful for request-scoped contexts where the database row is not the
// source of truth; the handler decides which provider to use.
type CookieProvider struct {
	c *fiber.Ctx
}

// NewCookieProvider creates a settings provider bound to one request.
func NewCookieProvider(c *fiber.Ctx) *CookieProvider {
	return &CookieProvider{c: c}
}

// Load parses the settings cookie, falling back to defaults when the cookie
// is absent or unreadable.
func (p *CookieProvider) Load(_ context.Context) (Settings, error) {
	raw := p.c.Cookies(cookieName)
	if raw == "" {
		return Defaults(), nil
	}

	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		return Defaults(), fmt.Errorf("failed to decode settings cookie: %w", err)
	}

	var s Settings
	if err := json.Unmarshal([]byte(decoded), &s); err != nil {
		return Defaults(), fmt.Errorf("failed to unmarshal settings cookie: %w", err)
	}
	return s, nil
}

// Save writes the settings back onto the response as a cookie.
func (p *CookieProvider) Save(_ context.Context, s Settings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	p.c.Cookie(&fiber.Cookie{
		Name:     cookieName,
		Value:    url.QueryEscape(string(data)),
		Expires:  time.Now().AddDate(1, 0, 0),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return nil
}
