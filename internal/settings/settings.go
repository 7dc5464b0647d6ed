package settings

import "context"

// Settings holds the user's preferences. GeminiAPIKey is an optional
// override for the server-configured key.
type Settings struct {
	Theme            string `json:"theme"`
	RemindersEnabled bool   `json:"remindersEnabled"`
	Timezone         string `json:"timezone"`
	Location         string `json:"location"`
	GeminiAPIKey     string `json:"geminiApiKey,omitempty"`
}

// Defaults returns the settings used before the user has saved any.
func Defaults() Settings {
	return Settings{
		Theme:    "light",
		Timezone: "UTC",
	}
}

// Provider abstracts where settings live. The caller picks the concrete
// implementation (database-backed or request-cookie-backed) explicitly;
// there is no environment sniffing.
type Provider interface {
	Load(ctx context.Context) (Settings, error)
	Save(ctx context.Context, s Settings) error
}
