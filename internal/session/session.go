// Package session supplies the authenticated session each backend needs:
// an OAuth token source for Google Tasks and API credentials for Habitica
// and Todoist.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"srtask/internal/backend/habitica"
	"srtask/internal/config"
)

// GoogleTasksScope is the OAuth scope requested at login.
const GoogleTasksScope = "https://www.googleapis.com/auth/tasks"

// ErrNotConfigured is returned when a backend's credentials are missing.
var ErrNotConfigured = errors.New("not configured")

// OAuthConfig loads the Google OAuth client from oauth_client.json.
func OAuthConfig(cfg *config.Config) (*oauth2.Config, error) {
	clientJSON, err := os.ReadFile(cfg.OAuthClientPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s not found in %s", ErrNotConfigured, config.OAuthClientFile, cfg.Dir)
		}
		return nil, fmt.Errorf("failed to read %s: %w", config.OAuthClientFile, err)
	}

	oauthConfig, err := google.ConfigFromJSON(clientJSON, GoogleTasksScope)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", config.OAuthClientFile, err)
	}
	return oauthConfig, nil
}

// LoadToken reads the stored token.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: no token, run 'srtask login'", ErrNotConfigured)
		}
		return nil, fmt.Errorf("failed to read %s: %w", config.TokenFile, err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", config.TokenFile, err)
	}
	return &token, nil
}

// SaveToken saves an OAuth token to a file with mode 0600.
func SaveToken(path string, token *oauth2.Token) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Google returns an auto-refreshing token source for the stored token.
// Refreshed tokens are written back to token.json.
func Google(ctx context.Context, cfg *config.Config) (oauth2.TokenSource, error) {
	oauthConfig, err := OAuthConfig(cfg)
	if err != nil {
		return nil, err
	}
	token, err := LoadToken(cfg.TokenPath())
	if err != nil {
		return nil, err
	}

	return &savingSource{
		base:   oauthConfig.TokenSource(ctx, token),
		path:   cfg.TokenPath(),
		last:   token.AccessToken,
		logger: cfg.Log(),
	}, nil
}

// savingSource persists the token whenever the access token changes.
type savingSource struct {
	base   oauth2.TokenSource
	path   string
	logger *slog.Logger

	mu   sync.Mutex
	last string
}

func (s *savingSource) Token() (*oauth2.Token, error) {
	token, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if token.AccessToken != s.last {
		if err := SaveToken(s.path, token); err != nil {
			s.logger.Warn("failed to save refreshed token", "error", err)
		} else {
			s.last = token.AccessToken
			s.logger.Debug("token refreshed", "expiry", token.Expiry)
		}
	}
	return token, nil
}

// Habitica returns the Habitica credentials from settings or environment.
func Habitica(cfg *config.Config) (habitica.Credentials, error) {
	s := cfg.Settings.Habitica
	if s.UserID == "" || s.APIToken == "" {
		return habitica.Credentials{}, fmt.Errorf("%w: set habitica.user_id and habitica.api_token in %s or %s and %s",
			ErrNotConfigured, cfg.SettingsPath(), config.EnvHabiticaUserID, config.EnvHabiticaAPIToken)
	}
	return habitica.Credentials{UserID: s.UserID, APIToken: s.APIToken, Client: s.Client}, nil
}

// Todoist returns the Todoist API token from settings or environment.
func Todoist(cfg *config.Config) (string, error) {
	token := cfg.Settings.Todoist.APIToken
	if token == "" {
		return "", fmt.Errorf("%w: set todoist.api_token in %s or %s",
			ErrNotConfigured, cfg.SettingsPath(), config.EnvTodoistAPIToken)
	}
	return token, nil
}
