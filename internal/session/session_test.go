package session

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"srtask/internal/backend/habitica"
	"srtask/internal/config"
)

const oauthClientJSON = `{"installed":{"client_id":"id","client_secret":"secret",` +
	`"auth_uri":"https://accounts.google.com/o/oauth2/auth",` +
	`"token_uri":"https://oauth2.googleapis.com/token","redirect_uris":["http://localhost"]}}`

func newConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.New(t.TempDir())
	require.NoError(t, err)
	return cfg
}

func TestGoogle_NotConfigured(t *testing.T) {
	cfg := newConfig(t)

	_, err := Google(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrNotConfigured)

	require.NoError(t, os.WriteFile(cfg.OAuthClientPath(), []byte(oauthClientJSON), 0600))
	_, err = Google(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Contains(t, err.Error(), "srtask login")
}

func TestGoogle_ValidToken(t *testing.T) {
	cfg := newConfig(t)
	require.NoError(t, os.WriteFile(cfg.OAuthClientPath(), []byte(oauthClientJSON), 0600))
	require.NoError(t, SaveToken(cfg.TokenPath(), &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		Expiry:       time.Now().Add(time.Hour),
	}))

	ts, err := Google(context.Background(), cfg)
	require.NoError(t, err)
	token, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "access", token.AccessToken)
}

func TestOAuthConfig_Invalid(t *testing.T) {
	cfg := newConfig(t)
	require.NoError(t, os.WriteFile(cfg.OAuthClientPath(), []byte("{"), 0600))

	_, err := OAuthConfig(cfg)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotConfigured))
}

func TestOAuthConfig_Scope(t *testing.T) {
	cfg := newConfig(t)
	require.NoError(t, os.WriteFile(cfg.OAuthClientPath(), []byte(oauthClientJSON), 0600))

	oc, err := OAuthConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{GoogleTasksScope}, oc.Scopes)
	assert.Equal(t, "id", oc.ClientID)
}

func TestTokenRoundTrip(t *testing.T) {
	path := newConfig(t).TokenPath()
	expiry := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, SaveToken(path, &oauth2.Token{AccessToken: "a", RefreshToken: "r", Expiry: expiry}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	token, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "a", token.AccessToken)
	assert.Equal(t, "r", token.RefreshToken)
	assert.True(t, expiry.Equal(token.Expiry))
}

type sequenceSource struct {
	tokens []string
	err    error
}

func (s *sequenceSource) Token() (*oauth2.Token, error) {
	if s.err != nil {
		return nil, s.err
	}
	tok := &oauth2.Token{AccessToken: s.tokens[0], RefreshToken: "r"}
	if len(s.tokens) > 1 {
		s.tokens = s.tokens[1:]
	}
	return tok, nil
}

func TestSavingSource_PersistsRefresh(t *testing.T) {
	cfg := newConfig(t)
	src := &savingSource{
		base:   &sequenceSource{tokens: []string{"old", "new"}},
		path:   cfg.TokenPath(),
		last:   "old",
		logger: cfg.Log(),
	}

	_, err := src.Token()
	require.NoError(t, err)
	assert.False(t, cfg.HasToken(), "unchanged token is not rewritten")

	tok, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, "new", tok.AccessToken)

	stored, err := LoadToken(cfg.TokenPath())
	require.NoError(t, err)
	assert.Equal(t, "new", stored.AccessToken)
}

func TestSavingSource_PropagatesError(t *testing.T) {
	boom := errors.New("refresh failed")
	src := &savingSource{base: &sequenceSource{err: boom}, logger: newConfig(t).Log()}

	_, err := src.Token()
	assert.ErrorIs(t, err, boom)
}

func TestHabitica(t *testing.T) {
	cfg := newConfig(t)
	_, err := Habitica(cfg)
	assert.ErrorIs(t, err, ErrNotConfigured)

	cfg.Settings.Habitica = config.HabiticaSettings{UserID: "u", APIToken: "k", Client: "u-notes"}
	creds, err := Habitica(cfg)
	require.NoError(t, err)
	assert.Equal(t, habitica.Credentials{UserID: "u", APIToken: "k", Client: "u-notes"}, creds)
}

func TestTodoist(t *testing.T) {
	cfg := newConfig(t)
	_, err := Todoist(cfg)
	assert.ErrorIs(t, err, ErrNotConfigured)

	cfg.Settings.Todoist.APIToken = "tok"
	token, err := Todoist(cfg)
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
}
