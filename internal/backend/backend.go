// Package backend selects and constructs a task backend by name.
package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"srtask/internal/backend/googletasks"
	"srtask/internal/backend/habitica"
	"srtask/internal/backend/todoist"
	"srtask/internal/config"
	"srtask/internal/service"
	"srtask/internal/session"
)

// Names lists the supported backends.
var Names = []string{googletasks.Name, habitica.Name, todoist.Name}

// ErrUnknown is returned by Open for a name not in Names.
var ErrUnknown = errors.New("unknown backend")

// Open constructs the named backend with the session taken from cfg.
// Errors wrap session.ErrNotConfigured when credentials are missing.
func Open(ctx context.Context, cfg *config.Config, name string) (service.Backend, error) {
	logger := cfg.Log()

	switch strings.ToLower(strings.TrimSpace(name)) {
	case googletasks.Name:
		ts, err := session.Google(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return googletasks.New(ctx, ts, logger)

	case habitica.Name:
		creds, err := session.Habitica(cfg)
		if err != nil {
			return nil, err
		}
		return habitica.New(creds, habitica.WithLogger(logger)), nil

	case todoist.Name:
		token, err := session.Todoist(cfg)
		if err != nil {
			return nil, err
		}
		return todoist.New(token, todoist.WithLogger(logger)), nil
	}
	return nil, fmt.Errorf("%w %q (want one of %s)", ErrUnknown, name, strings.Join(Names, ", "))
}
