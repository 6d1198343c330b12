package cli_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"srtask/internal/backend"
	"srtask/internal/cli"
	"srtask/internal/commands"
	"srtask/internal/config"
	"srtask/internal/exitcode"
	"srtask/internal/service"
	"srtask/internal/session"
	"srtask/internal/testutil"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// testFactory creates a backend factory that returns the given FakeBackend
// and records the config it was called with.
func testFactory(b service.Backend, seen **config.Config) cli.BackendFactory {
	return func(ctx context.Context, cfg *config.Config) (service.Backend, error) {
		if seen != nil {
			*seen = cfg
		}
		return b, nil
	}
}

func failingFactory(err error) cli.BackendFactory {
	return func(ctx context.Context, cfg *config.Config) (service.Backend, error) {
		return nil, err
	}
}

// isolate points the config directory and environment at a temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	for _, k := range []string{config.EnvBackend, config.EnvHabiticaUserID, config.EnvHabiticaAPIToken, config.EnvTodoistAPIToken} {
		t.Setenv(k, "")
	}
	return filepath.Join(dir, config.AppName)
}

func run(t *testing.T, factory cli.BackendFactory, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)

	var outBuf, errBuf bytes.Buffer
	code = dispatcher.Run(context.Background(), args, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	isolate(t)
	_, stderr, code := run(t, testFactory(testutil.NewFakeBackend("fake"), nil), "unknowncmd")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: unknowncmd\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_FlagBeforeCommand(t *testing.T) {
	isolate(t)
	_, stderr, code := run(t, nil, "--quiet")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: --quiet\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_NoArgsPrintsHelp(t *testing.T) {
	isolate(t)
	stdout, stderr, code := run(t, nil)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if !strings.Contains(stdout, "Usage:") {
		t.Error("expected help output to contain 'Usage:'")
	}
}

func TestDispatcher_VersionCommand(t *testing.T) {
	isolate(t)
	stdout, stderr, code := run(t, nil, "version")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "srtask 0.1.0\n" {
		t.Errorf("expected 'srtask 0.1.0\\n', got %q", stdout)
	}
}

func TestDispatcher_UnknownFlag(t *testing.T) {
	isolate(t)
	_, stderr, code := run(t, nil, "help", "--unknown")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown flag: -unknown\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_FlagNeedsArgument(t *testing.T) {
	isolate(t)
	_, stderr, code := run(t, nil, "schedule", "--offsets")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: flag needs an argument: -offsets\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_RemindUsesFactory(t *testing.T) {
	isolate(t)
	fake := testutil.NewFakeBackend("fake")
	var seen *config.Config

	stdout, stderr, code := run(t, testFactory(fake, &seen),
		"remind", "--backend", "todoist", "--quiet", "--offsets", "2,7", "Review")

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if stdout != "" {
		t.Errorf("expected no stdout with --quiet, got %q", stdout)
	}
	if len(fake.Calls()) != 2 {
		t.Errorf("expected 2 calls, got %d", len(fake.Calls()))
	}
	if seen == nil || seen.Settings.Backend != "todoist" {
		t.Errorf("expected --backend to select todoist, got %+v", seen)
	}
}

func TestDispatcher_SettingsFile(t *testing.T) {
	dir := isolate(t)
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	settings := "backend: habitica\noffsets: [1]\ntime_of_day: \"06:00\"\nrequests_per_second: 100\n"
	if err := os.WriteFile(filepath.Join(dir, config.SettingsFile), []byte(settings), 0600); err != nil {
		t.Fatal(err)
	}

	fake := testutil.NewFakeBackend("fake")
	var seen *config.Config
	_, stderr, code := run(t, testFactory(fake, &seen), "remind", "Review")

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if seen.Settings.Backend != "habitica" {
		t.Errorf("expected backend from settings, got %q", seen.Settings.Backend)
	}
	calls := fake.Calls()
	if len(calls) != 1 || calls[0].DueAt.Hour() != 6 {
		t.Errorf("expected one call at 06:00, got %+v", calls)
	}
}

func TestDispatcher_InvalidSettings(t *testing.T) {
	dir := isolate(t)
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, config.SettingsFile), []byte("offsets: [-2]\n"), 0600); err != nil {
		t.Fatal(err)
	}

	_, stderr, code := run(t, nil, "schedule")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if !strings.HasPrefix(stderr, "error: invalid offsets") {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestDispatcher_FactoryErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"not configured", fmt.Errorf("%w: no token", session.ErrNotConfigured), exitcode.AuthError, "error: auth error: "},
		{"unknown backend", fmt.Errorf("%w %q", backend.ErrUnknown, "trello"), exitcode.UserError, "error: unknown backend"},
		{"other", errors.New("boom"), exitcode.BackendError, "error: backend error: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			_, stderr, code := run(t, failingFactory(tt.err), "projects")

			if code != tt.wantCode {
				t.Errorf("expected exit code %d, got %d", tt.wantCode, code)
			}
			if !strings.HasPrefix(stderr, tt.wantErr) {
				t.Errorf("expected stderr starting with %q, got %q", tt.wantErr, stderr)
			}
		})
	}
}

func TestDispatcher_ScheduleNeedsNoBackend(t *testing.T) {
	isolate(t)
	stdout, _, code := run(t, failingFactory(errors.New("must not be called")), "schedule", "--offsets", "1")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if !strings.HasSuffix(stdout, "+1d\n") {
		t.Errorf("unexpected output %q", stdout)
	}
}

func TestDispatcher_JSONLogs(t *testing.T) {
	isolate(t)
	fake := testutil.NewFakeBackend("fake")
	fake.CallErrs[0] = testutil.Fail(service.KindRateLimited, "fake")

	_, stderr, code := run(t, testFactory(fake, nil),
		"remind", "--log-format", "json", "--quiet", "--offsets", "2", "Review")

	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	if !strings.Contains(stderr, `"msg":"task failed"`) || !strings.Contains(stderr, `"kind":"rate_limited"`) {
		t.Errorf("expected a JSON failure record on stderr, got %q", stderr)
	}
}

func TestDispatcher_InvalidLogFormat(t *testing.T) {
	isolate(t)
	_, stderr, code := run(t, nil, "version", "--log-format", "xml")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if !strings.Contains(stderr, "unknown log format") {
		t.Errorf("unexpected stderr %q", stderr)
	}
}
