// Package exitcode defines exit codes for the CLI.
package exitcode

const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, not found, ambiguous).
	UserError = 1

	// AuthError indicates an auth/config error, including a session that
	// expired during a batch.
	AuthError = 2

	// BackendError indicates a backend/API/network error where no task
	// was created.
	BackendError = 3

	// PartialFailure indicates a batch where some tasks were created and
	// others failed or were skipped.
	PartialFailure = 4
)
