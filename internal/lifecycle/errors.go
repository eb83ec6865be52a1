package lifecycle

import "errors"

// Failure taxonomy for lifecycle phases. Phase code wraps these with
// fmt.Errorf("...: %w", ...) so callers can classify with errors.Is.
var (
	// ErrUnsupportedPlatform marks a module that does not apply to the
	// detected platform. It is a skip, not a failure.
	ErrUnsupportedPlatform = errors.New("platform not supported by module")

	// ErrDependencyMissing marks a required external tool that is absent.
	ErrDependencyMissing = errors.New("required dependency missing")

	// ErrNetworkFailure marks a failed download or network-dependent hook.
	ErrNetworkFailure = errors.New("network operation failed")

	// ErrPermissionDenied marks an unwritable target path.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrValidationFailure marks a post-hoc check that found missing or
	// incorrect state.
	ErrValidationFailure = errors.New("validation failed")

	// ErrHookFailure marks a hook script that exited nonzero.
	ErrHookFailure = errors.New("hook failed")
)
