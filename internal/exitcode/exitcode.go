package exitcode

import (
	stderrors "errors"
	"net/http"
	"os"
	"strings"

	"github.com/mastershashi/llm-engineering-usecases/internal/api"
	"github.com/mastershashi/llm-engineering-usecases/internal/errors"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates successful execution
	Success = 0

	// GeneralError indicates a general error condition, including commands
	// the engine rejected
	GeneralError = 1

	// UsageError indicates invalid input: bad flags, a malformed argument
	// override, an unconfirmed veto or kill
	UsageError = 2

	// AuthError indicates the engine refused the bearer token
	AuthError = 5

	// NetworkError indicates the engine was unreachable or too slow
	NetworkError = 6

	// Interrupted indicates the user cancelled with Ctrl+C (128 + SIGINT)
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with an appropriate code based on error type
func ExitWithError(err error) {
	if err == nil {
		Exit(Success)
		return
	}

	code := DetermineExitCode(err)
	Exit(code)
}

// DetermineExitCode maps an error to an exit code. Coded errors are
// classified by category; cobra's own usage errors by message.
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	var apiErr *api.APIError
	if stderrors.As(err, &apiErr) &&
		(apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden) {
		return AuthError
	}

	switch code := errors.CodeOf(err); {
	case code == errors.ErrCodeCommandTimeout, code == errors.ErrCodeCommandRequest:
		return NetworkError
	case code.Category() == "TRANSPORT":
		return NetworkError
	case code.Category() == "VALIDATION", code == errors.ErrCodeConfigInvalidURL:
		return UsageError
	case code != "":
		return GeneralError
	}

	errMsg := strings.ToLower(err.Error())

	// Usage errors
	if strings.Contains(errMsg, "invalid flag") || strings.Contains(errMsg, "unknown command") ||
		strings.Contains(errMsg, "unknown flag") {
		return UsageError
	}
	if strings.Contains(errMsg, "required flag") || strings.Contains(errMsg, "missing argument") {
		return UsageError
	}
	if strings.Contains(errMsg, "accepts") && strings.Contains(errMsg, "arg(s)") {
		return UsageError
	}

	// Default to general error
	return GeneralError
}

// GetExitCodeDescription returns a human-readable description of an exit code
func GetExitCodeDescription(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case UsageError:
		return "Usage error (invalid flags or arguments)"
	case AuthError:
		return "Authentication error"
	case NetworkError:
		return "Network error"
	case Interrupted:
		return "Interrupted"
	default:
		return "Unknown error"
	}
}
