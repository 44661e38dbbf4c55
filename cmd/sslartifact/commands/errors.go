package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vulntor/sslartifact/cmd/sslartifact/internal/bind"
	"github.com/vulntor/sslartifact/cmd/sslartifact/internal/format"
	"github.com/vulntor/sslartifact/pkg/artifact"
	"github.com/vulntor/sslartifact/pkg/jobstore"
	"github.com/vulntor/sslartifact/pkg/locate"
	"github.com/vulntor/sslartifact/pkg/target"
)

// ErrUsage marks errors caused by how the command was invoked.
var ErrUsage = errors.New("invalid usage")

const (
	errorCodeUsage       = "INVALID_USAGE"
	errorCodeScanFailure = "SCAN_FAILURE"
)

// codedError wraps an error with an explicit error code.
type codedError struct {
	error
	code string
}

func (e *codedError) Unwrap() error { return e.error }

func (e *codedError) Code() string { return e.code }

// WithErrorCode wraps err with a specific CLI error code.
func WithErrorCode(err error, code string) error {
	if err == nil {
		return nil
	}
	return &codedError{error: err, code: code}
}

// usageError marks err as a usage error.
func usageError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrUsage, err)
}

// usageArgs turns argument validation failures into usage errors.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		return usageError(fn(cmd, args))
	}
}

// ErrorCode resolves a command error into a CLI error code.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		if code := coded.Code(); code != "" {
			return code
		}
	}

	switch {
	case errors.Is(err, ErrUsage),
		errors.Is(err, bind.ErrInvalidOptions),
		errors.Is(err, target.ErrUnknownFormat),
		errors.Is(err, target.ErrNoInput),
		errors.Is(err, target.ErrInvalidTarget),
		strings.HasPrefix(err.Error(), "unknown command"):
		return errorCodeUsage
	case locate.IsNotFound(err):
		return format.CodeToolNotFound
	case jobstore.IsNotFound(err):
		return format.CodeStoreNotFound
	case artifact.IsInterrupted(err):
		return format.CodeInterrupted
	}

	return errorCodeScanFailure
}

// ExitCode maps command errors to process exit codes:
//   - 0: success or graceful interrupt
//   - 1: general error
//   - 2: invalid usage
//   - 4: scanner or job store not found
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	switch ErrorCode(err) {
	case format.CodeInterrupted:
		return 0
	case errorCodeUsage:
		return 2
	case format.CodeToolNotFound, format.CodeStoreNotFound:
		return 4
	default:
		return 1
	}
}
