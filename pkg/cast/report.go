package cast

import (
	"errors"

	"github.com/castsync/cast/pkg/engine"
	"github.com/castsync/cast/pkg/vault"
)

// ExitCode mirrors the engine-level return codes surfaced to the CLI.
type ExitCode int

const (
	ExitSuccess             ExitCode = 0
	ExitConfigError         ExitCode = 2
	ExitUnresolvedConflicts ExitCode = 3
	ExitFilesystemError     ExitCode = 4
	ExitLockTimeout         ExitCode = 5
)

// RunReport is the top-level outcome of a `cast sync` invocation,
// wrapping an engine.Result with the exit code an operator-facing CLI
// should return.
type RunReport struct {
	Result   *engine.Result
	Err      error
	ExitCode ExitCode
}

// NewRunReport classifies the result of an engine.Sync call into an
// exit code. It never panics on a nil result: a run that failed before
// planning produced one still gets a code.
func NewRunReport(result *engine.Result, err error) *RunReport {
	return &RunReport{Result: result, Err: err, ExitCode: classify(result, err)}
}

func classify(result *engine.Result, err error) ExitCode {
	if err != nil {
		var lockErr *vault.LockTimeoutError
		var versionErr *vault.ErrUnsupportedVersion
		switch {
		case errors.As(err, &lockErr):
			return ExitLockTimeout
		case errors.As(err, &versionErr):
			return ExitConfigError
		default:
			return ExitFilesystemError
		}
	}

	if result != nil && result.Report != nil && len(result.Report.Conflicted()) > 0 {
		return ExitUnresolvedConflicts
	}
	if result != nil && result.Report != nil && len(result.Report.Failed()) > 0 {
		return ExitFilesystemError
	}

	return ExitSuccess
}

// Conflicts returns the destination paths of every action that
// materialized a conflict file during this run, if any.
func (r *RunReport) Conflicts() []string {
	if r.Result == nil || r.Result.Report == nil {
		return nil
	}
	var paths []string
	for _, o := range r.Result.Report.Conflicted() {
		paths = append(paths, o.ConflictPath)
	}
	return paths
}
