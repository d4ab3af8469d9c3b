// Package sandbox defines the execution job model and the driver contract
// for running command pipelines inside ephemeral isolated environments.
package sandbox

import "context"

// Status is the aggregate outcome of one run.
type Status string

const (
	StatusOK            Status = "ok"
	StatusTimeout       Status = "timeout"
	StatusLimitExceeded Status = "limit_exceeded"
	StatusSandboxError  Status = "sandbox_error"
)

// File is one named byte blob in the submitted bundle.
type File struct {
	Name    string
	Content []byte
}

// Limits describes hard caps enforced on every command of a job.
type Limits struct {
	CPUMs   int64
	MemMB   int64
	PIDs    int64
	WallMs  int64
	Network bool
}

// Job is a fully-resolved execution request: limits are already merged and
// the image is fixed. Stdin, when non-empty, is indexed alongside Commands.
type Job struct {
	Image             string
	Commands          []string
	Stdin             []string
	Files             []File
	Limits            Limits
	DeadlineMs        int64
	MaxUncompressedMB int64
}

// CommandResult captures one command's outputs. A negative exit code means
// the process was killed by signal -ExitCode.
type CommandResult struct {
	Index      int
	ExitCode   int
	Stdout     []byte
	Stderr     []byte
	DurationMs int64
	Truncated  bool
}

// RunResponse carries the ordered per-command results. When the run aborts
// mid-sequence, Results holds the prefix collected so far.
type RunResponse struct {
	Status  Status
	Results []CommandResult
	TotalMs int64
}

// Driver executes a job inside an isolated environment.
//
// Driver errors are reserved for failures before any command could run
// (image pull failure, daemon down, workspace preparation) and for
// context cancellation. Everything else, including sandbox faults
// mid-run, is encoded in the RunResponse status.
type Driver interface {
	Execute(ctx context.Context, job Job) (RunResponse, error)
}

// Stderr concatenates the stderr of all results in order. Used to feed the
// classifier with the run's aggregate diagnostics.
func (r RunResponse) Stderr() string {
	var size int
	for _, res := range r.Results {
		size += len(res.Stderr)
	}
	out := make([]byte, 0, size)
	for _, res := range r.Results {
		out = append(out, res.Stderr...)
	}
	return string(out)
}
