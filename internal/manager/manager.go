package manager

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"codemanager/internal/classifier"
	"codemanager/internal/config"
	"codemanager/internal/sandbox"
	appErr "codemanager/pkg/errors"
	"codemanager/pkg/utils/logger"
)

// RunRequest is one execution submission. Commands nil means "use the
// language's configured build+run pipeline"; an explicitly empty list is
// rejected. CPUMs, MemMB, PIDs and DeadlineMs, when positive, tighten or
// override the language defaults for this run only.
type RunRequest struct {
	Language   string
	Files      []sandbox.File
	Commands   []string
	Stdin      []string
	DeadlineMs int64
	CPUMs      int64
	MemMB      int64
	PIDs       int64
	Classify   bool
}

// RunResult is the outcome of one admitted run.
type RunResult struct {
	sandbox.RunResponse
	Classification *classifier.Classification
}

// CodeManager admits, executes and classifies code runs. It is safe for
// concurrent use.
type CodeManager struct {
	queue  *Queue
	store  *config.Store
	driver sandbox.Driver
}

// New wires the manager. maxConcurrent is the initial admission cap.
func New(store *config.Store, driver sandbox.Driver, maxConcurrent int) (*CodeManager, error) {
	queue, err := NewQueue(maxConcurrent)
	if err != nil {
		return nil, err
	}
	return &CodeManager{queue: queue, store: store, driver: driver}, nil
}

// Run validates the request, waits for an admission slot, executes the
// job and optionally classifies its aggregate stderr. The slot is held for
// the whole execution and released on every path.
func (m *CodeManager) Run(ctx context.Context, req RunRequest) (RunResult, error) {
	ctx = context.WithValue(ctx, "job_id", uuid.NewString())

	job, err := m.resolve(req)
	if err != nil {
		return RunResult{}, err
	}

	lease, err := m.queue.Acquire(ctx)
	if err != nil {
		return RunResult{}, err
	}
	defer lease.Release()

	logger.Info(ctx, "job admitted",
		zap.String("language", req.Language),
		zap.Int("commands", len(job.Commands)))

	resp, err := m.driver.Execute(ctx, job)
	if err != nil {
		return RunResult{}, err
	}

	result := RunResult{RunResponse: resp}
	if req.Classify {
		c := classifier.Classify(req.Language, resp.Stderr())
		result.Classification = &c
	}

	logger.Info(ctx, "job finished",
		zap.String("status", string(resp.Status)),
		zap.Duration("elapsed", time.Since(lease.AcquiredAt)))
	return result, nil
}

// SetCapacity changes the admission cap.
func (m *CodeManager) SetCapacity(n int) error {
	return m.queue.SetCapacity(n)
}

// Metrics reports current queue occupancy.
func (m *CodeManager) Metrics() Snapshot {
	return m.queue.Snapshot()
}

// resolve validates the request against the current execution config and
// produces a fully-merged sandbox job.
func (m *CodeManager) resolve(req RunRequest) (sandbox.Job, error) {
	cfg := m.store.Get()
	lang, ok := cfg.Language(req.Language)
	if !ok {
		return sandbox.Job{}, appErr.Newf(appErr.LanguageNotSupported, "language not supported: %s", req.Language)
	}

	for _, file := range req.Files {
		if err := sandbox.ValidateFileName(file.Name); err != nil {
			return sandbox.Job{}, err
		}
	}

	commands := req.Commands
	if commands == nil {
		pipeline, err := cfg.Pipeline(req.Language)
		if err != nil {
			return sandbox.Job{}, err
		}
		commands = pipeline
	}
	if len(commands) == 0 {
		return sandbox.Job{}, appErr.New(appErr.EmptyCommandList)
	}

	limits := sandbox.Limits{
		CPUMs:   lang.CPUMs,
		MemMB:   lang.MemMB,
		PIDs:    lang.PIDs,
		WallMs:  lang.WallMs,
		Network: lang.Network,
	}
	if err := applyOverride(&limits.CPUMs, req.CPUMs, "cpu_ms"); err != nil {
		return sandbox.Job{}, err
	}
	if err := applyOverride(&limits.MemMB, req.MemMB, "mem_mb"); err != nil {
		return sandbox.Job{}, err
	}
	if err := applyOverride(&limits.PIDs, req.PIDs, "pids"); err != nil {
		return sandbox.Job{}, err
	}

	deadline := req.DeadlineMs
	if deadline < 0 {
		return sandbox.Job{}, appErr.ValidationError("deadline_ms", "must be positive")
	}
	if deadline == 0 {
		deadline = limits.WallMs * int64(len(commands))
	}

	maxUncompressed := lang.MaxUncompressedMB
	if maxUncompressed <= 0 {
		maxUncompressed = config.DefaultMaxUncompressedMB
	}

	return sandbox.Job{
		Image:             lang.Image,
		Commands:          commands,
		Stdin:             req.Stdin,
		Files:             req.Files,
		Limits:            limits,
		DeadlineMs:        deadline,
		MaxUncompressedMB: maxUncompressed,
	}, nil
}

func applyOverride(dst *int64, val int64, field string) error {
	if val < 0 {
		return appErr.ValidationError(field, "must be positive")
	}
	if val > 0 {
		*dst = val
	}
	return nil
}
