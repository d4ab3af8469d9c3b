// Package docker runs sandbox jobs on the Docker Engine API. Each command
// of a job gets its own short-lived container with the job workspace
// bind-mounted read-write and everything else locked down.
package docker

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-units"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"go.uber.org/zap"

	"codemanager/internal/sandbox"
	appErr "codemanager/pkg/errors"
	"codemanager/pkg/utils/logger"
)

const (
	// containerWorkdir is where the workspace is mounted and where every
	// command starts.
	containerWorkdir = "/workspace"

	// outputCap bounds each captured stream per command.
	outputCap = 4 << 20

	defaultStopGrace = 2 * time.Second
)

// apiClient is the slice of the Docker Engine client the driver uses.
type apiClient interface {
	ImageInspect(ctx context.Context, imageID string, opts ...client.ImageInspectOption) (image.InspectResponse, error)
	ImagePull(ctx context.Context, ref string, opts image.PullOptions) (io.ReadCloser, error)
	ContainerCreate(ctx context.Context, cfg *container.Config, hostCfg *container.HostConfig, netCfg *network.NetworkingConfig, platform *ocispec.Platform, name string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, opts container.StartOptions) error
	ContainerAttach(ctx context.Context, containerID string, opts container.AttachOptions) (types.HijackedResponse, error)
	ContainerWait(ctx context.Context, containerID string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error)
	ContainerLogs(ctx context.Context, containerID string, opts container.LogsOptions) (io.ReadCloser, error)
	ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error)
	ContainerStop(ctx context.Context, containerID string, opts container.StopOptions) error
	ContainerKill(ctx context.Context, containerID, signal string) error
	ContainerRemove(ctx context.Context, containerID string, opts container.RemoveOptions) error
}

// Options configures the driver.
type Options struct {
	// WorkspaceRoot is the host directory under which per-job workspaces
	// are created.
	WorkspaceRoot string

	// StopGrace is how long a timed-out command may react to SIGTERM
	// before it is killed. Zero means defaultStopGrace.
	StopGrace time.Duration
}

// Driver implements sandbox.Driver on the Docker Engine.
type Driver struct {
	cli   apiClient
	root  string
	grace time.Duration
}

// New connects to the Docker daemon using the standard environment
// settings (DOCKER_HOST and friends).
func New(opts Options) (*Driver, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.SandboxUnavailable, "connect to docker daemon failed")
	}
	return newDriver(cli, opts), nil
}

func newDriver(cli apiClient, opts Options) *Driver {
	grace := opts.StopGrace
	if grace <= 0 {
		grace = defaultStopGrace
	}
	return &Driver{cli: cli, root: opts.WorkspaceRoot, grace: grace}
}

// Execute runs the job's commands in sequence. A returned error means the
// environment could not be reached or prepared (image pull, daemon, or
// workspace failure) or the context was cancelled; sandbox faults during a
// command are reported through the response status instead.
func (d *Driver) Execute(ctx context.Context, job sandbox.Job) (sandbox.RunResponse, error) {
	started := time.Now()

	if err := d.ensureImage(ctx, job.Image); err != nil {
		return sandbox.RunResponse{}, err
	}

	ws, err := sandbox.NewWorkspace(d.root)
	if err != nil {
		return sandbox.RunResponse{}, err
	}
	defer ws.Remove(ctx)

	maxBytes := job.MaxUncompressedMB << 20
	for _, file := range job.Files {
		if err := ws.Add(file, maxBytes); err != nil {
			return sandbox.RunResponse{}, err
		}
	}

	resp := sandbox.RunResponse{Status: sandbox.StatusOK}
	for i, cmd := range job.Commands {
		remaining := job.DeadlineMs - time.Since(started).Milliseconds()
		if remaining <= 0 {
			resp.Status = sandbox.StatusTimeout
			break
		}

		result, status, err := d.runCommand(ctx, ws, job, i, cmd, remaining)
		if err != nil {
			resp.TotalMs = time.Since(started).Milliseconds()
			return resp, err
		}

		resp.Results = append(resp.Results, result)
		if status != sandbox.StatusOK {
			resp.Status = status
			break
		}
	}
	resp.TotalMs = time.Since(started).Milliseconds()
	return resp, nil
}

func (d *Driver) ensureImage(ctx context.Context, ref string) error {
	if _, err := d.cli.ImageInspect(ctx, ref); err == nil {
		return nil
	}

	logger.Info(ctx, "pulling image", zap.String("image", ref))
	reader, err := d.cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return appErr.Wrapf(err, appErr.ImagePullFailed, "pull image %s failed", ref)
	}
	defer reader.Close()
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return appErr.Wrapf(err, appErr.ImagePullFailed, "pull image %s interrupted", ref)
	}
	return nil
}

// runCommand runs one pipeline command in a fresh container. The returned
// error is non-nil only when ctx was cancelled mid-command.
func (d *Driver) runCommand(ctx context.Context, ws *sandbox.Workspace, job sandbox.Job, index int, cmd string, budgetMs int64) (sandbox.CommandResult, sandbox.Status, error) {
	wallMs := job.Limits.WallMs
	if budgetMs < wallMs {
		wallMs = budgetMs
	}

	stdin := ""
	if index < len(job.Stdin) {
		stdin = job.Stdin[index]
	}

	cfg := &container.Config{
		Image:      job.Image,
		Cmd:        []string{"/bin/sh", "-c", cmd},
		WorkingDir: containerWorkdir,
		Tty:        false,
	}
	if stdin != "" {
		cfg.OpenStdin = true
		cfg.StdinOnce = true
		cfg.AttachStdin = true
	}

	netMode := container.NetworkMode("none")
	if job.Limits.Network {
		netMode = container.NetworkMode("bridge")
	}
	pids := job.Limits.PIDs
	hostCfg := &container.HostConfig{
		Binds:          []string{ws.Dir + ":" + containerWorkdir},
		NetworkMode:    netMode,
		ReadonlyRootfs: true,
		SecurityOpt:    []string{"no-new-privileges"},
		Resources: container.Resources{
			Memory:    job.Limits.MemMB << 20,
			NanoCPUs:  job.Limits.CPUMs * 1e6,
			PidsLimit: &pids,
			Ulimits: []*units.Ulimit{
				{Name: "core", Soft: 0, Hard: 0},
			},
		},
	}

	created, err := d.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, "")
	if err != nil {
		return d.fault(ctx, index, "create container failed", err)
	}
	id := created.ID
	defer d.removeContainer(id)

	if stdin != "" {
		attach, err := d.cli.ContainerAttach(ctx, id, container.AttachOptions{Stream: true, Stdin: true})
		if err != nil {
			return d.fault(ctx, index, "attach stdin failed", err)
		}
		go func() {
			defer attach.Close()
			_, _ = io.Copy(attach.Conn, strings.NewReader(stdin))
			_ = attach.CloseWrite()
		}()
	}

	if err := d.cli.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return d.fault(ctx, index, "start container failed", err)
	}
	began := time.Now()

	waitCtx, cancel := context.WithTimeout(ctx, time.Duration(wallMs)*time.Millisecond)
	defer cancel()
	statusCh, errCh := d.cli.ContainerWait(waitCtx, id, container.WaitConditionNotRunning)

	exit := 0
	timedOut := false
	select {
	case w := <-statusCh:
		exit = int(w.StatusCode)
		if exit > 128 {
			exit = -(exit - 128)
		}
	case err := <-errCh:
		if ctx.Err() != nil {
			d.stopContainer(id)
			return sandbox.CommandResult{Index: index}, sandbox.StatusSandboxError, appErr.Wrap(ctx.Err(), appErr.Cancelled)
		}
		if waitCtx.Err() == nil {
			return d.fault(ctx, index, "container wait failed", err)
		}
		timedOut = true
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			d.stopContainer(id)
			return sandbox.CommandResult{Index: index}, sandbox.StatusSandboxError, appErr.Wrap(ctx.Err(), appErr.Cancelled)
		}
		timedOut = true
	}
	durMs := time.Since(began).Milliseconds()

	if timedOut {
		d.stopContainer(id)
	}

	stdout := &cappedBuffer{limit: outputCap}
	stderr := &cappedBuffer{limit: outputCap}
	if err := d.collectLogs(id, stdout, stderr); err != nil {
		return d.fault(ctx, index, "collect logs failed", err)
	}

	result := sandbox.CommandResult{
		Index:      index,
		ExitCode:   exit,
		Stdout:     stdout.Bytes(),
		Stderr:     stderr.Bytes(),
		DurationMs: durMs,
		Truncated:  stdout.truncated || stderr.truncated,
	}
	status := sandbox.StatusOK
	if timedOut {
		result.ExitCode = d.stoppedExitCode(id)
		status = sandbox.StatusTimeout
	}
	if d.oomKilled(id) {
		status = sandbox.StatusLimitExceeded
	}
	return result, status, nil
}

// collectLogs demultiplexes the container's output into the two capped
// buffers. Runs on a fresh short context so it works after cancellation.
func (d *Driver) collectLogs(id string, stdout, stderr *cappedBuffer) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	reader, err := d.cli.ContainerLogs(ctx, id, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		return err
	}
	defer reader.Close()
	_, err = stdcopy.StdCopy(stdout, stderr, reader)
	return err
}

// stoppedExitCode reports the signal that ended a timed-out command as a
// negative exit code. SIGTERM inside the grace window shows up as 128+15,
// an escalated SIGKILL as 128+9; when the daemon cannot tell, assume
// SIGKILL.
func (d *Driver) stoppedExitCode(id string) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	inspect, err := d.cli.ContainerInspect(ctx, id)
	if err != nil || inspect.State == nil || inspect.State.ExitCode <= 128 {
		return -9
	}
	return -(inspect.State.ExitCode - 128)
}

func (d *Driver) oomKilled(id string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	inspect, err := d.cli.ContainerInspect(ctx, id)
	if err != nil || inspect.State == nil {
		return false
	}
	return inspect.State.OOMKilled
}

// stopContainer asks the container to terminate, granting the stop grace
// before the daemon escalates to SIGKILL. A failed stop is killed outright.
func (d *Driver) stopContainer(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), d.grace+10*time.Second)
	defer cancel()

	grace := int(d.grace / time.Second)
	if err := d.cli.ContainerStop(ctx, id, container.StopOptions{Timeout: &grace}); err != nil {
		_ = d.cli.ContainerKill(ctx, id, "SIGKILL")
	}
}

func (d *Driver) removeContainer(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := d.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil {
		logger.Warn(ctx, "remove container failed", zap.String("container_id", id), zap.Error(err))
	}
}

// fault records a sandbox-side failure for one command. Cancellation takes
// precedence so callers can distinguish an aborted run from a broken one.
func (d *Driver) fault(ctx context.Context, index int, msg string, err error) (sandbox.CommandResult, sandbox.Status, error) {
	if ctx.Err() != nil {
		return sandbox.CommandResult{Index: index}, sandbox.StatusSandboxError, appErr.Wrap(ctx.Err(), appErr.Cancelled)
	}
	logger.Error(ctx, msg, zap.Int("command_index", index), zap.Error(err))
	return sandbox.CommandResult{Index: index, Stderr: []byte(msg)}, sandbox.StatusSandboxError, nil
}
