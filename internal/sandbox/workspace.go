package sandbox

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErr "codemanager/pkg/errors"
	"codemanager/pkg/utils/logger"
)

// Workspace is a per-job host directory holding the submitted files and any
// artifacts the commands produce. It exists from preparation until Remove.
type Workspace struct {
	Dir string
}

// NewWorkspace creates a unique directory under root.
func NewWorkspace(root string) (*Workspace, error) {
	if root == "" {
		return nil, appErr.New(appErr.WorkspaceFailed).WithMessage("workspace root is required")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, appErr.Wrapf(err, appErr.WorkspaceFailed, "create workspace root failed")
	}
	dir := filepath.Join(root, uuid.NewString())
	if err := os.Mkdir(dir, 0755); err != nil {
		return nil, appErr.Wrapf(err, appErr.WorkspaceFailed, "create workspace failed")
	}
	return &Workspace{Dir: dir}, nil
}

// Add materializes one bundle file inside the workspace. Archives are
// extracted in place, bounded by maxUncompressed bytes; regular files are
// written as-is, creating parent directories.
func (w *Workspace) Add(file File, maxUncompressed int64) error {
	if err := ValidateFileName(file.Name); err != nil {
		return err
	}
	if IsArchive(file.Name) {
		return w.extractArchive(file.Name, file.Content, maxUncompressed)
	}

	target, err := w.join(file.Name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return appErr.Wrapf(err, appErr.WorkspaceFailed, "create parent dir failed")
	}
	if err := os.WriteFile(target, file.Content, 0644); err != nil {
		return appErr.Wrapf(err, appErr.WorkspaceFailed, "write file failed")
	}
	return nil
}

// Remove deletes the workspace directory. Safe to call more than once;
// failures are logged and never mask the run result.
func (w *Workspace) Remove(ctx context.Context) {
	if w == nil || w.Dir == "" {
		return
	}
	if err := os.RemoveAll(w.Dir); err != nil {
		logger.Warn(ctx, "workspace teardown failed", zap.String("dir", w.Dir), zap.Error(err))
	}
}

// join resolves a relative bundle name inside the workspace, rejecting any
// escape from the directory.
func (w *Workspace) join(name string) (string, error) {
	target := filepath.Join(w.Dir, filepath.FromSlash(name))
	if target != w.Dir && !strings.HasPrefix(target, w.Dir+string(os.PathSeparator)) {
		return "", appErr.Newf(appErr.UnsafeFilename, "unsafe filename: %s", name)
	}
	return target, nil
}

// ValidateFileName rejects names that could escape the workspace: absolute
// paths, parent-directory traversal, and empty components.
func ValidateFileName(name string) error {
	if strings.TrimSpace(name) == "" {
		return appErr.New(appErr.UnsafeFilename).WithMessage("empty filename")
	}
	if strings.HasPrefix(name, "/") || strings.HasPrefix(name, "\\") || filepath.IsAbs(name) {
		return appErr.Newf(appErr.UnsafeFilename, "absolute path not allowed: %s", name)
	}
	if strings.Contains(name, "\\") {
		return appErr.Newf(appErr.UnsafeFilename, "backslash not allowed: %s", name)
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return appErr.Newf(appErr.UnsafeFilename, "parent traversal not allowed: %s", name)
		}
	}
	return nil
}
