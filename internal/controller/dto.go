package controller

import (
	"codemanager/internal/classifier"
	"codemanager/internal/manager"
	"codemanager/internal/sandbox"
)

// RunRequest is the /run payload. File bytes and command outputs travel
// base64-encoded, which encoding/json gives us for free on []byte.
type RunRequest struct {
	Language   string    `json:"language" binding:"required"`
	Files      []FileDTO `json:"files"`
	Commands   []string  `json:"commands"`
	Stdin      []string  `json:"stdin"`
	DeadlineMs int64     `json:"deadline_ms"`
	CPUMs      int64     `json:"cpu_ms"`
	MemMB      int64     `json:"mem_mb"`
	PIDs       int64     `json:"pids"`
	Classify   bool      `json:"classify"`
}

// FileDTO is one submitted bundle file.
type FileDTO struct {
	Name  string `json:"name" binding:"required"`
	Bytes []byte `json:"bytes"`
}

// RunResponse mirrors the manager result on the wire.
type RunResponse struct {
	Status         string                     `json:"status"`
	Results        []CommandResultDTO         `json:"results"`
	TotalMs        int64                      `json:"total_ms"`
	Classification *classifier.Classification `json:"classification,omitempty"`
}

// CommandResultDTO is one command's outcome. Exit is negative when the
// process died to a signal.
type CommandResultDTO struct {
	Index      int    `json:"index"`
	Exit       int    `json:"exit"`
	Stdout     []byte `json:"stdout"`
	Stderr     []byte `json:"stderr"`
	DurationMs int64  `json:"duration_ms"`
	Truncated  bool   `json:"truncated"`
}

// CapacityRequest is the /max_concurrent payload.
type CapacityRequest struct {
	MaxConcurrent int `json:"max_concurrent" binding:"required"`
}

func toManagerRequest(req RunRequest) manager.RunRequest {
	files := make([]sandbox.File, 0, len(req.Files))
	for _, f := range req.Files {
		files = append(files, sandbox.File{Name: f.Name, Content: f.Bytes})
	}
	return manager.RunRequest{
		Language:   req.Language,
		Files:      files,
		Commands:   req.Commands,
		Stdin:      req.Stdin,
		DeadlineMs: req.DeadlineMs,
		CPUMs:      req.CPUMs,
		MemMB:      req.MemMB,
		PIDs:       req.PIDs,
		Classify:   req.Classify,
	}
}

func toRunResponse(result manager.RunResult) RunResponse {
	results := make([]CommandResultDTO, 0, len(result.Results))
	for _, r := range result.Results {
		results = append(results, CommandResultDTO{
			Index:      r.Index,
			Exit:       r.ExitCode,
			Stdout:     r.Stdout,
			Stderr:     r.Stderr,
			DurationMs: r.DurationMs,
			Truncated:  r.Truncated,
		})
	}
	return RunResponse{
		Status:         string(result.Status),
		Results:        results,
		TotalMs:        result.TotalMs,
		Classification: result.Classification,
	}
}
