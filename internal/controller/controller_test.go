package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"codemanager/internal/config"
	"codemanager/internal/manager"
	"codemanager/internal/sandbox"
	appErr "codemanager/pkg/errors"
)

const controllerTestConfig = `{
  "cpp": {
    "image": "gcc:14",
    "build": ["g++ {src}.cpp -o {bin}"],
    "run": ["./{bin}"],
    "cpu_ms": 1000,
    "mem_mb": 256,
    "pids": 64,
    "wall_ms": 2000
  }
}`

type stubDriver struct {
	resp sandbox.RunResponse
	err  error
}

func (s *stubDriver) Execute(ctx context.Context, job sandbox.Job) (sandbox.RunResponse, error) {
	return s.resp, s.err
}

func newTestRouter(t *testing.T, driver sandbox.Driver) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg, err := config.Parse([]byte(controllerTestConfig))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	m, err := manager.New(config.NewStore(cfg), driver, 2)
	if err != nil {
		t.Fatalf("manager.New: %v", err)
	}
	return NewRouter(m)
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t, &stubDriver{})

	w := doJSON(t, router, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := w.Body.String(); got != "code_manager is running" {
		t.Errorf("body = %q", got)
	}
}

func TestRunReturnsResults(t *testing.T) {
	driver := &stubDriver{resp: sandbox.RunResponse{
		Status: sandbox.StatusOK,
		Results: []sandbox.CommandResult{
			{Index: 0, ExitCode: 0, Stdout: []byte("42\n"), DurationMs: 12},
		},
		TotalMs: 15,
	}}
	router := newTestRouter(t, driver)

	w := doJSON(t, router, http.MethodPost, "/run", RunRequest{
		Language: "cpp",
		Files:    []FileDTO{{Name: "main.cpp", Bytes: []byte("int main(){}")}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp RunResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" || resp.TotalMs != 15 {
		t.Errorf("response = %+v", resp)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("results = %d", len(resp.Results))
	}
	if string(resp.Results[0].Stdout) != "42\n" {
		t.Errorf("stdout = %q", resp.Results[0].Stdout)
	}

	// stdout must be base64 on the wire.
	var raw map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatal(err)
	}
	results := raw["results"].([]interface{})
	first := results[0].(map[string]interface{})
	if first["stdout"] != "NDIK" {
		t.Errorf("wire stdout = %v, want base64", first["stdout"])
	}
}

func TestRunValidationErrors(t *testing.T) {
	router := newTestRouter(t, &stubDriver{})

	cases := []struct {
		name string
		body interface{}
		tag  string
	}{
		{"malformed body", "not json", "invalid_input"},
		{"missing language", RunRequest{}, "invalid_input"},
		{"unknown language", RunRequest{Language: "cobol"}, "invalid_input"},
		{"unsafe filename", RunRequest{
			Language: "cpp",
			Files:    []FileDTO{{Name: "../x", Bytes: []byte("a")}},
		}, "invalid_input"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodPost, "/run", tc.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
			}
			var body struct {
				Error  string `json:"error"`
				Detail string `json:"detail"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error != tc.tag {
				t.Errorf("error = %q, want %q", body.Error, tc.tag)
			}
			if body.Detail == "" {
				t.Error("detail missing")
			}
		})
	}
}

func TestRunEnvironmentUnreachableIs502(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"image pull failed", appErr.Newf(appErr.ImagePullFailed, "pull image gcc:14 failed")},
		{"daemon unreachable", appErr.Newf(appErr.SandboxUnavailable, "docker daemon unreachable")},
		{"workspace failed", appErr.Newf(appErr.WorkspaceFailed, "write main.cpp: disk full")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(t, &stubDriver{err: tc.err})

			w := doJSON(t, router, http.MethodPost, "/run", RunRequest{Language: "cpp"})
			if w.Code != http.StatusBadGateway {
				t.Fatalf("status = %d, want 502, body %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestRunSandboxFaultStays200(t *testing.T) {
	driver := &stubDriver{resp: sandbox.RunResponse{Status: sandbox.StatusSandboxError}}
	router := newTestRouter(t, driver)

	w := doJSON(t, router, http.MethodPost, "/run", RunRequest{Language: "cpp"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp RunResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "sandbox_error" {
		t.Errorf("status = %q", resp.Status)
	}
}

func TestRunWithClassification(t *testing.T) {
	driver := &stubDriver{resp: sandbox.RunResponse{
		Status: sandbox.StatusOK,
		Results: []sandbox.CommandResult{
			{Index: 0, ExitCode: -11, Stderr: []byte("Segmentation fault")},
		},
	}}
	router := newTestRouter(t, driver)

	w := doJSON(t, router, http.MethodPost, "/run", RunRequest{Language: "cpp", Classify: true})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp RunResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Classification == nil || !resp.Classification.Segfault {
		t.Errorf("classification = %+v", resp.Classification)
	}
}

func TestMaxConcurrent(t *testing.T) {
	router := newTestRouter(t, &stubDriver{})

	w := doJSON(t, router, http.MethodPost, "/max_concurrent", CapacityRequest{MaxConcurrent: 4})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", w.Code)
	}
	var snap manager.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatal(err)
	}
	if snap.MaxConcurrent != 4 {
		t.Errorf("max_concurrent = %d, want 4", snap.MaxConcurrent)
	}
	if snap.Running != 0 || snap.Waiting != 0 {
		t.Errorf("snapshot = %+v", snap)
	}

	w = doJSON(t, router, http.MethodPost, "/max_concurrent", map[string]int{"max_concurrent": -1})
	if w.Code != http.StatusBadRequest {
		t.Errorf("negative capacity status = %d, want 400", w.Code)
	}
}
