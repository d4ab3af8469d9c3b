package config

import (
	"os"
	"path/filepath"
	"testing"

	appErr "codemanager/pkg/errors"
)

const validDoc = `{
	"cpp": {
		"image": "runner-cpp:latest",
		"build": ["g++ {src} -o {bin}"],
		"run": ["./{bin}"],
		"cpu_ms": 2000,
		"mem_mb": 256,
		"pids": 64,
		"wall_ms": 5000,
		"network": false,
		"source": "main.cpp"
	},
	"java": {
		"image": "runner-java:21",
		"build": ["javac Main.java"],
		"run": ["java Main"],
		"cpu_ms": 4000,
		"mem_mb": 512,
		"pids": 128,
		"wall_ms": 10000,
		"network": false
	}
}`

func TestParseValidDocument(t *testing.T) {
	cfg, err := Parse([]byte(validDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	lang, ok := cfg.Language("cpp")
	if !ok {
		t.Fatal("cpp entry missing")
	}
	if lang.Image != "runner-cpp:latest" {
		t.Errorf("image = %q", lang.Image)
	}
	if lang.MaxUncompressedMB != DefaultMaxUncompressedMB {
		t.Errorf("max_uncompressed_mb default = %d", lang.MaxUncompressedMB)
	}
	if lang.BinaryFile != "app" {
		t.Errorf("binary default = %q", lang.BinaryFile)
	}

	got := cfg.Tags()
	want := []string{"cpp", "java"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Tags() = %v, want %v", got, want)
	}
}

func TestLanguageLookupIsCaseInsensitive(t *testing.T) {
	cfg, err := Parse([]byte(validDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, ok := cfg.Language("CPP"); !ok {
		t.Error("uppercase tag not resolved")
	}
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"malformed json", `{"cpp": `},
		{"empty document", `{}`},
		{"missing image", `{"cpp": {"build": ["true"], "run": ["true"], "cpu_ms": 1, "mem_mb": 1, "pids": 1, "wall_ms": 1}}`},
		{"missing build", `{"cpp": {"image": "i", "run": ["true"], "cpu_ms": 1, "mem_mb": 1, "pids": 1, "wall_ms": 1}}`},
		{"missing run", `{"cpp": {"image": "i", "build": ["true"], "cpu_ms": 1, "mem_mb": 1, "pids": 1, "wall_ms": 1}}`},
		{"zero wall_ms", `{"cpp": {"image": "i", "build": ["true"], "run": ["true"], "cpu_ms": 1, "mem_mb": 1, "pids": 1, "wall_ms": 0}}`},
		{"negative mem_mb", `{"cpp": {"image": "i", "build": ["true"], "run": ["true"], "cpu_ms": 1, "mem_mb": -1, "pids": 1, "wall_ms": 1}}`},
		{"unbalanced quote in template", `{"cpp": {"image": "i", "build": ["g++ 'broken"], "run": ["true"], "cpu_ms": 1, "mem_mb": 1, "pids": 1, "wall_ms": 1}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc))
			if err == nil {
				t.Fatal("expected error")
			}
			if appErr.GetCode(err).Tag() != "config_error" {
				t.Errorf("tag = %q, want config_error", appErr.GetCode(err).Tag())
			}
		})
	}
}

func TestPipelineExpandsPlaceholders(t *testing.T) {
	cfg, err := Parse([]byte(validDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	commands, err := cfg.Pipeline("cpp")
	if err != nil {
		t.Fatalf("Pipeline: %v", err)
	}
	want := []string{"g++ main.cpp -o app", "./app"}
	if len(commands) != len(want) {
		t.Fatalf("commands = %v", commands)
	}
	for i := range want {
		if commands[i] != want[i] {
			t.Errorf("commands[%d] = %q, want %q", i, commands[i], want[i])
		}
	}

	if _, err := cfg.Pipeline("fortran"); !appErr.Is(err, appErr.LanguageNotSupported) {
		t.Errorf("unknown language error = %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if !appErr.Is(err, appErr.ConfigFileMissing) {
		t.Fatalf("err = %v, want ConfigFileMissing", err)
	}
}

func TestStoreSwapIsVisibleToNewReaders(t *testing.T) {
	first, err := Parse([]byte(validDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	store := NewStore(first)

	snapshot := store.Get()

	path := filepath.Join(t.TempDir(), "execution.json")
	next := `{"go": {"image": "runner-go:1.26", "build": ["go build -o {bin} {src}"], "run": ["./{bin}"], "cpu_ms": 1000, "mem_mb": 256, "pids": 64, "wall_ms": 5000, "source": "main.go"}}`
	if err := os.WriteFile(path, []byte(next), 0644); err != nil {
		t.Fatal(err)
	}
	if err := store.Reload(path); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	if _, ok := store.Get().Language("go"); !ok {
		t.Error("new config not visible after reload")
	}
	// The snapshot taken before the reload is unchanged.
	if _, ok := snapshot.Language("cpp"); !ok {
		t.Error("old snapshot mutated by reload")
	}
}

func TestStoreReloadKeepsOldConfigOnFailure(t *testing.T) {
	first, err := Parse([]byte(validDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	store := NewStore(first)

	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := store.Reload(path); err == nil {
		t.Fatal("expected reload error")
	}
	if _, ok := store.Get().Language("cpp"); !ok {
		t.Error("old config lost after failed reload")
	}
}
