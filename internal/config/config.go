// Package config loads and validates the execution config document: one
// entry per language tag describing the sandbox image, default build/run
// pipeline, and resource caps.
package config

import (
	"encoding/json"
	"os"
	"sort"
	"strings"

	"github.com/google/shlex"

	appErr "codemanager/pkg/errors"
)

const (
	// DefaultMaxUncompressedMB bounds archive extraction when a language
	// entry does not set its own cap.
	DefaultMaxUncompressedMB int64 = 64

	defaultSourceFile = "main"
	defaultBinaryFile = "app"
)

// Language describes how one language tag is built and executed.
type Language struct {
	Image   string   `json:"image"`
	Build   []string `json:"build"`
	Run     []string `json:"run"`
	CPUMs   int64    `json:"cpu_ms"`
	MemMB   int64    `json:"mem_mb"`
	PIDs    int64    `json:"pids"`
	WallMs  int64    `json:"wall_ms"`
	Network bool     `json:"network"`

	// Optional fields with defaults.
	SourceFile        string `json:"source,omitempty"`
	BinaryFile        string `json:"binary,omitempty"`
	MaxUncompressedMB int64  `json:"max_uncompressed_mb,omitempty"`
}

// ExecutionConfig is the validated execution config document.
type ExecutionConfig struct {
	languages map[string]Language
}

// Load reads and parses the config file at path.
func Load(path string) (*ExecutionConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, appErr.Wrapf(err, appErr.ConfigFileMissing, "execution config not found: %s", path)
		}
		return nil, appErr.Wrap(err, appErr.ConfigError)
	}
	return Parse(data)
}

// Parse validates a raw execution config document.
func Parse(data []byte) (*ExecutionConfig, error) {
	var raw map[string]Language
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, appErr.Wrap(err, appErr.ConfigParseFailed)
	}
	if len(raw) == 0 {
		return nil, appErr.New(appErr.ConfigInvalidValue).WithMessage("no languages configured")
	}

	languages := make(map[string]Language, len(raw))
	for tag, lang := range raw {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			return nil, appErr.New(appErr.ConfigInvalidValue).WithMessage("empty language tag")
		}
		if err := validateLanguage(tag, &lang); err != nil {
			return nil, err
		}
		languages[tag] = lang
	}
	return &ExecutionConfig{languages: languages}, nil
}

func validateLanguage(tag string, lang *Language) error {
	if strings.TrimSpace(lang.Image) == "" {
		return appErr.Newf(appErr.ConfigInvalidValue, "language %q: image tag is required", tag)
	}
	if len(lang.Build) == 0 {
		return appErr.Newf(appErr.ConfigInvalidValue, "language %q: build template is required", tag)
	}
	if len(lang.Run) == 0 {
		return appErr.Newf(appErr.ConfigInvalidValue, "language %q: run template is required", tag)
	}
	if lang.CPUMs <= 0 {
		return appErr.Newf(appErr.ConfigInvalidValue, "language %q: cpu_ms must be positive", tag)
	}
	if lang.MemMB <= 0 {
		return appErr.Newf(appErr.ConfigInvalidValue, "language %q: mem_mb must be positive", tag)
	}
	if lang.PIDs <= 0 {
		return appErr.Newf(appErr.ConfigInvalidValue, "language %q: pids must be positive", tag)
	}
	if lang.WallMs <= 0 {
		return appErr.Newf(appErr.ConfigInvalidValue, "language %q: wall_ms must be positive", tag)
	}
	if lang.MaxUncompressedMB < 0 {
		return appErr.Newf(appErr.ConfigInvalidValue, "language %q: max_uncompressed_mb must not be negative", tag)
	}
	if lang.MaxUncompressedMB == 0 {
		lang.MaxUncompressedMB = DefaultMaxUncompressedMB
	}
	if lang.SourceFile == "" {
		lang.SourceFile = defaultSourceFile
	}
	if lang.BinaryFile == "" {
		lang.BinaryFile = defaultBinaryFile
	}

	// Templates must tokenize once the placeholders are expanded.
	for _, tpl := range append(append([]string{}, lang.Build...), lang.Run...) {
		if _, err := expandTemplate(tpl, *lang); err != nil {
			return appErr.Wrapf(err, appErr.ConfigInvalidValue, "language %q: bad command template %q", tag, tpl)
		}
	}
	return nil
}

// Language returns the entry for a language tag.
func (c *ExecutionConfig) Language(tag string) (Language, bool) {
	lang, ok := c.languages[strings.ToLower(tag)]
	return lang, ok
}

// Tags returns the configured language tags in sorted order.
func (c *ExecutionConfig) Tags() []string {
	tags := make([]string, 0, len(c.languages))
	for tag := range c.languages {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Pipeline returns the default build+run command list for a language with
// {src} and {bin} placeholders expanded.
func (c *ExecutionConfig) Pipeline(tag string) ([]string, error) {
	lang, ok := c.Language(tag)
	if !ok {
		return nil, appErr.Newf(appErr.LanguageNotSupported, "unknown language: %s", tag)
	}
	commands := make([]string, 0, len(lang.Build)+len(lang.Run))
	for _, tpl := range append(append([]string{}, lang.Build...), lang.Run...) {
		expanded, err := expandTemplate(tpl, lang)
		if err != nil {
			return nil, err
		}
		commands = append(commands, expanded)
	}
	return commands, nil
}

// expandTemplate substitutes placeholders and verifies the result tokenizes
// as a shell command.
func expandTemplate(tpl string, lang Language) (string, error) {
	expanded := strings.ReplaceAll(tpl, "{src}", lang.SourceFile)
	expanded = strings.ReplaceAll(expanded, "{bin}", lang.BinaryFile)

	fields, err := shlex.Split(expanded)
	if err != nil {
		return "", appErr.Wrapf(err, appErr.ConfigInvalidValue, "parse command template failed")
	}
	if len(fields) == 0 {
		return "", appErr.New(appErr.ConfigInvalidValue).WithMessage("command is empty after expansion")
	}
	return expanded, nil
}
