// Package classifier maps a run's stderr to structured defect signals using
// language-specific heuristics. If you add a new language, register a
// corresponding strategy here.
package classifier

import (
	"strings"
	"sync"
)

// Classification carries the three independent defect signals derived from
// one stderr stream. Signals are not mutually exclusive.
type Classification struct {
	Language  string `json:"language"`
	Safety    bool   `json:"safety"`
	Segfault  bool   `json:"segfault"`
	Exception bool   `json:"exception"`
}

// Strategy defines heuristics for determining whether a program crash was
// due to a safety violation, segmentation fault, or exception.
type Strategy interface {
	Name() string
	ViolatesSafety(stderr string) bool
	HasSegfault(stderr string) bool
	HasException(stderr string) bool
}

// defaultStrategy returns false for all heuristics. It is used when no
// strategy exists for a language.
type defaultStrategy struct{}

func (defaultStrategy) Name() string               { return "default" }
func (defaultStrategy) ViolatesSafety(string) bool { return false }
func (defaultStrategy) HasSegfault(string) bool    { return false }
func (defaultStrategy) HasException(string) bool   { return false }

var (
	registryMu sync.RWMutex
	registry   = map[string]Strategy{}
	fallback   = defaultStrategy{}
)

func init() {
	Register("c", cppStrategy{})
	Register("cpp", cppStrategy{})
	Register("java", javaStrategy{})
	Register("go", goStrategy{})
	Register("rust", rustStrategy{})
}

// Register installs a strategy under the given language tag. Tags are matched
// case-insensitively.
func Register(tag string, s Strategy) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(tag)] = s
}

// For returns the strategy for a language tag, or the default strategy when
// the language has no registered heuristics.
func For(tag string) Strategy {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if s, ok := registry[strings.ToLower(tag)]; ok {
		return s
	}
	return fallback
}

// Classify runs all three predicates for the language over stderr.
func Classify(tag, stderr string) Classification {
	s := For(tag)
	return Classification{
		Language:  s.Name(),
		Safety:    s.ViolatesSafety(stderr),
		Segfault:  s.HasSegfault(stderr),
		Exception: s.HasException(stderr),
	}
}

// containsAny reports whether the ASCII-lowercased stderr contains any of the
// needles. Needles must already be lowercase.
func containsAny(stderr string, needles []string) bool {
	s := strings.ToLower(stderr)
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}
