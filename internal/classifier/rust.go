package classifier

// rustStrategy covers Rust binaries.
// Panics are "exceptions"; sanitizer and allocator crashes are "safety".
type rustStrategy struct{}

func (rustStrategy) Name() string { return "rust" }

var rustSafety = []string{
	"addresssanitizer",
	"asan:",
	"ubsan",
	"heap-use-after-free",
	"use-after-free",
	"double free",
	"invalid pointer",
	"memory allocation of",
}

var rustSegfault = []string{
	"segmentation fault",
	"sigsegv",
}

var rustException = []string{
	"panicked at",
	"panic:",
	"called `option::unwrap()` on a `none` value",
	"called `result::unwrap()` on an `err` value",
}

func (rustStrategy) ViolatesSafety(stderr string) bool {
	return containsAny(stderr, rustSafety)
}

func (rustStrategy) HasSegfault(stderr string) bool {
	return containsAny(stderr, rustSegfault)
}

func (rustStrategy) HasException(stderr string) bool {
	return containsAny(stderr, rustException)
}
