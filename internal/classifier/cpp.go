package classifier

// cppStrategy covers C and C++ toolchains.
// Sanitizer reports and allocator aborts are "safety" violations.
type cppStrategy struct{}

func (cppStrategy) Name() string { return "cpp" }

var cppSafety = []string{
	"double free",
	"double-free",
	"invalid pointer",
	"use-after-free",
	"heap-use-after-free",
	"segmentation fault",
	"sigsegv",
	"addresssanitizer",
	"asan:",
}

var cppSegfault = []string{
	"segmentation fault",
	"sigsegv",
}

var cppException = []string{
	"exception",
	"terminate called",
	"std::terminate",
	"std::bad_alloc",
}

func (cppStrategy) ViolatesSafety(stderr string) bool {
	return containsAny(stderr, cppSafety)
}

func (cppStrategy) HasSegfault(stderr string) bool {
	return containsAny(stderr, cppSegfault)
}

func (cppStrategy) HasException(stderr string) bool {
	return containsAny(stderr, cppException)
}
