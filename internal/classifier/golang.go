package classifier

// goStrategy covers the Go toolchain/runtime.
// Panics are "exceptions"; OS signals and fatal runtime errors are
// "safety" or "segfault".
type goStrategy struct{}

func (goStrategy) Name() string { return "go" }

var goSafety = []string{
	"fatal error: runtime: out of memory",
	"fatal error: stack overflow",
	"fatal error: concurrent map read and map write",
	"fatal error: ",
	"signal sigbus",
	"signal sigsegv",
}

var goSegfault = []string{
	"signal sigsegv",
	"segmentation violation",
	"segmentation fault",
}

var goException = []string{
	"panic: ",
	"panic: runtime error:",
	"invalid memory address or nil pointer dereference",
	"index out of range",
	"slice bounds out of range",
}

func (goStrategy) ViolatesSafety(stderr string) bool {
	return containsAny(stderr, goSafety)
}

func (goStrategy) HasSegfault(stderr string) bool {
	return containsAny(stderr, goSegfault)
}

func (goStrategy) HasException(stderr string) bool {
	return containsAny(stderr, goException)
}
