package classifier

// javaStrategy covers the Java toolchain/runtime.
// JVM hs_err crash reports count as both "safety" and "segfault";
// Throwable subclasses are "exceptions".
type javaStrategy struct{}

func (javaStrategy) Name() string { return "java" }

var javaSafety = []string{
	"hs_err_pid",
	"a fatal error has been detected by the java runtime environment",
	"sigsegv",
	"exception_access_violation",
	"problematic frame:",
	"outofmemoryerror: direct buffer memory",
	"internal error (",
}

var javaSegfault = []string{
	"sigsegv",
	"exception_access_violation",
	"hs_err_pid",
	"problematic frame:",
}

var javaException = []string{
	"exception in thread",
	"java.lang.exception",
	"java.lang.runtimeexception",
	"java.lang.nullpointerexception",
	"java.lang.illegalargumentexception",
	"java.lang.indexoutofboundsexception",
	"java.lang.arrayindexoutofboundsexception",
	"java.lang.outofmemoryerror",
	"java.lang.stackoverflowerror",
	"exception:",
	"error:",
}

func (javaStrategy) ViolatesSafety(stderr string) bool {
	return containsAny(stderr, javaSafety)
}

func (javaStrategy) HasSegfault(stderr string) bool {
	return containsAny(stderr, javaSegfault)
}

func (javaStrategy) HasException(stderr string) bool {
	return containsAny(stderr, javaException)
}
