package errors

import "testing"

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want int
	}{
		{Success, 200},
		{InvalidInput, 400},
		{LanguageNotSupported, 400},
		{ArchiveTooLarge, 400},
		{NotFound, 404},
		{SandboxUnavailable, 502},
		{ImagePullFailed, 502},
		{WorkspaceFailed, 502},
		{ServiceUnavailable, 503},
		{InternalServerError, 500},
		{ConfigParseFailed, 500},
	}
	for _, tc := range cases {
		if got := tc.code.HTTPStatus(); got != tc.want {
			t.Errorf("HTTPStatus(%d) = %d, want %d", tc.code, got, tc.want)
		}
	}
}

func TestTag(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want string
	}{
		{Success, "ok"},
		{UnsafeFilename, "invalid_input"},
		{ConfigFileMissing, "config_error"},
		{Timeout, "timeout"},
		{LimitExceeded, "limit_exceeded"},
		{Cancelled, "cancelled"},
		{SandboxError, "sandbox_error"},
		{WorkspaceFailed, "sandbox_error"},
		{InternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		if got := tc.code.Tag(); got != tc.want {
			t.Errorf("Tag(%d) = %q, want %q", tc.code, got, tc.want)
		}
	}
}
