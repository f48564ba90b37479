package version

import "testing"

func TestString(t *testing.T) {
	oldV, oldSHA, oldBuild := Version, GitSHA, BuildTime
	defer func() { Version, GitSHA, BuildTime = oldV, oldSHA, oldBuild }()

	Version, GitSHA, BuildTime = "1.2.0", "0123456789abcdef", "2026-10-01T00:00:00Z"
	want := "padsim 1.2.0 (0123456789ab, built 2026-10-01T00:00:00Z)"
	if got := String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	GitSHA = "abc"
	if got := String(); got != "padsim 1.2.0 (abc, built 2026-10-01T00:00:00Z)" {
		t.Errorf("short sha: %q", got)
	}
}
