package version

import "testing"

func TestString(t *testing.T) {
	got := String()
	want := "court-report dev (unknown, built unknown)"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
