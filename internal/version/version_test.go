package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	s := String()
	for _, part := range []string{"version=", "commit=", "date="} {
		if !strings.Contains(s, part) {
			t.Errorf("version string %q is missing %q", s, part)
		}
	}
}

func TestInfoDefaults(t *testing.T) {
	v, c, d := Info()
	if v == "" || c == "" || d == "" {
		t.Error("version info fields should not be empty")
	}
}
