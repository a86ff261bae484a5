package utils

import (
	"strings"
	"testing"
)

func TestSuffixedName(t *testing.T) {
	tests := []struct {
		name string
		n    int
		want string
	}{
		{"report.txt", 0, "report.txt"},
		{"report.txt", 1, "report (1).txt"},
		{"report.txt", 12, "report (12).txt"},
		{"archive.tar.gz", 1, "archive.tar (1).gz"},
		{"noext", 2, "noext (2)"},
		{"report.txt", -1, "report.txt"},
	}

	for _, tt := range tests {
		if got := SuffixedName(tt.name, tt.n); got != tt.want {
			t.Errorf("SuffixedName(%q, %d) = %q, want %q", tt.name, tt.n, got, tt.want)
		}
	}
}

func TestResolveCollision(t *testing.T) {
	taken := map[string]bool{
		"a.txt":     true,
		"a (1).txt": true,
	}

	got, err := ResolveCollision("a.txt", func(candidate string) (bool, error) {
		return taken[candidate], nil
	})
	if err != nil {
		t.Fatalf("ResolveCollision returned error: %v", err)
	}
	if got != "a (2).txt" {
		t.Errorf("ResolveCollision = %q, want %q", got, "a (2).txt")
	}
}

func TestResolveCollisionFreeName(t *testing.T) {
	got, err := ResolveCollision("free.txt", func(string) (bool, error) {
		return false, nil
	})
	if err != nil {
		t.Fatalf("ResolveCollision returned error: %v", err)
	}
	if got != "free.txt" {
		t.Errorf("ResolveCollision = %q, want the original name back", got)
	}
}

func TestGenerateStoredName(t *testing.T) {
	got := GenerateStoredName("my report.pdf")

	if !strings.HasPrefix(got, "my_report-") {
		t.Errorf("stored name %q should start with the underscored base", got)
	}
	if !strings.HasSuffix(got, ".pdf") {
		t.Errorf("stored name %q should keep the extension", got)
	}
	if other := GenerateStoredName("my report.pdf"); other == got {
		t.Errorf("two stored names for the same input should differ, both were %q", got)
	}
}
