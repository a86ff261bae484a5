package utils

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// GenerateStoredName produces the physical, collision-free name a blob is
// kept under. The display name only survives as a readable prefix.
func GenerateStoredName(originalName string) string {
	ext := path.Ext(originalName)
	base := strings.TrimSuffix(originalName, ext)
	base = strings.ReplaceAll(base, " ", "_")
	return fmt.Sprintf("%s-%s%s", base, uuid.NewString(), ext)
}

// SuffixedName returns the display name with a " (n)" counter inserted
// before the extension: SuffixedName("a.txt", 1) == "a (1).txt".
func SuffixedName(name string, n int) string {
	if n <= 0 {
		return name
	}
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	return fmt.Sprintf("%s (%d)%s", base, n, ext)
}

// ResolveCollision probes name, "name (1).ext", "name (2).ext", ... until
// taken reports a free slot. taken is expected to consult active siblings.
func ResolveCollision(name string, taken func(candidate string) (bool, error)) (string, error) {
	for n := 0; ; n++ {
		candidate := SuffixedName(name, n)
		inUse, err := taken(candidate)
		if err != nil {
			return "", err
		}
		if !inUse {
			return candidate, nil
		}
	}
}
