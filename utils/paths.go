package utils

import "strings"

// JoinPath builds a child's logical path from its parent's path. Root
// children get "/" + name.
func JoinPath(parentPath, name string) string {
	if parentPath == "" || parentPath == "/" {
		return "/" + name
	}
	return strings.TrimSuffix(parentPath, "/") + "/" + name
}

// IsDescendantPath reports whether candidate lies strictly under ancestor in
// the logical tree. Paths are compared as materialized strings, so this also
// rejects the folder itself.
func IsDescendantPath(ancestorPath, candidatePath string) bool {
	prefix := strings.TrimSuffix(ancestorPath, "/") + "/"
	return strings.HasPrefix(candidatePath, prefix)
}

// RewritePathPrefix replaces oldPrefix with newPrefix at the head of p. Used
// when a folder is renamed or moved and every descendant's materialized path
// must follow. Returns p unchanged when it is not under oldPrefix.
func RewritePathPrefix(p, oldPrefix, newPrefix string) string {
	if p == oldPrefix {
		return newPrefix
	}
	if !IsDescendantPath(oldPrefix, p) {
		return p
	}
	return newPrefix + strings.TrimPrefix(p, oldPrefix)
}

// PathPrefixPattern returns the anchored regex matching everything strictly
// under p, for subtree queries against the materialized path field.
func PathPrefixPattern(p string) string {
	return "^" + escapeRegex(strings.TrimSuffix(p, "/")) + "/"
}

func escapeRegex(s string) string {
	special := `\.+*?()|[]{}^$`
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(special, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
