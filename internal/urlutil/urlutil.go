// Package urlutil provides URL parsing utilities for extracting path
// components from git remote URLs.
//
// It handles three URL formats:
//   - HTTPS: https://github.com/owner/repo
//   - SSH colon: git@github.com:owner/repo
//   - SSH protocol: ssh://git@github.com/owner/repo
//
// The .git suffix should be removed by the caller before calling
// [ExtractPathComponents].
package urlutil

import "strings"

// minColonParts is the minimum number of parts expected when splitting SSH
// colon format URLs. git@host:path splits into ["git@host", "path"].
const minColonParts = 2

// ExtractPathComponents extracts the last N path components from a git
// remote URL, across the three supported formats. Returns empty string if
// the URL doesn't contain enough components.
//
// Examples:
//
//	ExtractPathComponents("git@github.com:owner/repo", 2) → "owner/repo"
//	ExtractPathComponents("https://github.com/owner/repo", 2) → "owner/repo"
func ExtractPathComponents(url string, componentCount int) string {
	if strings.HasPrefix(url, "ssh://git@") {
		parts := strings.Split(url, "/")
		if len(parts) >= componentCount {
			return strings.Join(parts[len(parts)-componentCount:], "/")
		}
		return ""
	}

	if strings.HasPrefix(url, "git@") {
		parts := strings.Split(url, ":")
		if len(parts) >= minColonParts {
			return parts[len(parts)-1]
		}
		return ""
	}

	parts := strings.Split(url, "/")
	if len(parts) >= componentCount {
		return strings.Join(parts[len(parts)-componentCount:], "/")
	}
	return ""
}

// SplitOwnerRepo splits a git remote URL into its owner and repository
// names, trimming any .git suffix. Both results are empty when the URL does
// not carry an owner/repo path.
func SplitOwnerRepo(url string) (owner, repo string) {
	url = strings.TrimSuffix(url, ".git")

	ownerRepo := ExtractPathComponents(url, minColonParts)
	parts := strings.Split(ownerRepo, "/")
	if len(parts) != minColonParts || parts[0] == "" || parts[1] == "" {
		return "", ""
	}
	// A dot or colon in the owner means the split swallowed the host, i.e.
	// the URL had no owner/repo path.
	if strings.ContainsAny(parts[0], ".:") {
		return "", ""
	}
	return parts[0], parts[1]
}
