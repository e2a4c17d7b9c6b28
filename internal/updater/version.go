package updater

import (
	"strings"

	"golang.org/x/mod/semver"
)

// canonicalVersion adds the "v" prefix semver expects.
func canonicalVersion(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}

// isNewer reports whether candidate should replace current. Versions that
// are not semantic versions (such as "dev" builds) only compare for
// equality.
func isNewer(candidate, current string) bool {
	c, cur := canonicalVersion(candidate), canonicalVersion(current)
	if semver.IsValid(c) && semver.IsValid(cur) {
		return semver.Compare(c, cur) > 0
	}
	return c != cur
}
