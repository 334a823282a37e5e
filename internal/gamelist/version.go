package gamelist

import "golang.org/x/mod/semver"

// ReleaseCompatible reports whether a server running remote can be joined
// by a client running local. Releases are compatible when they share the
// same major.minor version; non-release builds (anything that is not a
// valid semver string) require an exact match.
func ReleaseCompatible(local, remote string) bool {
	if local == remote {
		return true
	}

	lv, rv := canonicalRelease(local), canonicalRelease(remote)
	if !semver.IsValid(lv) || !semver.IsValid(rv) {
		return false
	}
	return semver.MajorMinor(lv) == semver.MajorMinor(rv)
}

func canonicalRelease(v string) string {
	if v == "" {
		return v
	}
	if v[0] != 'v' {
		v = "v" + v
	}
	return v
}
