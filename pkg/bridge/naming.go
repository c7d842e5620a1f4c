// Copyright 2025-2026 Chatmirror

package bridge

import (
	"regexp"
	"strconv"
	"strings"
)

// maxChannelNameLen is Slack's channel name length cap.
const maxChannelNameLen = 80

// Channel names may only contain lowercase letters, numbers, hyphens and
// underscores.
var validChannelNameRe = regexp.MustCompile(`^([a-z0-9]+[_\-]*|[_\-]*[a-z0-9]+)([a-z0-9]*[_\-]*)*$`)

// IsValidChannelName reports whether name is usable as a Slack channel name
// without modification.
func IsValidChannelName(name string) bool {
	if len(name) == 0 || len(name) > maxChannelNameLen {
		return false
	}
	return validChannelNameRe.MatchString(name)
}

// NormalizeChannelName rewrites an arbitrary topic name into a valid Slack
// channel name: lowercased, spaces removed, every character outside
// [a-z0-9_-] dropped, capped at 80 characters. If the result collides with
// a name in existing, a numeric suffix starting at 0 is appended,
// incrementing until unique; when the suffix would push past the cap, the
// base is truncated so the suffix always fits. Deterministic, and a no-op
// for names that are already valid and unique.
func NormalizeChannelName(raw string, existing map[string]bool) string {
	name := strings.ReplaceAll(strings.ToLower(raw), " ", "")
	if len(name) > maxChannelNameLen {
		name = name[:maxChannelNameLen]
	}

	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	base := b.String()

	candidate := base
	if existing[candidate] {
		// A trailing digit run is treated as a previous suffix so that
		// "test0" colliding yields "test1", not "test00".
		if stripped := strings.TrimRight(base, "0123456789"); stripped != "" {
			base = stripped
		}
	}
	for counter := 0; existing[candidate]; counter++ {
		suffix := strconv.Itoa(counter)
		if len(base)+len(suffix) < maxChannelNameLen {
			candidate = base + suffix
		} else {
			candidate = base[:maxChannelNameLen-len(suffix)] + suffix
		}
	}
	return candidate
}
