// Copyright 2025-2026 Chatmirror

package bridge

import "strings"

// RenderPrefix substitutes the {name}, {email} and {channel} placeholders
// in a user-configured message prefix template. Unknown placeholders are
// left verbatim. The template is always supplied by the caller so tests can
// inject one without any stored user state.
func RenderPrefix(template, name, email, channel string) string {
	return strings.NewReplacer(
		"{name}", name,
		"{email}", email,
		"{channel}", channel,
	).Replace(template)
}
