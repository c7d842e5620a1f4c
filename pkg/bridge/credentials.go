// Copyright 2025-2026 Chatmirror

package bridge

import (
	"fmt"
	"strings"
)

// SlackCredentials carries the tokens for one Slack workspace. The bot
// token covers most API calls; channel rename and archive need the
// user-scoped token.
type SlackCredentials struct {
	BotToken  string
	UserToken string
}

// ZulipCredentials identifies one Zulip account (bot or admin) on a site.
type ZulipCredentials struct {
	Site   string
	Email  string
	APIKey string
}

// CredentialBundle is everything the handlers need to act on behalf of one
// user. It is read-only input supplied per call; the core never stores or
// mutates it.
type CredentialBundle struct {
	Slack      SlackCredentials
	ZulipBot   ZulipCredentials
	ZulipAdmin ZulipCredentials
}

// ParseZulipRC extracts credentials from a space-separated zuliprc style
// string of the form "zuliprc email=... key=... site=...".
func ParseZulipRC(rc string) (ZulipCredentials, error) {
	var creds ZulipCredentials
	for _, field := range strings.Fields(rc) {
		switch {
		case strings.HasPrefix(field, "email="):
			creds.Email = strings.TrimPrefix(field, "email=")
		case strings.HasPrefix(field, "key="):
			creds.APIKey = strings.TrimPrefix(field, "key=")
		case strings.HasPrefix(field, "site="):
			creds.Site = strings.TrimPrefix(field, "site=")
		}
	}
	if creds.Email == "" || creds.APIKey == "" || creds.Site == "" {
		return ZulipCredentials{}, fmt.Errorf("zuliprc missing email, key or site: %q", rc)
	}
	return creds, nil
}
