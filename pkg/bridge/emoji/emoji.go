// Copyright 2025-2026 Chatmirror

// Package emoji maps emoji short-codes between the Slack and Zulip
// dialects. Most short-codes are identical on both platforms; the built-in
// table covers the canonical names that differ, and users can layer their
// own additions on top via a YAML override file.
package emoji

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// builtin maps Slack short-code names to their Zulip canonical names for
// emojis whose names differ between the two platforms. Identical names
// pass through untouched and are not listed here.
var builtin = map[string]string{
	"thumbsup":               "+1",
	"thumbsdown":             "-1",
	"white_check_mark":       "check",
	"x":                      "cross_mark",
	"simple_smile":           "slight_smile",
	"boom":                   "collision",
	"hocho":                  "knife",
	"raised_hands":           "raising_hands",
	"hankey":                 "poop",
	"heavy_exclamation_mark": "exclamation",
}

var shortCodeRe = regexp.MustCompile(`:([a-z0-9_+-]+):`)

// Map is a bidirectional short-code translation table.
type Map struct {
	slackToZulip map[string]string
	zulipToSlack map[string]string
}

// NewMap returns a Map containing only the built-in table.
func NewMap() *Map {
	m := &Map{
		slackToZulip: make(map[string]string, len(builtin)),
		zulipToSlack: make(map[string]string, len(builtin)),
	}
	for slack, zulip := range builtin {
		m.slackToZulip[slack] = zulip
		m.zulipToSlack[zulip] = slack
	}
	return m
}

// Load returns a Map with the built-in table plus user overrides read from
// a YAML file of slack-name: zulip-name pairs. A missing path is not an
// error; the built-in table is returned as is.
func Load(path string) (*Map, error) {
	m := NewMap()
	if path == "" {
		return m, nil
	}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return m, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read emoji overrides: %w", err)
	}
	var overrides map[string]string
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse emoji overrides: %w", err)
	}
	if err := m.Add(overrides); err != nil {
		return nil, err
	}
	return m, nil
}

// Add layers user overrides on top of the current table. An override may
// replace a built-in entry, but no two Slack names may map to the same
// Zulip name: the reverse direction would be ambiguous.
func (m *Map) Add(overrides map[string]string) error {
	for slack, zulip := range overrides {
		if existing, ok := m.zulipToSlack[zulip]; ok && existing != slack {
			return fmt.Errorf("emoji override %q -> %q conflicts with existing mapping from %q", slack, zulip, existing)
		}
		if old, ok := m.slackToZulip[slack]; ok {
			delete(m.zulipToSlack, old)
		}
		m.slackToZulip[slack] = zulip
		m.zulipToSlack[zulip] = slack
	}
	return nil
}

// ToZulip rewrites every :short_code: token in text whose Slack name has a
// different Zulip canonical name. Unknown codes pass through unchanged.
func (m *Map) ToZulip(text string) string {
	return m.apply(text, m.slackToZulip)
}

// ToSlack is the reverse direction of ToZulip.
func (m *Map) ToSlack(text string) string {
	return m.apply(text, m.zulipToSlack)
}

func (m *Map) apply(text string, table map[string]string) string {
	return shortCodeRe.ReplaceAllStringFunc(text, func(match string) string {
		name := match[1 : len(match)-1]
		if mapped, ok := table[name]; ok {
			return ":" + mapped + ":"
		}
		return match
	})
}
