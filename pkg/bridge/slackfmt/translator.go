// Copyright 2025-2026 Chatmirror

// Package slackfmt converts Slack mrkdwn to Zulip markdown. Slack delivers
// file attachments as event metadata rather than message text, so this
// direction never extracts files from the body.
package slackfmt

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/chatmirror/chatmirror/pkg/bridge/emoji"
)

// File is a single attachment reference carried alongside a message.
type File struct {
	Name string
	URL  string
}

// Message is the result of a translation.
type Message struct {
	Body  string
	Files []File
}

var (
	codeFenceRe  = regexp.MustCompile("(?s)```\n?(.*?)\n?```")
	inlineCodeRe = regexp.MustCompile("`([^`\n]+)`")

	boldRe   = regexp.MustCompile(`\*([^*\n]+?)\*`)
	italicRe = regexp.MustCompile(`_([^_\n]+?)_`)
	strikeRe = regexp.MustCompile(`~([^~\n]+?)~`)

	labeledLinkRe = regexp.MustCompile(`<([^|>\s]+)\|([^>]+)>`)
	bareLinkRe    = regexp.MustCompile(`<(https?://[^>\s]+)>`)

	bulletRe = regexp.MustCompile(`^\s*[-+*]\s*(\S.*)$`)
	quoteRe  = regexp.MustCompile(`^\s*>\s*(.*)$`)
)

// Emphasis marker placeholders, restored at the end of the pipeline so a
// later pass can never re-match the output of an earlier one.
const (
	phBoldOpen    = "\x03"
	phBoldClose   = "\x04"
	phItalicOpen  = "\x05"
	phItalicClose = "\x06"
)

var emphasisRestorer = strings.NewReplacer(
	phBoldOpen, "**",
	phBoldClose, "**",
	phItalicOpen, "*",
	phItalicClose, "*",
)

// Translator rewrites Slack mrkdwn into Zulip markdown.
type Translator struct {
	emoji *emoji.Map
}

// New creates a Translator using the given emoji table.
func New(em *emoji.Map) *Translator {
	if em == nil {
		em = emoji.NewMap()
	}
	return &Translator{emoji: em}
}

// Translate converts a Slack-formatted message body to Zulip markdown.
func (t *Translator) Translate(text string) Message {
	var stash []string
	save := func(rendered string) string {
		stash = append(stash, rendered)
		return "\x00" + strconv.Itoa(len(stash)-1) + "\x00"
	}

	// Slack's triple-backtick block, single- or multi-line, becomes a
	// proper Zulip fence framed by a leading blank line.
	body := codeFenceRe.ReplaceAllStringFunc(text, func(match string) string {
		inner := codeFenceRe.FindStringSubmatch(match)[1]
		return save("\n```\n" + inner + "\n```")
	})
	body = inlineCodeRe.ReplaceAllStringFunc(body, save)

	// Links are stashed already rewritten: URLs may contain underscores
	// and tildes that the emphasis passes would otherwise capture.
	body = labeledLinkRe.ReplaceAllStringFunc(body, func(match string) string {
		parts := labeledLinkRe.FindStringSubmatch(match)
		return save("[" + parts[2] + "](" + parts[1] + ")")
	})
	body = bareLinkRe.ReplaceAllStringFunc(body, func(match string) string {
		return save(bareLinkRe.FindStringSubmatch(match)[1])
	})

	body = boldRe.ReplaceAllString(body, phBoldOpen+"$1"+phBoldClose)
	body = italicRe.ReplaceAllString(body, phItalicOpen+"$1"+phItalicClose)
	body = strikeRe.ReplaceAllString(body, "~~$1~~")

	body = t.emoji.ToZulip(body)
	body = rewriteBlocks(body)

	body = emphasisRestorer.Replace(body)
	for i := len(stash) - 1; i >= 0; i-- {
		body = strings.Replace(body, "\x00"+strconv.Itoa(i)+"\x00", stash[i], 1)
	}
	return Message{Body: body}
}

// rewriteBlocks normalizes quote blocks and bulleted lists. Slack quotes
// carry the > marker on every line already; Zulip wants the marker flush
// against the content and the block framed by a leading blank line.
func rewriteBlocks(text string) string {
	lines := strings.Split(text, "\n")
	var out []string
	for i := 0; i < len(lines); {
		line := lines[i]
		switch {
		case quoteRe.MatchString(line):
			out = append(out, "")
			for i < len(lines) && quoteRe.MatchString(lines[i]) {
				out = append(out, ">"+quoteRe.FindStringSubmatch(lines[i])[1])
				i++
			}
		case bulletRe.MatchString(line):
			out = append(out, "")
			for i < len(lines) && bulletRe.MatchString(lines[i]) {
				out = append(out, "- "+bulletRe.FindStringSubmatch(lines[i])[1])
				i++
			}
		default:
			out = append(out, line)
			i++
		}
	}
	return strings.Join(out, "\n")
}
