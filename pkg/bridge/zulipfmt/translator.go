// Copyright 2025-2026 Chatmirror

// Package zulipfmt converts Zulip markdown to Slack mrkdwn. Links whose
// target lives under Zulip's /user_uploads/ path are lifted out of the body
// and returned as file attachments.
package zulipfmt

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/chatmirror/chatmirror/pkg/bridge/emoji"
)

// File is a single extracted upload reference.
type File struct {
	Name string
	URL  string
}

// Message is the result of a translation: the rewritten body plus any file
// references that were removed from it.
type Message struct {
	Body  string
	Files []File
}

// The rewrite rules are a fixed, order-dependent pipeline of single-pass
// substitutions. Code spans are extracted into placeholders first so their
// content is never touched by the emphasis or link passes; emphasis markers
// are swapped through placeholder runes so a later pass can never re-enter
// the output of an earlier one.
var (
	quoteFenceRe  = regexp.MustCompile("(?s)```quote\n(.*?)\n?```")
	codeFenceRe   = regexp.MustCompile("(?s)```(\\w*)\n(.*?)\n?```")
	tildeFenceRe  = regexp.MustCompile("(?s)~~~(\\w*)\n(.*?)\n?~~~")
	tripleTickRe  = regexp.MustCompile("```([^`\n]+?)```")
	tripleTildeRe = regexp.MustCompile(`~~~([^~\n]+?)~~~`)
	// Exactly four leading spaces are stripped; a fifth survives as a
	// leading space inside the backticks. Kept for compatibility with the
	// behavior this rule has always had.
	indentCodeRe = regexp.MustCompile(`(?m)^ {4}(.*)$`)
	inlineCodeRe = regexp.MustCompile("`([^`\n]+)`")

	boldItalicRe = regexp.MustCompile(`\*\*\*([^\n]+?)\*\*\*`)
	boldRe       = regexp.MustCompile(`\*\*([^\n]+?)\*\*`)
	italicRe     = regexp.MustCompile(`\*([^*\n]+?)\*`)
	strikeRe     = regexp.MustCompile(`~~([^\n]+?)~~`)

	linkRe = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)\)`)

	bulletRe   = regexp.MustCompile(`^\s*[-+*]\s*(\S.*)$`)
	numberedRe = regexp.MustCompile(`^\s*\d+\.\s*(\S.*)$`)
)

// Emphasis marker placeholders, restored at the end of the pipeline.
const (
	phBoldItalicOpen  = "\x01"
	phBoldItalicClose = "\x02"
	phBoldOpen        = "\x03"
	phBoldClose       = "\x04"
	phItalicOpen      = "\x05"
	phItalicClose     = "\x06"
)

var emphasisRestorer = strings.NewReplacer(
	phBoldItalicOpen, "*_",
	phBoldItalicClose, "_*",
	phBoldOpen, "*",
	phBoldClose, "*",
	phItalicOpen, "_",
	phItalicClose, "_",
)

// Translator rewrites Zulip markdown into Slack mrkdwn. The site URL is
// needed to resolve relative /user_uploads/ paths into absolute links.
type Translator struct {
	site  string
	emoji *emoji.Map
}

// New creates a Translator for the given Zulip site URL.
func New(site string, em *emoji.Map) *Translator {
	if em == nil {
		em = emoji.NewMap()
	}
	return &Translator{site: strings.TrimSuffix(site, "/"), emoji: em}
}

// Translate converts a Zulip-formatted message body to Slack mrkdwn.
func (t *Translator) Translate(text string) Message {
	var stash []string
	save := func(rendered string) string {
		stash = append(stash, rendered)
		return "\x00" + strconv.Itoa(len(stash)-1) + "\x00"
	}

	// Zulip's ```quote fence has no Slack counterpart; it becomes a plain
	// >-per-line block. Stashed so the quote pass below cannot reshape it.
	body := quoteFenceRe.ReplaceAllStringFunc(text, func(match string) string {
		inner := quoteFenceRe.FindStringSubmatch(match)[1]
		var b strings.Builder
		b.WriteString("\n")
		for _, line := range strings.Split(inner, "\n") {
			b.WriteString(">" + line + "\n")
		}
		return save(b.String())
	})

	// Multi-line code fences normalize to a bare ``` fence, language tag
	// dropped.
	for _, re := range []*regexp.Regexp{codeFenceRe, tildeFenceRe} {
		body = re.ReplaceAllStringFunc(body, func(match string) string {
			inner := re.FindStringSubmatch(match)[2]
			return save("```\n" + inner + "\n```")
		})
	}

	// Single-line code in any of Zulip's spellings becomes a single
	// backtick span on Slack.
	body = tripleTickRe.ReplaceAllString(body, "`$1`")
	body = tripleTildeRe.ReplaceAllString(body, "`$1`")
	body = indentCodeRe.ReplaceAllString(body, "`$1`")
	body = inlineCodeRe.ReplaceAllStringFunc(body, save)

	body = boldItalicRe.ReplaceAllString(body, phBoldItalicOpen+"$1"+phBoldItalicClose)
	body = boldRe.ReplaceAllString(body, phBoldOpen+"$1"+phBoldClose)
	body = italicRe.ReplaceAllString(body, phItalicOpen+"$1"+phItalicClose)
	body = strikeRe.ReplaceAllString(body, "~$1~")

	body = t.emoji.ToSlack(body)
	body = rewriteBlocks(body)

	var files []File
	body = linkRe.ReplaceAllStringFunc(body, func(match string) string {
		parts := linkRe.FindStringSubmatch(match)
		name, url := parts[1], parts[2]
		if strings.HasPrefix(url, "/user_uploads/") {
			files = append(files, File{Name: name, URL: t.site + url})
			return ""
		}
		return "<" + url + "|" + name + ">"
	})

	body = emphasisRestorer.Replace(body)
	for i := len(stash) - 1; i >= 0; i-- {
		body = strings.Replace(body, "\x00"+strconv.Itoa(i)+"\x00", stash[i], 1)
	}
	return Message{Body: body, Files: files}
}

// rewriteBlocks handles the line-oriented structures: quote blocks, bulleted
// lists and numbered lists. Each block is framed by a leading blank line.
func rewriteBlocks(text string) string {
	lines := strings.Split(text, "\n")
	var out []string
	for i := 0; i < len(lines); {
		line := lines[i]
		switch {
		case strings.HasPrefix(strings.TrimLeft(line, " \t"), ">"):
			// A Zulip quote starts at a >-led line and swallows the
			// following lines until the first blank one. Slack needs the
			// > marker on every line.
			out = append(out, "", line)
			i++
			for i < len(lines) && lines[i] != "" {
				cont := lines[i]
				if !strings.HasPrefix(cont, ">") {
					cont = ">" + cont
				}
				out = append(out, cont)
				i++
			}
		case bulletRe.MatchString(line):
			out = append(out, "")
			for i < len(lines) && bulletRe.MatchString(lines[i]) {
				out = append(out, "- "+bulletRe.FindStringSubmatch(lines[i])[1])
				i++
			}
		case numberedRe.MatchString(line):
			out = append(out, "")
			for n := 1; i < len(lines) && numberedRe.MatchString(lines[i]); n++ {
				out = append(out, strconv.Itoa(n)+". "+numberedRe.FindStringSubmatch(lines[i])[1])
				i++
			}
		default:
			out = append(out, line)
			i++
		}
	}
	return strings.Join(out, "\n")
}
