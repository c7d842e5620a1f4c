// Copyright 2025-2026 Chatmirror

package bridge

import (
	"bytes"
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/chatmirror/chatmirror/pkg/bridge/emoji"
)

func TestHandleSlackMessage(t *testing.T) {
	t.Parallel()
	b, _, zulip, _ := newTestBridge()

	result, err := b.HandleSlackEvent(context.Background(), &SlackEvent{
		Type:    "message",
		User:    "U001",
		Channel: "C002",
		Text:    "*bold* and :thumbsup:",
	})
	if err != nil {
		t.Fatalf("HandleSlackEvent: %v", err)
	}
	if result != ResultSent {
		t.Errorf("result = %q, want %q", result, ResultSent)
	}
	if len(zulip.posted) != 1 {
		t.Fatalf("posted %d messages, want 1", len(zulip.posted))
	}
	if got := zulip.posted[0].topic; got != "random" {
		t.Errorf("topic = %q, want %q", got, "random")
	}
	want := "**Test User**: **bold** and :+1:"
	if got := zulip.posted[0].content; got != want {
		t.Errorf("content = %q, want %q", got, want)
	}
}

func TestHandleSlackMessageWithFile(t *testing.T) {
	t.Parallel()
	b, slack, zulip, _ := newTestBridge()
	slack.fileData["https://files.slack.com/testFile.png"] = []byte("image-bytes")

	_, err := b.HandleSlackEvent(context.Background(), &SlackEvent{
		Type:    "message",
		User:    "U001",
		Channel: "C002",
		Text:    "here you go",
		Files: []SlackFile{
			{Name: "testFile.png", URLPrivate: "https://files.slack.com/testFile.png"},
		},
	})
	if err != nil {
		t.Fatalf("HandleSlackEvent: %v", err)
	}
	if want := []string{"testFile.png"}; !reflect.DeepEqual(zulip.uploads, want) {
		t.Errorf("uploads = %v, want %v", zulip.uploads, want)
	}
	if len(zulip.posted) != 1 {
		t.Fatalf("posted %d messages, want 1", len(zulip.posted))
	}
	content := zulip.posted[0].content
	if !strings.Contains(content, "[testFile.png](/user_uploads/1/ab/testFile.png)") {
		t.Errorf("content missing upload link: %q", content)
	}
}

func TestHandleSlackMessageFileTooLarge(t *testing.T) {
	t.Parallel()
	slack := newMockSlack()
	zulip := newMockZulip()
	b := New(Options{
		DefaultChannel: "general",
		MaxUploadBytes: 8,
		ZulipPrefix:    "**{name}**:",
	}, CredentialBundle{}, slack, zulip, newMockZulip(), emoji.NewMap(), zerolog.Nop())
	slack.fileData["https://files.slack.com/big.bin"] = bytes.Repeat([]byte("x"), 32)

	_, err := b.HandleSlackEvent(context.Background(), &SlackEvent{
		Type:    "message",
		User:    "U001",
		Channel: "C002",
		Text:    "huge file",
		Files: []SlackFile{
			{Name: "big.bin", URLPrivate: "https://files.slack.com/big.bin"},
		},
	})
	if err != nil {
		t.Fatalf("HandleSlackEvent: %v", err)
	}
	if len(zulip.uploads) != 0 {
		t.Errorf("uploads = %v, want none", zulip.uploads)
	}
	content := zulip.posted[0].content
	if !strings.Contains(content, "File too large to display directly [big.bin](https://files.slack.com/big.bin)") {
		t.Errorf("content missing too-large notice: %q", content)
	}
}

func TestHandleSlackEchoSuppressed(t *testing.T) {
	t.Parallel()
	b, _, zulip, _ := newTestBridge()

	result, err := b.HandleSlackEvent(context.Background(), &SlackEvent{
		Type:    "message",
		User:    "UBOT",
		Channel: "C002",
		Text:    "my own echo",
	})
	if err != nil {
		t.Fatalf("HandleSlackEvent: %v", err)
	}
	if result != "" {
		t.Errorf("result = %q, want empty", result)
	}
	if len(zulip.posted) != 0 {
		t.Errorf("posted %d messages, want 0", len(zulip.posted))
	}
}

func TestHandleSlackChannelJoin(t *testing.T) {
	t.Parallel()
	b, slack, zulip, _ := newTestBridge()
	slack.channels = append(slack.channels, Channel{ID: "C003", Name: "newchan"})

	result, err := b.HandleSlackEvent(context.Background(), &SlackEvent{
		Type:    "message",
		Subtype: "channel_join",
		User:    "UBOT",
		Channel: "C003",
	})
	if err != nil {
		t.Fatalf("HandleSlackEvent: %v", err)
	}
	if result != ResultSent {
		t.Errorf("result = %q, want %q", result, ResultSent)
	}
	if len(zulip.posted) != 1 {
		t.Fatalf("posted %d messages, want 1", len(zulip.posted))
	}
	if got := zulip.posted[0]; got.topic != "newchan" || got.content != "Slack created this channel" {
		t.Errorf("posted = %+v", got)
	}
}

func TestHandleSlackChannelJoinByOtherUser(t *testing.T) {
	t.Parallel()
	b, slack, zulip, _ := newTestBridge()
	slack.channels = append(slack.channels, Channel{ID: "C003", Name: "newchan"})

	result, err := b.HandleSlackEvent(context.Background(), &SlackEvent{
		Type:    "message",
		Subtype: "channel_join",
		User:    "U001",
		Channel: "C003",
	})
	if err != nil {
		t.Fatalf("HandleSlackEvent: %v", err)
	}
	if result != "" {
		t.Errorf("result = %q, want empty", result)
	}
	if len(zulip.posted) != 0 {
		t.Errorf("posted %d messages, want 0", len(zulip.posted))
	}
}

func TestHandleSlackChannelJoinExistingTopic(t *testing.T) {
	t.Parallel()
	b, _, zulip, _ := newTestBridge()

	result, err := b.HandleSlackEvent(context.Background(), &SlackEvent{
		Type:    "message",
		Subtype: "channel_join",
		User:    "UBOT",
		Channel: "C002",
	})
	if err != nil {
		t.Fatalf("HandleSlackEvent: %v", err)
	}
	if result != ResultTopicExists {
		t.Errorf("result = %q, want %q", result, ResultTopicExists)
	}
	if len(zulip.posted) != 0 {
		t.Errorf("posted %d messages, want 0", len(zulip.posted))
	}
}

func TestHandleSlackMessageChangedIgnored(t *testing.T) {
	t.Parallel()
	b, _, zulip, _ := newTestBridge()

	result, err := b.HandleSlackEvent(context.Background(), &SlackEvent{
		Type:    "message",
		Subtype: "message_changed",
		User:    "U001",
		Channel: "C002",
		Text:    "edited",
	})
	if err != nil {
		t.Fatalf("HandleSlackEvent: %v", err)
	}
	if result != "" {
		t.Errorf("result = %q, want empty", result)
	}
	if len(zulip.posted) != 0 {
		t.Errorf("posted %d messages, want 0", len(zulip.posted))
	}
}

func TestHandleSlackChannelRename(t *testing.T) {
	t.Parallel()
	b, _, zulip, _ := newTestBridge()

	result, err := b.HandleSlackEvent(context.Background(), &SlackEvent{
		Type:    "message",
		Subtype: "channel_name",
		User:    "U001",
		Channel: "C002",
		OldName: "random",
		Name:    "lesstalk",
		Text:    "renamed the channel from random to lesstalk",
	})
	if err != nil {
		t.Fatalf("HandleSlackEvent: %v", err)
	}
	if result != ResultSlackRenamed {
		t.Errorf("result = %q, want %q", result, ResultSlackRenamed)
	}
	if want := [][2]string{{"random", "lesstalk"}}; !reflect.DeepEqual(zulip.renames, want) {
		t.Errorf("renames = %v, want %v", zulip.renames, want)
	}
	// The rename's system text must not leak into the topic as a message.
	if len(zulip.posted) != 0 {
		t.Errorf("posted = %+v, want none", zulip.posted)
	}
}

func TestHandleSlackDefaultChannelRenameReverted(t *testing.T) {
	t.Parallel()
	b, slack, zulip, _ := newTestBridge()
	// The rename already happened on Slack's side before the event fires.
	slack.channels[0].Name = "newgeneral"

	result, err := b.HandleSlackEvent(context.Background(), &SlackEvent{
		Type:    "message",
		Subtype: "channel_name",
		User:    "U001",
		Channel: "C001",
		OldName: "general",
		Name:    "newgeneral",
	})
	if err != nil {
		t.Fatalf("HandleSlackEvent: %v", err)
	}
	if result != ResultSlackRenamed {
		t.Errorf("result = %q, want %q", result, ResultSlackRenamed)
	}
	if want := [][2]string{{"C001", "general"}}; !reflect.DeepEqual(slack.renamed, want) {
		t.Errorf("renamed = %v, want %v", slack.renamed, want)
	}
	if len(zulip.renames) != 0 {
		t.Errorf("topic renames = %v, want none", zulip.renames)
	}
	if len(slack.posted) != 1 || slack.posted[0].text != "You cannot rename the general chat!" {
		t.Errorf("posted = %+v, want rename warning", slack.posted)
	}
}

func TestHandleSlackChannelDeleted(t *testing.T) {
	t.Parallel()
	b, _, _, admin := newTestBridge()
	b.Snapshot().Refresh([]Channel{{ID: "C002", Name: "random"}})

	result, err := b.HandleSlackEvent(context.Background(), &SlackEvent{
		Type:    "channel_deleted",
		Channel: "C002",
	})
	if err != nil {
		t.Fatalf("HandleSlackEvent: %v", err)
	}
	if result != ResultSlackDeleted {
		t.Errorf("result = %q, want %q", result, ResultSlackDeleted)
	}
	if want := []string{"random"}; !reflect.DeepEqual(admin.deleted, want) {
		t.Errorf("deleted = %v, want %v", admin.deleted, want)
	}
	if _, ok := b.Snapshot().Name("C002"); ok {
		t.Error("snapshot still holds deleted channel")
	}
}

func TestHandleSlackChannelDeletedUnknown(t *testing.T) {
	t.Parallel()
	b, slack, _, admin := newTestBridge()

	result, err := b.HandleSlackEvent(context.Background(), &SlackEvent{
		Type:    "channel_deleted",
		Channel: "C999",
	})
	if err != nil {
		t.Fatalf("HandleSlackEvent: %v", err)
	}
	if result != "" {
		t.Errorf("result = %q, want empty", result)
	}
	if len(admin.deleted) != 0 {
		t.Errorf("deleted = %v, want none", admin.deleted)
	}
	if len(slack.posted) != 1 || slack.posted[0].text != "Could not tell what channel was deleted" {
		t.Errorf("posted = %+v, want deletion diagnostic", slack.posted)
	}
}

func TestHandleSlackUnknownEvent(t *testing.T) {
	t.Parallel()
	b, _, _, _ := newTestBridge()

	result, err := b.HandleSlackEvent(context.Background(), &SlackEvent{Type: "pin_added"})
	if err != nil {
		t.Fatalf("HandleSlackEvent: %v", err)
	}
	if result != ResultSlackUnhandled {
		t.Errorf("result = %q, want %q", result, ResultSlackUnhandled)
	}
}

func TestHandleSlackCreatesMissingStream(t *testing.T) {
	t.Parallel()
	b, _, zulip, _ := newTestBridge()
	zulip.streamExists = false

	_, err := b.HandleSlackEvent(context.Background(), &SlackEvent{
		Type:    "message",
		User:    "U001",
		Channel: "C002",
		Text:    "first message",
	})
	if err != nil {
		t.Fatalf("HandleSlackEvent: %v", err)
	}
	if len(zulip.subscribed) != 1 {
		t.Fatalf("got %d subscribe calls, want 1", len(zulip.subscribed))
	}
	want := []string{"test@example.com", "bridge-bot@zulip.example.com"}
	if !reflect.DeepEqual(zulip.subscribed[0], want) {
		t.Errorf("subscribed = %v, want %v", zulip.subscribed[0], want)
	}
}
