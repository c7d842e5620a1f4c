// Copyright 2025-2026 Chatmirror

package bridge

import (
	"context"
	"fmt"
)

const (
	ResultInvalidTopic   = "Not a valid Slack topic"
	ResultZulipRenamed   = "Zulip renamed a Slack channel"
	ResultZulipDeleted   = "Zulip deleted a Slack channel"
	ResultZulipUnhandled = "Zulip can't handle this event"
)

// HandleZulipEvent interprets one Zulip real-time event and mirrors its
// effect onto Slack. An empty result with a nil error means the event was
// deliberately ignored.
func (b *Bridge) HandleZulipEvent(ctx context.Context, evt *ZulipEvent) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch evt.Type {
	case "message":
		if evt.Message == nil {
			return "", fmt.Errorf("message event without message payload")
		}
		if evt.Message.SenderEmail == b.botEmail {
			return "", nil
		}
		return b.zulipMessage(ctx, evt)
	case "update_message":
		if evt.OrigSubject == "" || evt.Subject == "" {
			// Content-only edits carry no subject change and have no
			// Slack counterpart.
			return ResultZulipUnhandled, nil
		}
		return b.zulipTopicRenamed(ctx, evt)
	case "delete_message":
		return b.zulipMessageDeleted(ctx, evt)
	default:
		b.log.Debug().Str("event", evt.Type).Msg("Unhandled Zulip event type")
		return ResultZulipUnhandled, nil
	}
}

// zulipMessage mirrors a stream message to the matching Slack channel. A
// topic that cannot serve as a Slack channel name triggers the repair flow
// instead.
func (b *Bridge) zulipMessage(ctx context.Context, evt *ZulipEvent) (string, error) {
	topic := evt.Message.Subject
	prefix := RenderPrefix(b.opts.SlackPrefix, evt.Message.SenderFullName, evt.Message.SenderEmail, topic)

	if !IsValidChannelName(topic) {
		return b.repairTopic(ctx, evt, prefix)
	}

	msg := b.toSlack.Translate(evt.Message.Content)
	files := make([]Attachment, 0, len(msg.Files))
	for _, f := range msg.Files {
		files = append(files, Attachment{Name: f.Name, URL: f.URL})
	}
	if err := b.postToSlack(ctx, topic, prefix+" "+msg.Body, files); err != nil {
		return "", err
	}
	return ResultSent, nil
}

// repairTopic handles a message filed under a topic Slack cannot represent:
// the topic is removed from Zulip and a notice is posted to the
// channel-safe replacement name, which creates the channel as a side
// effect.
func (b *Bridge) repairTopic(ctx context.Context, evt *ZulipEvent, prefix string) (string, error) {
	topics, err := b.zulip.ListTopics(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list topics: %w", err)
	}
	existing := make(map[string]bool, len(topics))
	for _, t := range topics {
		existing[t] = true
	}
	safeName := NormalizeChannelName(evt.Message.Subject, existing)

	if err := b.zulipAdmin.DeleteTopic(ctx, evt.Message.Subject); err != nil {
		b.log.Warn().Err(err).Str("topic", evt.Message.Subject).Msg("Failed to delete invalid topic")
	}
	if err := b.postToSlack(ctx, safeName, prefix+" Zulip Topic renamed to be Slack safe", nil); err != nil {
		return "", err
	}
	return ResultInvalidTopic, nil
}

// zulipTopicRenamed mirrors a topic rename onto the Slack channel. A new
// name Slack cannot represent is first normalized on the Zulip side so both
// platforms converge on the safe name.
func (b *Bridge) zulipTopicRenamed(ctx context.Context, evt *ZulipEvent) (string, error) {
	newName := evt.Subject
	if !IsValidChannelName(newName) {
		topics, err := b.zulip.ListTopics(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to list topics: %w", err)
		}
		existing := make(map[string]bool, len(topics))
		for _, t := range topics {
			existing[t] = true
		}
		newName = NormalizeChannelName(evt.Subject, existing)
		if err := b.zulip.RenameTopic(ctx, evt.Subject, newName); err != nil {
			return "", fmt.Errorf("failed to normalize topic: %w", err)
		}
	}
	if err := b.renameSlackChannel(ctx, evt.OrigSubject, newName); err != nil {
		return "", fmt.Errorf("failed to rename channel: %w", err)
	}
	return ResultZulipRenamed, nil
}

// zulipMessageDeleted archives the Slack channel when the deletion emptied
// its topic. A topic still listed on Zulip had other messages left and the
// channel survives.
func (b *Bridge) zulipMessageDeleted(ctx context.Context, evt *ZulipEvent) (string, error) {
	topics, err := b.zulip.ListTopics(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list topics: %w", err)
	}
	for _, t := range topics {
		if t == evt.Topic {
			return "", nil
		}
	}
	if err := b.deleteSlackChannel(ctx, evt.Topic); err != nil {
		return "", fmt.Errorf("failed to delete channel: %w", err)
	}
	return ResultZulipDeleted, nil
}
