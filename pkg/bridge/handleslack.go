// Copyright 2025-2026 Chatmirror

package bridge

import (
	"context"
	"fmt"
)

// Handler results reported back to the webhook layer.
const (
	ResultSent           = "Message sent"
	ResultTopicExists    = "topic already exists on Zulip"
	ResultSlackRenamed   = "slack renamed a channel"
	ResultSlackDeleted   = "Slack deleted a channel"
	ResultSlackUnhandled = "Slack can't handle this event"
)

// HandleSlackEvent interprets one inner Slack event and mirrors its effect
// onto Zulip. An empty result with a nil error means the event was
// deliberately ignored.
func (b *Bridge) HandleSlackEvent(ctx context.Context, evt *SlackEvent) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	log := b.log.With().Str("event", evt.Type).Str("subtype", evt.Subtype).Logger()

	// The snapshot lets channel_deleted recover the name of a channel
	// Slack no longer reports. Refresh it on every other event.
	if evt.Type != "channel_deleted" {
		if channels, err := b.slack.JoinedChannels(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to refresh channel snapshot")
		} else {
			b.snapshot.Refresh(channels)
		}
	}

	b.ensureStream(ctx)

	// Drop our own echoes, except channel_join which fires when the bot
	// itself is added to a channel it just created.
	if evt.User != "" && evt.Subtype != "channel_join" {
		botID, err := b.slack.BotUserID(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to identify own user: %w", err)
		}
		if evt.User == botID {
			return "", nil
		}
	}

	switch evt.Type {
	case "message":
		switch evt.Subtype {
		case "channel_join":
			return b.slackChannelJoin(ctx, evt)
		case "channel_name":
			return b.slackChannelRename(ctx, evt)
		case "message_changed":
			// Slack edits have no Zulip counterpart here.
			return "", nil
		default:
			return b.slackMessage(ctx, evt)
		}
	case "channel_created":
		// Creation is mirrored lazily on the channel's first message.
		return "", nil
	case "channel_deleted":
		return b.slackChannelDeleted(ctx, evt)
	default:
		log.Debug().Msg("Unhandled Slack event type")
		return ResultSlackUnhandled, nil
	}
}

// slackMessage mirrors a regular channel message to the matching topic.
func (b *Bridge) slackMessage(ctx context.Context, evt *SlackEvent) (string, error) {
	msg := b.toZulip.Translate(evt.Text)

	files := make([]Attachment, 0, len(evt.Files))
	for _, f := range evt.Files {
		files = append(files, Attachment{Name: f.Name, URL: f.URLPrivate})
	}

	channelName, err := b.channelIDToName(ctx, evt.Channel)
	if err != nil {
		b.log.Warn().Err(err).Str("channel", evt.Channel).Msg("Cannot resolve channel, using default")
		channelName = b.opts.DefaultChannel
	}

	profile, err := b.slack.UserProfile(ctx, evt.User)
	if err != nil {
		b.log.Warn().Err(err).Str("user", evt.User).Msg("Failed to look up sender")
		return "", nil
	}

	prefix := RenderPrefix(b.opts.ZulipPrefix, profile.RealName, profile.Email, channelName)
	if err := b.postToZulip(ctx, channelName, prefix+" "+msg.Body, files); err != nil {
		return "", err
	}
	return ResultSent, nil
}

// slackChannelJoin announces a freshly created channel on Zulip. Only the
// bot's own join signals a new channel; anyone else joining is ignored. If
// the topic already exists the join is an echo of our own mirroring and is
// dropped.
func (b *Bridge) slackChannelJoin(ctx context.Context, evt *SlackEvent) (string, error) {
	botID, err := b.slack.BotUserID(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to identify own user: %w", err)
	}
	if evt.User != botID {
		return "", nil
	}
	channelName, err := b.channelIDToName(ctx, evt.Channel)
	if err != nil {
		return "", err
	}
	topics, err := b.zulip.ListTopics(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list topics: %w", err)
	}
	for _, topic := range topics {
		if topic == channelName {
			return ResultTopicExists, nil
		}
	}
	if err := b.postToZulip(ctx, channelName, "Slack created this channel", nil); err != nil {
		return "", err
	}
	return ResultSent, nil
}

// slackChannelRename mirrors a rename onto the Zulip topic, except for the
// default channel which must keep its name on both sides.
func (b *Bridge) slackChannelRename(ctx context.Context, evt *SlackEvent) (string, error) {
	if evt.OldName == b.opts.DefaultChannel {
		if err := b.renameSlackChannel(ctx, evt.Name, evt.OldName); err != nil {
			return "", fmt.Errorf("failed to revert rename: %w", err)
		}
		if err := b.postToSlack(ctx, b.opts.DefaultChannel, "You cannot rename the general chat!", nil); err != nil {
			b.log.Warn().Err(err).Msg("Failed to post rename warning")
		}
		return ResultSlackRenamed, nil
	}
	if err := b.zulip.RenameTopic(ctx, evt.OldName, evt.Name); err != nil {
		return "", fmt.Errorf("failed to rename topic: %w", err)
	}
	return ResultSlackRenamed, nil
}

// slackChannelDeleted removes the matching Zulip topic, using the snapshot
// to recover the deleted channel's name.
func (b *Bridge) slackChannelDeleted(ctx context.Context, evt *SlackEvent) (string, error) {
	name, ok := b.snapshot.Name(evt.Channel)
	if !b.snapshot.Populated() || !ok {
		if err := b.postToSlack(ctx, b.opts.DefaultChannel, "Could not tell what channel was deleted", nil); err != nil {
			b.log.Warn().Err(err).Msg("Failed to post deletion diagnostic")
		}
		return "", nil
	}
	if err := b.zulipAdmin.DeleteTopic(ctx, name); err != nil {
		return "", fmt.Errorf("failed to delete topic: %w", err)
	}
	b.snapshot.Drop(evt.Channel)
	return ResultSlackDeleted, nil
}
