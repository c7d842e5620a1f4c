// Copyright 2025-2026 Chatmirror

// Package bridge mirrors channels, topics and messages between a Slack
// workspace and a Zulip stream. Inbound webhook events are interpreted by
// HandleSlackEvent and HandleZulipEvent; outbound calls go through the two
// gateway interfaces so tests can substitute fakes.
package bridge

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/chatmirror/chatmirror/pkg/bridge/emoji"
	"github.com/chatmirror/chatmirror/pkg/bridge/slackfmt"
	"github.com/chatmirror/chatmirror/pkg/bridge/zulipfmt"
)

// SlackGateway is the outbound Slack API surface the handlers drive.
type SlackGateway interface {
	// ListChannels returns all non-archived channels in the workspace.
	ListChannels(ctx context.Context) ([]Channel, error)
	// JoinedChannels returns the channels the authed user is a member of.
	JoinedChannels(ctx context.Context) ([]Channel, error)
	CreateChannel(ctx context.Context, name string) (string, error)
	ArchiveChannel(ctx context.Context, channelID string) error
	RenameChannel(ctx context.Context, channelID, newName string) error
	PostMessage(ctx context.Context, channel, text string) error
	UploadFile(ctx context.Context, channelID, filename string, data []byte) error
	// InviteUsers adds users to a channel, tolerating members that are
	// already present.
	InviteUsers(ctx context.Context, channelID string, userIDs []string) error
	ChannelMembers(ctx context.Context, channelID string) ([]string, error)
	UserProfile(ctx context.Context, userID string) (UserProfile, error)
	// BotUserID identifies the integration's own Slack account.
	BotUserID(ctx context.Context) (string, error)
	// FetchFile downloads a private Slack upload.
	FetchFile(ctx context.Context, url string) ([]byte, error)
}

// ZulipGateway is the outbound Zulip API surface for one account on one
// stream. The bridge holds two: the bot account for regular traffic and an
// admin account for topic deletion.
type ZulipGateway interface {
	PostMessage(ctx context.Context, topic, content string) error
	// UploadFile stores a file on the Zulip site and returns its URI.
	UploadFile(ctx context.Context, filename string, data []byte) (string, error)
	ListTopics(ctx context.Context) ([]string, error)
	StreamExists(ctx context.Context) (bool, error)
	Subscribe(ctx context.Context, emails []string) error
	DeleteTopic(ctx context.Context, topic string) error
	RenameTopic(ctx context.Context, oldName, newName string) error
	// FetchFile downloads an upload from the Zulip site.
	FetchFile(ctx context.Context, url string) ([]byte, error)
}

// Options is the per-workspace bridge configuration.
type Options struct {
	// Stream is the single Zulip stream every Slack channel maps into.
	Stream string
	// DefaultChannel is Slack's always-present channel; it is protected
	// from renames and receives diagnostic notices.
	DefaultChannel string
	// MaxUploadBytes caps outbound file transfers to Zulip.
	MaxUploadBytes int64
	// ZulipPrefix and SlackPrefix are the per-direction message prefix
	// templates ({name}, {email}, {channel}).
	ZulipPrefix string
	SlackPrefix string
}

// Bridge ties the translators, naming rules and gateways together for one
// user's workspace pair.
type Bridge struct {
	opts Options

	slack      SlackGateway
	zulip      ZulipGateway
	zulipAdmin ZulipGateway

	toZulip *slackfmt.Translator
	toSlack *zulipfmt.Translator

	botEmail string
	snapshot *Snapshot

	// Webhook deliveries for one workspace are handled one at a time;
	// the platforms serialize per workspace but nothing guarantees it.
	mu  sync.Mutex
	log zerolog.Logger
}

// New assembles a Bridge from explicit collaborators. The credential
// bundle is consumed here to remember the bot's own Zulip identity for
// echo suppression; it is never stored whole.
func New(opts Options, creds CredentialBundle, slack SlackGateway, zulip, zulipAdmin ZulipGateway, em *emoji.Map, log zerolog.Logger) *Bridge {
	if opts.DefaultChannel == "" {
		opts.DefaultChannel = "general"
	}
	if opts.Stream == "" {
		opts.Stream = "Slack"
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 25_000_000
	}
	if em == nil {
		em = emoji.NewMap()
	}
	return &Bridge{
		opts:       opts,
		slack:      slack,
		zulip:      zulip,
		zulipAdmin: zulipAdmin,
		toZulip:    slackfmt.New(em),
		toSlack:    zulipfmt.New(creds.ZulipBot.Site, em),
		botEmail:   creds.ZulipBot.Email,
		snapshot:   NewSnapshot(),
		log:        log.With().Str("component", "bridge").Logger(),
	}
}

// Snapshot exposes the channel snapshot cache, mainly for tests.
func (b *Bridge) Snapshot() *Snapshot {
	return b.snapshot
}

// channelIDToName resolves a Slack channel ID via the live channel list.
func (b *Bridge) channelIDToName(ctx context.Context, channelID string) (string, error) {
	channels, err := b.slack.ListChannels(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list channels: %w", err)
	}
	for _, ch := range channels {
		if ch.ID == channelID {
			return ch.Name, nil
		}
	}
	return "", fmt.Errorf("no channel with ID %s", channelID)
}

// channelNameToID resolves a Slack channel name via the live channel list.
func (b *Bridge) channelNameToID(ctx context.Context, name string) (string, error) {
	channels, err := b.slack.ListChannels(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list channels: %w", err)
	}
	for _, ch := range channels {
		if ch.Name == name {
			return ch.ID, nil
		}
	}
	return "", fmt.Errorf("no channel named %s", name)
}

// postToZulip uploads any attachments, appends their links (or a too-large
// notice) to the content, and posts the message under the given topic. A
// failed attachment never aborts the message itself.
func (b *Bridge) postToZulip(ctx context.Context, topic, content string, files []Attachment) error {
	for _, file := range files {
		data, err := b.slack.FetchFile(ctx, file.URL)
		if err != nil {
			b.log.Warn().Err(err).Str("file", file.Name).Msg("Failed to fetch Slack file")
			continue
		}
		if int64(len(data)) >= b.opts.MaxUploadBytes {
			content += fmt.Sprintf("File too large to display directly [%s](%s)\n", file.Name, file.URL)
			continue
		}
		uri, err := b.zulip.UploadFile(ctx, file.Name, data)
		if err != nil {
			b.log.Warn().Err(err).Str("file", file.Name).Msg("Failed to upload file to Zulip")
			continue
		}
		content += fmt.Sprintf("[%s](%s)\n", file.Name, uri)
	}
	return b.zulip.PostMessage(ctx, topic, content)
}

// postToSlack creates the channel if needed (inviting every member of the
// default channel into it), posts the message, then uploads attachments
// fetched from Zulip. Sub-step failures are logged and skipped so one bad
// invite or file never loses the message.
func (b *Bridge) postToSlack(ctx context.Context, channel, content string, files []Attachment) error {
	channelID, err := b.slack.CreateChannel(ctx, channel)
	if err == nil {
		if defaultID, derr := b.channelNameToID(ctx, b.opts.DefaultChannel); derr == nil {
			members, merr := b.slack.ChannelMembers(ctx, defaultID)
			if merr != nil {
				b.log.Warn().Err(merr).Msg("Failed to list default channel members")
			} else if err := b.slack.InviteUsers(ctx, channelID, members); err != nil {
				b.log.Warn().Err(err).Str("channel", channel).Msg("Failed to invite users to new channel")
			}
		}
	} else if !strings.Contains(err.Error(), "name_taken") {
		b.log.Warn().Err(err).Str("channel", channel).Msg("Failed to create channel")
	}

	if err := b.slack.PostMessage(ctx, channel, content); err != nil {
		return fmt.Errorf("failed to post to Slack: %w", err)
	}

	if len(files) > 0 {
		if channelID == "" {
			channelID, err = b.channelNameToID(ctx, channel)
			if err != nil {
				b.log.Warn().Err(err).Str("channel", channel).Msg("Cannot resolve channel for file upload")
				return nil
			}
		}
		for _, file := range files {
			data, err := b.zulip.FetchFile(ctx, file.URL)
			if err != nil {
				b.log.Warn().Err(err).Str("file", file.Name).Msg("Failed to fetch Zulip file")
				continue
			}
			if err := b.slack.UploadFile(ctx, channelID, file.Name, data); err != nil {
				b.log.Warn().Err(err).Str("file", file.Name).Msg("Failed to upload file to Slack")
			}
		}
	}
	return nil
}

// renameSlackChannel renames a channel identified by its current name.
func (b *Bridge) renameSlackChannel(ctx context.Context, oldName, newName string) error {
	channelID, err := b.channelNameToID(ctx, oldName)
	if err != nil {
		return err
	}
	return b.slack.RenameChannel(ctx, channelID, newName)
}

// deleteSlackChannel works around Slack's lack of a delete API: the channel
// is renamed to a timestamp-derived throwaway name and archived.
func (b *Bridge) deleteSlackChannel(ctx context.Context, name string) error {
	renameTo := timestampName(time.Now().UTC())
	if err := b.renameSlackChannel(ctx, name, renameTo); err != nil {
		return err
	}
	channelID, err := b.channelNameToID(ctx, renameTo)
	if err != nil {
		return err
	}
	return b.slack.ArchiveChannel(ctx, channelID)
}

// timestampName derives a channel-safe throwaway name from a timestamp:
// digits survive, everything else becomes an underscore.
func timestampName(ts time.Time) string {
	raw := ts.Format("2006-01-02 15:04:05.000000")
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

// ensureStream creates the mirror stream on Zulip if it is missing,
// subscribing every member of the Slack default channel plus the bot's own
// account. Individual member lookups may fail without aborting the rest.
func (b *Bridge) ensureStream(ctx context.Context) {
	exists, err := b.zulip.StreamExists(ctx)
	if err != nil {
		b.log.Warn().Err(err).Msg("Failed to check stream existence")
		return
	}
	if exists {
		return
	}

	var emails []string
	if defaultID, err := b.channelNameToID(ctx, b.opts.DefaultChannel); err == nil {
		members, err := b.slack.ChannelMembers(ctx, defaultID)
		if err != nil {
			b.log.Warn().Err(err).Msg("Failed to list default channel members")
		}
		for _, memberID := range members {
			profile, err := b.slack.UserProfile(ctx, memberID)
			if err != nil || profile.Email == "" {
				continue
			}
			emails = append(emails, profile.Email)
		}
	}
	emails = append(emails, b.botEmail)

	if err := b.zulip.Subscribe(ctx, emails); err != nil {
		b.log.Error().Err(err).Str("stream", b.opts.Stream).Msg("Failed to create stream")
		return
	}
	b.log.Info().Str("stream", b.opts.Stream).Int("subscribers", len(emails)).Msg("Created mirror stream")
}
