// Copyright 2025-2026 Chatmirror

package bridge

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/slack-go/slack"
)

// SlackClient talks to the Slack Web API. Channel administration that the
// Web API reserves for regular accounts (rename, archive) goes through the
// user client; everything else uses the bot client.
type SlackClient struct {
	bot  *slack.Client
	user *slack.Client

	mu    sync.Mutex
	botID string
}

var _ SlackGateway = (*SlackClient)(nil)

// NewSlackClient builds a gateway from a bot token and a user token.
func NewSlackClient(creds SlackCredentials) *SlackClient {
	return &SlackClient{
		bot:  slack.New(creds.BotToken),
		user: slack.New(creds.UserToken),
	}
}

func (c *SlackClient) ListChannels(ctx context.Context) ([]Channel, error) {
	var out []Channel
	params := &slack.GetConversationsParameters{
		ExcludeArchived: true,
		Limit:           200,
	}
	for {
		channels, cursor, err := c.bot.GetConversationsContext(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("conversations.list: %w", err)
		}
		for _, ch := range channels {
			out = append(out, Channel{ID: ch.ID, Name: ch.Name})
		}
		if cursor == "" {
			return out, nil
		}
		params.Cursor = cursor
	}
}

func (c *SlackClient) JoinedChannels(ctx context.Context) ([]Channel, error) {
	var out []Channel
	params := &slack.GetConversationsForUserParameters{
		ExcludeArchived: true,
		Limit:           200,
	}
	for {
		channels, cursor, err := c.bot.GetConversationsForUserContext(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("users.conversations: %w", err)
		}
		for _, ch := range channels {
			out = append(out, Channel{ID: ch.ID, Name: ch.Name})
		}
		if cursor == "" {
			return out, nil
		}
		params.Cursor = cursor
	}
}

func (c *SlackClient) CreateChannel(ctx context.Context, name string) (string, error) {
	ch, err := c.bot.CreateConversationContext(ctx, slack.CreateConversationParams{
		ChannelName: name,
	})
	if err != nil {
		return "", fmt.Errorf("conversations.create: %w", err)
	}
	return ch.ID, nil
}

func (c *SlackClient) ArchiveChannel(ctx context.Context, channelID string) error {
	if err := c.user.ArchiveConversationContext(ctx, channelID); err != nil {
		return fmt.Errorf("conversations.archive: %w", err)
	}
	return nil
}

func (c *SlackClient) RenameChannel(ctx context.Context, channelID, newName string) error {
	if _, err := c.user.RenameConversationContext(ctx, channelID, newName); err != nil {
		return fmt.Errorf("conversations.rename: %w", err)
	}
	return nil
}

func (c *SlackClient) PostMessage(ctx context.Context, channel, text string) error {
	_, _, err := c.bot.PostMessageContext(ctx, channel, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("chat.postMessage: %w", err)
	}
	return nil
}

func (c *SlackClient) UploadFile(ctx context.Context, channelID, filename string, data []byte) error {
	_, err := c.bot.UploadFileV2Context(ctx, slack.UploadFileV2Parameters{
		Filename: filename,
		FileSize: len(data),
		Reader:   bytes.NewReader(data),
		Channel:  channelID,
	})
	if err != nil {
		return fmt.Errorf("files upload: %w", err)
	}
	return nil
}

// InviteUsers adds users to a channel. Slack rejects the whole batch if the
// bot's own ID is among them, so on cant_invite_self the bot is filtered
// out and the invite retried once.
func (c *SlackClient) InviteUsers(ctx context.Context, channelID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	_, err := c.bot.InviteUsersToConversationContext(ctx, channelID, userIDs...)
	if err == nil || !strings.Contains(err.Error(), "cant_invite_self") {
		return wrapInviteErr(err)
	}

	botID, idErr := c.BotUserID(ctx)
	if idErr != nil {
		return wrapInviteErr(err)
	}
	retry := userIDs[:0:0]
	for _, id := range userIDs {
		if id != botID {
			retry = append(retry, id)
		}
	}
	if len(retry) == 0 {
		return nil
	}
	_, err = c.bot.InviteUsersToConversationContext(ctx, channelID, retry...)
	return wrapInviteErr(err)
}

func wrapInviteErr(err error) error {
	if err == nil || strings.Contains(err.Error(), "already_in_channel") {
		return nil
	}
	return fmt.Errorf("conversations.invite: %w", err)
}

func (c *SlackClient) ChannelMembers(ctx context.Context, channelID string) ([]string, error) {
	var out []string
	params := &slack.GetUsersInConversationParameters{
		ChannelID: channelID,
		Limit:     200,
	}
	for {
		members, cursor, err := c.bot.GetUsersInConversationContext(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("conversations.members: %w", err)
		}
		out = append(out, members...)
		if cursor == "" {
			return out, nil
		}
		params.Cursor = cursor
	}
}

func (c *SlackClient) UserProfile(ctx context.Context, userID string) (UserProfile, error) {
	user, err := c.bot.GetUserInfoContext(ctx, userID)
	if err != nil {
		return UserProfile{}, fmt.Errorf("users.info: %w", err)
	}
	return UserProfile{
		RealName: user.RealName,
		Email:    user.Profile.Email,
		IsAdmin:  user.IsAdmin,
	}, nil
}

func (c *SlackClient) BotUserID(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.botID != "" {
		return c.botID, nil
	}
	resp, err := c.bot.AuthTestContext(ctx)
	if err != nil {
		return "", fmt.Errorf("auth.test: %w", err)
	}
	c.botID = resp.UserID
	return c.botID, nil
}

func (c *SlackClient) FetchFile(ctx context.Context, url string) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.bot.GetFileContext(ctx, url, &buf); err != nil {
		return nil, fmt.Errorf("file download: %w", err)
	}
	return buf.Bytes(), nil
}
