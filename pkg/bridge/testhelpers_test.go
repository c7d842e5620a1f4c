// Copyright 2025-2026 Chatmirror

package bridge

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/chatmirror/chatmirror/pkg/bridge/emoji"
)

// mockSlack records every call made against the Slack gateway.
type mockSlack struct {
	channels []Channel
	joined   []Channel
	members  map[string][]string
	profiles map[string]UserProfile
	botID    string
	fileData map[string][]byte

	created  []string
	archived []string
	renamed  [][2]string
	posted   []postedMessage
	uploaded []uploadedFile
	invited  map[string][]string
}

type postedMessage struct {
	channel string
	text    string
}

type uploadedFile struct {
	channelID string
	filename  string
	size      int
}

func newMockSlack() *mockSlack {
	return &mockSlack{
		channels: []Channel{
			{ID: "C001", Name: "general"},
			{ID: "C002", Name: "random"},
		},
		joined: []Channel{
			{ID: "C001", Name: "general"},
			{ID: "C002", Name: "random"},
		},
		members:  map[string][]string{"C001": {"U001", "U002"}},
		profiles: map[string]UserProfile{"U001": {RealName: "Test User", Email: "test@example.com"}},
		botID:    "UBOT",
		fileData: map[string][]byte{},
		invited:  map[string][]string{},
	}
}

func (m *mockSlack) ListChannels(ctx context.Context) ([]Channel, error)   { return m.channels, nil }
func (m *mockSlack) JoinedChannels(ctx context.Context) ([]Channel, error) { return m.joined, nil }

func (m *mockSlack) CreateChannel(ctx context.Context, name string) (string, error) {
	for _, ch := range m.channels {
		if ch.Name == name {
			return "", fmt.Errorf("conversations.create: name_taken")
		}
	}
	id := fmt.Sprintf("CNEW%d", len(m.created))
	m.created = append(m.created, name)
	m.channels = append(m.channels, Channel{ID: id, Name: name})
	return id, nil
}

func (m *mockSlack) ArchiveChannel(ctx context.Context, channelID string) error {
	m.archived = append(m.archived, channelID)
	return nil
}

func (m *mockSlack) RenameChannel(ctx context.Context, channelID, newName string) error {
	m.renamed = append(m.renamed, [2]string{channelID, newName})
	for i, ch := range m.channels {
		if ch.ID == channelID {
			m.channels[i].Name = newName
		}
	}
	return nil
}

func (m *mockSlack) PostMessage(ctx context.Context, channel, text string) error {
	m.posted = append(m.posted, postedMessage{channel: channel, text: text})
	return nil
}

func (m *mockSlack) UploadFile(ctx context.Context, channelID, filename string, data []byte) error {
	m.uploaded = append(m.uploaded, uploadedFile{channelID: channelID, filename: filename, size: len(data)})
	return nil
}

func (m *mockSlack) InviteUsers(ctx context.Context, channelID string, userIDs []string) error {
	m.invited[channelID] = append(m.invited[channelID], userIDs...)
	return nil
}

func (m *mockSlack) ChannelMembers(ctx context.Context, channelID string) ([]string, error) {
	return m.members[channelID], nil
}

func (m *mockSlack) UserProfile(ctx context.Context, userID string) (UserProfile, error) {
	profile, ok := m.profiles[userID]
	if !ok {
		return UserProfile{}, fmt.Errorf("users.info: user_not_found")
	}
	return profile, nil
}

func (m *mockSlack) BotUserID(ctx context.Context) (string, error) { return m.botID, nil }

func (m *mockSlack) FetchFile(ctx context.Context, url string) ([]byte, error) {
	data, ok := m.fileData[url]
	if !ok {
		return nil, fmt.Errorf("file download: not found")
	}
	return data, nil
}

// mockZulip records every call made against the Zulip gateway.
type mockZulip struct {
	streamExists bool
	topics       []string
	fileData     map[string][]byte

	posted     []zulipPost
	uploads    []string
	subscribed [][]string
	deleted    []string
	renames    [][2]string
}

type zulipPost struct {
	topic   string
	content string
}

func newMockZulip() *mockZulip {
	return &mockZulip{
		streamExists: true,
		topics:       []string{"general", "random"},
		fileData:     map[string][]byte{},
	}
}

func (m *mockZulip) PostMessage(ctx context.Context, topic, content string) error {
	m.posted = append(m.posted, zulipPost{topic: topic, content: content})
	return nil
}

func (m *mockZulip) UploadFile(ctx context.Context, filename string, data []byte) (string, error) {
	m.uploads = append(m.uploads, filename)
	return "/user_uploads/1/ab/" + filename, nil
}

func (m *mockZulip) ListTopics(ctx context.Context) ([]string, error) { return m.topics, nil }

func (m *mockZulip) StreamExists(ctx context.Context) (bool, error) { return m.streamExists, nil }

func (m *mockZulip) Subscribe(ctx context.Context, emails []string) error {
	m.subscribed = append(m.subscribed, emails)
	m.streamExists = true
	return nil
}

func (m *mockZulip) DeleteTopic(ctx context.Context, topic string) error {
	m.deleted = append(m.deleted, topic)
	return nil
}

func (m *mockZulip) RenameTopic(ctx context.Context, oldName, newName string) error {
	m.renames = append(m.renames, [2]string{oldName, newName})
	return nil
}

func (m *mockZulip) FetchFile(ctx context.Context, url string) ([]byte, error) {
	data, ok := m.fileData[url]
	if !ok {
		return nil, fmt.Errorf("downloading %s: not found", url)
	}
	return data, nil
}

// newTestBridge wires a bridge against fresh mocks with the default
// options and prefix templates.
func newTestBridge() (*Bridge, *mockSlack, *mockZulip, *mockZulip) {
	slack := newMockSlack()
	zulip := newMockZulip()
	admin := newMockZulip()
	b := New(Options{
		Stream:         "Slack",
		DefaultChannel: "general",
		MaxUploadBytes: 25_000_000,
		ZulipPrefix:    "**{name}**:",
		SlackPrefix:    "*{name}*:",
	}, CredentialBundle{
		ZulipBot: ZulipCredentials{
			Site:  "https://zulip.example.com",
			Email: "bridge-bot@zulip.example.com",
		},
	}, slack, zulip, admin, emoji.NewMap(), zerolog.Nop())
	return b, slack, zulip, admin
}
