// Copyright 2025-2026 Chatmirror

package bridge

// SlackEvent is the inner event object of a Slack Events API callback.
// The type/subtype pair selects the handler branch; the remaining fields
// are populated only for the variants that carry them.
type SlackEvent struct {
	Type    string `json:"type"`
	Subtype string `json:"subtype"`
	User    string `json:"user"`
	Channel string `json:"channel"`
	Text    string `json:"text"`

	// channel_name rename sub-events.
	OldName string `json:"old_name"`
	Name    string `json:"name"`

	Files []SlackFile `json:"files"`
}

// SlackFile is the attachment metadata Slack includes in message events.
type SlackFile struct {
	Name       string `json:"name"`
	URLPrivate string `json:"url_private"`
}

// ZulipEvent is a single entry of a Zulip event queue delivery.
type ZulipEvent struct {
	Type    string        `json:"type"`
	Message *ZulipMessage `json:"message"`

	// update_message rename events.
	OrigSubject string `json:"orig_subject"`
	Subject     string `json:"subject"`

	// delete_message events.
	Topic    string `json:"topic"`
	StreamID int    `json:"stream_id"`
}

// ZulipMessage is the message payload of a Zulip message event.
type ZulipMessage struct {
	Content        string `json:"content"`
	Subject        string `json:"subject"`
	SenderEmail    string `json:"sender_email"`
	SenderFullName string `json:"sender_full_name"`
}

// Channel is one Slack channel as returned by the conversation list APIs.
type Channel struct {
	ID   string
	Name string
}

// UserProfile is the subset of a Slack user profile the handlers need.
type UserProfile struct {
	RealName string
	Email    string
	IsAdmin  bool
}

// Attachment is a file reference travelling with a mirrored message.
type Attachment struct {
	Name string
	URL  string
}
