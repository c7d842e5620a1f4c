// Copyright 2025-2026 Chatmirror

package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ZulipClient talks to the Zulip REST API for one account, scoped to a
// single stream.
type ZulipClient struct {
	site   string
	email  string
	apiKey string
	stream string
	http   *http.Client
}

var _ ZulipGateway = (*ZulipClient)(nil)

// NewZulipClient builds a gateway for one Zulip account and stream.
func NewZulipClient(creds ZulipCredentials, stream string) *ZulipClient {
	return &ZulipClient{
		site:   strings.TrimRight(creds.Site, "/"),
		email:  creds.Email,
		apiKey: creds.APIKey,
		stream: stream,
		http:   &http.Client{Timeout: 30 * time.Second},
	}
}

// apiResponse is the envelope every Zulip endpoint wraps its payload in.
type apiResponse struct {
	Result string `json:"result"`
	Msg    string `json:"msg"`
}

func (r apiResponse) ok() bool { return r.Result == "success" }

// call performs one authenticated API request and decodes the response
// into out, which must embed apiResponse.
func (c *ZulipClient) call(ctx context.Context, method, path string, form url.Values, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.site+path, body)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.email, c.apiKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decoding response: %w", method, path, err)
	}
	return nil
}

func (c *ZulipClient) PostMessage(ctx context.Context, topic, content string) error {
	form := url.Values{
		"type":    {"stream"},
		"to":      {c.stream},
		"topic":   {topic},
		"content": {content},
	}
	var resp apiResponse
	if err := c.call(ctx, http.MethodPost, "/api/v1/messages", form, &resp); err != nil {
		return err
	}
	if !resp.ok() {
		return fmt.Errorf("posting message: %s", resp.Msg)
	}
	return nil
}

func (c *ZulipClient) UploadFile(ctx context.Context, filename string, data []byte) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.site+"/api/v1/user_uploads", &buf)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.email, c.apiKey)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("uploading file: %w", err)
	}
	defer resp.Body.Close()

	var out struct {
		apiResponse
		URI string `json:"uri"`
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("uploading file: decoding response: %w", err)
	}
	if !out.ok() {
		return "", fmt.Errorf("uploading file: %s", out.Msg)
	}
	// Older servers report "uri", newer ones "url".
	if out.URI != "" {
		return out.URI, nil
	}
	return out.URL, nil
}

// StreamID resolves the configured stream's numeric ID.
func (c *ZulipClient) StreamID(ctx context.Context) (int, error) {
	var out struct {
		apiResponse
		StreamID int `json:"stream_id"`
	}
	path := "/api/v1/get_stream_id?stream=" + url.QueryEscape(c.stream)
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return 0, err
	}
	if !out.ok() {
		return 0, fmt.Errorf("resolving stream %q: %s", c.stream, out.Msg)
	}
	return out.StreamID, nil
}

func (c *ZulipClient) ListTopics(ctx context.Context) ([]string, error) {
	id, err := c.StreamID(ctx)
	if err != nil {
		return nil, err
	}
	var out struct {
		apiResponse
		Topics []struct {
			Name string `json:"name"`
		} `json:"topics"`
	}
	path := fmt.Sprintf("/api/v1/users/me/%d/topics", id)
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if !out.ok() {
		return nil, fmt.Errorf("listing topics: %s", out.Msg)
	}
	names := make([]string, 0, len(out.Topics))
	for _, t := range out.Topics {
		names = append(names, t.Name)
	}
	return names, nil
}

func (c *ZulipClient) StreamExists(ctx context.Context) (bool, error) {
	var out struct {
		apiResponse
		StreamID int `json:"stream_id"`
	}
	path := "/api/v1/get_stream_id?stream=" + url.QueryEscape(c.stream)
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return false, err
	}
	return out.ok(), nil
}

func (c *ZulipClient) Subscribe(ctx context.Context, emails []string) error {
	subs, err := json.Marshal([]map[string]string{{"name": c.stream}})
	if err != nil {
		return err
	}
	principals, err := json.Marshal(emails)
	if err != nil {
		return err
	}
	form := url.Values{
		"subscriptions": {string(subs)},
		"principals":    {string(principals)},
	}
	var resp apiResponse
	if err := c.call(ctx, http.MethodPost, "/api/v1/users/me/subscriptions", form, &resp); err != nil {
		return err
	}
	if !resp.ok() {
		return fmt.Errorf("subscribing to %q: %s", c.stream, resp.Msg)
	}
	return nil
}

func (c *ZulipClient) DeleteTopic(ctx context.Context, topic string) error {
	id, err := c.StreamID(ctx)
	if err != nil {
		return err
	}
	form := url.Values{"topic_name": {topic}}
	var resp apiResponse
	path := fmt.Sprintf("/api/v1/streams/%d/delete_topic", id)
	if err := c.call(ctx, http.MethodPost, path, form, &resp); err != nil {
		return err
	}
	if !resp.ok() {
		return fmt.Errorf("deleting topic %q: %s", topic, resp.Msg)
	}
	return nil
}

// RenameTopic moves every message in a topic to a new name. Zulip has no
// direct rename call; editing the newest message with change_all
// propagation moves the whole topic.
func (c *ZulipClient) RenameTopic(ctx context.Context, oldName, newName string) error {
	narrow, err := json.Marshal([]map[string]string{
		{"operator": "stream", "operand": c.stream},
		{"operator": "topic", "operand": oldName},
	})
	if err != nil {
		return err
	}
	query := url.Values{
		"anchor":     {"newest"},
		"num_before": {"1"},
		"num_after":  {"0"},
		"narrow":     {string(narrow)},
	}
	var found struct {
		apiResponse
		Messages []struct {
			ID int64 `json:"id"`
		} `json:"messages"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/messages?"+query.Encode(), nil, &found); err != nil {
		return err
	}
	if !found.ok() {
		return fmt.Errorf("finding topic %q: %s", oldName, found.Msg)
	}
	if len(found.Messages) == 0 {
		return fmt.Errorf("topic %q has no messages", oldName)
	}

	form := url.Values{
		"topic":          {newName},
		"propagate_mode": {"change_all"},
	}
	var resp apiResponse
	path := "/api/v1/messages/" + strconv.FormatInt(found.Messages[0].ID, 10)
	if err := c.call(ctx, http.MethodPatch, path, form, &resp); err != nil {
		return err
	}
	if !resp.ok() {
		return fmt.Errorf("renaming topic %q: %s", oldName, resp.Msg)
	}
	return nil
}

// FetchFile downloads a user upload from the Zulip site. Relative paths
// such as /user_uploads/... are resolved against the site URL.
func (c *ZulipClient) FetchFile(ctx context.Context, fileURL string) ([]byte, error) {
	if strings.HasPrefix(fileURL, "/") {
		fileURL = c.site + fileURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.email, c.apiKey)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", fileURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading %s: status %d", fileURL, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
