// Package notify delivers plain-text messages to the team chat channel
// through a bot API.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"

	"github.com/localpulse/jobs/pkg/services"
)

// maxMessageLength is the chat API's limit for one message
const maxMessageLength = 4096

// Client sends messages with a chat bot
type Client struct {
	http    *services.HTTPClient
	baseURL string
	token   string
	chatID  string
}

type sendMessageRequest struct {
	ChatID              string `json:"chat_id"`
	Text                string `json:"text"`
	DisableNotification bool   `json:"disable_notification"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func NewClient(client *services.HTTPClient, baseURL, token, chatID string) *Client {
	client.Redact(token)
	return &Client{http: client, baseURL: strings.TrimRight(baseURL, "/"), token: token, chatID: chatID}
}

// Send posts message to the configured chat. silent delivers it without a
// sound/vibration on the recipients' devices.
func (c *Client) Send(ctx context.Context, message string, silent bool) error {
	if err := services.RequireSetting("CHAT_BOT_TOKEN", c.token); err != nil {
		return err
	}
	if err := services.RequireSetting("CHAT_ID", c.chatID); err != nil {
		return err
	}

	req := sendMessageRequest{
		ChatID:              c.chatID,
		Text:                clip(message, maxMessageLength),
		DisableNotification: silent,
	}

	var resp sendMessageResponse
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)
	if err := c.http.DoJSON(ctx, http.MethodPost, endpoint, nil, req, &resp); err != nil {
		return err
	}
	if !resp.OK {
		return errors.Newf("chat API refused message: %s", resp.Description)
	}
	return nil
}

// clip shortens s to at most n runes, marking the cut
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}
