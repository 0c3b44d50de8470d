// Package chatapi is the thin REST collaborator the sync core talks to. It
// carries no sync logic: room listing, message fetch, send, mark-as-read,
// resolve and push registration are all plain request/response calls, and the
// message store remains the sole arbiter of order and dedup.
package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"drivecash/internal/domain/entity"
	"drivecash/pkg/errors"
)

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// envelope mirrors pkg/response.Response.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// MyRoom returns the caller's conversation, creating it lazily server-side on
// first use.
func (c *Client) MyRoom(ctx context.Context) (*entity.Conversation, error) {
	var conv entity.Conversation
	if err := c.do(ctx, http.MethodGet, "/v1/rooms/my-room", nil, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// roomPage and messagePage mirror pkg/response.PaginatedResponse for the
// list endpoints.
type roomPage struct {
	Items []*entity.Conversation `json:"items"`
	Total int64                  `json:"total"`
}

type messagePage struct {
	Items []*entity.Message `json:"items"`
	Total int64             `json:"total"`
}

// ListRooms returns every conversation visible to the caller: all rooms for
// an operator, exactly one for a borrower.
func (c *Client) ListRooms(ctx context.Context) ([]*entity.Conversation, error) {
	var page roomPage
	if err := c.do(ctx, http.MethodGet, "/v1/rooms", nil, &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

// Messages returns the full message list for a room, ascending by creation
// time.
func (c *Client) Messages(ctx context.Context, roomID string) ([]*entity.Message, error) {
	var page messagePage
	path := fmt.Sprintf("/v1/rooms/%s/messages", roomID)
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

type sendRequest struct {
	Text           string `json:"text"`
	AttachmentURL  string `json:"attachment_url,omitempty"`
	AttachmentName string `json:"attachment_name,omitempty"`
}

// Send submits a message; the response echoes the persisted copy with its
// server-assigned identifier and status "sent".
func (c *Client) Send(ctx context.Context, roomID, text, attachmentURL, attachmentName string) (*entity.Message, error) {
	var msg entity.Message
	path := fmt.Sprintf("/v1/rooms/%s/messages", roomID)
	body := sendRequest{Text: text, AttachmentURL: attachmentURL, AttachmentName: attachmentName}
	if err := c.do(ctx, http.MethodPost, path, body, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// MarkRead marks every unread message in the room as read, as one batch.
func (c *Client) MarkRead(ctx context.Context, roomID string) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/v1/rooms/%s/read", roomID), nil, nil)
}

// Resolve closes out a conversation and best-effort notifies the borrower.
func (c *Client) Resolve(ctx context.Context, roomID string) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/v1/rooms/%s/resolve", roomID), nil, nil)
}

type subscribeRequest struct {
	ConversationID string `json:"conversation_id"`
	Endpoint       string `json:"endpoint"`
	P256dhKey      string `json:"p256dh_key"`
	AuthKey        string `json:"auth_key"`
}

// Subscribe registers a Web Push subscription against a room. Registration
// only feeds out-of-tab notifications; skipping it degrades gracefully.
func (c *Client) Subscribe(ctx context.Context, roomID, endpoint, p256dh, auth string) error {
	body := subscribeRequest{
		ConversationID: roomID,
		Endpoint:       endpoint,
		P256dhKey:      p256dh,
		AuthKey:        auth,
	}
	return c.do(ctx, http.MethodPost, "/v1/push/subscriptions", body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody *bytes.Buffer = bytes.NewBuffer(nil)
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Internal("Failed to encode request", err)
		}
		reqBody = bytes.NewBuffer(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return errors.Internal("Failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Unavailable("Chat service unreachable", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return errors.Internal("Failed to decode response", err)
	}

	if !env.Success {
		code := "INTERNAL_ERROR"
		message := "Chat service request failed"
		if env.Error != nil {
			code = env.Error.Code
			message = env.Error.Message
		}
		return errors.New(code, message, resp.StatusCode, nil)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return errors.Internal("Failed to decode response data", err)
		}
	}
	return nil
}
