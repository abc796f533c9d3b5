// Package client talks to a slackr server over HTTP. Client satisfies
// toggle.Mutator.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slackr-server/models"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int    `json:"code"`
	Name       string `json:"name"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("slackr: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("slackr: HTTP %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the request timeout on a copy of the HTTP client, so a
// shared client passed to WithHTTPClient is left untouched.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := http.Client{}
		if c.httpClient != nil {
			hc = *c.httpClient
		}
		hc.Timeout = d
		c.httpClient = &hc
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// React adds the token owner's reaction to a message.
func (c *Client) React(ctx context.Context, token string, messageID, reactID int) error {
	return c.post(ctx, "/message/react", models.ReactRequest{
		Token:     token,
		MessageID: messageID,
		ReactID:   reactID,
	}, nil)
}

// Unreact removes the token owner's reaction from a message.
func (c *Client) Unreact(ctx context.Context, token string, messageID, reactID int) error {
	return c.post(ctx, "/message/unreact", models.ReactRequest{
		Token:     token,
		MessageID: messageID,
		ReactID:   reactID,
	}, nil)
}

func (c *Client) Register(ctx context.Context, username, displayName, password string) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	err := c.post(ctx, "/auth/register", models.RegisterRequest{
		Username:    username,
		DisplayName: displayName,
		Password:    password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Login(ctx context.Context, username, password string) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	err := c.post(ctx, "/auth/login", models.LoginRequest{
		Username: username,
		Password: password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) CreateChannel(ctx context.Context, token, name string) (int, error) {
	var resp models.CreateChannelResponse
	if err := c.post(ctx, "/channels/create", models.CreateChannelRequest{Token: token, Name: name}, &resp); err != nil {
		return 0, err
	}
	return resp.ChannelID, nil
}

func (c *Client) JoinChannel(ctx context.Context, token string, channelID int) error {
	return c.post(ctx, "/channel/join", models.JoinChannelRequest{Token: token, ChannelID: channelID}, nil)
}

func (c *Client) SendMessage(ctx context.Context, token string, channelID int, message string) (int, error) {
	var resp models.SendMessageResponse
	err := c.post(ctx, "/message/send", models.SendMessageRequest{
		Token:     token,
		ChannelID: channelID,
		Message:   message,
	}, &resp)
	if err != nil {
		return 0, err
	}
	return resp.MessageID, nil
}

// Logout revokes token. It reports false when the token was already
// invalid.
func (c *Client) Logout(ctx context.Context, token string) (bool, error) {
	var resp models.LogoutResponse
	if err := c.post(ctx, "/auth/logout", models.LogoutRequest{Token: token}, &resp); err != nil {
		return false, err
	}
	return resp.IsSuccess, nil
}

// ListChannels returns the channels the token owner belongs to.
func (c *Client) ListChannels(ctx context.Context, token string) ([]models.ChannelSummary, error) {
	return c.listChannels(ctx, "/channels/list", token)
}

func (c *Client) ListAllChannels(ctx context.Context, token string) ([]models.ChannelSummary, error) {
	return c.listChannels(ctx, "/channels/listall", token)
}

func (c *Client) listChannels(ctx context.Context, path, token string) ([]models.ChannelSummary, error) {
	var resp models.ChannelListResponse
	if err := c.get(ctx, path, url.Values{"token": {token}}, &resp); err != nil {
		return nil, err
	}
	return resp.Channels, nil
}

// ChannelMessages fetches one page of a channel, newest first.
func (c *Client) ChannelMessages(ctx context.Context, token string, channelID, start int) (*models.ChannelMessagesResponse, error) {
	q := url.Values{}
	q.Set("token", token)
	q.Set("channel_id", strconv.Itoa(channelID))
	q.Set("start", strconv.Itoa(start))

	var resp models.ChannelMessagesResponse
	if err := c.get(ctx, "/channel/messages", q, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetMessage fetches a single message with reacts computed for the token
// owner.
func (c *Client) GetMessage(ctx context.Context, token string, messageID int) (*models.MessageDetails, error) {
	q := url.Values{}
	q.Set("token", token)
	q.Set("message_id", strconv.Itoa(messageID))

	var resp models.MessageDetails
	if err := c.get(ctx, "/message/details", q, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EditMessage replaces a message's text; an empty message removes it.
func (c *Client) EditMessage(ctx context.Context, token string, messageID int, message string) error {
	return c.send(ctx, http.MethodPut, "/message/edit", models.EditMessageRequest{
		Token:     token,
		MessageID: messageID,
		Message:   message,
	}, nil)
}

func (c *Client) RemoveMessage(ctx context.Context, token string, messageID int) error {
	return c.send(ctx, http.MethodDelete, "/message/remove", models.MessageRequest{Token: token, MessageID: messageID}, nil)
}

func (c *Client) PinMessage(ctx context.Context, token string, messageID int) error {
	return c.post(ctx, "/message/pin", models.MessageRequest{Token: token, MessageID: messageID}, nil)
}

func (c *Client) UnpinMessage(ctx context.Context, token string, messageID int) error {
	return c.post(ctx, "/message/unpin", models.MessageRequest{Token: token, MessageID: messageID}, nil)
}

func (c *Client) UserProfile(ctx context.Context, token string, userID int) (*models.UserResponse, error) {
	q := url.Values{}
	q.Set("token", token)
	q.Set("u_id", strconv.Itoa(userID))

	var resp models.UserResponse
	if err := c.get(ctx, "/user/profile", q, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	return c.send(ctx, http.MethodPost, path, body, out)
}

func (c *Client) send(ctx context.Context, method, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	logger := zerolog.Ctx(req.Context())
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	logger.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("slackr request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(data, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		apiErr.StatusCode = resp.StatusCode
		return apiErr
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}
