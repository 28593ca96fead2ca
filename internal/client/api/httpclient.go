package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/avolkov/duochat/internal/common"
)

// HTTPClient talks JSON REST to the backend and opens websocket feeds for
// thread subscriptions. After a successful Authenticate the access token is
// attached to every request as a bearer header.
type HTTPClient struct {
	baseURL     string
	httpClient  *http.Client
	dialer      *websocket.Dialer
	accessToken string
}

func NewHTTPClient(endpointURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(endpointURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		dialer:     websocket.DefaultDialer,
	}
}

// wire types, mirroring the server's httpapi payloads

type accountRequest struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Avatar      string `json:"avatar"`
}

type accountResponse struct {
	ID string `json:"id"`
}

type sessionRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	UserID      string `json:"user_id"`
	AccessToken string `json:"access_token"`
}

type userPayload struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	Avatar      string    `json:"avatar"`
	AvatarKey   string    `json:"avatar_key"`
	CreatedAt   time.Time `json:"created_at"`
}

type pushTokenRequest struct {
	Token string `json:"token"`
}

type messageRequest struct {
	ReceiverID string `json:"receiver_id"`
	Body       string `json:"body"`
}

type messagePayload struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Body       string    `json:"body"`
	SentAt     time.Time `json:"sent_at"`
	Seq        int64     `json:"seq"`
}

type snapshotFrame struct {
	Messages []messagePayload `json:"messages"`
}

type uploadURLResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

type getURLResponse struct {
	URL string `json:"url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toRecord(p userPayload) *Record {
	return &Record{
		ID:          p.ID,
		DisplayName: p.DisplayName,
		Email:       p.Email,
		Avatar:      p.Avatar,
		AvatarKey:   p.AvatarKey,
		CreatedAt:   p.CreatedAt,
	}
}

func toMessage(p messagePayload) Message {
	return Message{
		ID:         p.ID,
		SenderID:   p.SenderID,
		ReceiverID: p.ReceiverID,
		Body:       p.Body,
		SentAt:     p.SentAt,
		Seq:        p.Seq,
	}
}

// doJSON performs one request. A nil out skips response decoding.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.mapError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// mapError converts an error response into the client taxonomy. The backend
// message, when present, is kept verbatim for display.
func (c *HTTPClient) mapError(resp *http.Response) error {
	var body errorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(raw, &body)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return common.ErrUnauthorized
	case http.StatusNotFound:
		return common.ErrNotFound
	default:
		if body.Error != "" {
			return fmt.Errorf("%w: %s", common.ErrRemote, body.Error)
		}
		return fmt.Errorf("%w: status %d", common.ErrRemote, resp.StatusCode)
	}
}

func (c *HTTPClient) CreateAccount(ctx context.Context, account NewAccount) (string, error) {
	req := accountRequest{
		DisplayName: account.DisplayName,
		Email:       account.Email,
		Password:    account.Password,
		Avatar:      account.Avatar,
	}
	var resp accountResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/accounts", req, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *HTTPClient) Authenticate(ctx context.Context, email string, password string) (string, string, error) {
	var resp sessionResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/sessions", sessionRequest{Email: email, Password: password}, &resp); err != nil {
		return "", "", err
	}
	c.accessToken = resp.AccessToken
	return resp.UserID, resp.AccessToken, nil
}

func (c *HTTPClient) GetRecord(ctx context.Context, userID string) (*Record, error) {
	var resp userPayload
	if err := c.doJSON(ctx, http.MethodGet, "/api/users/"+url.PathEscape(userID), nil, &resp); err != nil {
		return nil, err
	}
	return toRecord(resp), nil
}

func (c *HTTPClient) ListUsers(ctx context.Context) ([]*Record, error) {
	var resp []userPayload
	if err := c.doJSON(ctx, http.MethodGet, "/api/users", nil, &resp); err != nil {
		return nil, err
	}
	records := make([]*Record, 0, len(resp))
	for _, p := range resp {
		records = append(records, toRecord(p))
	}
	return records, nil
}

func (c *HTTPClient) UpdatePushToken(ctx context.Context, userID string, token string) error {
	return c.doJSON(ctx, http.MethodPut, "/api/users/"+url.PathEscape(userID)+"/push-token", pushTokenRequest{Token: token}, nil)
}

func (c *HTTPClient) ClearPushToken(ctx context.Context, userID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/users/"+url.PathEscape(userID)+"/push-token", nil, nil)
}

func (c *HTTPClient) Append(ctx context.Context, threadKey string, msg OutgoingMessage) error {
	return c.doJSON(ctx, http.MethodPost, "/api/threads/"+url.PathEscape(threadKey)+"/messages", messageRequest(msg), nil)
}

func (c *HTTPClient) Subscribe(ctx context.Context, threadKey string) (Subscription, error) {
	wsURL, err := c.feedURL(threadKey)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	if c.accessToken != "" {
		header.Set("Authorization", "Bearer "+c.accessToken)
	}

	conn, resp, err := c.dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return nil, c.mapError(resp)
		}
		return nil, fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}

	return newWSSubscription(conn), nil
}

func (c *HTTPClient) feedURL(threadKey string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/api/threads/" + url.PathEscape(threadKey) + "/feed"
	return u.String(), nil
}

func (c *HTTPClient) AvatarUploadURL(ctx context.Context) (string, string, error) {
	var resp uploadURLResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/avatars/upload-url", nil, &resp); err != nil {
		return "", "", err
	}
	return resp.Key, resp.URL, nil
}

func (c *HTTPClient) AvatarGetURL(ctx context.Context, key string) (string, error) {
	var resp getURLResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/avatars/url?key="+url.QueryEscape(key), nil, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

func (c *HTTPClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
