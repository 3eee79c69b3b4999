package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/SobhanSah00/iiit-bbsrDrawisly/api/wire"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// StatusError is returned when a history endpoint answers with a non-200 status
type StatusError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *StatusError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("history request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("history request failed with status %d: %s: %s", e.StatusCode, e.Code, e.Description)
}

// HistoryClient fetches chat pages and draw replays over HTTP
type HistoryClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewHistoryClient creates a client for the server at baseURL authenticating with token
func NewHistoryClient(baseURL, token string) *HistoryClient {
	return &HistoryClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   10 * time.Second,
		},
	}
}

// FetchChats implements ChatFetcher
func (c *HistoryClient) FetchChats(ctx context.Context, roomID, cursor string, limit int) (wire.ChatPage, error) {
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var page wire.ChatPage
	if err := c.get(ctx, "/chat/"+url.PathEscape(roomID), q, &page); err != nil {
		return wire.ChatPage{}, err
	}
	return page, nil
}

// FetchDraws returns every persisted element of the room in order
func (c *HistoryClient) FetchDraws(ctx context.Context, roomID string) ([]wire.DrawElement, error) {
	var history wire.DrawHistory
	if err := c.get(ctx, "/draw/"+url.PathEscape(roomID), nil, &history); err != nil {
		return nil, err
	}
	return history.Draws, nil
}

func (c *HistoryClient) get(ctx context.Context, path string, q url.Values, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		se := &StatusError{StatusCode: resp.StatusCode}
		var apiErr struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		if json.Unmarshal(body, &apiErr) == nil {
			se.Code, se.Description = apiErr.Error, apiErr.ErrorDescription
		}
		return se
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
