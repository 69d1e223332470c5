// Package client is the HTTP client for the social activities API. It
// implements the gateway interfaces consumed by the store package.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Jamen1147/socialApp/internal/api"
	"github.com/Jamen1147/socialApp/internal/domain"
	"github.com/Jamen1147/socialApp/internal/store"
)

// TokenSource supplies the current bearer token, or empty when signed out.
type TokenSource func() string

// Client talks to the activities API over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	pageSize   int
}

// Option configures optional behaviour for the Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithPageSize sets how many activities each list page requests.
func WithPageSize(n int) Option {
	return func(c *Client) { c.pageSize = n }
}

// New constructs a Client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		pageSize:   50,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetTokenSource installs the bearer token supplier. It is set after
// construction because the session that owns the token needs the client first.
func (c *Client) SetTokenSource(tokens TokenSource) {
	c.tokens = tokens
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Type       string
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api: %d %s: %s", e.StatusCode, e.Type, e.Detail)
	}
	return fmt.Sprintf("api: unexpected status %d", e.StatusCode)
}

// List fetches every activity, following the cursor until the server
// reports no further pages.
func (c *Client) List(ctx context.Context) ([]domain.Activity, error) {
	var (
		out    []domain.Activity
		cursor string
	)
	for {
		query := url.Values{"limit": {fmt.Sprint(c.pageSize)}}
		if cursor != "" {
			query.Set("cursor", cursor)
		}

		var page api.ListActivitiesResponse
		if err := c.do(ctx, http.MethodGet, "/v1/activities?"+query.Encode(), nil, &page); err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			out = append(out, viewToDomain(item))
		}
		if page.NextCursor == "" {
			return out, nil
		}
		cursor = page.NextCursor
	}
}

// Details fetches one activity. A 404 yields (nil, nil).
func (c *Client) Details(ctx context.Context, id string) (*domain.Activity, error) {
	var view api.ActivityView
	err := c.do(ctx, http.MethodGet, "/v1/activities/"+url.PathEscape(id), nil, &view)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	activity := viewToDomain(view)
	return &activity, nil
}

// Create registers a new activity.
func (c *Client) Create(ctx context.Context, activity domain.Activity) error {
	return c.do(ctx, http.MethodPost, "/v1/activities", activityRequest(activity), nil)
}

// Update replaces the descriptive fields of an activity.
func (c *Client) Update(ctx context.Context, activity domain.Activity) error {
	return c.do(ctx, http.MethodPut, "/v1/activities/"+url.PathEscape(activity.ID), activityRequest(activity), nil)
}

// Delete removes an activity.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/activities/"+url.PathEscape(id), nil, nil)
}

// Attend joins the signed-in user to an activity roster.
func (c *Client) Attend(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/v1/activities/"+url.PathEscape(id)+"/attend", nil, nil)
}

// Withdraw removes the signed-in user from an activity roster.
func (c *Client) Withdraw(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/activities/"+url.PathEscape(id)+"/attend", nil, nil)
}

// Login exchanges credentials for an account and bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (store.Account, string, error) {
	var resp api.UserResponse
	err := c.do(ctx, http.MethodPost, "/v1/users/login", api.LoginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return store.Account{}, "", err
	}
	return accountFromResponse(resp), resp.Token, nil
}

// Register creates an account and returns it with a bearer token.
func (c *Client) Register(ctx context.Context, input store.RegisterInput) (store.Account, string, error) {
	req := api.RegisterRequest{
		Username:    input.Username,
		DisplayName: input.DisplayName,
		Email:       input.Email,
		Password:    input.Password,
	}
	var resp api.UserResponse
	if err := c.do(ctx, http.MethodPost, "/v1/users", req, &resp); err != nil {
		return store.Account{}, "", err
	}
	return accountFromResponse(resp), resp.Token, nil
}

// CurrentUser fetches the account for the current bearer token.
func (c *Client) CurrentUser(ctx context.Context) (store.Account, error) {
	var resp api.UserResponse
	if err := c.do(ctx, http.MethodGet, "/v1/users/me", nil, &resp); err != nil {
		return store.Account{}, err
	}
	return accountFromResponse(resp), nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{StatusCode: resp.StatusCode}
		var payload struct {
			Type   string `json:"type"`
			Detail string `json:"detail"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&payload); decodeErr == nil {
			statusErr.Type = payload.Type
			statusErr.Detail = payload.Detail
		}
		return statusErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func activityRequest(activity domain.Activity) api.ActivityRequest {
	return api.ActivityRequest{
		ID:          activity.ID,
		Title:       activity.Title,
		Description: activity.Description,
		Category:    activity.Category,
		Date:        activity.Date,
		City:        activity.City,
		Venue:       activity.Venue,
	}
}

func viewToDomain(view api.ActivityView) domain.Activity {
	attendees := make([]domain.Attendee, 0, len(view.Attendees))
	for _, att := range view.Attendees {
		attendees = append(attendees, domain.Attendee{
			Username:    att.Username,
			DisplayName: att.DisplayName,
			Image:       att.Image,
			IsHost:      att.IsHost,
		})
	}
	return domain.Activity{
		ID:          view.ID,
		Title:       view.Title,
		Description: view.Description,
		Category:    view.Category,
		Date:        view.Date,
		City:        view.City,
		Venue:       view.Venue,
		Attendees:   attendees,
		IsHost:      view.IsHost,
		IsGoing:     view.IsGoing,
	}
}

func accountFromResponse(resp api.UserResponse) store.Account {
	return store.Account{
		Username:    resp.Username,
		DisplayName: resp.DisplayName,
		Email:       resp.Email,
		Image:       resp.Image,
	}
}
