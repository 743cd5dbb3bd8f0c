package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go-saas-backend/internal/domain"
)

// Client talks to the Supabase GoTrue API. Password grant, signup, recover and
// logout use the anon key; the admin endpoints use the service-role key.
type Client struct {
	baseURL    string
	anonKey    string
	serviceKey string
	appURL     string
	httpClient *http.Client
}

func NewClient(baseURL, anonKey, serviceKey, appURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		anonKey:    anonKey,
		serviceKey: serviceKey,
		appURL:     appURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// gtUser is the GoTrue wire representation of a user.
type gtUser struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

func (u gtUser) toIdentity() domain.Identity {
	createdAt, _ := time.Parse(time.RFC3339, u.CreatedAt)
	return domain.Identity{ID: u.ID, Email: u.Email, CreatedAt: createdAt}
}

// gtSession covers both response shapes GoTrue uses: a session object with a
// nested user, or (signup with email confirmation pending) a bare user object
// at the top level.
type gtSession struct {
	AccessToken string  `json:"access_token"`
	TokenType   string  `json:"token_type"`
	User        *gtUser `json:"user"`
	gtUser
}

func (s gtSession) toSession() *domain.Session {
	sess := &domain.Session{
		AccessToken: s.AccessToken,
		TokenType:   s.TokenType,
	}
	if sess.TokenType == "" {
		sess.TokenType = "bearer"
	}
	if s.User != nil {
		sess.User = s.User.toIdentity()
	} else {
		sess.User = s.gtUser.toIdentity()
	}
	return sess
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	body := map[string]interface{}{"email": email, "password": password}

	var session gtSession
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", c.anonKey, "", body, &session); err != nil {
		return nil, err
	}
	if session.AccessToken == "" {
		return nil, fmt.Errorf("supabase: sign-in returned no session")
	}
	return session.toSession(), nil
}

func (c *Client) SignUp(ctx context.Context, email, password string) (*domain.Session, error) {
	body := map[string]interface{}{
		"email":    email,
		"password": password,
		"options": map[string]interface{}{
			"emailRedirectTo": c.appURL + "/auth/callback",
		},
	}

	var session gtSession
	if err := c.do(ctx, http.MethodPost, "/auth/v1/signup", c.anonKey, "", body, &session); err != nil {
		return nil, err
	}
	sess := session.toSession()
	if sess.User.ID == "" {
		return nil, fmt.Errorf("supabase: signup returned no user")
	}
	return sess, nil
}

func (c *Client) SendPasswordReset(ctx context.Context, email string) error {
	path := "/auth/v1/recover?redirect_to=" + url.QueryEscape(c.appURL+"/reset-password")
	body := map[string]interface{}{"email": email}
	return c.do(ctx, http.MethodPost, path, c.anonKey, "", body, nil)
}

func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/auth/v1/logout", c.anonKey, accessToken, nil, nil)
}

func (c *Client) AdminGetUser(ctx context.Context, id string) (*domain.Identity, error) {
	var user gtUser
	if err := c.do(ctx, http.MethodGet, "/auth/v1/admin/users/"+url.PathEscape(id), c.serviceKey, c.serviceKey, nil, &user); err != nil {
		return nil, err
	}
	identity := user.toIdentity()
	return &identity, nil
}

// AdminListUsers pages through the full auth user list.
func (c *Client) AdminListUsers(ctx context.Context) ([]domain.Identity, error) {
	const perPage = 100
	var identities []domain.Identity

	for page := 1; ; page++ {
		path := "/auth/v1/admin/users?page=" + strconv.Itoa(page) + "&per_page=" + strconv.Itoa(perPage)
		var result struct {
			Users []gtUser `json:"users"`
		}
		if err := c.do(ctx, http.MethodGet, path, c.serviceKey, c.serviceKey, nil, &result); err != nil {
			return nil, err
		}
		for _, u := range result.Users {
			identities = append(identities, u.toIdentity())
		}
		if len(result.Users) < perPage {
			return identities, nil
		}
	}
}

func (c *Client) AdminDeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/auth/v1/admin/users/"+url.PathEscape(id), c.serviceKey, c.serviceKey, nil, nil)
}

// do executes one GoTrue request. apiKey goes into the apikey header; when
// bearer is non-empty it is sent as the Authorization token.
func (c *Client) do(ctx context.Context, method, path, apiKey, bearer string, body, out interface{}) error {
	var reader *bytes.Buffer
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewBuffer(jsonBody)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", apiKey)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("supabase: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.errorFromResponse(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("supabase: failed to parse response: %w", err)
		}
	}
	return nil
}

// errorFromResponse extracts the human-readable message GoTrue puts in either
// "msg" or "error_description".
func (c *Client) errorFromResponse(resp *http.Response) error {
	var errResp map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&errResp)

	msg := "request failed"
	if m, ok := errResp["msg"].(string); ok {
		msg = m
	} else if m, ok := errResp["error_description"].(string); ok {
		msg = m
	}
	return &Error{Status: resp.StatusCode, Message: msg}
}

// Error is a GoTrue error response.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("supabase: %s (status %d)", e.Message, e.Status)
}
