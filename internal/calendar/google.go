package calendar

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
)

const (
	defaultAPIBaseURL   = "https://www.googleapis.com/calendar/v3"
	defaultTokenURL     = "https://oauth2.googleapis.com/token"
	defaultAuthURL      = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultUserInfoURL  = "https://www.googleapis.com/oauth2/v2/userinfo"
	defaultCallTimeout  = 5 * time.Second
	calendarOAuthScopes = "https://www.googleapis.com/auth/userinfo.email https://www.googleapis.com/auth/userinfo.profile https://www.googleapis.com/auth/calendar"
)

// GoogleConfig configures the Google Calendar provider.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	// Timeout bounds every outbound call. Zero selects the 5s default.
	Timeout time.Duration
	// BaseURL / TokenURL / UserInfoURL override the Google endpoints,
	// primarily for tests.
	BaseURL     string
	TokenURL    string
	UserInfoURL string
}

// GoogleProvider implements Provider against the Google Calendar REST API.
type GoogleProvider struct {
	config     GoogleConfig
	httpClient *http.Client
}

// NewGoogleProvider constructs a provider with a timeout-bounded HTTP client.
func NewGoogleProvider(config GoogleConfig) *GoogleProvider {
	if config.Timeout <= 0 {
		config.Timeout = defaultCallTimeout
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultAPIBaseURL
	}
	if config.TokenURL == "" {
		config.TokenURL = defaultTokenURL
	}
	if config.UserInfoURL == "" {
		config.UserInfoURL = defaultUserInfoURL
	}
	return &GoogleProvider{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// AuthURL returns the consent URL a team member visits to connect a calendar.
func (p *GoogleProvider) AuthURL(state string) string {
	values := url.Values{}
	values.Set("client_id", p.config.ClientID)
	values.Set("redirect_uri", p.config.RedirectURI)
	values.Set("response_type", "code")
	values.Set("access_type", "offline")
	values.Set("prompt", "consent")
	values.Set("scope", calendarOAuthScopes)
	if state != "" {
		values.Set("state", state)
	}
	return defaultAuthURL + "?" + values.Encode()
}

// Tokens is the result of an OAuth code exchange or refresh.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// ExchangeCode trades an OAuth authorization code for tokens.
func (p *GoogleProvider) ExchangeCode(ctx context.Context, code string) (Tokens, error) {
	form := url.Values{}
	form.Set("code", code)
	form.Set("client_id", p.config.ClientID)
	form.Set("client_secret", p.config.ClientSecret)
	form.Set("redirect_uri", p.config.RedirectURI)
	form.Set("grant_type", "authorization_code")

	var tokens Tokens
	if err := p.postForm(ctx, p.config.TokenURL, form, &tokens); err != nil {
		return Tokens{}, &ProviderError{Op: "exchange code", Err: err}
	}
	return tokens, nil
}

// RefreshTokens obtains a fresh access token from a refresh token.
func (p *GoogleProvider) RefreshTokens(ctx context.Context, refreshToken string) (Tokens, error) {
	form := url.Values{}
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", p.config.ClientID)
	form.Set("client_secret", p.config.ClientSecret)
	form.Set("grant_type", "refresh_token")

	var tokens Tokens
	if err := p.postForm(ctx, p.config.TokenURL, form, &tokens); err != nil {
		return Tokens{}, &ProviderError{Op: "refresh tokens", Err: err}
	}
	return tokens, nil
}

// UserInfo identifies the account that granted a token.
type UserInfo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// FetchUserInfo resolves the email and display name behind an access token.
func (p *GoogleProvider) FetchUserInfo(ctx context.Context, accessToken string) (UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.UserInfoURL, nil)
	if err != nil {
		return UserInfo{}, &ProviderError{Op: "fetch user info", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var info UserInfo
	if err := p.do(req, &info); err != nil {
		return UserInfo{}, &ProviderError{Op: "fetch user info", Err: err}
	}
	return info, nil
}

type freeBusyRequest struct {
	TimeMin string              `json:"timeMin"`
	TimeMax string              `json:"timeMax"`
	Items   []freeBusyQueryItem `json:"items"`
}

type freeBusyQueryItem struct {
	ID string `json:"id"`
}

type freeBusyResponse struct {
	Calendars map[string]struct {
		Busy []struct {
			Start string `json:"start"`
			End   string `json:"end"`
		} `json:"busy"`
	} `json:"calendars"`
}

// IsFree queries the free/busy endpoint for [start, end) on the credential's
// calendar. The calendar is free when the interval reports no busy ranges.
func (p *GoogleProvider) IsFree(ctx context.Context, cred Credential, start, end time.Time) (bool, error) {
	calendarID := cred.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}

	payload := freeBusyRequest{
		TimeMin: start.Format(time.RFC3339),
		TimeMax: end.Format(time.RFC3339),
		Items:   []freeBusyQueryItem{{ID: calendarID}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return false, &ProviderError{Op: "query free/busy", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+"/freeBusy", bytes.NewReader(body))
	if err != nil {
		return false, &ProviderError{Op: "query free/busy", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	var result freeBusyResponse
	if err := p.do(req, &result); err != nil {
		return false, &ProviderError{Op: "query free/busy", Err: err}
	}

	entry, ok := result.Calendars[calendarID]
	if !ok {
		return false, &ProviderError{Op: "query free/busy", Err: fmt.Errorf("calendar %q missing from response", calendarID)}
	}
	return len(entry.Busy) == 0, nil
}

type eventTime struct {
	DateTime string `json:"dateTime"`
}

type eventAttendee struct {
	Email string `json:"email"`
}

type insertEventRequest struct {
	Summary     string          `json:"summary"`
	Description string          `json:"description,omitempty"`
	Start       eventTime       `json:"start"`
	End         eventTime       `json:"end"`
	Attendees   []eventAttendee `json:"attendees,omitempty"`
}

type insertEventResponse struct {
	ID string `json:"id"`
}

// CreateEvent inserts an event with both the customer and the assignee as
// attendees and returns the provider event ID.
func (p *GoogleProvider) CreateEvent(ctx context.Context, cred Credential, details EventDetails) (string, error) {
	calendarID := cred.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}

	payload := insertEventRequest{
		Summary:     details.Title,
		Description: details.Description,
		Start:       eventTime{DateTime: details.Start.Format(time.RFC3339)},
		End:         eventTime{DateTime: details.End.Format(time.RFC3339)},
	}
	if details.CustomerEmail != "" {
		payload.Attendees = append(payload.Attendees, eventAttendee{Email: details.CustomerEmail})
	}
	if details.MemberEmail != "" {
		payload.Attendees = append(payload.Attendees, eventAttendee{Email: details.MemberEmail})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", &ProviderError{Op: "create event", Err: err}
	}

	endpoint := fmt.Sprintf("%s/calendars/%s/events?sendUpdates=all", p.config.BaseURL, url.PathEscape(calendarID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &ProviderError{Op: "create event", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	var result insertEventResponse
	if err := p.do(req, &result); err != nil {
		return "", &ProviderError{Op: "create event", Err: err}
	}
	if result.ID == "" {
		return "", &ProviderError{Op: "create event", Err: fmt.Errorf("provider returned no event id")}
	}
	return result.ID, nil
}

func (p *GoogleProvider) postForm(ctx context.Context, endpoint string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return p.do(req, out)
}

func (p *GoogleProvider) do(req *http.Request, out any) error {
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
