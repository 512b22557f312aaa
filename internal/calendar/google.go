// Package calendar implements the scheduling engine's external busy
// provider on top of the Google Calendar API. Busy intervals are read
// with the freebusy endpoint using a per-host OAuth token; they are
// opaque blocking time and are never written back.
package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/meetkit/booking/internal/scheduling"
)

// TokenStore abstracts the persisted per-host OAuth token. Get returns
// (nil, nil) when the host never connected a calendar.
type TokenStore interface {
	Save(ctx context.Context, hostID uint64, tokenJSON []byte) error
	Get(ctx context.Context, hostID uint64) ([]byte, error)
}

// GoogleBusyProvider implements scheduling.ExternalBusyProvider against
// the host's primary Google calendar.
type GoogleBusyProvider struct {
	cfg    *oauth2.Config
	tokens TokenStore
}

// NewOAuthConfig builds the OAuth2 config for calendar access from
// GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET and GOOGLE_REDIRECT_URL.
// Returns nil when the integration is not configured; callers degrade
// to internal bookings only.
func NewOAuthConfig() *oauth2.Config {
	clientID := os.Getenv("GOOGLE_CLIENT_ID")
	clientSecret := os.Getenv("GOOGLE_CLIENT_SECRET")
	redirectURL := os.Getenv("GOOGLE_REDIRECT_URL")
	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{gcal.CalendarReadonlyScope},
		Endpoint:     google.Endpoint,
	}
}

// NewGoogleBusyProvider wires the provider to its OAuth config and
// token store.
func NewGoogleBusyProvider(cfg *oauth2.Config, tokens TokenStore) *GoogleBusyProvider {
	return &GoogleBusyProvider{cfg: cfg, tokens: tokens}
}

// AuthCodeURL starts the connect flow for a host. The state parameter
// carries the host ID back through the callback.
func (p *GoogleBusyProvider) AuthCodeURL(state string) string {
	return p.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades the callback code for a token and stores it for the
// host.
func (p *GoogleBusyProvider) Exchange(ctx context.Context, hostID uint64, code string) error {
	tok, err := p.cfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchange authorization code: %w", err)
	}
	raw, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	return p.tokens.Save(ctx, hostID, raw)
}

// GetBusyIntervals implements scheduling.ExternalBusyProvider. A host
// without a connected calendar has no busy time. Transport or API
// failures wrap scheduling.ErrUnavailable so the slot generator can
// degrade instead of failing the request.
func (p *GoogleBusyProvider) GetBusyIntervals(ctx context.Context, hostID uint64, from, to time.Time) ([]scheduling.Interval, error) {
	raw, err := p.tokens.Get(ctx, hostID)
	if err != nil {
		return nil, fmt.Errorf("%w: load calendar token: %v", scheduling.ErrUnavailable, err)
	}
	if raw == nil {
		return nil, nil
	}
	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("%w: stored calendar token is corrupt: %v", scheduling.ErrUnavailable, err)
	}

	// TokenSource refreshes expired access tokens transparently using
	// the refresh token obtained with AccessTypeOffline.
	srv, err := gcal.NewService(ctx, option.WithTokenSource(p.cfg.TokenSource(ctx, &tok)))
	if err != nil {
		return nil, fmt.Errorf("%w: create calendar client: %v", scheduling.ErrUnavailable, err)
	}

	resp, err := srv.Freebusy.Query(&gcal.FreeBusyRequest{
		TimeMin: from.UTC().Format(time.RFC3339),
		TimeMax: to.UTC().Format(time.RFC3339),
		Items:   []*gcal.FreeBusyRequestItem{{Id: "primary"}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: freebusy query: %v", scheduling.ErrUnavailable, err)
	}

	var out []scheduling.Interval
	for _, cal := range resp.Calendars {
		for _, period := range cal.Busy {
			start, err1 := time.Parse(time.RFC3339, period.Start)
			end, err2 := time.Parse(time.RFC3339, period.End)
			if err1 != nil || err2 != nil {
				continue
			}
			out = append(out, scheduling.Interval{Start: start.UTC(), End: end.UTC()})
		}
	}
	return out, nil
}

// NoBusyProvider is the fallback when no calendar integration is
// configured: every host reads as free externally.
type NoBusyProvider struct{}

// GetBusyIntervals always returns no busy time.
func (NoBusyProvider) GetBusyIntervals(context.Context, uint64, time.Time, time.Time) ([]scheduling.Interval, error) {
	return nil, nil
}
