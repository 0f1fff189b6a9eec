// Package discord validates hosted tokens against the Discord REST API.
//
// Each FetchProfile call builds a short-lived discordgo session for the token
// being checked. No gateway connection is opened; only REST endpoints under
// /users/@me are used.
package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
)

// ErrInvalidToken is returned when Discord rejects the token (401/403).
var ErrInvalidToken = errors.New("discord: token rejected")

// maxGuilds is the page size of GET /users/@me/guilds.
const maxGuilds = 200

// Profile is what validation learns about the identity behind a token.
type Profile struct {
	ID        string
	Username  string
	AvatarURL string
	Bot       bool
	Guilds    int
	Friends   int
}

// Client fetches profiles with a bounded timeout per call.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for REST calls.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// NewClient returns a Client whose calls give up after timeout.
func NewClient(timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchProfile resolves the identity behind token.
//
// The token is sent verbatim in the Authorization header, so bot tokens must
// carry their "Bot " prefix. GET /users/@me decides validity. Guild and
// friend counts are best effort: a failure there leaves the count at zero
// rather than failing the whole validation.
func (c *Client) FetchProfile(ctx context.Context, token string) (*Profile, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	s, err := discordgo.New(token)
	if err != nil {
		return nil, fmt.Errorf("discord: creating session: %w", err)
	}
	s.Client = c.httpClient
	s.MaxRestRetries = 0
	s.ShouldRetryOnRateLimit = false

	me, err := s.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return nil, classify("GET /users/@me", err)
	}

	p := &Profile{
		ID:       me.ID,
		Username: me.Username,
		Bot:      me.Bot,
	}
	if me.Avatar != "" {
		p.AvatarURL = me.AvatarURL("")
	}

	if guilds, err := s.UserGuilds(maxGuilds, "", "", false, discordgo.WithContext(ctx)); err == nil {
		p.Guilds = len(guilds)
	}

	// Bot accounts have no relationships endpoint.
	if !me.Bot {
		if n, err := countRelationships(ctx, s); err == nil {
			p.Friends = n
		}
	}

	return p, nil
}

// relationshipFriend is the relationship type for an accepted friend.
const relationshipFriend = 1

type relationship struct {
	Type int `json:"type"`
}

func countRelationships(ctx context.Context, s *discordgo.Session) (int, error) {
	endpoint := discordgo.EndpointUser("@me") + "/relationships"

	body, err := s.RequestWithBucketID(http.MethodGet, endpoint, nil, endpoint, discordgo.WithContext(ctx))
	if err != nil {
		return 0, err
	}

	var rels []relationship
	if err := json.Unmarshal(body, &rels); err != nil {
		return 0, err
	}

	n := 0
	for _, r := range rels {
		if r.Type == relationshipFriend {
			n++
		}
	}
	return n, nil
}

func classify(op string, err error) error {
	if errors.Is(err, discordgo.ErrUnauthorized) {
		return fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}
		return fmt.Errorf("discord: %s returned %d: %w", op, restErr.Response.StatusCode, err)
	}
	return fmt.Errorf("discord: %s: %w", op, err)
}
