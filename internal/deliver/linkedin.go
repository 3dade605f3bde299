package deliver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/TobiSchelling/AIDigest/internal/config"
)

const DefaultLinkedInURL = "https://api.linkedin.com"

// LinkedIn publishes text posts through the UGC API.
type LinkedIn struct {
	baseURL string
	token   string
	orgID   string
	client  *http.Client
}

// NewLinkedIn reads the token and optional organization from the
// environment variables named in cfg.
func NewLinkedIn(cfg config.LinkedIn, baseURL string, client *http.Client) *LinkedIn {
	if baseURL == "" {
		baseURL = DefaultLinkedInURL
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &LinkedIn{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   os.Getenv(cfg.AccessTokenEnv),
		orgID:   os.Getenv(cfg.OrganizationIDEnv),
		client:  client,
	}
}

// IsConfigured reports whether an access token is present.
func (l *LinkedIn) IsConfigured() bool {
	return l.token != ""
}

type ugcPost struct {
	Author          string         `json:"author"`
	LifecycleState  string         `json:"lifecycleState"`
	SpecificContent map[string]any `json:"specificContent"`
	Visibility      map[string]any `json:"visibility"`
}

// Post publishes content and returns the new post id. Without an
// organization the post goes to the token owner's profile.
func (l *LinkedIn) Post(ctx context.Context, content string) (string, error) {
	if !l.IsConfigured() {
		return "", fmt.Errorf("linkedin access token not configured")
	}

	author, err := l.author(ctx)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(ugcPost{
		Author:         author,
		LifecycleState: "PUBLISHED",
		SpecificContent: map[string]any{
			"com.linkedin.ugc.ShareContent": map[string]any{
				"shareCommentary":    map[string]string{"text": content},
				"shareMediaCategory": "NONE",
			},
		},
		Visibility: map[string]any{"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC"},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/v2/ugcPosts", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	l.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("linkedin post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("linkedin post: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var out struct {
		ID string `json:"id"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	if out.ID == "" {
		out.ID = resp.Header.Get("X-RestLi-Id")
	}
	log.Info().Str("post_id", out.ID).Msg("posted to LinkedIn")
	return out.ID, nil
}

func (l *LinkedIn) author(ctx context.Context) (string, error) {
	if l.orgID != "" {
		if strings.HasPrefix(l.orgID, "urn:li:") {
			return l.orgID, nil
		}
		return "urn:li:organization:" + l.orgID, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/v2/me", nil)
	if err != nil {
		return "", err
	}
	l.setHeaders(req)
	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("linkedin profile: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("linkedin profile: status %d", resp.StatusCode)
	}

	var me struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&me); err != nil {
		return "", fmt.Errorf("decoding linkedin profile: %w", err)
	}
	if me.ID == "" {
		return "", fmt.Errorf("linkedin profile has no id")
	}
	return "urn:li:person:" + me.ID, nil
}

func (l *LinkedIn) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+l.token)
}
