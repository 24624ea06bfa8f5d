package groupme

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
)

// dmSuffix is appended to every direct message so recipients can tell the
// notice came from automation.
const dmSuffix = "\n [This action was performed automatically by a bot]"

// Client calls the GroupMe v3 API for a single group. All methods are
// best-effort wire calls: they report success or failure and carry no
// decision logic.
type Client struct {
	baseURL     string
	accessToken string
	groupID     string
	botAuthID   string
	http        *http.Client
}

// NewClient creates a GroupMe client. Transient upstream failures are
// retried transparently.
func NewClient(baseURL, accessToken, groupID, botAuthID string) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.HTTPClient.Timeout = 10 * time.Second
	rc.Logger = nil

	return &Client{
		baseURL:     baseURL,
		accessToken: accessToken,
		groupID:     groupID,
		botAuthID:   botAuthID,
		http:        rc.StandardClient(),
	}
}

// GetMembershipID resolves a stable user ID to the group membership handle
// required by remove/ban calls. Returns an empty string when the user is
// not currently a member.
func (c *Client) GetMembershipID(ctx context.Context, userID string) (string, error) {
	var g group
	if err := c.get(ctx, "/groups/"+c.groupID, &g); err != nil {
		return "", fmt.Errorf("fetch group members: %w", err)
	}
	for _, m := range g.Members {
		if m.UserID == userID {
			return m.ID, nil
		}
	}
	return "", nil
}

// GetMembershipIDByName resolves a display name (case-insensitive) to the
// membership handle. Returns an empty string when no member matches.
func (c *Client) GetMembershipIDByName(ctx context.Context, name string) (string, error) {
	var g group
	if err := c.get(ctx, "/groups/"+c.groupID, &g); err != nil {
		return "", fmt.Errorf("fetch group members: %w", err)
	}
	for _, m := range g.Members {
		if strings.EqualFold(m.Nickname, name) {
			return m.ID, nil
		}
	}
	return "", nil
}

// RemoveMember removes a membership from the group.
func (c *Client) RemoveMember(ctx context.Context, membershipID string) error {
	path := fmt.Sprintf("/groups/%s/members/%s/remove", c.groupID, membershipID)
	if err := c.post(ctx, path, nil, nil); err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	return nil
}

// BanMembership applies a platform-level ban so the user cannot rejoin.
func (c *Client) BanMembership(ctx context.Context, membershipID string) error {
	path := fmt.Sprintf("/groups/%s/memberships/%s/destroy", c.groupID, membershipID)
	if err := c.post(ctx, path, nil, nil); err != nil {
		return fmt.Errorf("ban membership: %w", err)
	}
	return nil
}

// DeleteMessage deletes a message from the group conversation.
func (c *Client) DeleteMessage(ctx context.Context, messageID string) error {
	path := fmt.Sprintf("/conversations/%s/messages/%s", c.groupID, messageID)
	req, err := c.newRequest(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

// PostBotMessage posts an announcement to the group under the bot identity.
func (c *Client) PostBotMessage(ctx context.Context, text string) error {
	payload := map[string]string{"bot_id": c.botAuthID, "text": text}
	if err := c.post(ctx, "/bots/post", payload, nil); err != nil {
		return fmt.Errorf("post bot message: %w", err)
	}
	return nil
}

// SendDM sends a private notice to a user.
func (c *Client) SendDM(ctx context.Context, userID, text string) error {
	payload := map[string]any{
		"direct_message": map[string]string{
			"source_guid":  uuid.NewString(),
			"recipient_id": userID,
			"text":         text + dmSuffix,
		},
	}
	if err := c.post(ctx, "/direct_messages", payload, nil); err != nil {
		return fmt.Errorf("send dm: %w", err)
	}
	return nil
}

// LikeMessage applies a heart reaction to a message. Used as the passive
// acknowledgment for ignored users.
func (c *Client) LikeMessage(ctx context.Context, messageID string) error {
	path := fmt.Sprintf("/messages/%s/%s/like", c.groupID, messageID)
	payload := map[string]any{
		"like_icon": map[string]string{"type": "unicode", "code": "❤️"},
	}
	if err := c.post(ctx, path, payload, nil); err != nil {
		return fmt.Errorf("like message: %w", err)
	}
	return nil
}

// ListSubgroups returns the group's topic subgroups with last-message
// previews.
func (c *Client) ListSubgroups(ctx context.Context) ([]Subgroup, error) {
	var subgroups []Subgroup
	if err := c.get(ctx, "/groups/"+c.groupID+"/subgroups", &subgroups); err != nil {
		return nil, fmt.Errorf("list subgroups: %w", err)
	}
	return subgroups, nil
}

// ListPendingMemberships returns join requests awaiting approval.
func (c *Client) ListPendingMemberships(ctx context.Context) ([]PendingMembership, error) {
	var pending []PendingMembership
	if err := c.get(ctx, "/groups/"+c.groupID+"/pending_memberships", &pending); err != nil {
		return nil, fmt.Errorf("list pending memberships: %w", err)
	}
	return pending, nil
}

// ApproveMembership accepts or denies a pending join request.
func (c *Client) ApproveMembership(ctx context.Context, membershipID string, approve bool) error {
	path := fmt.Sprintf("/groups/%s/members/%s/approval", c.groupID, membershipID)
	payload := map[string]bool{"approval": approve}
	if err := c.post(ctx, path, payload, nil); err != nil {
		return fmt.Errorf("approve membership: %w", err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	q := url.Values{"token": {c.accessToken}}
	req.URL.RawQuery = q.Encode()
	return req, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	req, err := c.newRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Debug("failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s returned status %d: %s", req.Method, req.URL.Path, resp.StatusCode, string(payload))
	}

	if out == nil {
		return nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if err := json.Unmarshal(env.Response, out); err != nil {
		return fmt.Errorf("decode response payload: %w", err)
	}
	return nil
}
