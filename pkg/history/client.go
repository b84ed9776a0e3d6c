// Package history talks to the hosted persistence service: message history,
// profile lookups, read receipts. Request/response only; live traffic never
// flows through here.
package history

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/wayfare-social/wayfare-chat/pkg/config"
	"github.com/wayfare-social/wayfare-chat/pkg/wire"
)

// Profile is the display record joined onto messages client-side. Sender
// name and avatar are not embedded in message rows.
type Profile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

type Client struct {
	rc       *resty.Client
	pageSize int
}

func NewClient(cfg config.PersistenceConfig) *Client {
	rc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second).
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		rc.SetHeader("apikey", cfg.APIKey)
	}
	return &Client{rc: rc, pageSize: cfg.HistoryPageSize}
}

// DirectHistory fetches the message history between two users, ascending by
// created_at. The pair is unordered: both directions are included.
func (c *Client) DirectHistory(ctx context.Context, userA, userB string) ([]wire.Message, error) {
	var out []wire.Message
	resp, err := c.rc.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"user1": userA,
			"user2": userB,
			"order": "created_at.asc",
			"limit": fmt.Sprint(c.pageSize),
		}).
		SetResult(&out).
		ForceContentType("application/json").
		Get("/messages/direct")
	if err != nil {
		return nil, fmt.Errorf("fetching direct history: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetching direct history: server returned %s", resp.Status())
	}
	sortByCreatedAt(out)
	return out, nil
}

// GroupHistory fetches a group chat's message history, ascending by
// created_at.
func (c *Client) GroupHistory(ctx context.Context, chatID string) ([]wire.Message, error) {
	var out []wire.Message
	resp, err := c.rc.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"chat_id": chatID,
			"order":   "created_at.asc",
			"limit":   fmt.Sprint(c.pageSize),
		}).
		SetResult(&out).
		ForceContentType("application/json").
		Get("/messages/group")
	if err != nil {
		return nil, fmt.Errorf("fetching group history: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetching group history: server returned %s", resp.Status())
	}
	sortByCreatedAt(out)
	return out, nil
}

// Profile fetches one user's display record.
func (c *Client) Profile(ctx context.Context, userID string) (*Profile, error) {
	var out Profile
	resp, err := c.rc.R().
		SetContext(ctx).
		SetResult(&out).
		ForceContentType("application/json").
		Get("/profiles/" + userID)
	if err != nil {
		return nil, fmt.Errorf("fetching profile %s: %w", userID, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetching profile %s: server returned %s", userID, resp.Status())
	}
	return &out, nil
}

// MarkDirectRead marks all messages sent by senderID to readerID as read.
func (c *Client) MarkDirectRead(ctx context.Context, readerID, senderID string) error {
	resp, err := c.rc.R().
		SetContext(ctx).
		SetBody(map[string]string{"reader_id": readerID, "sender_id": senderID}).
		Post("/messages/mark_read")
	if err != nil {
		return fmt.Errorf("marking read: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("marking read: server returned %s", resp.Status())
	}
	return nil
}

func sortByCreatedAt(msgs []wire.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
}
