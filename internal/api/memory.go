package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mastershashi/llm-engineering-usecases/internal/errors"
)

// DefaultRecallCount is the number of long-term hits requested by default.
const DefaultRecallCount = 5

// SessionMemory fetches the breadcrumbs a plan left in short-term memory.
func (c *Client) SessionMemory(ctx context.Context, planID string) (*SessionMemory, error) {
	var mem SessionMemory
	if err := c.do(ctx, "session_memory", http.MethodGet, planPath(planID, "memory", "session"), nil, &mem); err != nil {
		return nil, err
	}
	return &mem, nil
}

// WipeSessionMemory deletes a plan's short-term memory.
func (c *Client) WipeSessionMemory(ctx context.Context, planID string) (*WipeResult, error) {
	var res WipeResult
	if err := c.do(ctx, "wipe_session_memory", http.MethodDelete, planPath(planID, "memory", "session"), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Remember stores a fact in long-term memory. Category defaults to "general".
func (c *Client) Remember(ctx context.Context, f Fact) (*RememberAck, error) {
	if strings.TrimSpace(f.Key) == "" {
		return nil, errors.New(errors.ErrCodeInvalidArgs, "memory key is empty").WithField("key")
	}
	if f.Category == "" {
		f.Category = "general"
	}
	var ack RememberAck
	if err := c.do(ctx, "remember", http.MethodPost, "/memory/long-term", f, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

// Recall searches long-term memory. n <= 0 uses DefaultRecallCount.
func (c *Client) Recall(ctx context.Context, query string, n int) (*RecallResult, error) {
	if n <= 0 {
		n = DefaultRecallCount
	}
	q := url.Values{}
	q.Set("q", query)
	q.Set("n", strconv.Itoa(n))

	var res RecallResult
	if err := c.do(ctx, "recall", http.MethodGet, "/memory/long-term?"+q.Encode(), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// WipeAllMemory deletes every memory tier.
func (c *Client) WipeAllMemory(ctx context.Context) (*StatusAck, error) {
	var ack StatusAck
	if err := c.do(ctx, "wipe_all_memory", http.MethodDelete, "/memory/all", nil, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

// MemoryStats returns entry counts per tier.
func (c *Client) MemoryStats(ctx context.Context) (*MemoryStats, error) {
	var stats MemoryStats
	if err := c.do(ctx, "memory_stats", http.MethodGet, "/memory/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
