package search

import (
	"context"
	"fmt"
	"strings"

	"ferryline/pkg/client"
	apperrors "ferryline/pkg/errors"
	"ferryline/pkg/logger"
	"ferryline/pkg/model"
)

// Client talks to the search collaborator and is the one ingestion point
// where wire-key variants are normalized into the canonical schema.
type Client struct {
	http *client.HttpClient
	log  *logger.Logger
}

func NewClient(http *client.HttpClient, log *logger.Logger) *Client {
	return &Client{
		http: http,
		log:  log.WithComponent("search-client"),
	}
}

// Search runs a search and returns normalized sailing records ready to
// seed the cache.
func (c *Client) Search(ctx context.Context, params model.SearchParams) ([]*model.SailingResult, error) {
	resp, err := c.http.POST(ctx, "/api/v1/sailings/search", params)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnavailable, "search service unreachable", 503)
	}
	if !resp.OK() {
		return nil, apperrors.New(apperrors.CodeUnavailable,
			fmt.Sprintf("search service returned %d", resp.StatusCode), 503)
	}

	var wire []sailingWire
	if err := resp.DecodeJSON(&wire); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "malformed search response", 500)
	}

	results := make([]*model.SailingResult, 0, len(wire))
	for i := range wire {
		normalized, err := wire[i].normalize()
		if err != nil {
			c.log.Warn("dropping malformed sailing record", "error", err)
			continue
		}
		results = append(results, normalized)
	}
	c.log.Info("search results ingested", "count", len(results))
	return results, nil
}

// Refetch re-reads authoritative availability for specific sailings. Used
// after a failed booking creation, when locally reconciled counts can no
// longer be trusted.
func (c *Client) Refetch(ctx context.Context, sailingIDs []string) ([]*model.SailingResult, error) {
	path := "/api/v1/sailings?ids=" + strings.Join(sailingIDs, ",")
	resp, err := c.http.GET(ctx, path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnavailable, "search service unreachable", 503)
	}
	if !resp.OK() {
		return nil, apperrors.New(apperrors.CodeUnavailable,
			fmt.Sprintf("search service returned %d", resp.StatusCode), 503)
	}

	var wire []sailingWire
	if err := resp.DecodeJSON(&wire); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "malformed availability response", 500)
	}

	results := make([]*model.SailingResult, 0, len(wire))
	for i := range wire {
		normalized, err := wire[i].normalize()
		if err != nil {
			c.log.Warn("dropping malformed sailing record", "error", err)
			continue
		}
		results = append(results, normalized)
	}
	return results, nil
}
