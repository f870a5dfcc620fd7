package promo

import (
	"context"
	"fmt"

	"ferryline/internal/cart"
	"ferryline/pkg/client"
	apperrors "ferryline/pkg/errors"
	"ferryline/pkg/logger"
)

// Client calls the promo-validation collaborator. It satisfies
// cart.PromoValidator; the cart owns what happens to the verdict.
type Client struct {
	http *client.HttpClient
	log  *logger.Logger
}

func NewClient(http *client.HttpClient, log *logger.Logger) *Client {
	return &Client{
		http: http,
		log:  log.WithComponent("promo-client"),
	}
}

var _ cart.PromoValidator = (*Client)(nil)

func (c *Client) Validate(ctx context.Context, req cart.PromoRequest) (cart.PromoResult, error) {
	resp, err := c.http.POST(ctx, "/api/v1/promo/validate", req)
	if err != nil {
		return cart.PromoResult{}, apperrors.Wrap(err, apperrors.CodeUnavailable, "promo service unreachable", 503)
	}
	if !resp.OK() {
		return cart.PromoResult{}, apperrors.New(apperrors.CodeUnavailable,
			fmt.Sprintf("promo service returned %d", resp.StatusCode), 503)
	}

	var result cart.PromoResult
	if err := resp.DecodeJSON(&result); err != nil {
		return cart.PromoResult{}, apperrors.Wrap(err, apperrors.CodeInternal, "malformed promo response", 500)
	}
	c.log.Debug("promo code validated", "code", req.Code, "valid", result.IsValid)
	return result, nil
}
