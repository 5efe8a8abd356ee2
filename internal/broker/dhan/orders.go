package dhan

import (
	"context"
	"net/http"

	"copytrader/internal/models"
)

func (c *Client) Orders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := c.doRequest(ctx, http.MethodGet, "/v2/orders", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) Place(ctx context.Context, req models.OrderRequest) (string, error) {
	// The replica must land on this client's account regardless of what
	// the caller filled in.
	req.ClientID = c.clientID

	var resp struct {
		OrderID string `json:"orderId"`
	}
	if err := c.doRequest(ctx, http.MethodPost, "/v2/orders", req, &resp); err != nil {
		return "", err
	}
	return resp.OrderID, nil
}

func (c *Client) Cancel(ctx context.Context, orderID string) error {
	return c.doRequest(ctx, http.MethodDelete, "/v2/orders/"+orderID, nil, nil)
}
