package broker

import (
	"context"
	"fmt"

	"copytrader/internal/models"
)

// Gateway is the typed surface of the trading API for one account. Pure
// I/O adapter: no retries, no state beyond the HTTP client. Non-success
// responses come back as *APIError, never as a panic.
type Gateway interface {
	Orders(ctx context.Context) ([]models.Order, error)
	Place(ctx context.Context, req models.OrderRequest) (string, error)
	Cancel(ctx context.Context, orderID string) error
	Positions(ctx context.Context) ([]models.Position, error)
}

// APIError is a non-2xx response from the broker.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("broker api status %d: %s", e.StatusCode, e.Body)
}
