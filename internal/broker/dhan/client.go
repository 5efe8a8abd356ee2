package dhan

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"copytrader/internal/logger"
)

// Client talks to the Dhan v2 REST API on behalf of a single account. One
// client is built per account at startup and reused for every cycle.
type Client struct {
	baseURL     string
	clientID    string
	accessToken string

	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logger.Logger
}

func New(baseURL, clientID, accessToken string, timeout time.Duration, rps float64, log *logger.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if rps <= 0 {
		rps = 20
	}
	return &Client{
		baseURL:     baseURL,
		clientID:    clientID,
		accessToken: accessToken,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)),
		log:     log,
	}
}

// ClientID is the broker-side account identifier this client places for.
func (c *Client) ClientID() string {
	return c.clientID
}
