package models

type OrderStatus string
type OrderType string
type TransactionType string
type Role string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusTraded    OrderStatus = "TRADED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusRejected  OrderStatus = "REJECTED"

	OrderTypeMarket         OrderType = "MARKET"
	OrderTypeLimit          OrderType = "LIMIT"
	OrderTypeStopLoss       OrderType = "STOP_LOSS"
	OrderTypeStopLossMarket OrderType = "STOP_LOSS_MARKET"

	TransactionTypeBuy  TransactionType = "BUY"
	TransactionTypeSell TransactionType = "SELL"

	RoleMaster Role = "master"
	RoleChild  Role = "child"
)

// Order is one row of the broker order book as returned by GET /v2/orders.
// UpdateTime stays a raw string; the engine parses it so a malformed value
// is skipped as a data-quality event instead of failing the whole fetch.
type Order struct {
	OrderID         string          `json:"orderId"`
	CorrelationID   string          `json:"correlationId"`
	Status          OrderStatus     `json:"orderStatus"`
	Type            OrderType       `json:"orderType"`
	TransactionType TransactionType `json:"transactionType"`
	ExchangeSegment string          `json:"exchangeSegment"`
	ProductType     string          `json:"productType"`
	Validity        string          `json:"validity"`
	SecurityID      string          `json:"securityId"`
	TradingSymbol   string          `json:"tradingSymbol"`
	Quantity        int             `json:"quantity"`
	Price           float64         `json:"price"`
	TriggerPrice    float64         `json:"triggerPrice"`
	UpdateTime      string          `json:"updateTime"`
}

// OrderRequest is the POST /v2/orders body. ClientID is filled in by the
// gateway of the account the order is placed on.
type OrderRequest struct {
	ClientID        string          `json:"dhanClientId"`
	CorrelationID   string          `json:"correlationId,omitempty"`
	TransactionType TransactionType `json:"transactionType"`
	ExchangeSegment string          `json:"exchangeSegment"`
	ProductType     string          `json:"productType"`
	OrderType       OrderType       `json:"orderType"`
	Validity        string          `json:"validity"`
	SecurityID      string          `json:"securityId"`
	Quantity        int             `json:"quantity"`
	Price           float64         `json:"price,omitempty"`
	TriggerPrice    float64         `json:"triggerPrice,omitempty"`
}

// Position is one row of GET /v2/positions, used by the dashboard snapshots.
type Position struct {
	TradingSymbol    string  `json:"tradingSymbol"`
	SecurityID       string  `json:"securityId"`
	ExchangeSegment  string  `json:"exchangeSegment"`
	ProductType      string  `json:"productType"`
	NetQty           int     `json:"netQty"`
	BuyAvg           float64 `json:"buyAvg"`
	SellAvg          float64 `json:"sellAvg"`
	RealizedProfit   float64 `json:"realizedProfit"`
	UnrealizedProfit float64 `json:"unrealizedProfit"`
}
