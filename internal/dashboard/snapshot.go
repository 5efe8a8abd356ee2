package dashboard

import (
	"context"
	"strings"
	"time"

	"copytrader/internal/accounts"
	"copytrader/internal/broker"
	"copytrader/internal/models"
)

// OrderView is one order row as the dashboard shows it, tagged with the
// account it belongs to.
type OrderView struct {
	Name            string                 `json:"name"`
	Symbol          string                 `json:"symbol"`
	TransactionType models.TransactionType `json:"transaction_type"`
	Quantity        int                    `json:"quantity"`
	Price           float64                `json:"price"`
	Status          models.OrderStatus     `json:"status"`
	OrderID         string                 `json:"order_id"`
}

// OrdersSnapshot buckets every account's orders by status.
type OrdersSnapshot map[string][]OrderView

// PositionView is one position row tagged with its account.
type PositionView struct {
	Name            string  `json:"name"`
	Symbol          string  `json:"symbol"`
	SecurityID      string  `json:"security_id"`
	ExchangeSegment string  `json:"exchange_segment"`
	ProductType     string  `json:"product_type"`
	Quantity        int     `json:"quantity"`
	BuyAvg          float64 `json:"buy_avg"`
	SellAvg         float64 `json:"sell_avg"`
	NetProfit       float64 `json:"net_profit"`
	TransactionType string  `json:"transaction_type"`
}

// PositionsSnapshot splits positions into open and closed on net quantity.
type PositionsSnapshot struct {
	Open   []PositionView `json:"open"`
	Closed []PositionView `json:"closed"`
}

var orderBuckets = []string{"pending", "traded", "rejected", "cancelled", "others"}

func emptyOrdersSnapshot() OrdersSnapshot {
	snap := OrdersSnapshot{}
	for _, bucket := range orderBuckets {
		snap[bucket] = []OrderView{}
	}
	return snap
}

func bucketFor(status models.OrderStatus) string {
	bucket := strings.ToLower(string(status))
	for _, known := range orderBuckets {
		if bucket == known {
			return bucket
		}
	}
	return "others"
}

func appendOrders(snap OrdersSnapshot, name string, orders []models.Order) {
	for _, order := range orders {
		view := OrderView{
			Name:            name,
			Symbol:          order.TradingSymbol,
			TransactionType: order.TransactionType,
			Quantity:        order.Quantity,
			Price:           order.Price,
			Status:          order.Status,
			OrderID:         order.OrderID,
		}
		bucket := bucketFor(order.Status)
		snap[bucket] = append(snap[bucket], view)
	}
}

func appendPositions(snap *PositionsSnapshot, name string, positions []models.Position) {
	for _, pos := range positions {
		side := "CLOSED"
		if pos.NetQty > 0 {
			side = "BUY"
		} else if pos.NetQty < 0 {
			side = "SELL"
		}
		view := PositionView{
			Name:            name,
			Symbol:          pos.TradingSymbol,
			SecurityID:      pos.SecurityID,
			ExchangeSegment: pos.ExchangeSegment,
			ProductType:     pos.ProductType,
			Quantity:        pos.NetQty,
			BuyAvg:          pos.BuyAvg,
			SellAvg:         pos.SellAvg,
			NetProfit:       pos.RealizedProfit + pos.UnrealizedProfit,
			TransactionType: side,
		}
		if pos.NetQty == 0 {
			snap.Closed = append(snap.Closed, view)
		} else {
			snap.Open = append(snap.Open, view)
		}
	}
}

// collect polls every account once and rebuilds both snapshots. One
// account failing only loses that account's rows for the refresh.
func (s *Server) collect(ctx context.Context) {
	orders := emptyOrdersSnapshot()
	positions := PositionsSnapshot{Open: []PositionView{}, Closed: []PositionView{}}

	for _, acc := range s.accounts.All() {
		gw, ok := s.gateways[acc.Name]
		if !ok {
			continue
		}
		accOrders, err := gw.Orders(ctx)
		if err != nil {
			s.logEntry().WithField("account", acc.Name).WithError(err).Warn("Snapshot order fetch failed.")
		} else {
			appendOrders(orders, acc.Name, accOrders)
		}
		accPositions, err := gw.Positions(ctx)
		if err != nil {
			s.logEntry().WithField("account", acc.Name).WithError(err).Warn("Snapshot position fetch failed.")
		} else {
			appendPositions(&positions, acc.Name, accPositions)
		}
	}

	s.mu.Lock()
	s.orders = orders
	s.positions = positions
	s.mu.Unlock()

	s.hub.Broadcast("update_orders", orders)
	s.hub.Broadcast("update_positions", positions)
}

// runCollector refreshes the snapshots until ctx is cancelled.
func (s *Server) runCollector(ctx context.Context) {
	for {
		s.collect(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.refresh):
		}
	}
}

func (s *Server) gatewayFor(name string) (broker.Gateway, accounts.Account, bool) {
	for _, acc := range s.accounts.All() {
		if acc.Name == name {
			gw, ok := s.gateways[name]
			return gw, acc, ok
		}
	}
	return nil, accounts.Account{}, false
}
