package engine

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/google/uuid"

	"copytrader/internal/models"
)

// processOrder classifies one observed master order and fans the resulting
// action out to every child. Each master order is self-contained: nothing
// here depends on the other orders in the same cycle.
func (e *Engine) processOrder(ctx context.Context, order models.Order) {
	fresh, err := withinWindow(order.UpdateTime, e.now(), e.cfg.FreshnessWindow)
	if err != nil {
		e.logEntry().WithError(err).WithField("order_id", order.OrderID).Warn("Order skipped, unusable updateTime.")
		return
	}

	switch {
	case placeable(order):
		if !fresh || !e.ledger.ShouldPlace(order.OrderID) {
			return
		}
		e.logEntry().WithFields(map[string]interface{}{
			"order_id": order.OrderID,
			"status":   order.Status,
			"type":     order.Type,
		}).Info("Replicating master order.")
		e.replicate(ctx, order)
		// Marked even when every child failed: the alternative is
		// re-placing on every poll until the order ages out of the
		// window, which risks duplicate fills on the children that
		// did succeed.
		e.ledger.MarkPlaced(order.OrderID)

	case order.Status == models.OrderStatusCancelled:
		if !fresh || !e.ledger.ShouldCancel(order.OrderID) {
			return
		}
		e.logEntry().WithField("order_id", order.OrderID).Info("Cancelling replicas of master order.")
		e.cancelReplicas(ctx, order)
		// Marked even without a mapping, so an order that never got
		// replicated is not re-examined forever.
		e.ledger.MarkCancelled(order.OrderID)
	}
}

// A master order is worth copying when it is a market order or still live
// (pending) or already executed (traded). Rejected and everything else is
// ignored without touching the ledger.
func placeable(order models.Order) bool {
	return order.Type == models.OrderTypeMarket ||
		order.Status == models.OrderStatusPending ||
		order.Status == models.OrderStatusTraded
}

// replicate places a scaled copy of the master order on every child
// concurrently. One child failing must not hold up the others; failures are
// logged per child and the batch always runs to the end.
func (e *Engine) replicate(ctx context.Context, order models.Order) {
	var wg sync.WaitGroup
	for _, child := range e.children {
		wg.Add(1)
		go func(ch Child) {
			defer wg.Done()
			req := replicaRequest(order, ch.Account.Multiplier)

			ch.Log.WithFields(map[string]interface{}{
				"master_order_id": order.OrderID,
				"security_id":     req.SecurityID,
				"side":            req.TransactionType,
				"type":            req.OrderType,
				"qty":             req.Quantity,
			}).Info("Placing replica order.")

			childOrderID, err := ch.Gateway.Place(ctx, req)
			if err != nil {
				ch.Log.WithError(err).WithField("master_order_id", order.OrderID).Error("Replica placement failed.")
				e.log.WithAccount(ch.Account.Name).WithError(err).WithField("master_order_id", order.OrderID).Warn("Replica placement failed.")
				return
			}

			e.mapper.Record(order.OrderID, ch.Account.ClientID, childOrderID)
			ch.Log.WithFields(map[string]interface{}{
				"master_order_id": order.OrderID,
				"order_id":        childOrderID,
			}).Info("Replica order placed.")
		}(child)
	}
	wg.Wait()
}

// cancelReplicas cancels every recorded replica of a cancelled master
// order. Children without a recorded replica are skipped; a missing mapping
// for the whole order is a no-op.
func (e *Engine) cancelReplicas(ctx context.Context, order models.Order) {
	replicas := e.mapper.Lookup(order.OrderID)
	if len(replicas) == 0 {
		e.logEntry().WithField("order_id", order.OrderID).Debug("No replicas recorded, nothing to cancel.")
		return
	}

	var wg sync.WaitGroup
	for _, child := range e.children {
		childOrderID, ok := replicas[child.Account.ClientID]
		if !ok {
			continue
		}
		wg.Add(1)
		go func(ch Child, childOrderID string) {
			defer wg.Done()
			ch.Log.WithFields(map[string]interface{}{
				"master_order_id": order.OrderID,
				"order_id":        childOrderID,
			}).Info("Cancelling replica order.")

			if err := ch.Gateway.Cancel(ctx, childOrderID); err != nil {
				ch.Log.WithError(err).WithField("order_id", childOrderID).Error("Replica cancellation failed.")
				e.log.WithAccount(ch.Account.Name).WithError(err).WithField("order_id", childOrderID).Warn("Replica cancellation failed.")
				return
			}
			ch.Log.WithFields(map[string]interface{}{"order_id": childOrderID}).Info("Replica order cancelled.")
		}(child, childOrderID)
	}
	wg.Wait()
}

// replicaRequest copies the master order fields into a child request with
// the quantity scaled by the child's multiplier, truncated to whole units.
// The order type carries over unchanged, so a master market order is
// replicated as a market order.
func replicaRequest(order models.Order, multiplier float64) models.OrderRequest {
	return models.OrderRequest{
		CorrelationID:   correlationID(order.OrderID),
		TransactionType: order.TransactionType,
		ExchangeSegment: order.ExchangeSegment,
		ProductType:     order.ProductType,
		OrderType:       order.Type,
		Validity:        order.Validity,
		SecurityID:      order.SecurityID,
		Quantity:        int(math.Floor(float64(order.Quantity) * multiplier)),
		Price:           order.Price,
		TriggerPrice:    order.TriggerPrice,
	}
}

func correlationID(masterOrderID string) string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return fmt.Sprintf("copy-%s-%s", masterOrderID, raw[:8])
}
