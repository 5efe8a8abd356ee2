package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"copytrader/internal/accounts"
	"copytrader/internal/broker"
	"copytrader/internal/logger"
	"copytrader/internal/models"
)

type fakeGateway struct {
	mu        sync.Mutex
	orders    []models.Order
	ordersErr error
	placed    []models.OrderRequest
	cancelled []string
	placeErr  error
	nextID    int
	idPrefix  string
}

func (f *fakeGateway) Orders(ctx context.Context) ([]models.Order, error) {
	return f.orders, f.ordersErr
}

func (f *fakeGateway) Place(ctx context.Context, req models.OrderRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.placeErr != nil {
		return "", f.placeErr
	}
	f.placed = append(f.placed, req)
	f.nextID++
	return fmt.Sprintf("%s-%d", f.idPrefix, f.nextID), nil
}

func (f *fakeGateway) Cancel(ctx context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, orderID)
	return nil
}

func (f *fakeGateway) Positions(ctx context.Context) ([]models.Position, error) {
	return nil, nil
}

func (f *fakeGateway) placedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.placed)
}

var testNow = time.Date(2024, 12, 19, 10, 30, 0, 0, time.Local)

func testEngine(t *testing.T, master *fakeGateway, childGateways ...*fakeGateway) *Engine {
	t.Helper()
	children := make([]Child, 0, len(childGateways))
	multipliers := []float64{2, 3, 1, 1, 1}
	for i, gw := range childGateways {
		children = append(children, Child{
			Account: accounts.Account{
				Name:       fmt.Sprintf("child%d", i+1),
				ClientID:   fmt.Sprintf("C%d", i+1),
				Role:       models.RoleChild,
				Multiplier: multipliers[i],
			},
			Gateway: gw,
			Log:     logger.DiscardChildLog(),
		})
	}
	eng := New(Config{FreshnessWindow: 5 * time.Second}, master, children, logger.New(logger.Config{Level: "error"}))
	eng.now = func() time.Time { return testNow }
	return eng
}

func masterOrder(age time.Duration) models.Order {
	return models.Order{
		OrderID:         "O1",
		Status:          models.OrderStatusPending,
		Type:            models.OrderTypeMarket,
		TransactionType: models.TransactionTypeBuy,
		ExchangeSegment: "NSE_EQ",
		ProductType:     "INTRADAY",
		Validity:        "DAY",
		SecurityID:      "11536",
		Quantity:        10,
		UpdateTime:      testNow.Add(-age).Format(updateTimeLayout),
	}
}

func TestReplication_ScalesQuantityPerChild(t *testing.T) {
	master := &fakeGateway{}
	c1 := &fakeGateway{idPrefix: "c1"}
	c2 := &fakeGateway{idPrefix: "c2"}
	eng := testEngine(t, master, c1, c2)

	eng.processOrder(context.Background(), masterOrder(2*time.Second))

	require.Len(t, c1.placed, 1)
	require.Len(t, c2.placed, 1)
	assert.Equal(t, 20, c1.placed[0].Quantity)
	assert.Equal(t, 30, c2.placed[0].Quantity)
	assert.Equal(t, models.TransactionTypeBuy, c1.placed[0].TransactionType)
	assert.Equal(t, models.OrderTypeMarket, c1.placed[0].OrderType)
	assert.Equal(t, "11536", c1.placed[0].SecurityID)
}

func TestReplication_IdempotentAcrossPolls(t *testing.T) {
	master := &fakeGateway{}
	c1 := &fakeGateway{idPrefix: "c1"}
	c2 := &fakeGateway{idPrefix: "c2"}
	eng := testEngine(t, master, c1, c2)

	// The same pending order observed on three consecutive polls, still
	// inside the window each time.
	eng.processOrder(context.Background(), masterOrder(1*time.Second))
	eng.processOrder(context.Background(), masterOrder(2*time.Second))
	eng.processOrder(context.Background(), masterOrder(3*time.Second))

	assert.Equal(t, 1, c1.placedCount())
	assert.Equal(t, 1, c2.placedCount())
}

func TestReplication_StaleOrderIgnored(t *testing.T) {
	master := &fakeGateway{}
	c1 := &fakeGateway{idPrefix: "c1"}
	eng := testEngine(t, master, c1)

	eng.processOrder(context.Background(), masterOrder(6*time.Second))

	assert.Zero(t, c1.placedCount())
	// A stale observation must not consume the dedup slot.
	assert.True(t, eng.ledger.ShouldPlace("O1"))
}

func TestReplication_RejectedOrderIgnored(t *testing.T) {
	master := &fakeGateway{}
	c1 := &fakeGateway{idPrefix: "c1"}
	eng := testEngine(t, master, c1)

	order := masterOrder(1 * time.Second)
	order.Status = models.OrderStatusRejected
	order.Type = models.OrderTypeLimit
	eng.processOrder(context.Background(), order)

	assert.Zero(t, c1.placedCount())
	assert.True(t, eng.ledger.ShouldPlace("O1"))
}

func TestReplication_BadUpdateTimeSkipped(t *testing.T) {
	master := &fakeGateway{}
	c1 := &fakeGateway{idPrefix: "c1"}
	eng := testEngine(t, master, c1)

	order := masterOrder(1 * time.Second)
	order.UpdateTime = "not a timestamp"
	eng.processOrder(context.Background(), order)

	assert.Zero(t, c1.placedCount())
	assert.True(t, eng.ledger.ShouldPlace("O1"))
}

func TestReplication_PartialFailureIsolated(t *testing.T) {
	master := &fakeGateway{}
	c1 := &fakeGateway{idPrefix: "c1", placeErr: &broker.APIError{StatusCode: 400, Body: "rejected"}}
	c2 := &fakeGateway{idPrefix: "c2"}
	eng := testEngine(t, master, c1, c2)

	eng.processOrder(context.Background(), masterOrder(1*time.Second))

	assert.Zero(t, c1.placedCount())
	assert.Equal(t, 1, c2.placedCount())
	// The surviving replica is recorded and the order is still marked.
	assert.Equal(t, map[string]string{"C2": "c2-1"}, eng.mapper.Lookup("O1"))
	assert.False(t, eng.ledger.ShouldPlace("O1"))
}

func TestReplication_AllChildrenFailStillMarked(t *testing.T) {
	master := &fakeGateway{}
	c1 := &fakeGateway{idPrefix: "c1", placeErr: &broker.APIError{StatusCode: 500, Body: "down"}}
	eng := testEngine(t, master, c1)

	eng.processOrder(context.Background(), masterOrder(1*time.Second))

	assert.Empty(t, eng.mapper.Lookup("O1"))
	assert.False(t, eng.ledger.ShouldPlace("O1"))
}

func TestCancellation_EveryMappedChildCancelledOnce(t *testing.T) {
	master := &fakeGateway{}
	c1 := &fakeGateway{idPrefix: "c1"}
	c2 := &fakeGateway{idPrefix: "c2"}
	eng := testEngine(t, master, c1, c2)

	eng.processOrder(context.Background(), masterOrder(1*time.Second))
	require.Equal(t, 1, c1.placedCount())
	require.Equal(t, 1, c2.placedCount())

	cancelled := masterOrder(1 * time.Second)
	cancelled.Status = models.OrderStatusCancelled
	cancelled.Type = models.OrderTypeLimit
	eng.processOrder(context.Background(), cancelled)
	// Second observation of the cancellation, still fresh.
	eng.processOrder(context.Background(), cancelled)

	assert.Equal(t, []string{"c1-1"}, c1.cancelled)
	assert.Equal(t, []string{"c2-1"}, c2.cancelled)
}

func TestCancellation_NoMappingIsNoOpButMarked(t *testing.T) {
	master := &fakeGateway{}
	c1 := &fakeGateway{idPrefix: "c1"}
	eng := testEngine(t, master, c1)

	cancelled := masterOrder(1 * time.Second)
	cancelled.Status = models.OrderStatusCancelled
	cancelled.Type = models.OrderTypeLimit
	eng.processOrder(context.Background(), cancelled)

	assert.Empty(t, c1.cancelled)
	assert.False(t, eng.ledger.ShouldCancel("O1"))
}

func TestSyncOnce_FetchFailureAbortsCycle(t *testing.T) {
	master := &fakeGateway{ordersErr: &broker.APIError{StatusCode: 503, Body: "unavailable"}}
	c1 := &fakeGateway{idPrefix: "c1"}
	eng := testEngine(t, master, c1)

	err := eng.SyncOnce(context.Background())

	assert.Error(t, err)
	assert.Zero(t, c1.placedCount())
}

func TestSyncOnce_FullScenario(t *testing.T) {
	// The walkthrough: market order observed twice, then cancelled.
	master := &fakeGateway{}
	c1 := &fakeGateway{idPrefix: "c1"}
	c2 := &fakeGateway{idPrefix: "c2"}
	eng := testEngine(t, master, c1, c2)

	master.orders = []models.Order{masterOrder(2 * time.Second)}
	require.NoError(t, eng.SyncOnce(context.Background()))
	require.Equal(t, 1, c1.placedCount())
	require.Equal(t, 1, c2.placedCount())
	assert.Equal(t, 20, c1.placed[0].Quantity)
	assert.Equal(t, 30, c2.placed[0].Quantity)
	assert.Len(t, eng.mapper.Lookup("O1"), 2)

	master.orders = []models.Order{masterOrder(3 * time.Second)}
	require.NoError(t, eng.SyncOnce(context.Background()))
	assert.Equal(t, 1, c1.placedCount())
	assert.Equal(t, 1, c2.placedCount())

	cancelled := masterOrder(1 * time.Second)
	cancelled.Status = models.OrderStatusCancelled
	cancelled.Type = models.OrderTypeLimit
	master.orders = []models.Order{cancelled}
	require.NoError(t, eng.SyncOnce(context.Background()))
	assert.Equal(t, []string{"c1-1"}, c1.cancelled)
	assert.Equal(t, []string{"c2-1"}, c2.cancelled)
	assert.False(t, eng.ledger.ShouldCancel("O1"))
}

func TestReplicaRequest_FloorsFractionalQuantity(t *testing.T) {
	order := masterOrder(0)
	order.Quantity = 7

	req := replicaRequest(order, 1.5)
	assert.Equal(t, 10, req.Quantity)

	req = replicaRequest(order, 1)
	assert.Equal(t, 7, req.Quantity)
}
