package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/jewelry-backend/internal/domain/order"
	"github.com/your-org/jewelry-backend/internal/pkg/apperror"
	"github.com/your-org/jewelry-backend/internal/pkg/logger"
)

const (
	testKeySecret     = "key_secret_for_tests"
	testWebhookSecret = "webhook_secret_for_tests"
)

var testNow = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

type memOrders struct {
	mu     sync.Mutex
	orders map[uint]*order.Order
	saves  int
}

func cloneOrder(o *order.Order) *order.Order {
	c := *o
	c.Items = append([]order.OrderItem(nil), o.Items...)
	c.Timeline = append([]order.TimelineEntry(nil), o.Timeline...)
	return &c
}

func (m *memOrders) Create(_ context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = cloneOrder(o)
	return nil
}

func (m *memOrders) FindByID(_ context.Context, id uint) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, apperror.NotFound("Order not found")
	}
	return cloneOrder(o), nil
}

func (m *memOrders) FindByIDForUpdate(ctx context.Context, id uint) (*order.Order, error) {
	return m.FindByID(ctx, id)
}

func (m *memOrders) FindByGatewayOrderID(_ context.Context, gatewayOrderID string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if gatewayOrderID != "" && o.Payment.GatewayOrderID == gatewayOrderID {
			return cloneOrder(o), nil
		}
	}
	return nil, apperror.NotFound("Order not found")
}

func (m *memOrders) List(context.Context, order.ListFilter) ([]order.Order, int64, error) {
	return nil, 0, errors.New("not implemented")
}

func (m *memOrders) Save(_ context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.orders[o.ID] = cloneOrder(o)
	return nil
}

func (m *memOrders) NextSequence(context.Context, string) (int64, error) {
	return 0, errors.New("not implemented")
}

type memTx struct{ orders *memOrders }

func (t memTx) Orders() order.Repository      { return t.orders }
func (t memTx) Products() order.ProductReader { return nil }
func (t memTx) Stock() order.StockLedger      { return nil }

// memUnitOfWork serializes transactions the way the row lock does
type memUnitOfWork struct {
	orders *memOrders
	lock   *sync.Mutex
}

func (u memUnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, tx order.Tx) error) error {
	u.lock.Lock()
	defer u.lock.Unlock()
	return fn(ctx, memTx{u.orders})
}

type fakeGateway struct {
	mu      sync.Mutex
	created []GatewayOrderRequest
	refunds []GatewayRefundRequest
	err     error
}

func (g *fakeGateway) KeyID() string { return "rzp_test_key" }

func (g *fakeGateway) CreateOrder(_ context.Context, req GatewayOrderRequest) (*RazorpayOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.created = append(g.created, req)
	return &RazorpayOrder{ID: fmt.Sprintf("order_RZP%d", len(g.created)), Amount: req.Amount, Currency: req.Currency}, nil
}

func (g *fakeGateway) Refund(_ context.Context, paymentID string, req GatewayRefundRequest) (*RazorpayRefund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.refunds = append(g.refunds, req)
	return &RazorpayRefund{ID: fmt.Sprintf("rfnd_%d", len(g.refunds)), PaymentID: paymentID, Amount: req.Amount}, nil
}

type fakeCarts struct {
	mu      sync.Mutex
	cleared []uint
}

func (c *fakeCarts) Clear(_ context.Context, userID uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleared = append(c.cleared, userID)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []order.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e order.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

type fixture struct {
	svc     *Service
	orders  *memOrders
	gateway *fakeGateway
	carts   *fakeCarts
	events  *recordingPublisher
}

var customer = order.Actor{UserID: 7}
var admin = order.Actor{UserID: 1, IsAdmin: true}

func newFixture() *fixture {
	f := &fixture{
		orders:  &memOrders{orders: map[uint]*order.Order{}},
		gateway: &fakeGateway{},
		carts:   &fakeCarts{},
		events:  &recordingPublisher{},
	}
	f.svc = NewService(Dependencies{
		Orders:     f.orders,
		UnitOfWork: memUnitOfWork{orders: f.orders, lock: &sync.Mutex{}},
		Gateway:    f.gateway,
		Carts:      f.carts,
		Events:     f.events,
		Logger:     logger.Discard(),
	}, Options{KeySecret: testKeySecret, WebhookSecret: testWebhookSecret})
	f.svc.now = func() time.Time { return testNow }

	f.orders.orders[1] = &order.Order{
		ID:          1,
		OrderNumber: "JWL000001",
		UserID:      7,
		Status:      order.OrderStatusPending,
		Currency:    "INR",
		Pricing:     order.Pricing{Total: decimal.RequireFromString("1129.50")},
		Payment:     order.Payment{Method: order.PaymentMethodOnline, Status: order.PaymentStatusPending},
		Timeline:    []order.TimelineEntry{{ID: 1, OrderID: 1, Status: order.OrderStatusPending, Actor: "user:7", CreatedAt: testNow}},
	}
	return f
}

// withGatewayOrder puts order 1 in the state after create-order
func (f *fixture) withGatewayOrder(t *testing.T) *InitiationResponse {
	t.Helper()
	resp, err := f.svc.CreateGatewayOrder(context.Background(), customer, 1)
	require.NoError(t, err)
	return resp
}

func signedVerify(gatewayOrderID, paymentID string) *VerifyRequest {
	return &VerifyRequest{
		RazorpayOrderID:   gatewayOrderID,
		RazorpayPaymentID: paymentID,
		RazorpaySignature: Sign(testKeySecret, []byte(gatewayOrderID+"|"+paymentID)),
		OrderID:           1,
	}
}

func webhookBody(event, gatewayOrderID, paymentID string) []byte {
	return []byte(fmt.Sprintf(`{"entity":"event","event":%q,"payload":{"payment":{"entity":{"id":%q,"order_id":%q,"status":"captured","error_description":"Card declined"}}}}`,
		event, paymentID, gatewayOrderID))
}

func confirmedEntries(o *order.Order) int {
	n := 0
	for _, e := range o.Timeline {
		if e.Status == order.OrderStatusConfirmed {
			n++
		}
	}
	return n
}

func TestCreateGatewayOrder(t *testing.T) {
	f := newFixture()

	resp := f.withGatewayOrder(t)

	assert.Equal(t, "order_RZP1", resp.RazorpayOrderID)
	assert.Equal(t, int64(112950), resp.Amount)
	assert.Equal(t, "rzp_test_key", resp.KeyID)
	assert.Equal(t, "JWL000001", resp.Receipt)
	require.Len(t, f.gateway.created, 1)
	assert.Equal(t, "1", f.gateway.created[0].Notes["order_id"])
	assert.Equal(t, "order_RZP1", f.orders.orders[1].Payment.GatewayOrderID)
}

func TestCreateGatewayOrder_Rejections(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.CreateGatewayOrder(ctx, order.Actor{UserID: 99}, 1)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	_, err = f.svc.CreateGatewayOrder(ctx, customer, 42)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	f.orders.orders[1].Payment.Method = order.PaymentMethodCOD
	_, err = f.svc.CreateGatewayOrder(ctx, customer, 1)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	f.orders.orders[1].Payment.Method = order.PaymentMethodOnline
	f.orders.orders[1].Payment.Status = order.PaymentStatusPaid
	_, err = f.svc.CreateGatewayOrder(ctx, customer, 1)
	assert.Equal(t, apperror.KindInvalidState, apperror.KindOf(err))
	assert.Empty(t, f.gateway.created)
}

func TestCreateGatewayOrder_GatewayDown(t *testing.T) {
	f := newFixture()
	f.gateway.err = apperror.Upstream(errors.New("timeout"), "Payment gateway request failed")

	_, err := f.svc.CreateGatewayOrder(context.Background(), customer, 1)
	assert.Equal(t, apperror.KindUpstream, apperror.KindOf(err))
	assert.Empty(t, f.orders.orders[1].Payment.GatewayOrderID)
}

func TestCreateGatewayOrder_ReusesPendingGatewayOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	first := f.withGatewayOrder(t)

	second, err := f.svc.CreateGatewayOrder(ctx, customer, 1)
	require.NoError(t, err)
	assert.Equal(t, first.RazorpayOrderID, second.RazorpayOrderID)
	assert.Len(t, f.gateway.created, 1)

	_, err = f.svc.RecordFailure(ctx, customer, &FailureRequest{OrderID: 1, Reason: "Card declined"})
	require.NoError(t, err)
	retry, err := f.svc.CreateGatewayOrder(ctx, customer, 1)
	require.NoError(t, err)
	assert.Equal(t, first.RazorpayOrderID, retry.RazorpayOrderID)

	o, err := f.svc.VerifyAndApply(ctx, customer, signedVerify(first.RazorpayOrderID, "pay_1"))
	require.NoError(t, err)
	assert.Equal(t, order.PaymentStatusPaid, o.Payment.Status)
}

func TestVerifyAndApply(t *testing.T) {
	f := newFixture()
	resp := f.withGatewayOrder(t)

	o, err := f.svc.VerifyAndApply(context.Background(), customer, signedVerify(resp.RazorpayOrderID, "pay_1"))
	require.NoError(t, err)

	assert.Equal(t, order.OrderStatusConfirmed, o.Status)
	assert.Equal(t, order.PaymentStatusPaid, o.Payment.Status)
	assert.Equal(t, "pay_1", o.Payment.TransactionID)
	require.NotNil(t, o.Payment.PaidAt)
	assert.Equal(t, 1, confirmedEntries(o))
	assert.Equal(t, []uint{7}, f.carts.cleared)
	require.Len(t, f.events.events, 1)
	assert.Equal(t, order.EventOrderPaid, f.events.events[0].Type)
}

func TestVerifyAndApply_WrongSignature(t *testing.T) {
	f := newFixture()
	resp := f.withGatewayOrder(t)
	before := cloneOrder(f.orders.orders[1])
	saves := f.orders.saves

	req := signedVerify(resp.RazorpayOrderID, "pay_1")
	req.RazorpaySignature = Sign("some_other_secret", []byte(resp.RazorpayOrderID+"|pay_1"))

	_, err := f.svc.VerifyAndApply(context.Background(), customer, req)
	assert.Equal(t, apperror.KindSignatureInvalid, apperror.KindOf(err))
	assert.Equal(t, before, f.orders.orders[1])
	assert.Equal(t, saves, f.orders.saves)
	assert.Empty(t, f.carts.cleared)
}

func TestVerifyAndApply_Rejections(t *testing.T) {
	f := newFixture()
	resp := f.withGatewayOrder(t)
	ctx := context.Background()

	_, err := f.svc.VerifyAndApply(ctx, order.Actor{UserID: 99}, signedVerify(resp.RazorpayOrderID, "pay_1"))
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	_, err = f.svc.VerifyAndApply(ctx, customer, signedVerify("order_other", "pay_1"))
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	assert.Equal(t, order.PaymentStatusPending, f.orders.orders[1].Payment.Status)
}

func TestApply_Idempotent(t *testing.T) {
	f := newFixture()
	resp := f.withGatewayOrder(t)
	ctx := context.Background()

	first, err := f.svc.VerifyAndApply(ctx, customer, signedVerify(resp.RazorpayOrderID, "pay_1"))
	require.NoError(t, err)
	saves := f.orders.saves

	second, err := f.svc.VerifyAndApply(ctx, customer, signedVerify(resp.RazorpayOrderID, "pay_1"))
	require.NoError(t, err)
	require.NoError(t, f.svc.HandleWebhook(ctx, webhookBody(EventPaymentCaptured, resp.RazorpayOrderID, "pay_1"),
		Sign(testWebhookSecret, webhookBody(EventPaymentCaptured, resp.RazorpayOrderID, "pay_1"))))

	assert.Equal(t, saves, f.orders.saves)
	assert.Equal(t, first.Timeline, second.Timeline)
	assert.Equal(t, 1, confirmedEntries(f.orders.orders[1]))
	assert.Len(t, f.events.events, 1)
	assert.Len(t, f.carts.cleared, 1)
}

func TestApply_ConcurrentVerifyAndWebhook(t *testing.T) {
	f := newFixture()
	resp := f.withGatewayOrder(t)
	ctx := context.Background()
	body := webhookBody(EventPaymentCaptured, resp.RazorpayOrderID, "pay_1")
	sig := Sign(testWebhookSecret, body)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := f.svc.VerifyAndApply(ctx, customer, signedVerify(resp.RazorpayOrderID, "pay_1"))
			errs <- err
		}()
		go func() {
			defer wg.Done()
			errs <- f.svc.HandleWebhook(ctx, body, sig)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, confirmedEntries(f.orders.orders[1]))
	assert.Len(t, f.events.events, 1)
}

func TestHandleWebhook(t *testing.T) {
	ctx := context.Background()

	t.Run("bad signature", func(t *testing.T) {
		f := newFixture()
		resp := f.withGatewayOrder(t)
		body := webhookBody(EventPaymentCaptured, resp.RazorpayOrderID, "pay_1")

		err := f.svc.HandleWebhook(ctx, body, "deadbeef")
		assert.Equal(t, apperror.KindSignatureInvalid, apperror.KindOf(err))
		assert.Equal(t, order.PaymentStatusPending, f.orders.orders[1].Payment.Status)
	})

	t.Run("captured applies payment", func(t *testing.T) {
		f := newFixture()
		resp := f.withGatewayOrder(t)
		body := webhookBody(EventPaymentCaptured, resp.RazorpayOrderID, "pay_1")

		require.NoError(t, f.svc.HandleWebhook(ctx, body, Sign(testWebhookSecret, body)))
		stored := f.orders.orders[1]
		assert.Equal(t, order.PaymentStatusPaid, stored.Payment.Status)
		assert.Equal(t, order.OrderStatusConfirmed, stored.Status)
		assert.Equal(t, "system:webhook", stored.Timeline[len(stored.Timeline)-1].Actor)
	})

	t.Run("failed marks payment failed", func(t *testing.T) {
		f := newFixture()
		resp := f.withGatewayOrder(t)
		body := webhookBody(EventPaymentFailed, resp.RazorpayOrderID, "pay_1")

		require.NoError(t, f.svc.HandleWebhook(ctx, body, Sign(testWebhookSecret, body)))
		stored := f.orders.orders[1]
		assert.Equal(t, order.PaymentStatusFailed, stored.Payment.Status)
		assert.Equal(t, "Card declined", stored.Payment.FailureReason)
		assert.Equal(t, order.OrderStatusPending, stored.Status)
	})

	t.Run("failed after paid is ignored", func(t *testing.T) {
		f := newFixture()
		resp := f.withGatewayOrder(t)
		_, err := f.svc.VerifyAndApply(ctx, customer, signedVerify(resp.RazorpayOrderID, "pay_1"))
		require.NoError(t, err)

		body := webhookBody(EventPaymentFailed, resp.RazorpayOrderID, "pay_2")
		require.NoError(t, f.svc.HandleWebhook(ctx, body, Sign(testWebhookSecret, body)))
		assert.Equal(t, order.PaymentStatusPaid, f.orders.orders[1].Payment.Status)
	})

	t.Run("capture after cancel is refunded", func(t *testing.T) {
		f := newFixture()
		resp := f.withGatewayOrder(t)
		require.NoError(t, f.orders.orders[1].Cancel("Changed my mind", customer, testNow))

		body := webhookBody(EventPaymentCaptured, resp.RazorpayOrderID, "pay_late")
		require.NoError(t, f.svc.HandleWebhook(ctx, body, Sign(testWebhookSecret, body)))

		stored := f.orders.orders[1]
		assert.Equal(t, order.OrderStatusCancelled, stored.Status)
		assert.Equal(t, order.PaymentStatusRefunded, stored.Payment.Status)
		assert.Equal(t, "pay_late", stored.Payment.TransactionID)
		require.Len(t, f.gateway.refunds, 1)
		assert.Equal(t, int64(112950), f.gateway.refunds[0].Amount)
		assert.Empty(t, f.carts.cleared)
		for _, e := range f.events.events {
			assert.NotEqual(t, order.EventOrderPaid, e.Type)
		}

		// the redelivered webhook changes nothing
		require.NoError(t, f.svc.HandleWebhook(ctx, body, Sign(testWebhookSecret, body)))
		assert.Len(t, f.gateway.refunds, 1)
	})

	t.Run("capture after cancel survives a refund failure", func(t *testing.T) {
		f := newFixture()
		resp := f.withGatewayOrder(t)
		require.NoError(t, f.orders.orders[1].Cancel("Changed my mind", customer, testNow))
		f.gateway.err = apperror.Upstream(errors.New("timeout"), "Payment gateway request failed")

		body := webhookBody(EventPaymentCaptured, resp.RazorpayOrderID, "pay_late")
		require.NoError(t, f.svc.HandleWebhook(ctx, body, Sign(testWebhookSecret, body)))

		stored := f.orders.orders[1]
		assert.Equal(t, order.OrderStatusCancelled, stored.Status)
		assert.Equal(t, order.PaymentStatusPaid, stored.Payment.Status)
		assert.Empty(t, f.carts.cleared)
	})

	t.Run("unknown order is acknowledged", func(t *testing.T) {
		f := newFixture()
		body := webhookBody(EventPaymentCaptured, "order_unknown", "pay_1")
		assert.NoError(t, f.svc.HandleWebhook(ctx, body, Sign(testWebhookSecret, body)))
	})

	t.Run("other events are ignored", func(t *testing.T) {
		f := newFixture()
		body := []byte(`{"event":"refund.processed","payload":{}}`)
		assert.NoError(t, f.svc.HandleWebhook(ctx, body, Sign(testWebhookSecret, body)))
	})

	t.Run("malformed payload", func(t *testing.T) {
		f := newFixture()
		body := []byte(`{"event":`)
		err := f.svc.HandleWebhook(ctx, body, Sign(testWebhookSecret, body))
		assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	})
}

func TestRecordFailure(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	o, err := f.svc.RecordFailure(ctx, customer, &FailureRequest{OrderID: 1, Reason: "User closed the checkout", Code: "BAD_REQUEST_ERROR"})
	require.NoError(t, err)
	assert.Equal(t, order.PaymentStatusFailed, o.Payment.Status)
	assert.Equal(t, "BAD_REQUEST_ERROR: User closed the checkout", o.Payment.FailureReason)

	_, err = f.svc.RecordFailure(ctx, order.Actor{UserID: 99}, &FailureRequest{OrderID: 1})
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	resp := f.withGatewayOrder(t)
	o, err = f.svc.VerifyAndApply(ctx, customer, signedVerify(resp.RazorpayOrderID, "pay_9"))
	require.NoError(t, err)
	assert.Equal(t, order.PaymentStatusPaid, o.Payment.Status)
}

func TestRefund(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	resp := f.withGatewayOrder(t)
	_, err := f.svc.VerifyAndApply(ctx, customer, signedVerify(resp.RazorpayOrderID, "pay_1"))
	require.NoError(t, err)

	_, err = f.svc.Refund(ctx, customer, 1, nil)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	tooMuch := decimal.NewFromInt(5000)
	_, err = f.svc.Refund(ctx, admin, 1, &tooMuch)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	part := decimal.RequireFromString("129.50")
	o, err := f.svc.Refund(ctx, admin, 1, &part)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentStatusPartiallyRefunded, o.Payment.Status)
	assert.Equal(t, int64(12950), f.gateway.refunds[0].Amount)

	o, err = f.svc.Refund(ctx, admin, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentStatusRefunded, o.Payment.Status)
	assert.Equal(t, int64(100000), f.gateway.refunds[1].Amount)
	assert.Equal(t, "rfnd_2", o.Payment.RefundID)
	assert.Equal(t, order.OrderStatusConfirmed, o.Status)

	_, err = f.svc.Refund(ctx, admin, 1, nil)
	assert.Equal(t, apperror.KindInvalidState, apperror.KindOf(err))
}

func TestRefund_DeliveredOrderBecomesRefunded(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	stored := f.orders.orders[1]
	stored.Status = order.OrderStatusDelivered
	stored.Payment.Status = order.PaymentStatusPaid
	stored.Payment.TransactionID = "pay_1"

	o, err := f.svc.Refund(ctx, admin, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, order.OrderStatusRefunded, o.Status)
	assert.Equal(t, order.OrderStatusRefunded, o.Timeline[len(o.Timeline)-1].Status)
}
