//go:build !integration

package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-prediction-backend/internal/domain"
	"telegram-prediction-backend/internal/domain/model"
	"telegram-prediction-backend/internal/domain/ports/adapter"
	"telegram-prediction-backend/internal/domain/ports/repository"
)

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// ---- products ----

type memProducts struct {
	mu   sync.Mutex
	list []*model.Product

	FindByIDFunc func(ctx context.Context, tx repository.Tx, id string) (*model.Product, error)
}

func newMemProducts(ps ...*model.Product) *memProducts {
	m := &memProducts{}
	for _, p := range ps {
		m.list = append(m.list, p)
	}
	return m
}

var _ repository.ProductRepository = (*memProducts)(nil)

func (m *memProducts) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Product, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, tx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.list {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, domain.ErrProductNotFound
}

func (m *memProducts) FindBySlug(ctx context.Context, tx repository.Tx, slug string) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.list {
		if p.Slug == slug {
			return p, nil
		}
	}
	return nil, domain.ErrProductNotFound
}

func (m *memProducts) FirstLadderRung(ctx context.Context, tx repository.Tx) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.list {
		if p.Type == model.ProductTypeLadder && p.Prev == nil {
			return p, nil
		}
	}
	return nil, domain.ErrProductNotFound
}

func (m *memProducts) ListNonLadder(ctx context.Context, tx repository.Tx) ([]*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Product
	for _, p := range m.list {
		if p.Type != model.ProductTypeLadder {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memProducts) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*model.Product(nil), m.list...), nil
}

func (m *memProducts) Save(ctx context.Context, tx repository.Tx, p *model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, old := range m.list {
		if old.ID == p.ID {
			m.list[i] = p
			return nil
		}
	}
	m.list = append(m.list, p)
	return nil
}

func (m *memProducts) Delete(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.list {
		if p.ID == id {
			m.list = append(m.list[:i], m.list[i+1:]...)
			return nil
		}
	}
	return domain.ErrProductNotFound
}

// ---- payments ----

type memPayments struct {
	mu       sync.Mutex
	rows     map[string]*model.Payment
	products *memProducts // for the ladder join

	UpsertPendingFunc func(ctx context.Context, tx repository.Tx, draft *model.Payment, paidSince *time.Time) (*model.Payment, error)
}

func newMemPayments(products *memProducts) *memPayments {
	return &memPayments{rows: make(map[string]*model.Payment), products: products}
}

var _ repository.PaymentRepository = (*memPayments)(nil)

func (m *memPayments) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	return p, nil
}

func (m *memPayments) FindLastPaid(ctx context.Context, tx repository.Tx, userID, productID string) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *model.Payment
	for _, p := range m.rows {
		if p.UserID == userID && p.ProductID == productID && p.Status == model.PaymentStatusPaid {
			if best == nil || (p.PaidAt != nil && best.PaidAt != nil && p.PaidAt.After(*best.PaidAt)) {
				best = p
			}
		}
	}
	if best == nil {
		return nil, domain.ErrPaymentNotFound
	}
	return best, nil
}

func (m *memPayments) FindLastPaidLadder(ctx context.Context, tx repository.Tx, userID string) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *model.Payment
	for _, p := range m.rows {
		if p.UserID != userID || p.Status != model.PaymentStatusPaid {
			continue
		}
		prod, err := m.products.FindByID(ctx, nil, p.ProductID)
		if err != nil || prod.Type != model.ProductTypeLadder {
			continue
		}
		if best == nil || (p.PaidAt != nil && best.PaidAt != nil && p.PaidAt.After(*best.PaidAt)) {
			best = p
		}
	}
	if best == nil {
		return nil, domain.ErrPaymentNotFound
	}
	return best, nil
}

func (m *memPayments) UpsertPending(ctx context.Context, tx repository.Tx, draft *model.Payment, paidSince *time.Time) (*model.Payment, error) {
	if m.UpsertPendingFunc != nil {
		return m.UpsertPendingFunc(ctx, tx, draft, paidSince)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *model.Payment
	for _, p := range m.rows {
		if p.UserID != draft.UserID || p.ProductID != draft.ProductID {
			continue
		}
		live := p.Status == model.PaymentStatusPending ||
			(p.Status == model.PaymentStatusPaid &&
				(paidSince == nil || (p.PaidAt != nil && !p.PaidAt.Before(*paidSince))))
		if live && (best == nil || p.CreatedAt.After(best.CreatedAt)) {
			best = p
		}
	}
	if best != nil {
		return best, nil
	}
	cp := *draft
	now := time.Now()
	cp.CreatedAt, cp.UpdatedAt = now, now
	m.rows[cp.ID] = &cp
	return &cp, nil
}

func (m *memPayments) SetInvoice(ctx context.Context, tx repository.Tx, id, payload, url string, price int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return domain.ErrPaymentNotFound
	}
	p.InvoicePayload, p.InvoiceURL, p.ProductPrice = payload, url, price
	return nil
}

func (m *memPayments) MarkPaid(ctx context.Context, tx repository.Tx, id, chargeID string, paidAt time.Time, finalPrice int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return domain.ErrPaymentNotFound
	}
	if p.Status != model.PaymentStatusPending {
		return domain.ErrAlreadySettled
	}
	p.Status = model.PaymentStatusPaid
	p.ProviderChargeID = chargeID
	p.PaidAt = &paidAt
	p.ProductPrice = finalPrice
	return nil
}

func (m *memPayments) MarkRefunded(ctx context.Context, tx repository.Tx, id string, refundedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return domain.ErrPaymentNotFound
	}
	if p.Status != model.PaymentStatusPaid {
		return domain.ErrNotSettled
	}
	p.Status = model.PaymentStatusRefunded
	p.RefundedAt = &refundedAt
	return nil
}

func (m *memPayments) IsPaid(ctx context.Context, tx repository.Tx, userID, productID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.rows {
		if p.UserID == userID && p.ProductID == productID && p.Status == model.PaymentStatusPaid {
			return true, nil
		}
	}
	return false, nil
}

func (m *memPayments) IsPaidOrRefunded(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return false, domain.ErrPaymentNotFound
	}
	return p.Status != model.PaymentStatusPending, nil
}

// markPaidAt is a test helper mimicking a settled purchase some time ago.
func (m *memPayments) markPaidAt(userID, productID string, paidAt time.Time) *model.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := &model.Payment{
		ID:        uuid.NewString(),
		UserID:    userID,
		ProductID: productID,
		Status:    model.PaymentStatusPaid,
		PaidAt:    &paidAt,
		CreatedAt: paidAt,
		UpdatedAt: paidAt,
	}
	m.rows[p.ID] = p
	return p
}

// ---- users ----

type memUsers struct {
	mu   sync.Mutex
	byID map[string]*model.User
}

func newMemUsers(us ...*model.User) *memUsers {
	m := &memUsers{byID: make(map[string]*model.User)}
	for _, u := range us {
		m.byID[u.ID] = u
	}
	return m
}

var _ repository.UserRepository = (*memUsers)(nil)

func (m *memUsers) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (m *memUsers) FindByTelegramID(ctx context.Context, tx repository.Tx, telegramID int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.TelegramID == telegramID {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *memUsers) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[u.ID] = u
	return nil
}

func (m *memUsers) ResetExpiredQuota(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, u := range m.byID {
		if !u.IsUnlimited && u.FirstRequestAt != nil && u.FirstRequestAt.Before(cutoff) {
			u.RequestCount = 0
			u.FirstRequestAt = nil
			n++
		}
	}
	return n, nil
}

// ---- infrastructure mocks ----

// mockTM runs the callback inline; the in-memory repos are not transactional.
type mockTM struct {
	WithTxFunc func(ctx context.Context, opt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*mockTM)(nil)

func (m *mockTM) WithTx(ctx context.Context, opt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, opt, fn)
	}
	return fn(ctx, nil)
}

type mockLocker struct {
	TryLockFunc func(ctx context.Context, key string, ttl time.Duration) (string, error)
	locked      []string
}

var _ Locker = (*mockLocker)(nil)

func (m *mockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if m.TryLockFunc != nil {
		return m.TryLockFunc(ctx, key, ttl)
	}
	m.locked = append(m.locked, key)
	return "token", nil
}

func (m *mockLocker) Unlock(ctx context.Context, key, token string) error { return nil }

type mockProvider struct {
	mu    sync.Mutex
	specs []adapter.InvoiceSpec

	CreateInvoiceLinkFunc func(ctx context.Context, spec adapter.InvoiceSpec) (string, error)
}

var _ adapter.PaymentProvider = (*mockProvider)(nil)

func (m *mockProvider) CreateInvoiceLink(ctx context.Context, spec adapter.InvoiceSpec) (string, error) {
	if m.CreateInvoiceLinkFunc != nil {
		return m.CreateInvoiceLinkFunc(ctx, spec)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.specs = append(m.specs, spec)
	return fmt.Sprintf("https://t.me/$invoice-%d", len(m.specs)), nil
}

type mockNotifier struct {
	mu       sync.Mutex
	receipts []adapter.Receipt
	refunds  []adapter.Receipt
}

var _ adapter.Notifier = (*mockNotifier)(nil)

func (m *mockNotifier) SendPurchaseReceipt(ctx context.Context, r adapter.Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receipts = append(m.receipts, r)
	return nil
}

func (m *mockNotifier) SendRefundNotice(ctx context.Context, r adapter.Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refunds = append(m.refunds, r)
	return nil
}

type broadcastCall struct {
	UserID  string
	Event   string
	Payload any
}

type mockRealtime struct {
	mu    sync.Mutex
	calls []broadcastCall
}

var _ adapter.RealtimeBroadcaster = (*mockRealtime)(nil)

func (m *mockRealtime) Broadcast(userID, event string, payload any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, broadcastCall{UserID: userID, Event: event, Payload: payload})
}

// syncQueue executes side-effect jobs inline so tests observe them directly.
type syncQueue struct {
	mu   sync.Mutex
	jobs []string
}

var _ SideEffects = (*syncQueue)(nil)

func (q *syncQueue) Enqueue(name string, fn func(ctx context.Context) error) error {
	q.mu.Lock()
	q.jobs = append(q.jobs, name)
	q.mu.Unlock()
	return fn(context.Background())
}

// ---- fixtures ----

func iptr(v int64) *int64   { return &v }
func sptr(s string) *string { return &s }

// newCatalogFixture seeds a three-rung ladder, the dynamic daily reset and
// one lifetime (default) product.
func newCatalogFixture() *memProducts {
	return newMemProducts(
		&model.Product{
			ID:    uuid.NewString(),
			Slug:  "premium_status",
			Name:  "Премиум-статус",
			Type:  model.ProductTypeDefault,
			Price: iptr(150),
			Effects: []model.Effect{
				{Target: "request_limit", Type: model.EffectInc, Value: 100},
			},
		},
		&model.Product{
			ID:   uuid.NewString(),
			Slug: "daily_requests_reset",
			Name: "Сброс лимита",
			Type: model.ProductTypeDaily,
			Effects: []model.Effect{
				{Target: "request_count", Type: model.EffectReset},
			},
		},
		&model.Product{
			ID:    uuid.NewString(),
			Slug:  "plus_ten_requests",
			Name:  "+10 запросов",
			Type:  model.ProductTypeLadder,
			Price: iptr(50),
			Next:  sptr("plus_twenty_requests"),
			Effects: []model.Effect{
				{Target: "request_limit", Type: model.EffectInc, Value: 10},
			},
		},
		&model.Product{
			ID:    uuid.NewString(),
			Slug:  "plus_twenty_requests",
			Name:  "+20 запросов",
			Type:  model.ProductTypeLadder,
			Price: iptr(90),
			Prev:  sptr("plus_ten_requests"),
			Next:  sptr("plus_fifty_requests"),
			Effects: []model.Effect{
				{Target: "request_limit", Type: model.EffectInc, Value: 20},
			},
		},
		&model.Product{
			ID:    uuid.NewString(),
			Slug:  "plus_fifty_requests",
			Name:  "+50 запросов",
			Type:  model.ProductTypeLadder,
			Price: iptr(200),
			Prev:  sptr("plus_twenty_requests"),
			Effects: []model.Effect{
				{Target: "request_limit", Type: model.EffectInc, Value: 50},
			},
		},
	)
}

func newTestUser() *model.User {
	return &model.User{
		ID:           uuid.NewString(),
		TelegramID:   100500,
		Name:         "Иван",
		RequestCount: 3,
		RequestLimit: 60,
	}
}

func mustBySlug(products *memProducts, slug string) *model.Product {
	p, err := products.FindBySlug(context.Background(), nil, slug)
	if err != nil {
		panic(err)
	}
	return p
}
