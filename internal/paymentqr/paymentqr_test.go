package paymentqr

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/bakehouse-backend/pkg/db/models"
	"github.com/angelmondragon/bakehouse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakehouse-backend/pkg/errors"
)

type stubOrders map[uuid.UUID]models.Order

func (s stubOrders) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := s[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &order, nil
}

func newOrder(userID uuid.UUID) models.Order {
	return models.Order{
		ID:            uuid.New(),
		OrderNumber:   "ORD1747000000000123",
		UserID:        userID,
		PaymentStatus: enums.PaymentStatusPending,
		Total:         630,
	}
}

func newTestService(t *testing.T, orders stubOrders, cache Cache) (*Service, *int) {
	t.Helper()
	svc, err := NewService(orders, cache, Config{PayeeID: "bakehouse@upi", PayeeName: "Bakehouse Kitchen", CacheTTL: 5 * time.Minute}, nil, nil)
	require.NoError(t, err)
	renders := 0
	svc.render = func(content string) (string, error) {
		renders++
		return dataURLImage + base64.StdEncoding.EncodeToString([]byte(content)), nil
	}
	return svc, &renders
}

func TestBuildUPILink(t *testing.T) {
	link := BuildUPILink("bakehouse@upi", "Bakehouse Kitchen", decimal.NewFromInt(630), "ORD1747000000000123")
	assert.Equal(t,
		"upi://pay?pa=bakehouse%40upi&pn=Bakehouse%20Kitchen&am=630.00&tn=Payment%20for%20Order%20%23ORD1747000000000123&cu=INR",
		link)
}

func TestRenderQRProducesPNGDataURL(t *testing.T) {
	dataURL, err := RenderQR("upi://pay?pa=bakehouse%40upi&am=630.00&cu=INR")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(dataURL, dataURLImage))
	png, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURL, dataURLImage))
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), png[:4])
}

func TestGenerateCachesByOrderAndTotal(t *testing.T) {
	userID := uuid.New()
	order := newOrder(userID)
	svc, renders := newTestService(t, stubOrders{order.ID: order}, NewMemoryCache(8))
	ctx := context.Background()
	req := Request{OrderID: order.ID, Amount: decimal.RequireFromString("630.00"), OrderNumber: order.OrderNumber}

	first, err := svc.Generate(ctx, userID, req)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, "630.00", first.Amount)
	assert.Equal(t, "bakehouse@upi", first.UPIID)
	assert.Contains(t, first.UPILink, "am=630.00")

	second, err := svc.Generate(ctx, userID, req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.QRCodeDataURL, second.QRCodeDataURL)
	assert.Equal(t, 1, *renders)
}

func TestGenerateRejectsTamperedAmount(t *testing.T) {
	userID := uuid.New()
	order := newOrder(userID)
	svc, renders := newTestService(t, stubOrders{order.ID: order}, NewMemoryCache(8))

	for _, amount := range []string{"1", "629.99", "630.01", "6300"} {
		_, err := svc.Generate(context.Background(), userID, Request{OrderID: order.ID, Amount: decimal.RequireFromString(amount), OrderNumber: order.OrderNumber})
		require.Error(t, err)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), amount)
	}
	assert.Zero(t, *renders)
}

func TestGenerateGuards(t *testing.T) {
	userID := uuid.New()
	order := newOrder(userID)
	paid := newOrder(userID)
	paid.PaymentStatus = enums.PaymentStatusPaid
	svc, _ := newTestService(t, stubOrders{order.ID: order, paid.ID: paid}, NewMemoryCache(8))
	ctx := context.Background()
	amount := decimal.NewFromInt(630)

	_, err := svc.Generate(ctx, uuid.New(), Request{OrderID: order.ID, Amount: amount, OrderNumber: order.OrderNumber})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "foreign order must look missing")

	_, err = svc.Generate(ctx, userID, Request{OrderID: uuid.New(), Amount: amount, OrderNumber: order.OrderNumber})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.Generate(ctx, userID, Request{OrderID: order.ID, Amount: amount, OrderNumber: "ORD0"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = svc.Generate(ctx, userID, Request{OrderID: paid.ID, Amount: amount, OrderNumber: paid.OrderNumber})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = svc.Generate(ctx, userID, Request{Amount: amount})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGenerateSurvivesCacheFailure(t *testing.T) {
	userID := uuid.New()
	order := newOrder(userID)
	svc, renders := newTestService(t, stubOrders{order.ID: order}, NewRedisCache(&fakeRedis{fail: true}))

	res, err := svc.Generate(context.Background(), userID, Request{OrderID: order.ID, Amount: decimal.NewFromInt(630), OrderNumber: order.OrderNumber})
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, 1, *renders)
}

func TestMemoryCacheExpiryAndSweep(t *testing.T) {
	cache := NewMemoryCache(8)
	now := time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "a_630", Entry{UPILink: "a"}, 5*time.Minute))
	now = now.Add(4 * time.Minute)
	require.NoError(t, cache.Set(ctx, "b_470", Entry{UPILink: "b"}, 5*time.Minute))

	entry, ok, err := cache.Get(ctx, "a_630")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a", entry.UPILink)

	now = now.Add(2 * time.Minute)
	_, ok, _ = cache.Get(ctx, "a_630")
	assert.False(t, ok, "entry older than its ttl must miss")

	require.NoError(t, cache.Set(ctx, "c_100", Entry{UPILink: "c"}, 5*time.Minute))
	assert.Equal(t, 2, cache.Len())

	now = now.Add(10 * time.Minute)
	require.NoError(t, cache.Set(ctx, "d_100", Entry{UPILink: "d"}, 5*time.Minute))
	assert.Equal(t, 1, cache.Len(), "writes sweep expired entries")

	require.NoError(t, cache.Delete(ctx, "d_100"))
	assert.Zero(t, cache.Len())
}

func TestMemoryCacheEvictsOldestWhenFull(t *testing.T) {
	cache := NewMemoryCache(2)
	now := time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "first", Entry{}, time.Minute))
	now = now.Add(time.Second)
	require.NoError(t, cache.Set(ctx, "second", Entry{}, time.Minute))
	now = now.Add(time.Second)
	require.NoError(t, cache.Set(ctx, "third", Entry{}, time.Minute))

	assert.Equal(t, 2, cache.Len())
	_, ok, _ := cache.Get(ctx, "first")
	assert.False(t, ok)
	_, ok, _ = cache.Get(ctx, "third")
	assert.True(t, ok)
}

type fakeRedis struct {
	mu     sync.Mutex
	values map[string]string
	ttls   map[string]time.Duration
	fail   bool
}

func (f *fakeRedis) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return "", errors.New("redis down")
	}
	v, ok := f.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("redis down")
	}
	if f.values == nil {
		f.values = map[string]string{}
		f.ttls = map[string]time.Duration{}
	}
	f.values[key] = value.(string)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.values, k)
	}
	return nil
}

func (f *fakeRedis) CacheKey(scope, id string) string {
	return "bh:cache:" + scope + ":" + id
}

func TestRedisCacheRoundTrip(t *testing.T) {
	store := &fakeRedis{}
	cache := NewRedisCache(store)
	ctx := context.Background()
	key := CacheKey(uuid.MustParse("0b6f3c1e-8d2a-4d8e-9a57-2f1c6e0d4b11"), 630)
	assert.Equal(t, "0b6f3c1e-8d2a-4d8e-9a57-2f1c6e0d4b11_630", key)

	_, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, key, Entry{QRCodeDataURL: "data:image/png;base64,AAA", UPILink: "upi://pay"}, 5*time.Minute))
	assert.Equal(t, 5*time.Minute, store.ttls["bh:cache:payment_qr:"+key])

	entry, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "upi://pay", entry.UPILink)

	require.NoError(t, cache.Delete(ctx, key))
	_, ok, _ = cache.Get(ctx, key)
	assert.False(t, ok)
}
