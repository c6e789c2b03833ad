package cart_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/chowpati-api/internal/cart"
	"github.com/noah-isme/chowpati-api/internal/catalog"
	"github.com/noah-isme/chowpati-api/internal/events"
	"github.com/noah-isme/chowpati-api/internal/lock"
)

type fakeCatalog struct {
	products []catalog.Product
}

func (f fakeCatalog) ResolveSize(_ context.Context, productID, size string) (catalog.Product, catalog.ProductSize, error) {
	for _, p := range f.products {
		if p.ID != productID {
			continue
		}
		if s, ok := p.SizeByLabel(size); ok {
			return p, s, nil
		}
		return catalog.Product{}, catalog.ProductSize{}, catalog.ErrSizeNotFound
	}
	return catalog.Product{}, catalog.ProductSize{}, catalog.ErrProductNotFound
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func newRedisService(t *testing.T) (*cart.Service, *miniredis.Miniredis, *events.MemoryStore) {
	t.Helper()
	mr, client := newRedis(t)
	evStore := &events.MemoryStore{}
	svc := &cart.Service{
		Store:   cart.RedisStore{Client: client, TTL: time.Hour},
		Catalog: fakeCatalog{products: []catalog.Product{americanDryFruit, bigButterCone}},
		Locker:  lock.Locker{Client: client, RetryBackoff: 2 * time.Millisecond},
		Events:  &events.Bus{Store: evStore},
	}
	return svc, mr, evStore
}

func TestServiceRoundTripsThroughRedis(t *testing.T) {
	svc, mr, _ := newRedisService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.True(t, mr.Exists("cart:"+created.ID))
	require.Empty(t, created.Items)

	view, err := svc.AddItem(ctx, created.ID, "16", "5 Litre")
	require.NoError(t, err)
	require.Len(t, view.Notifications, 1)
	require.Equal(t, "American Dry Fruit (5 Litre) added to cart", view.Notifications[0].Message)
	require.Equal(t, 5.0, view.WholesaleShortfall)

	view, err = svc.AddItem(ctx, created.ID, "16", "5 Litre")
	require.NoError(t, err)
	require.True(t, view.Totals.IsWholesale)
	require.True(t, view.Items[0].UnitPrice.Equal(price(550)))
	require.True(t, view.Items[0].LineTotal.Equal(price(1100)))

	view, err = svc.AddQuantity(ctx, created.ID, "30", "8", 3)
	require.NoError(t, err)
	require.Equal(t, 3, view.Totals.TotalCountItems)
	require.True(t, view.Totals.TotalAmount.Equal(price(1100+480)))

	loaded, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	items := loaded.Items()
	require.Len(t, items, 2)
	require.Equal(t, "16", items[0].Product.ID)
	require.Equal(t, "5 Litre", items[0].Size.Size)
	require.Equal(t, 2, items[0].Quantity)
	require.Equal(t, "30", items[1].Product.ID)
	require.Equal(t, 3, items[1].Quantity)
	require.True(t, loaded.Totals().TotalAmount.Equal(price(1580)))
	require.Greater(t, mr.TTL("cart:"+created.ID), time.Duration(0))
}

func TestServiceMutations(t *testing.T) {
	svc, _, evStore := newRedisService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx)
	require.NoError(t, err)
	id := created.ID

	_, err = svc.AddItem(ctx, id, "30", "8")
	require.NoError(t, err)
	view, err := svc.Increase(ctx, id, "30", "8")
	require.NoError(t, err)
	require.Equal(t, 2, view.Items[0].Quantity)
	require.Empty(t, view.Notifications)

	view, err = svc.Decrease(ctx, id, "30", "8")
	require.NoError(t, err)
	require.Equal(t, 1, view.Items[0].Quantity)
	require.Empty(t, view.Notifications)

	view, err = svc.Decrease(ctx, id, "30", "8")
	require.NoError(t, err)
	require.Empty(t, view.Items)
	require.Equal(t, cart.KindRemoved, view.Notifications[0].Kind)

	_, err = svc.AddItem(ctx, id, "16", "750 ML")
	require.NoError(t, err)
	view, err = svc.RemoveItem(ctx, id, "16", "750 ML")
	require.NoError(t, err)
	require.Empty(t, view.Items)

	view, err = svc.Clear(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "Cart cleared", view.Notifications[0].Message)
	require.Len(t, evStore.Events(), 1)
	require.Equal(t, events.TopicCartCleared, evStore.Events()[0].Topic)
	require.Equal(t, id, evStore.Events()[0].AggregateID)
}

func TestServiceErrors(t *testing.T) {
	svc, _, _ := newRedisService(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, "missing")
	require.ErrorIs(t, err, cart.ErrNotFound)
	_, err = svc.AddItem(ctx, "missing", "16", "5 Litre")
	require.ErrorIs(t, err, cart.ErrNotFound)

	created, err := svc.Create(ctx)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, created.ID, "16", "2 Litre")
	require.ErrorIs(t, err, catalog.ErrSizeNotFound)
	_, err = svc.AddItem(ctx, created.ID, "404", "5 Litre")
	require.ErrorIs(t, err, catalog.ErrProductNotFound)
	_, err = svc.AddItem(ctx, created.ID, "", "5 Litre")
	require.ErrorIs(t, err, cart.ErrInvalidInput)
	_, err = svc.AddQuantity(ctx, created.ID, "16", "5 Litre", 0)
	require.ErrorIs(t, err, cart.ErrInvalidInput)

	require.NoError(t, svc.Delete(ctx, created.ID))
	require.ErrorIs(t, svc.Delete(ctx, created.ID), cart.ErrNotFound)

	var unconfigured *cart.Service
	_, err = unconfigured.Create(ctx)
	require.Error(t, err)
}

func TestServiceSerialisesConcurrentAdds(t *testing.T) {
	svc, _, _ := newRedisService(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	created, err := svc.Create(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddItem(ctx, created.ID, "30", "8")
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	loaded, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, 10, loaded.Totals().TotalItems)
}

func TestServiceWithMemoryStore(t *testing.T) {
	svc := &cart.Service{
		Store:   cart.NewMemoryStore(),
		Catalog: fakeCatalog{products: []catalog.Product{americanDryFruit}},
	}
	ctx := context.Background()
	created, err := svc.Create(ctx)
	require.NoError(t, err)

	view, err := svc.Update(ctx, created.ID, func(c *cart.Cart) {
		c.AddToCart(americanDryFruit, fiveLitre)
		c.AddToCart(americanDryFruit, fiveLitre)
		c.AddToCart(americanDryFruit, halfLitre)
	})
	require.NoError(t, err)
	require.Len(t, view.Notifications, 3)
	require.True(t, view.Totals.IsWholesale)
	require.True(t, view.Totals.TotalAmount.Equal(price(1235)))

	view, err = svc.Clear(ctx, created.ID)
	require.NoError(t, err)
	require.Empty(t, view.Items)
}

func TestServiceCheckout(t *testing.T) {
	svc, _, evStore := newRedisService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx)
	require.NoError(t, err)
	_, err = svc.AddQuantity(ctx, created.ID, "16", "5 Litre", 2)
	require.NoError(t, err)

	failed := errors.New("order store down")
	_, err = svc.Checkout(ctx, created.ID, func(context.Context, cart.View) error { return failed })
	require.ErrorIs(t, err, failed)
	loaded, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, 2, loaded.Totals().TotalItems)
	require.Empty(t, evStore.Events())

	var seen cart.View
	snapshot, err := svc.Checkout(ctx, created.ID, func(_ context.Context, v cart.View) error {
		seen = v
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, seen, snapshot)
	require.Len(t, snapshot.Items, 1)
	require.True(t, snapshot.Totals.IsWholesale)

	loaded, err = svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Empty(t, loaded.Items())
	require.Len(t, evStore.Events(), 1)
	require.Equal(t, events.TopicCartCleared, evStore.Events()[0].Topic)

	_, err = svc.Checkout(ctx, created.ID, nil)
	require.ErrorIs(t, err, cart.ErrInvalidInput)
	_, err = svc.Checkout(ctx, "missing", func(context.Context, cart.View) error { return nil })
	require.ErrorIs(t, err, cart.ErrNotFound)
}

func TestServiceCheckoutBlocksMutations(t *testing.T) {
	svc, _, _ := newRedisService(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	created, err := svc.Create(ctx)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, created.ID, "16", "5 Litre")
	require.NoError(t, err)

	entered := make(chan struct{})
	release := make(chan struct{})
	checkedOut := make(chan cart.View, 1)
	go func() {
		v, err := svc.Checkout(ctx, created.ID, func(context.Context, cart.View) error {
			close(entered)
			<-release
			return nil
		})
		if err != nil {
			cancel()
		}
		checkedOut <- v
	}()
	<-entered

	added := make(chan error, 1)
	go func() {
		_, err := svc.AddItem(ctx, created.ID, "30", "8")
		added <- err
	}()
	select {
	case err := <-added:
		t.Fatalf("add finished while checkout held the cart: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	close(release)

	snapshot := <-checkedOut
	require.NoError(t, <-added)
	require.Len(t, snapshot.Items, 1)
	require.Equal(t, "16", snapshot.Items[0].ProductID)

	loaded, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	items := loaded.Items()
	require.Len(t, items, 1)
	require.Equal(t, "30", items[0].Product.ID)
}
