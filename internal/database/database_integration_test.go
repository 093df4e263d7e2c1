//go:build integration

package database

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/campus-market/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/models"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/gorm"
)

func startPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("campus_market"),
		tcpostgres.WithUsername("market"),
		tcpostgres.WithPassword("market"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	require.NoError(t, Migrate(db))
	return db
}

func TestPostgres_MarketplaceFlow(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()
	users := repository.NewUserRepository(db)
	items := repository.NewItemRepository(db)

	require.NoError(t, Ping(ctx, db))
	// Migrate is idempotent.
	require.NoError(t, Migrate(db))

	seller := &models.User{
		Name: "Seller", Email: "seller@pict.edu", Password: "x", Phone: "9876543210",
		WhatsApp: "9876543210", Year: "TE", Branch: "CS", InstitutionalID: "C2K221111",
	}
	require.NoError(t, users.Create(ctx, seller))

	dup := *seller
	dup.ID = uuid.Nil
	dup.InstitutionalID = "C2K221112"
	assert.True(t, apperr.IsCode(users.Create(ctx, &dup), apperr.CodeConflict))

	expiry := time.Now().Add(10 * time.Minute)
	ok, err := users.SetOTP(ctx, seller.ID, "654321", expiry)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = users.MarkVerified(ctx, seller.ID, "000000", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = users.MarkVerified(ctx, seller.ID, "654321", time.Now())
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = users.MarkVerified(ctx, seller.ID, "654321", time.Now())
	require.NoError(t, err)
	assert.False(t, ok, "second verification must not apply")

	for _, it := range []models.Item{
		{Title: "Calculus textbook", Description: "Thomas calculus, 12th edition", Price: 300, Category: "Books", Condition: "Good"},
		{Title: "Scientific calculator", Description: "Casio fx-991ES in box", Price: 900, Category: "Electronics", Condition: "Like New"},
		{Title: "Drafter", Description: "Mini drafter for engineering drawing", Price: 150, Category: "Stationery", Condition: "Fair"},
	} {
		it.SellerID = seller.ID
		it.IsAvailable = true
		it.Images = []string{"https://img.example/1.jpg"}
		it.Location = models.DefaultLocation
		require.NoError(t, items.Create(ctx, &it))
	}

	got, total, err := items.List(ctx, repository.ItemQuery{Search: "calculus", Sort: repository.SortNewest, Limit: 12})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, got, 1)
	assert.Equal(t, "Calculus textbook", got[0].Title)

	minPrice := 200.0
	got, total, err = items.List(ctx, repository.ItemQuery{MinPrice: &minPrice, Sort: repository.SortPriceLow, Limit: 12})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, got, 2)
	assert.Equal(t, 300.0, got[0].Price)
	assert.Equal(t, "Seller", got[0].Seller.Name)

	buyer := &models.User{
		Name: "Buyer", Email: "buyer@pict.edu", Password: "x", Phone: "9876543211",
		WhatsApp: "9876543211", Year: "SE", Branch: "IT", InstitutionalID: "I2K221111",
	}
	require.NoError(t, users.Create(ctx, buyer))

	on, err := items.ToggleFavorite(ctx, got[0].ID, buyer.ID)
	require.NoError(t, err)
	assert.True(t, on)
	favs, err := items.ListFavoritedBy(ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, favs, 1)
	on, err = items.ToggleFavorite(ctx, got[0].ID, buyer.ID)
	require.NoError(t, err)
	assert.False(t, on)

	require.NoError(t, items.MarkSold(ctx, got[0].ID, seller.ID, &buyer.ID, time.Now()))
	_, total, err = items.List(ctx, repository.ItemQuery{Sort: repository.SortNewest, Limit: 12})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total, "sold items leave the public listing")

	mine, err := items.ListBySeller(ctx, seller.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 3)
}

func TestPostgres_ConcurrentFavoriteToggles(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()
	users := repository.NewUserRepository(db)
	items := repository.NewItemRepository(db)

	seller := &models.User{
		Name: "Seller", Email: "seller@pict.edu", Password: "x", Phone: "9876543210",
		WhatsApp: "9876543210", Year: "TE", Branch: "CS", InstitutionalID: "C2K221111",
	}
	require.NoError(t, users.Create(ctx, seller))
	item := &models.Item{
		Title: "Lab coat", Description: "Chemistry lab coat, size M", Price: 200, Category: "Clothing",
		Condition: "Good", SellerID: seller.ID, IsAvailable: true,
		Images: []string{"https://img.example/1.jpg"}, Location: models.DefaultLocation,
	}
	require.NoError(t, items.Create(ctx, item))

	const n = 12
	fans := make([]uuid.UUID, n)
	for i := range fans {
		u := &models.User{
			Name: fmt.Sprintf("Fan %d", i), Email: fmt.Sprintf("fan%d@pict.edu", i), Password: "x",
			Phone: "9876543200", WhatsApp: "9876543200", Year: "FE", Branch: "ENTC",
			InstitutionalID: fmt.Sprintf("E2K24%04d", i),
		}
		require.NoError(t, users.Create(ctx, u))
		fans[i] = u.ID
	}

	toggleAll := func(want bool) {
		var wg sync.WaitGroup
		for _, id := range fans {
			wg.Add(1)
			go func() {
				defer wg.Done()
				on, err := items.ToggleFavorite(ctx, item.ID, id)
				assert.NoError(t, err)
				assert.Equal(t, want, on)
			}()
		}
		wg.Wait()
	}

	toggleAll(true)
	got, err := items.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, fans, got.FavoriteIDs())
	for _, id := range fans {
		favs, err := items.ListFavoritedBy(ctx, id)
		require.NoError(t, err)
		assert.Len(t, favs, 1)
	}

	toggleAll(false)
	got, err = items.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Empty(t, got.FavoriteIDs())
}
