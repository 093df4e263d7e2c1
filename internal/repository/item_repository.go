package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ahmetcoskunkizilkaya/campus-market/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Sort keys accepted by ItemQuery.
const (
	SortNewest    = "newest"
	SortOldest    = "oldest"
	SortPriceLow  = "price-low"
	SortPriceHigh = "price-high"
)

var sortOrders = map[string]string{
	SortNewest:    "items.created_at DESC, items.id DESC",
	SortOldest:    "items.created_at ASC, items.id ASC",
	SortPriceLow:  "items.price ASC, items.id ASC",
	SortPriceHigh: "items.price DESC, items.id DESC",
}

// sellerColumns is the public seller projection used in listings.
var sellerColumns = []string{"id", "name", "email", "year", "branch", "rating"}

// ItemQuery is an already-coerced listing filter. Zero values mean no filter.
type ItemQuery struct {
	Category string
	MinPrice *float64
	MaxPrice *float64
	Search   string
	Sort     string
	Limit    int
	Offset   int
}

type ItemRepository interface {
	Create(ctx context.Context, item *models.Item) error
	// GetByID loads an item with its full seller, buyer and favorites.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Item, error)
	// List returns one page of listable items and the total match count.
	List(ctx context.Context, q ItemQuery) ([]models.Item, int64, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Item, error)
	ListFavoritedBy(ctx context.Context, userID uuid.UUID) ([]models.Item, error)
	// Update writes the named columns of item, guarded by its seller.
	Update(ctx context.Context, item *models.Item, columns []string) error
	Delete(ctx context.Context, id, sellerID uuid.UUID) error
	IncrementViews(ctx context.Context, id uuid.UUID) error
	MarkSold(ctx context.Context, id, sellerID uuid.UUID, buyerID *uuid.UUID, at time.Time) error
	// ToggleFavorite flips userID's membership and returns the new state.
	ToggleFavorite(ctx context.Context, id, userID uuid.UUID) (bool, error)
}

type itemRepository struct {
	baseRepository[models.Item]
}

func NewItemRepository(db *gorm.DB) ItemRepository {
	return &itemRepository{baseRepository: newBaseRepository[models.Item](db, "Item")}
}

func (r *itemRepository) Create(ctx context.Context, item *models.Item) error {
	return r.create(ctx, item)
}

func (r *itemRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	q := r.db.WithContext(ctx).
		Preload("Seller").
		Preload("SoldTo").
		Preload("Favorites").
		Where("items.id = ?", id)
	return r.first(q)
}

func (r *itemRepository) List(ctx context.Context, q ItemQuery) ([]models.Item, int64, error) {
	var total int64
	if err := r.filtered(ctx, q).Model(&models.Item{}).Count(&total).Error; err != nil {
		return nil, 0, apperr.Internal(err, "count items failed")
	}
	items := make([]models.Item, 0)
	if total == 0 || int64(q.Offset) >= total {
		return items, total, nil
	}

	order, ok := sortOrders[q.Sort]
	if !ok {
		order = sortOrders[SortNewest]
	}
	err := r.withListRelations(r.filtered(ctx, q)).
		Order(order).
		Limit(q.Limit).
		Offset(q.Offset).
		Find(&items).Error
	if err != nil {
		return nil, 0, apperr.Internal(err, "list items failed")
	}
	return items, total, nil
}

// filtered applies the listable base filter plus the query's own filters.
func (r *itemRepository) filtered(ctx context.Context, q ItemQuery) *gorm.DB {
	db := r.db.WithContext(ctx).Where("items.is_available = ? AND items.is_sold = ?", true, false)
	if q.Category != "" {
		db = db.Where("items.category = ?", q.Category)
	}
	if q.MinPrice != nil {
		db = db.Where("items.price >= ?", *q.MinPrice)
	}
	if q.MaxPrice != nil {
		db = db.Where("items.price <= ?", *q.MaxPrice)
	}
	if q.Search != "" {
		db = db.Where(models.ItemSearchVector+" @@ plainto_tsquery('english', ?)", q.Search)
	}
	return db
}

func (r *itemRepository) withListRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Seller", func(tx *gorm.DB) *gorm.DB { return tx.Select(sellerColumns) }).
		Preload("Favorites")
}

func (r *itemRepository) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Item, error) {
	items := make([]models.Item, 0)
	err := r.withListRelations(r.db.WithContext(ctx)).
		Where("items.seller_id = ?", sellerID).
		Order(sortOrders[SortNewest]).
		Find(&items).Error
	if err != nil {
		return nil, apperr.Internal(err, "list seller items failed")
	}
	return items, nil
}

func (r *itemRepository) ListFavoritedBy(ctx context.Context, userID uuid.UUID) ([]models.Item, error) {
	items := make([]models.Item, 0)
	err := r.withListRelations(r.db.WithContext(ctx)).
		Joins("JOIN item_favorites fav ON fav.item_id = items.id AND fav.user_id = ?", userID).
		Order("fav.created_at DESC, items.id DESC").
		Find(&items).Error
	if err != nil {
		return nil, apperr.Internal(err, "list favorite items failed")
	}
	return items, nil
}

func (r *itemRepository) Update(ctx context.Context, item *models.Item, columns []string) error {
	if len(columns) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).
		Model(item).
		Where("seller_id = ?", item.SellerID).
		Select(columns).
		Updates(item)
	if res.Error != nil {
		return apperr.Internal(res.Error, "update item failed")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Item not found")
	}
	return nil
}

func (r *itemRepository) Delete(ctx context.Context, id, sellerID uuid.UUID) error {
	return r.deleteWhere(ctx, "id = ? AND seller_id = ?", id, sellerID)
}

func (r *itemRepository) IncrementViews(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&models.Item{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", 1))
	if res.Error != nil {
		return apperr.Internal(res.Error, "increment views failed")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Item not found")
	}
	return nil
}

func (r *itemRepository) MarkSold(ctx context.Context, id, sellerID uuid.UUID, buyerID *uuid.UUID, at time.Time) error {
	updates := map[string]any{
		"is_sold":      true,
		"is_available": false,
		"sold_at":      at,
	}
	if buyerID != nil {
		updates["sold_to_id"] = *buyerID
	}
	res := r.db.WithContext(ctx).Model(&models.Item{}).
		Where("id = ? AND seller_id = ?", id, sellerID).
		Updates(updates)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrForeignKeyViolated) {
			return apperr.NotFound("Buyer not found")
		}
		return apperr.Internal(res.Error, "mark item sold failed")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Item not found")
	}
	return nil
}

func (r *itemRepository) ToggleFavorite(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("item_id = ? AND user_id = ?", id, userID).
		Delete(&models.ItemFavorite{})
	if res.Error != nil {
		return false, apperr.Internal(res.Error, "remove favorite failed")
	}
	if res.RowsAffected > 0 {
		return false, nil
	}

	fav := models.ItemFavorite{ItemID: id, UserID: userID}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&fav).Error
	if err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return false, apperr.NotFound("Item not found")
		}
		return false, apperr.Internal(err, "add favorite failed")
	}
	return true, nil
}
