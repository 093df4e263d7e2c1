package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

var Categories = []string{
	"Books",
	"Electronics",
	"Clothing",
	"Sports",
	"Furniture",
	"Stationery",
	"Accessories",
	"Other",
}

var Conditions = []string{"New", "Like New", "Good", "Fair", "Poor"}

const (
	DefaultLocation = "PICT Campus"

	// MaxImagesPerItem bounds both a single upload batch and the stored list.
	MaxImagesPerItem = 5
)

// ItemSearchVector is the full-text document for an item. The GIN index and
// the search filter must use the identical expression.
const ItemSearchVector = "to_tsvector('english', title || ' ' || description || ' ' || coalesce(tags::text, ''))"

// Item is a listing. SellerID is fixed at creation.
type Item struct {
	ID          uuid.UUID                   `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Title       string                      `gorm:"size:100;not null" json:"title"`
	Description string                      `gorm:"size:1000;not null" json:"description"`
	Price       float64                     `gorm:"not null;check:price >= 0;index:idx_items_category_price,priority:2" json:"price"`
	Category    string                      `gorm:"size:30;not null;index:idx_items_category_price,priority:1" json:"category"`
	Condition   string                      `gorm:"size:20;not null" json:"condition"`
	Images      datatypes.JSONSlice[string] `gorm:"type:jsonb;not null" json:"images"`
	SellerID    uuid.UUID                   `gorm:"type:uuid;not null;index" json:"sellerId"`
	Seller      User                        `gorm:"foreignKey:SellerID;constraint:OnDelete:CASCADE" json:"-"`
	IsAvailable bool                        `gorm:"not null;index:idx_items_listable,priority:1" json:"isAvailable"`
	IsSold      bool                        `gorm:"not null;default:false;index:idx_items_listable,priority:2" json:"isSold"`
	SoldToID    *uuid.UUID                  `gorm:"type:uuid" json:"soldToId,omitempty"`
	SoldTo      *User                       `gorm:"foreignKey:SoldToID;constraint:OnDelete:SET NULL" json:"-"`
	SoldAt      *time.Time                  `json:"soldAt,omitempty"`
	Views       int64                       `gorm:"not null;default:0" json:"views"`
	Favorites   []ItemFavorite              `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE" json:"-"`
	Tags        datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"tags"`
	Location    string                      `gorm:"size:100;not null" json:"location"`
	CreatedAt   time.Time                   `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time                   `json:"updatedAt"`
}

// FavoriteIDs lists the users who favorited the item.
func (i *Item) FavoriteIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(i.Favorites))
	for n, f := range i.Favorites {
		ids[n] = f.UserID
	}
	return ids
}

// ItemFavorite is one membership of an item's favorites set.
type ItemFavorite struct {
	ItemID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"itemId"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (ItemFavorite) TableName() string {
	return "item_favorites"
}
