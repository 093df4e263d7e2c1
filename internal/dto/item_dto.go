package dto

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/campus-market/internal/models"
	"github.com/google/uuid"
)

// CreateItemRequest holds the text fields of a multipart listing form. Price
// stays textual until validated.
type CreateItemRequest struct {
	Title       string `json:"title" form:"title" validate:"required,min=3,max=100"`
	Description string `json:"description" form:"description" validate:"required,min=10,max=1000"`
	Price       string `json:"price" form:"price" validate:"required,price"`
	Category    string `json:"category" form:"category" validate:"required,item_category"`
	Condition   string `json:"condition" form:"condition" validate:"required,item_condition"`
	Tags        string `json:"tags" form:"tags"`
}

func (r *CreateItemRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.Price = strings.TrimSpace(r.Price)
	r.Category = strings.TrimSpace(r.Category)
	r.Condition = strings.TrimSpace(r.Condition)
}

// UpdateItemRequest carries only the fields the caller supplied; nil means
// leave unchanged. ExistingImages is nil unless the caller sent the list.
type UpdateItemRequest struct {
	Title          *string  `json:"title" validate:"omitempty,min=3,max=100"`
	Description    *string  `json:"description" validate:"omitempty,min=10,max=1000"`
	Price          *string  `json:"price" validate:"omitempty,price"`
	Category       *string  `json:"category" validate:"omitempty,item_category"`
	Condition      *string  `json:"condition" validate:"omitempty,item_condition"`
	Tags           *string  `json:"tags"`
	ExistingImages []string `json:"existingImages"`
}

func (r *UpdateItemRequest) Normalize() {
	for _, p := range []*string{r.Title, r.Description, r.Price, r.Category, r.Condition} {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
	if r.ExistingImages != nil {
		kept := make([]string, 0, len(r.ExistingImages))
		for _, u := range r.ExistingImages {
			if u = strings.TrimSpace(u); u != "" {
				kept = append(kept, u)
			}
		}
		r.ExistingImages = kept
	}
}

type MarkSoldRequest struct {
	BuyerID string `json:"buyerId" form:"buyerId" validate:"omitempty,uuid"`
}

// ParseTags splits a comma separated tag string, trimming entries and
// dropping empty ones.
func ParseTags(raw string) []string {
	tags := make([]string, 0)
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// ParseImageList reads the existingImages form field. Clients send it as
// repeated fields, a JSON array, or one comma separated value.
func ParseImageList(values []string) []string {
	urls := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if strings.HasPrefix(v, "[") {
			var arr []string
			if err := json.Unmarshal([]byte(v), &arr); err == nil {
				urls = append(urls, arr...)
				continue
			}
		}
		urls = append(urls, strings.Split(v, ",")...)
	}
	return urls
}

// SellerSummary is the public projection of a seller. Contact numbers are
// only filled for authenticated viewers of a single listing.
type SellerSummary struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Year     string    `json:"year"`
	Branch   string    `json:"branch"`
	Rating   float64   `json:"rating"`
	Phone    string    `json:"phone,omitempty"`
	WhatsApp string    `json:"whatsapp,omitempty"`
}

type BuyerSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

type ItemResponse struct {
	ID          uuid.UUID     `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Price       float64       `json:"price"`
	Category    string        `json:"category"`
	Condition   string        `json:"condition"`
	Images      []string      `json:"images"`
	Seller      SellerSummary `json:"seller"`
	IsAvailable bool          `json:"isAvailable"`
	IsSold      bool          `json:"isSold"`
	SoldTo      *BuyerSummary `json:"soldTo,omitempty"`
	SoldAt      *time.Time    `json:"soldAt,omitempty"`
	Views       int64         `json:"views"`
	Favorites   []uuid.UUID   `json:"favorites"`
	Tags        []string      `json:"tags"`
	Location    string        `json:"location"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// NewItemResponse projects an item with its seller preloaded.
func NewItemResponse(item *models.Item, withContact bool) ItemResponse {
	seller := SellerSummary{
		ID:     item.Seller.ID,
		Name:   item.Seller.Name,
		Email:  item.Seller.Email,
		Year:   item.Seller.Year,
		Branch: item.Seller.Branch,
		Rating: item.Seller.Rating,
	}
	if seller.ID == uuid.Nil {
		seller.ID = item.SellerID
	}
	if withContact {
		seller.Phone = item.Seller.Phone
		seller.WhatsApp = item.Seller.WhatsApp
	}

	resp := ItemResponse{
		ID:          item.ID,
		Title:       item.Title,
		Description: item.Description,
		Price:       item.Price,
		Category:    item.Category,
		Condition:   item.Condition,
		Images:      nonNil(item.Images),
		Seller:      seller,
		IsAvailable: item.IsAvailable,
		IsSold:      item.IsSold,
		SoldAt:      item.SoldAt,
		Views:       item.Views,
		Favorites:   item.FavoriteIDs(),
		Tags:        nonNil(item.Tags),
		Location:    item.Location,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
	if item.SoldTo != nil {
		resp.SoldTo = &BuyerSummary{ID: item.SoldTo.ID, Name: item.SoldTo.Name, Email: item.SoldTo.Email}
	} else if item.SoldToID != nil {
		resp.SoldTo = &BuyerSummary{ID: *item.SoldToID}
	}
	return resp
}

func NewItemResponses(items []models.Item) []ItemResponse {
	out := make([]ItemResponse, len(items))
	for i := range items {
		out[i] = NewItemResponse(&items[i], false)
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int64 `json:"totalPages"`
	TotalItems  int64 `json:"totalItems"`
	HasNext     bool  `json:"hasNext"`
	HasPrev     bool  `json:"hasPrev"`
}

type ItemListResponse struct {
	Items      []ItemResponse `json:"items"`
	Pagination Pagination     `json:"pagination"`
}

type ItemsResponse struct {
	Items []ItemResponse `json:"items"`
}

type ItemEnvelope struct {
	Message string       `json:"message"`
	Item    ItemResponse `json:"item"`
}

type FavoriteResponse struct {
	Message     string `json:"message"`
	IsFavorited bool   `json:"isFavorited"`
}
