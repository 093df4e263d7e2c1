package services

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/ahmetcoskunkizilkaya/campus-market/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/dto"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/models"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/repository"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/validation"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ItemService owns listing mutations. Every mutation other than create and
// favorite is restricted to the listing's seller.
type ItemService struct {
	items    repository.ItemRepository
	users    repository.UserRepository
	uploader ImageUploader
	validate *validation.Validator

	now func() time.Time
}

// NewItemService wires the service. A nil uploader means no image host is
// configured and every upload becomes a placeholder.
func NewItemService(items repository.ItemRepository, users repository.UserRepository, uploader ImageUploader, validate *validation.Validator) *ItemService {
	return &ItemService{
		items:    items,
		users:    users,
		uploader: uploader,
		validate: validate,
		now:      time.Now,
	}
}

func (s *ItemService) CreateItem(ctx context.Context, sellerID uuid.UUID, req dto.CreateItemRequest, files []ImageFile) (*dto.ItemResponse, error) {
	req.Normalize()
	if err := s.validate.Struct(&req); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, apperr.New(apperr.CodeNoImages, "At least one image is required")
	}
	if len(files) > models.MaxImagesPerItem {
		return nil, tooManyImages()
	}
	if err := s.caller(ctx, sellerID); err != nil {
		return nil, err
	}
	price, _ := validation.ParsePrice(req.Price)

	item := models.Item{
		Title:       req.Title,
		Description: req.Description,
		Price:       price,
		Category:    req.Category,
		Condition:   req.Condition,
		Images:      datatypes.JSONSlice[string](uploadImages(ctx, s.uploader, files)),
		SellerID:    sellerID,
		IsAvailable: true,
		Tags:        datatypes.JSONSlice[string](dto.ParseTags(req.Tags)),
		Location:    models.DefaultLocation,
	}
	if err := s.items.Create(ctx, &item); err != nil {
		return nil, err
	}
	slog.Info("item created", "user_id", sellerID.String(), "item_id", item.ID.String(), "action", "create_item")

	return s.load(ctx, item.ID, false)
}

func (s *ItemService) UpdateItem(ctx context.Context, id, callerID uuid.UUID, req dto.UpdateItemRequest, files []ImageFile) (*dto.ItemResponse, error) {
	req.Normalize()
	if err := s.validate.Struct(&req); err != nil {
		return nil, err
	}
	item, err := s.owned(ctx, id, callerID, "Not authorized to update this item")
	if err != nil {
		return nil, err
	}

	var columns []string
	if req.Title != nil {
		item.Title = *req.Title
		columns = append(columns, "title")
	}
	if req.Description != nil {
		item.Description = *req.Description
		columns = append(columns, "description")
	}
	if req.Price != nil {
		item.Price, _ = validation.ParsePrice(*req.Price)
		columns = append(columns, "price")
	}
	if req.Category != nil {
		item.Category = *req.Category
		columns = append(columns, "category")
	}
	if req.Condition != nil {
		item.Condition = *req.Condition
		columns = append(columns, "condition")
	}
	if req.Tags != nil {
		item.Tags = dto.ParseTags(*req.Tags)
		columns = append(columns, "tags")
	}

	if req.ExistingImages != nil || len(files) > 0 {
		kept := []string(item.Images)
		if req.ExistingImages != nil {
			kept = keptImages(item.Images, req.ExistingImages)
		}
		switch n := len(kept) + len(files); {
		case n == 0:
			return nil, apperr.Validation([]apperr.FieldError{{Field: "images", Message: "At least one image is required"}})
		case n > models.MaxImagesPerItem:
			return nil, tooManyImages()
		}
		images := slices.Clone(kept)
		item.Images = append(images, uploadImages(ctx, s.uploader, files)...)
		columns = append(columns, "images")
	}

	if len(columns) > 0 {
		if err := s.items.Update(ctx, item, columns); err != nil {
			return nil, err
		}
		slog.Info("item updated", "user_id", callerID.String(), "item_id", id.String(), "action", "update_item")
	}
	return s.load(ctx, id, false)
}

// keptImages returns the requested URLs that are already on the item, in
// request order, without duplicates.
func keptImages(current, requested []string) []string {
	kept := make([]string, 0, len(requested))
	for _, u := range requested {
		if slices.Contains(current, u) && !slices.Contains(kept, u) {
			kept = append(kept, u)
		}
	}
	return kept
}

func tooManyImages() error {
	return apperr.Validation([]apperr.FieldError{{Field: "images", Message: "A listing can have at most 5 images"}})
}

func (s *ItemService) DeleteItem(ctx context.Context, id, callerID uuid.UUID) error {
	if _, err := s.owned(ctx, id, callerID, "Not authorized to delete this item"); err != nil {
		return err
	}
	if err := s.items.Delete(ctx, id, callerID); err != nil {
		return err
	}
	slog.Info("item deleted", "user_id", callerID.String(), "item_id", id.String(), "action", "delete_item")
	return nil
}

func (s *ItemService) MarkSold(ctx context.Context, id, callerID uuid.UUID, req dto.MarkSoldRequest) error {
	if err := s.validate.Struct(&req); err != nil {
		return err
	}
	if _, err := s.owned(ctx, id, callerID, "Not authorized to mark this item as sold"); err != nil {
		return err
	}

	var buyerID *uuid.UUID
	if req.BuyerID != "" {
		bid, err := uuid.Parse(req.BuyerID)
		if err != nil {
			return apperr.Validation([]apperr.FieldError{{Field: "buyerId", Message: "Buyer ID must be a valid id"}})
		}
		if bid == callerID {
			return apperr.Validation([]apperr.FieldError{{Field: "buyerId", Message: "Buyer cannot be the seller"}})
		}
		if _, err := s.users.GetByID(ctx, bid); err != nil {
			if apperr.IsCode(err, apperr.CodeNotFound) {
				return apperr.NotFound("Buyer not found")
			}
			return err
		}
		buyerID = &bid
	}

	if err := s.items.MarkSold(ctx, id, callerID, buyerID, s.now()); err != nil {
		return err
	}
	slog.Info("item sold", "user_id", callerID.String(), "item_id", id.String(), "action", "mark_sold")
	return nil
}

func (s *ItemService) ToggleFavorite(ctx context.Context, id, userID uuid.UUID) (*dto.FavoriteResponse, error) {
	if err := s.caller(ctx, userID); err != nil {
		return nil, err
	}
	on, err := s.items.ToggleFavorite(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	msg := "Removed from favorites"
	if on {
		msg = "Added to favorites"
	}
	return &dto.FavoriteResponse{Message: msg, IsFavorited: on}, nil
}

// GetItem counts a view and returns the listing. withContact exposes the
// seller's phone numbers.
func (s *ItemService) GetItem(ctx context.Context, id uuid.UUID, withContact bool) (*dto.ItemResponse, error) {
	if err := s.items.IncrementViews(ctx, id); err != nil {
		return nil, err
	}
	return s.load(ctx, id, withContact)
}

func (s *ItemService) ListItems(ctx context.Context, raw RawListParams) (*dto.ItemListResponse, error) {
	p := ParseListParams(raw)
	items, total, err := s.items.List(ctx, p.Query)
	if err != nil {
		return nil, err
	}
	return &dto.ItemListResponse{
		Items:      dto.NewItemResponses(items),
		Pagination: NewPagination(p.Page, p.Limit, total),
	}, nil
}

func (s *ItemService) ListBySeller(ctx context.Context, sellerID uuid.UUID) (*dto.ItemsResponse, error) {
	items, err := s.items.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	return &dto.ItemsResponse{Items: dto.NewItemResponses(items)}, nil
}

func (s *ItemService) ListFavorites(ctx context.Context, userID uuid.UUID) (*dto.ItemsResponse, error) {
	items, err := s.items.ListFavoritedBy(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &dto.ItemsResponse{Items: dto.NewItemResponses(items)}, nil
}

// caller checks that the token's user still exists. Tokens outlive an
// account deleted by an admin.
func (s *ItemService) caller(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if apperr.IsCode(err, apperr.CodeNotFound) {
			return staleToken()
		}
		return err
	}
	return nil
}

// owned loads the item and checks that callerID is its seller.
func (s *ItemService) owned(ctx context.Context, id, callerID uuid.UUID, forbidden string) (*models.Item, error) {
	if err := s.caller(ctx, callerID); err != nil {
		return nil, err
	}
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.SellerID != callerID {
		return nil, apperr.Forbidden(forbidden)
	}
	return item, nil
}

func (s *ItemService) load(ctx context.Context, id uuid.UUID, withContact bool) (*dto.ItemResponse, error) {
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := dto.NewItemResponse(item, withContact)
	return &resp, nil
}
