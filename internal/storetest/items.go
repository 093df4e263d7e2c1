package storetest

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/campus-market/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/models"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/repository"
	"github.com/google/uuid"
)

var _ repository.ItemRepository = (*Items)(nil)

// Items keeps listings in memory. Seller and buyer relations are resolved
// from the Users store on read.
type Items struct {
	mu    sync.Mutex
	users *Users
	rows  map[uuid.UUID]models.Item
	favs  map[uuid.UUID][]models.ItemFavorite
	seq   time.Time
}

func NewItems(users *Users) *Items {
	return &Items{
		users: users,
		rows:  map[uuid.UUID]models.Item{},
		favs:  map[uuid.UUID][]models.ItemFavorite{},
		seq:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Put stores it as-is. Zero CreatedAt values get strictly increasing stamps
// so insertion order matches creation order.
func (s *Items) Put(it models.Item) models.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stamp(&it)
	s.rows[it.ID] = it
	return it
}

func (s *Items) stamp(it *models.Item) {
	if it.ID == uuid.Nil {
		it.ID = uuid.New()
	}
	if it.CreatedAt.IsZero() {
		s.seq = s.seq.Add(time.Second)
		it.CreatedAt = s.seq
	}
	if it.UpdatedAt.IsZero() {
		it.UpdatedAt = it.CreatedAt
	}
}

// Len reports the number of stored items.
func (s *Items) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func (s *Items) Create(_ context.Context, it *models.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stamp(it)
	s.rows[it.ID] = *it
	return nil
}

func (s *Items) GetByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	s.mu.Lock()
	it, ok := s.rows[id]
	s.mu.Unlock()
	if !ok {
		return nil, apperr.NotFound("Item not found")
	}
	s.hydrate(ctx, &it)
	return &it, nil
}

func (s *Items) hydrate(ctx context.Context, it *models.Item) {
	if u, err := s.users.GetByID(ctx, it.SellerID); err == nil {
		it.Seller = *u
	}
	if it.SoldToID != nil {
		if u, err := s.users.GetByID(ctx, *it.SoldToID); err == nil {
			it.SoldTo = u
		}
	}
	s.mu.Lock()
	it.Favorites = slices.Clone(s.favs[it.ID])
	s.mu.Unlock()
}

func (s *Items) List(ctx context.Context, q repository.ItemQuery) ([]models.Item, int64, error) {
	s.mu.Lock()
	matched := make([]models.Item, 0)
	for _, it := range s.rows {
		if matches(it, q) {
			matched = append(matched, it)
		}
	}
	s.mu.Unlock()

	sortItems(matched, q.Sort)
	total := int64(len(matched))
	out := make([]models.Item, 0)
	if q.Offset >= len(matched) {
		return out, total, nil
	}
	end := min(q.Offset+q.Limit, len(matched))
	for _, it := range matched[q.Offset:end] {
		s.hydrate(ctx, &it)
		out = append(out, it)
	}
	return out, total, nil
}

func matches(it models.Item, q repository.ItemQuery) bool {
	if !it.IsAvailable || it.IsSold {
		return false
	}
	if q.Category != "" && it.Category != q.Category {
		return false
	}
	if q.MinPrice != nil && it.Price < *q.MinPrice {
		return false
	}
	if q.MaxPrice != nil && it.Price > *q.MaxPrice {
		return false
	}
	if q.Search != "" {
		doc := strings.ToLower(it.Title + " " + it.Description + " " + strings.Join(it.Tags, " "))
		for _, term := range strings.Fields(strings.ToLower(q.Search)) {
			if !strings.Contains(doc, term) {
				return false
			}
		}
	}
	return true
}

func sortItems(items []models.Item, key string) {
	less := func(a, b models.Item) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID.String() > b.ID.String()
	}
	switch key {
	case repository.SortOldest:
		less = func(a, b models.Item) bool {
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID.String() < b.ID.String()
		}
	case repository.SortPriceLow:
		less = func(a, b models.Item) bool {
			if a.Price != b.Price {
				return a.Price < b.Price
			}
			return a.ID.String() < b.ID.String()
		}
	case repository.SortPriceHigh:
		less = func(a, b models.Item) bool {
			if a.Price != b.Price {
				return a.Price > b.Price
			}
			return a.ID.String() > b.ID.String()
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
}

func (s *Items) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Item, error) {
	s.mu.Lock()
	out := make([]models.Item, 0)
	for _, it := range s.rows {
		if it.SellerID == sellerID {
			out = append(out, it)
		}
	}
	s.mu.Unlock()
	sortItems(out, repository.SortNewest)
	for i := range out {
		s.hydrate(ctx, &out[i])
	}
	return out, nil
}

func (s *Items) ListFavoritedBy(ctx context.Context, userID uuid.UUID) ([]models.Item, error) {
	s.mu.Lock()
	out := make([]models.Item, 0)
	for id, favs := range s.favs {
		if slices.ContainsFunc(favs, func(f models.ItemFavorite) bool { return f.UserID == userID }) {
			out = append(out, s.rows[id])
		}
	}
	s.mu.Unlock()
	sortItems(out, repository.SortNewest)
	for i := range out {
		s.hydrate(ctx, &out[i])
	}
	return out, nil
}

func (s *Items) Update(_ context.Context, it *models.Item, columns []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[it.ID]
	if !ok || row.SellerID != it.SellerID {
		return apperr.NotFound("Item not found")
	}
	for _, c := range columns {
		switch c {
		case "title":
			row.Title = it.Title
		case "description":
			row.Description = it.Description
		case "price":
			row.Price = it.Price
		case "category":
			row.Category = it.Category
		case "condition":
			row.Condition = it.Condition
		case "tags":
			row.Tags = it.Tags
		case "images":
			row.Images = it.Images
		}
	}
	row.UpdatedAt = time.Now()
	s.rows[it.ID] = row
	return nil
}

func (s *Items) Delete(_ context.Context, id, sellerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok || row.SellerID != sellerID {
		return apperr.NotFound("Item not found")
	}
	delete(s.rows, id)
	delete(s.favs, id)
	return nil
}

func (s *Items) IncrementViews(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return apperr.NotFound("Item not found")
	}
	row.Views++
	s.rows[id] = row
	return nil
}

func (s *Items) MarkSold(_ context.Context, id, sellerID uuid.UUID, buyerID *uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok || row.SellerID != sellerID {
		return apperr.NotFound("Item not found")
	}
	row.IsSold, row.IsAvailable = true, false
	row.SoldAt = &at
	if buyerID != nil {
		b := *buyerID
		row.SoldToID = &b
	}
	s.rows[id] = row
	return nil
}

func (s *Items) ToggleFavorite(_ context.Context, id, userID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return false, apperr.NotFound("Item not found")
	}
	favs := s.favs[id]
	if i := slices.IndexFunc(favs, func(f models.ItemFavorite) bool { return f.UserID == userID }); i >= 0 {
		s.favs[id] = slices.Delete(favs, i, i+1)
		return false, nil
	}
	s.favs[id] = append(favs, models.ItemFavorite{ItemID: id, UserID: userID, CreatedAt: time.Now()})
	return true, nil
}
