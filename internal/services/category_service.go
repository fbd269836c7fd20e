package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"fintrack/internal/core"
)

type CategoryInput struct {
	Name  *string `json:"name"`
	Type  *string `json:"type"`
	Emoji *string `json:"emoji"`
}

type CategoryService struct {
	store CategoryStore
}

func NewCategoryService(store CategoryStore) *CategoryService {
	return &CategoryService{store: store}
}

// List returns the default categories and those owned by ownerID.
func (s *CategoryService) List(ctx context.Context, ownerID string) ([]core.Category, error) {
	return s.store.FindVisibleCategories(ctx, ownerID)
}

func (s *CategoryService) Create(ctx context.Context, ownerID string, in CategoryInput) (core.Category, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return core.Category{}, core.Invalid("Category name is required")
	}
	if in.Type == nil {
		return core.Category{}, invalidCategoryType()
	}

	c := core.Category{OwnerID: ownerID}
	if err := applyCategory(&c, in); err != nil {
		return core.Category{}, err
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}

	created, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return created, nil
}

// Update changes a category owned by ownerID. Default categories are shared
// and read-only, so they report core.ErrNotFound.
func (s *CategoryService) Update(ctx context.Context, ownerID, id string, in CategoryInput) (core.Category, error) {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return core.Category{}, core.Invalid("Category name cannot be empty")
	}

	c, err := s.store.GetVisibleCategory(ctx, ownerID, id)
	if err != nil {
		return core.Category{}, err
	}
	if c.IsDefault || c.OwnerID != ownerID {
		return core.Category{}, core.ErrNotFound
	}

	if err := applyCategory(&c, in); err != nil {
		return core.Category{}, err
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}

	return s.store.UpdateCategory(ctx, c)
}

func (s *CategoryService) Delete(ctx context.Context, ownerID, id string) error {
	return s.store.DeleteCategory(ctx, ownerID, id)
}

// CreateDefaults inserts the built-in catalog when it is not stored yet.
func (s *CategoryService) CreateDefaults(ctx context.Context) (int, error) {
	n, err := s.store.SeedDefaultCategories(ctx)
	if errors.Is(err, core.ErrAlreadyExists) {
		return 0, core.Invalid("Default categories already exist")
	}
	if err != nil {
		return 0, fmt.Errorf("create default categories: %w", err)
	}

	slog.InfoContext(ctx, "Default categories created", "count", n)
	return n, nil
}

func applyCategory(c *core.Category, in CategoryInput) error {
	if in.Name != nil {
		c.Name = strings.TrimSpace(*in.Name)
	}
	if in.Type != nil {
		t, ok := core.ParseTransactionType(*in.Type)
		if !ok {
			return invalidCategoryType()
		}
		c.Type = t
	}
	if in.Emoji != nil {
		c.Emoji = strings.TrimSpace(*in.Emoji)
	}
	if c.Emoji == "" {
		c.Emoji = core.DefaultEmoji(c.Type)
	}
	return nil
}

func invalidCategoryType() error {
	return core.Invalid("Category type must be one of: income, expense, savings")
}
