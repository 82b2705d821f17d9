package portal

import (
	"context"
)

func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (*Category, error) {
	category := &Category{Name: trimmed(in.Name)}
	if category.Name == "" {
		return nil, required("name")
	}
	err := s.store.WithTx(ctx, func(tx Tx) error {
		return tx.CreateCategory(ctx, category)
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

func (s *Service) UpdateCategory(ctx context.Context, id int64, patch CategoryPatch) (*Category, error) {
	var out *Category
	err := s.store.WithTx(ctx, func(tx Tx) error {
		category, err := tx.GetCategory(ctx, id)
		if err != nil {
			return err
		}
		if category == nil {
			return &NotFoundError{Entity: "category", ID: id}
		}
		if v := trimmedPtr(patch.Name); v != nil {
			category.Name = *v
		}
		if err := tx.UpdateCategory(ctx, category); err != nil {
			return err
		}
		out = category
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteCategory removes a category together with all of its batches.
func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	return s.store.WithTx(ctx, func(tx Tx) error {
		category, err := tx.GetCategory(ctx, id)
		if err != nil {
			return err
		}
		if category == nil {
			return &NotFoundError{Entity: "category", ID: id}
		}
		return tx.DeleteCategory(ctx, id)
	})
}

// GetCategory returns a category with its batches.
func (s *Service) GetCategory(ctx context.Context, id int64) (*Category, error) {
	var out *Category
	err := s.store.View(ctx, func(tx Tx) error {
		category, err := tx.GetCategory(ctx, id)
		if err != nil {
			return err
		}
		if category == nil {
			return &NotFoundError{Entity: "category", ID: id}
		}
		id := category.ID
		if category.Batches, err = tx.ListBatches(ctx, BatchFilter{CategoryID: &id}); err != nil {
			return err
		}
		out = category
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListCategories returns all categories, with their batches when asked.
func (s *Service) ListCategories(ctx context.Context, withBatches bool) ([]Category, error) {
	var out []Category
	err := s.store.View(ctx, func(tx Tx) error {
		var err error
		if out, err = tx.ListCategories(ctx); err != nil || !withBatches {
			return err
		}
		for i := range out {
			id := out[i].ID
			if out[i].Batches, err = tx.ListBatches(ctx, BatchFilter{CategoryID: &id}); err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}
