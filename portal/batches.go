package portal

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/sciencemaster/portal/billing"
)

// CreateBatch adds a batch under a category and schedules it at one or more
// branches.
func (s *Service) CreateBatch(ctx context.Context, in BatchInput) (*Batch, error) {
	batch := &Batch{
		BatchCode:  trimmed(in.BatchCode),
		Name:       trimmed(in.Name),
		CategoryID: in.CategoryID,
	}
	branchIDs := uniqueIDs(in.BranchIDs)
	switch {
	case batch.BatchCode == "":
		return nil, required("batchCode")
	case batch.Name == "":
		return nil, required("name")
	case in.Cost == nil:
		return nil, required("cost")
	case batch.CategoryID == 0:
		return nil, required("categoryId")
	case len(branchIDs) == 0:
		return nil, required("branchIds")
	}
	if err := checkCost(*in.Cost); err != nil {
		return nil, err
	}
	batch.Cost = *in.Cost

	var out *Batch
	err := s.store.WithTx(ctx, func(tx Tx) error {
		if err := requireCategory(ctx, tx, batch.CategoryID); err != nil {
			return err
		}
		if err := requireBranches(ctx, tx, branchIDs); err != nil {
			return err
		}
		if err := tx.CreateBatch(ctx, batch); err != nil {
			return err
		}
		if err := tx.SetBatchBranches(ctx, batch.ID, branchIDs); err != nil {
			return err
		}
		var err error
		out, err = tx.GetBatch(ctx, batch.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateBatch applies a partial update. A non-nil BranchIDs replaces the
// branch set.
func (s *Service) UpdateBatch(ctx context.Context, id int64, patch BatchPatch) (*Batch, error) {
	if patch.Cost != nil {
		if err := checkCost(*patch.Cost); err != nil {
			return nil, err
		}
	}

	var out *Batch
	err := s.store.WithTx(ctx, func(tx Tx) error {
		batch, err := tx.LockBatch(ctx, id)
		if err != nil {
			return err
		}
		if batch == nil {
			return &NotFoundError{Entity: "batch", ID: id}
		}

		if v := trimmedPtr(patch.BatchCode); v != nil {
			batch.BatchCode = *v
		}
		if v := trimmedPtr(patch.Name); v != nil {
			batch.Name = *v
		}
		if patch.Cost != nil {
			batch.Cost = *patch.Cost
		}
		if patch.CategoryID != nil {
			if err := requireCategory(ctx, tx, *patch.CategoryID); err != nil {
				return err
			}
			batch.CategoryID = *patch.CategoryID
		}
		if err := tx.UpdateBatch(ctx, batch); err != nil {
			return err
		}

		if patch.BranchIDs != nil {
			branchIDs := uniqueIDs(*patch.BranchIDs)
			if len(branchIDs) == 0 {
				return &ValidationError{Field: "branchIds", Message: "must name at least one branch"}
			}
			if err := requireBranches(ctx, tx, branchIDs); err != nil {
				return err
			}
			if err := tx.SetBatchBranches(ctx, batch.ID, branchIDs); err != nil {
				return err
			}
		}

		out, err = tx.GetBatch(ctx, batch.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteBatch removes a batch; enrolled students simply stop owing its cost.
func (s *Service) DeleteBatch(ctx context.Context, id int64) error {
	return s.store.WithTx(ctx, func(tx Tx) error {
		batch, err := tx.LockBatch(ctx, id)
		if err != nil {
			return err
		}
		if batch == nil {
			return &NotFoundError{Entity: "batch", ID: id}
		}
		return tx.DeleteBatch(ctx, id)
	})
}

func (s *Service) GetBatch(ctx context.Context, id int64) (*Batch, error) {
	var out *Batch
	err := s.store.View(ctx, func(tx Tx) error {
		var err error
		out, err = tx.GetBatch(ctx, id)
		if err == nil && out == nil {
			err = &NotFoundError{Entity: "batch", ID: id}
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) ListBatches(ctx context.Context, filter BatchFilter) ([]Batch, error) {
	filter.Search = trimmed(filter.Search)
	var out []Batch
	err := s.store.View(ctx, func(tx Tx) error {
		var err error
		out, err = tx.ListBatches(ctx, filter)
		return err
	})
	return out, err
}

func requireCategory(ctx context.Context, tx Tx, id int64) error {
	category, err := tx.GetCategory(ctx, id)
	if err != nil {
		return err
	}
	if category == nil {
		return &NotFoundError{Entity: "category", ID: id}
	}
	return nil
}

func requireBranches(ctx context.Context, tx Tx, ids []int64) error {
	found, err := tx.FindBranches(ctx, ids)
	if err != nil {
		return err
	}
	if len(found) != len(ids) {
		return &NotFoundError{Entity: "branch", Missing: len(ids) - len(found)}
	}
	return nil
}

func checkCost(cost decimal.Decimal) error {
	if cost.IsNegative() {
		return &ValidationError{Field: "cost", Message: "must not be negative"}
	}
	return fromBilling("cost", billing.CheckMoney(cost))
}
