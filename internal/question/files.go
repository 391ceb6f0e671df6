package question

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

// positionalBinding maps each null-id file spec to the uploaded binary at its
// own position in the binaries list. The count of null-id specs must equal the
// binary count exactly.
func positionalBinding(specs []FileSpec, binaryCount int) (map[int]int, error) {
	binding := make(map[int]int)
	next := 0
	for i, f := range specs {
		if f.ID != nil {
			continue
		}
		binding[i] = next
		next++
	}
	if next != binaryCount {
		return nil, fmt.Errorf("%w: %d new file specs but %d uploaded binaries", ErrInvalidInput, next, binaryCount)
	}
	return binding, nil
}

// savedBlobs tracks locators written during a transaction so they can be
// cleaned up best-effort when the transaction rolls back.
type savedBlobs []string

func (s savedBlobs) cleanup(ctx context.Context, svc *Service) {
	for _, locator := range s {
		if err := svc.store.Delete(ctx, locator); err != nil {
			log.Printf("orphan blob cleanup failed for %s: %v", locator, err)
		}
	}
}

// createFiles stores each bound binary and inserts its file row. Only called
// with specs whose binding has already been validated.
func (s *Service) createFiles(ctx context.Context, tx *sql.Tx, groupID int64, specs []FileSpec, binaries []Binary, binding map[int]int, saved *savedBlobs) error {
	for i, f := range specs {
		bi, ok := binding[i]
		if !ok {
			continue
		}
		locator, err := s.store.Save(ctx, binaries[bi].Name, binaries[bi].Reader)
		if err != nil {
			return fmt.Errorf("store binary %d: %w", bi, err)
		}
		*saved = append(*saved, locator)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO files (group_id, media_type, url, display_order, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, 'active', now(), now())
		`, groupID, f.MediaType, locator, f.DisplayOrder); err != nil {
			return fmt.Errorf("insert file: %w", err)
		}
	}
	return nil
}

// reconcileFiles diffs the requested file specs against the group's active
// rows: absent ids are soft-deleted, null-id specs consume binaries
// positionally, non-null ids must belong to this group.
func (s *Service) reconcileFiles(ctx context.Context, tx *sql.Tx, groupID int64, specs []FileSpec, binaries []Binary, saved *savedBlobs) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT id FROM files WHERE group_id = $1 AND status = 'active'
	`, groupID)
	if err != nil {
		return fmt.Errorf("query files: %w", err)
	}
	existing := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan file id: %w", err)
		}
		existing[id] = struct{}{}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate files: %w", err)
	}

	binding, err := positionalBinding(specs, len(binaries))
	if err != nil {
		return err
	}

	requested := make(map[int64]struct{})
	for _, f := range specs {
		if f.ID == nil {
			continue
		}
		if _, owned := existing[*f.ID]; !owned {
			return fmt.Errorf("%w: file %d is not an active file of this group", ErrFileNotFound, *f.ID)
		}
		requested[*f.ID] = struct{}{}
		if _, err := tx.ExecContext(ctx, `
			UPDATE files
			SET media_type = $2, display_order = $3, updated_at = now()
			WHERE id = $1 AND group_id = $4 AND status = 'active'
		`, *f.ID, f.MediaType, f.DisplayOrder, groupID); err != nil {
			return fmt.Errorf("update file: %w", err)
		}
	}

	for id := range existing {
		if _, keep := requested[id]; keep {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE files SET status = 'deleted', updated_at = now() WHERE id = $1
		`, id); err != nil {
			return fmt.Errorf("soft delete file: %w", err)
		}
	}

	return s.createFiles(ctx, tx, groupID, specs, binaries, binding, saved)
}
