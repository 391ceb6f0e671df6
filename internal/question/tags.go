package question

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// tagDiff computes the symmetric difference between the persisted active tag
// ids of a question and the requested set. Order of the results follows the
// input order.
func tagDiff(existing, requested []int64) (toAdd, toRemove []int64) {
	have := make(map[int64]struct{}, len(existing))
	for _, id := range existing {
		have[id] = struct{}{}
	}
	want := make(map[int64]struct{}, len(requested))
	for _, id := range requested {
		if _, dup := want[id]; dup {
			continue
		}
		want[id] = struct{}{}
		if _, ok := have[id]; !ok {
			toAdd = append(toAdd, id)
		}
	}
	for _, id := range existing {
		if _, ok := want[id]; !ok {
			toRemove = append(toRemove, id)
		}
	}
	return toAdd, toRemove
}

// resolveTags verifies every id references an active tag. A count mismatch
// means at least one id is dangling.
func resolveTags(ctx context.Context, q querier, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	uniq := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}

	placeholders := make([]string, len(uniq))
	args := make([]any, len(uniq))
	for i, id := range uniq {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	var count int
	query := fmt.Sprintf(`
		SELECT COUNT(*) FROM tags
		WHERE status = 'active' AND id IN (%s)
	`, strings.Join(placeholders, ", "))
	if err := q.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return fmt.Errorf("resolve tags: %w", err)
	}
	if count != len(uniq) {
		return fmt.Errorf("%w: %d of %d tag ids do not resolve", ErrTagNotFound, len(uniq)-count, len(uniq))
	}
	return nil
}

// reconcileTags brings a question's tag mappings in line with the requested
// set: stale mappings are hard-deleted, new ones inserted after resolution.
func reconcileTags(ctx context.Context, tx *sql.Tx, questionID int64, requested []int64) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT tag_id FROM tag_mappings
		WHERE question_id = $1 AND status = 'active'
	`, questionID)
	if err != nil {
		return fmt.Errorf("query tag mappings: %w", err)
	}
	existing := make([]int64, 0, 4)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan tag mapping: %w", err)
		}
		existing = append(existing, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate tag mappings: %w", err)
	}

	toAdd, toRemove := tagDiff(existing, requested)
	if len(toAdd) > 0 {
		if err := resolveTags(ctx, tx, toAdd); err != nil {
			return err
		}
		for _, tagID := range toAdd {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO tag_mappings (question_id, tag_id, status, created_at)
				VALUES ($1, $2, 'active', now())
			`, questionID, tagID); err != nil {
				return fmt.Errorf("insert tag mapping: %w", err)
			}
		}
	}
	for _, tagID := range toRemove {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM tag_mappings WHERE question_id = $1 AND tag_id = $2
		`, questionID, tagID); err != nil {
			return fmt.Errorf("delete tag mapping: %w", err)
		}
	}
	return nil
}
