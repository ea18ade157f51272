package repo

import (
	"context"
	"fmt"

	"cartoonify/internal/domain"
	"cartoonify/internal/infra"
	"cartoonify/internal/sqlinline"
)

// HistoryRepositoryPG implements domain.HistoryRepository using PostgreSQL.
type HistoryRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewHistoryRepository constructs the repository.
func NewHistoryRepository(sql infra.SQLExecutor) *HistoryRepositoryPG {
	return &HistoryRepositoryPG{sql: sql}
}

// Append inserts entry. Re-inserting an existing id is ignored.
func (r *HistoryRepositoryPG) Append(ctx context.Context, entry domain.HistoryEntry) error {
	_, err := r.sql.Exec(ctx, sqlinline.QInsertHistoryEntry,
		entry.ID,
		entry.SessionID,
		entry.OriginalImageRef,
		entry.ProcessedImageRef,
		string(entry.StyleID),
		entry.Intensity,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

// ListRecent returns up to limit entries, newest first.
func (r *HistoryRepositoryPG) ListRecent(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.sql.Query(ctx, sqlinline.QSelectRecentHistory, limit)
	if err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}
	defer rows.Close()

	var entries []domain.HistoryEntry
	for rows.Next() {
		var (
			e       domain.HistoryEntry
			styleID string
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &e.OriginalImageRef, &e.ProcessedImageRef, &styleID, &e.Intensity, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.StyleID = domain.StyleID(styleID)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

var _ domain.HistoryRepository = (*HistoryRepositoryPG)(nil)
