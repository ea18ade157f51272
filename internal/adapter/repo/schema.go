package repo

import (
	"context"
	"fmt"

	"cartoonify/internal/infra"
	"cartoonify/internal/sqlinline"
)

// EnsureSchema creates the tables used by the repositories when missing.
func EnsureSchema(ctx context.Context, sql infra.SQLExecutor) error {
	if _, err := sql.Exec(ctx, sqlinline.QCreateSchema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
