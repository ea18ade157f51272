package domain

import "context"

// HistoryRepository persists history entries beyond the process lifetime.
type HistoryRepository interface {
	Append(ctx context.Context, entry HistoryEntry) error
	ListRecent(ctx context.Context, limit int) ([]HistoryEntry, error)
}

// EntitlementRepository persists the entitlement state of the device owner.
type EntitlementRepository interface {
	Load(ctx context.Context) (EntitlementState, error)
	Save(ctx context.Context, state EntitlementState) error
}
