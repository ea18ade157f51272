package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"cartoonify/internal/domain"
	"cartoonify/internal/infra"
	"cartoonify/internal/sqlinline"
)

// DefaultOwner keys the entitlement row of a single-user install.
const DefaultOwner = "local"

// EntitlementRepositoryPG implements domain.EntitlementRepository using PostgreSQL.
type EntitlementRepositoryPG struct {
	sql   infra.SQLExecutor
	owner string
}

// NewEntitlementRepository constructs the repository for owner.
func NewEntitlementRepository(sql infra.SQLExecutor, owner string) *EntitlementRepositoryPG {
	if owner == "" {
		owner = DefaultOwner
	}
	return &EntitlementRepositoryPG{sql: sql, owner: owner}
}

// Load returns the stored state, or the zero state when nothing is stored.
func (r *EntitlementRepositoryPG) Load(ctx context.Context) (domain.EntitlementState, error) {
	var (
		subscriber bool
		rawUnlocks []byte
	)
	row := r.sql.QueryRow(ctx, sqlinline.QSelectEntitlements, r.owner)
	if err := row.Scan(&subscriber, &rawUnlocks); err != nil {
		if infra.IsNoRows(err) {
			return domain.EntitlementState{}, nil
		}
		return domain.EntitlementState{}, fmt.Errorf("select entitlements: %w", err)
	}
	var unlocks []domain.StyleID
	if len(rawUnlocks) > 0 {
		if err := json.Unmarshal(rawUnlocks, &unlocks); err != nil {
			return domain.EntitlementState{}, fmt.Errorf("decode unlocks: %w", err)
		}
	}
	state := domain.EntitlementState{IsPremiumSubscriber: subscriber}
	if len(unlocks) > 0 {
		state.TemporaryUnlocks = make(map[domain.StyleID]struct{}, len(unlocks))
		for _, id := range unlocks {
			state.TemporaryUnlocks[id] = struct{}{}
		}
	}
	return state, nil
}

// Save overwrites the stored state.
func (r *EntitlementRepositoryPG) Save(ctx context.Context, state domain.EntitlementState) error {
	unlocks := state.UnlockedStyles()
	sort.Slice(unlocks, func(i, j int) bool { return unlocks[i] < unlocks[j] })
	raw, err := json.Marshal(unlocks)
	if err != nil {
		return fmt.Errorf("encode unlocks: %w", err)
	}
	if _, err := r.sql.Exec(ctx, sqlinline.QUpsertEntitlements, r.owner, state.IsPremiumSubscriber, raw); err != nil {
		return fmt.Errorf("upsert entitlements: %w", err)
	}
	return nil
}

var _ domain.EntitlementRepository = (*EntitlementRepositoryPG)(nil)
