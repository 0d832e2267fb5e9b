package ports

import (
	"context"

	"codex/internal/domain"
)

// PlanReviewer presents a computed sync plan for approval before it is
// applied. The TUI adapter implements this.
type PlanReviewer interface {
	// Review returns true when the plan should be applied.
	Review(ctx context.Context, plan *domain.SyncPlan) (bool, error)
}
