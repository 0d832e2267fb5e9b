package application

import "codex/internal/domain"

// Re-export domain types for use by adapters
type (
	Reference         = domain.Reference
	ResolvedReference = domain.ResolvedReference
	FetchResult       = domain.FetchResult
	CacheStats        = domain.CacheStats
	SyncPlan          = domain.SyncPlan
	SyncResult        = domain.SyncResult
	Direction         = domain.Direction
	ConflictStrategy  = domain.ConflictStrategy
)

// ParseReference parses a codex:// URI into its components
func ParseReference(uri string) (Reference, error) {
	return domain.ParseReference(uri)
}

// ParseDirection maps a CLI/tool argument to a sync direction
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "from_codex", "from-codex", "pull":
		return domain.FromCodex, nil
	case "to_codex", "to-codex", "push":
		return domain.ToCodex, nil
	}
	return domain.FromCodex, &ValidationError{
		Field:   "direction",
		Message: "must be from_codex or to_codex",
	}
}

// ParseStrategy maps a CLI/tool argument to a conflict strategy
func ParseStrategy(s string) (ConflictStrategy, error) {
	switch domain.ConflictStrategy(s) {
	case domain.StrategyReport, domain.StrategyLocal, domain.StrategyRemote,
		domain.StrategyNewest, domain.StrategySkip:
		return domain.ConflictStrategy(s), nil
	}
	return domain.StrategyReport, &ValidationError{
		Field:   "strategy",
		Message: "must be one of local, remote, newest, skip",
	}
}
