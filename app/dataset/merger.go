package dataset

import "log/slog"

type Merger struct{}

func NewMerger() *Merger {
	return &Merger{}
}

// Run appends incoming rows to existing, keeping only rows whose full
// column combination is unseen. Idempotent: merging the same incoming set
// twice yields the same result as merging it once, which makes the
// persistence step safe to re-run after a partial failure.
func (m *Merger) Run(existing, incoming []Row) []Row {
	seen := make(map[string]bool, len(existing))
	merged := make([]Row, 0, len(existing)+len(incoming))

	for _, row := range existing {
		hash := row.Hash()
		if seen[hash] {
			continue
		}
		seen[hash] = true
		merged = append(merged, row)
	}

	duplicates := 0
	for _, row := range incoming {
		hash := row.Hash()
		if seen[hash] {
			duplicates++
			continue
		}
		seen[hash] = true
		merged = append(merged, row)
	}

	slog.Debug("Dataset merge completed",
		"existing", len(existing),
		"incoming", len(incoming),
		"duplicates", duplicates,
		"total", len(merged))

	return merged
}
