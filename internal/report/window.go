package report

import "fleet-asset-report/internal/models"

// Stamped is any record carrying an epoch-second timestamp
type Stamped interface {
	Stamp() int64
}

// Filter keeps the records whose own timestamp lies inside w, in their
// original order. Row position plays no part.
func Filter[T Stamped](records []T, w models.Window) []T {
	if w.Empty() {
		return nil
	}

	var out []T
	for _, r := range records {
		if w.Contains(r.Stamp()) {
			out = append(out, r)
		}
	}
	return out
}
