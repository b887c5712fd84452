package queue

import "github.com/desertthunder/ytq/internal/models"

// Interleave reorders entries round-robin by contributor.
//
// Contributors keep their first-seen order and each contributor's entries keep their relative order.
// Round r emits the r-th entry of every contributor that still has one, so contributors with more
// entries cluster at the tail once the others run out.
func Interleave(entries []models.Entry) []models.Entry {
	if len(entries) < 2 {
		return append([]models.Entry(nil), entries...)
	}

	var order []string
	groups := make(map[string][]models.Entry)
	for _, e := range entries {
		id := e.AddedBy.UserID
		if _, seen := groups[id]; !seen {
			order = append(order, id)
		}
		groups[id] = append(groups[id], e)
	}

	rounds := 0
	for _, g := range groups {
		rounds = max(rounds, len(g))
	}

	sorted := make([]models.Entry, 0, len(entries))
	for r := range rounds {
		for _, id := range order {
			if g := groups[id]; r < len(g) {
				sorted = append(sorted, g[r])
			}
		}
	}
	return sorted
}
