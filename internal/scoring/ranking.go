package scoring

import "sort"

// Rank filters, orders and paginates a scored population. Order is
// overall score descending with ties broken by artist name ascending,
// giving a stable total order even when float scores collide. Ranks
// are 1-based and dense, assigned after filtering so they reflect
// position within the filtered set, then the page window applies last.
func Rank(scores []ArtistScore, minScore float64, page, limit int) []ArtistScore {
	filtered := make([]ArtistScore, 0, len(scores))
	for _, s := range scores {
		if s.OverallScore >= minScore {
			filtered = append(filtered, s)
		}
	}

	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].OverallScore != filtered[j].OverallScore {
			return filtered[i].OverallScore > filtered[j].OverallScore
		}
		return filtered[i].ArtistName < filtered[j].ArtistName
	})

	for i := range filtered {
		filtered[i].Rank = i + 1
	}

	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		return filtered
	}
	start := (page - 1) * limit
	if start >= len(filtered) {
		return []ArtistScore{}
	}
	end := start + limit
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[start:end]
}
