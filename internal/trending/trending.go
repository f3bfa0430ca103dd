// Package trending ranks a bounded window of recent posts by engagement.
package trending

import (
	"sort"

	"pulse/internal/models"
)

// Score is the engagement of an annotated post.
func Score(p *models.Post) int {
	return p.LikeCount + p.CommentCount
}

// Rank orders annotated posts by Score descending, then by CreatedAt descending, and
// returns at most k of them. Posts equal on both keep their input order. The input
// slice is not reordered. k <= 0 returns an empty result.
func Rank(posts []*models.Post, k int) []*models.Post {
	if k <= 0 {
		return []*models.Post{}
	}

	ranked := make([]*models.Post, 0, len(posts))
	for _, p := range posts {
		if p != nil {
			ranked = append(ranked, p)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := Score(ranked[i]), Score(ranked[j])
		if si != sj {
			return si > sj
		}
		return ranked[i].CreatedAt.After(ranked[j].CreatedAt)
	})

	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}
