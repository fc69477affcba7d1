// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package catalog

import (
	"cmp"

	"github.com/ManuGH/reelbox/internal/domain"
)

// group is the set of videos sharing a series key, in catalog order.
type group struct {
	key    string
	videos []domain.Video
}

// groupBySeries partitions videos by SeriesKey, keeping first-seen order.
func groupBySeries(videos []domain.Video) []group {
	idx := make(map[string]int, len(videos))
	var groups []group
	for _, v := range videos {
		k := v.SeriesKey()
		i, ok := idx[k]
		if !ok {
			i = len(groups)
			idx[k] = i
			groups = append(groups, group{key: k})
		}
		groups[i].videos = append(groups[i].videos, v)
	}
	return groups
}

// representative picks one video of a non-empty group.
type representative func([]domain.Video) domain.Video

// collapse reduces each series to its representative. Movies form
// singleton groups and pass through unchanged.
func collapse(videos []domain.Video, pick representative) []domain.Video {
	groups := groupBySeries(videos)
	out := make([]domain.Video, 0, len(groups))
	for _, g := range groups {
		out = append(out, pick(g.videos))
	}
	return out
}

// earliest orders by (year, episode, title).
func earliest(vs []domain.Video) domain.Video {
	best := vs[0]
	for _, v := range vs[1:] {
		if c := cmp.Or(
			cmp.Compare(v.Year, best.Year),
			cmp.Compare(v.Episode, best.Episode),
			compareTitle(v, best),
		); c < 0 {
			best = v
		}
	}
	return best
}

// mostLiked prefers the highest like count, then the earliest episode.
func mostLiked(vs []domain.Video) domain.Video {
	best := vs[0]
	for _, v := range vs[1:] {
		if v.Likes > best.Likes || (v.Likes == best.Likes && v.Episode < best.Episode) {
			best = v
		}
	}
	return best
}
