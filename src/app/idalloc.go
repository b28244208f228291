package app

import (
	"math"

	"feedserv/src/repository"
)

// NextID returns the smallest free id above the largest existing one. When
// the largest id is math.MaxInt64 it returns the smallest free id instead.
// Cells that do not parse to a positive integer are ignored.
func NextID(cells []repository.Cell) int64 {
	ids := make([]int64, 0, len(cells))
	for _, c := range cells {
		if id, ok := c.Int(); ok {
			ids = append(ids, id)
		}
	}
	return NextIDFrom(ids)
}

func NextIDFrom(ids []int64) int64 {
	taken := make(map[int64]struct{}, len(ids))
	var max int64
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		taken[id] = struct{}{}
		if id > max {
			max = id
		}
	}

	if max < math.MaxInt64 {
		return max + 1
	}
	candidate := int64(1)
	for {
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
		candidate++
	}
}
