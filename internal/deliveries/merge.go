package deliveries

import "github.com/angelmondragon/artmarket-backend/pkg/enums"

// MergeByDate merges two sequences that are each already ordered newest first
// (NULL dates last) into one sequence with the same ordering. Neither input is
// modified.
func MergeByDate(left, right []DeliveryRequest) []DeliveryRequest {
	out := make([]DeliveryRequest, 0, len(left)+len(right))
	i, j := 0, 0
	for i < len(left) && j < len(right) {
		if !sortsBefore(right[j], left[i]) {
			out = append(out, left[i])
			i++
			continue
		}
		out = append(out, right[j])
		j++
	}
	out = append(out, left[i:]...)
	return append(out, right[j:]...)
}

// sortsBefore reports whether a strictly precedes b in listing order.
func sortsBefore(a, b DeliveryRequest) bool {
	switch {
	case a.OrderDate == nil && b.OrderDate != nil:
		return false
	case a.OrderDate != nil && b.OrderDate == nil:
		return true
	case a.OrderDate != nil && b.OrderDate != nil && !a.OrderDate.Equal(*b.OrderDate):
		return a.OrderDate.After(*b.OrderDate)
	}
	if ra, rb := sourceRank(a.SourceType), sourceRank(b.SourceType); ra != rb {
		return ra < rb
	}
	return a.ID > b.ID
}

func sourceRank(s enums.SourceType) int {
	if s == enums.SourceArtworkOrder {
		return 0
	}
	return 1
}
