package harvest

import "github.com/poiesic/gamescout/core"

// Partition deals ids round-robin into n disjoint sublists whose union is
// ids. Sublists may be empty when there are fewer ids than n.
func Partition(ids []core.AppID, n int) [][]core.AppID {
	if n < 1 {
		n = 1
	}
	parts := make([][]core.AppID, n)
	for i, id := range ids {
		parts[i%n] = append(parts[i%n], id)
	}
	return parts
}
