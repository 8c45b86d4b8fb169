package tabulate

import "sort"

// Apportion distributes 100.00% across counts by the largest-remainder
// method at two-decimal granularity, returning hundredths of a percent
// per option. All arithmetic is integral, so a given distribution always
// yields the same allocation and the returned values sum to exactly
// 10000 whenever total > 0.
//
// Each share is floored to a whole number of hundredths first; flooring
// loses less than one hundredth per option, so the remaining deficit is
// strictly less than len(counts) hundredths. The deficit is handed out
// one hundredth at a time to the options that lost the largest fraction,
// ties going to the lower original index.
func Apportion(counts []uint64, total uint64) []uint64 {
	shares := make([]uint64, len(counts))
	if total == 0 {
		return shares
	}

	type remainder struct {
		idx  int
		frac uint64
	}
	remainders := make([]remainder, len(counts))

	var allocated uint64
	for i, c := range counts {
		scaled := c * 10000
		shares[i] = scaled / total
		remainders[i] = remainder{idx: i, frac: scaled % total}
		allocated += shares[i]
	}

	deficit := 10000 - allocated
	sort.Slice(remainders, func(a, b int) bool {
		if remainders[a].frac != remainders[b].frac {
			return remainders[a].frac > remainders[b].frac
		}
		return remainders[a].idx < remainders[b].idx
	})

	for i := uint64(0); i < deficit; i++ {
		shares[remainders[i].idx]++
	}
	return shares
}
