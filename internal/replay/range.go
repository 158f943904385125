package replay

import "fmt"

// BlockRange is one inclusive chunk of a log scan.
type BlockRange struct {
	From uint64
	To   uint64
}

// SplitRange cuts [from, to] into consecutive ranges no wider than
// batchSize, keeping RPC log queries within provider limits.
func SplitRange(from, to, batchSize uint64) ([]BlockRange, error) {
	if batchSize == 0 {
		return nil, fmt.Errorf("batch size must be positive")
	}
	if to < from {
		return nil, fmt.Errorf("block range %d-%d is inverted", from, to)
	}

	ranges := make([]BlockRange, 0, (to-from)/batchSize+1)
	start := from
	for {
		end := to
		if width := to - start; width >= batchSize {
			end = start + batchSize - 1
		}
		ranges = append(ranges, BlockRange{From: start, To: end})
		if end == to {
			return ranges, nil
		}
		start = end + 1
	}
}
