package indexer

import "fmt"

// BlockRange represents an inclusive block range.
type BlockRange struct {
	From uint64
	To   uint64
}

// SplitRange splits [from, to] into consecutive ranges of at most batchSize
// blocks.
func SplitRange(from, to, batchSize uint64) ([]BlockRange, error) {
	if batchSize == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("to block must be >= from block")
	}

	ranges := make([]BlockRange, 0, (to-from)/batchSize+1)
	for start := from; ; {
		end := to
		if to-start >= batchSize {
			end = start + batchSize - 1
		}
		ranges = append(ranges, BlockRange{From: start, To: end})
		if end == to {
			return ranges, nil
		}
		start = end + 1
	}
}

// SafeHead returns the highest block with at least confirmations blocks on
// top of it. ok is false when the chain is not yet that deep.
func SafeHead(latest, confirmations uint64) (uint64, bool) {
	if latest < confirmations {
		return 0, false
	}
	return latest - confirmations, true
}
