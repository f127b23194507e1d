package historical

import (
	"fmt"
	"time"

	"github.com/peter-kozarec/btlite/pkg/common"
)

const invalidIndex = -1

// PriceReader walks the prices of one symbol within [from, to]. Records in
// the source must be sorted by timestamp.
type PriceReader struct {
	source *Source[BinaryPrice]

	symbol string
	from   int64
	to     int64
	idx    int64
}

func NewPriceReader(source *Source[BinaryPrice], symbol string, from, to time.Time) *PriceReader {
	return &PriceReader{
		source: source,
		symbol: symbol,
		from:   from.UnixNano(),
		to:     to.UnixNano(),
		idx:    invalidIndex,
	}
}

func (r *PriceReader) GetNext() (common.PricePoint, error) {
	var entry BinaryPrice

	if r.idx == invalidIndex {
		if err := r.lookupStartIndex(); err != nil {
			return common.PricePoint{}, err
		}
	}

	if err := r.source.Read(r.idx, &entry); err != nil {
		return common.PricePoint{}, err
	}
	r.idx++

	if entry.TimeStamp > r.to {
		return common.PricePoint{}, ErrEof
	}

	return entry.ToPricePoint(r.symbol), nil
}

// lookupStartIndex binary searches the first entry at or after from.
func (r *PriceReader) lookupStartIndex() error {
	entryCount, err := r.source.EntryCount()
	if err != nil {
		return fmt.Errorf("error getting entry count: %w", err)
	}

	var entry BinaryPrice

	low := int64(0)
	high := entryCount - 1

	for low <= high {
		mid := (low + high) / 2

		if err := r.source.Read(mid, &entry); err != nil {
			return fmt.Errorf("error reading entry at index %d: %w", mid, err)
		}

		if entry.TimeStamp < r.from {
			low = mid + 1
		} else {
			high = mid - 1
		}
	}

	r.idx = low
	return nil
}
