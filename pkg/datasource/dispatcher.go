package datasource

import (
	"errors"

	"github.com/peter-kozarec/btlite/pkg/common"
	"github.com/peter-kozarec/btlite/pkg/datasource/historical"
	"github.com/peter-kozarec/btlite/pkg/datasource/synthetic"
)

type PriceDataSource interface {
	GetNext() (common.PricePoint, error)
}

func CreatePriceDispatcher(table *common.PriceTable, ds PriceDataSource) func() error {
	return func() error {
		point, err := ds.GetNext()
		if err != nil {
			return err
		}
		table.Add(point)
		return nil
	}
}

// IsEof reports whether err marks the regular end of a data source.
func IsEof(err error) bool {
	return errors.Is(err, historical.ErrEof) || errors.Is(err, synthetic.ErrEof)
}

// Drain runs the dispatcher until the data source is exhausted and returns
// the number of dispatched points.
func Drain(dispatch func() error) (int, error) {
	n := 0
	for {
		if err := dispatch(); err != nil {
			if IsEof(err) {
				return n, nil
			}
			return n, err
		}
		n++
	}
}
