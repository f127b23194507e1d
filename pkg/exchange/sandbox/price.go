package sandbox

import (
	"time"
)

// PriceProvider returns the reference price of a symbol at exactly t.
// common.PriceTable satisfies it.
type PriceProvider interface {
	Get(symbol string, t time.Time) (float64, bool)
}
