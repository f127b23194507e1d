package historical

import (
	"time"

	"github.com/peter-kozarec/btlite/pkg/common"
)

// BinaryPrice is the on-disk record of one price. The layout has no padding.
type BinaryPrice struct {
	TimeStamp int64
	Price     float64
}

func NewBinaryPrice(point common.PricePoint) BinaryPrice {
	return BinaryPrice{
		TimeStamp: point.TimeStamp.UnixNano(),
		Price:     point.Price,
	}
}

func (b BinaryPrice) ToPricePoint(symbol string) common.PricePoint {
	return common.PricePoint{
		Symbol:    symbol,
		TimeStamp: time.Unix(0, b.TimeStamp).UTC(),
		Price:     b.Price,
	}
}
