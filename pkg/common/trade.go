package common

import (
	"time"

	"go.uber.org/zap"
)

// Trade is an execution produced by a market simulator against an order.
// Order is read-only for everyone but the strategy that owns it.
type Trade struct {
	Contract  Contract  `json:"contract"`
	Order     *Order    `json:"-"`
	TimeStamp time.Time `json:"ts"`
	Qty       float64   `json:"qty"`
	Price     float64   `json:"price"`
}

func NewTrade(order *Order, timeStamp time.Time, qty, price float64) Trade {
	return Trade{
		Contract:  order.Contract,
		Order:     order,
		TimeStamp: timeStamp,
		Qty:       qty,
		Price:     price,
	}
}

// Value is the signed cash amount exchanged, positive for buys.
func (t Trade) Value() float64 {
	return t.Qty * t.Contract.Multiplier * t.Price
}

func (t Trade) Fields() []zap.Field {
	fields := []zap.Field{
		zap.String("symbol", t.Contract.Symbol),
		zap.Time("ts", t.TimeStamp),
		zap.Float64("qty", t.Qty),
		zap.Float64("price", t.Price),
	}
	if t.Order != nil {
		fields = append(fields, zap.Int64("order_id", t.Order.Id))
	}
	return fields
}
