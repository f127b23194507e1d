package common

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	ErrInvalidFill         = errors.New("invalid fill")
	ErrOrderTerminal       = errors.New("order is in a terminal state")
	ErrInvalidOrder        = errors.New("invalid order")
	ErrUnknownModification = errors.New("unknown modification kind")
	ErrUnknownTimeInForce  = errors.New("unknown time in force")
)

// fillTolerance is the relative remainder below which an order counts as filled.
const fillTolerance = 1e-9

type OrderId = int64
type OrderStatus int
type TimeInForce int
type ModificationKind int

const (
	OrderStatusNew OrderStatus = iota
	OrderStatusOpen
	OrderStatusPartiallyFilled
	OrderStatusFilled
	OrderStatusCancelled
)

const (
	TimeInForceFillOrKill TimeInForce = iota
	TimeInForceGoodTillCancel
	TimeInForceDay
)

const (
	ModificationOpen ModificationKind = iota
	ModificationCancel
)

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusNew:
		return "new"
	case OrderStatusOpen:
		return "open"
	case OrderStatusPartiallyFilled:
		return "partially-filled"
	case OrderStatusFilled:
		return "filled"
	case OrderStatusCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

func (tif TimeInForce) String() string {
	switch tif {
	case TimeInForceFillOrKill:
		return "fok"
	case TimeInForceGoodTillCancel:
		return "gtc"
	case TimeInForceDay:
		return "day"
	default:
		return fmt.Sprintf("tif(%d)", int(tif))
	}
}

// ParseTimeInForce accepts the String form of a time in force in any case.
func ParseTimeInForce(value string) (TimeInForce, error) {
	switch strings.ToLower(value) {
	case "fok":
		return TimeInForceFillOrKill, nil
	case "gtc":
		return TimeInForceGoodTillCancel, nil
	case "day":
		return TimeInForceDay, nil
	default:
		return 0, fmt.Errorf("%q: %w", value, ErrUnknownTimeInForce)
	}
}

func (k ModificationKind) String() string {
	switch k {
	case ModificationOpen:
		return "open"
	case ModificationCancel:
		return "cancel"
	default:
		return fmt.Sprintf("modification(%d)", int(k))
	}
}

// ModificationRequest is a state change which takes effect once it has aged
// by the engine's trade lag.
type ModificationRequest struct {
	Kind        ModificationKind `json:"kind"`
	RequestTime time.Time        `json:"request_time"`
}

// Order is a single resting order. Qty holds the signed remaining quantity,
// positive for buys and negative for sells.
type Order struct {
	Id          OrderId           `json:"id"`
	Contract    Contract          `json:"contract"`
	TimeStamp   time.Time         `json:"ts"`
	Qty         float64           `json:"qty"`
	OriginalQty float64           `json:"original_qty"`
	ReasonCode  string            `json:"reason_code,omitempty"`
	TimeInForce TimeInForce       `json:"time_in_force"`
	Properties  map[string]string `json:"properties,omitempty"`
	Status      OrderStatus       `json:"status"`

	Pending *ModificationRequest `json:"pending,omitempty"`
}

// NewOrder creates an order in NEW status with a pending OPEN request stamped
// at the creation time.
func NewOrder(id OrderId, contract Contract, timeStamp time.Time, qty float64, reasonCode string, tif TimeInForce) *Order {
	return &Order{
		Id:          id,
		Contract:    contract,
		TimeStamp:   timeStamp,
		Qty:         qty,
		OriginalQty: qty,
		ReasonCode:  reasonCode,
		TimeInForce: tif,
		Status:      OrderStatusNew,
		Pending: &ModificationRequest{
			Kind:        ModificationOpen,
			RequestTime: timeStamp,
		},
	}
}

// Validate checks an order freshly returned by a rule.
func (o *Order) Validate() error {
	if o.Status != OrderStatusNew {
		return fmt.Errorf("order %d has status %s, expected %s: %w", o.Id, o.Status, OrderStatusNew, ErrInvalidOrder)
	}
	if o.Qty == 0 || math.IsNaN(o.Qty) || math.IsInf(o.Qty, 0) {
		return fmt.Errorf("order %d has quantity %v: %w", o.Id, o.Qty, ErrInvalidOrder)
	}
	if o.Contract.Symbol == "" {
		return fmt.Errorf("order %d has no contract: %w", o.Id, ErrInvalidOrder)
	}
	return nil
}

func (o *Order) IsBuy() bool { return o.OriginalQty > 0 }

func (o *Order) IsTerminal() bool {
	return o.Status == OrderStatusFilled || o.Status == OrderStatusCancelled
}

// IsReady reports whether the order may be offered to a market simulator.
func (o *Order) IsReady() bool {
	return o.Status == OrderStatusOpen || o.Status == OrderStatusPartiallyFilled
}

// Clone returns a copy that shares no mutable state with o.
func (o *Order) Clone() Order {
	clone := *o
	if o.Pending != nil {
		pending := *o.Pending
		clone.Pending = &pending
	}
	if o.Properties != nil {
		clone.Properties = make(map[string]string, len(o.Properties))
		for key, value := range o.Properties {
			clone.Properties[key] = value
		}
	}
	return clone
}

func (o *Order) FilledQty() float64 {
	return o.OriginalQty - o.Qty
}

// RequestModification replaces any pending request. The status is not changed.
func (o *Order) RequestModification(request ModificationRequest) error {
	if o.IsTerminal() {
		return fmt.Errorf("unable to modify order %d in status %s: %w", o.Id, o.Status, ErrOrderTerminal)
	}
	o.Pending = &request
	return nil
}

// ApplyDueModification applies the pending request if it has aged by at least
// lag. It reports whether a request was applied.
func (o *Order) ApplyDueModification(now time.Time, lag time.Duration) (bool, error) {
	if o.Pending == nil || o.IsTerminal() {
		return false, nil
	}
	if now.Sub(o.Pending.RequestTime) < lag {
		return false, nil
	}

	switch o.Pending.Kind {
	case ModificationOpen:
		o.Status = OrderStatusOpen
	case ModificationCancel:
		o.Status = OrderStatusCancelled
	default:
		return false, fmt.Errorf("order %d: %w: %d", o.Id, ErrUnknownModification, int(o.Pending.Kind))
	}
	o.Pending = nil
	return true, nil
}

// Expired reports whether a ready order has outlived its time in force at now.
func (o *Order) Expired(now time.Time, lag time.Duration) (bool, error) {
	if !o.IsReady() {
		return false, nil
	}

	switch o.TimeInForce {
	case TimeInForceFillOrKill:
		return now.Sub(o.TimeStamp) > lag, nil
	case TimeInForceDay:
		return dateOf(now, o.TimeStamp.Location()).After(dateOf(o.TimeStamp, o.TimeStamp.Location())), nil
	case TimeInForceGoodTillCancel:
		return false, nil
	default:
		return false, fmt.Errorf("order %d: %w: %d", o.Id, ErrUnknownTimeInForce, int(o.TimeInForce))
	}
}

// Cancel moves a live order into CANCELLED. Terminal orders are left untouched.
func (o *Order) Cancel() {
	if o.IsTerminal() {
		return
	}
	o.Status = OrderStatusCancelled
	o.Pending = nil
}

// CheckFill validates a fill without applying it.
func (o *Order) CheckFill(qty float64) error {
	if !o.IsReady() {
		return fmt.Errorf("unable to fill order %d in status %s: %w", o.Id, o.Status, ErrInvalidFill)
	}
	if qty == 0 || math.IsNaN(qty) || math.IsInf(qty, 0) {
		return fmt.Errorf("order %d: fill quantity %v: %w", o.Id, qty, ErrInvalidFill)
	}
	if o.Qty*qty < 0 {
		return fmt.Errorf("order %d: fill quantity %v has opposite sign of remaining quantity %v: %w", o.Id, qty, o.Qty, ErrInvalidFill)
	}
	if math.Abs(qty) > math.Abs(o.Qty)*(1+fillTolerance) {
		return fmt.Errorf("order %d: fill quantity %v exceeds remaining quantity %v: %w", o.Id, qty, o.Qty, ErrInvalidFill)
	}
	return nil
}

// Fill decrements the remaining quantity. A failed fill leaves the order untouched.
func (o *Order) Fill(qty float64) error {
	if err := o.CheckFill(qty); err != nil {
		return err
	}

	o.Qty -= qty
	if math.Abs(o.Qty) <= math.Abs(o.OriginalQty)*fillTolerance {
		o.Qty = 0
		o.Status = OrderStatusFilled
	} else {
		o.Status = OrderStatusPartiallyFilled
	}
	o.Pending = nil
	return nil
}

func (o *Order) Fields() []zap.Field {
	return []zap.Field{
		zap.Int64("order_id", o.Id),
		zap.String("symbol", o.Contract.Symbol),
		zap.Time("order_ts", o.TimeStamp),
		zap.Float64("qty", o.Qty),
		zap.Float64("original_qty", o.OriginalQty),
		zap.Float64("filled_qty", o.FilledQty()),
		zap.String("reason_code", o.ReasonCode),
		zap.Stringer("time_in_force", o.TimeInForce),
		zap.Stringer("status", o.Status),
	}
}

func dateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
