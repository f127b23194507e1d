package synthetic

import (
	"errors"
	"math/rand"
	"time"

	"github.com/peter-kozarec/btlite/pkg/common"
	"github.com/peter-kozarec/btlite/pkg/utility/fixed"
)

const secondsPerYear = 365.25 * 24 * 3600

var (
	pointFive = fixed.FromInt64(5, 1)
	ErrEof    = errors.New("EOF")
)

// PriceGenerator produces a geometric brownian motion price path at a fixed
// interval. The same seed yields the same path.
type PriceGenerator struct {
	symbol string
	rng    *rand.Rand

	interval time.Duration
	steps    int64
	t        int64

	deltaLogPre1 fixed.Point
	deltaLogPre2 fixed.Point

	lastTime  time.Time
	lastPrice fixed.Point

	normPriceDigits int
}

func NewPriceGenerator(
	symbol string,
	rng *rand.Rand,
	startTime time.Time,
	startPrice, mu, sigma fixed.Point,
	interval time.Duration,
	steps int64) *PriceGenerator {

	deltaT := fixed.FromFloat64(interval.Seconds() / secondsPerYear)

	return &PriceGenerator{
		symbol:   symbol,
		rng:      rng,
		interval: interval,
		steps:    steps,

		// Pre-calculated values for GBM
		deltaLogPre1: mu.Sub(sigma.Mul(sigma).Mul(pointFive)).Mul(deltaT),
		deltaLogPre2: sigma.Mul(deltaT.Sqrt()),

		lastTime:        startTime,
		lastPrice:       startPrice,
		normPriceDigits: 2,
	}
}

func (g *PriceGenerator) SetPriceDigits(digits int) {
	g.normPriceDigits = digits
}

// GetNext returns the start price first and one evolved price per interval
// afterwards, steps points in total.
func (g *PriceGenerator) GetNext() (common.PricePoint, error) {
	if g.t >= g.steps {
		return common.PricePoint{}, ErrEof
	}

	if g.t > 0 {
		z := g.rng.NormFloat64()
		deltaLog := g.deltaLogPre1.Add(g.deltaLogPre2.Mul(fixed.FromFloat64(z)))
		g.lastPrice = g.lastPrice.Mul(deltaLog.Exp()).Round(g.normPriceDigits)
		g.lastTime = g.lastTime.Add(g.interval)
	}
	g.t++

	return common.PricePoint{
		Symbol:    g.symbol,
		TimeStamp: g.lastTime,
		Price:     g.lastPrice.Rescale(g.normPriceDigits).Float64(),
	}, nil
}
