package common

import (
	"slices"
	"strings"
	"time"
)

// PricePoint is a single reference price as delivered by a data source.
type PricePoint struct {
	Symbol    string    `json:"symbol"`
	TimeStamp time.Time `json:"ts"`
	Price     float64   `json:"price"`
}

// PriceTable holds one price per symbol and timestamp. Symbols are matched
// case-insensitively and reported upper-cased.
type PriceTable struct {
	prices map[string]*priceSeries
}

// priceSeries keeps the timestamps of a symbol sorted lazily for as-of
// lookups.
type priceSeries struct {
	prices map[int64]float64
	keys   []int64
	sorted bool
}

func NewPriceTable() *PriceTable {
	return &PriceTable{
		prices: make(map[string]*priceSeries),
	}
}

func (p *PriceTable) Set(symbol string, timeStamp time.Time, price float64) {
	key := strings.ToUpper(symbol)
	series, ok := p.prices[key]
	if !ok {
		series = &priceSeries{prices: make(map[int64]float64), sorted: true}
		p.prices[key] = series
	}

	ts := timeStamp.UnixNano()
	if _, ok := series.prices[ts]; !ok {
		if n := len(series.keys); n > 0 && series.keys[n-1] > ts {
			series.sorted = false
		}
		series.keys = append(series.keys, ts)
	}
	series.prices[ts] = price
}

func (p *PriceTable) Add(point PricePoint) {
	p.Set(point.Symbol, point.TimeStamp, point.Price)
}

// Get returns the price quoted exactly at timeStamp.
func (p *PriceTable) Get(symbol string, timeStamp time.Time) (float64, bool) {
	series, ok := p.prices[strings.ToUpper(symbol)]
	if !ok {
		return 0, false
	}
	price, ok := series.prices[timeStamp.UnixNano()]
	return price, ok
}

// Latest returns the last price quoted at or before timeStamp.
func (p *PriceTable) Latest(symbol string, timeStamp time.Time) (float64, bool) {
	series, ok := p.prices[strings.ToUpper(symbol)]
	if !ok {
		return 0, false
	}
	return series.asOf(timeStamp.UnixNano())
}

// Snapshot returns the last known price of every symbol at timeStamp.
// Symbols first quoted after timeStamp are left out.
func (p *PriceTable) Snapshot(timeStamp time.Time) map[string]float64 {
	snapshot := make(map[string]float64, len(p.prices))
	for symbol, series := range p.prices {
		if price, ok := series.asOf(timeStamp.UnixNano()); ok {
			snapshot[symbol] = price
		}
	}
	return snapshot
}

func (p *PriceTable) Symbols() []string {
	symbols := make([]string, 0, len(p.prices))
	for symbol := range p.prices {
		symbols = append(symbols, symbol)
	}
	slices.Sort(symbols)
	return symbols
}

// Timestamps returns the sorted union of all quoted timestamps.
func (p *PriceTable) Timestamps() []time.Time {
	seen := make(map[int64]struct{})
	for _, series := range p.prices {
		for _, ts := range series.keys {
			seen[ts] = struct{}{}
		}
	}

	keys := make([]int64, 0, len(seen))
	for ts := range seen {
		keys = append(keys, ts)
	}
	slices.Sort(keys)

	timeStamps := make([]time.Time, len(keys))
	for idx, ts := range keys {
		timeStamps[idx] = time.Unix(0, ts).UTC()
	}
	return timeStamps
}

func (p *PriceTable) Len() int {
	n := 0
	for _, series := range p.prices {
		n += len(series.keys)
	}
	return n
}

func (s *priceSeries) asOf(ts int64) (float64, bool) {
	if !s.sorted {
		slices.Sort(s.keys)
		s.sorted = true
	}
	idx, found := slices.BinarySearch(s.keys, ts)
	if found {
		return s.prices[ts], true
	}
	if idx == 0 {
		return 0, false
	}
	return s.prices[s.keys[idx-1]], true
}
