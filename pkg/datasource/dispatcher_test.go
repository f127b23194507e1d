package datasource

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peter-kozarec/btlite/pkg/common"
	"github.com/peter-kozarec/btlite/pkg/datasource/synthetic"
	"github.com/peter-kozarec/btlite/pkg/utility/fixed"
)

type failingSource struct{ err error }

func (f failingSource) GetNext() (common.PricePoint, error) { return common.PricePoint{}, f.err }

func TestDatasource_Drain(t *testing.T) {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	gen := synthetic.NewPriceGenerator("spy", rand.New(rand.NewSource(1)), start,
		fixed.FromInt64(100, 0), fixed.FromFloat64(0.05), fixed.FromFloat64(0.2), time.Minute, 25)

	table := common.NewPriceTable()
	n, err := Drain(CreatePriceDispatcher(table, gen))
	require.NoError(t, err)

	assert.Equal(t, 25, n)
	assert.Equal(t, 25, table.Len())
	price, ok := table.Get("SPY", start)
	assert.True(t, ok)
	assert.Equal(t, 100.0, price)
}

func TestDatasource_DrainError(t *testing.T) {
	errBoom := errors.New("boom")
	_, err := Drain(CreatePriceDispatcher(common.NewPriceTable(), failingSource{err: errBoom}))
	assert.ErrorIs(t, err, errBoom)
}
