package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/peter-kozarec/btlite/pkg/common"
	"github.com/peter-kozarec/btlite/pkg/datasource/historical"
	"github.com/peter-kozarec/btlite/pkg/utility"
)

const defaultTimeLayout = "2006-01-02 15:04:05.999999999Z07:00"

var ErrInvalidRecord = errors.New("invalid price record")

var dumpCommand = &cli.Command{
	Name:      "dump",
	Usage:     "converts CSV prices (timestamp, price) into a binary price file",
	ArgsUsage: "<csv files...>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "output",
			Aliases:  []string{"o"},
			Usage:    "binary price file to create",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "layout",
			Value: defaultTimeLayout,
			Usage: "time layout of the timestamp column",
		},
		&cli.BoolFlag{
			Name:  "header",
			Value: true,
			Usage: "skip the first line of every CSV file",
		},
	},
	Action: dumpAction,
}

func dumpAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("at least one CSV file is required", 1)
	}

	logger := utility.NewDevLogger()
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	var entries []historical.BinaryPrice
	for _, path := range c.Args().Slice() {
		points, err := readCsvPrices(path, c.String("layout"), c.Bool("header"))
		if err != nil {
			return err
		}
		for _, point := range points {
			entries = append(entries, historical.NewBinaryPrice(point))
		}
		logger.Info("csv read", zap.String("file", path), zap.Int("prices", len(points)))
	}

	if err := dumpPrices(c.String("output"), entries); err != nil {
		return err
	}
	logger.Info("dump finished", zap.String("output", c.String("output")), zap.Int("prices", len(entries)))
	return nil
}

// dumpPrices writes entries sorted by timestamp, which the binary price
// reader relies on.
func dumpPrices(output string, entries []historical.BinaryPrice) error {
	slices.SortStableFunc(entries, func(a, b historical.BinaryPrice) int {
		switch {
		case a.TimeStamp < b.TimeStamp:
			return -1
		case a.TimeStamp > b.TimeStamp:
			return 1
		}
		return 0
	})
	return historical.WriteEntries(output, entries)
}

func readCsvPrices(path, layout string, header bool) ([]common.PricePoint, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func(file *os.File) {
		_ = file.Close()
	}(file)

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	if header {
		if _, err := reader.Read(); err != nil {
			return nil, fmt.Errorf("unable to read header of %s: %w", path, err)
		}
	}

	var points []common.PricePoint
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("unable to read %s: %w", path, err)
		}
		if len(record) < 2 {
			return nil, fmt.Errorf("%s record %d has %d fields: %w", path, line, len(record), ErrInvalidRecord)
		}

		ts, err := time.Parse(layout, strings.TrimSpace(record[0]))
		if err != nil {
			return nil, fmt.Errorf("%s record %d: %v: %w", path, line, err, ErrInvalidRecord)
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("%s record %d: %v: %w", path, line, err, ErrInvalidRecord)
		}

		points = append(points, common.PricePoint{TimeStamp: ts, Price: price})
	}
	return points, nil
}
