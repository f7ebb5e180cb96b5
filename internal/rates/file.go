package rates

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/coinconvert/internal/table"
)

type observation struct {
	at    time.Time
	price decimal.Decimal
}

// FileSource serves prices from a CSV file with the header asset,time,usd.
// It is read once and immutable afterwards, so it is safe for concurrent use.
type FileSource struct {
	obs map[string][]observation
}

var _ Lookup = (*FileSource)(nil)

// LoadFile reads a rate file from disk.
func LoadFile(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rate file %q: %w", path, err)
	}
	defer f.Close()

	src, err := ReadSource(f)
	if err != nil {
		return nil, fmt.Errorf("read rate file %q: %w", path, err)
	}
	slog.Info("historical rates loaded", "path", path, "assets", len(src.obs))
	return src, nil
}

// ReadSource parses rate observations from r.
func ReadSource(r io.Reader) (*FileSource, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty rate file")
		}
		return nil, err
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, want := range []string{"asset", "time", "usd"} {
		if _, ok := cols[want]; !ok {
			return nil, fmt.Errorf("rate file missing column %q", want)
		}
	}

	src := &FileSource{obs: make(map[string][]observation)}
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		asset := strings.ToUpper(strings.TrimSpace(rec[cols["asset"]]))
		at, err := table.ParseTime(rec[cols["time"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: time %q: %w", line, rec[cols["time"]], err)
		}
		price, err := table.ParseDecimal(rec[cols["usd"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: usd %q: %w", line, rec[cols["usd"]], err)
		}
		src.obs[asset] = append(src.obs[asset], observation{at: at, price: price})
	}

	for _, list := range src.obs {
		slices.SortStableFunc(list, func(a, b observation) int { return a.at.Compare(b.at) })
	}
	return src, nil
}

// USDPrice returns the first observation at or after at on the same UTC day.
func (s *FileSource) USDPrice(ctx context.Context, asset string, at time.Time) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	asset = strings.ToUpper(asset)
	if asset == BaseCurrency {
		return decimal.NewFromInt(1), nil
	}

	at = at.UTC()
	y, m, d := at.Date()
	list := s.obs[asset]
	i, _ := slices.BinarySearchFunc(list, at, func(o observation, t time.Time) int { return o.at.Compare(t) })
	if i < len(list) {
		oy, om, od := list[i].at.Date()
		if oy == y && om == m && od == d {
			return list[i].price, nil
		}
	}
	return decimal.Zero, fmt.Errorf("%w for %s on %s", ErrNoData, asset, at.Format(time.DateOnly))
}
