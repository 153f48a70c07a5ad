// Package series loads return series from CSV and JSON files.
package series

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ghantakiran/axion-stock-sub001/internal/core"
	"github.com/ghantakiran/axion-stock-sub001/internal/indicator"
)

// Series is an ordered return sequence with optional per-step volatility.
type Series struct {
	Symbol       string    `json:"symbol"`
	Returns      []float64 `json:"returns"`
	Volatilities []float64 `json:"volatilities,omitempty"`
}

func (s Series) Len() int {
	return len(s.Returns)
}

// Validate checks lengths and rejects non-finite values.
func (s Series) Validate() error {
	if len(s.Volatilities) > 0 && len(s.Volatilities) != len(s.Returns) {
		return core.Errorf(core.ErrInvalidInput,
			"volatility length %d does not match returns length %d", len(s.Volatilities), len(s.Returns))
	}
	for i, r := range s.Returns {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return core.Errorf(core.ErrInvalidInput, "return %d is not finite", i)
		}
	}
	for i, v := range s.Volatilities {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return core.Errorf(core.ErrInvalidInput, "volatility %d is not finite", i)
		}
	}
	return nil
}

// Vols returns Volatilities, or nil when absent.
func (s Series) Vols() []float64 {
	if len(s.Volatilities) == 0 {
		return nil
	}
	return s.Volatilities
}

// CSVOptions names the columns ReadCSV looks for. Matching ignores case.
type CSVOptions struct {
	Symbol           string
	ReturnColumn     string
	CloseColumn      string
	VolatilityColumn string
}

func DefaultCSVOptions() CSVOptions {
	return CSVOptions{
		ReturnColumn:     "return",
		CloseColumn:      "close",
		VolatilityColumn: "volatility",
	}
}

// ReadCSV reads a headered CSV. A return column is used as is; without
// one, a close column is converted to simple returns and the first row's
// volatility is dropped to stay aligned.
func ReadCSV(r io.Reader, opts CSVOptions) (Series, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Series{}, core.Errorf(core.ErrInvalidInput, "empty csv input")
	}
	if err != nil {
		return Series{}, core.WrapError(core.ErrInvalidInput, err)
	}

	col := func(name string) int {
		for i, h := range header {
			if name != "" && strings.EqualFold(strings.TrimSpace(h), name) {
				return i
			}
		}
		return -1
	}
	retIdx, closeIdx, volIdx := col(opts.ReturnColumn), col(opts.CloseColumn), col(opts.VolatilityColumn)
	if retIdx < 0 && closeIdx < 0 {
		return Series{}, core.Errorf(core.ErrInvalidInput,
			"csv needs a %q or %q column", opts.ReturnColumn, opts.CloseColumn)
	}
	valueIdx := retIdx
	if valueIdx < 0 {
		valueIdx = closeIdx
	}

	var values, vols []float64
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Series{}, core.WrapError(core.ErrInvalidInput, err)
		}
		v, err := parseField(rec, valueIdx, line)
		if err != nil {
			return Series{}, err
		}
		values = append(values, v)
		if volIdx >= 0 {
			vol, err := parseField(rec, volIdx, line)
			if err != nil {
				return Series{}, err
			}
			vols = append(vols, vol)
		}
	}

	s := Series{Symbol: opts.Symbol, Returns: values, Volatilities: vols}
	if retIdx < 0 {
		s.Returns = indicator.SimpleReturns(values)
		if len(vols) > 0 {
			s.Volatilities = vols[1:]
		}
	}
	if s.Returns == nil {
		s.Returns = []float64{}
	}
	return s, s.Validate()
}

func parseField(rec []string, idx, line int) (float64, error) {
	if idx >= len(rec) {
		return 0, core.Errorf(core.ErrInvalidInput, "line %d: missing column %d", line, idx+1)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(rec[idx]), 64)
	if err != nil {
		return 0, core.Errorf(core.ErrInvalidInput, "line %d: %v", line, err)
	}
	return v, nil
}

// ReadJSON decodes {"symbol": ..., "returns": [...], "volatilities": [...]}.
func ReadJSON(r io.Reader) (Series, error) {
	var s Series
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return Series{}, core.WrapError(core.ErrInvalidInput, err)
	}
	if s.Returns == nil {
		s.Returns = []float64{}
	}
	return s, s.Validate()
}

// Load reads a .csv or .json file. The symbol defaults to the file name
// without extension.
func Load(path string) (Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return Series{}, core.WrapError(core.ErrInvalidInput, err)
	}
	defer f.Close()

	base := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(base))
	symbol := strings.TrimSuffix(base, filepath.Ext(base))

	var s Series
	switch ext {
	case ".csv":
		opts := DefaultCSVOptions()
		opts.Symbol = symbol
		s, err = ReadCSV(f, opts)
	case ".json":
		s, err = ReadJSON(f)
	default:
		return Series{}, core.Errorf(core.ErrInvalidInput, "unsupported series format %q", ext)
	}
	if err != nil {
		return Series{}, err
	}
	if s.Symbol == "" {
		s.Symbol = symbol
	}
	return s, nil
}
