// Package input reads tabulated predictions and coefficients.
//
// Both formats share one column layout. Every row is one bin:
//
//	distr  pol  [energy]  sig  bkg  x_<coord>...  coef_<name>...
//
// Consecutive bins of one (distr, pol, energy) form a distribution in file
// order. The CSV format carries the energy column, the RK format groups rows
// into "[energy]" sheets and reads the sheet of the requested energy.
package input

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sawpanic/prewutils/internal/data"
)

// Format tags a tabulated input file type.
type Format string

const (
	FormatRK  Format = "RK"
	FormatCSV Format = "CSV"
)

var (
	ErrUnknownFormat = errors.New("unknown input file type")
	ErrMissingColumn = errors.New("missing input column")
	ErrMalformedRow  = errors.New("malformed input row")
	ErrNoSheet       = errors.New("no sheet for energy")
)

const (
	colDistr  = "distr"
	colPol    = "pol"
	colEnergy = "energy"
	colSig    = "sig"
	colBkg    = "bkg"

	coordPrefix = "x_"
	coefPrefix  = "coef_"
)

// Source names a file, its format and, for RK files, the energy sheet.
type Source struct {
	Path   string
	Format Format
	Energy int
}

// Reader reads predictions and coefficients from a source.
type Reader interface {
	Read(src Source) ([]data.PredDistr, []data.CoefDistr, error)
}

// FileReader reads sources from the local file system.
type FileReader struct{}

func (FileReader) Read(src Source) ([]data.PredDistr, []data.CoefDistr, error) {
	f, err := os.Open(src.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening input %s: %w", src.Path, err)
	}
	defer f.Close()

	var preds []data.PredDistr
	var coefs []data.CoefDistr
	switch src.Format {
	case FormatCSV:
		preds, coefs, err = ReadCSV(f)
	case FormatRK:
		preds, coefs, err = ReadRK(f, src.Energy)
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownFormat, src.Format)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", src.Path, err)
	}
	return preds, coefs, nil
}

// ParseFormat resolves a format tag.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatRK, FormatCSV:
		return Format(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// layout maps the header of a table to column positions.
type layout struct {
	distr, pol, energy, sig, bkg int
	coords                       []int
	coefNames                    []string
	coefCols                     []int
	width                        int
}

func newLayout(header []string, needEnergy bool) (layout, error) {
	l := layout{distr: -1, pol: -1, energy: -1, sig: -1, bkg: -1, width: len(header)}
	for i, h := range header {
		h = strings.TrimSpace(h)
		switch {
		case h == colDistr:
			l.distr = i
		case h == colPol:
			l.pol = i
		case h == colEnergy:
			l.energy = i
		case h == colSig:
			l.sig = i
		case h == colBkg:
			l.bkg = i
		case strings.HasPrefix(h, coordPrefix):
			l.coords = append(l.coords, i)
		case strings.HasPrefix(h, coefPrefix):
			l.coefNames = append(l.coefNames, strings.TrimPrefix(h, coefPrefix))
			l.coefCols = append(l.coefCols, i)
		}
	}
	required := map[string]int{colDistr: l.distr, colPol: l.pol, colSig: l.sig}
	if needEnergy {
		required[colEnergy] = l.energy
	}
	for name, idx := range required {
		if idx < 0 {
			return layout{}, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}
	return l, nil
}

// builder accumulates bins into distributions in first-seen order.
type builder struct {
	l      layout
	preds  []data.PredDistr
	coefs  [][]float64
	lookup map[data.DistrInfo]int
}

func newBuilder(l layout) *builder {
	return &builder{l: l, lookup: make(map[data.DistrInfo]int)}
}

func (b *builder) add(line int, row []string, energy int) error {
	if len(row) != b.l.width {
		return fmt.Errorf("%w: line %d has %d fields, header %d", ErrMalformedRow, line, len(row), b.l.width)
	}
	num := func(col int) (float64, error) {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[col]), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: line %d column %d: %v", ErrMalformedRow, line, col+1, err)
		}
		return v, nil
	}

	if b.l.energy >= 0 {
		e, err := strconv.Atoi(strings.TrimSpace(row[b.l.energy]))
		if err != nil {
			return fmt.Errorf("%w: line %d energy: %v", ErrMalformedRow, line, err)
		}
		energy = e
	}
	info := data.DistrInfo{
		DistrName: strings.TrimSpace(row[b.l.distr]),
		PolConfig: strings.TrimSpace(row[b.l.pol]),
		Energy:    energy,
	}

	sig, err := num(b.l.sig)
	if err != nil {
		return err
	}
	var bkg float64
	if b.l.bkg >= 0 {
		if bkg, err = num(b.l.bkg); err != nil {
			return err
		}
	}
	center := make([]float64, len(b.l.coords))
	for i, col := range b.l.coords {
		if center[i], err = num(col); err != nil {
			return err
		}
	}

	idx, ok := b.lookup[info]
	if !ok {
		idx = len(b.preds)
		b.lookup[info] = idx
		b.preds = append(b.preds, data.PredDistr{Info: info})
		b.coefs = append(b.coefs, nil)
	}
	p := &b.preds[idx]
	p.SigDistr = append(p.SigDistr, sig)
	p.BkgDistr = append(p.BkgDistr, bkg)
	p.BinCenters = append(p.BinCenters, center)

	for _, col := range b.l.coefCols {
		v, err := num(col)
		if err != nil {
			return err
		}
		b.coefs[idx] = append(b.coefs[idx], v)
	}
	return nil
}

// result splits the row-major coefficient values into one bin-by-bin
// coefficient per name and distribution.
func (b *builder) result() ([]data.PredDistr, []data.CoefDistr) {
	n := len(b.l.coefNames)
	var coefs []data.CoefDistr
	for idx, p := range b.preds {
		for c, name := range b.l.coefNames {
			vals := make([]float64, 0, p.NBins())
			for bin := 0; bin < p.NBins(); bin++ {
				vals = append(vals, b.coefs[idx][bin*n+c])
			}
			coefs = append(coefs, data.CoefDistr{CoefName: name, Info: p.Info, Coefs: vals})
		}
	}
	return b.preds, coefs
}
