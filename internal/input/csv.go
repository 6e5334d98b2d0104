package input

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/sawpanic/prewutils/internal/data"
)

// ReadCSV reads a comma separated table with an energy column.
func ReadCSV(r io.Reader) ([]data.PredDistr, []data.CoefDistr, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("csv header: %w", err)
	}
	l, err := newLayout(header, true)
	if err != nil {
		return nil, nil, err
	}

	b := newBuilder(l)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrMalformedRow, err)
		}
		line, _ := cr.FieldPos(0)
		if err := b.add(line, row, 0); err != nil {
			return nil, nil, err
		}
	}
	preds, coefs := b.result()
	return preds, coefs, nil
}
