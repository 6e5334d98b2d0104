package input

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sawpanic/prewutils/internal/data"
)

// ReadRK reads the whitespace separated sheet of one energy. A sheet starts
// with a "[energy]" line followed by its header line; "#" starts a comment.
func ReadRK(r io.Reader, energy int) ([]data.PredDistr, []data.CoefDistr, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var (
		b       *builder
		inSheet bool
		found   bool
		line    int
	)
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		if strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]") {
			e, err := strconv.Atoi(strings.TrimSpace(text[1 : len(text)-1]))
			if err != nil {
				return nil, nil, fmt.Errorf("%w: line %d sheet %q", ErrMalformedRow, line, text)
			}
			if found && inSheet {
				break
			}
			inSheet = e == energy
			found = found || inSheet
			b = nil
			continue
		}
		if !inSheet {
			continue
		}

		fields := strings.Fields(text)
		if b == nil {
			l, err := newLayout(fields, false)
			if err != nil {
				return nil, nil, fmt.Errorf("sheet %d: %w", energy, err)
			}
			b = newBuilder(l)
			continue
		}
		if err := b.add(line, fields, energy); err != nil {
			return nil, nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("scanning RK table: %w", err)
	}
	if !found {
		return nil, nil, fmt.Errorf("%w %d", ErrNoSheet, energy)
	}
	if b == nil {
		return nil, nil, nil
	}
	preds, coefs := b.result()
	return preds, coefs, nil
}
