package log

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToyProgressCounts(t *testing.T) {
	var buf bytes.Buffer
	p := NewToyProgress(&buf, ProgressConfig{})
	p.Start(250, 20)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var err error
			if i%5 == 0 {
				err = errors.New("no convergence")
			}
			p.ToyDone(250, i, err)
		}()
	}
	wg.Wait()
	p.Finish(250)

	assert.Equal(t, Snapshot{Energy: 250, Total: 20, Done: 20, Failed: 4}, p.Snapshot())
	// a buffer is not a terminal
	assert.Empty(t, buf.String())
}

func TestToyProgressBar(t *testing.T) {
	var buf bytes.Buffer
	p := NewToyProgress(&buf, ProgressConfig{ForceInteractive: true, UpdatesPerSecond: 1000})
	p.Start(500, 4)
	p.ToyDone(500, 0, nil)
	p.ToyDone(500, 1, errors.New("boom"))
	p.ToyDone(500, 2, nil)
	p.ToyDone(500, 3, nil)
	p.Finish(500)

	out := buf.String()
	assert.Contains(t, out, "500 GeV [")
	assert.Contains(t, out, "] 4/4 (100.0%) 1 failed")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestToyProgressThrottles(t *testing.T) {
	var buf bytes.Buffer
	p := NewToyProgress(&buf, ProgressConfig{ForceInteractive: true, UpdatesPerSecond: 0.001})
	p.Start(250, 100)
	for i := range 100 {
		p.ToyDone(250, i, nil)
	}
	// first update and the final one
	assert.Equal(t, 2, strings.Count(buf.String(), "250 GeV ["))
}

func TestStepLogger(t *testing.T) {
	sl := NewStepLogger("toys", []string{"config", "setup", "fit"})
	sl.StartStep("config")
	sl.StartStep("bogus")
	sl.StartStep("setup")
	sl.Finish()

	times := sl.StepTimes()
	assert.Positive(t, times[0])
	assert.Positive(t, times[1])
	assert.Zero(t, times[2])
	sl.Fail(errors.New("late failure"))
}
