package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/term"
	"golang.org/x/time/rate"
)

// ToyProgress reports toy fit progress. On a terminal it redraws a progress
// bar, otherwise it emits throttled structured log lines.
type ToyProgress struct {
	mu          sync.Mutex
	out         io.Writer
	interactive bool
	limiter     *rate.Limiter

	energy    int
	total     int
	done      int
	failed    int
	startTime time.Time
}

// Snapshot is the state of the currently running energy.
type Snapshot struct {
	Energy int
	Total  int
	Done   int
	Failed int
}

// ProgressConfig configures progress output.
type ProgressConfig struct {
	// UpdatesPerSecond bounds bar redraws and log lines. Zero means 4.
	UpdatesPerSecond float64
	// ForceInteractive draws the bar even if out is not a terminal.
	ForceInteractive bool
}

// NewToyProgress writes progress to out.
func NewToyProgress(out io.Writer, config ProgressConfig) *ToyProgress {
	ups := config.UpdatesPerSecond
	if ups <= 0 {
		ups = 4
	}
	return &ToyProgress{
		out:         out,
		interactive: config.ForceInteractive || isTerminal(out),
		limiter:     rate.NewLimiter(rate.Limit(ups), 1),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (p *ToyProgress) Start(energy, nToys int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.energy, p.total, p.done, p.failed = energy, nToys, 0, 0
	p.startTime = time.Now()
	log.Info().Int("energy", energy).Int("toys", nToys).Msg("Starting toy fits")
}

// ToyDone is safe to call from several goroutines.
func (p *ToyProgress) ToyDone(energy, toy int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	if err != nil {
		p.failed++
		log.Warn().Err(err).Int("energy", energy).Int("toy", toy).Msg("Toy fit failed")
	}
	if p.done < p.total && !p.limiter.Allow() {
		return
	}
	p.report()
}

func (p *ToyProgress) Finish(energy int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.interactive {
		fmt.Fprintln(p.out)
	}
	log.Info().
		Int("energy", energy).
		Int("done", p.done).
		Int("failed", p.failed).
		Dur("duration", time.Since(p.startTime).Round(time.Millisecond)).
		Msg("Toy fits completed")
}

func (p *ToyProgress) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot{Energy: p.energy, Total: p.total, Done: p.done, Failed: p.failed}
}

func (p *ToyProgress) report() {
	if !p.interactive {
		log.Info().
			Int("energy", p.energy).
			Int("done", p.done).
			Int("total", p.total).
			Str("eta", p.eta().String()).
			Msg("Toy fit progress")
		return
	}
	fmt.Fprint(p.out, p.line())
}

// line renders the bar: "\r\033[K250 GeV [████░░░░] 4/8 (50.0%) ETA: 3s".
func (p *ToyProgress) line() string {
	var b strings.Builder
	b.WriteString("\r\033[K")
	fmt.Fprintf(&b, "%d GeV", p.energy)
	if p.total > 0 {
		const barWidth = 20
		filled := barWidth * p.done / p.total
		b.WriteString(" [")
		b.WriteString(strings.Repeat("█", filled))
		b.WriteString(strings.Repeat("░", barWidth-filled))
		fmt.Fprintf(&b, "] %d/%d (%.1f%%)", p.done, p.total, 100*float64(p.done)/float64(p.total))
	}
	if p.failed > 0 {
		fmt.Fprintf(&b, " %d failed", p.failed)
	}
	if eta := p.eta(); eta > 0 {
		fmt.Fprintf(&b, " ETA: %v", eta)
	}
	return b.String()
}

func (p *ToyProgress) eta() time.Duration {
	if p.done == 0 || p.done >= p.total {
		return 0
	}
	perToy := time.Since(p.startTime) / time.Duration(p.done)
	eta := perToy * time.Duration(p.total-p.done)
	if eta > time.Hour {
		return eta.Round(time.Minute)
	}
	return eta.Round(time.Second)
}

// StepLogger logs the steps of a command, e.g. reading the config,
// completing the setup and running the toys.
type StepLogger struct {
	name        string
	steps       []string
	currentStep int
	startTime   time.Time
	stepStart   time.Time
	stepTimes   []time.Duration
}

func NewStepLogger(name string, steps []string) *StepLogger {
	now := time.Now()
	return &StepLogger{
		name:        name,
		steps:       steps,
		currentStep: -1,
		startTime:   now,
		stepStart:   now,
		stepTimes:   make([]time.Duration, len(steps)),
	}
}

// StartStep completes the running step and starts stepName.
func (sl *StepLogger) StartStep(stepName string) {
	stepIndex := -1
	for i, step := range sl.steps {
		if step == stepName {
			stepIndex = i
			break
		}
	}
	if stepIndex == -1 {
		log.Warn().Str("step", stepName).Msg("Unknown step")
		return
	}

	sl.CompleteStep()
	sl.currentStep = stepIndex
	sl.stepStart = time.Now()
	log.Info().
		Str("step", stepName).
		Int("step_number", stepIndex+1).
		Int("total_steps", len(sl.steps)).
		Msg("Starting step")
}

// CompleteStep records the duration of the running step.
func (sl *StepLogger) CompleteStep() {
	if sl.currentStep < 0 || sl.stepTimes[sl.currentStep] > 0 {
		return
	}
	d := time.Since(sl.stepStart)
	if d == 0 {
		d = time.Nanosecond
	}
	sl.stepTimes[sl.currentStep] = d
	log.Info().Str("step", sl.steps[sl.currentStep]).Dur("duration", d).Msg("Step completed")
}

// StepTimes returns the recorded step durations in step order.
func (sl *StepLogger) StepTimes() []time.Duration {
	return append([]time.Duration(nil), sl.stepTimes...)
}

func (sl *StepLogger) Finish() {
	sl.CompleteStep()
	total := time.Since(sl.startTime)
	log.Info().Str("command", sl.name).Dur("total_duration", total).Msg("All steps completed")
	for i, step := range sl.steps {
		log.Debug().
			Str("step", step).
			Dur("duration", sl.stepTimes[i]).
			Float64("percentage", float64(sl.stepTimes[i])/float64(total)*100).
			Msgf("  %d. %s", i+1, step)
	}
}

func (sl *StepLogger) Fail(err error) {
	failed := "unknown"
	if sl.currentStep >= 0 {
		failed = sl.steps[sl.currentStep]
	}
	log.Error().
		Err(err).
		Str("command", sl.name).
		Str("failed_step", failed).
		Int("total_steps", len(sl.steps)).
		Msg("Command failed")
}
