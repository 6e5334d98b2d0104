// Package setups assembles fit setups: which tabulated distributions take
// part in a fit, which parameters exist and how every prediction is built
// from them.
package setups

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/prewutils/internal/data"
	"github.com/sawpanic/prewutils/internal/datahelp"
	"github.com/sawpanic/prewutils/internal/fit"
	"github.com/sawpanic/prewutils/internal/input"
)

var (
	ErrNotCompleted     = errors.New("setup not completed")
	ErrAlreadyCompleted = errors.New("setup already completed")
	ErrWrongEnergy      = errors.New("energy not part of setup")
)

// Setup is a completed fit setup as consumed by the runners.
type Setup interface {
	Energies() []int
	Pars(energy int) (fit.ParVec, error)
	DataConnector() (data.Connector, error)
}

// Option configures a setup.
type Option func(*options)

type options struct {
	reader input.Reader
}

// WithReader replaces the file system input reader.
func WithReader(r input.Reader) Option {
	return func(o *options) { o.reader = r }
}

func newOptions(opts []Option) options {
	o := options{reader: input.FileReader{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// DistrMode selects how a distribution enters the fit.
type DistrMode string

const (
	Differential DistrMode = "differential"
	Summed       DistrMode = "summed"
)

// parseMode falls back to differential for unknown modes.
func parseMode(distr string, mode DistrMode) DistrMode {
	switch mode {
	case Differential, Summed:
		return mode
	case "":
		return Differential
	}
	log.Warn().Str("distr", distr).Str("mode", string(mode)).Msg("Unknown distribution mode, using differential distribution")
	return Differential
}

// applyMode combines the bins of summed distributions. Bin-wise coefficients
// lose their meaning in that case and are dropped.
func applyMode(distr string, mode DistrMode, preds []data.PredDistr, coefs []data.CoefDistr) ([]data.PredDistr, []data.CoefDistr) {
	if mode != Summed {
		return preds, coefs
	}
	if len(coefs) > 0 {
		log.Warn().Str("distr", distr).Int("coefs", len(coefs)).Msg("Coefs for summed distribution removed")
	}
	return data.CombineAllBins(preds), nil
}

// pieces collects the parameters, coefficients and links produced by one
// assembly step, deduplicated on insertion.
type pieces struct {
	pars  fit.ParVec
	coefs []data.CoefDistr
	links []data.PredLink
}

func (p *pieces) add(pars fit.ParVec, links []data.PredLink, coefs []data.CoefDistr) {
	p.pars = datahelp.AddPars(p.pars, pars)
	if len(links) > 0 {
		log.Debug().Int("links", len(links)).Msg("Adding prediction links")
	}
	p.links = datahelp.AddLinks(p.links, links)
	p.coefs = datahelp.AddCoefs(p.coefs, coefs)
}

// logState prints an assembled state at debug level.
func logState(kind string, pars fit.ParVec, conn data.Connector) {
	if e := log.Debug(); !e.Enabled() {
		return
	}
	log.Debug().Str("setup", kind).Strs("pars", pars.Names()).Msg("Completed setup")
	for _, p := range conn.PredDistrs() {
		ev := log.Debug().Str("distr", p.Info.String()).Int("bins", p.NBins())
		if p.NBins() > 0 {
			ev = ev.Float64("first_sig", p.SigDistr[0])
		}
		ev.Msg("Using distribution")
	}
	for _, c := range conn.CoefDistrs() {
		v, _ := c.Coef(0)
		log.Debug().Str("coef", c.CoefName).Str("distr", c.Info.String()).Float64("first", v).Msg("Using coefficient")
	}
	for _, l := range conn.PredLinks() {
		log.Debug().Str("distr", l.Info.String()).
			Strs("sig_fcts", fctNames(l.SigFctLinks)).
			Strs("bkg_fcts", fctNames(l.BkgFctLinks)).
			Msg("Using prediction link")
	}
}

func fctNames(links []data.FctLink) []string {
	out := make([]string, len(links))
	for i, l := range links {
		out[i] = l.FctName
	}
	return out
}

func wrongEnergy(energy int) error {
	return fmt.Errorf("%w: %d", ErrWrongEnergy, energy)
}
