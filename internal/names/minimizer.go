package names

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MinimizerKind identifies a minimization strategy.
type MinimizerKind int

const (
	Migrad MinimizerKind = iota
	Simplex
	Combined
	Scan
	Fumili
	MigradBFGS
)

// Stage defaults used when a chain entry carries no options.
const (
	DefaultMaxFcnCalls = 100000
	DefaultMaxIters    = 100000
	DefaultTolerance   = 0.0001
)

var (
	ErrUnknownMinimizer = errors.New("unknown minimizer")
	ErrMinimizerOptions = errors.New("faulty minimizer options")
	ErrEmptyChain       = errors.New("empty minimizer chain")
)

var minimizerNames = map[string]MinimizerKind{
	"Migrad":     Migrad,
	"Simplex":    Simplex,
	"Combined":   Combined,
	"Scan":       Scan,
	"Fumili":     Fumili,
	"MigradBFGS": MigradBFGS,
}

func (k MinimizerKind) String() string {
	for name, kind := range minimizerNames {
		if kind == k {
			return name
		}
	}
	return "MinimizerKind(" + strconv.Itoa(int(k)) + ")"
}

// ParseMinimizerKind resolves a minimizer identifier.
func ParseMinimizerKind(name string) (MinimizerKind, error) {
	kind, ok := minimizerNames[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownMinimizer, name)
	}
	return kind, nil
}

// MinimizerInfo configures one stage of a minimizer chain.
type MinimizerInfo struct {
	Kind        MinimizerKind `json:"kind"`
	MaxFcnCalls int           `json:"max_fcn_calls"`
	MaxIters    int           `json:"max_iters"`
	Tolerance   float64       `json:"tolerance"`
}

func (m MinimizerInfo) String() string {
	return fmt.Sprintf("%s(%d,%d,%g)", m.Kind, m.MaxFcnCalls, m.MaxIters, m.Tolerance)
}

// ParseMinimizerChain reads instructions of the form
//
//	Name1(MaxFcnCalls,MaxIters,Tolerance)->Name2->...
//
// where the bracket options are optional. A stage with a wrong number of
// options or unparsable values fails the whole chain.
func ParseMinimizerChain(chain string) ([]MinimizerInfo, error) {
	if strings.TrimSpace(chain) == "" {
		return nil, ErrEmptyChain
	}

	var infos []MinimizerInfo
	for _, stage := range strings.Split(chain, "->") {
		info, err := parseStage(strings.TrimSpace(stage))
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func parseStage(stage string) (MinimizerInfo, error) {
	name, opts, hasOpts := strings.Cut(stage, "(")
	kind, err := ParseMinimizerKind(strings.TrimSpace(name))
	if err != nil {
		return MinimizerInfo{}, err
	}

	info := MinimizerInfo{
		Kind:        kind,
		MaxFcnCalls: DefaultMaxFcnCalls,
		MaxIters:    DefaultMaxIters,
		Tolerance:   DefaultTolerance,
	}
	if !hasOpts {
		return info, nil
	}

	opts, closed := strings.CutSuffix(strings.TrimSpace(opts), ")")
	if !closed {
		return MinimizerInfo{}, fmt.Errorf("%w: missing closing bracket in %q", ErrMinimizerOptions, stage)
	}
	fields := strings.Split(opts, ",")
	if len(fields) != 3 {
		return MinimizerInfo{}, fmt.Errorf("%w: expected 3 options in %q, got %d", ErrMinimizerOptions, stage, len(fields))
	}

	if info.MaxFcnCalls, err = strconv.Atoi(strings.TrimSpace(fields[0])); err != nil {
		return MinimizerInfo{}, fmt.Errorf("%w: max function calls in %q: %v", ErrMinimizerOptions, stage, err)
	}
	if info.MaxIters, err = strconv.Atoi(strings.TrimSpace(fields[1])); err != nil {
		return MinimizerInfo{}, fmt.Errorf("%w: max iterations in %q: %v", ErrMinimizerOptions, stage, err)
	}
	if info.Tolerance, err = strconv.ParseFloat(strings.TrimSpace(fields[2]), 64); err != nil {
		return MinimizerInfo{}, fmt.Errorf("%w: tolerance in %q: %v", ErrMinimizerOptions, stage, err)
	}
	return info, nil
}
