package fit

import "github.com/sawpanic/prewutils/internal/names"

// Minimizer performs one minimization of a container. On return the
// container holds the final parameter values so a following minimizer can
// start from them.
type Minimizer interface {
	Minimize(c *Container) (Result, error)
}

// MinimizerFactory creates a minimizer for one stage of a minimizer chain.
// Implementations must be safe for concurrent use.
type MinimizerFactory interface {
	NewMinimizer(info names.MinimizerInfo) (Minimizer, error)
}

// MinimizerFactoryFunc adapts a function to MinimizerFactory.
type MinimizerFactoryFunc func(info names.MinimizerInfo) (Minimizer, error)

func (f MinimizerFactoryFunc) NewMinimizer(info names.MinimizerInfo) (Minimizer, error) {
	return f(info)
}

// RunChain runs the stages in order, each starting from the values the
// previous stage left in the container. Only the last result is returned.
func RunChain(factory MinimizerFactory, chain []names.MinimizerInfo, c *Container) (Result, error) {
	if len(chain) == 0 {
		return Result{}, names.ErrEmptyChain
	}
	var res Result
	for _, info := range chain {
		m, err := factory.NewMinimizer(info)
		if err != nil {
			return Result{}, err
		}
		if res, err = m.Minimize(c); err != nil {
			return Result{}, err
		}
	}
	return res, nil
}
