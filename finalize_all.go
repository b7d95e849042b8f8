package rendergraph

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/gogpu/rendergraph/internal/parallel"
)

// FinalizeAll finalizes independent builders concurrently, for example the
// graphs of several views or windows. The graphs are returned in argument
// order. When any builder fails, the result holds nil at its index and the
// returned error joins every failure, each prefixed with its index.
func FinalizeAll(builders ...*Builder) ([]*Graph, error) {
	graphs := make([]*Graph, len(builders))
	if len(builders) == 0 {
		return graphs, nil
	}

	pool := parallel.NewWorkerPool(min(len(builders), runtime.GOMAXPROCS(0)))
	defer pool.Close()
	Logger().Debug("rendergraph: finalizing builders", "builders", len(builders), "workers", pool.Workers())

	tasks := make([]func() error, len(builders))
	for i, b := range builders {
		tasks[i] = func() error {
			g, err := b.Finalize()
			graphs[i] = g
			return err
		}
	}

	var errs []error
	for i, err := range pool.Map(tasks) {
		if err != nil {
			errs = append(errs, fmt.Errorf("builder %d: %w", i, err))
		}
	}
	return graphs, errors.Join(errs...)
}
