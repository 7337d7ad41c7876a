package engine

import (
	"errors"
	"fmt"
	"time"
)

// EvalTimeout is the default limit for a single evaluation.
const EvalTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when a script runs past the engine's limit.
	ErrTimeout = errors.New("evaluation timed out")
	// ErrSuperseded is returned to a caller whose evaluation finished after
	// a newer one started.
	ErrSuperseded = errors.New("evaluation superseded by newer request")
)

type evalResult struct {
	result *EvalResult
	err    error
}

// begin starts a new generation and returns its number.
func (e *Engine) begin() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.generation++
	return e.generation
}

func (e *Engine) current() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation
}

// await blocks until generation gen reports on ch or the timeout fires.
// A timed-out evaluation keeps running in its goroutine; whatever it sends
// later lands in the buffered channel and is never read.
func (e *Engine) await(ch <-chan evalResult, gen uint64) (*EvalResult, error) {
	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	select {
	case r := <-ch:
		if e.current() != gen {
			return nil, ErrSuperseded
		}
		return r.result, r.err
	case <-timer.C:
		return nil, fmt.Errorf("%w after %s", ErrTimeout, e.timeout)
	}
}
