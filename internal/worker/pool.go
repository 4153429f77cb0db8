package worker

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

const defaultNamePrefix = "worker"

// Library installs native bindings into a freshly created worker state.
// It runs on the worker goroutine.
type Library func(L *lua.LState) error

type Options struct {
	NamePrefix string
	Libraries  []Library
	// Context is installed in every worker state; cancelling it interrupts
	// running workers. Nil means they run until their script returns.
	Context context.Context
}

// Pool starts workers that share a binding set and tracks how many are live.
type Pool struct {
	prefix    string
	libraries []Library
	ctx       context.Context

	active atomic.Int64
	wg     sync.WaitGroup
}

func NewPool(opts Options) *Pool {
	prefix := strings.TrimSpace(opts.NamePrefix)
	if prefix == "" {
		prefix = defaultNamePrefix
	}
	return &Pool{
		prefix:    prefix,
		libraries: append([]Library(nil), opts.Libraries...),
		ctx:       opts.Context,
	}
}

// Start compiles source and runs it on a new goroutine. Syntax errors are
// reported here; everything after compilation arrives on the worker's
// outbound stream. An empty name gets a generated one.
func (p *Pool) Start(source, name string) (*Worker, error) {
	if strings.TrimSpace(name) == "" {
		name = p.prefix + "-" + uuid.NewString()[:8]
	}

	chunk, err := parse.Parse(strings.NewReader(source), name)
	if err != nil {
		return nil, syntaxError(name, err)
	}
	compiled, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, syntaxError(name, err)
	}

	w := newWorker(name)
	p.active.Add(1)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.active.Add(-1)
		w.run(p.ctx, compiled, p.libraries)
	}()
	return w, nil
}

// Active reports the number of workers still running.
func (p *Pool) Active() int {
	return int(p.active.Load())
}

// Wait blocks until every started worker has finished.
func (p *Pool) Wait() {
	p.wg.Wait()
}
