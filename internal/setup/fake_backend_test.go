package setup

import (
	"context"
	"strings"
	"sync"

	"github.com/aca-dev/aca/internal/backend"
)

// scriptedBackend answers each program with a queue of results; the last
// entry repeats once the queue is drained.
type scriptedBackend struct {
	mu      sync.Mutex
	scripts map[string][]scripted
	calls   []string
}

type scripted struct {
	res *backend.Result
	err error
}

func newScriptedBackend() *scriptedBackend {
	return &scriptedBackend{scripts: make(map[string][]scripted)}
}

func (b *scriptedBackend) on(program string, res *backend.Result, err error) *scriptedBackend {
	b.scripts[program] = append(b.scripts[program], scripted{res: res, err: err})
	return b
}

func (b *scriptedBackend) Run(ctx context.Context, cmd backend.Command) (*backend.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, strings.TrimSpace(cmd.Program+" "+strings.Join(cmd.Args, " ")))
	q := b.scripts[cmd.Program]
	if len(q) == 0 {
		return &backend.Result{}, nil
	}
	next := q[0]
	if len(q) > 1 {
		b.scripts[cmd.Program] = q[1:]
	}
	res := *next.res
	return &res, next.err
}

func (b *scriptedBackend) Name() string                { return "scripted" }
func (b *scriptedBackend) Close(context.Context) error { return nil }

func (b *scriptedBackend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func exit(code int, stderr string) *backend.Result {
	return &backend.Result{ExitStatus: code, Stderr: []byte(stderr)}
}
