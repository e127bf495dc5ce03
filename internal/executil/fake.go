package executil

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
)

// FakeRunner is a scripted Runner for tests. Handler decides the outcome
// of every call; Paths lists the commands LookPath resolves.
type FakeRunner struct {
	mu      sync.Mutex
	Paths   map[string]string
	Handler func(ctx context.Context, cmd Command) (Result, error)
	Calls   []Command
}

// Run records cmd and delegates to Handler.
func (f *FakeRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, cmd)
	f.mu.Unlock()

	if f.Handler == nil {
		return Result{}, nil
	}

	return f.Handler(ctx, cmd)
}

// LookPath resolves name from Paths.
func (f *FakeRunner) LookPath(name string) (string, error) {
	if p, ok := f.Paths[name]; ok {
		return p, nil
	}

	return "", fmt.Errorf("%s: %w", name, exec.ErrNotFound)
}

// CallCount returns how many commands were run.
func (f *FakeRunner) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.Calls)
}
