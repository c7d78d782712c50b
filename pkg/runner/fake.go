package runner

import (
	"context"
	"strings"
	"sync"

	"github.com/samber/lo"
)

// Call is one recorded Fake invocation.
type Call struct {
	Name       string
	Args       []string
	Background bool
}

// CommandLine renders the call without redaction; tests assert on the real
// arguments, including credentials.
func (c Call) CommandLine() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Fake is a Runner for tests. It records every call in order and replays
// outcomes from the optional hooks; without hooks every call succeeds with
// empty output.
type Fake struct {
	mu    sync.Mutex
	Calls []Call

	// RunHook, when set, decides the outcome of each Run call.
	RunHook func(name string, args []string) (Result, error)
	// StartHook, when set, decides the outcome of each Start call.
	StartHook func(name string, args []string) error
}

// Run records the call and replays the scripted outcome.
func (f *Fake) Run(_ context.Context, name string, args ...string) (Result, error) {
	f.record(Call{Name: name, Args: append([]string(nil), args...)})
	if f.RunHook != nil {
		return f.RunHook(name, args)
	}
	return Result{Name: name, Args: args}, nil
}

// Start records the call as a background launch.
func (f *Fake) Start(_ context.Context, name string, args ...string) error {
	f.record(Call{Name: name, Args: append([]string(nil), args...), Background: true})
	if f.StartHook != nil {
		return f.StartHook(name, args)
	}
	return nil
}

func (f *Fake) record(c Call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, c)
}

// CommandLines returns the recorded calls rendered as command lines, in
// invocation order.
func (f *Fake) CommandLines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return lo.Map(f.Calls, func(c Call, _ int) string {
		return c.CommandLine()
	})
}

// CallCount returns how many calls were recorded so far.
func (f *Fake) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}
