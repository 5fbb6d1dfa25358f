// Package processtest provides a recording process.Runner for tests.
package processtest

import (
	"context"
	"strings"
	"sync"
)

// Call is one recorded invocation.
type Call struct {
	Name string
	Args []string
}

// String renders the call as a shell-like command line.
func (c Call) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Response is the scripted result for a command line.
type Response struct {
	Output string
	Err    error
}

// Fake records every invocation and answers from a table keyed by the
// rendered command line. Prefix entries match any command line that starts
// with the key followed by a space.
type Fake struct {
	mu        sync.Mutex
	calls     []Call
	responses map[string]Response
	prefixes  map[string]Response
}

// NewFake creates an empty Fake; unscripted commands succeed with no output.
func NewFake() *Fake {
	return &Fake{
		responses: make(map[string]Response),
		prefixes:  make(map[string]Response),
	}
}

// On scripts the response for an exact command line.
func (f *Fake) On(cmdline string, resp Response) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[cmdline] = resp
	return f
}

// OnPrefix scripts the response for every command line starting with prefix.
func (f *Fake) OnPrefix(prefix string, resp Response) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefixes[prefix] = resp
	return f
}

// Run implements process.Runner.
func (f *Fake) Run(ctx context.Context, name string, args ...string) error {
	_, err := f.Output(ctx, name, args...)
	return err
}

// Output implements process.Runner.
func (f *Fake) Output(_ context.Context, name string, args ...string) (string, error) {
	call := Call{Name: name, Args: append([]string(nil), args...)}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)

	line := call.String()
	if resp, ok := f.responses[line]; ok {
		return resp.Output, resp.Err
	}
	for prefix, resp := range f.prefixes {
		if strings.HasPrefix(line, prefix+" ") || line == prefix {
			return resp.Output, resp.Err
		}
	}
	return "", nil
}

// Calls returns the recorded invocations in order.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Lines returns the recorded invocations rendered as command lines.
func (f *Fake) Lines() []string {
	calls := f.Calls()
	lines := make([]string, len(calls))
	for i, c := range calls {
		lines[i] = c.String()
	}
	return lines
}
