package kubectl

import (
	"context"
	"errors"
	"sync"
	"time"
)

// result is one scripted response of a fake.
type result struct {
	output []byte
	err    error
}

func ok(output string) result {
	return result{output: []byte(output)}
}

func fail(output string) result {
	return result{output: []byte(output), err: errors.New("exit status 1")}
}

// fakeRunner replays scripted results and records every call. The last
// result repeats once the script is exhausted.
type fakeRunner struct {
	mu      sync.Mutex
	results []result
	calls   [][]string
	names   []string
}

func (f *fakeRunner) Run(_ context.Context, name string, args []string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names = append(f.names, name)
	f.calls = append(f.calls, append([]string(nil), args...))
	idx := len(f.calls) - 1
	if idx >= len(f.results) {
		idx = len(f.results) - 1
	}
	r := f.results[idx]
	return r.output, r.err
}

func (f *fakeRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeCommander replays scripted Execute results for Poller tests.
type fakeCommander struct {
	mu      sync.Mutex
	results []result
	calls   int
}

func (f *fakeCommander) Execute(_ context.Context, _ ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.calls
	f.calls++
	if idx >= len(f.results) {
		idx = len(f.results) - 1
	}
	r := f.results[idx]
	return r.output, r.err
}

func (f *fakeCommander) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// slowCommander takes delay per Execute and records when each call
// started and returned.
type slowCommander struct {
	fakeCommander
	delay  time.Duration
	starts []time.Time
	ends   []time.Time
}

func (s *slowCommander) Execute(ctx context.Context, args ...string) ([]byte, error) {
	start := time.Now()
	time.Sleep(s.delay)
	out, err := s.fakeCommander.Execute(ctx, args...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.starts = append(s.starts, start)
	s.ends = append(s.ends, time.Now())
	return out, err
}
