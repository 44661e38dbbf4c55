package artifact

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vulntor/sslartifact/pkg/target"
)

// behavior controls how a fake scanner run for one target behaves.
type behavior struct {
	delay    time.Duration
	hang     bool // run until killed or released
	startErr error
	waitErr  error
}

type fakeLauncher struct {
	mu        sync.Mutex
	calls     map[target.Target]int
	procs     []*fakeProcess
	running   atomic.Int32
	maxSeen   atomic.Int32
	behaviors func(t target.Target, attempt int) behavior
	release   chan struct{}
}

func newFakeLauncher(fn func(t target.Target, attempt int) behavior) *fakeLauncher {
	if fn == nil {
		fn = func(target.Target, int) behavior { return behavior{} }
	}
	return &fakeLauncher{
		calls:     map[target.Target]int{},
		behaviors: fn,
		release:   make(chan struct{}),
	}
}

// releaseAll lets hanging processes exit; call it from t.Cleanup.
func (f *fakeLauncher) releaseAll() {
	select {
	case <-f.release:
	default:
		close(f.release)
	}
}

func (f *fakeLauncher) Start(c Command) (Process, error) {
	t := target.Target(c.Args[len(c.Args)-1])

	f.mu.Lock()
	f.calls[t]++
	attempt := f.calls[t]
	f.mu.Unlock()

	b := f.behaviors(t, attempt)
	if b.startErr != nil {
		return nil, b.startErr
	}

	n := f.running.Add(1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	p := &fakeProcess{target: t, done: make(chan struct{}), kill: make(chan struct{}), err: b.waitErr}
	f.mu.Lock()
	f.procs = append(f.procs, p)
	f.mu.Unlock()

	go func() {
		defer close(p.done)
		defer f.running.Add(-1)
		if b.hang {
			select {
			case <-p.kill:
			case <-f.release:
			}
			return
		}
		select {
		case <-time.After(b.delay):
		case <-p.kill:
		}
	}()
	return p, nil
}

func (f *fakeLauncher) callCount(t target.Target) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[t]
}

func (f *fakeLauncher) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func (f *fakeLauncher) process(t target.Target) *fakeProcess {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.procs {
		if p.target == t {
			return p
		}
	}
	return nil
}

type fakeProcess struct {
	target   target.Target
	done     chan struct{}
	kill     chan struct{}
	killOnce sync.Once
	killed   atomic.Bool
	err      error
}

func (p *fakeProcess) Wait() error {
	<-p.done
	return p.err
}

func (p *fakeProcess) Kill() error {
	p.killOnce.Do(func() {
		p.killed.Store(true)
		close(p.kill)
	})
	return nil
}

func (p *fakeProcess) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// recordingSink collects progress events.
type recordingSink struct {
	mu      sync.Mutex
	events  []ProgressEvent
	onStart func(ProgressEvent)
}

func (s *recordingSink) OnEvent(ev ProgressEvent) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	hook := s.onStart
	s.mu.Unlock()
	if hook != nil && ev.Phase == PhaseStart {
		hook(ev)
	}
}

func (s *recordingSink) count(phase string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, ev := range s.events {
		if ev.Phase == phase {
			n++
		}
	}
	return n
}

var errBoom = errors.New("boom")
