// Package pager requests more list items when the end of the list scrolls
// into view.
package pager

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/strrl/chat-history/internal/logging"
)

// DefaultPollInterval is used by the fallback poller.
const DefaultPollInterval = 250 * time.Millisecond

// Node is an element of the render tree.
type Node interface {
	// Parent returns the enclosing node, nil at the top.
	Parent() Node
	// Overflow is the node's overflow style: visible, hidden, auto,
	// scroll or overlay.
	Overflow() string
}

// Container is the list the sentinel is appended to.
type Container interface {
	Node
	AppendSentinel() Sentinel
}

// Sentinel is the marker placed after the last list item.
type Sentinel interface {
	Remove()
	// InView reports whether the sentinel is currently visible.
	InView() bool
}

// Observer watches a sentinel for intersection with its scroll root.
type Observer interface {
	Observe(s Sentinel)
	Disconnect()
}

// ObserverFactory builds an observer bound to root, nil meaning the whole
// viewport. onIntersect runs each time the sentinel comes into view.
type ObserverFactory func(root Node, onIntersect func()) Observer

// State of an AutoPager.
type State string

const (
	StateIdle      State = "idle"
	StateObserving State = "observing"
)

// EnsureOptions describe what the list currently wants.
type EnsureOptions struct {
	Enabled bool
	HasMore bool
	// OnRequestMore asks for the next chunk. A returned channel keeps
	// further requests blocked until it is closed; nil unblocks at once.
	OnRequestMore func() <-chan struct{}
}

// Option configures an AutoPager.
type Option func(*AutoPager)

// WithObserverFactory uses an intersection observer instead of polling.
func WithObserverFactory(f ObserverFactory) Option {
	return func(p *AutoPager) {
		p.factory = f
	}
}

// WithPollInterval sets the fallback poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(p *AutoPager) {
		if d > 0 {
			p.poll = d
		}
	}
}

// WithLogger replaces the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *AutoPager) {
		p.log = l
	}
}

// AutoPager keeps a sentinel at the end of a list while more pages exist
// and calls back when it becomes visible.
type AutoPager struct {
	container Container
	factory   ObserverFactory
	poll      time.Duration
	log       zerolog.Logger

	mu       sync.Mutex
	state    State
	sentinel Sentinel
	observer Observer
	stop     chan struct{}
	request  func() <-chan struct{}

	pending  atomic.Bool
	requests atomic.Int64
}

// New creates an idle pager for container.
func New(container Container, opts ...Option) *AutoPager {
	p := &AutoPager{
		container: container,
		poll:      DefaultPollInterval,
		state:     StateIdle,
		log:       logging.Component("autopager"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ensure reconciles the pager with o: observing while enabled with more
// pages to show, idle otherwise.
func (p *AutoPager) Ensure(o EnsureOptions) {
	if !o.Enabled || !o.HasMore || o.OnRequestMore == nil {
		p.Teardown()
		return
	}

	p.mu.Lock()
	p.request = o.OnRequestMore
	if p.state == StateObserving {
		p.mu.Unlock()
		return
	}
	sentinel := p.container.AppendSentinel()
	p.sentinel = sentinel
	var observer Observer
	if p.factory != nil {
		observer = p.factory(ScrollRoot(p.container), p.trigger)
		p.observer = observer
	} else {
		p.stop = make(chan struct{})
		go p.pollLoop(sentinel, p.stop)
	}
	p.state = StateObserving
	p.mu.Unlock()

	// observers may report an initial intersection from Observe itself
	if observer != nil {
		observer.Observe(sentinel)
	}
	p.log.Debug().Bool("observer", observer != nil).Msg("observing sentinel")
}

// Teardown removes the sentinel and stops observing. Safe to call twice.
func (p *AutoPager) Teardown() {
	p.mu.Lock()
	if p.state == StateIdle {
		p.mu.Unlock()
		return
	}
	observer, sentinel, stop := p.observer, p.sentinel, p.stop
	p.observer, p.sentinel, p.stop = nil, nil, nil
	p.request = nil
	p.state = StateIdle
	p.mu.Unlock()

	if observer != nil {
		observer.Disconnect()
	}
	if stop != nil {
		close(stop)
	}
	if sentinel != nil {
		sentinel.Remove()
	}
	p.log.Debug().Msg("pager idle")
}

// State returns the current state.
func (p *AutoPager) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Pending reports whether a request for more is outstanding.
func (p *AutoPager) Pending() bool {
	return p.pending.Load()
}

// Requests returns how many times more items were requested.
func (p *AutoPager) Requests() int64 {
	return p.requests.Load()
}

// trigger is the intersection callback.
func (p *AutoPager) trigger() {
	if !p.pending.CompareAndSwap(false, true) {
		return
	}
	p.mu.Lock()
	request := p.request
	observing := p.state == StateObserving
	p.mu.Unlock()

	if !observing || request == nil {
		p.pending.Store(false)
		return
	}

	p.requests.Add(1)
	done := request()
	if done == nil {
		p.pending.Store(false)
		return
	}
	go func() {
		<-done
		p.pending.Store(false)
	}()
}

func (p *AutoPager) pollLoop(s Sentinel, stop <-chan struct{}) {
	ticker := time.NewTicker(p.poll)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if s.InView() {
				p.trigger()
			}
		}
	}
}

// ScrollRoot walks up from n to the first ancestor that scrolls its
// content. nil means the viewport.
func ScrollRoot(n Node) Node {
	if n == nil {
		return nil
	}
	for cur := n.Parent(); cur != nil; cur = cur.Parent() {
		switch strings.ToLower(strings.TrimSpace(cur.Overflow())) {
		case "auto", "scroll", "overlay":
			return cur
		}
	}
	return nil
}
