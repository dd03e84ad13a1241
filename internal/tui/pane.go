package tui

import (
	"sync"

	"github.com/strrl/chat-history/internal/pager"
)

// scrollNode is the viewport the list scrolls in.
type scrollNode struct{}

func (scrollNode) Parent() pager.Node { return nil }
func (scrollNode) Overflow() string   { return "scroll" }

// listPane is the rendered chat list as the pager sees it. The model reports
// whether the bottom of the list is on screen after every update; an attached
// observer is told when the sentinel comes into view.
type listPane struct {
	mu       sync.Mutex
	parent   pager.Node
	inView   bool
	sentinel *sentinel
	observer *paneObserver
}

var _ pager.Container = (*listPane)(nil)

func newListPane() *listPane {
	return &listPane{parent: scrollNode{}}
}

func (p *listPane) Parent() pager.Node { return p.parent }
func (p *listPane) Overflow() string   { return "visible" }

// AppendSentinel attaches the "more" marker after the last row.
func (p *listPane) AppendSentinel() pager.Sentinel {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := &sentinel{pane: p}
	p.sentinel = s
	return s
}

// hasSentinel reports whether the marker row should be drawn.
func (p *listPane) hasSentinel() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sentinel != nil
}

// update records whether the list bottom is visible. The observer fires
// when it comes into view, or stays in view while the content changed.
func (p *listPane) update(inView, contentChanged bool) {
	p.mu.Lock()
	was := p.inView
	p.inView = inView
	var fire func()
	if inView && (!was || contentChanged) && p.sentinel != nil && p.observer != nil {
		fire = p.observer.onIntersect
	}
	p.mu.Unlock()

	if fire != nil {
		fire()
	}
}

// observerFactory binds pager observers to this pane.
func (p *listPane) observerFactory() pager.ObserverFactory {
	return func(root pager.Node, onIntersect func()) pager.Observer {
		return &paneObserver{pane: p, root: root, onIntersect: onIntersect}
	}
}

type sentinel struct {
	pane *listPane
}

func (s *sentinel) Remove() {
	s.pane.mu.Lock()
	if s.pane.sentinel == s {
		s.pane.sentinel = nil
	}
	s.pane.mu.Unlock()
}

func (s *sentinel) InView() bool {
	s.pane.mu.Lock()
	defer s.pane.mu.Unlock()
	return s.pane.sentinel == s && s.pane.inView
}

type paneObserver struct {
	pane        *listPane
	root        pager.Node
	onIntersect func()
}

// Observe reports an initial intersection, as browsers do.
func (o *paneObserver) Observe(s pager.Sentinel) {
	o.pane.mu.Lock()
	o.pane.observer = o
	o.pane.mu.Unlock()
	if s.InView() {
		o.onIntersect()
	}
}

func (o *paneObserver) Disconnect() {
	o.pane.mu.Lock()
	if o.pane.observer == o {
		o.pane.observer = nil
	}
	o.pane.mu.Unlock()
}
