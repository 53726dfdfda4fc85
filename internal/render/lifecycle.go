package render

import "sync"

const lifecycleNetworkAlmostIdle = "networkAlmostIdle"

// idleWatcher turns page lifecycle events into a single signal for the main
// frame document loaded after arm. networkAlmostIdle fires once no more than
// two connections have been open for 500ms.
type idleWatcher struct {
	mu     sync.Mutex
	armed  bool
	frame  string
	loader string
	ch     chan struct{}
}

func newIdleWatcher() *idleWatcher {
	return &idleWatcher{}
}

func (w *idleWatcher) arm() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.armed = true
	w.frame = ""
	w.loader = ""
	w.ch = make(chan struct{})
	return w.ch
}

func (w *idleWatcher) observe(frame, loader, name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.armed {
		return
	}
	switch name {
	case "init":
		// The first document initialised after arm belongs to the main frame.
		if w.frame == "" || w.frame == frame {
			w.frame = frame
			w.loader = loader
		}
	case lifecycleNetworkAlmostIdle:
		if w.loader != "" && frame == w.frame && loader == w.loader {
			w.armed = false
			close(w.ch)
		}
	}
}
