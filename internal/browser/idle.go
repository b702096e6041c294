package browser

import (
	"context"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
)

// Chrome fires networkAlmostIdle once a frame has had at most two network
// connections in flight for 500ms.
const lifecycleNetworkAlmostIdle = "networkAlmostIdle"

// idleWatcher turns main-frame lifecycle events into a wait for the
// navigation in flight to become network-idle.
type idleWatcher struct {
	mu       sync.Mutex
	frameID  cdp.FrameID
	loaderID cdp.LoaderID
	idle     chan struct{}
	fired    bool
}

func newIdleWatcher() *idleWatcher {
	return &idleWatcher{idle: make(chan struct{})}
}

func (w *idleWatcher) setFrame(id cdp.FrameID) {
	w.mu.Lock()
	w.frameID = id
	w.mu.Unlock()
}

// arm resets the watcher before a new navigation.
func (w *idleWatcher) arm() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.loaderID = ""
	w.idle = make(chan struct{})
	w.fired = false
}

func (w *idleWatcher) handle(ev any) {
	e, ok := ev.(*page.EventLifecycleEvent)
	if !ok {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.frameID == "" || e.FrameID != w.frameID {
		return
	}
	switch e.Name {
	case "init":
		w.loaderID = e.LoaderID
	case lifecycleNetworkAlmostIdle:
		if w.fired || w.loaderID == "" || e.LoaderID != w.loaderID {
			return
		}
		w.fired = true
		close(w.idle)
	}
}

func (w *idleWatcher) wait(ctx context.Context) error {
	w.mu.Lock()
	idle := w.idle
	w.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
