package browser

import (
	"encoding/json"
	"strings"
	"sync"

	cdplog "github.com/chromedp/cdproto/log"
	"github.com/chromedp/cdproto/runtime"
)

// consoleRecorder accumulates console error messages for one session.
// Drain hands the messages over exactly once and stops recording.
type consoleRecorder struct {
	mu      sync.Mutex
	entries []string
	drained bool
}

func newConsoleRecorder() *consoleRecorder {
	return &consoleRecorder{entries: []string{}}
}

func (r *consoleRecorder) record(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.drained {
		return
	}
	r.entries = append(r.entries, msg)
}

func (r *consoleRecorder) drain() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.drained {
		return nil
	}
	r.drained = true
	out := r.entries
	r.entries = nil
	return out
}

// handle is registered with chromedp.ListenTarget and must not block.
func (r *consoleRecorder) handle(ev any) {
	switch e := ev.(type) {
	case *runtime.EventConsoleAPICalled:
		if e.Type != runtime.APITypeError {
			return
		}
		r.record(formatConsoleArgs(e.Args))
	case *cdplog.EventEntryAdded:
		if e.Entry == nil || e.Entry.Level != cdplog.LevelError {
			return
		}
		r.record(e.Entry.Text)
	}
}

func formatConsoleArgs(args []*runtime.RemoteObject) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		if arg == nil {
			continue
		}
		parts = append(parts, remoteObjectText(arg))
	}
	return strings.Join(parts, " ")
}

func remoteObjectText(arg *runtime.RemoteObject) string {
	if len(arg.Value) > 0 {
		var s string
		if err := json.Unmarshal([]byte(arg.Value), &s); err == nil {
			return s
		}
		return string(arg.Value)
	}
	if arg.Description != "" {
		return arg.Description
	}
	if arg.UnserializableValue != "" {
		return string(arg.UnserializableValue)
	}
	return string(arg.Type)
}
