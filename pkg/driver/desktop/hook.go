package desktop

import (
	"context"
	"fmt"
	"sync"

	hook "github.com/robotn/gohook"
)

// charUndefined is libuiohook's keychar for events without a character.
const charUndefined = 0xFFFF

// hookMu serializes watchers: gohook runs a single global hook.
var hookMu sync.Mutex

// TextWatcher streams characters typed by the user through a global
// keyboard hook. Characters typed while the player injects input are
// dropped.
type TextWatcher struct {
	desktop *Desktop
}

// NewTextWatcher creates a watcher that filters d's injected input. d may
// be nil.
func NewTextWatcher(d *Desktop) *TextWatcher {
	return &TextWatcher{desktop: d}
}

// Watch starts the hook. The hook runs until ctx is done or stop is called.
func (w *TextWatcher) Watch(ctx context.Context) (<-chan rune, func(), error) {
	if !hookMu.TryLock() {
		return nil, nil, fmt.Errorf("keyboard hook already in use")
	}

	ctx, cancel := context.WithCancel(ctx)
	events := hook.Start()
	out := make(chan rune, 64)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				// KeyDown carries the typed character.
				if ev.Kind != hook.KeyDown || ev.Keychar == 0 || ev.Keychar == charUndefined {
					continue
				}
				if w.desktop != nil && w.desktop.Injecting() {
					continue
				}
				select {
				case out <- ev.Keychar:
				default:
				}
			}
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			<-done
			hook.End()
			hookMu.Unlock()
		})
	}
	return out, stop, nil
}
