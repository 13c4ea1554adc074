package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// InterruptHandler turns the first interrupt into a graceful stop and the
// second into a hard cancel.
type InterruptHandler struct {
	writer  io.Writer
	stop    func() bool
	cancel  context.CancelFunc
	signals chan os.Signal
	count   int
	mu      sync.Mutex
}

// NewInterruptHandler creates a handler. stop asks the running job to drain;
// it reports false when nothing was running, in which case the context is
// canceled right away.
func NewInterruptHandler(writer io.Writer, stop func() bool) *InterruptHandler {
	if writer == nil {
		writer = os.Stdout
	}
	if stop == nil {
		stop = func() bool { return false }
	}
	return &InterruptHandler{
		writer:  writer,
		stop:    stop,
		signals: make(chan os.Signal, 2),
	}
}

// HandleInterrupts starts listening for SIGINT and SIGTERM. The returned
// context is canceled on the second signal; release stops listening.
func (h *InterruptHandler) HandleInterrupts(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	h.mu.Lock()
	h.cancel = cancel
	h.mu.Unlock()

	signal.Notify(h.signals, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-h.signals:
				h.handle()
			}
		}
	}()

	var once sync.Once
	release := func() {
		once.Do(func() {
			signal.Stop(h.signals)
			close(done)
			cancel()
		})
	}
	return ctx, release
}

func (h *InterruptHandler) handle() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++

	if h.count == 1 && h.stop() {
		h.write("\n" + FormatWarning("Stopping after in-flight requests finish...") +
			"\n" + FormatInfo("Progress is checkpointed. Press Ctrl+C again to abort.") + "\n")
		return
	}

	h.write("\n" + FormatWarning("Aborting.") + "\n")
	if h.cancel != nil {
		h.cancel()
	}
}

func (h *InterruptHandler) write(msg string) {
	if _, err := fmt.Fprint(h.writer, msg); err != nil {
		// Best effort - we're shutting down anyway
		fmt.Fprintf(os.Stderr, "Failed to write interrupt message: %v\n", err)
	}
}

// Interrupts returns how many interrupts have been handled.
func (h *InterruptHandler) Interrupts() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}
