package reconcile

import "github.com/gamepulse/admin-sync-service/internal/domain/model"

const defaultMailboxSize = 256

// Option defines a functional configuration type for the Reconciler.
type Option func(*Reconciler)

// WithMailboxSize sets the [BACKPRESSURE] threshold: the number of queued
// poll/push turns before Offer starts dropping.
func WithMailboxSize(size int) Option {
	return func(r *Reconciler) {
		if size > 0 {
			r.mailbox = make(chan input, size)
		}
	}
}

// WithUpdateHook registers a callback invoked with a copy of the merged value
// after every state-changing turn. The hook runs on the drain goroutine and
// must not block.
func WithUpdateHook(fn func(model.RealtimeActivity)) Option {
	return func(r *Reconciler) {
		r.onUpdate = fn
	}
}
