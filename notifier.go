package authcore

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// notifyDispatcher decouples message delivery from request handling. Sends
// happen on a single background goroutine with a per-send timeout so a slow
// mail provider never extends a login or registration call.
type notifyDispatcher struct {
	cfg       NotifyConfig
	notifier  Notifier
	onFailure func(Message, error)
	ch        chan Message
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	failed    atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func newNotifyDispatcher(notifier Notifier, cfg NotifyConfig, onFailure func(Message, error)) *notifyDispatcher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if notifier == nil {
		notifier = NoOpNotifier{}
	}

	d := &notifyDispatcher{
		cfg:       cfg,
		notifier:  notifier,
		onFailure: onFailure,
		ch:        make(chan Message, cfg.BufferSize),
		done:      make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *notifyDispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case msg := <-d.ch:
			d.deliver(msg)
		case <-d.done:
			for {
				select {
				case msg := <-d.ch:
					d.deliver(msg)
				default:
					return
				}
			}
		}
	}
}

func (d *notifyDispatcher) deliver(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.SendTimeout)
	defer cancel()

	if err := d.notifier.Send(ctx, msg); err != nil {
		d.failed.Add(1)
		if d.onFailure != nil {
			d.onFailure(msg, err)
		}
	}
}

// Enqueue never blocks the caller. A full buffer drops the message and
// counts it; delivery is best effort by contract.
func (d *notifyDispatcher) Enqueue(msg Message) {
	if d == nil || d.closed.Load() {
		return
	}

	select {
	case d.ch <- msg:
	case <-d.done:
	default:
		d.dropped.Add(1)
	}
}

func (d *notifyDispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

func (d *notifyDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

func (d *notifyDispatcher) Failed() uint64 {
	if d == nil {
		return 0
	}
	return d.failed.Load()
}
