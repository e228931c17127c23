package daemon

import (
	"context"
	"errors"
	"sync"
	"time"

	"faceframe/internal/protocol"
)

// ErrWorkerSilent indicates the worker never answered a request/reply call.
var ErrWorkerSilent = errors.New("worker did not answer")

// replyTimeout bounds how long an IPC handler blocks on a worker reply.
const replyTimeout = 10 * time.Second

// awaiter bridges the uncorrelated event stream to blocking callers: a
// caller arms a channel before sending its command and receives the next
// event of that type. With a single worker answering commands in order this
// pairs requests with their replies.
type awaiter[T protocol.Event] struct {
	mu      sync.Mutex
	waiters []chan T
}

func (a *awaiter[T]) arm() chan T {
	ch := make(chan T, 1)
	a.mu.Lock()
	a.waiters = append(a.waiters, ch)
	a.mu.Unlock()
	return ch
}

func (a *awaiter[T]) disarm(ch chan T) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, waiter := range a.waiters {
		if waiter == ch {
			a.waiters = append(a.waiters[:i], a.waiters[i+1:]...)
			return
		}
	}
}

func (a *awaiter[T]) fire(ev T) {
	a.mu.Lock()
	waiters := a.waiters
	a.waiters = nil
	a.mu.Unlock()
	for _, ch := range waiters {
		ch <- ev
	}
}

// onAsyncReply routes reply-style events to whoever is blocked on them.
func (d *Daemon) onAsyncReply(ev protocol.Event) {
	switch ev := ev.(type) {
	case protocol.ProvidersEvent:
		d.providersWait.fire(ev)
	case protocol.PhotosByPersonEvent:
		d.photosWait.fire(ev)
	case protocol.PongEvent:
		d.pongWait.fire(ev)
	}
}

func awaitReply[T protocol.Event](ctx context.Context, a *awaiter[T], send func()) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()

	ch := a.arm()
	defer a.disarm(ch)
	send()

	var zero T
	select {
	case ev := <-ch:
		return ev, nil
	case <-ctx.Done():
		return zero, ErrWorkerSilent
	}
}

// Providers asks the worker for its execution providers and waits for the
// answer.
func (d *Daemon) Providers(ctx context.Context) (protocol.ProvidersEvent, error) {
	return awaitReply(ctx, &d.providersWait, d.dispatcher.RequestProviders)
}

// PhotosByPerson asks for every photo a person appears in and waits for the
// answer.
func (d *Daemon) PhotosByPerson(ctx context.Context, personID int64) (protocol.PhotosByPersonEvent, error) {
	var sendErr error
	ev, err := awaitReply(ctx, &d.photosWait, func() {
		sendErr = d.dispatcher.RequestPhotosByPerson(personID)
	})
	if sendErr != nil {
		return protocol.PhotosByPersonEvent{}, sendErr
	}
	if err != nil {
		return protocol.PhotosByPersonEvent{}, err
	}
	return ev, nil
}

// Ping probes worker liveness end to end through the wire.
func (d *Daemon) Ping(ctx context.Context) error {
	if _, err := awaitReply(ctx, &d.pongWait, d.dispatcher.Ping); err != nil {
		return err
	}
	return nil
}
