// internal/interceptor/port.go
package interceptor

import (
	"context"
	"errors"
	"sync"
)

// ErrPortClosed is returned by Receive once the port is closed and drained.
var ErrPortClosed = errors.New("interceptor port closed")

// Port is an unbounded FIFO of messages. Send never blocks, so it is safe to
// call from DevTools event callbacks. A port has a single receiver.
type Port struct {
	mu     sync.Mutex
	queue  []Message
	notify chan struct{}
	closed bool
}

// NewPort creates an open port.
func NewPort() *Port {
	return &Port{notify: make(chan struct{}, 1)}
}

// Send enqueues msg. It returns false when the port is closed.
func (p *Port) Send(msg Message) bool {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false
	}
	p.queue = append(p.queue, msg)
	select {
	case p.notify <- struct{}{}:
	default:
	}
	p.mu.Unlock()
	return true
}

// Receive returns the oldest message, waiting until one arrives, the port is
// closed, or ctx is done. Messages queued before Close are still delivered.
func (p *Port) Receive(ctx context.Context) (Message, error) {
	for {
		p.mu.Lock()
		if len(p.queue) > 0 {
			msg := p.queue[0]
			p.queue[0] = Message{}
			p.queue = p.queue[1:]
			p.mu.Unlock()
			return msg, nil
		}
		if p.closed {
			p.mu.Unlock()
			return Message{}, ErrPortClosed
		}
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return Message{}, ctx.Err()
		case <-p.notify:
		}
	}
}

// Len returns the number of queued messages.
func (p *Port) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Close stops accepting messages and wakes any waiting receiver.
func (p *Port) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.notify)
	p.mu.Unlock()
}
