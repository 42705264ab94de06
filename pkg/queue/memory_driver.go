package queue

import (
	"context"
	"errors"
)

const memoryCapacity = 1000

var ErrQueueFull = errors.New("queue: memory queue is full")

// MemoryDriver keeps messages in a buffered channel inside the process.
// They are lost on restart.
type MemoryDriver struct {
	buf chan []byte
}

func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{buf: make(chan []byte, memoryCapacity)}
}

// Push never blocks; a full buffer is ErrQueueFull.
func (d *MemoryDriver) Push(_ context.Context, payload []byte) error {
	select {
	case d.buf <- payload:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *MemoryDriver) Pop(ctx context.Context) ([]byte, error) {
	select {
	case p := <-d.buf:
		return p, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len is the number of waiting messages.
func (d *MemoryDriver) Len() int { return len(d.buf) }
