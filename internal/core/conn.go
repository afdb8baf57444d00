package core

import "errors"

// Frame is a marshaled outbound message.
type Frame []byte

// ErrBackpressure means the connection's send buffer is full.
var ErrBackpressure = errors.New("backpressure")

// Sender abstracts a system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type Sender interface {
	TrySend(Frame) error
	Close()
}

// PublishResult reports delivery stats/backpressure to the caller.
type PublishResult struct {
	SentTo  int
	Dropped int
}
