// Package notice holds the single transient message shown to the operator.
package notice

import (
	"sync"
	"time"
)

type Kind string

const (
	Info  Kind = "info"
	Error Kind = "error"
)

type Message struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text"`
}

// Board shows at most one message. Posting replaces the current message and
// restarts its dismissal timer.
type Board struct {
	delay time.Duration

	mu      sync.Mutex
	current *Message
	timer   *time.Timer
	seq     uint64
	closed  bool
}

func NewBoard(delay time.Duration) *Board {
	return &Board{delay: delay}
}

func (b *Board) Post(kind Kind, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	if b.timer != nil {
		b.timer.Stop()
	}
	b.seq++
	seq := b.seq
	b.current = &Message{Kind: kind, Text: text}
	b.timer = time.AfterFunc(b.delay, func() { b.dismiss(seq) })
}

func (b *Board) Info(text string)  { b.Post(Info, text) }
func (b *Board) Error(text string) { b.Post(Error, text) }

// Current returns the visible message, if any.
func (b *Board) Current() (Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return Message{}, false
	}
	return *b.current, true
}

// Clear dismisses the current message immediately.
func (b *Board) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.current = nil
}

// Close stops the pending timer; later posts are ignored.
func (b *Board) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.current = nil
}

func (b *Board) dismiss(seq uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	// A later post owns the board now.
	if seq != b.seq {
		return
	}
	b.current = nil
	b.timer = nil
}
