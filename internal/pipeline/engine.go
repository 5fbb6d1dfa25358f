package pipeline

import "time"

// MessageKind is the kind of a bus message relevant to the session.
type MessageKind int

const (
	MessageOther MessageKind = iota
	MessageEOS
	MessageError
	// MessagePlaying reports the top-level pipeline reaching PLAYING.
	MessagePlaying
)

// Message is a bus message reduced to what the session inspects.
type Message struct {
	Kind   MessageKind
	Source string
	Detail string
	Debug  string
}

// Engine is the media engine a Session drives. The go-gst implementation
// lives in package gstengine.
type Engine interface {
	Play() error
	Pause() error
	Close() error
	// Pop waits up to timeout for the next bus message; nil when none arrived.
	Pop(timeout time.Duration) *Message
	SetFlip(method FlipMethod) error
}

// EngineFactory builds an Engine from a launch description.
type EngineFactory func(description string) (Engine, error)
