// Package gstengine implements pipeline.Engine with GStreamer through go-gst.
package gstengine

import (
	"fmt"
	"time"

	"github.com/tinyzimmer/go-gst/gst"

	"github.com/smazurov/dcam/internal/pipeline"
)

// Engine is a parsed GStreamer pipeline.
type Engine struct {
	pipeline *gst.Pipeline
	bus      *gst.Bus
	flip     *gst.Element
}

// New parses description with gst-launch syntax. The description must
// contain a videoflip element named pipeline.FlipElementName.
func New(description string) (*Engine, error) {
	// Safe to call multiple times
	gst.Init(nil)

	p, err := gst.NewPipelineFromString(description)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pipeline: %w", err)
	}

	flip, err := p.GetElementByName(pipeline.FlipElementName)
	if err != nil {
		_ = p.SetState(gst.StateNull)
		return nil, fmt.Errorf("pipeline has no %q element: %w", pipeline.FlipElementName, err)
	}

	return &Engine{
		pipeline: p,
		bus:      p.GetPipelineBus(),
		flip:     flip,
	}, nil
}

// Factory adapts New to pipeline.EngineFactory.
func Factory(description string) (pipeline.Engine, error) {
	return New(description)
}

// Play implements pipeline.Engine.
func (e *Engine) Play() error {
	return e.pipeline.SetState(gst.StatePlaying)
}

// Pause implements pipeline.Engine.
func (e *Engine) Pause() error {
	return e.pipeline.SetState(gst.StatePaused)
}

// Close implements pipeline.Engine.
func (e *Engine) Close() error {
	return e.pipeline.BlockSetState(gst.StateNull)
}

// SetFlip implements pipeline.Engine.
func (e *Engine) SetFlip(method pipeline.FlipMethod) error {
	// Enum properties take the integer value.
	return e.flip.SetProperty("method", int(method))
}

// Pop implements pipeline.Engine.
func (e *Engine) Pop(timeout time.Duration) *pipeline.Message {
	msg := e.bus.TimedPop(timeout)
	if msg == nil {
		return nil
	}

	switch msg.Type() {
	case gst.MessageEOS:
		return &pipeline.Message{Kind: pipeline.MessageEOS, Source: msg.Source()}

	case gst.MessageError:
		gerr := msg.ParseError()
		out := &pipeline.Message{Kind: pipeline.MessageError, Source: msg.Source()}
		if gerr != nil {
			out.Detail = gerr.Error()
			out.Debug = gerr.DebugString()
		}
		return out

	case gst.MessageStateChanged:
		if msg.Source() == e.pipeline.GetName() {
			_, newState := msg.ParseStateChanged()
			if newState == gst.StatePlaying {
				return &pipeline.Message{Kind: pipeline.MessagePlaying, Source: msg.Source()}
			}
		}
		return &pipeline.Message{Kind: pipeline.MessageOther, Source: msg.Source(), Detail: msg.Type().String()}

	case gst.MessageWarning:
		gerr := msg.ParseWarning()
		out := &pipeline.Message{Kind: pipeline.MessageOther, Source: msg.Source()}
		if gerr != nil {
			out.Detail = gerr.Error()
		}
		return out

	default:
		return &pipeline.Message{Kind: pipeline.MessageOther, Source: msg.Source(), Detail: msg.Type().String()}
	}
}
