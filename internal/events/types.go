package events

// Event type constants for kelindar/event.
const (
	TypeCameraState uint32 = iota + 1
	TypeControlCommand
	TypePipelineState
	TypePipelineError
	TypeResource
	TypeSessionEnded
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// CameraStateEvent carries the camera values after a refresh.
type CameraStateEvent struct {
	Zoom        uint32
	ZoomPercent int
	ZoomKnown   bool
	CropX       uint32
	CropY       uint32
	Quality     uint32
	Mirrored    bool
	Timestamp   string
}

// Type returns the event type identifier for CameraStateEvent.
func (e CameraStateEvent) Type() uint32 { return TypeCameraState }

// ControlCommandEvent reports one handled keyboard command.
type ControlCommandEvent struct {
	Command   string
	Error     string
	Timestamp string
}

// Type returns the event type identifier for ControlCommandEvent.
func (e ControlCommandEvent) Type() uint32 { return TypeControlCommand }

// PipelineStateEvent reports a pipeline lifecycle transition.
type PipelineStateEvent struct {
	State     string
	Timestamp string
}

// Type returns the event type identifier for PipelineStateEvent.
func (e PipelineStateEvent) Type() uint32 { return TypePipelineState }

// PipelineErrorEvent reports an error raised on the pipeline bus.
type PipelineErrorEvent struct {
	Source    string
	Category  string
	Detail    string
	Timestamp string
}

// Type returns the event type identifier for PipelineErrorEvent.
func (e PipelineErrorEvent) Type() uint32 { return TypePipelineError }

// Resource actions.
const (
	ResourceAcquired = "acquired"
	ResourceReleased = "released"
	ResourceFailed   = "failed"
)

// ResourceEvent reports acquisition or release of a session resource.
type ResourceEvent struct {
	Resource  string
	Action    string
	Error     string
	Timestamp string
}

// Type returns the event type identifier for ResourceEvent.
func (e ResourceEvent) Type() uint32 { return TypeResource }

// SessionEndedEvent reports which source ended a session.
type SessionEndedEvent struct {
	SessionID string
	Reason    string
	Timestamp string
}

// Type returns the event type identifier for SessionEndedEvent.
func (e SessionEndedEvent) Type() uint32 { return TypeSessionEnded }
