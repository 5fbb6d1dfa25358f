package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/smazurov/dcam/internal/events"
)

func TestRecordCameraState(t *testing.T) {
	RecordCameraState(events.CameraStateEvent{
		ZoomPercent: 50,
		ZoomKnown:   true,
		CropX:       10,
		CropY:       20,
		Quality:     80,
		Mirrored:    true,
	})

	if got := testutil.ToFloat64(cameraZoomPercent); got != 50 {
		t.Errorf("zoom percent = %v, want 50", got)
	}
	if got := testutil.ToFloat64(cameraQuality); got != 80 {
		t.Errorf("quality = %v, want 80", got)
	}
	if got := testutil.ToFloat64(cameraCrop.WithLabelValues("y")); got != 20 {
		t.Errorf("crop y = %v, want 20", got)
	}
	if got := testutil.ToFloat64(cameraMirrored); got != 1 {
		t.Errorf("mirrored = %v, want 1", got)
	}

	// Unknown zoom leaves the last known value.
	RecordCameraState(events.CameraStateEvent{Quality: 70})
	if got := testutil.ToFloat64(cameraZoomPercent); got != 50 {
		t.Errorf("zoom percent = %v, want 50 after unknown zoom", got)
	}
}

func TestRecordPipelineStateIsExclusive(t *testing.T) {
	RecordPipelineState("playing")
	RecordPipelineState("paused")

	if got := testutil.ToFloat64(pipelineState.WithLabelValues("paused")); got != 1 {
		t.Errorf("paused = %v, want 1", got)
	}
	if got := testutil.ToFloat64(pipelineState.WithLabelValues("playing")); got != 0 {
		t.Errorf("playing = %v, want 0", got)
	}
}

func TestRecordCommandAndResource(t *testing.T) {
	before := testutil.ToFloat64(controlCommands.WithLabelValues("zoom-in", "error"))
	RecordCommand(events.ControlCommandEvent{Command: "zoom-in", Error: "zoom steps unavailable"})
	if got := testutil.ToFloat64(controlCommands.WithLabelValues("zoom-in", "error")); got != before+1 {
		t.Errorf("zoom-in errors = %v, want %v", got, before+1)
	}

	RecordResource(events.ResourceEvent{Resource: "audio", Action: events.ResourceAcquired})
	if got := testutil.ToFloat64(resourcesHeld.WithLabelValues("audio")); got != 1 {
		t.Errorf("audio held = %v, want 1", got)
	}
	RecordResource(events.ResourceEvent{Resource: "audio", Action: events.ResourceReleased})
	if got := testutil.ToFloat64(resourcesHeld.WithLabelValues("audio")); got != 0 {
		t.Errorf("audio held = %v, want 0", got)
	}
}

func TestSubscribe(t *testing.T) {
	bus := events.New()
	unsub := Subscribe(bus)
	defer unsub()

	before := testutil.ToFloat64(sessionsEnded.WithLabelValues("signal"))
	bus.Publish(events.SessionEndedEvent{Reason: "signal"})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if testutil.ToFloat64(sessionsEnded.WithLabelValues("signal")) == before+1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("session end not recorded from bus event")
}
