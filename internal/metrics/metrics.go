// Package metrics provides Prometheus metrics for dcam sessions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/smazurov/dcam/internal/events"
)

const namespace = "dcam"

var (
	cameraZoomPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "camera",
		Name:      "zoom_percent",
		Help:      "Zoom position across the available zoom steps",
	})

	cameraQuality = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "camera",
		Name:      "quality",
		Help:      "Current JPEG quality reported by the camera",
	})

	cameraCrop = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "camera",
		Name:      "crop",
		Help:      "Current crop offset reported by the camera",
	}, []string{"axis"})

	cameraMirrored = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "camera",
		Name:      "mirrored",
		Help:      "Whether the pipeline currently mirrors the image (1) or not (0)",
	})

	controlCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "control",
		Name:      "commands_total",
		Help:      "Keyboard commands handled, by outcome",
	}, []string{"command", "result"})

	pipelineState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "state",
		Help:      "Current pipeline state (1 for the active state)",
	}, []string{"state"})

	pipelineErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "errors_total",
		Help:      "Pipeline bus errors by category",
	}, []string{"category"})

	resourcesHeld = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "resource_held",
		Help:      "Whether a session resource is currently held",
	}, []string{"resource"})

	resourceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "resource_failures_total",
		Help:      "Failed acquisitions or releases by resource",
	}, []string{"resource"})

	sessionsEnded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "ended_total",
		Help:      "Sessions ended, by the source that ended them",
	}, []string{"reason"})
)

var pipelineStates = []string{"idle", "playing", "paused", "closed"}

// Subscribe updates the metrics from bus events until the returned function
// is called.
func Subscribe(bus *events.Bus) func() {
	unsubs := []func(){
		bus.Subscribe(func(e events.CameraStateEvent) { RecordCameraState(e) }),
		bus.Subscribe(func(e events.ControlCommandEvent) { RecordCommand(e) }),
		bus.Subscribe(func(e events.PipelineStateEvent) { RecordPipelineState(e.State) }),
		bus.Subscribe(func(e events.PipelineErrorEvent) { pipelineErrors.WithLabelValues(e.Category).Inc() }),
		bus.Subscribe(func(e events.ResourceEvent) { RecordResource(e) }),
		bus.Subscribe(func(e events.SessionEndedEvent) { sessionsEnded.WithLabelValues(e.Reason).Inc() }),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}

// RecordCameraState sets the camera gauges.
func RecordCameraState(e events.CameraStateEvent) {
	if e.ZoomKnown {
		cameraZoomPercent.Set(float64(e.ZoomPercent))
	}
	cameraQuality.Set(float64(e.Quality))
	cameraCrop.WithLabelValues("x").Set(float64(e.CropX))
	cameraCrop.WithLabelValues("y").Set(float64(e.CropY))
	if e.Mirrored {
		cameraMirrored.Set(1)
	} else {
		cameraMirrored.Set(0)
	}
}

// RecordCommand counts a handled command.
func RecordCommand(e events.ControlCommandEvent) {
	result := "ok"
	if e.Error != "" {
		result = "error"
	}
	controlCommands.WithLabelValues(e.Command, result).Inc()
}

// RecordPipelineState marks state as the active pipeline state.
func RecordPipelineState(state string) {
	for _, s := range pipelineStates {
		if s == state {
			pipelineState.WithLabelValues(s).Set(1)
		} else {
			pipelineState.WithLabelValues(s).Set(0)
		}
	}
}

// RecordResource tracks held resources and failures.
func RecordResource(e events.ResourceEvent) {
	switch e.Action {
	case events.ResourceAcquired:
		resourcesHeld.WithLabelValues(e.Resource).Set(1)
	case events.ResourceReleased:
		resourcesHeld.WithLabelValues(e.Resource).Set(0)
	case events.ResourceFailed:
		resourceFailures.WithLabelValues(e.Resource).Inc()
	}
}
