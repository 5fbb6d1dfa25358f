// Package audio routes the phone's microphone into a virtual input device on
// the desktop sound server.
//
// Routing works through pactl, which both native PulseAudio and PipeWire's
// pulse compatibility layer understand. Setup loads a null sink the pipeline
// plays into, optionally stacks module-echo-cancel on top of its monitor, and
// switches the desktop defaults to the new devices. Teardown reverses each
// step that succeeded.
package audio
