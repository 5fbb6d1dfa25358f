package audio

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smazurov/dcam/internal/process/processtest"
)

const pipewireInfo = `Server String: /run/user/1000/pulse/native
Library Protocol Version: 35
Server Protocol Version: 35
Is Local: yes
Client Index: 112
Tile Size: 65472
User Name: ops
Host Name: studio
Server Name: PulseAudio (on PipeWire 1.0.5)
Server Version: 15.0.0
Default Sample Specification: float32le 2ch 48000Hz
Default Channel Map: front-left,front-right
Default Sink: alsa_output.pci-0000_00_1f.3.analog-stereo
Default Source: alsa_input.pci-0000_00_1f.3.analog-stereo
Cookie: 1234:abcd`

const oldPipewireInfo = `Server Name: PulseAudio (on PipeWire 0.3.32)
Server Version: 14.0.0
Default Sink: speakers
Default Source: builtin_mic`

const pulseInfo = `Server Name: pulseaudio
Server Version: 16.1
Default Sink: speakers
Default Source: builtin_mic`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseServerInfo(t *testing.T) {
	info, err := ParseServerInfo(pipewireInfo)
	require.NoError(t, err)

	assert.Equal(t, "PulseAudio (on PipeWire 1.0.5)", info.ServerName)
	assert.Equal(t, "15.0.0", info.ServerVersion)
	assert.Equal(t, "alsa_output.pci-0000_00_1f.3.analog-stereo", info.DefaultSink)
	assert.Equal(t, "alsa_input.pci-0000_00_1f.3.analog-stereo", info.DefaultSource)
}

func TestParseServerInfoMissingName(t *testing.T) {
	_, err := ParseServerInfo("Default Sink: x\n")
	require.Error(t, err)
}

func TestProbeBackend(t *testing.T) {
	tests := []struct {
		name       string
		info       ServerInfo
		wantOK     bool
		wantEngine Engine
		wantEcho   bool
	}{
		{"pipewire new", ServerInfo{ServerName: "PulseAudio (on PipeWire 1.0.5)", ServerVersion: "15.0.0"}, true, EnginePipeWire, true},
		{"pipewire threshold", ServerInfo{ServerName: "PulseAudio (on PipeWire 0.3.40)"}, true, EnginePipeWire, true},
		{"pipewire old", ServerInfo{ServerName: "PulseAudio (on PipeWire 0.3.32)", ServerVersion: "14.0.0"}, true, EnginePipeWire, false},
		{"pulseaudio", ServerInfo{ServerName: "pulseaudio", ServerVersion: "16.1"}, true, EnginePulseAudio, true},
		{"pulseaudio suffix", ServerInfo{ServerName: "pulseaudio", ServerVersion: "13.99.1-rebootstrapped"}, true, EnginePulseAudio, true},
		{"pulseaudio ancient", ServerInfo{ServerName: "pulseaudio", ServerVersion: "1.1"}, true, EnginePulseAudio, false},
		{"unknown", ServerInfo{ServerName: "JACK"}, false, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, ok := ProbeBackend(tt.info)
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.wantEngine, backend.Engine)
			assert.Equal(t, tt.wantEcho, backend.SupportsEchoCancel())
		})
	}
}

func TestSetupWithEchoCancel(t *testing.T) {
	fake := processtest.NewFake().
		On("pactl info", processtest.Response{Output: pipewireInfo}).
		OnPrefix("pactl load-module module-null-sink", processtest.Response{Output: "536870913"}).
		OnPrefix("pactl load-module module-echo-cancel", processtest.Response{Output: "536870914\n"})

	r, err := Setup(context.Background(), fake, Options{EchoCancel: true, Logger: testLogger()})
	require.NoError(t, err)

	assert.Equal(t, uint32(536870913), r.VirtualSinkID)
	assert.Equal(t, EchoCancelEnabled{ModuleID: 536870914}, r.EchoCancel)
	assert.Equal(t, DefaultSinkName, r.PlaybackSink())

	require.NoError(t, r.Teardown(context.Background()))

	assert.Equal(t, []string{
		"pactl info",
		"pactl load-module module-null-sink sink_name=dcam_sink sink_properties=device.description=dcam_sink",
		"pactl load-module module-echo-cancel source_master=dcam_sink.monitor sink_master=alsa_output.pci-0000_00_1f.3.analog-stereo source_name=dcam_mic sink_name=dcam_echo_sink use_master_format=1 aec_method=webrtc",
		"pactl set-default-sink dcam_echo_sink",
		"pactl set-default-source dcam_mic",
		"pactl set-default-source alsa_input.pci-0000_00_1f.3.analog-stereo",
		"pactl set-default-sink alsa_output.pci-0000_00_1f.3.analog-stereo",
		"pactl unload-module 536870914",
		"pactl unload-module 536870913",
	}, fake.Lines())
}

func TestSetupBelowEchoThreshold(t *testing.T) {
	fake := processtest.NewFake().
		On("pactl info", processtest.Response{Output: oldPipewireInfo}).
		OnPrefix("pactl load-module module-null-sink", processtest.Response{Output: "7"})

	r, err := Setup(context.Background(), fake, Options{EchoCancel: true, Logger: testLogger()})
	require.NoError(t, err)

	_, disabled := r.EchoCancel.(EchoCancelDisabled)
	assert.True(t, disabled)

	require.NoError(t, r.Teardown(context.Background()))

	lines := fake.Lines()
	assert.Equal(t, []string{
		"pactl info",
		"pactl load-module module-null-sink sink_name=dcam_sink sink_properties=device.description=dcam_sink",
		"pactl set-default-sink dcam_sink",
		"pactl set-default-source dcam_sink.monitor",
		"pactl set-default-source builtin_mic",
		"pactl set-default-sink speakers",
		"pactl unload-module 7",
	}, lines)
	for _, line := range lines {
		assert.NotContains(t, line, "module-echo-cancel")
	}
}

func TestSetupEchoCancelOptOut(t *testing.T) {
	fake := processtest.NewFake().
		On("pactl info", processtest.Response{Output: pulseInfo}).
		OnPrefix("pactl load-module module-null-sink", processtest.Response{Output: "3"})

	r, err := Setup(context.Background(), fake, Options{EchoCancel: false, Logger: testLogger()})
	require.NoError(t, err)

	state, ok := r.EchoCancel.(EchoCancelDisabled)
	require.True(t, ok)
	assert.Equal(t, "disabled by configuration", state.Reason)

	require.NoError(t, r.Teardown(context.Background()))
	assert.Equal(t, []string{
		"pactl info",
		"pactl load-module module-null-sink sink_name=dcam_sink sink_properties=device.description=dcam_sink",
		"pactl set-default-sink dcam_sink",
		"pactl set-default-source dcam_sink.monitor",
		"pactl set-default-source builtin_mic",
		"pactl set-default-sink speakers",
		"pactl unload-module 3",
	}, fake.Lines())
}

func TestSetupUnwindsOnFailure(t *testing.T) {
	boom := errors.New("Failure: Module initialization failed")
	fake := processtest.NewFake().
		On("pactl info", processtest.Response{Output: pulseInfo}).
		OnPrefix("pactl load-module module-null-sink", processtest.Response{Output: "11"}).
		OnPrefix("pactl load-module module-echo-cancel", processtest.Response{Err: boom})

	r, err := Setup(context.Background(), fake, Options{EchoCancel: true, Logger: testLogger()})
	require.ErrorIs(t, err, boom)
	assert.Nil(t, r)

	lines := fake.Lines()
	assert.Equal(t, "pactl unload-module 11", lines[len(lines)-1])
	assert.NotContains(t, lines, "pactl set-default-source dcam_mic")
}

func TestSetupInfoFailure(t *testing.T) {
	fake := processtest.NewFake().On("pactl info", processtest.Response{Err: errors.New("Connection refused")})

	_, err := Setup(context.Background(), fake, Options{Logger: testLogger()})
	require.Error(t, err)
	assert.Equal(t, []string{"pactl info"}, fake.Lines())
}

func TestTeardownContinuesPastFailures(t *testing.T) {
	boom := errors.New("No such entity")
	fake := processtest.NewFake().
		On("pactl info", processtest.Response{Output: pulseInfo}).
		OnPrefix("pactl load-module module-null-sink", processtest.Response{Output: "5"}).
		On("pactl set-default-source builtin_mic", processtest.Response{Err: boom})

	r, err := Setup(context.Background(), fake, Options{Logger: testLogger()})
	require.NoError(t, err)

	err = r.Teardown(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, fake.Lines(), "pactl set-default-sink speakers")
	assert.Contains(t, fake.Lines(), "pactl unload-module 5")
}
