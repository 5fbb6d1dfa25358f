package audio

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/smazurov/dcam/internal/process"
)

// DefaultPactlPath is the pactl binary looked up on PATH.
const DefaultPactlPath = "pactl"

// ServerInfo holds the fields of `pactl info` the router needs.
type ServerInfo struct {
	ServerName    string
	ServerVersion string
	DefaultSink   string
	DefaultSource string
}

// QueryServerInfo runs `pactl info` and parses its output.
func QueryServerInfo(ctx context.Context, runner process.Runner, pactlPath string) (ServerInfo, error) {
	if pactlPath == "" {
		pactlPath = DefaultPactlPath
	}
	out, err := runner.Output(ctx, pactlPath, "info")
	if err != nil {
		return ServerInfo{}, fmt.Errorf("query sound server: %w", err)
	}
	return ParseServerInfo(out)
}

// ParseServerInfo parses the "Key: value" lines printed by `pactl info`.
func ParseServerInfo(out string) (ServerInfo, error) {
	var info ServerInfo

	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.TrimSpace(key) {
		case "Server Name":
			info.ServerName = value
		case "Server Version":
			info.ServerVersion = value
		case "Default Sink":
			info.DefaultSink = value
		case "Default Source":
			info.DefaultSource = value
		}
	}
	if err := scanner.Err(); err != nil {
		return ServerInfo{}, fmt.Errorf("read pactl info: %w", err)
	}
	if info.ServerName == "" {
		return ServerInfo{}, fmt.Errorf("pactl info: missing server name")
	}
	return info, nil
}
