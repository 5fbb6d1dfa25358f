package control

// Command is a control action.
type Command int

const (
	CommandNothing Command = iota
	CommandQuit
	CommandZoomIn
	CommandZoomOut
	CommandQualityUp
	CommandQualityDown
	CommandToggleMirror
	CommandPanLeft
	CommandPanRight
	CommandPanUp
	CommandPanDown
)

var commandNames = [...]string{
	CommandNothing:      "nothing",
	CommandQuit:         "quit",
	CommandZoomIn:       "zoom-in",
	CommandZoomOut:      "zoom-out",
	CommandQualityUp:    "quality-up",
	CommandQualityDown:  "quality-down",
	CommandToggleMirror: "toggle-mirror",
	CommandPanLeft:      "pan-left",
	CommandPanRight:     "pan-right",
	CommandPanUp:        "pan-up",
	CommandPanDown:      "pan-down",
}

func (c Command) String() string {
	if c < 0 || int(c) >= len(commandNames) {
		return "unknown"
	}
	return commandNames[c]
}

// CommandForKey maps a key to its command.
func CommandForKey(k Key) Command {
	switch k {
	case 'q', KeyCtrlC, KeyCtrlD:
		return CommandQuit
	case 'z':
		return CommandZoomIn
	case 'Z':
		return CommandZoomOut
	case 't':
		return CommandQualityUp
	case 'T':
		return CommandQualityDown
	case 'f':
		return CommandToggleMirror
	case KeyLeft:
		return CommandPanLeft
	case KeyRight:
		return CommandPanRight
	case KeyUp:
		return CommandPanUp
	case KeyDown:
		return CommandPanDown
	default:
		return CommandNothing
	}
}
