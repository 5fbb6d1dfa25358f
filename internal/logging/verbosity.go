package logging

// DefaultVerbosity is the visibility level used when no -v/-q flags are given.
const DefaultVerbosity = 2

// VerbosityLevel maps a -v/-q adjusted visibility level to a level name.
// It reports false when the level equals the default, meaning the configured
// level should be kept.
func VerbosityLevel(verbose, quiet int) (string, bool) {
	level := Visibility(verbose, quiet)
	if level == DefaultVerbosity {
		return "", false
	}

	switch {
	case level <= 0:
		return "off", true
	case level == 1:
		return "error", true
	case level == 2:
		return "warn", true
	case level == 3:
		return "info", true
	case level == 4:
		return "debug", true
	default:
		return "trace", true
	}
}

// Visibility is the raw visibility level: DefaultVerbosity + verbose - quiet.
func Visibility(verbose, quiet int) int {
	return DefaultVerbosity + verbose - quiet
}
