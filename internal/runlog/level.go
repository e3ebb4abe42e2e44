package runlog

import "strings"

// Level is a normalized log level as stored in processamento_log.level.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
	LevelFatal Level = "FATAL"
)

// ParseLevel normalizes s. WARNING maps to WARN, CRITICAL to FATAL and
// anything unrecognized to INFO.
func ParseLevel(s string) Level {
	switch l := Level(strings.ToUpper(strings.TrimSpace(s))); l {
	case LevelDebug, LevelInfo, LevelWarn, LevelError, LevelFatal:
		return l
	case "WARNING":
		return LevelWarn
	case "CRITICAL":
		return LevelFatal
	default:
		return LevelInfo
	}
}

// Status is the state of a run in processamento.status.
type Status string

const (
	StatusRunning Status = "RUNNING"
	StatusSuccess Status = "SUCCESS"
	StatusError   Status = "ERROR"
)

// DefaultPersistLevels are the levels written to processamento_log during a run.
var DefaultPersistLevels = []Level{LevelWarn, LevelError, LevelFatal}
