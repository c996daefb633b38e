package contracts

import "time"

// LogLevel represents the severity level for logging.
type LogLevel int

const (
	// InfoLevel is the default level: stream lifecycle and device selection.
	InfoLevel LogLevel = iota
	// DebugLevel adds per-flush and per-transport-call details.
	DebugLevel
	// ErrorLevel reports failed device calls.
	ErrorLevel
	// WarnLevel reports dropped notifications and recoverable conditions.
	WarnLevel
	// FatalLevel terminates the process after logging.
	FatalLevel
)

// LogDestination specifies where log messages are written.
type LogDestination string

const (
	// ConsoleLog writes to standard error.
	ConsoleLog LogDestination = "console"
	// FileLog appends to a file given to SetDestination.
	FileLog LogDestination = "file"
)

// Field builds a typed key/value pair attached to a log message.
type Field interface {
	Bool(key string, val bool) Field
	Int(key string, val int) Field
	Float64(key string, val float64) Field
	String(key string, val string) Field
	Time(key string, val time.Time) Field
	Int64(key string, val int64) Field
	Error(key string, val error) Field
	Uint64(key string, val uint64) Field
	Uint32(key string, val uint32) Field
	Uint8(key string, val uint8) Field
}

// Logger is the logging surface used by the stream and the device drivers.
type Logger interface {
	Info(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	Field() Field

	SetLevel(level LogLevel)
	SetDestination(dest LogDestination, filePath ...string)
}
