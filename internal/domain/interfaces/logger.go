// Package interfaces holds the contracts shared by every layer.
//
//nolint:revive // Package name 'interfaces' is intentional for domain layer
package interfaces

// Logger writes leveled messages with key=value fields.
// Generation progress goes to Debug and Info; anything that changes the
// meaning of the document (fake versions, skipped records) goes to Warn.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field is one key=value pair of a log line
type Field struct {
	Key   string
	Value any
}

// F builds a Field
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// NoOpLogger drops everything. It stands in until the console logger is
// configured and when callers pass no logger.
type NoOpLogger struct{}

func (*NoOpLogger) Debug(string, ...Field) {}
func (*NoOpLogger) Info(string, ...Field)  {}
func (*NoOpLogger) Warn(string, ...Field)  {}
func (*NoOpLogger) Error(string, ...Field) {}
