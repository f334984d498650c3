package core

// Logger is any logging service.
// args may hold errors, maps of extra data, or the user the log entry relates to.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// LogPerson identifies the user a log entry relates to.
type LogPerson struct {
	ID    string
	Email string
}
