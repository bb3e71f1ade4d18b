package core

// Logger is any service that can record application events.
// args may hold an error, a map[string]interface{} of extra fields or a person to attach the event to.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Person is the authenticated user an event is attached to.
type Person struct {
	ID       string
	Username string
	Email    string
}
