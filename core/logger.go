package core

// Logger is any service that can record application events.
// Extra args may be errors, maps of context data, or the acting member.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Person identifies the acting member in log records.
type Person struct {
	ID    string
	Name  string
	Email string
}
