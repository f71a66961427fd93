package application

// Logger is the ambient structured-logging contract every layer of this
// repo logs through — actual log sinks, formats, and rotation live
// outside this interface. WithField lets a SessionError's Kind be
// attached as a structured field without string-formatting it first.
type Logger interface {
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Warnf(format string, v ...any)
	Errorf(format string, v ...any)
	// WithField returns a derived Logger that attaches key=value to every
	// subsequent line, e.g. WithField("client_id", id).
	WithField(key string, value any) Logger
}
