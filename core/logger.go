package core

// Logger is implemented by the logging services.
// Args may contain errors, maps of extra data and at most one Identity.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Identity is the authenticated caller, as asserted by the identity provider's token.
type Identity struct {
	ID       string
	Username string
	Email    string
}

// Name is what gets recorded in audit columns such as updated_by.
func (id Identity) Name() string {
	if id.Username != "" {
		return id.Username
	}
	return id.ID
}

// Metrics receives engine events. Implementations must be safe for concurrent use.
type Metrics interface {
	ObserveResolution(outcome string)
	ObserveTransition(status string)
	ObserveMark(status string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveResolution(string) {}
func (nopMetrics) ObserveTransition(string) {}
func (nopMetrics) ObserveMark(string)       {}

// NopMetrics discards every event.
var NopMetrics Metrics = nopMetrics{}
