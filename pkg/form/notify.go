package form

// Level classifies a notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a transient message for the user.
type Notice struct {
	Level   Level
	Message string
}

// Summary is the aggregate error list shown after a failed validation run. A
// zero Summary clears any summary on screen.
type Summary struct {
	Errors []ValidationError
	Text   string
}

// Notifier is the screen. Methods are never called while the controller
// holds its lock, so implementations may call back into the controller.
type Notifier interface {
	Notify(n Notice)
	Busy(on bool)
	ShowSummary(s Summary)
	Focus(field string)
}

type nopNotifier struct{}

func (nopNotifier) Notify(Notice)       {}
func (nopNotifier) Busy(bool)           {}
func (nopNotifier) ShowSummary(Summary) {}
func (nopNotifier) Focus(string)        {}

// outbox buffers notifier calls made under the lock.
type outbox struct {
	calls []func(Notifier)
}

func (o *outbox) notify(level Level, message string) {
	o.calls = append(o.calls, func(n Notifier) { n.Notify(Notice{Level: level, Message: message}) })
}

func (o *outbox) summary(s Summary) {
	o.calls = append(o.calls, func(n Notifier) { n.ShowSummary(s) })
}

func (o *outbox) focus(field string) {
	o.calls = append(o.calls, func(n Notifier) { n.Focus(field) })
}

func (o *outbox) flush(n Notifier) {
	for _, call := range o.calls {
		call(n)
	}
	o.calls = nil
}
