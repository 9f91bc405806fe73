package terminal

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/goliatone/go-devsurvey/pkg/form"
)

// Theme holds the message prefixes printed per notice level.
type Theme struct {
	InfoPrefix    string
	SuccessPrefix string
	WarningPrefix string
	ErrorPrefix   string
}

// DefaultTheme uses plain ASCII markers.
var DefaultTheme = Theme{
	InfoPrefix:    "[i] ",
	SuccessPrefix: "[ok] ",
	WarningPrefix: "[!] ",
	ErrorPrefix:   "[x] ",
}

func (t Theme) prefix(level form.Level) string {
	switch level {
	case form.LevelSuccess:
		return t.SuccessPrefix
	case form.LevelWarning:
		return t.WarningPrefix
	case form.LevelError:
		return t.ErrorPrefix
	default:
		return t.InfoPrefix
	}
}

// Notifier prints controller notices to a writer and remembers the last
// focus request so the runner can jump back to the offending field.
type Notifier struct {
	mu      sync.Mutex
	w       io.Writer
	theme   Theme
	focus   string
	notices []form.Notice
}

// NewNotifier writes to w using DefaultTheme.
func NewNotifier(w io.Writer) *Notifier {
	return &Notifier{w: w, theme: DefaultTheme}
}

// SetTheme replaces the prefixes.
func (n *Notifier) SetTheme(theme Theme) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.theme = theme
}

func (n *Notifier) Notify(notice form.Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
	fmt.Fprintf(n.w, "%s%s\n", n.theme.prefix(notice.Level), notice.Message)
}

func (n *Notifier) Busy(on bool) {
	if !on {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintln(n.w, "Submitting...")
}

func (n *Notifier) ShowSummary(s form.Summary) {
	text := strings.TrimRight(s.Text, "\n")
	if text == "" {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintln(n.w, text)
}

func (n *Notifier) Focus(field string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.focus = field
}

// Focused returns the last focus request.
func (n *Notifier) Focused() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.focus
}

// Notices returns every notice printed so far.
func (n *Notifier) Notices() []form.Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]form.Notice(nil), n.notices...)
}
