package terminal

import (
	"bytes"
	"testing"

	"github.com/goliatone/go-devsurvey/pkg/form"
)

func TestNotifierPrintsByLevel(t *testing.T) {
	var buf bytes.Buffer
	n := NewNotifier(&buf)

	n.Notify(form.Notice{Level: form.LevelWarning, Message: "Maximum 3 selections allowed"})
	n.Busy(true)
	n.Busy(false)
	n.ShowSummary(form.Summary{Text: "Please fix 1 error(s):\n  - Age range is required\n"})
	n.ShowSummary(form.Summary{})
	n.Focus("age")

	want := "[!] Maximum 3 selections allowed\nSubmitting...\nPlease fix 1 error(s):\n  - Age range is required\n"
	if got := buf.String(); got != want {
		t.Fatalf("output =\n%q\nwant\n%q", got, want)
	}
	if got := n.Focused(); got != "age" {
		t.Fatalf("Focused = %q", got)
	}
	if got := len(n.Notices()); got != 1 {
		t.Fatalf("Notices = %d", got)
	}

	buf.Reset()
	n.SetTheme(Theme{ErrorPrefix: "ERR "})
	n.Notify(form.Notice{Level: form.LevelError, Message: "Failed"})
	if got := buf.String(); got != "ERR Failed\n" {
		t.Fatalf("themed output = %q", got)
	}
}
