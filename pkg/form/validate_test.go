package form

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-devsurvey/pkg/model"
)

func TestValidateFormNamesEachMissingRequiredField(t *testing.T) {
	ref := newFixture(t).ctrl
	var required []string
	for _, h := range ref.Registry().Fields() {
		fs, _ := ref.Field(h.Name())
		if fs.Visible && (fs.Required || ref.Definition().IsServerRequired(h.Name())) {
			required = append(required, h.Name())
		}
	}
	if diff := cmp.Diff([]string{"age", "province", "education_level", "employment_status", "consent"}, required); diff != "" {
		t.Fatalf("required set mismatch (-want +got):\n%s", diff)
	}

	for _, name := range required {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			fillRequired(t, f.ctrl)
			if res := f.ctrl.ValidateForm(); !res.Valid {
				t.Fatalf("expected filled form to be valid, got %v", res.Fields())
			}

			h, _ := f.ctrl.Registry().Lookup(name)
			mustSet(t, f.ctrl, name, emptyValue(h.Field))

			res := f.ctrl.ValidateForm()
			if res.Valid {
				t.Fatalf("expected invalid result")
			}
			if diff := cmp.Diff([]string{name}, res.Fields()); diff != "" {
				t.Fatalf("errors mismatch (-want +got):\n%s", diff)
			}
			if f.ctrl.Focus() != name {
				t.Fatalf("expected focus on %s, got %q", name, f.ctrl.Focus())
			}
			fs, _ := f.ctrl.Field(name)
			if fs.Decoration != Invalid || fs.Message == "" {
				t.Fatalf("expected invalid decoration, got %+v", fs)
			}
		})
	}
}

func TestValidateFormOrdersServerFieldsFirst(t *testing.T) {
	f := newFixture(t)
	res := f.ctrl.ValidateForm()

	want := []ValidationError{
		{Field: "age", Message: "Age range is required by the server"},
		{Field: "employment_status", Message: "Employment status is required by the server"},
		{Field: "province", Message: "Where are you based? is required"},
		{Field: "education_level", Message: "Highest level of education is required"},
		{Field: "consent", Message: "You must check the consent box to submit the survey"},
	}
	if diff := cmp.Diff(want, res.Errors, cmpIgnoreHandle); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}

	if len(f.notifier.summaries) == 0 {
		t.Fatalf("expected an error summary")
	}
	summary := f.notifier.summaries[len(f.notifier.summaries)-1]
	if !strings.HasPrefix(summary.Text, "Please fix 5 error(s):") {
		t.Fatalf("unexpected summary %q", summary.Text)
	}
	if !strings.Contains(summary.Text, "- You must check the consent box to submit the survey") {
		t.Fatalf("summary misses consent line: %q", summary.Text)
	}
	if diff := cmp.Diff([]string{"age"}, f.notifier.focus); diff != "" {
		t.Fatalf("focus mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateFormClearsStaleDecorations(t *testing.T) {
	f := newFixture(t)
	f.ctrl.ValidateForm()
	fillRequired(t, f.ctrl)

	res := f.ctrl.ValidateForm()
	if !res.Valid {
		t.Fatalf("expected valid form, got %v", res.Fields())
	}
	for _, h := range f.ctrl.Registry().Fields() {
		fs, _ := f.ctrl.Field(h.Name())
		if fs.Decoration == Invalid {
			t.Fatalf("stale decoration on %s", h.Name())
		}
	}
	if f.ctrl.Focus() != "" {
		t.Fatalf("expected focus cleared, got %q", f.ctrl.Focus())
	}
}

func TestValidateFieldMessages(t *testing.T) {
	f := newFixture(t)

	if f.ctrl.ValidateField("nope") {
		t.Fatalf("unknown field must be invalid")
	}

	mustSet(t, f.ctrl, "age", model.Text("Select..."))
	if f.ctrl.ValidateField("age") {
		t.Fatalf("placeholder must not satisfy a required select")
	}
	fs, _ := f.ctrl.Field("age")
	if fs.Message != "Please select an option" {
		t.Fatalf("unexpected message %q", fs.Message)
	}

	mustSet(t, f.ctrl, "receive_report", model.Text("Yes, send me the report"))
	mustSet(t, f.ctrl, "email", model.Text("not-an-email"))
	if f.ctrl.ValidateField("email") {
		t.Fatalf("malformed email must be invalid")
	}
	fs, _ = f.ctrl.Field("email")
	if fs.Message != "Please enter a valid email address" {
		t.Fatalf("unexpected message %q", fs.Message)
	}

	mustSet(t, f.ctrl, "email", model.Text("dev@example.co.zw"))
	if !f.ctrl.ValidateField("email") {
		t.Fatalf("well-formed email must be valid")
	}
	fs, _ = f.ctrl.Field("email")
	if fs.Decoration != Valid {
		t.Fatalf("expected valid decoration, got %s", fs.Decoration)
	}

	if !f.ctrl.ValidateField("university") {
		t.Fatalf("empty optional field must be valid")
	}
	fs, _ = f.ctrl.Field("university")
	if fs.Decoration != Untouched {
		t.Fatalf("empty optional field must stay untouched, got %s", fs.Decoration)
	}
}

func TestRenderSummaryHTML(t *testing.T) {
	r, err := NewSummaryRenderer(WithSummaryTemplate(SummaryHTML))
	if err != nil {
		t.Fatalf("NewSummaryRenderer: %v", err)
	}
	out, err := r.Render([]ValidationError{{Field: "age", Message: "Age <b>range</b> is required"}})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, `data-field="age"`) || !strings.Contains(out, "Please fix 1 error(s):") {
		t.Fatalf("unexpected html summary %q", out)
	}
	if strings.Contains(out, "<b>") {
		t.Fatalf("html summary must escape messages: %q", out)
	}
}
