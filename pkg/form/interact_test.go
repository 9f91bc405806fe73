package form

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-devsurvey/pkg/model"
	"github.com/goliatone/go-devsurvey/pkg/visibility"
)

func TestCheckEnforcesEveryCap(t *testing.T) {
	def := model.MustDefaultDefinition()
	for name, max := range def.Caps() {
		name, max := name, max
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			field, _ := def.Field(name)
			for i := 0; i < max; i++ {
				ok, err := f.ctrl.Check(name, field.Options[i].Value)
				if err != nil || !ok {
					t.Fatalf("check %d: ok=%v err=%v", i, ok, err)
				}
			}

			ok, err := f.ctrl.Check(name, field.Options[max].Value)
			if err != nil {
				t.Fatalf("check over cap: %v", err)
			}
			if ok {
				t.Fatalf("expected the extra check to be reverted")
			}
			checked, gotMax := f.ctrl.Counter(name)
			if checked != max || gotMax != max {
				t.Fatalf("counter %d/%d, want %d/%d", checked, gotMax, max, max)
			}
			if f.ctrl.Value(name).Contains(field.Options[max].Value) {
				t.Fatalf("reverted option still checked")
			}
			want := Notice{Level: LevelWarning, Message: fmt.Sprintf("Maximum %d selections allowed", max)}
			if diff := cmp.Diff(want, f.notifier.last()); diff != "" {
				t.Fatalf("notice mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSetValueRejectsOverCapList(t *testing.T) {
	f := newFixture(t)
	err := f.ctrl.SetValue("version_control", model.List("GitHub", "GitLab", "Bitbucket"))
	if !errors.Is(err, ErrCapExceeded) {
		t.Fatalf("expected ErrCapExceeded, got %v", err)
	}
	if got := f.ctrl.Value("version_control").Len(); got != 0 {
		t.Fatalf("expected no selections, got %d", got)
	}
}

func TestCheckboxOperations(t *testing.T) {
	f := newFixture(t)

	if _, err := f.ctrl.Check("age", "18-24"); !errors.Is(err, ErrNotCheckbox) {
		t.Fatalf("expected ErrNotCheckbox, got %v", err)
	}
	if _, err := f.ctrl.Check("languages", "COBOL-9000"); !errors.Is(err, ErrInvalidOption) {
		t.Fatalf("expected ErrInvalidOption, got %v", err)
	}
	if _, err := f.ctrl.Check("missing", "x"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}

	for _, v := range []string{"bootcamp", "self-taught", "bootcamp"} {
		if _, err := f.ctrl.Check("learned_coding", v); err != nil {
			t.Fatalf("check %s: %v", v, err)
		}
	}
	if diff := cmp.Diff([]string{"self-taught", "bootcamp"}, f.ctrl.Value("learned_coding").Items()); diff != "" {
		t.Fatalf("selection mismatch (-want +got):\n%s", diff)
	}

	if err := f.ctrl.Uncheck("learned_coding", "self-taught"); err != nil {
		t.Fatalf("uncheck: %v", err)
	}
	if diff := cmp.Diff([]string{"bootcamp"}, f.ctrl.Value("learned_coding").Items()); diff != "" {
		t.Fatalf("selection mismatch (-want +got):\n%s", diff)
	}
}

func TestSetValueValidatesOptions(t *testing.T) {
	f := newFixture(t)
	if err := f.ctrl.SetValue("age", model.Text("101")); !errors.Is(err, ErrInvalidOption) {
		t.Fatalf("expected ErrInvalidOption, got %v", err)
	}
	if err := f.ctrl.SetValue("university", model.List("a")); !errors.Is(err, ErrInvalidOption) {
		t.Fatalf("expected list rejection, got %v", err)
	}
	if err := f.ctrl.SetValue("email", model.Text("x@y.z")); !errors.Is(err, ErrHidden) {
		t.Fatalf("expected hidden email to reject writes, got %v", err)
	}
}

func TestConditionalGroups(t *testing.T) {
	f := newFixture(t)

	for _, name := range []string{"diaspora_country", "diaspora_city", "diaspora_engagement", "email", "job_title_other"} {
		fs, _ := f.ctrl.Field(name)
		if fs.Visible || fs.Required {
			t.Fatalf("%s should start hidden and optional: %+v", name, fs)
		}
	}

	mustSet(t, f.ctrl, "province", model.Text("Diaspora"))
	for name, wantRequired := range map[string]bool{"diaspora_country": true, "diaspora_city": true, "diaspora_engagement": false} {
		fs, _ := f.ctrl.Field(name)
		if !fs.Visible || fs.Required != wantRequired {
			t.Fatalf("%s after reveal: %+v", name, fs)
		}
	}
	mustSet(t, f.ctrl, "diaspora_country", model.Text("South Africa"))
	mustSet(t, f.ctrl, "diaspora_city", model.Text("Johannesburg"))

	mustSet(t, f.ctrl, "province", model.Text("Harare"))
	for _, name := range []string{"diaspora_country", "diaspora_city"} {
		fs, _ := f.ctrl.Field(name)
		if fs.Visible || fs.Required || !fs.Value.Empty() {
			t.Fatalf("%s should be hidden and cleared: %+v", name, fs)
		}
	}
	if _, ok := f.ctrl.CollectData()["diaspora_country"]; ok {
		t.Fatalf("hidden value leaked into collected data")
	}

	mustSet(t, f.ctrl, "receive_report", model.Text("Yes, send me the report"))
	if fs, _ := f.ctrl.Field("email"); !fs.Visible || !fs.Required {
		t.Fatalf("email should be required after opting in: %+v", fs)
	}
	mustSet(t, f.ctrl, "receive_report", model.Text("No thanks"))
	if fs, _ := f.ctrl.Field("email"); fs.Visible || fs.Required {
		t.Fatalf("email should be hidden after opting out: %+v", fs)
	}

	mustSet(t, f.ctrl, "job_title", model.Text("Other"))
	if fs, _ := f.ctrl.Field("job_title_other"); !fs.Visible || !fs.Required {
		t.Fatalf("job_title_other should be required: %+v", fs)
	}
}

func TestResetClearsEverything(t *testing.T) {
	f := newFixture(t)
	fillRequired(t, f.ctrl)
	mustSet(t, f.ctrl, "province", model.Text("Diaspora"))
	f.ctrl.Reset()

	for _, h := range f.ctrl.Registry().Fields() {
		fs, _ := f.ctrl.Field(h.Name())
		if !fs.Value.Empty() || fs.Decoration != Untouched {
			t.Fatalf("%s not reset: %+v", h.Name(), fs)
		}
	}
	if fs, _ := f.ctrl.Field("diaspora_city"); fs.Visible {
		t.Fatalf("conditional group should be hidden after reset")
	}
	if f.ctrl.Dirty() {
		t.Fatalf("reset form must not be dirty")
	}
}

func TestConditionsReadExtras(t *testing.T) {
	def := *model.MustDefaultDefinition()
	def.Conditions = append(append([]model.Condition(nil), def.Conditions...),
		model.Condition{When: `extras.channel == "kiosk"`, Show: []string{"university"}})

	plain, err := New(&def)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if fs, _ := plain.Field("university"); fs.Visible {
		t.Fatalf("university must stay hidden without the extra")
	}

	kiosk, err := New(&def, WithExtras(map[string]string{"channel": "kiosk"}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if fs, _ := kiosk.Field("university"); !fs.Visible {
		t.Fatalf("university must be shown for the kiosk channel")
	}
}

func TestWithEvaluatorDrivesVisibility(t *testing.T) {
	var rules []string
	always := visibility.EvaluatorFunc(func(rule string, ctx visibility.Context) (bool, error) {
		rules = append(rules, rule)
		return true, nil
	})
	f := newFixture(t, WithEvaluator(always))

	if len(rules) == 0 {
		t.Fatalf("custom evaluator was not consulted")
	}
	for _, cond := range f.ctrl.Definition().Conditions {
		for _, name := range cond.Show {
			if fs, _ := f.ctrl.Field(name); !fs.Visible {
				t.Fatalf("%s must be visible when every rule holds", name)
			}
		}
	}
}
