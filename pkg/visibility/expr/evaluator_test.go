package expr

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-devsurvey/pkg/model"
	"github.com/goliatone/go-devsurvey/pkg/visibility"
)

func values(kv ...any) visibility.Context {
	ctx := visibility.Context{Values: map[string]model.Value{}}
	for i := 0; i+1 < len(kv); i += 2 {
		switch v := kv[i+1].(type) {
		case string:
			ctx.Values[kv[i].(string)] = model.Text(v)
		case []string:
			ctx.Values[kv[i].(string)] = model.List(v...)
		}
	}
	return ctx
}

func TestEvaluatorRules(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		rule string
		ctx  visibility.Context
		want bool
	}{
		{"empty rule holds", "  ", values(), true},
		{"equality", `job_title == "Other"`, values("job_title", "Other"), true},
		{"equality is case sensitive", `job_title == "Other"`, values("job_title", "other"), false},
		{"inequality", `job_title != "Other"`, values("job_title", "Engineer"), true},
		{"bare word literal", `job_title == Other`, values("job_title", "Other"), true},
		{"contains ignores case", `receive_report ~= "yes"`, values("receive_report", "Yes, send me the report"), true},
		{"contains misses", `receive_report ~= "Yes"`, values("receive_report", "No thanks"), false},
		{"membership", `province in ["Diaspora", "diaspora"]`, values("province", "diaspora"), true},
		{"membership misses", `province in ["Diaspora", "diaspora"]`, values("province", "Harare"), false},
		{"missing value", `province in ["Diaspora"]`, values(), false},
		{"list equality matches any item", `languages == "Go"`, values("languages", []string{"Python", "Go"}), true},
		{"list membership", `languages in ["Rust", "Go"]`, values("languages", []string{"Go"}), true},
		{"truthy text", "email", values("email", "a@b.c"), true},
		{"truthy false string", "flag", values("flag", "false"), false},
		{"truthy empty list", "languages", values("languages", []string{}), false},
		{"not", "!email", values(), true},
		{"empty string equality", `email == ""`, values(), true},
		{"null literal", `email != null`, values("email", "x"), true},
		{"number", `team_size == 5`, values("team_size", "5"), true},
		{"and or precedence", `a == "1" || b == "1" && c == "1"`, values("a", "1"), true},
		{"parens", `(a == "1" || b == "1") && c == "1"`, values("a", "1"), false},
		{"single quotes", `name == 'it\'s'`, values("name", "it's"), true},
		{"extras", `extras.mode == "debug"`, visibility.Context{Extras: map[string]string{"mode": "debug"}}, true},
	}

	eval := New()
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := eval.Eval(tc.rule, tc.ctx)
			if err != nil {
				t.Fatalf("Eval returned error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("rule %q: expected %v, got %v", tc.rule, tc.want, got)
			}
		})
	}
}

func TestCompileErrors(t *testing.T) {
	t.Parallel()

	for _, rule := range []string{
		`a = "x"`,
		`a ~ "x"`,
		`a & b`,
		`a | b`,
		`a == "x`,
		`(a == "x"`,
		`a in "x"`,
		`a in ["x"`,
		`a ~= true`,
		`== "x"`,
		`a b`,
	} {
		if _, err := Compile(rule); err == nil {
			t.Errorf("expected %q to fail", rule)
		}
	}
}

func TestCompileReportsFields(t *testing.T) {
	t.Parallel()

	prog := MustCompile(`(province in ["Diaspora"] || job_title == Other) && !extras.preview && email`)
	if diff := cmp.Diff([]string{"email", "job_title", "province"}, prog.Fields()); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
}
