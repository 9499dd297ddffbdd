package rules

import (
	"testing"
)

func enabledRule(id, category, pattern, action string) Rule {
	return Rule{ID: id, Category: category, Pattern: pattern, Action: action, Enabled: true}
}

func TestCompilePlaceholderSubstitution(t *testing.T) {
	r := NewRegistry(nil)
	n := r.Compile([]Rule{
		enabledRule("start-install", CategoryAlways, "Start install for {GUID}", "appState"),
	})
	if n != 1 {
		t.Fatalf("Compile() = %d active rules, want 1", n)
	}

	set := r.ActiveSet(true)
	if len(set) != 1 {
		t.Fatalf("ActiveSet() = %d rules, want 1", len(set))
	}
	rule := set[0]

	line := "Start install for 3f2504e0-4f89-11d3-9a0c-0305e82c3301 now"
	match := rule.Regex.FindStringSubmatch(line)
	if match == nil {
		t.Fatalf("pattern did not match %q", line)
	}
	if got := rule.AppID(match); got != "3f2504e0-4f89-11d3-9a0c-0305e82c3301" {
		t.Errorf("AppID() = %q", got)
	}

	if rule.Regex.MatchString("Start install for not-a-guid") {
		t.Error("pattern matched a non-UUID token")
	}
}

func TestCompileDoublePlaceholder(t *testing.T) {
	r := NewRegistry(nil)
	n := r.Compile([]Rule{
		enabledRule("supersedence", CategoryAlways, "App {GUID} supersedes {GUID}", "appState"),
	})
	if n != 1 {
		t.Fatalf("Compile() = %d, want 1 (duplicate group name must not break compilation)", n)
	}

	rule := r.ActiveSet(true)[0]
	line := "App 11111111-2222-3333-4444-555555555555 supersedes aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"
	match := rule.Regex.FindStringSubmatch(line)
	if match == nil {
		t.Fatalf("pattern did not match %q", line)
	}
	if got := rule.AppID(match); got != "11111111-2222-3333-4444-555555555555" {
		t.Errorf("AppID() = %q, want first GUID", got)
	}
}

func TestCompileBadRuleTolerance(t *testing.T) {
	r := NewRegistry(nil)
	n := r.Compile([]Rule{
		enabledRule("good-one", CategoryAlways, "agent started", "agentStarted"),
		enabledRule("broken", CategoryAlways, "unclosed [group", "appState"),
		enabledRule("good-two", CategoryCurrentPhase, "Installing {GUID}", "appState"),
		{ID: "empty", Category: CategoryAlways, Pattern: "", Action: "appState", Enabled: true},
	})
	if n != 2 {
		t.Fatalf("Compile() = %d active rules, want 2 (bad rules dropped)", n)
	}

	set := r.ActiveSet(true)
	ids := make(map[string]bool)
	for _, c := range set {
		ids[c.ID] = true
	}
	if !ids["good-one"] || !ids["good-two"] {
		t.Errorf("surviving rules = %v", ids)
	}
}

func TestCompileSkipsDisabled(t *testing.T) {
	r := NewRegistry(nil)
	n := r.Compile([]Rule{
		{ID: "off", Category: CategoryAlways, Pattern: "x", Action: "appState", Enabled: false},
	})
	if n != 0 {
		t.Errorf("Compile() = %d, want 0", n)
	}
}

func TestActiveSetCategories(t *testing.T) {
	r := NewRegistry(nil)
	r.Compile([]Rule{
		enabledRule("always", CategoryAlways, "a", "appState"),
		enabledRule("current", CategoryCurrentPhase, "b", "appState"),
		enabledRule("other", CategoryOtherPhases, "c", "appState"),
		enabledRule("uncategorized", "SomeNewCategory", "d", "appState"),
	})

	idsOf := func(set []*CompiledRule) map[string]bool {
		m := make(map[string]bool)
		for _, c := range set {
			m[c.ID] = true
		}
		return m
	}

	current := idsOf(r.ActiveSet(true))
	if !current["always"] || !current["current"] || !current["uncategorized"] || current["other"] {
		t.Errorf("ActiveSet(true) = %v", current)
	}

	other := idsOf(r.ActiveSet(false))
	if !other["always"] || !other["other"] || !other["uncategorized"] || other["current"] {
		t.Errorf("ActiveSet(false) = %v", other)
	}
}

func TestCompileReplacesAtomically(t *testing.T) {
	r := NewRegistry(nil)
	r.Compile([]Rule{enabledRule("v1", CategoryAlways, "one", "appState")})
	r.Compile([]Rule{enabledRule("v2", CategoryAlways, "two", "appState")})

	set := r.ActiveSet(true)
	if len(set) != 1 || set[0].ID != "v2" {
		t.Errorf("after reload ActiveSet = %v, want only v2", set)
	}
}

func TestCompiledRuleActionMapping(t *testing.T) {
	r := NewRegistry(nil)
	r.Compile([]Rule{
		enabledRule("known", CategoryAlways, "x", "setCurrentApp"),
		enabledRule("future", CategoryAlways, "y", "notYetInvented"),
	})

	for _, c := range r.ActiveSet(true) {
		switch c.ID {
		case "known":
			if c.Action != ActionSetCurrentApp {
				t.Errorf("known rule action = %v", c.Action)
			}
		case "future":
			if c.Action != ActionUnknown {
				t.Errorf("future rule action = %v, want ActionUnknown", c.Action)
			}
			if c.ActionName != "notYetInvented" {
				t.Errorf("ActionName = %q", c.ActionName)
			}
		}
	}
}

func TestValidate(t *testing.T) {
	problems := Validate([]Rule{
		enabledRule("ok", CategoryAlways, "fine", "appState"),
		enabledRule("bad", CategoryAlways, "broken [", "appState"),
		{ID: "disabled-bad", Pattern: "also broken [", Action: "appState", Enabled: false},
	})
	if len(problems) != 1 {
		t.Fatalf("Validate() = %v, want exactly one problem", problems)
	}
	if _, ok := problems["bad"]; !ok {
		t.Errorf("Validate() missing problem for 'bad': %v", problems)
	}
}
