package policy

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/M3tu20222/tarim/internal/config"
)

func TestEvaluateDefaultDeny(t *testing.T) {
	engine := NewEngine(config.Server{Default: "deny"})
	d := engine.Evaluate("scan_project_files", map[string]any{"directory_path": "."})
	if d.Allow {
		t.Error("expected deny for unmatched tool")
	}
	if d.MatchedRule != -1 {
		t.Errorf("matched_rule = %d, want -1", d.MatchedRule)
	}
	if d.Verdict() != "deny" {
		t.Errorf("verdict = %q, want deny", d.Verdict())
	}
}

func TestEvaluateToolAllowed(t *testing.T) {
	engine := NewEngine(config.Server{
		Default: "deny",
		Rules:   []config.Rule{{Tool: "list_terms", Allow: true}},
	})
	d := engine.Evaluate("list_terms", map[string]any{})
	if !d.Allow {
		t.Error("expected allow for matching tool")
	}
	if d.MatchedRule != 0 {
		t.Errorf("matched_rule = %d, want 0", d.MatchedRule)
	}
}

func TestEvaluateWhenClause(t *testing.T) {
	engine := NewEngine(config.Server{
		Default: "allow",
		Rules: []config.Rule{
			{Tool: "scan_project_files", Allow: false, When: map[string]string{"directory_path": "/etc/**"}},
		},
	})

	d := engine.Evaluate("scan_project_files", map[string]any{"directory_path": "/etc/ssl"})
	if d.Allow {
		t.Error("expected deny for protected path")
	}
	if d.Reason != "denied by rule 0" {
		t.Errorf("reason = %q", d.Reason)
	}

	d = engine.Evaluate("scan_project_files", map[string]any{"directory_path": "/home/user/project"})
	if !d.Allow {
		t.Error("expected default allow for other paths")
	}

	// A missing argument never satisfies a when clause.
	d = engine.Evaluate("scan_project_files", map[string]any{})
	if !d.Allow || d.MatchedRule != -1 {
		t.Errorf("expected default decision, got %+v", d)
	}
}

func TestEvaluateFirstMatchWins(t *testing.T) {
	engine := NewEngine(config.Server{
		Default: "deny",
		Rules: []config.Rule{
			{Tool: "add_definition", Allow: false, When: map[string]string{"term": "internal_*"}},
			{Tool: "add_definition", Allow: true},
		},
	})

	d := engine.Evaluate("add_definition", map[string]any{"term": "internal_api"})
	if d.Allow || d.MatchedRule != 0 {
		t.Errorf("expected deny from rule 0, got %+v", d)
	}

	d = engine.Evaluate("add_definition", map[string]any{"term": "API"})
	if !d.Allow || d.MatchedRule != 1 {
		t.Errorf("expected allow from rule 1, got %+v", d)
	}
}

func TestEvaluateNonStringArgument(t *testing.T) {
	engine := NewEngine(config.Server{
		Default: "allow",
		Rules: []config.Rule{
			{Tool: "add_numbers", Allow: false, When: map[string]string{"a": "1*"}},
		},
	})
	if d := engine.Evaluate("add_numbers", map[string]any{"a": 100, "b": 1}); d.Allow {
		t.Error("expected deny when integer argument matches glob")
	}
	if d := engine.Evaluate("add_numbers", map[string]any{"a": 2, "b": 1}); !d.Allow {
		t.Error("expected allow when integer argument does not match")
	}
}

func TestVisible(t *testing.T) {
	tests := []struct {
		name   string
		server config.Server
		tool   string
		want   bool
	}{
		{"default allow", config.Server{Default: "allow"}, "hello", true},
		{"default deny", config.Server{Default: "deny"}, "hello", false},
		{
			"default deny with allow rule",
			config.Server{Default: "deny", Rules: []config.Rule{{Tool: "hello", Allow: true}}},
			"hello", true,
		},
		{
			"unconditional deny",
			config.Server{Default: "allow", Rules: []config.Rule{{Tool: "hello", Allow: false}}},
			"hello", false,
		},
		{
			"conditional deny",
			config.Server{Default: "allow", Rules: []config.Rule{
				{Tool: "hello", Allow: false, When: map[string]string{"name": "root"}},
			}},
			"hello", true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewEngine(tt.server).Visible(tt.tool); got != tt.want {
				t.Errorf("Visible(%q) = %v, want %v", tt.tool, got, tt.want)
			}
		})
	}
}

func TestEvaluateResolvesPathArguments(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("absolute paths here are unix paths")
	}
	engine := NewEngine(config.Server{
		Default: "allow",
		Rules: []config.Rule{
			{Tool: "scan_project_files", Allow: false, When: map[string]string{"directory_path": "/etc/**"}},
		},
	})

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	relEtc, err := filepath.Rel(wd, "/etc")
	if err != nil {
		t.Fatal(err)
	}

	denied := []string{"/etc", "/etc/ssh", "//etc", "/tmp/../etc", "/etc/../etc/", "/./etc", relEtc}
	for _, dir := range denied {
		if d := engine.Evaluate("scan_project_files", map[string]any{"directory_path": dir}); d.Allow {
			t.Errorf("%q should be denied", dir)
		}
	}
	for _, dir := range []string{"/tmp", "/etcetera", "/home/etc"} {
		if d := engine.Evaluate("scan_project_files", map[string]any{"directory_path": dir}); !d.Allow {
			t.Errorf("%q should be allowed: %+v", dir, d)
		}
	}
}
