package schema

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeWorkflow(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flow.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func findings(errs []*ValidationError, severity string) []*ValidationError {
	var out []*ValidationError
	for _, e := range errs {
		if e.Severity == severity {
			out = append(out, e)
		}
	}
	return out
}

func TestValidateFileValid(t *testing.T) {
	path := writeWorkflow(t, `
name: full
steps:
  - recon_subdomains
  - recon_probe: {threads: 5}
  - scan_nmap: {ports: "22,80", full: true, timeout: 10m}
  - scan_masscan: {rate: "500"}
  - web_dirs: {depth: 2}
  - web_cms: {aggression: 1}
`)
	wf, errs := ValidateFile(path)
	if wf == nil {
		t.Fatal("workflow not returned")
	}
	if len(errs) != 0 {
		t.Fatalf("unexpected findings: %v", errs)
	}
}

// TestUnknownStepIsWarning checks unknown names do not fail validation.
func TestUnknownStepIsWarning(t *testing.T) {
	path := writeWorkflow(t, `
name: example
steps:
  - recon_subdomains: {}
  - bogus_step: {}
  - recon_probe: {}
`)
	_, errs := ValidateFile(path)
	if HasErrors(errs) {
		t.Fatalf("unexpected errors: %v", errs)
	}
	warnings := findings(errs, SeverityWarning)
	if len(warnings) != 1 || !strings.Contains(warnings[0].Message, "bogus_step") || warnings[0].Path != "steps[1]" {
		t.Fatalf("warnings = %v", warnings)
	}
}

func TestValidateBadParams(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		path string
	}{
		{"bad int", "steps:\n  - scan_masscan: {rate: fast}\n", "steps[0]"},
		{"bad timing", "steps:\n  - recon_subdomains\n  - scan_nmap: {timing: T9}\n", "steps[1]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errs := ValidateFile(writeWorkflow(t, tt.doc))
			if !HasErrors(errs) {
				t.Fatalf("expected errors, got %v", errs)
			}
			for _, e := range findings(errs, SeverityError) {
				if !strings.HasPrefix(e.Path, tt.path) {
					t.Errorf("error at %q, want under %q: %v", e.Path, tt.path, e)
				}
			}
		})
	}
}

func TestValidateUnknownParamWarns(t *testing.T) {
	_, errs := ValidateFile(writeWorkflow(t, "steps:\n  - scan_nmap: {fast: true, verbose: true}\n"))
	if HasErrors(errs) {
		t.Fatalf("unknown parameter should not be an error: %v", errs)
	}
	warnings := findings(errs, SeverityWarning)
	if len(warnings) != 1 || !strings.Contains(warnings[0].Message, `"verbose"`) || warnings[0].Path != "steps[0].scan_nmap" {
		t.Fatalf("warnings = %v", warnings)
	}
}

func TestValidateStructuralError(t *testing.T) {
	wf, errs := ValidateFile(writeWorkflow(t, "name: x\n"))
	if wf != nil {
		t.Error("no workflow expected on structural failure")
	}
	if len(errs) != 1 || errs[0].Phase != "structural" {
		t.Fatalf("errs = %v", errs)
	}
}

func TestValidateProbeOrderingWarning(t *testing.T) {
	_, errs := ValidateFile(writeWorkflow(t, "steps:\n  - recon_probe\n  - recon_subdomains\n"))
	if HasErrors(errs) {
		t.Fatalf("unexpected errors: %v", errs)
	}
	w := findings(errs, SeverityWarning)
	if len(w) != 1 || !strings.Contains(w[0].Message, "subdomains_raw.txt") {
		t.Fatalf("warnings = %v", w)
	}
}

func TestValidateDuplicateWriterWarning(t *testing.T) {
	_, errs := ValidateFile(writeWorkflow(t, "steps:\n  - web_cms\n  - web_cms: {aggression: 4}\n"))
	w := findings(errs, SeverityWarning)
	if len(w) != 1 || !strings.Contains(w[0].Message, "steps[0]") {
		t.Fatalf("warnings = %v", w)
	}
}

func TestGenerateJSONSchema(t *testing.T) {
	data, err := GenerateJSONSchema()
	if err != nil {
		t.Fatalf("GenerateJSONSchema: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("schema is not JSON: %v", err)
	}
	if doc["$id"] != SchemaID {
		t.Errorf("$id = %v", doc["$id"])
	}
	for _, name := range []string{"recon_subdomains", "scan_nmap", "web_cms", "timeout"} {
		if !strings.Contains(string(data), `"`+name+`"`) {
			t.Errorf("schema does not mention %s", name)
		}
	}
}

func TestInstancePath(t *testing.T) {
	if got := instancePath([]string{"steps", "2", "scan_nmap", "rate"}); got != "steps[2].scan_nmap.rate" {
		t.Errorf("instancePath = %q", got)
	}
	if i, ok := stepIndex("steps[12].x"); !ok || i != 12 {
		t.Errorf("stepIndex = %d, %v", i, ok)
	}
	if _, ok := stepIndex("name"); ok {
		t.Error("name is not a step path")
	}
}
