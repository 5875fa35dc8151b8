package diagram

import (
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"

	"github.com/hackmate/hackmate/pkg/schema"
)

func workflow(names ...string) *schema.Workflow {
	wf := &schema.Workflow{Name: "Quick Recon"}
	for _, n := range names {
		wf.Steps = append(wf.Steps, schema.Step{Name: n})
	}
	return wf
}

func TestGenerateMermaid_LinearFlow(t *testing.T) {
	out, err := Generate(workflow("recon_subdomains", "scan_nmap"), FormatMermaid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{
		"flowchart TD",
		"START([Start]) --> s1_recon_subdomains",
		"s1_recon_subdomains --> s2_scan_nmap",
		"s2_scan_nmap --> DONE",
		"→ subdomains_raw.txt",
		"style s2_scan_nmap fill:#4a1a1a",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q, got:\n%s", want, out)
		}
	}
}

func TestGenerateMermaid_RepeatedAndUnknownSteps(t *testing.T) {
	out, err := Generate(workflow("web_cms", "web_cms", "bogus_step"), FormatMermaid)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "s1_web_cms --> s2_web_cms") {
		t.Errorf("repeated steps should get distinct nodes:\n%s", out)
	}
	if !strings.Contains(out, "unknown step") || !strings.Contains(out, "style s3_bogus_step stroke-dasharray") {
		t.Errorf("unknown step not marked:\n%s", out)
	}
}

func TestGenerateASCII(t *testing.T) {
	out, err := Generate(workflow("recon_subdomains", "recon_probe", "scan_nmap"), FormatASCII)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Quick Recon", "⚡ recon_subdomains", "$ httpx", "⚠ scan_nmap", "→ live_hosts_raw.txt"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q, got:\n%s", want, out)
		}
	}

	// Every box line has the same display width.
	width := -1
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		if !strings.ContainsAny(line, "│║") || strings.TrimSpace(line) == "│" {
			continue
		}
		w := runewidth.StringWidth(line)
		if width == -1 {
			width = w
		} else if w != width {
			t.Errorf("line %q width %d, want %d", line, w, width)
		}
	}
}

func TestGenerateASCII_Empty(t *testing.T) {
	out, err := Generate(&schema.Workflow{Name: "Nothing"}, FormatASCII)
	if err != nil {
		t.Fatal(err)
	}
	if out != "Nothing (empty)\n" {
		t.Errorf("out = %q", out)
	}
}

func TestGenerateErrors(t *testing.T) {
	if _, err := Generate(nil, FormatASCII); err == nil {
		t.Error("expected error for nil workflow")
	}
	if _, err := Generate(workflow("web_cms"), Format("svg")); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestCenterPad(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"ab", 6, "  ab  "},
		{"abc", 6, " abc  "},
		{"toolong", 3, "toolong"},
	}
	for _, tt := range tests {
		if got := centerPad(tt.in, tt.width); got != tt.want {
			t.Errorf("centerPad(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}
