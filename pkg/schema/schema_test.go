package schema

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/hackmate/hackmate/pkg/workspace"
)

func TestLoadSingleKeySteps(t *testing.T) {
	wf, err := Load(strings.NewReader(`
name: basic recon
steps:
  - recon_subdomains: {}
  - recon_probe
  - scan_nmap:
      ports: "22,80"
      fast: true
      rate: 10
  - web_cms: null
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if wf.Name != "basic recon" || len(wf.Steps) != 4 {
		t.Fatalf("wf = %+v", wf)
	}
	want := []string{"recon_subdomains", "recon_probe", "scan_nmap", "web_cms"}
	for i, s := range wf.Steps {
		if s.Name != want[i] {
			t.Errorf("steps[%d] = %q, want %q", i, s.Name, want[i])
		}
	}
	p := wf.Steps[2].Params
	if p["ports"] != "22,80" || p["fast"] != true || p["rate"] != 10 {
		t.Errorf("params = %#v", p)
	}
	if wf.Steps[1].Params != nil || wf.Steps[3].Params != nil {
		t.Error("steps without params should have nil Params")
	}
}

func TestLoadFormatErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"missing steps", "name: x\n", "steps"},
		{"steps not a sequence", "name: x\nsteps:\n  recon_probe: {}\n", "decode"},
		{"empty steps", "name: x\nsteps: []\n", "empty"},
		{"multi-key item", "steps:\n  - recon_probe: {}\n    scan_nmap: {}\n", "2 keys"},
		{"nested param", "steps:\n  - scan_nmap:\n      ports: [22, 80]\n", "ports"},
		{"params not a mapping", "steps:\n  - scan_nmap: fast\n", "mapping"},
		{"unknown top-level field", "name: x\ntargets: [a]\nsteps: [recon_probe]\n", "targets"},
		{"empty document", "", "empty"},
		{"integer step", "steps:\n  - 42\n", "step name"},
		{"bad yaml", "steps: [\n", "decode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.doc))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrWorkflowFormat) {
				t.Errorf("error %v is not ErrWorkflowFormat", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, workspace.ErrFilesystem) || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want ErrFilesystem wrapping ErrNotExist", err)
	}
	if errors.Is(err, ErrWorkflowFormat) {
		t.Errorf("unreadable file reported as a format error: %v", err)
	}
}

func TestDisplayName(t *testing.T) {
	if (&Workflow{}).DisplayName() != DefaultName {
		t.Error("empty name should use the default")
	}
	if (&Workflow{Name: "x"}).DisplayName() != "x" {
		t.Error("name should be kept")
	}
}

func TestStepEncodings(t *testing.T) {
	s := Step{Name: "scan_nmap", Params: map[string]any{"fast": true}}
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"scan_nmap":{"fast":true}}` {
		t.Errorf("json = %s", data)
	}
	var back Step
	if err := json.Unmarshal(data, &back); err != nil || back.Name != "scan_nmap" || back.Params["fast"] != true {
		t.Errorf("json round trip = %+v, %v", back, err)
	}
	if err := json.Unmarshal([]byte(`"recon_probe"`), &back); err != nil || back.Name != "recon_probe" || back.Params != nil {
		t.Errorf("bare name = %+v, %v", back, err)
	}

	bare, err := json.Marshal(Step{Name: "recon_probe"})
	if err != nil || string(bare) != `{"recon_probe":null}` {
		t.Errorf("json = %s, %v", bare, err)
	}

	out, err := yaml.Marshal(Workflow{Name: "w", Steps: []Step{{Name: "recon_probe"}, s}})
	if err != nil {
		t.Fatal(err)
	}
	wf, err := Load(strings.NewReader(string(out)))
	if err != nil {
		t.Fatalf("reload yaml %q: %v", out, err)
	}
	if len(wf.Steps) != 2 || wf.Steps[1].Params["fast"] != true {
		t.Errorf("reloaded = %+v", wf)
	}
}
