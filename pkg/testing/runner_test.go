package testing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/hackmate/hackmate/pkg/schema"
)

// testdataDir returns the absolute path to the testdata/flows directory.
func testdataDir(t *testing.T) string {
	t.Helper()
	// Navigate from pkg/testing/ to the repo root
	_, file, _, _ := runtime.Caller(0)
	repoRoot := filepath.Join(filepath.Dir(file), "..", "..")
	dir := filepath.Join(repoRoot, "testdata", "flows")
	if _, err := os.Stat(dir); err != nil {
		t.Skipf("testdata directory not found: %s", dir)
	}
	return dir
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDiscoverScenarios(t *testing.T) {
	scenarios, err := DiscoverScenarios(filepath.Join(testdataDir(t), "recon.yaml"))
	if err != nil {
		t.Fatalf("discover error: %v", err)
	}
	if len(scenarios) != 2 {
		t.Fatalf("expected 2 scenarios, got %d", len(scenarios))
	}
	// os.ReadDir sorts by name.
	if scenarios[0].Name != "execute" || scenarios[1].Name != "passive" {
		t.Errorf("names = %q, %q", scenarios[0].Name, scenarios[1].Name)
	}
	for _, s := range scenarios {
		if !s.HasTest {
			t.Errorf("%s: expected HasTest = true", s.Name)
		}
		if !filepath.IsAbs(s.Dir) {
			t.Errorf("%s: dir %q is not absolute", s.Name, s.Dir)
		}
	}
}

func TestDiscoverScenariosNoDirectory(t *testing.T) {
	scenarios, err := DiscoverScenarios(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scenarios != nil {
		t.Errorf("expected nil, got %v", scenarios)
	}
}

func TestDiscoverScenariosSkipsDirsWithoutScenario(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "scenarios", "web", "a", "scenario.yaml"), "commands: [{argv: [x]}]\n")
	writeFile(t, filepath.Join(dir, "scenarios", "web", "b", "notes.txt"), "no scenario here\n")

	scenarios, err := DiscoverScenarios(filepath.Join(dir, "web.flow.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if len(scenarios) != 1 || scenarios[0].Name != "a" || scenarios[0].HasTest {
		t.Errorf("scenarios = %+v", scenarios)
	}
}

func TestRunAllPasses(t *testing.T) {
	r := &Runner{}
	out, err := r.RunAll(context.Background(), filepath.Join(testdataDir(t), "recon.yaml"), false)
	if err != nil {
		t.Fatalf("RunAll error: %v", err)
	}
	if out.Workflow != "Quick Recon" {
		t.Errorf("workflow = %q", out.Workflow)
	}
	if out.Summary.Total != 2 || out.Summary.Passed != 2 {
		for _, s := range out.Scenarios {
			t.Logf("%s: %s %s", s.ScenarioName, s.Status, s.Error)
			for _, a := range s.Assertions {
				if !a.Passed {
					t.Logf("  %s %s: %s", a.Type, a.Key, a.Message)
				}
			}
		}
		t.Fatalf("summary = %+v", out.Summary)
	}
}

func TestRunAllReportsFailuresAndSkips(t *testing.T) {
	dir := t.TempDir()
	flow := filepath.Join(dir, "web.yaml")
	writeFile(t, flow, "name: Web\nsteps:\n  - web_cms\n")

	// "a" expects success but the recorded response fails.
	writeFile(t, filepath.Join(dir, "scenarios", "web", "a", "scenario.yaml"),
		`commands: [{argv: [whatweb, "https://example.com", "-v", "-a", "3"], exit_code: 2}]`+"\n")
	writeFile(t, filepath.Join(dir, "scenarios", "web", "a", "test.yaml"),
		"expected_results:\n  web_cms: success\n")
	// "b" has no test.yaml.
	writeFile(t, filepath.Join(dir, "scenarios", "web", "b", "scenario.yaml"), "commands: [{argv: [x]}]\n")
	// "c" has a broken test.yaml.
	writeFile(t, filepath.Join(dir, "scenarios", "web", "c", "scenario.yaml"), "commands: [{argv: [x]}]\n")
	writeFile(t, filepath.Join(dir, "scenarios", "web", "c", "test.yaml"), "{{{\n")

	out, err := (&Runner{}).RunAll(context.Background(), flow, false)
	if err != nil {
		t.Fatal(err)
	}
	want := TestSummary{Total: 3, Failed: 1, Skipped: 1, Errors: 1}
	if out.Summary != want {
		t.Errorf("summary = %+v, want %+v", out.Summary, want)
	}
	a := out.Scenarios[0]
	if a.Status != "failed" || len(a.Assertions) != 1 || a.Assertions[0].Actual != "non_zero_exit" {
		t.Errorf("scenario a = %+v", a)
	}

	out, err = (&Runner{}).RunAll(context.Background(), flow, true)
	if err != nil {
		t.Fatal(err)
	}
	if out.Summary.Total != 1 {
		t.Errorf("fail-fast ran %d scenarios, want 1", out.Summary.Total)
	}
}

func TestRunScenario(t *testing.T) {
	flow := filepath.Join(testdataDir(t), "recon.yaml")
	res, err := (&Runner{}).RunScenario(context.Background(), flow, "passive")
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != "passed" {
		t.Errorf("status = %s: %+v", res.Status, res.Assertions)
	}
	if _, err := (&Runner{}).RunScenario(context.Background(), flow, "nope"); err == nil {
		t.Error("expected error for unknown scenario")
	}
}

func TestRunAllInvalidWorkflow(t *testing.T) {
	flow := filepath.Join(t.TempDir(), "bad.yaml")
	writeFile(t, flow, "name: Bad\n")
	_, err := (&Runner{}).RunAll(context.Background(), flow, false)
	if !errors.Is(err, schema.ErrWorkflowFormat) {
		t.Errorf("err = %v, want ErrWorkflowFormat", err)
	}
}
