package testing

import (
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// Evaluate runs all assertions from a TestSpec against a RunResult and returns
// the individual assertion results. Each field in the TestSpec is checked
// independently; omitted fields produce no assertions.
func Evaluate(spec *TestSpec, run *RunResult) []AssertionResult {
	var results []AssertionResult

	if spec.ExpectedState != "" {
		results = append(results, evalState(spec.ExpectedState, run.State))
	}

	for _, name := range sortedKeys(spec.ExpectedResults) {
		results = append(results, evalStepResult(name, spec.ExpectedResults[name], run.StepResults))
	}

	for _, name := range spec.MustRun {
		results = append(results, evalMustRun(name, run.Ran))
	}

	for _, name := range spec.MustNotRun {
		results = append(results, evalMustNotRun(name, run.Ran))
	}

	for _, file := range sortedKeys(spec.ExpectedArtifacts) {
		results = append(results, evalArtifact(file, spec.ExpectedArtifacts[file], run.Artifacts))
	}

	if spec.AllCommandsUsed {
		results = append(results, evalCommandsUsed(run.UnusedCommands))
	}

	return results
}

// HasFailures returns true if any assertion in the slice failed.
func HasFailures(results []AssertionResult) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}

func evalState(expected, actual string) AssertionResult {
	passed := expected == actual
	msg := ""
	if !passed {
		msg = fmt.Sprintf("expected state %q, got %q", expected, actual)
	}
	return AssertionResult{
		Type:     "expected_state",
		Expected: expected,
		Actual:   actual,
		Passed:   passed,
		Message:  msg,
	}
}

// evalStepResult requires every occurrence of the step to end with the
// expected result kind.
func evalStepResult(name, expected string, results map[string][]string) AssertionResult {
	kinds, exists := results[name]
	if !exists {
		return AssertionResult{
			Type:     "expected_result",
			Key:      name,
			Expected: expected,
			Passed:   false,
			Message:  fmt.Sprintf("step %q is not in the run", name),
		}
	}
	actual := strings.Join(kinds, ",")
	for i, k := range kinds {
		if k != expected {
			return AssertionResult{
				Type:     "expected_result",
				Key:      name,
				Expected: expected,
				Actual:   actual,
				Passed:   false,
				Message:  fmt.Sprintf("step %q (occurrence %d): expected result %q, got %q", name, i+1, expected, k),
			}
		}
	}
	return AssertionResult{
		Type:     "expected_result",
		Key:      name,
		Expected: expected,
		Actual:   actual,
		Passed:   true,
	}
}

func evalMustRun(name string, ran []string) AssertionResult {
	if slices.Contains(ran, name) {
		return AssertionResult{Type: "must_run", Key: name, Passed: true}
	}
	return AssertionResult{
		Type:    "must_run",
		Key:     name,
		Passed:  false,
		Message: fmt.Sprintf("step %q never got past the safety gate", name),
	}
}

func evalMustNotRun(name string, ran []string) AssertionResult {
	if slices.Contains(ran, name) {
		return AssertionResult{
			Type:    "must_not_run",
			Key:     name,
			Passed:  false,
			Message: fmt.Sprintf("step %q ran but should have been stopped", name),
		}
	}
	return AssertionResult{Type: "must_not_run", Key: name, Passed: true}
}

func evalArtifact(file, expected string, artifacts map[string]string) AssertionResult {
	content, exists := artifacts[file]
	if !exists {
		return AssertionResult{
			Type:     "expected_artifact",
			Key:      file,
			Expected: expected,
			Passed:   false,
			Message:  fmt.Sprintf("artifact %q was not written", file),
		}
	}
	if expected == "" {
		return AssertionResult{Type: "expected_artifact", Key: file, Passed: true}
	}
	passed, msg := compareValue(expected, content)
	return AssertionResult{
		Type:     "expected_artifact",
		Key:      file,
		Expected: expected,
		Actual:   firstLine(content),
		Passed:   passed,
		Message:  msg,
	}
}

func evalCommandsUsed(unused int) AssertionResult {
	if unused == 0 {
		return AssertionResult{Type: "all_commands_used", Passed: true}
	}
	return AssertionResult{
		Type:     "all_commands_used",
		Expected: "0",
		Actual:   strconv.Itoa(unused),
		Passed:   false,
		Message:  fmt.Sprintf("%d recorded command(s) were never invoked", unused),
	}
}

// compareValue determines if artifact content satisfies an expected assertion.
// Supports three forms:
//   - Regex:   "/pattern/" or "/pattern/flags" (flags from "imsU") matched against the content
//   - Numeric: ">0", "<100", ">=1", "<=50", "==0", "!=0" against the line count
//   - Exact:   any other string, compared with the trimmed content
func compareValue(expected, content string) (bool, string) {
	if pattern, ok := regexLiteral(expected); ok {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, fmt.Sprintf("invalid regex %q: %v", pattern, err)
		}
		if re.MatchString(content) {
			return true, ""
		}
		return false, fmt.Sprintf("content does not match pattern %s", expected)
	}

	// Numeric comparison: >=, <=, !=, ==, >, <
	for _, op := range []string{">=", "<=", "!=", "==", ">", "<"} {
		if strings.HasPrefix(expected, op) {
			threshold := strings.TrimSpace(expected[len(op):])
			return compareNumeric(op, threshold, lineCount(content))
		}
	}

	actual := strings.TrimSpace(content)
	if expected == actual {
		return true, ""
	}
	return false, fmt.Sprintf("expected %q, got %q", expected, actual)
}

// regexLiteral turns "/pattern/flags" into a Go pattern with an inline flag
// group, so "/^api/m" anchors per line.
func regexLiteral(expected string) (string, bool) {
	if len(expected) < 2 || expected[0] != '/' {
		return "", false
	}
	end := strings.LastIndex(expected, "/")
	if end == 0 {
		return "", false
	}
	flags := expected[end+1:]
	if strings.Trim(flags, "imsU") != "" {
		return "", false
	}
	pattern := expected[1:end]
	if flags != "" {
		pattern = "(?" + flags + ")" + pattern
	}
	return pattern, true
}

func compareNumeric(op, threshold string, lines int) (bool, string) {
	tVal, err := strconv.Atoi(threshold)
	if err != nil {
		return false, fmt.Sprintf("line count comparison %s%s failed: cannot parse %q as a number", op, threshold, threshold)
	}

	var passed bool
	switch op {
	case ">":
		passed = lines > tVal
	case "<":
		passed = lines < tVal
	case ">=":
		passed = lines >= tVal
	case "<=":
		passed = lines <= tVal
	case "==":
		passed = lines == tVal
	case "!=":
		passed = lines != tVal
	}

	if passed {
		return true, ""
	}
	return false, fmt.Sprintf("expected line count %s%s, got %d", op, threshold, lines)
}

// lineCount counts non-empty lines.
func lineCount(s string) int {
	n := 0
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
