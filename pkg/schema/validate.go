package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/hackmate/hackmate/pkg/steps"
)

// ValidationError represents a single validation finding with location context.
type ValidationError struct {
	Phase    string `json:"phase"` // structural, semantic, domain
	Path     string `json:"path"`  // JSON-path-like location (e.g., "steps[2].scan_nmap.rate")
	Message  string `json:"message"`
	Severity string `json:"severity"` // error, warning
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Phase, e.Path, e.Message)
}

// Severity values.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// HasErrors reports whether any finding is an error rather than a warning.
func HasErrors(errs []*ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidateFile performs the full 3-phase validation pipeline on a workflow file.
// Phase 1: Structural (strict YAML decode)
// Phase 2: Semantic (JSON Schema validation)
// Phase 3: Domain (step registry rules)
func ValidateFile(path string) (*Workflow, []*ValidationError) {
	wf, err := LoadFile(path)
	if err != nil {
		return nil, []*ValidationError{{
			Phase:    "structural",
			Path:     "",
			Message:  err.Error(),
			Severity: SeverityError,
		}}
	}
	return wf, Validate(wf)
}

// Validate runs the semantic and domain phases on a loaded workflow.
func Validate(wf *Workflow) []*ValidationError {
	semantic := validateSemantic(wf)
	flagged := make(map[int]bool)
	for _, e := range semantic {
		if i, ok := stepIndex(e.Path); ok {
			flagged[i] = true
		}
	}
	return append(semantic, validateDomain(wf, flagged)...)
}

// validateSemantic validates the workflow against the JSON Schema.
func validateSemantic(wf *Workflow) []*ValidationError {
	fail := func(format string, args ...any) []*ValidationError {
		return []*ValidationError{{
			Phase:    "semantic",
			Path:     "",
			Message:  fmt.Sprintf(format, args...),
			Severity: SeverityError,
		}}
	}

	data, err := json.Marshal(wf)
	if err != nil {
		return fail("marshal for schema validation: %v", err)
	}
	schemaJSON, err := GenerateJSONSchema()
	if err != nil {
		return fail("generate schema: %v", err)
	}
	schemaDoc, err := sjsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return fail("unmarshal schema: %v", err)
	}

	c := sjsonschema.NewCompiler()
	if err := c.AddResource("workflow-v1.json", schemaDoc); err != nil {
		return fail("add schema resource: %v", err)
	}
	sch, err := c.Compile("workflow-v1.json")
	if err != nil {
		return fail("compile schema: %v", err)
	}

	doc, err := sjsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fail("unmarshal document: %v", err)
	}

	if err := sch.Validate(doc); err != nil {
		var ve *sjsonschema.ValidationError
		if !errors.As(err, &ve) {
			return fail("%v", err)
		}
		var errs []*ValidationError
		for _, cause := range flattenValidationErrors(ve) {
			errs = append(errs, &ValidationError{
				Phase:    "semantic",
				Path:     instancePath(cause.InstanceLocation),
				Message:  fmt.Sprintf("%v", cause.ErrorKind),
				Severity: SeverityError,
			})
		}
		return errs
	}
	return nil
}

// flattenValidationErrors recursively collects all leaf validation errors.
func flattenValidationErrors(ve *sjsonschema.ValidationError) []*sjsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*sjsonschema.ValidationError{ve}
	}
	var flat []*sjsonschema.ValidationError
	for _, cause := range ve.Causes {
		flat = append(flat, flattenValidationErrors(cause)...)
	}
	return flat
}

// instancePath renders ["steps","2","scan_nmap"] as steps[2].scan_nmap.
func instancePath(loc []string) string {
	var b strings.Builder
	for i, part := range loc {
		if _, err := strconv.Atoi(part); err == nil && i > 0 {
			b.WriteString("[" + part + "]")
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}

func stepIndex(path string) (int, bool) {
	rest, ok := strings.CutPrefix(path, "steps[")
	if !ok {
		return 0, false
	}
	end := strings.IndexByte(rest, ']')
	if end < 0 {
		return 0, false
	}
	i, err := strconv.Atoi(rest[:end])
	return i, err == nil
}

// validateDomain applies registry rules. Unknown steps are warnings because
// the engine reports and skips them. Parameter problems on steps already
// flagged by the semantic phase are not repeated.
func validateDomain(wf *Workflow, flagged map[int]bool) []*ValidationError {
	var errs []*ValidationError
	add := func(path, severity, format string, args ...any) {
		errs = append(errs, &ValidationError{
			Phase:    "domain",
			Path:     path,
			Message:  fmt.Sprintf(format, args...),
			Severity: severity,
		})
	}

	if len(wf.Steps) == 0 {
		add("steps", SeverityError, "workflow must declare at least one step")
	}

	writers := make(map[string]int)
	seenSubdomains := false
	for i, s := range wf.Steps {
		path := fmt.Sprintf("steps[%d]", i)
		if s.Name == "" {
			add(path, SeverityError, "step name must not be empty")
			continue
		}

		_, err := steps.ParseParams(s.Name, s.Params)
		var unknown *steps.UnknownStepError
		var perr *steps.ParamError
		switch {
		case errors.As(err, &unknown):
			add(path, SeverityWarning, "unknown step %q; it will be reported and skipped (registered: %s)",
				s.Name, strings.Join(steps.Names(), ", "))
			continue
		case errors.As(err, &perr):
			if !flagged[i] {
				for _, p := range perr.Problems {
					add(path+"."+s.Name, SeverityError, "%s", p)
				}
			}
		case err != nil:
			add(path, SeverityError, "%v", err)
		}
		for _, name := range steps.UnknownParams(s.Name, s.Params) {
			add(path+"."+s.Name, SeverityWarning, "unknown parameter %q is ignored", name)
		}

		k, _ := steps.ParseKind(s.Name)
		switch k {
		case steps.KindSubdomains:
			seenSubdomains = true
		case steps.KindProbe:
			if !seenSubdomains {
				add(path, SeverityWarning, "%s reads %s; no earlier %s step produces it", s.Name, steps.SubdomainsFile, steps.KindSubdomains)
			}
		}
		if prev, ok := writers[k.Artifact()]; ok {
			add(path, SeverityWarning, "overwrites %s written by steps[%d]", k.Artifact(), prev)
		}
		writers[k.Artifact()] = i
	}
	return errs
}
