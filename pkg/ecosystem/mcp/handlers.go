package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hackmate/hackmate/pkg/config"
	"github.com/hackmate/hackmate/pkg/providers"
	"github.com/hackmate/hackmate/pkg/report"
	"github.com/hackmate/hackmate/pkg/runtime"
	"github.com/hackmate/hackmate/pkg/schema"
)

// Handlers implements the hackmate MCP tools over one configuration.
type Handlers struct {
	Config   *config.Config
	Executor providers.CommandExecutor // nil spawns real processes
	Logger   *slog.Logger
}

// HandleValidate implements the hackmate/validate MCP tool.
func (h *Handlers) HandleValidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path, _ := args["path"].(string)
	if path == "" {
		return errorResult("path argument is required"), nil
	}

	wf, errs := schema.ValidateFile(path)
	if schema.HasErrors(errs) {
		return errorResult(formatErrors(errs, schema.SeverityError)), nil
	}
	msg := fmt.Sprintf("✓ %s is valid (%d steps)", wf.DisplayName(), len(wf.Steps))
	if warns := formatErrors(errs, schema.SeverityWarning); warns != "" {
		msg += "\nwarnings: " + warns
	}
	return textResult(msg), nil
}

// HandleSchema implements the hackmate/schema MCP tool.
func (h *Handlers) HandleSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := schema.GenerateJSONSchema()
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return textResult(string(data)), nil
}

// HandlePlan implements the hackmate/plan MCP tool. Nothing is spawned.
func (h *Handlers) HandlePlan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	wf, target, res := h.loadWorkflow(args)
	if res != nil {
		return res, nil
	}
	execute, _ := args["execute"].(bool)

	eng, err := runtime.NewFromConfig(h.Config, h.Executor, h.Logger)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	planned, err := eng.Plan(wf, target, runtime.Options{ScopeConfirmed: true, ExecuteConfirmed: execute})
	if err != nil {
		return errorResult(report.DescribeError(err)), nil
	}
	return textResult(report.PlanMarkdown(wf.DisplayName(), target, planned)), nil
}

// HandleRun implements the hackmate/run MCP tool. It refuses to start unless
// confirm_scope is true; intrusive steps stay gated unless execute is true.
func (h *Handlers) HandleRun(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	scope, _ := args["confirm_scope"].(bool)
	if !scope {
		return errorResult(report.DescribeError(runtime.ErrScopeNotConfirmed)), nil
	}
	wf, target, res := h.loadWorkflow(args)
	if res != nil {
		return res, nil
	}
	execute, _ := args["execute"].(bool) // safe default for AI agents

	eng, err := runtime.NewFromConfig(h.Config, h.Executor, h.Logger)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	run, err := eng.Execute(ctx, wf, target, runtime.Options{ScopeConfirmed: scope, ExecuteConfirmed: execute})
	if err != nil {
		return errorResult(report.DescribeError(err)), nil
	}

	type stepSummary struct {
		Name    string   `json:"name"`
		Result  string   `json:"result"`
		Message string   `json:"message"`
		Command string   `json:"command,omitempty"`
		Output  string   `json:"output,omitempty"`
		Notes   []string `json:"notes,omitempty"`
	}
	response := map[string]any{
		"run_id":    run.ID,
		"workflow":  run.Workflow,
		"target":    run.Target,
		"workspace": run.Workspace.String(),
		"state":     run.State.String(),
		"duration":  run.EndedAt.Sub(run.StartedAt).String(),
	}
	steps := make([]stepSummary, 0, len(run.Steps))
	failed := 0
	for _, s := range run.Steps {
		ss := stepSummary{
			Name:    s.Name,
			Result:  s.Result.Kind.String(),
			Message: report.Describe(s.Result),
			Output:  s.Result.Output,
			Notes:   append(append([]string(nil), s.Warnings...), s.Result.Notices...),
		}
		if s.Spec != nil {
			ss.Command = s.Spec.CommandLine()
		}
		if !s.Result.OK() {
			failed++
		}
		steps = append(steps, ss)
	}
	response["steps"] = steps
	response["failed"] = failed

	data, _ := json.MarshalIndent(response, "", "  ")
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(data))},
		IsError: failed == len(run.Steps),
	}, nil
}

// loadWorkflow reads the path and target arguments. A non-nil result is an
// error to return to the caller.
func (h *Handlers) loadWorkflow(args map[string]any) (*schema.Workflow, string, *mcp.CallToolResult) {
	path, _ := args["path"].(string)
	if path == "" {
		return nil, "", errorResult("path argument is required")
	}
	target, _ := args["target"].(string)
	if strings.TrimSpace(target) == "" {
		return nil, "", errorResult("target argument is required")
	}
	wf, err := schema.LoadFile(path)
	if err != nil {
		return nil, "", errorResult(report.DescribeError(err))
	}
	return wf, target, nil
}

func formatErrors(errs []*schema.ValidationError, severity string) string {
	var msgs []string
	for _, e := range errs {
		if e.Severity == severity {
			msgs = append(msgs, e.Error())
		}
	}
	return strings.Join(msgs, "; ")
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(msg),
		},
		IsError: true,
	}
}
