package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ormasoftchile/missionseq/pkg/config"
	"github.com/ormasoftchile/missionseq/pkg/diagram"
	"github.com/ormasoftchile/missionseq/pkg/kernel/engine"
	kschema "github.com/ormasoftchile/missionseq/pkg/kernel/schema"
	ktesting "github.com/ormasoftchile/missionseq/pkg/kernel/testing"
	kvalidate "github.com/ormasoftchile/missionseq/pkg/kernel/validate"
)

// HandleValidate implements the missionseq/validate MCP tool.
func HandleValidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, errResult := load(req)
	if errResult != nil {
		return errResult, nil
	}
	msg := fmt.Sprintf("✓ %s is valid (%d commands)", res.Mission.Meta.Name, res.Sequence.Len())
	if warnings := formatFindings(res.Errors, "warning"); warnings != "" {
		msg += "\nwarnings: " + warnings
	}
	return textResult(msg), nil
}

// HandleSchema implements the missionseq/schema MCP tool.
func HandleSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := kschema.GenerateMissionJSONSchema()
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return textResult(string(data)), nil
}

// HandleShow implements the missionseq/show MCP tool.
func HandleShow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, errResult := load(req)
	if errResult != nil {
		return errResult, nil
	}
	format, _ := req.GetArguments()["format"].(string)
	if format == "" {
		format = string(diagram.FormatMermaid)
	}
	out, err := diagram.Generate(res.Sequence, res.Mission.Meta.Name, diagram.Format(format))
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return textResult(out), nil
}

// HandleRun implements the missionseq/run MCP tool.
func HandleRun(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, errResult := load(req)
	if errResult != nil {
		return errResult, nil
	}
	args := req.GetArguments()

	// Parse vars
	overrides := make(map[string]string)
	if rawVars, ok := args["vars"].(map[string]any); ok {
		for k, v := range rawVars {
			overrides[k] = fmt.Sprint(v)
		}
	}
	vars, err := engine.ResolveVars(res.Mission.Meta.Vars, overrides)
	if err != nil {
		return errorResult(fmt.Sprintf("resolve vars: %s", err)), nil
	}

	maxTicks := res.Settings.MaxTicks
	if n, ok := args["max_ticks"].(float64); ok && n > 0 {
		maxTicks = int(n)
	}

	// Execute
	var out bytes.Buffer
	eng := engine.New(res.Sequence, engine.RunConfig{
		Mission:           res.Mission.Meta.Name,
		Vars:              vars,
		Stdout:            &out,
		MaxTicks:          uint64(maxTicks),
		MaxLoopIterations: res.Settings.MaxLoopIterations,
	})
	result := eng.Run(ctx)

	// Build response
	response := map[string]any{
		"run_id":   result.RunID,
		"status":   result.Status,
		"ticks":    result.Ticks,
		"duration": result.Duration.String(),
		"vars":     result.Vars,
	}
	if len(result.Outputs) > 0 {
		response["reports"] = result.Outputs
	}
	if result.Error != nil {
		response["error"] = result.Error.Error()
	}

	data, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("encode result: %s", err)), nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(data))},
		IsError: result.Status == engine.StatusError,
	}, nil
}

// HandleTest implements the missionseq/test MCP tool.
func HandleTest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path, _ := args["path"].(string)
	if path == "" {
		return errorResult("path argument is required"), nil
	}

	scenarioName, _ := args["scenario"].(string)

	runner := &ktesting.Runner{
		Timeout:  30 * time.Second,
		FailFast: false,
	}

	var output *ktesting.TestOutput
	var err error

	if scenarioName != "" {
		result, e := runner.RunScenario(path, scenarioName)
		if e != nil {
			return errorResult(fmt.Sprintf("run scenario: %s", e)), nil
		}
		output = &ktesting.TestOutput{
			Mission:   filepath.Base(path),
			Scenarios: []ktesting.TestResult{*result},
			Summary:   ktesting.TestSummary{Total: 1},
		}
		switch result.Status {
		case "passed":
			output.Summary.Passed = 1
		case "failed":
			output.Summary.Failed = 1
		case "skipped":
			output.Summary.Skipped = 1
		default:
			output.Summary.Errors = 1
		}
	} else {
		output, err = runner.RunAll(path)
		if err != nil {
			return errorResult(fmt.Sprintf("run tests: %s", err)), nil
		}
	}

	data, _ := json.MarshalIndent(output, "", "  ")

	isErr := output.Summary.Failed > 0 || output.Summary.Errors > 0
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(data))},
		IsError: isErr,
	}, nil
}

// load validates the mission named by the path argument. A non-nil
// result is the error to hand back to the client.
func load(req mcp.CallToolRequest) (*kvalidate.Result, *mcp.CallToolResult) {
	path, _ := req.GetArguments()["path"].(string)
	if path == "" {
		return nil, errorResult("path argument is required")
	}
	proj, err := config.ProjectFor(path)
	if err != nil {
		return nil, errorResult(fmt.Sprintf("discover project: %s", err))
	}
	res := kvalidate.ValidateFile(path, kvalidate.Options{Project: proj.Settings})
	if res.HasErrors() {
		return nil, errorResult(formatFindings(res.Errors, "error"))
	}
	return res, nil
}

func formatFindings(errs []*kvalidate.ValidationError, severity string) string {
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
