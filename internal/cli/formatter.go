package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/epicmotionSD/openconductor-sub010/internal/api"
)

// envelope mirrors the gateway's response format, with the payload kept
// raw until the event is known.
type envelope struct {
	Success bool            `json:"success"`
	Event   string          `json:"event"`
	Cost    float64         `json:"cost"`
	Data    json.RawMessage `json:"data,omitempty"`
	Meta    struct {
		ExecutionTimeMs int64 `json:"executionTimeMs"`
		Cached          bool  `json:"cached"`
	} `json:"meta"`
	Error *struct {
		Message string `json:"message"`
		Kind    string `json:"kind"`
	} `json:"error,omitempty"`
}

// parseEnvelope decodes a response envelope from tool result text.
func parseEnvelope(payload string) (*envelope, error) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return nil, fmt.Errorf("payload is not a response envelope: %w", err)
	}
	if env.Event == "" {
		return nil, fmt.Errorf("payload is not a response envelope")
	}
	return &env, nil
}

// Formatter renders response envelopes as tables, one layout per
// operation.
type Formatter struct {
	options ExecutorOptions
}

// NewFormatter creates a formatter with the specified options.
func NewFormatter(options ExecutorOptions) *Formatter {
	return &Formatter{options: options}
}

// RenderEnvelope renders table output for one envelope payload. Text
// that is not an envelope is printed untouched.
func (f *Formatter) RenderEnvelope(payload string) error {
	env, err := parseEnvelope(payload)
	if err != nil {
		fmt.Println(payload)
		return nil
	}

	switch api.Event(env.Event) {
	case api.EventSearch:
		return f.renderSearch(env)
	case api.EventConfig:
		return f.renderConfig(env)
	case api.EventValidate:
		return f.renderValidate(env)
	case api.EventDeploy:
		return f.renderDeploy(env)
	default:
		fmt.Println(payload)
		return nil
	}
}

// newTable creates a table writer with the standard styling.
func (f *Formatter) newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	return t
}

// appendHeader adds a header row unless headers are suppressed.
func (f *Formatter) appendHeader(t table.Writer, row table.Row) {
	if f.options.NoHeaders {
		return
	}
	t.AppendHeader(row)
}

func (f *Formatter) renderSearch(env *envelope) error {
	var data api.SearchData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return fmt.Errorf("unexpected search payload: %w", err)
	}

	if len(data.Plugins) == 0 {
		fmt.Println(text.FgYellow.Sprint("No plugins matched"))
		f.footer(env)
		return nil
	}

	t := f.newTable()
	f.appendHeader(t, table.Row{"SLUG", "NAME", "VERIFIED", "DOWNLOADS", "DESCRIPTION"})
	for _, plugin := range data.Plugins {
		verified := ""
		if plugin.Verified {
			verified = text.FgGreen.Sprint("✓")
		}
		t.AppendRow(table.Row{
			plugin.Slug,
			plugin.DisplayName,
			verified,
			plugin.Downloads,
			truncate(plugin.Description, 60),
		})
	}
	t.Render()

	fmt.Printf("%d plugin(s)\n", data.Total)
	f.footer(env)
	return nil
}

func (f *Formatter) renderConfig(env *envelope) error {
	var data api.ConfigData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return fmt.Errorf("unexpected config payload: %w", err)
	}

	if data.Descriptor != nil {
		t := f.newTable()
		f.appendHeader(t, table.Row{"FIELD", "VALUE"})
		t.AppendRow(table.Row{"Slug", data.Descriptor.Slug})
		t.AppendRow(table.Row{"Name", data.Descriptor.DisplayName})
		t.AppendRow(table.Row{"Artifact", string(data.Descriptor.Artifact)})
		if data.Descriptor.PackageRef != "" {
			t.AppendRow(table.Row{"Package", data.Descriptor.PackageRef})
		}
		if data.Descriptor.ImageRef != "" {
			t.AppendRow(table.Row{"Image", data.Descriptor.ImageRef})
		}
		if data.Descriptor.SourceURL != "" {
			t.AppendRow(table.Row{"Source", data.Descriptor.SourceURL})
		}
		if len(data.Descriptor.Capabilities) > 0 {
			t.AppendRow(table.Row{"Capabilities", strings.Join(data.Descriptor.Capabilities, ", ")})
		}
		t.Render()
	}

	if data.Validation != nil {
		fmt.Printf("Validation: %s\n", verdictLabel(data.Validation.Status))
	} else {
		fmt.Println(text.Faint.Sprint("Validation: never validated"))
	}

	if data.Deployment != nil {
		fmt.Printf("Deployment: %s", stateLabel(data.Deployment.BuildStatus))
		if data.Deployment.ConnectionEndpoint != "" {
			fmt.Printf(" at %s", data.Deployment.ConnectionEndpoint)
		}
		fmt.Println()
	} else {
		fmt.Println(text.Faint.Sprint("Deployment: not deployed"))
	}

	f.footer(env)
	return nil
}

func (f *Formatter) renderValidate(env *envelope) error {
	var result api.ValidationResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		return fmt.Errorf("unexpected validation payload: %w", err)
	}

	fmt.Printf("%s: %s\n", result.Slug, verdictLabel(result.Status))

	t := f.newTable()
	f.appendHeader(t, table.Row{"CHECK", "RESULT"})
	t.AppendRow(table.Row{"Repository reachable", checkLabel(result.Checks.RepoReachable)})
	t.AppendRow(table.Row{"Installable", checkLabel(result.Checks.Installable)})
	t.AppendRow(table.Row{"Protocol compliant", checkLabel(result.Checks.ProtocolCompliant)})
	t.AppendRow(table.Row{"Tools enumerated", checkLabel(result.Checks.ToolsEnumerated)})
	t.Render()

	if len(result.Tools) > 0 {
		names := make([]string, 0, len(result.Tools))
		for _, tool := range result.Tools {
			names = append(names, tool.Name)
		}
		fmt.Printf("Tools (%d): %s\n", len(names), strings.Join(names, ", "))
	}

	if result.ErrorMessage != "" {
		fmt.Println(text.FgRed.Sprint(result.ErrorMessage))
	}

	f.footer(env)
	return nil
}

func (f *Formatter) renderDeploy(env *envelope) error {
	var record api.DeploymentRecord
	if err := json.Unmarshal(env.Data, &record); err != nil {
		return fmt.Errorf("unexpected deployment payload: %w", err)
	}

	t := f.newTable()
	f.appendHeader(t, table.Row{"FIELD", "VALUE"})
	t.AppendRow(table.Row{"Slug", record.Slug})
	t.AppendRow(table.Row{"Status", stateLabel(record.BuildStatus)})
	if record.RemoteInstanceID != "" {
		t.AppendRow(table.Row{"Instance", record.RemoteInstanceID})
	}
	if record.ConnectionEndpoint != "" {
		t.AppendRow(table.Row{"Endpoint", record.ConnectionEndpoint})
	}
	t.AppendRow(table.Row{"Credential fingerprint", record.OwnerCredentialFingerprint})
	if !record.CreatedAt.IsZero() {
		t.AppendRow(table.Row{"Created", record.CreatedAt.Format(time.RFC3339)})
	}
	if record.FailureMessage != "" {
		t.AppendRow(table.Row{"Failure", text.FgRed.Sprint(record.FailureMessage)})
	}
	t.Render()

	f.footer(env)
	return nil
}

// footer prints the billing and timing line under a rendered result.
func (f *Formatter) footer(env *envelope) {
	if f.options.Quiet {
		return
	}

	line := fmt.Sprintf("cost $%.2f · %dms", env.Cost, env.Meta.ExecutionTimeMs)
	if env.Meta.Cached {
		line += " (cached)"
	}
	fmt.Println(text.Faint.Sprint(line))
}

// verdictLabel colors a validation status.
func verdictLabel(status api.ValidationStatus) string {
	switch status {
	case api.ValidationVerified:
		return text.FgGreen.Sprint("verified")
	case api.ValidationFailed:
		return text.FgRed.Sprint("failed")
	default:
		return text.FgRed.Sprint(string(status))
	}
}

// stateLabel colors a deployment state.
func stateLabel(state api.DeploymentState) string {
	switch state {
	case api.DeploymentSucceeded:
		return text.FgGreen.Sprint(string(state))
	case api.DeploymentFailed:
		return text.FgRed.Sprint(string(state))
	default:
		return text.FgYellow.Sprint(string(state))
	}
}

// checkLabel renders one pipeline check outcome. A nil check was never
// attempted because an earlier one failed.
func checkLabel(check *bool) string {
	switch {
	case check == nil:
		return text.Faint.Sprint("skipped")
	case *check:
		return text.FgGreen.Sprint("passed")
	default:
		return text.FgRed.Sprint("failed")
	}
}

// truncate shortens a string to at most max runes for column display.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
