package events

import (
	"fmt"
	"strings"
)

// MessageTemplateEngine provides dynamic message generation for events.
type MessageTemplateEngine struct {
	templates map[EventReason]string
}

// NewMessageTemplateEngine creates a new message template engine with default templates.
func NewMessageTemplateEngine() *MessageTemplateEngine {
	engine := &MessageTemplateEngine{
		templates: make(map[EventReason]string),
	}
	engine.loadDefaultTemplates()
	return engine
}

// loadDefaultTemplates initializes the default message templates for all event reasons.
func (e *MessageTemplateEngine) loadDefaultTemplates() {
	// Deployment lifecycle templates
	e.templates[ReasonDeploymentRequested] = "Deployment of {{.Slug}} requested"
	e.templates[ReasonDeploymentActorResolved] = "Remote instance resolved for {{.Slug}}"
	e.templates[ReasonDeploymentBuildTriggered] = "Build triggered for {{.Slug}}"
	e.templates[ReasonDeploymentBuilding] = "Build in progress for {{.Slug}}"
	e.templates[ReasonDeploymentSucceeded] = "Deployment of {{.Slug}} succeeded{{if .Endpoint}}, reachable at {{.Endpoint}}{{end}}"
	e.templates[ReasonDeploymentFailed] = "Deployment of {{.Slug}} failed{{if .Error}}: {{.Error}}{{end}}"

	// Validation verdict templates
	e.templates[ReasonValidationVerified] = "Plugin {{.Slug}} verified{{if .ToolCount}} ({{.ToolCount}} tools){{end}}{{if .Duration}} in {{.Duration}}{{end}}"
	e.templates[ReasonValidationFailed] = "Plugin {{.Slug}} failed validation{{if .Error}}: {{.Error}}{{end}}"
	e.templates[ReasonValidationError] = "Validation of {{.Slug}} could not complete{{if .Error}}: {{.Error}}{{end}}"
}

// Render generates a message for the given event reason and data.
func (e *MessageTemplateEngine) Render(reason EventReason, data EventData) string {
	template, exists := e.templates[reason]
	if !exists {
		// Fallback for unknown event reasons
		return fmt.Sprintf("Event: %s for %s", string(reason), data.Slug)
	}

	return e.renderTemplate(template, data)
}

// SetTemplate allows customizing the message template for a specific event reason.
func (e *MessageTemplateEngine) SetTemplate(reason EventReason, template string) {
	e.templates[reason] = template
}

// GetTemplate returns the template for a specific event reason.
func (e *MessageTemplateEngine) GetTemplate(reason EventReason) (string, bool) {
	template, exists := e.templates[reason]
	return template, exists
}

// renderTemplate performs simple template rendering with EventData.
// This is a simplified template system that supports basic variable substitution.
func (e *MessageTemplateEngine) renderTemplate(template string, data EventData) string {
	result := template

	// Replace basic variables
	result = strings.ReplaceAll(result, "{{.Slug}}", data.Slug)
	result = strings.ReplaceAll(result, "{{.FromState}}", data.FromState)
	result = strings.ReplaceAll(result, "{{.ToState}}", data.ToState)
	result = strings.ReplaceAll(result, "{{.Endpoint}}", data.Endpoint)
	result = strings.ReplaceAll(result, "{{.Error}}", data.Error)

	// Handle duration formatting
	if strings.Contains(result, "{{.Duration}}") {
		if data.Duration > 0 {
			result = strings.ReplaceAll(result, "{{.Duration}}", data.Duration.String())
		} else {
			result = strings.ReplaceAll(result, "{{.Duration}}", "")
		}
	}

	// Handle tool count
	if strings.Contains(result, "{{.ToolCount}}") {
		if data.ToolCount > 0 {
			result = strings.ReplaceAll(result, "{{.ToolCount}}", fmt.Sprintf("%d", data.ToolCount))
		} else {
			result = strings.ReplaceAll(result, "{{.ToolCount}}", "")
		}
	}

	// Handle conditional blocks
	result = e.renderConditionals(result, data)

	return result
}

// renderConditionals handles simple conditional rendering in templates.
// Supports: {{if .FieldName}}content{{end}}
func (e *MessageTemplateEngine) renderConditionals(template string, data EventData) string {
	result := template

	// Handle {{if .Error}}...{{end}}
	result = e.renderConditional(result, "{{if .Error}}", "{{end}}", data.Error != "")

	// Handle {{if .Endpoint}}...{{end}}
	result = e.renderConditional(result, "{{if .Endpoint}}", "{{end}}", data.Endpoint != "")

	// Handle {{if .Duration}}...{{end}}
	result = e.renderConditional(result, "{{if .Duration}}", "{{end}}", data.Duration > 0)

	// Handle {{if .ToolCount}}...{{end}}
	result = e.renderConditional(result, "{{if .ToolCount}}", "{{end}}", data.ToolCount > 0)

	return result
}

// renderConditional handles a single conditional block.
func (e *MessageTemplateEngine) renderConditional(template, startMarker, endMarker string, condition bool) string {
	startIndex := strings.Index(template, startMarker)
	if startIndex == -1 {
		return template
	}

	endIndex := strings.Index(template[startIndex:], endMarker)
	if endIndex == -1 {
		return template
	}

	endIndex += startIndex // Convert to absolute index

	if condition {
		// Keep the content between markers, remove the markers
		before := template[:startIndex]
		content := template[startIndex+len(startMarker) : endIndex]
		after := template[endIndex+len(endMarker):]
		return before + content + after
	} else {
		// Remove the entire conditional block
		before := template[:startIndex]
		after := template[endIndex+len(endMarker):]
		return before + after
	}
}
