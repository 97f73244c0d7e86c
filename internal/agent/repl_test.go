package agent

import (
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
)

func newTestREPL(t *testing.T) *REPL {
	t.Helper()
	logger := NewDevNullLogger()
	client := NewClient("http://localhost:8090/mcp", logger, TransportStreamableHTTP)
	return NewREPL(client, logger)
}

func TestNewREPL(t *testing.T) {
	repl := newTestREPL(t)

	assert.NotNil(t, repl)
	assert.NotNil(t, repl.client)
	assert.NotNil(t, repl.notificationChan)
	assert.NotNil(t, repl.stopChan)
	assert.NotEmpty(t, repl.commands)
}

func TestCommandForResolvesAliases(t *testing.T) {
	repl := newTestREPL(t)

	assert.Equal(t, "help", repl.commandFor("?").name)
	assert.Equal(t, "exit", repl.commandFor("quit").name)
	assert.Equal(t, "call", repl.commandFor("exec").name)
	assert.Equal(t, "tools", repl.commandFor("list").name)
	assert.Nil(t, repl.commandFor("bogus"))
}

func TestExecuteCommandUnknown(t *testing.T) {
	repl := newTestREPL(t)

	err := repl.executeCommand("frobnicate")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestExecuteCommandExit(t *testing.T) {
	repl := newTestREPL(t)

	assert.True(t, errors.Is(repl.executeCommand("exit"), errExitRequested))
	assert.True(t, errors.Is(repl.executeCommand("quit"), errExitRequested))
}

func TestExecuteCommandHelp(t *testing.T) {
	repl := newTestREPL(t)

	assert.NoError(t, repl.executeCommand("help"))
	assert.NoError(t, repl.executeCommand("?"))
}

func TestBuildPrompt(t *testing.T) {
	repl := newTestREPL(t)

	repl.useUnicode = true
	assert.Equal(t, "oc » ", repl.buildPrompt())

	repl.useUnicode = false
	assert.Equal(t, "oc > ", repl.buildPrompt())
}

func TestParseToolArgsJSON(t *testing.T) {
	args, err := parseToolArgs([]string{`{"slug":`, `"acme/web-scraper"}`})
	assert.NoError(t, err)
	assert.Equal(t, "acme/web-scraper", args["slug"])

	_, err = parseToolArgs([]string{`{"slug":`})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "valid JSON")
}

func TestParseToolArgsKeyValue(t *testing.T) {
	args, err := parseToolArgs([]string{"slug=acme/web-scraper", "limit=3", "fresh=true"})
	assert.NoError(t, err)

	assert.Equal(t, "acme/web-scraper", args["slug"])
	assert.Equal(t, float64(3), args["limit"])
	assert.Equal(t, true, args["fresh"])
}

func TestParseToolArgsRejectsBareWords(t *testing.T) {
	_, err := parseToolArgs([]string{"justaword"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "neither key=value nor JSON")
}

func TestParseToolArgsEmpty(t *testing.T) {
	args, err := parseToolArgs(nil)
	assert.NoError(t, err)
	assert.NotNil(t, args)
	assert.Empty(t, args)
}

func TestParseSearchArgs(t *testing.T) {
	query, filters := parseSearchArgs([]string{"web", "scraper", "category=scraping", "tier=verified"})

	assert.Equal(t, "web scraper", query)
	assert.Equal(t, map[string]string{"category": "scraping", "tier": "verified"}, filters)

	query, filters = parseSearchArgs(nil)
	assert.Equal(t, "", query)
	assert.Empty(t, filters)
}

func TestSafeForHistory(t *testing.T) {
	assert.True(t, safeForHistory("search web scraper"))
	assert.True(t, safeForHistory("deploy acme/web-scraper"))

	// Lines naming a credential stay out of the history file.
	assert.False(t, safeForHistory(`call oc_deploy_plugin {"slug": "a/b", "credential": "svc_live_x"}`))
	assert.False(t, safeForHistory("call oc_deploy_plugin CREDENTIAL=svc_live_x"))
}

func TestResolveOperation(t *testing.T) {
	repl := newTestREPL(t)

	_, err := repl.resolveOperation(OpSearch)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no tools cached")

	repl.client.mu.Lock()
	repl.client.toolCache = []mcp.Tool{
		{Name: "oc_search_plugins"},
		{Name: "oc_get_plugin_config"},
	}
	repl.client.mu.Unlock()

	name, err := repl.resolveOperation(OpSearch)
	assert.NoError(t, err)
	assert.Equal(t, "oc_search_plugins", name)

	_, err = repl.resolveOperation(OpDeploy)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "does not advertise")
}

func TestCreateCompleter(t *testing.T) {
	repl := newTestREPL(t)

	repl.client.mu.Lock()
	repl.client.toolCache = []mcp.Tool{
		{Name: "oc_search_plugins"},
		{Name: "oc_deploy_plugin"},
	}
	repl.client.mu.Unlock()

	completer := repl.createCompleter()
	assert.NotNil(t, completer)

	names := repl.completeToolNames("")
	assert.Equal(t, []string{"oc_deploy_plugin", "oc_search_plugins"}, names)
}

func TestFormatResultText(t *testing.T) {
	// JSON payloads come back indented.
	formatted := formatResultText(`{"success":true,"cost":"0.05"}`)
	assert.Contains(t, formatted, "\"success\": true")

	// Anything else passes through unchanged.
	assert.Equal(t, "plain text", formatResultText("plain text"))
}
