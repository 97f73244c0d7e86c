package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"
	"github.com/mark3labs/mcp-go/mcp"
	"golang.org/x/term"
)

// promptPrefix brands the REPL prompt.
const promptPrefix = "oc"

// promptChevronUnicode is the guillemet separator used in the prompt.
const promptChevronUnicode = "»"

// promptChevronASCII is the fallback chevron for terminals without unicode support.
const promptChevronASCII = ">"

// commandExecutionTimeout bounds a single REPL command. Validate and
// deploy runs can legitimately take minutes; a hung call should not
// freeze the session forever.
const commandExecutionTimeout = 5 * time.Minute

// credentialEnvVar names the environment variable the deploy command
// consults before prompting for a hosting credential.
const credentialEnvVar = "OPENCONDUCTOR_CREDENTIAL"

// errExitRequested signals that the user asked to leave the REPL.
var errExitRequested = errors.New("exit")

// replCommand is one entry in the REPL command table.
type replCommand struct {
	name        string
	aliases     []string
	usage       string
	description string
	run         func(ctx context.Context, args []string) error
}

// REPL is an interactive read-eval-print loop against a connected
// gateway client. It offers tab completion, persistent history, live
// tool list updates on SSE, and shorthand commands for the four gateway
// operations.
type REPL struct {
	client           *Client
	logger           *Logger
	rl               *readline.Instance
	notificationChan chan mcp.JSONRPCNotification
	stopChan         chan struct{}
	wg               sync.WaitGroup
	commands         []*replCommand
	useUnicode       bool
}

// NewREPL creates a REPL for an already connected client.
func NewREPL(client *Client, logger *Logger) *REPL {
	repl := &REPL{
		client:           client,
		logger:           logger,
		notificationChan: make(chan mcp.JSONRPCNotification, 10),
		stopChan:         make(chan struct{}),
		useUnicode:       detectUnicodeSupport(),
	}

	repl.registerCommands()

	return repl
}

// detectUnicodeSupport checks if the terminal likely supports unicode
// characters. Dumb terminals and missing TERM report false.
func detectUnicodeSupport() bool {
	termName := os.Getenv("TERM")
	lang := os.Getenv("LANG")
	lcAll := os.Getenv("LC_ALL")

	if termName == "" || termName == "dumb" {
		return false
	}

	for _, v := range []string{lang, lcAll} {
		if strings.Contains(strings.ToLower(v), "utf-8") || strings.Contains(strings.ToLower(v), "utf8") {
			return true
		}
	}

	unicodeTerminals := []string{"xterm", "screen", "tmux", "alacritty", "kitty", "iterm"}
	termLower := strings.ToLower(termName)
	for _, ut := range unicodeTerminals {
		if strings.Contains(termLower, ut) {
			return true
		}
	}

	return true
}

// buildPrompt creates the REPL prompt, "oc » " or "oc > " depending on
// terminal capabilities.
func (r *REPL) buildPrompt() string {
	chevron := promptChevronASCII
	if r.useUnicode {
		chevron = promptChevronUnicode
	}
	return promptPrefix + " " + chevron + " "
}

// registerCommands fills the command table. Order here is the order
// help prints.
func (r *REPL) registerCommands() {
	r.commands = []*replCommand{
		{
			name:        "help",
			aliases:     []string{"?"},
			usage:       "help",
			description: "Show this command overview",
			run:         r.cmdHelp,
		},
		{
			name:        "tools",
			aliases:     []string{"list"},
			usage:       "tools",
			description: "List the tools the gateway advertises",
			run:         r.cmdTools,
		},
		{
			name:        "describe",
			usage:       "describe <tool>",
			description: "Show a tool's description and input schema",
			run:         r.cmdDescribe,
		},
		{
			name:        "call",
			aliases:     []string{"run", "exec"},
			usage:       "call <tool> [JSON or key=value ...]",
			description: "Execute any tool with explicit arguments",
			run:         r.cmdCall,
		},
		{
			name:        "search",
			usage:       "search <query> [field=value ...]",
			description: "Search the plugin registry",
			run:         r.cmdSearch,
		},
		{
			name:        "config",
			usage:       "config <slug>",
			description: "Fetch a plugin's descriptor, validation verdict, and deployment status",
			run:         r.cmdConfig,
		},
		{
			name:        "validate",
			usage:       "validate <slug>",
			description: "Run the validation pipeline against a plugin",
			run:         r.cmdValidate,
		},
		{
			name:        "deploy",
			usage:       "deploy <slug>",
			description: "Deploy a verified plugin (prompts for the hosting credential)",
			run:         r.cmdDeploy,
		},
		{
			name:        "refresh",
			usage:       "refresh",
			description: "Re-fetch the tool list from the gateway",
			run:         r.cmdRefresh,
		},
		{
			name:        "exit",
			aliases:     []string{"quit"},
			usage:       "exit",
			description: "Leave the REPL",
			run: func(ctx context.Context, args []string) error {
				return errExitRequested
			},
		},
	}
}

// commandFor resolves a command by name or alias.
func (r *REPL) commandFor(name string) *replCommand {
	for _, cmd := range r.commands {
		if cmd.name == name {
			return cmd
		}
		for _, alias := range cmd.aliases {
			if alias == name {
				return cmd
			}
		}
	}
	return nil
}

// executeCommand parses one input line and runs the matching command.
// Commands get their own timeout context so a slow tool call cannot be
// torn down by REPL lifecycle events.
func (r *REPL) executeCommand(input string) error {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil
	}

	cmd := r.commandFor(strings.ToLower(parts[0]))
	if cmd == nil {
		return fmt.Errorf("unknown command: %s. Type 'help' for available commands", parts[0])
	}

	commandCtx, cancel := context.WithTimeout(context.Background(), commandExecutionTimeout)
	defer cancel()

	return cmd.run(commandCtx, parts[1:])
}

// safeForHistory reports whether an input line may be written to the
// readline history file. The file outlives the session, so any line
// that names a credential stays out of it.
func safeForHistory(line string) bool {
	return !strings.Contains(strings.ToLower(line), "credential")
}

// Run starts the interaction loop and blocks until the user exits or
// the context is canceled.
func (r *REPL) Run(ctx context.Context) error {
	if r.client.SupportsNotifications() && r.client.NotificationChan != nil {
		go func() {
			for notification := range r.client.NotificationChan {
				select {
				case r.notificationChan <- notification:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	historyFile := filepath.Join(os.TempDir(), ".openconductor_agent_history")

	config := &readline.Config{
		Prompt:          r.buildPrompt(),
		HistoryFile:     historyFile,
		AutoComplete:    r.createCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,

		// History entries are saved by hand so credential-bearing
		// lines can be skipped.
		DisableAutoSaveHistory: true,
	}

	rl, err := readline.NewEx(config)
	if err != nil {
		return fmt.Errorf("failed to create readline instance: %w", err)
	}
	defer rl.Close()
	r.rl = rl

	if r.client.SupportsNotifications() {
		r.wg.Add(1)
		go r.notificationListener(ctx)
		r.logger.Info("Gateway REPL started with notification support. Type 'help' for available commands. Use TAB for completion.")
	} else {
		r.logger.Info("Gateway REPL started. Type 'help' for available commands. Use TAB for completion.")
		r.logger.Info("Note: live tool updates are not supported with %s transport.", r.client.transport)
	}
	fmt.Println()

	for {
		select {
		case <-ctx.Done():
			r.shutdownListener()
			r.logger.Info("REPL shutting down...")
			return nil
		default:
		}

		line, err := r.rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				continue
			}
		} else if err == io.EOF {
			r.shutdownListener()
			r.logger.Info("Goodbye!")
			return nil
		} else if err != nil {
			return fmt.Errorf("readline error: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if safeForHistory(input) {
			if err := r.rl.SaveHistory(input); err != nil {
				r.logger.Debug("Failed to save history entry: %v", err)
			}
		}

		if err := r.executeCommand(input); err != nil {
			if errors.Is(err, errExitRequested) {
				r.shutdownListener()
				r.logger.Info("Goodbye!")
				return nil
			}
			r.logger.Error("Error: %v", err)
		}

		fmt.Println()
	}
}

// shutdownListener stops the background notification listener, if one
// is running.
func (r *REPL) shutdownListener() {
	if r.client.SupportsNotifications() {
		close(r.stopChan)
		r.wg.Wait()
	}
}

// notificationListener surfaces gateway notifications between prompts
// and keeps the completer in sync with tool list changes.
func (r *REPL) notificationListener(ctx context.Context) {
	defer r.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopChan:
			return
		case notification := <-r.notificationChan:
			if r.rl != nil {
				r.rl.Stdout().Write([]byte("\r\033[K"))
			}

			if err := r.client.handleNotification(ctx, notification); err != nil {
				r.logger.Error("Failed to handle notification: %v", err)
			}

			if notification.Method == "notifications/tools/list_changed" && r.rl != nil {
				r.rl.Config.AutoComplete = r.createCompleter()
			}

			if r.rl != nil {
				r.rl.Refresh()
			}
		}
	}
}

func (r *REPL) cmdHelp(ctx context.Context, args []string) error {
	r.logger.OutputLine("Available commands:")
	for _, cmd := range r.commands {
		r.logger.OutputLine("  %-36s %s", cmd.usage, cmd.description)
		if len(cmd.aliases) > 0 {
			r.logger.OutputLine("  %-36s (aliases: %s)", "", strings.Join(cmd.aliases, ", "))
		}
	}
	r.logger.OutputLine("")
	r.logger.OutputLine("The operation commands find the right tool regardless of the gateway's configured tool prefix.")
	return nil
}

func (r *REPL) cmdTools(ctx context.Context, args []string) error {
	tools := r.client.Tools()
	if len(tools) == 0 {
		r.logger.OutputLine("No tools cached. Is the gateway running? Try 'refresh'.")
		return nil
	}

	r.logger.OutputLine("Available tools (%d):", len(tools))
	for _, tool := range tools {
		r.logger.OutputLine("  %s", tool.Name)
		if tool.Description != "" {
			r.logger.OutputLine("      %s", tool.Description)
		}
	}
	return nil
}

func (r *REPL) cmdDescribe(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: describe <tool>")
	}

	tool := r.client.GetToolByName(args[0])
	if tool == nil {
		if name, ok := r.client.FindOperationTool(args[0]); ok {
			tool = r.client.GetToolByName(name)
		}
	}
	if tool == nil {
		return fmt.Errorf("unknown tool: %s", args[0])
	}

	r.logger.OutputLine("Tool: %s", tool.Name)
	if tool.Description != "" {
		r.logger.OutputLine("Description: %s", tool.Description)
	}
	r.logger.OutputLine("Input schema:")
	r.logger.OutputLine("%s", PrettyJSON(tool.InputSchema))
	return nil
}

func (r *REPL) cmdCall(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: call <tool> [JSON or key=value ...]")
	}

	toolArgs, err := parseToolArgs(args[1:])
	if err != nil {
		return err
	}

	return r.callAndRender(ctx, args[0], toolArgs)
}

func (r *REPL) cmdSearch(ctx context.Context, args []string) error {
	query, filters := parseSearchArgs(args)
	if query == "" {
		return fmt.Errorf("usage: search <query> [field=value ...]")
	}

	name, err := r.resolveOperation(OpSearch)
	if err != nil {
		return err
	}

	toolArgs := map[string]interface{}{"query": query}
	if len(filters) > 0 {
		toolArgs["filters"] = filters
	}

	return r.callAndRender(ctx, name, toolArgs)
}

func (r *REPL) cmdConfig(ctx context.Context, args []string) error {
	return r.runSlugOperation(ctx, OpConfig, "config", args)
}

func (r *REPL) cmdValidate(ctx context.Context, args []string) error {
	return r.runSlugOperation(ctx, OpValidate, "validate", args)
}

// runSlugOperation handles the operations whose only argument is the
// plugin slug.
func (r *REPL) runSlugOperation(ctx context.Context, op, commandName string, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s <slug>", commandName)
	}

	name, err := r.resolveOperation(op)
	if err != nil {
		return err
	}

	return r.callAndRender(ctx, name, map[string]interface{}{"slug": args[0]})
}

func (r *REPL) cmdDeploy(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: deploy <slug>")
	}

	name, err := r.resolveOperation(OpDeploy)
	if err != nil {
		return err
	}

	credential, err := readCredential(r.logger)
	if err != nil {
		return err
	}

	// The credential travels only in the tool arguments. It is kept
	// out of the history file and never logged; the gateway retains a
	// fingerprint, not the value.
	return r.callAndRender(ctx, name, map[string]interface{}{
		"slug":       args[0],
		"credential": credential,
	})
}

// readCredential obtains the hosting credential from the environment
// or, failing that, from a non-echoing terminal prompt.
func readCredential(logger *Logger) (string, error) {
	if credential := os.Getenv(credentialEnvVar); credential != "" {
		return credential, nil
	}

	logger.Output("Hosting credential: ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	logger.OutputLine("")
	if err != nil {
		return "", fmt.Errorf("failed to read credential: %w", err)
	}

	credential := strings.TrimSpace(string(raw))
	if credential == "" {
		return "", fmt.Errorf("a hosting credential is required")
	}

	return credential, nil
}

func (r *REPL) cmdRefresh(ctx context.Context, args []string) error {
	if err := r.client.RefreshTools(ctx); err != nil {
		return fmt.Errorf("failed to refresh tools: %w", err)
	}
	if r.rl != nil {
		r.rl.Config.AutoComplete = r.createCompleter()
	}
	return nil
}

// resolveOperation maps a canonical operation suffix to the advertised
// tool name, with guidance when the cache is empty.
func (r *REPL) resolveOperation(op string) (string, error) {
	if name, ok := r.client.FindOperationTool(op); ok {
		return name, nil
	}
	if len(r.client.Tools()) == 0 {
		return "", fmt.Errorf("no tools cached. Is the gateway running? Try 'refresh'")
	}
	return "", fmt.Errorf("the gateway does not advertise a %s tool", op)
}

// callAndRender executes a tool and prints the result. Error results
// are rendered, not returned; the envelope text is the interesting part.
func (r *REPL) callAndRender(ctx context.Context, name string, args map[string]interface{}) error {
	r.logger.Info("Executing tool: %s...", name)

	result, err := r.client.CallTool(ctx, name, args)
	if err != nil {
		return err
	}

	if result.IsError {
		r.logger.OutputLine("Tool returned an error:")
	} else {
		r.logger.OutputLine("Result:")
	}

	for _, content := range result.Content {
		if textContent, ok := mcp.AsTextContent(content); ok {
			r.logger.OutputLine("%s", formatResultText(textContent.Text))
		}
	}

	return nil
}

// formatResultText re-indents JSON payloads and passes other text
// through unchanged.
func formatResultText(text string) string {
	var decoded interface{}
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		return text
	}
	return PrettyJSON(decoded)
}

// parseToolArgs turns trailing call arguments into a tool argument map.
// A leading brace means one JSON object; otherwise every argument must
// be key=value, with values decoded as JSON scalars when they parse.
func parseToolArgs(parts []string) (map[string]interface{}, error) {
	if len(parts) == 0 {
		return map[string]interface{}{}, nil
	}

	joined := strings.TrimSpace(strings.Join(parts, " "))
	if strings.HasPrefix(joined, "{") {
		var args map[string]interface{}
		if err := json.Unmarshal([]byte(joined), &args); err != nil {
			return nil, fmt.Errorf("arguments must be valid JSON: %w", err)
		}
		return args, nil
	}

	args := make(map[string]interface{}, len(parts))
	for _, part := range parts {
		key, value, ok := strings.Cut(part, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("argument %q is neither key=value nor JSON", part)
		}

		var decoded interface{}
		if err := json.Unmarshal([]byte(value), &decoded); err == nil {
			args[key] = decoded
		} else {
			args[key] = value
		}
	}

	return args, nil
}

// parseSearchArgs splits search arguments into free-text query words
// and field=value filters.
func parseSearchArgs(parts []string) (string, map[string]string) {
	var words []string
	filters := make(map[string]string)

	for _, part := range parts {
		if key, value, ok := strings.Cut(part, "="); ok && key != "" {
			filters[key] = value
			continue
		}
		words = append(words, part)
	}

	return strings.Join(words, " "), filters
}
