package agent

import (
	"sort"

	"github.com/chzyer/readline"
)

// createCompleter builds the tab completion tree from the command table
// and the cached tool list. It is rebuilt whenever the gateway announces
// a tool list change.
func (r *REPL) createCompleter() *readline.PrefixCompleter {
	toolNames := readline.PcItemDynamic(r.completeToolNames)

	var items []readline.PrefixCompleterInterface
	for _, cmd := range r.commands {
		names := append([]string{cmd.name}, cmd.aliases...)
		for _, name := range names {
			switch cmd.name {
			case "describe", "call":
				items = append(items, readline.PcItem(name, toolNames))
			default:
				items = append(items, readline.PcItem(name))
			}
		}
	}

	return readline.NewPrefixCompleter(items...)
}

// completeToolNames returns the cached tool names, sorted for stable
// completion order.
func (r *REPL) completeToolNames(line string) []string {
	tools := r.client.Tools()
	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	return names
}

// filterInput filters input characters for readline
func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}
