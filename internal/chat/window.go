package chat

import (
	gateway "github.com/AgriCapital-Web/vitrine-agricapital-sub001/internal"
)

// buildWindow assembles the exact message sequence sent upstream:
// exactly one system turn first, then at most maxHistory of the most
// recent history turns (older ones dropped silently), then the newest
// turn with its normalized content.
func buildWindow(system string, history []gateway.ChatTurn, newest gateway.ChatTurn, maxHistory int) []gateway.ChatTurn {
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}

	window := make([]gateway.ChatTurn, 0, len(history)+2)
	window = append(window, gateway.ChatTurn{
		Role:    gateway.RoleSystem,
		Content: gateway.TextContent(system),
	})
	window = append(window, history...)
	return append(window, newest)
}
