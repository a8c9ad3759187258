package router

import "time"

// Flow marks that a chat's next message answers a question the bot asked.
type Flow string

// Flows stored in chat_flows.state.
const (
	FlowIdle            Flow = ""
	FlowDigikalaQuery   Flow = "awaiting_digikala_query"
	FlowDigikalaProduct Flow = "awaiting_digikala_product"
	FlowBasalamQuery    Flow = "awaiting_basalam_query"
	FlowChatPrompt      Flow = "awaiting_chat_prompt"
)

// ParseFlow maps a stored state back to a Flow. Unknown states read as idle.
func ParseFlow(s string) Flow {
	switch f := Flow(s); f {
	case FlowDigikalaQuery, FlowDigikalaProduct, FlowBasalamQuery, FlowChatPrompt:
		return f
	default:
		return FlowIdle
	}
}

// Expired reports whether a flow set at since is older than ttl at now.
// A non-positive ttl never expires.
func Expired(since, now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(since) > ttl
}

// action is what a consumed flow turns its answer into.
func (f Flow) action() Action {
	switch f {
	case FlowDigikalaQuery:
		return ActionDigikalaSearch
	case FlowDigikalaProduct:
		return ActionDigikalaProduct
	case FlowBasalamQuery:
		return ActionBasalamSearch
	case FlowChatPrompt:
		return ActionChat
	default:
		return ActionUnknown
	}
}
