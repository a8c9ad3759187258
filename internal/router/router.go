// Package router maps one inbound text or callback to the action the bot should take.
// It does no I/O; callers load the chat's settings and flow and apply the Decision.
package router

import (
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Action is what the bot does in response to an input.
type Action int

// Actions. Search actions with an empty payload ask for the query and enter a flow.
const (
	ActionIgnore Action = iota
	ActionUnknown
	ActionWelcome
	ActionHelp
	ActionStartReminders
	ActionStopReminders
	ActionStatus
	ActionIntervalMenu
	ActionSetInterval
	ActionEnableChat
	ActionDisableChat
	ActionCurrency
	ActionGold
	ActionCrypto
	ActionCars
	ActionHolidays
	ActionDigikalaSearch
	ActionDigikalaProduct
	ActionBasalamSearch
	ActionChat
)

var actionNames = [...]string{
	"ignore", "unknown", "welcome", "help", "start_reminders", "stop_reminders", "status",
	"interval_menu", "set_interval", "enable_chat", "disable_chat", "currency", "gold",
	"crypto", "cars", "holidays", "digikala_search", "digikala_product", "basalam_search", "chat",
}

func (a Action) String() string {
	if int(a) < len(actionNames) {
		return actionNames[a]
	}
	return "action(" + strconv.Itoa(int(a)) + ")"
}

// promptFlows are the flows entered when a search action arrives without a payload.
var promptFlows = map[Action]Flow{
	ActionDigikalaSearch:  FlowDigikalaQuery,
	ActionDigikalaProduct: FlowDigikalaProduct,
	ActionBasalamSearch:   FlowBasalamQuery,
	ActionChat:            FlowChatPrompt,
}

// Input is the part of an update the router looks at.
type Input struct {
	Text       string
	Private    bool
	Callback   bool
	ReplyToBot bool
}

// State is the chat's stored state at the time of the input.
type State struct {
	ChatEnabled   bool
	Flow          Flow
	FlowUpdatedAt time.Time
	Now           time.Time
}

// Decision is the routing result.
type Decision struct {
	Action  Action
	Payload string
	// Minutes is set for ActionSetInterval.
	Minutes int
	// ClearFlow asks the caller to drop the stored flow.
	ClearFlow bool
	// NextFlow, when not idle, is the flow to store after replying.
	NextFlow Flow
}

// NeedsPrompt reports whether the decision asks the user for input instead of acting.
func (d Decision) NeedsPrompt() bool {
	return d.NextFlow != FlowIdle
}

// Router holds the values routing depends on that do not change per update.
type Router struct {
	BotUsername string
	FlowTTL     time.Duration
}

// Route decides what to do with in. Checks run in this order: interval callbacks,
// a pending unexpired flow, exact labels and slash commands, then gated free text.
func (r Router) Route(in Input, st State) Decision {
	if in.Callback {
		return routeCallback(in.Text)
	}

	text := strings.TrimSpace(in.Text)
	mentioned := false
	if r.BotUsername != "" {
		text, mentioned = stripMention(text, r.BotUsername)
	}
	addressed := in.Private || mentioned || in.ReplyToBot

	var clear bool
	if st.Flow != FlowIdle {
		switch {
		case Expired(st.FlowUpdatedAt, st.Now, r.FlowTTL):
			clear = true
		case addressed && text != "":
			return r.consumeFlow(st, text)
		}
	}

	d := r.routeText(text, in, st, addressed, mentioned)
	d.ClearFlow = d.ClearFlow || clear
	return d
}

func (r Router) consumeFlow(st State, text string) Decision {
	action := st.Flow.action()
	if action == ActionChat && !st.ChatEnabled {
		return Decision{Action: ActionUnknown, ClearFlow: true}
	}
	return Decision{Action: action, Payload: text, ClearFlow: true}
}

func (r Router) routeText(text string, in Input, st State, addressed, mentioned bool) Decision {
	// A bare mention asks for a prompt; other empty input carries nothing to act on.
	if text == "" && !mentioned {
		return Decision{Action: ActionIgnore}
	}

	if action, ok := labelActions[text]; ok {
		return withPrompt(Decision{Action: action})
	}

	if strings.HasPrefix(text, "/") {
		if d, ok := r.routeCommand(text, in.Private); ok {
			return d
		}
	}

	if !addressed {
		return Decision{Action: ActionIgnore}
	}
	if !st.ChatEnabled {
		return Decision{Action: ActionUnknown}
	}
	return withPrompt(Decision{Action: ActionChat, Payload: text})
}

// routeCommand handles "/cmd", "/cmd@bot" and "/cmd args". A command addressed to
// another bot is not ours.
func (r Router) routeCommand(text string, private bool) (Decision, bool) {
	head, rest, _ := strings.Cut(text, " ")
	name := strings.TrimPrefix(head, "/")
	if cmd, target, found := strings.Cut(name, "@"); found {
		if !strings.EqualFold(target, r.BotUsername) {
			return Decision{Action: ActionIgnore}, true
		}
		name = cmd
	}

	action, ok := commandActions[strings.ToLower(name)]
	if !ok {
		if private {
			return Decision{Action: ActionUnknown}, true
		}
		return Decision{}, false
	}

	d := Decision{Action: action}
	if _, takesPayload := promptFlows[action]; takesPayload {
		d.Payload = strings.TrimSpace(rest)
	}
	return withPrompt(d), true
}

// withPrompt turns a payload-less search action into a prompt that enters its flow.
func withPrompt(d Decision) Decision {
	if flow, ok := promptFlows[d.Action]; ok && d.Payload == "" {
		d.NextFlow = flow
	}
	return d
}

func routeCallback(data string) Decision {
	raw, ok := strings.CutPrefix(data, IntervalCallbackPrefix)
	if !ok {
		return Decision{Action: ActionUnknown}
	}
	minutes, err := strconv.Atoi(raw)
	if err != nil || minutes <= 0 {
		return Decision{Action: ActionUnknown}
	}
	return Decision{Action: ActionSetInterval, Minutes: minutes}
}

// stripMention removes every "@username" token (case-insensitive) from text and
// reports whether one was found. "@username_bot2" does not match "@username".
func stripMention(text, username string) (string, bool) {
	mention := "@" + username
	var b strings.Builder
	found := false
	last := 0
	for i := 0; i+len(mention) <= len(text); i++ {
		if text[i] != '@' || !strings.EqualFold(text[i:i+len(mention)], mention) {
			continue
		}
		end := i + len(mention)
		if end < len(text) {
			if r, _ := utf8.DecodeRuneInString(text[end:]); isUsernameRune(r) {
				continue
			}
		}
		b.WriteString(text[last:i])
		last = end
		i = end - 1
		found = true
	}
	if !found {
		return text, false
	}
	b.WriteString(text[last:])
	return strings.Join(strings.Fields(b.String()), " "), true
}

func isUsernameRune(r rune) bool {
	return r == '_' || (r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r)))
}
