package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot/models"
	"github.com/go-universal/jalaali"

	"github.com/youarebest/tgbot/internal/database"
	"github.com/youarebest/tgbot/internal/router"
	"github.com/youarebest/tgbot/internal/upstream"
)

// incoming is the normalised view of an update that dispatch works on.
type incoming struct {
	ChatID     int64
	Text       string
	Private    bool
	Callback   bool
	ReplyToBot bool
}

// outgoing is what the bot sends back. An empty Text means stay silent.
type outgoing struct {
	Text   string
	Markup models.ReplyMarkup
}

// dispatcher routes one input and applies the decision.
type dispatcher struct {
	deps HandlerDeps
	// msgr, when set, shows a typing indicator during assistant calls.
	msgr messenger
}

func (d dispatcher) with(m messenger) dispatcher {
	d.msgr = m
	return d
}

func (d dispatcher) router() router.Router {
	r := router.Router{FlowTTL: d.deps.Config.Flow.TTL}
	if info := d.deps.Config.Telegram.BotInfo; info != nil {
		r.BotUsername = info.Username
	}
	return r
}

// dispatch loads the chat's state, routes in and performs the resulting action.
// Errors are persistence failures; the caller answers them with the generic apology.
func (d dispatcher) dispatch(ctx context.Context, in incoming) (outgoing, error) {
	settings, err := d.deps.Store.GetChatSettings(ctx, in.ChatID)
	if err != nil {
		return outgoing{}, fmt.Errorf("failed to load chat settings: %w", err)
	}
	flow, err := d.deps.Store.GetFlow(ctx, in.ChatID)
	if err != nil {
		return outgoing{}, fmt.Errorf("failed to load chat flow: %w", err)
	}

	state := router.State{ChatEnabled: settings.ChatEnabled, Now: d.deps.now()}
	if flow != nil {
		state.Flow = router.ParseFlow(flow.State)
		state.FlowUpdatedAt = flow.UpdatedAt
	}

	decision := d.router().Route(router.Input{
		Text:       in.Text,
		Private:    in.Private,
		Callback:   in.Callback,
		ReplyToBot: in.ReplyToBot,
	}, state)

	d.deps.Logger.DebugContext(ctx, "Routed input",
		"chat_id", in.ChatID, "action", decision.Action.String(), "flow", string(state.Flow), "next_flow", string(decision.NextFlow))

	return d.apply(ctx, in.ChatID, settings, decision)
}

// apply performs decision for the chat.
func (d dispatcher) apply(ctx context.Context, chatID int64, settings *database.ChatSettings, decision router.Decision) (outgoing, error) {
	msgs := d.deps.Config.Messages

	if decision.ClearFlow {
		if err := d.deps.Store.ClearFlow(ctx, chatID); err != nil {
			return outgoing{}, fmt.Errorf("failed to clear chat flow: %w", err)
		}
	}
	if decision.NeedsPrompt() {
		if err := d.deps.Store.SetFlow(ctx, chatID, string(decision.NextFlow)); err != nil {
			return outgoing{}, fmt.Errorf("failed to store chat flow: %w", err)
		}
		return outgoing{Text: d.promptFor(decision.NextFlow)}, nil
	}

	switch decision.Action {
	case router.ActionIgnore:
		return outgoing{}, nil
	case router.ActionWelcome:
		return outgoing{Text: msgs.Welcome, Markup: mainKeyboard()}, nil
	case router.ActionHelp:
		return outgoing{Text: msgs.Help, Markup: mainKeyboard()}, nil

	case router.ActionStartReminders:
		interval := settings.Interval()
		if err := d.deps.Reminders.Start(ctx, chatID, interval); err != nil {
			return outgoing{}, fmt.Errorf("failed to start reminders: %w", err)
		}
		return outgoing{Text: fmt.Sprintf(msgs.RemindersStarted, int(interval/time.Minute))}, nil
	case router.ActionStopReminders:
		if err := d.deps.Reminders.Stop(ctx, chatID); err != nil {
			return outgoing{}, fmt.Errorf("failed to stop reminders: %w", err)
		}
		return outgoing{Text: msgs.RemindersStopped}, nil
	case router.ActionStatus:
		return outgoing{Text: d.status(settings)}, nil
	case router.ActionIntervalMenu:
		return outgoing{Text: msgs.IntervalMenu, Markup: intervalKeyboard()}, nil
	case router.ActionSetInterval:
		interval := time.Duration(decision.Minutes) * time.Minute
		if _, err := d.deps.Reminders.ChangeInterval(ctx, chatID, interval); err != nil {
			return outgoing{}, fmt.Errorf("failed to change interval: %w", err)
		}
		return outgoing{Text: fmt.Sprintf(msgs.IntervalSet, decision.Minutes)}, nil

	case router.ActionEnableChat, router.ActionDisableChat:
		enabled := decision.Action == router.ActionEnableChat
		if _, err := d.deps.Store.UpdateChatSettings(ctx, chatID, database.SettingsPatch{ChatEnabled: &enabled}); err != nil {
			return outgoing{}, fmt.Errorf("failed to update chat setting: %w", err)
		}
		if enabled {
			return outgoing{Text: msgs.ChatEnabled}, nil
		}
		return outgoing{Text: msgs.ChatDisabled}, nil

	case router.ActionCurrency:
		return outgoing{Text: d.deps.Gateway.Currency(ctx)}, nil
	case router.ActionGold:
		return outgoing{Text: d.deps.Gateway.Gold(ctx)}, nil
	case router.ActionCrypto:
		return outgoing{Text: d.deps.Gateway.Crypto(ctx)}, nil
	case router.ActionCars:
		return outgoing{Text: d.deps.Gateway.CarPrices(ctx)}, nil
	case router.ActionHolidays:
		return outgoing{Text: d.deps.Gateway.HolidaysToday(ctx)}, nil
	case router.ActionDigikalaSearch:
		return outgoing{Text: d.deps.Gateway.DigikalaSearch(ctx, decision.Payload)}, nil
	case router.ActionDigikalaProduct:
		return outgoing{Text: d.deps.Gateway.DigikalaProduct(ctx, decision.Payload)}, nil
	case router.ActionBasalamSearch:
		return outgoing{Text: d.deps.Gateway.BasalamSearch(ctx, decision.Payload)}, nil
	case router.ActionChat:
		if d.msgr != nil {
			stop := keepTyping(ctx, d.msgr, chatID, d.deps.Logger)
			defer stop()
		}
		return outgoing{Text: d.deps.Assistant.Reply(ctx, chatID, decision.Payload)}, nil

	default:
		return outgoing{Text: msgs.Unknown}, nil
	}
}

func (d dispatcher) promptFor(flow router.Flow) string {
	msgs := d.deps.Config.Messages
	switch flow {
	case router.FlowDigikalaProduct:
		return msgs.AskProductID
	case router.FlowChatPrompt:
		return msgs.AskChatPrompt
	default:
		return msgs.AskSearchQuery
	}
}

// status renders the chat's settings with the current Jalali date and time.
func (d dispatcher) status(settings *database.ChatSettings) string {
	msgs := d.deps.Config.Messages
	reminders, chat := msgs.StateOff, msgs.StateOff
	if settings.IsActive {
		reminders = msgs.StateOn
	}
	if settings.ChatEnabled {
		chat = msgs.StateOn
	}
	now := jalaali.New(d.deps.now().In(d.deps.Config.Location())).Format("2006/01/02 - 15:04")
	return fmt.Sprintf(msgs.Status, reminders, int(settings.Interval()/time.Minute), chat, upstream.ToPersianDigits(now))
}
