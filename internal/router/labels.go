package router

// Reply keyboard labels. Matching is exact.
const (
	LabelStartReminders  = "⏰ شروع یادآوری"
	LabelStopReminders   = "⛔️ توقف یادآوری"
	LabelStatus          = "📊 وضعیت"
	LabelIntervalMenu    = "⏱ تغییر فاصله"
	LabelEnableChat      = "💬 روشن کردن چت"
	LabelDisableChat     = "🔕 خاموش کردن چت"
	LabelCurrency        = "💵 نرخ ارز"
	LabelGold            = "🪙 قیمت طلا"
	LabelCrypto          = "₿ رمزارز"
	LabelCars            = "🚗 قیمت خودرو"
	LabelHolidays        = "📅 تعطیلات امروز"
	LabelDigikalaSearch  = "🛒 جستجوی دیجی‌کالا"
	LabelDigikalaProduct = "🔢 محصول دیجی‌کالا"
	LabelBasalamSearch   = "🧺 جستجوی باسلام"
	LabelHelp            = "❓ راهنما"
)

// KeyboardRows is the layout of the main reply keyboard.
var KeyboardRows = [][]string{
	{LabelStartReminders, LabelStopReminders},
	{LabelIntervalMenu, LabelStatus},
	{LabelCurrency, LabelGold, LabelCrypto},
	{LabelCars, LabelHolidays},
	{LabelDigikalaSearch, LabelDigikalaProduct},
	{LabelBasalamSearch},
	{LabelEnableChat, LabelDisableChat},
	{LabelHelp},
}

var labelActions = map[string]Action{
	LabelStartReminders:  ActionStartReminders,
	LabelStopReminders:   ActionStopReminders,
	LabelStatus:          ActionStatus,
	LabelIntervalMenu:    ActionIntervalMenu,
	LabelEnableChat:      ActionEnableChat,
	LabelDisableChat:     ActionDisableChat,
	LabelCurrency:        ActionCurrency,
	LabelGold:            ActionGold,
	LabelCrypto:          ActionCrypto,
	LabelCars:            ActionCars,
	LabelHolidays:        ActionHolidays,
	LabelDigikalaSearch:  ActionDigikalaSearch,
	LabelDigikalaProduct: ActionDigikalaProduct,
	LabelBasalamSearch:   ActionBasalamSearch,
	LabelHelp:            ActionHelp,
}

// commandActions maps slash commands (without the slash) to actions.
// Search commands take the rest of the line as their query.
var commandActions = map[string]Action{
	"start":      ActionWelcome,
	"help":       ActionHelp,
	"status":     ActionStatus,
	"remind_on":  ActionStartReminders,
	"remind_off": ActionStopReminders,
	"interval":   ActionIntervalMenu,
	"chat_on":    ActionEnableChat,
	"chat_off":   ActionDisableChat,
	"currency":   ActionCurrency,
	"gold":       ActionGold,
	"crypto":     ActionCrypto,
	"cars":       ActionCars,
	"holidays":   ActionHolidays,
	"digikala":   ActionDigikalaSearch,
	"product":    ActionDigikalaProduct,
	"basalam":    ActionBasalamSearch,
	"ask":        ActionChat,
}

// IntervalChoices are the minutes offered by the interval menu.
var IntervalChoices = []int{15, 30, 60, 120, 240}

// IntervalCallbackPrefix prefixes interval menu callback data, as in "int_30".
const IntervalCallbackPrefix = "int_"
