package config

import "time"

// Default values for configuration
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = true

	// The original deployment listened on PORT=10000.
	DefaultServerPort            = 10000
	DefaultServerShutdownTimeout = 10 * time.Second

	DefaultDBPath = "storage.db"

	DefaultReminderInterval = time.Hour
	DefaultQuietStart       = 23
	DefaultQuietEnd         = 8
	DefaultTimezone         = "Asia/Tehran"

	DefaultSQLMaintenanceSchedule = "0 4 * * *"
	DefaultFlowCleanupSchedule    = "*/15 * * * *"

	DefaultFlowTTL = 10 * time.Minute

	DefaultGeminiModel        = "gemini-2.0-flash"
	DefaultGeminiTemperature  = 0.8
	DefaultGeminiMaxRetries   = 2
	DefaultGeminiRetryDelay   = 2 * time.Second
	DefaultGeminiHistoryLimit = 20
	DefaultGeminiTimeout      = 60 * time.Second
	DefaultGeminiInstruction  = "تو یک دستیار مهربان و کوتاه‌گو در تلگرام هستی و همیشه به فارسی پاسخ می‌دهی."

	DefaultUpstreamTimeout    = 15 * time.Second
	DefaultUpstreamCacheTTL   = time.Minute
	DefaultUpstreamCacheSize  = 256
	DefaultUpstreamMaxResults = 5
	DefaultBreakerFailures    = 5
	DefaultBreakerCooldown    = 30 * time.Second
	DefaultNavasanURL         = "https://api.navasan.tech/latest/"
	DefaultCarPricesURL       = "https://www.iranjib.ir/showgroup/45/"
	DefaultHolidaysURL        = "https://holidayapi.ir/jalali/"
	DefaultDigikalaURL        = "https://api.digikala.com/"
	DefaultBasalamURL         = "https://search.basalam.com/ai-engine/api/v2.0/product/search"
)

// DefaultReminderMessages is the pool a reminder picks from.
var DefaultReminderMessages = []string{
	"🌟 یادت نره، تو بهترینی!",
	"💪 یه نفس عمیق بکش، داری عالی پیش میری.",
	"💧 یه لیوان آب بخور و کمی استراحت کن.",
	"🌱 هر قدم کوچیک، یه پیشرفت بزرگه.",
	"☀️ لبخند بزن، امروز مال توئه.",
	"🧘 چند دقیقه از پشت میز بلند شو و کش و قوس بیا.",
}

// DefaultMessages are the Persian user-facing strings.
var DefaultMessages = MessagesConfig{
	Welcome:          "✅ سلام! ربات آماده‌ست. از دکمه‌های پایین استفاده کن.",
	Help:             "📖 راهنما:\n• ⏰ شروع یادآوری / ⛔️ توقف یادآوری\n• ⏱ تغییر فاصله یادآوری\n• 💵 ارز، 🪙 طلا، ₿ رمزارز، 🚗 خودرو، 📅 تعطیلات\n• 🛒 جستجوی دیجی‌کالا و باسلام\n• 💬 چت هوشمند (در گروه من رو منشن کن یا روی پیامم ریپلای بزن)",
	GeneralError:     "❌ متأسفم، مشکلی پیش اومد. لطفاً دوباره تلاش کن.",
	Unknown:          "🤔 متوجه نشدم. از دکمه‌ها استفاده کن یا /help رو بفرست.",
	RemindersStarted: "⏰ یادآوری فعال شد (هر %d دقیقه).",
	RemindersStopped: "⛔️ یادآوری متوقف شد.",
	IntervalMenu:     "⏱ فاصله یادآوری رو انتخاب کن:",
	IntervalSet:      "✅ فاصله یادآوری روی %d دقیقه تنظیم شد.",
	ChatEnabled:      "💬 چت هوشمند فعال شد.",
	ChatDisabled:     "🔕 چت هوشمند غیرفعال شد.",
	Status:           "📊 وضعیت:\nیادآوری: %s\nفاصله: %d دقیقه\nچت هوشمند: %s\n🕒 %s",
	AskSearchQuery:   "🔎 عبارت جستجو رو بفرست:",
	AskProductID:     "🔢 شناسه محصول دیجی‌کالا رو بفرست:",
	AskChatPrompt:    "💬 چی می‌خوای بپرسی؟",
	StateOn:          "✅ فعال",
	StateOff:         "❌ غیرفعال",
	UpstreamError:    "⚠️ متأسفم، الان نمی‌تونم اطلاعات رو بگیرم. کمی بعد دوباره امتحان کن.",
	NothingFound:     "🔍 چیزی پیدا نشد.",
	AIError:          "🤖 متأسفم، الان نمی‌تونم جواب بدم.",
}
