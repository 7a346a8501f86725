package config

import "github.com/spf13/viper"

// Task names known to the scheduler.
const (
	TaskProfileMatching   = "profile_matching"
	TaskDailyBroadcast    = "daily_broadcast"
	TaskProfileStatistics = "profile_statistics"
	TaskSQLMaintenance    = "sql_maintenance"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.json", false)

	v.SetDefault("database.path", "storage.db")

	// Empty defaults register the keys so BOT_TELEGRAM_TOKEN and friends bind.
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.admin_user_id", 0)

	v.SetDefault("matching.fallback_user_id", 0)
	v.SetDefault("matching.scorer", ScorerTFIDF)

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.embedding_model", "text-embedding-004")
	v.SetDefault("gemini.max_retries", 3)
	v.SetDefault("gemini.retry_delay_seconds", 5)
	v.SetDefault("gemini.batch_size", 100)

	setTaskDefault(v, TaskProfileMatching, "0 0 11 * * MON")
	setTaskDefault(v, TaskDailyBroadcast, "0 0 18 * * *")
	setTaskDefault(v, TaskProfileStatistics, "0 0 18 * * *")
	setTaskDefault(v, TaskSQLMaintenance, "0 0 4 * * SUN")

	for key, value := range defaultMessages {
		v.SetDefault("messages."+key, value)
	}
}

// DefaultMessages returns the built-in message set.
func DefaultMessages() MessagesConfig {
	v := viper.New()
	setDefaults(v)

	// Flat string fields always decode from the string defaults.
	var msgs MessagesConfig
	_ = v.UnmarshalKey("messages", &msgs)
	return msgs
}

func setTaskDefault(v *viper.Viper, name, schedule string) {
	v.SetDefault("scheduler.tasks."+name+".enabled", true)
	v.SetDefault("scheduler.tasks."+name+".schedule", schedule)
}

var defaultMessages = map[string]string{
	"start": "Hi! 👋 This bot introduces you to a new person every week.\n\n" +
		"Fill in a short profile and every Monday we will send you a conversation partner " +
		"whose interests are close to yours.",
	"start_button":       "Let's go 🚀",
	"start_acknowledged": "➪ Let's go 🚀",
	"info": "How it works:\n\n" +
		"1. You answer four short questions.\n" +
		"2. On Monday you get a message with your partner's profile.\n" +
		"3. You write to them and agree on a time to meet.\n\n" +
		"You can hide your profile at any time with /profile.",
	"info_button":       "Got it 😊",
	"info_acknowledged": "➪ Got it 🫡",
	"help": "/start - fill in your profile\n" +
		"/profile - show your profile\n" +
		"/restart - delete your profile and start over\n" +
		"/support - write to support",
	"start_first":     "Please begin with the /start command.",
	"unknown_command": "Unknown command. Try /start.",
	"general_error":   "Something went wrong. Please try again later.",
	"not_authorized":  "You are not authorized to use this command.",

	"ask_name":             "Please enter your first and last name.",
	"ask_name_photo":       "",
	"ask_age":              "Please enter your age.",
	"ask_discussion_topic": "👀 What would you like to talk about?",
	"ask_fun_fact":         "Please share a fun fact about yourself.",
	"input_too_long_fmt":   "Your input is too long. Please shorten it to %d characters.",
	"profile_save_error":   "An error occurred while saving your profile. Please try again.",
	"profile_not_found":    "Profile not found. Please fill it in with the /start command.",
	"profile_preview_header": "This is how your profile will look in the message we send " +
		"to your conversation partner:\n⏬",
	"profile_fmt":      "<b>%s</b>\nAge: %s\nWants to discuss: %s\nFun fact: %s\nContact: %s",
	"contact_link_fmt": `<a href="tg://user?id=%d">User profile</a>`,
	"profile_visible":  "✅ Your profile is visible.",
	"profile_hidden":   "❌ Nobody can see your profile at the moment.",
	"edit_button":      "Edit",
	"toggle_button":    "Change visibility",

	"support_prompt": "Please describe your problem. The maximum message length is 2000 characters. " +
		"You can send at most one message every 15 minutes. If you changed your mind, press /profile.",
	"support_too_long_fmt": "Your message is too long. Please shorten it to %d characters.",
	"support_wait_fmt":     "You have already contacted support recently. Please wait %d more minutes.",
	"support_resubmit_fmt": "You can only send one message every 15 minutes. Please wait %d more minutes.",
	"support_sent":         "Your support request was sent. Thank you!",
	"support_save_error":   "An error occurred while saving your request. Please try again.",

	"match_intro_fmt": "Hi! 👋 Your conversation partner this week:\n\n%s\n\n" +
		"We recommend getting in touch soon and agreeing on a time to meet. " +
		"Questions? Use /support.",

	"stats_fmt": "Profiles: %d\nVisible: %d\nBanned: %d\nBlocked the bot: %d\nEligible for matching: %d",
	"broadcast_usage":    "Usage: /broadcast <text>",
	"broadcast_queued":   "Broadcast queued for the next daily run.",
	"match_now_done_fmt": "Matching run %s finished: %d pairs, %d unpaired.",
	"match_now_busy":     "A matching run is already in progress.",

	"cmd_profile": "My profile",
	"cmd_help":    "Help",
	"cmd_support": "Contact support",
}
