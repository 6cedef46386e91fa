package telegram

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"quiz-bot/api/internal/quiz"
	"quiz-bot/api/internal/render"
	"quiz-bot/api/internal/sanitize"
	"quiz-bot/api/internal/util"
)

const (
	cbExtract = "extract_test"
	cbInfo    = "get_info"
	cbHelp    = "help"
	cbBack    = "back_to_menu"

	maxDescription = 3000
)

const welcomeText = "🤖 *Test Extraction and Info Bot*\n\n" +
	"✨ *Available features:*\n" +
	"📚 *Extract Test:* download test questions in various formats\n" +
	"ℹ️ *Get Test Info:* view test details and syllabus\n\n" +
	"🚀 *Choose an option below:*"

const helpText = "❓ *How to use this bot*\n\n" +
	"📚 *Extract Test:* send /extract, then the test NID, then pick a format.\n" +
	"ℹ️ *Get Test Info:* send /info followed by the NID.\n" +
	"❌ /cancel drops the current operation.\n\n" +
	"📋 *Formats:*\n" +
	"🎯 NEET style: 2-column printable paper with syllabus\n" +
	"📝 Questions only: clean format for practice\n" +
	"✅ Questions + answers: correct options highlighted\n" +
	"🧾 Questions + solutions: answers and explanations inline\n" +
	"📖 Complete solutions: answer key and explanations\n\n" +
	"🔢 The NID is the numeric id of the test, for example 4342866055."

const (
	askNIDText     = "📚 *Extract Test*\n\n🔢 Please send the *NID* (numerical ID) of the test you want to extract:"
	askInfoNIDText = "ℹ️ *Get Test Info*\n\n🔢 Please send the *NID* (numerical ID) to get test information:"
	invalidNIDText = "❌ Invalid NID. Please send a numerical ID. 🔢"
	pickFormatText = "👆 Pick a format from the buttons above, or /cancel."
	useStartText   = "🚀 Use /start to open the menu."
	cancelledText  = "❌ Operation cancelled.\n\n🚀 Use /start to begin a new operation."
	expiredText    = "⌛ This selection has expired. Send /extract to start again."
	notOwnerText   = "🚫 Only the bot owner can manage access."
)

func accessDeniedText(uid int64) string {
	return fmt.Sprintf("🚫 *Access Denied*\n\n❌ You are not authorized to use this bot.\n\n🆔 *Your User ID:* `%d`", uid)
}

func mainMenuKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📚 Extract Test", cbExtract),
			tgbotapi.NewInlineKeyboardButtonData("ℹ️ Get Test Info", cbInfo),
		),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("❓ Help", cbHelp)),
	)
	return &kb
}

func backKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔙 Back to Menu", cbBack)),
	)
	return &kb
}

var formatIcons = map[render.Variant]string{
	render.PrintLayout:        "🎯",
	render.QuestionsOnly:      "📝",
	render.QuestionsAnswers:   "✅",
	render.QuestionsSolutions: "🧾",
	render.SolutionsOnly:      "📖",
}

// formatKeyboard puts two variants per row and "All formats" last.
// Callback data is the variant id.
func formatKeyboard() *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, v := range render.AllVariants {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(formatIcons[v]+" "+v.Label(), string(v)))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	all := fmt.Sprintf("📦 All formats (%d files)", len(render.AllVariants))
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(all, render.AllFormats)))
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func chooseFormatText(nid string) string {
	return fmt.Sprintf("🔢 NID: `%s`\n\n📋 Choose the format to extract:", nid)
}

func caption(v render.Variant) string {
	switch v {
	case render.PrintLayout:
		return "🎯 NEET style with syllabus: 2-column printable format"
	case render.QuestionsOnly:
		return "📝 Questions only: no answers shown (for practice)"
	case render.QuestionsAnswers:
		return "✅ Questions with correct answers highlighted"
	case render.QuestionsSolutions:
		return "🧾 Questions with answers and solutions"
	case render.SolutionsOnly:
		return "📖 Complete solutions: answer key and explanations"
	}
	return v.Label()
}

var (
	subjectNames      = `Physics|Chemistry|Botany|Zoology|Mathematics|Biology`
	reSubjectInline   = regexp.MustCompile(`(?i)(\S)\s*\b(` + subjectNames + `)\s*:`)
	reSubjectLeading  = regexp.MustCompile(`(?i)^(` + subjectNames + `)\s*:`)
	reExtraBlankLines = regexp.MustCompile(`\n{3,}`)
)

// formatDescription turns a rich-text description into Telegram HTML with every
// subject heading bold and on its own paragraph.
func formatDescription(raw string) string {
	plain := util.Truncate(sanitize.PlainText(raw), maxDescription)
	if plain == "" {
		return "N/A"
	}
	s := html.EscapeString(plain)
	s = reSubjectInline.ReplaceAllString(s, "$1\n\n<b>$2:</b>")
	s = reSubjectLeading.ReplaceAllString(s, "<b>$1:</b>")
	s = reExtraBlankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// formatInfo renders test metadata as a Telegram HTML message.
func formatInfo(nid string, m *quiz.Metadata, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("📋 <b>QUIZ INFORMATION</b>\n\n")
	fmt.Fprintf(&b, "📚 <b>Test Name:</b>\n%s\n\n", html.EscapeString(m.TitleOr(nid)))
	fmt.Fprintf(&b, "🔢 <b>NID:</b> <code>%s</code>\n\n", html.EscapeString(nid))
	fmt.Fprintf(&b, "📝 <b>Description and Syllabus:</b>\n%s\n\n", formatDescription(m.Description))
	b.WriteString("⏰ <b>Timing Information:</b>\n")
	fmt.Fprintf(&b, "🕐 <b>Opens:</b> %s\n", quiz.FormatEpoch(m.QuizOpen, loc))
	fmt.Fprintf(&b, "🔒 <b>Closes:</b> %s\n", quiz.FormatEpoch(m.QuizClose, loc))
	fmt.Fprintf(&b, "📊 <b>Results:</b> %s", quiz.FormatEpoch(m.ShowResults, loc))
	return b.String()
}
