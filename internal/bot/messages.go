package bot

import (
	"fmt"
	"strings"

	"github.com/xaenox/fizzy-bot/internal/models"
)

// Reply texts. Texts sent with ParseMarkdownV2 are pre-escaped.

func welcomePrivate(baseURL string) string {
	return "🚀 Welcome to Fizzy Telegram Bot!\n\n" +
		"📝 Getting Started:\n\n" +
		"1️⃣ *Setup token* — Configure your Fizzy personal token here in private chat\n" +
		"   Use the \"Setup Token\" button below or run:\n" +
		"   `/config_token <alias> <slug> <token>`\n\n" +
		"   Get your token on \"My profile\" section on " + baseURL + "\n\n" +
		"2️⃣ *Setup board* — Go to your group/topic and run:\n" +
		"   `/config_board <board_id>`\n\n" +
		"3️⃣ *Create cards* — Start creating cards with:\n" +
		"   `/issue <title>`, `/todo <title>`, or `/fizzy <title>`\n\n" +
		"Use the buttons below for easy setup! 👇"
}

const welcomeGroup = "🚀 Welcome to Fizzy Telegram Bot!\n\n" +
	"📝 Getting Started:\n\n" +
	"1️⃣ *Setup token* — Configure your Fizzy personal token in private chat\n" +
	"   Click \"Setup Fizzy Personal Token\" button below\n\n" +
	"2️⃣ *Setup board* — Set the board for this topic/chat:\n" +
	"   `/config_board <board_id>`\n\n" +
	"3️⃣ *Create cards* — Start creating cards:\n" +
	"   `/issue <title>`, `/todo <title>`, or `/fizzy <title>`\n\n" +
	"   Example: `/todo Fix login` or `/issue Add feature -d Description here`\n\n" +
	"💡 Tip: Reply to messages/images to include context in your cards!"

const welcomeBotAdded = "Welcome! Click below to set up:"

const configTokenHelp = "*Command*\n" +
	"`/config_token <alias> <account_slug> <personal_token>`\n\n" +
	"Params:\n\n" +
	"• _Alias_\n" +
	"A friendly name for this account \\(e\\.g\\., work, personal, client\\-acme\\)\n\n" +
	"• _Account slug_\n" +
	"Your account slug in Fizzy app, usually the first number on url after domain:\n" +
	"https://app\\.fizzy\\.do/1234456/ \\(1234456 is account slug\\)\n\n" +
	"• _Personal token_\n" +
	"You can generate one in \"My profile\" in Fizzy app\\.\n\n" +
	"*Example of usage:*\n" +
	"`/config_token work 1234456 abc123token456`"

const helpPrivate = "📚 *Available Commands*\n\n" +
	"*Account Management:*\n" +
	"• `/config_token <alias> <slug> <token>` — Save/update Fizzy account\n" +
	"  Example: `/config_token work 1234456 abc123token456`\n" +
	"• `/delete_account <alias>` — Remove saved account\n" +
	"  Example: `/delete_account work`\n\n" +
	"*General:*\n" +
	"• `/start` — Show welcome message and setup steps\n" +
	"• `/help` — Show this help message\n" +
	"• `/status` — Show all your configured accounts\n\n" +
	"*Usage:*\n" +
	"1\\. Save your Fizzy token\\(s\\) here in private chat\n" +
	"2\\. Go to your group and run `/config_board <board_id>`\n" +
	"3\\. Start creating cards with `/issue` or `/todo`\n\n" +
	"💡 Tip: Run any command without arguments to see examples\\."

const helpGroup = "📚 *Available Commands*\n\n" +
	"*Setup:*\n" +
	"• `/config_board <board_id>` — Set board for this topic/chat\n" +
	"  Example: `/config_board 03f770pvr5f56`\n" +
	"• `/select_account` — Switch Fizzy personal token account for this chat\n\n" +
	"*Creating Cards:*\n" +
	"• `/issue <title> -d [description]` — Create a card\n" +
	"• `/todo <title> -d [description]` — Create a card \\(same as issue\\)\n" +
	"• `/fizzy <title> -d [description]` — Create a card \\(same as issue\\)\n\n" +
	"  Examples:\n" +
	"  • `/todo Fix login`\n" +
	"  • `/issue Add feature -d Description here`\n" +
	"  • `/fizzy Review PR -d Check the new login flow`\n\n" +
	"  💡 Tip: Reply to a message/image to include context in your card\\!\n\n" +
	"*General:*\n" +
	"• `/start` — Show welcome message and setup steps\n" +
	"• `/help` — Show this help message\n" +
	"• `/status` — Show current account and board configuration\n\n" +
	"*Note:* First configure your token in private chat\\!"

// Token configuration

func configTokenMissingArgs(isPrivate bool) string {
	msg := "❌ Missing arguments!\n\n" +
		"Usage:\n" +
		"`/config_token <alias> <account_slug> <personal_token>`\n\n" +
		"Example:\n" +
		"`/config_token work 1234456 abc123token456`"
	if !isPrivate {
		msg += "\n\n🚨 Run this command in private chat for security."
	}
	return msg
}

const configTokenIncorrectArgs = "❌ Incorrect arguments!\n\n" +
	"Usage:\n" +
	"`/config_token <alias> <account_slug> <personal_token>`\n\n" +
	"Example:\n" +
	"`/config_token work 1234456 abc123token456`"

const configTokenNotPrivate = "⚠️ For security, tokens must be set in private chat.\n\n" +
	"Click the 'Setup Token (Private Chat)' button to configure your account."

func tokenSaved(alias, accountSlug string) string {
	return fmt.Sprintf("✅ Token '%s' saved!\n\nAccount: %s", alias, accountSlug)
}

func tokenUpdated(alias, accountSlug string) string {
	return fmt.Sprintf("✅ Token '%s' updated!\n\nAccount: %s\n\n💡 Tip: Any chats using this account will now use the new token.", alias, accountSlug)
}

func tokenNotFound(alias string) string {
	return fmt.Sprintf("❌ Token '%s' not found. Please set it up in private chat.", alias)
}

// Account deletion

const deleteAccountMissingAlias = "❌ Missing account alias!\n\n" +
	"Usage:\n" +
	"`/delete_account <alias>`\n\n" +
	"Example:\n" +
	"`/delete_account work`\n\n" +
	"💡 Use /help to see all your configured accounts."

const deleteAccountIncorrectArgs = "❌ Incorrect arguments!\n\n" +
	"Usage:\n" +
	"`/delete_account <alias>`\n\n" +
	"Example:\n" +
	"`/delete_account work`"

const deleteAccountNotPrivate = "This command is only available in private chat."

func deleteAccountNotFound(alias string) string {
	return fmt.Sprintf("❌ Account '%s' not found.", alias)
}

func deleteAccountSuccess(alias string) string {
	return fmt.Sprintf("✅ Account '%s' deleted.", alias)
}

// Board configuration

const configBoardMissingID = "❌ Missing board ID!\n\n" +
	"Usage:\n" +
	"`/config_board <board_id>`\n\n" +
	"Example:\n" +
	"`/config_board 03f770pvr5f56`"

const configBoardIncorrectArgs = "❌ Incorrect arguments!\n\n" +
	"Usage:\n" +
	"`/config_board <board_id>`\n\n" +
	"Example:\n" +
	"`/config_board 03f770pvr5f56`"

const configBoardInvalidID = "❌ Invalid board ID. Board IDs are usually longer."

const configBoardNoTokenPrivate = "⚠️ First, configure your token in private chat!\n\n" +
	"Click 'First, let's setup token (Private Chat)' button in /start"

func boardNotFound(boardID string) string {
	return fmt.Sprintf("❌ Board not found: %s\n\nThe board ID might be incorrect or the board doesn't exist.\n\nPlease check the board ID and try again.", boardID)
}

func boardSet(boardID string, boardName *string, alias, accountSlug string) string {
	display := boardID
	if boardName != nil && *boardName != "" {
		display = fmt.Sprintf("%s (%s)", boardID, *boardName)
	}
	if alias != "" && accountSlug != "" {
		return fmt.Sprintf("✅ Board set: %s\n\nUsing account: %s (%s)\n\nYou can now use /issue, /todo, or /fizzy here.", display, alias, accountSlug)
	}
	return fmt.Sprintf("✅ Board set: %s\n\nYou can now use /issue, /todo, or /fizzy here.", display)
}

const noBoardConfigured = "❌ No board configured. Use /config_board <board_id> first."

// Account selection

const noAccountsConfigured = "❌ No accounts configured.\n\n" +
	"Set up your token in private chat first.\n\n" +
	"Click 'Setup Fizzy Personal Token' button."

const noAccountsForCard = "❌ No accounts configured.\n\n" +
	"Set up your token in private chat first.\n\n" +
	"Click 'Setup Fizzy Personal Token' button in /start"

const selectAccountPrompt = "🔑 Select which account to use for this chat:"

const selectAccountIncorrectArgs = "❌ This command doesn't take arguments!\n\n" +
	"Usage:\n" +
	"`/select_account`\n\n" +
	"This command will show you a menu to select which account to use for this chat."

const selectAccountNotGroup = "This command is only available in group chats."

func accountSelected(alias string) string {
	return fmt.Sprintf("✅ Account '%s' selected for this chat!", alias)
}

func accountSelectedWithPending(alias string) string {
	return fmt.Sprintf("Using '%s' account. Creating card...", alias)
}

// Cards

func missingTitle(verb string) string {
	return fmt.Sprintf("Missing title!\n\n"+
		"Usage:\n"+
		"`/%[1]s <title> -d [description]`\n\n"+
		"Example:\n"+
		"`/%[1]s Fix login -d Happens on iOS only`\n"+
		"Or: `/%[1]s Add favicon`", verb)
}

func missingTitleReply(verb string) string {
	return fmt.Sprintf("Missing title!\n\nUsage:\n/%[1]s <title> -d [description]\n\nExample:\n/%[1]s Fix login -d Happens on iOS only\nOr: /%[1]s Add favicon", verb)
}

const creatingCard = "Creating Fizzy card..."

func cardCreated(title, url string) string {
	return fmt.Sprintf("✅ Card created!\n%s\n%s", title, url)
}

func cardCreationFailed(detail string) string {
	return "❌ Failed to create card\n\n" + detail
}

// Status

const statusPrivateNoAccounts = "📊 Your Status:\n\n" +
	"❌ No Fizzy accounts configured yet.\n\n" +
	"You need to set up your Fizzy personal token first.\n\n" +
	"Click the 'Setup Token' button below to get started."

func statusPrivateWithAccounts(tokens []models.UserToken) string {
	var b strings.Builder
	b.WriteString("Saved Token Accounts:\n\n")
	for _, t := range tokens {
		fmt.Fprintf(&b, "• %s (%s)\n", t.Alias, t.AccountSlug)
	}
	return b.String()
}

func statusGroup(link *models.ChatTokenLink, token *models.UserToken, board *models.TopicBoard) string {
	var b strings.Builder
	b.WriteString("Status\n\n")
	if link != nil && token != nil {
		fmt.Fprintf(&b, "✅ Personal Token: %s (%s)\n", link.Alias, token.AccountSlug)
	} else {
		b.WriteString("❌ Personal Token: not set\n")
	}
	if board != nil {
		fmt.Fprintf(&b, "✅ Board: %s\n", board.DisplayName())
	} else {
		b.WriteString("❌ Board: not set\n")
	}
	return b.String()
}

const internalError = "⚠️ Something went wrong. Please try again later."
