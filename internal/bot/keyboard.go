package bot

import (
	"strings"

	"github.com/xaenox/fizzy-bot/internal/models"
)

// Callback data carried by menu buttons.
const (
	callbackSetToken      = "set_token"
	callbackStart         = "start"
	callbackStatus        = "status"
	callbackHelp          = "help"
	callbackSelectAccount = "select_account_btn"

	selectAccountPrefix = "select_account:"
)

func privateMenu() Keyboard {
	return Keyboard{
		{{Text: "Setup Token", Data: callbackSetToken}},
		{{Text: "Token accounts", Data: callbackStatus}},
		{{Text: "How to Use", Data: callbackStart}, {Text: "Help", Data: callbackHelp}},
	}
}

func groupMenu(botUsername string) Keyboard {
	return Keyboard{
		{{Text: "Setup Fizzy Personal Token", URL: "https://t.me/" + botUsername + "?start=setup"}},
		{{Text: "Status", Data: callbackStatus}, {Text: "Select Account", Data: callbackSelectAccount}},
		{{Text: "How to Use", Data: callbackStart}, {Text: "Help", Data: callbackHelp}},
	}
}

// accountKeyboard lists every alias, two per row, marking current.
func accountKeyboard(tokens []models.UserToken, current string) Keyboard {
	var kb Keyboard
	for i, t := range tokens {
		label := t.Alias + " (" + t.AccountSlug + ")"
		if current != "" && t.Alias == current {
			label = "✅ " + label
		}
		button := Button{Text: label, Data: selectAccountPrefix + t.Alias}
		if i%2 == 0 {
			kb = append(kb, []Button{button})
		} else {
			kb[len(kb)-1] = append(kb[len(kb)-1], button)
		}
	}
	return kb
}

// selectedAlias extracts the alias from select_account:<alias> data.
func selectedAlias(data string) (string, bool) {
	alias, ok := strings.CutPrefix(data, selectAccountPrefix)
	if !ok || alias == "" {
		return "", false
	}
	return alias, true
}
