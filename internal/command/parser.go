// Package command turns raw chat text into a structured command.
//
// Each command has up to three shapes: a full match carrying valid
// arguments, a "lonely" verb with no arguments, and an "incomplete" verb
// whose arguments are malformed. The last two are reported as problems so
// callers can reply with the exact usage instead of silently ignoring them.
package command

import (
	"regexp"
	"strings"
)

type Kind int

const (
	None Kind = iota
	ConfigToken
	DeleteAccount
	ConfigBoard
	SelectAccount
	CreateCard
	Status
	Start
	Help
)

var kindNames = map[Kind]string{
	None:          "none",
	ConfigToken:   "/config_token",
	DeleteAccount: "/delete_account",
	ConfigBoard:   "/config_board",
	SelectAccount: "/select_account",
	CreateCard:    "/card",
	Status:        "/status",
	Start:         "/start",
	Help:          "/help",
}

func (k Kind) String() string {
	return kindNames[k]
}

// Problem describes why a recognised command cannot run as typed.
type Problem int

const (
	OK Problem = iota
	MissingArgs
	MalformedArgs
)

func (p Problem) String() string {
	switch p {
	case MissingArgs:
		return "missing-args"
	case MalformedArgs:
		return "malformed-args"
	default:
		return "ok"
	}
}

// Command is the parse result. Only the fields relevant to Kind are set.
type Command struct {
	Kind    Kind
	Problem Problem

	// CreateCard
	Verb           string
	Title          string
	Description    string
	HasDescription bool

	// ConfigToken, DeleteAccount
	Alias       string
	AccountSlug string
	Token       string

	// ConfigBoard
	BoardID string
}

// Name is the command as the user would type it, e.g. "/todo".
func (c Command) Name() string {
	if c.Kind == CreateCard && c.Verb != "" {
		return "/" + c.Verb
	}
	return c.Kind.String()
}

const botSuffix = `(?:@[A-Za-z0-9_]+)?`

type matcher struct {
	kind       Kind
	full       *regexp.Regexp
	lonely     *regexp.Regexp
	incomplete *regexp.Regexp
	extract    func(m []string) Command
}

// matchers run in order. Incomplete shapes are checked before the next
// command is tried so that a malformed /config_token never falls through.
var matchers = []matcher{
	{
		kind:       ConfigToken,
		full:       regexp.MustCompile(`(?i)^/config_token` + botSuffix + `\s+([a-zA-Z0-9_-]+)\s+([a-zA-Z0-9_-]+)\s+([a-zA-Z0-9]{20,})$`),
		lonely:     regexp.MustCompile(`(?i)^/config_token` + botSuffix + `$`),
		incomplete: regexp.MustCompile(`(?i)^/config_token` + botSuffix + `(\s|$)`),
		extract: func(m []string) Command {
			return Command{Kind: ConfigToken, Alias: m[1], AccountSlug: m[2], Token: m[3]}
		},
	},
	{
		kind:       DeleteAccount,
		full:       regexp.MustCompile(`(?i)^/delete_account` + botSuffix + `\s+([a-zA-Z0-9_-]+)$`),
		lonely:     regexp.MustCompile(`(?i)^/delete_account` + botSuffix + `$`),
		incomplete: regexp.MustCompile(`(?i)^/delete_account` + botSuffix + `(\s|$)`),
		extract: func(m []string) Command {
			return Command{Kind: DeleteAccount, Alias: m[1]}
		},
	},
	{
		kind:       ConfigBoard,
		full:       regexp.MustCompile(`(?i)^/config_board` + botSuffix + `\s+([a-zA-Z0-9]+)$`),
		lonely:     regexp.MustCompile(`(?i)^/config_board` + botSuffix + `$`),
		incomplete: regexp.MustCompile(`(?i)^/config_board` + botSuffix + `(\s|$)`),
		extract: func(m []string) Command {
			return Command{Kind: ConfigBoard, BoardID: m[1]}
		},
	},
	{
		kind:       SelectAccount,
		full:       regexp.MustCompile(`(?i)^/select_account` + botSuffix + `$`),
		incomplete: regexp.MustCompile(`(?i)^/select_account` + botSuffix + `(\s|$)`),
		extract: func(m []string) Command {
			return Command{Kind: SelectAccount}
		},
	},
	{
		kind:   CreateCard,
		lonely: regexp.MustCompile(`(?i)^/(issue|todo|fizzy)` + botSuffix + `$`),
		full:   regexp.MustCompile(`(?i)^/(issue|todo|fizzy)` + botSuffix + `\s+([^\n]+?)(?:\s+-d\s+([\s\S]*))?$`),
		extract: func(m []string) Command {
			cmd := Command{
				Kind:  CreateCard,
				Verb:  strings.ToLower(m[1]),
				Title: strings.TrimSpace(m[2]),
			}
			desc := m[3]
			// "/todo -d text" has an empty title. Bot usernames hold no '-',
			// so the first "-d" in the text is where the title would start.
			if lead := leadingDescription.FindStringSubmatch(m[0][strings.Index(m[0], m[2]):]); lead != nil {
				cmd.Title = ""
				desc = lead[1]
			}
			if desc := strings.TrimSpace(desc); desc != "" {
				cmd.Description = desc
				cmd.HasDescription = true
			}
			return cmd
		},
	},
	{
		kind: Status,
		full: regexp.MustCompile(`(?i)^/status` + botSuffix + `(\s[\s\S]*)?$`),
		extract: func(m []string) Command {
			return Command{Kind: Status}
		},
	},
	{
		kind: Start,
		full: regexp.MustCompile(`(?i)^/start` + botSuffix + `(\s[\s\S]*)?$`),
		extract: func(m []string) Command {
			return Command{Kind: Start}
		},
	},
	{
		kind: Help,
		full: regexp.MustCompile(`(?i)^/help` + botSuffix + `(\s[\s\S]*)?$`),
		extract: func(m []string) Command {
			return Command{Kind: Help}
		},
	},
}

var cardVerb = regexp.MustCompile(`(?i)^/(issue|todo|fizzy)`)

var leadingDescription = regexp.MustCompile(`(?i)^-d(?:\s+([\s\S]*))?$`)

// Parse classifies text. Unrecognised text yields Kind None.
func Parse(text string) Command {
	for _, m := range matchers {
		if m.lonely != nil && m.lonely.MatchString(text) {
			cmd := Command{Kind: m.kind, Problem: MissingArgs}
			if m.kind == CreateCard {
				cmd.Verb = strings.ToLower(cardVerb.FindStringSubmatch(text)[1])
			}
			return cmd
		}
		if match := m.full.FindStringSubmatch(text); match != nil {
			return m.extract(match)
		}
		if m.incomplete != nil && m.incomplete.MatchString(text) {
			return Command{Kind: m.kind, Problem: MalformedArgs}
		}
	}
	return Command{Kind: None}
}
