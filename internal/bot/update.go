package bot

import (
	"context"
	"strconv"

	"github.com/xaenox/fizzy-bot/internal/fizzy"
	"github.com/xaenox/fizzy-bot/internal/models"
)

type ChatType string

const (
	ChatPrivate    ChatType = "private"
	ChatGroup      ChatType = "group"
	ChatSupergroup ChatType = "supergroup"
)

// Sender is the user an update came from.
type Sender struct {
	ID        int64
	Username  string
	FirstName string
}

// Display is how the sender is credited in card descriptions and logs.
func (s Sender) Display() string {
	if s.Username != "" {
		return "@" + s.Username
	}
	return s.FirstName
}

// Photo is one size variant of a photo attachment.
type Photo struct {
	FileID   string
	FileSize int
}

// Quoted is the message a command replied to.
type Quoted struct {
	Text    string
	Caption string
	Photos  []Photo
}

// Message is an inbound text message.
type Message struct {
	UpdateID       int
	MessageID      int
	ChatID         int64
	ChatType       ChatType
	ThreadID       int
	IsTopicMessage bool
	From           Sender
	Text           string
	ReplyTo        *Quoted
}

// TopicID is the forum thread id for topic messages, else the general topic.
func (m *Message) TopicID() string {
	return topicID(m.ThreadID, m.IsTopicMessage)
}

// Callback is an inline keyboard button press.
type Callback struct {
	UpdateID       int
	ID             string
	From           Sender
	ChatID         int64
	ChatType       ChatType
	MessageID      int
	ThreadID       int
	IsTopicMessage bool
	Data           string
}

// TopicID mirrors Message.TopicID for the message the keyboard was attached to.
func (c *Callback) TopicID() string {
	return topicID(c.ThreadID, c.IsTopicMessage)
}

func topicID(threadID int, isTopic bool) string {
	if isTopic && threadID != 0 {
		return strconv.Itoa(threadID)
	}
	return models.GeneralTopic
}

// MemberUpdate reports a change of the bot's own membership in a chat.
type MemberUpdate struct {
	UpdateID  int
	ChatID    int64
	ChatType  ChatType
	From      Sender
	NewStatus string
}

// Button is an inline keyboard button. Exactly one of Data or URL is set.
type Button struct {
	Text string
	Data string
	URL  string
}

// Keyboard is an inline keyboard, row by row.
type Keyboard [][]Button

// Reply is an outbound message.
type Reply struct {
	ChatID           int64
	ThreadID         int
	Text             string
	ParseMode        string
	ReplyToMessageID int
	Keyboard         Keyboard
}

const (
	ParseMarkdown   = "Markdown"
	ParseMarkdownV2 = "MarkdownV2"
)

// Messenger is the chat transport the bot replies through.
type Messenger interface {
	// Send delivers a message and returns its id.
	Send(ctx context.Context, reply Reply) (int, error)
	Edit(ctx context.Context, chatID int64, messageID int, text string) error
	AnswerCallback(ctx context.Context, callbackID string) error
	DownloadFile(ctx context.Context, fileID string) ([]byte, error)
}

// CardService creates cards and validates boards on the external board service.
type CardService interface {
	CreateCard(ctx context.Context, t fizzy.Target, title, description string, image *models.Image) (string, error)
	FetchBoardInfo(ctx context.Context, t fizzy.Target) (*fizzy.Board, error)
}
