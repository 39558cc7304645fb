package models

// GeneralTopic is the topic id used for chats without forum threads.
const GeneralTopic = "general"

// UserToken is a saved Fizzy credential, unique per (UserID, Alias).
type UserToken struct {
	UserID      string `json:"user_id"`
	Alias       string `json:"alias"`
	AccountSlug string `json:"account_slug"`
	Token       string `json:"-"`
}

// ChatTokenLink records which alias a user posts with in a given chat.
type ChatTokenLink struct {
	UserID string `json:"user_id"`
	ChatID string `json:"chat_id"`
	Alias  string `json:"alias"`
}

// TopicBoard maps a topic to the board new cards are created on.
type TopicBoard struct {
	TopicID   string  `json:"topic_id"`
	BoardID   string  `json:"board_id"`
	BoardName *string `json:"board_name,omitempty"`
}

// DisplayName returns the board name when known, else the board id.
func (b *TopicBoard) DisplayName() string {
	if b.BoardName != nil && *b.BoardName != "" {
		return *b.BoardName
	}
	return b.BoardID
}

// Image is a binary attachment pulled from a replied-to message.
type Image struct {
	Content     []byte
	Filename    string
	ContentType string
}

// PendingCard is a card creation request waiting for the user to pick an account.
type PendingCard struct {
	Title          string
	Description    string
	HasDescription bool
	Image          *Image
	TopicID        string
	WasReply       bool
}
