package telegram

import (
	"context"
	"encoding/json"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/fizzy-bot/internal/bot"
)

// Handler receives decoded updates. *bot.Bot implements it.
type Handler interface {
	HandleMessage(ctx context.Context, msg *bot.Message)
	HandleCallback(ctx context.Context, cb *bot.Callback)
	HandleMemberAdded(ctx context.Context, upd *bot.MemberUpdate)
}

// allowedUpdates are the update types the bot asks Telegram for.
var allowedUpdates = []string{"message", "callback_query", "my_chat_member"}

// topicFields are forum fields missing from tgbotapi.Message.
type topicFields struct {
	MessageThreadID int  `json:"message_thread_id"`
	IsTopicMessage  bool `json:"is_topic_message"`
}

type topicOverlay struct {
	Message       *topicFields `json:"message"`
	CallbackQuery *struct {
		Message *topicFields `json:"message"`
	} `json:"callback_query"`
}

// Dispatch decodes one raw update and passes it to h. Update kinds the bot
// does not handle are dropped.
func Dispatch(ctx context.Context, raw []byte, h Handler) error {
	var update tgbotapi.Update
	if err := json.Unmarshal(raw, &update); err != nil {
		return fmt.Errorf("decode update: %w", err)
	}
	var overlay topicOverlay
	if err := json.Unmarshal(raw, &overlay); err != nil {
		return fmt.Errorf("decode update: %w", err)
	}

	switch {
	case update.Message != nil:
		if msg := convertMessage(update.UpdateID, update.Message, overlay.Message); msg != nil {
			h.HandleMessage(ctx, msg)
		}
	case update.CallbackQuery != nil:
		var topic *topicFields
		if overlay.CallbackQuery != nil {
			topic = overlay.CallbackQuery.Message
		}
		if cb := convertCallback(update.UpdateID, update.CallbackQuery, topic); cb != nil {
			h.HandleCallback(ctx, cb)
		}
	case update.MyChatMember != nil:
		m := update.MyChatMember
		h.HandleMemberAdded(ctx, &bot.MemberUpdate{
			UpdateID:  update.UpdateID,
			ChatID:    m.Chat.ID,
			ChatType:  bot.ChatType(m.Chat.Type),
			From:      sender(&m.From),
			NewStatus: m.NewChatMember.Status,
		})
	}
	return nil
}

func convertMessage(updateID int, m *tgbotapi.Message, topic *topicFields) *bot.Message {
	if m.From == nil || m.Chat == nil || m.Text == "" {
		return nil
	}

	msg := &bot.Message{
		UpdateID:  updateID,
		MessageID: m.MessageID,
		ChatID:    m.Chat.ID,
		ChatType:  bot.ChatType(m.Chat.Type),
		From:      sender(m.From),
		Text:      m.Text,
	}
	if topic != nil {
		msg.ThreadID = topic.MessageThreadID
		msg.IsTopicMessage = topic.IsTopicMessage
	}

	// In forum topics every message replies to the topic root; that is not
	// a quote.
	if r := m.ReplyToMessage; r != nil && !(msg.IsTopicMessage && r.MessageID == msg.ThreadID) {
		quoted := &bot.Quoted{Text: r.Text, Caption: r.Caption}
		for _, p := range r.Photo {
			quoted.Photos = append(quoted.Photos, bot.Photo{FileID: p.FileID, FileSize: p.FileSize})
		}
		msg.ReplyTo = quoted
	}
	return msg
}

func convertCallback(updateID int, q *tgbotapi.CallbackQuery, topic *topicFields) *bot.Callback {
	if q.From == nil || q.Message == nil || q.Message.Chat == nil {
		return nil
	}

	cb := &bot.Callback{
		UpdateID:  updateID,
		ID:        q.ID,
		From:      sender(q.From),
		ChatID:    q.Message.Chat.ID,
		ChatType:  bot.ChatType(q.Message.Chat.Type),
		MessageID: q.Message.MessageID,
		Data:      q.Data,
	}
	if topic != nil {
		cb.ThreadID = topic.MessageThreadID
		cb.IsTopicMessage = topic.IsTopicMessage
	}
	return cb
}

func sender(u *tgbotapi.User) bot.Sender {
	return bot.Sender{ID: u.ID, Username: u.UserName, FirstName: u.FirstName}
}
