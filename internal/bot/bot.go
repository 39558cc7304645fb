// Package bot turns chat updates into Fizzy cards. It owns command dispatch,
// account resolution and the account selection flow; the chat transport and
// the Fizzy client are injected.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/xaenox/fizzy-bot/internal/command"
	"github.com/xaenox/fizzy-bot/internal/logging"
	"github.com/xaenox/fizzy-bot/internal/pending"
	"github.com/xaenox/fizzy-bot/internal/storage"
	"go.uber.org/zap"
)

type Options struct {
	// BotUsername is used for the deep link in the group menu.
	BotUsername string
	// FizzyBaseURL is shown in the welcome text.
	FizzyBaseURL string
}

// Bot is safe for concurrent use; the transport may handle every update in
// its own goroutine.
type Bot struct {
	messenger Messenger
	cards     CardService
	storage   storage.Storage
	resolver  *Resolver
	pending   *pending.Buffer
	opts      Options
	logger    *zap.Logger

	handlers map[command.Kind]handlerFunc
}

type handlerFunc func(ctx context.Context, req *request) error

func New(messenger Messenger, cards CardService, store storage.Storage, buffer *pending.Buffer, opts Options, logger *zap.Logger) *Bot {
	b := &Bot{
		messenger: messenger,
		cards:     cards,
		storage:   store,
		resolver:  NewResolver(store),
		pending:   buffer,
		opts:      opts,
		logger:    logger.With(zap.String("component", "bot")),
	}
	b.handlers = map[command.Kind]handlerFunc{
		command.ConfigToken:   b.handleConfigToken,
		command.DeleteAccount: b.handleDeleteAccount,
		command.ConfigBoard:   b.handleConfigBoard,
		command.SelectAccount: b.handleSelectAccount,
		command.CreateCard:    b.handleCreateCard,
		command.Status:        b.handleStatus,
		command.Start:         b.handleStart,
		command.Help:          b.handleHelp,
	}
	return b
}

// conversation is where an update came from and where replies go.
type conversation struct {
	chatID   int64
	chatType ChatType
	threadID int
	isTopic  bool
	from     Sender
}

func (m *Message) conversation() conversation {
	return conversation{chatID: m.ChatID, chatType: m.ChatType, threadID: m.ThreadID, isTopic: m.IsTopicMessage, from: m.From}
}

func (c *Callback) conversation() conversation {
	return conversation{chatID: c.ChatID, chatType: c.ChatType, threadID: c.ThreadID, isTopic: c.IsTopicMessage, from: c.From}
}

func (c conversation) userID() string  { return strconv.FormatInt(c.from.ID, 10) }
func (c conversation) chatKey() string { return strconv.FormatInt(c.chatID, 10) }
func (c conversation) topicID() string { return topicID(c.threadID, c.isTopic) }
func (c conversation) isPrivate() bool { return c.chatType == ChatPrivate }
func (c conversation) sender() string  { return c.from.Display() }

func (c conversation) reply(text string) Reply {
	r := Reply{ChatID: c.chatID, Text: text}
	if c.isTopic {
		r.ThreadID = c.threadID
	}
	return r
}

// request is the state of one update while it is being handled.
type request struct {
	conversation
	name     string
	logger   *zap.Logger
	msg      *Message
	cmd      command.Command
	callback *Callback
	logged   bool
}

// log writes the command record for this request. A request gets one.
func (r *request) log(status, details string) {
	r.logged = true
	logging.Command(r.logger, r.name, status, details, r.sender())
}

func (b *Bot) newRequest(updateID int, conv conversation, name string) *request {
	return &request{
		conversation: conv,
		name:         name,
		logger: b.logger.With(
			zap.String("request_id", uuid.NewString()),
			zap.Int("update_id", updateID),
			zap.Int64("chat_id", conv.chatID),
			zap.Int64("user_id", conv.from.ID)),
	}
}

// HandleMessage dispatches one inbound text message. Text that is not a
// command is ignored without a reply.
func (b *Bot) HandleMessage(ctx context.Context, msg *Message) {
	cmd := command.Parse(msg.Text)
	if cmd.Kind == command.None {
		return
	}

	req := b.newRequest(msg.UpdateID, msg.conversation(), cmd.Name())
	req.msg = msg
	req.cmd = cmd
	defer b.recoverPanic(ctx, req)

	var err error
	if cmd.Problem != command.OK {
		err = b.handleUsage(ctx, req)
	} else if handler, ok := b.handlers[cmd.Kind]; ok {
		err = handler(ctx, req)
	} else {
		err = fmt.Errorf("no handler for %s", cmd.Kind)
	}
	if err != nil {
		b.handleError(ctx, req, err)
	}
}

// HandleMemberAdded greets the group when the bot becomes a member.
func (b *Bot) HandleMemberAdded(ctx context.Context, upd *MemberUpdate) {
	if upd.NewStatus != "member" || upd.ChatType == ChatPrivate {
		return
	}

	req := b.newRequest(upd.UpdateID, conversation{chatID: upd.ChatID, chatType: upd.ChatType, from: upd.From}, "my_chat_member")
	defer b.recoverPanic(ctx, req)

	reply := req.reply(welcomeBotAdded)
	reply.ParseMode = ParseMarkdown
	reply.Keyboard = groupMenu(b.opts.BotUsername)
	if err := b.sendMessage(ctx, reply); err != nil {
		req.logger.Error("Failed to send welcome message", zap.Error(err))
		return
	}
	req.logger.Info("Bot added to chat", zap.String("chat_type", string(upd.ChatType)))
}

func (b *Bot) handleUsage(ctx context.Context, req *request) error {
	details := "lonely"
	if req.cmd.Problem == command.MalformedArgs {
		details = "wrong arguments"
	}

	missing := req.cmd.Problem == command.MissingArgs
	reply := req.reply("")
	switch req.cmd.Kind {
	case command.ConfigToken:
		reply.Text = configTokenIncorrectArgs
		if missing {
			reply.Text = configTokenMissingArgs(req.isPrivate())
		}
		reply.ParseMode = ParseMarkdown
	case command.DeleteAccount:
		reply.Text = deleteAccountIncorrectArgs
		if missing {
			reply.Text = deleteAccountMissingAlias
		}
	case command.ConfigBoard:
		reply.Text = configBoardIncorrectArgs
		if missing {
			reply.Text = configBoardMissingID
		}
	case command.SelectAccount:
		reply.Text = selectAccountIncorrectArgs
	case command.CreateCard:
		reply.Text = missingTitleReply(req.cmd.Verb)
		reply.ReplyToMessageID = req.msg.MessageID
	default:
		return fmt.Errorf("no usage text for %s", req.cmd.Kind)
	}
	return b.refuse(ctx, req, ErrUsage, details, reply)
}

// refuse answers a request that cannot go ahead. The log status follows
// the cause.
func (b *Bot) refuse(ctx context.Context, req *request, cause error, details string, reply Reply) error {
	req.log(statusFor(cause), details)
	if err := b.sendMessage(ctx, reply); err != nil {
		req.logger.Error("Failed to send reply", zap.Error(err))
	}
	return nil
}

func statusFor(err error) string {
	switch {
	case errors.Is(err, ErrUsage), errors.Is(err, ErrNotPrivate):
		return logging.StatusValidation
	case errors.Is(err, ErrNoAccounts), errors.Is(err, ErrNoBoard):
		return logging.StatusWarning
	default:
		return logging.StatusError
	}
}

// handleError reports an unexpected store or transport failure. When the
// command record is already written the failure goes to the plain log.
func (b *Bot) handleError(ctx context.Context, req *request, err error) {
	if req.logged {
		req.logger.Error("Failed to complete command", zap.String("command", req.name), zap.Error(err))
	} else {
		req.log(logging.StatusError, err.Error())
	}
	b.sendErrorMessage(ctx, req)
}

func (b *Bot) recoverPanic(ctx context.Context, req *request) {
	if r := recover(); r != nil {
		req.logger.Error("Recovered from panic", zap.Any("panic", r), zap.Stack("stack"))
		b.handleError(ctx, req, fmt.Errorf("panic: %v", r))
	}
}

func (b *Bot) sendMessage(ctx context.Context, reply Reply) error {
	if _, err := b.messenger.Send(ctx, reply); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (b *Bot) sendErrorMessage(ctx context.Context, req *request) {
	if _, err := b.messenger.Send(ctx, req.reply(internalError)); err != nil {
		req.logger.Error("Failed to send error message", zap.Error(err))
	}
}
