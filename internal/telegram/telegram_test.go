package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/fizzy-bot/internal/bot"
	"go.uber.org/zap"
)

const testToken = "123:TEST"

type fakeAPI struct {
	mu      sync.Mutex
	calls   map[string][]url.Values
	updates []string
	// hold, when set, keeps empty getUpdates calls open until it is closed.
	hold chan struct{}
}

func (f *fakeAPI) form(method string) []url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()

	f := &fakeAPI{calls: map[string][]url.Values{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/file/bot"+testToken+"/") {
			io.WriteString(w, "image-bytes")
			return
		}

		assert.NoError(t, r.ParseForm())
		method := path.Base(r.URL.Path)

		f.mu.Lock()
		f.calls[method] = append(f.calls[method], r.PostForm)
		f.mu.Unlock()

		switch method {
		case "getMe":
			io.WriteString(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Fizzy","username":"fizzy_bot"}}`)
		case "sendMessage", "editMessageText":
			io.WriteString(w, `{"ok":true,"result":{"message_id":77,"date":0,"chat":{"id":-100,"type":"supergroup"}}}`)
		case "answerCallbackQuery", "setWebhook", "deleteWebhook":
			io.WriteString(w, `{"ok":true,"result":true}`)
		case "getFile":
			io.WriteString(w, `{"ok":true,"result":{"file_id":"abc","file_path":"photos/abc.jpg"}}`)
		case "getWebhookInfo":
			io.WriteString(w, `{"ok":true,"result":{"url":"https://example.com/webhook","pending_update_count":3}}`)
		case "getUpdates":
			f.mu.Lock()
			batch := "[" + strings.Join(f.updates, ",") + "]"
			f.updates = nil
			hold := f.hold
			f.mu.Unlock()
			if hold != nil && batch == "[]" {
				select {
				case <-hold:
				case <-r.Context().Done():
				}
			}
			io.WriteString(w, `{"ok":true,"result":`+batch+`}`)
		default:
			io.WriteString(w, `{"ok":false,"error_code":404,"description":"Not Found"}`)
		}
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func newTestClient(t *testing.T) (*Client, *fakeAPI) {
	t.Helper()
	f, srv := newFakeAPI(t)
	c, err := NewClient(ClientConfig{Token: testToken, APIRoot: srv.URL, HTTPClient: srv.Client()}, zap.NewNop())
	require.NoError(t, err)
	return c, f
}

func TestNewClientReadsSelf(t *testing.T) {
	c, _ := newTestClient(t)
	assert.Equal(t, "fizzy_bot", c.Self().UserName)
}

func TestSend(t *testing.T) {
	c, f := newTestClient(t)

	id, err := c.Send(context.Background(), bot.Reply{
		ChatID:           -100,
		ThreadID:         12,
		Text:             "hello",
		ParseMode:        bot.ParseMarkdown,
		ReplyToMessageID: 5,
		Keyboard: bot.Keyboard{
			{{Text: "Status", Data: "status"}, {Text: "Setup", URL: "https://t.me/fizzy_bot?start=setup"}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 77, id)

	calls := f.form("sendMessage")
	require.Len(t, calls, 1)
	form := calls[0]
	assert.Equal(t, "-100", form.Get("chat_id"))
	assert.Equal(t, "12", form.Get("message_thread_id"))
	assert.Equal(t, "hello", form.Get("text"))
	assert.Equal(t, "Markdown", form.Get("parse_mode"))
	assert.Equal(t, "5", form.Get("reply_to_message_id"))

	var markup tgbotapi.InlineKeyboardMarkup
	require.NoError(t, json.Unmarshal([]byte(form.Get("reply_markup")), &markup))
	require.Len(t, markup.InlineKeyboard, 1)
	assert.Equal(t, "status", *markup.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "https://t.me/fizzy_bot?start=setup", *markup.InlineKeyboard[0][1].URL)
}

func TestSendOmitsEmptyOptions(t *testing.T) {
	c, f := newTestClient(t)

	_, err := c.Send(context.Background(), bot.Reply{ChatID: 42, Text: "plain"})
	require.NoError(t, err)

	form := f.form("sendMessage")[0]
	for _, key := range []string{"message_thread_id", "parse_mode", "reply_to_message_id", "reply_markup"} {
		assert.NotContains(t, form, key)
	}
}

func TestEditAnswerAndDownload(t *testing.T) {
	c, f := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.Edit(ctx, -100, 77, "done"))
	edit := f.form("editMessageText")[0]
	assert.Equal(t, "77", edit.Get("message_id"))
	assert.Equal(t, "done", edit.Get("text"))

	require.NoError(t, c.AnswerCallback(ctx, "cb-9"))
	assert.Equal(t, "cb-9", f.form("answerCallbackQuery")[0].Get("callback_query_id"))

	content, err := c.DownloadFile(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, []byte("image-bytes"), content)
	assert.Equal(t, "abc", f.form("getFile")[0].Get("file_id"))
}

func TestWebhookAdmin(t *testing.T) {
	c, f := newTestClient(t)

	require.NoError(t, c.SetWebhook("https://example.com/webhook", "s3cret"))
	set := f.form("setWebhook")[0]
	assert.Equal(t, "https://example.com/webhook", set.Get("url"))
	assert.Equal(t, "s3cret", set.Get("secret_token"))
	assert.JSONEq(t, `["message","callback_query","my_chat_member"]`, set.Get("allowed_updates"))

	info, err := c.WebhookInfo()
	require.NoError(t, err)
	assert.Equal(t, 3, info.PendingUpdateCount)

	require.NoError(t, c.DeleteWebhook(true))
	assert.Equal(t, "true", f.form("deleteWebhook")[0].Get("drop_pending_updates"))
}

func TestCheckWebhook(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name    string
		info    tgbotapi.WebhookInfo
		wantErr string
	}{
		{"healthy", tgbotapi.WebhookInfo{URL: "https://x"}, ""},
		{"not set", tgbotapi.WebhookInfo{}, "no webhook configured"},
		{"backlog", tgbotapi.WebhookInfo{URL: "https://x", PendingUpdateCount: 11}, "high pending updates (11)"},
		{"recent error", tgbotapi.WebhookInfo{URL: "https://x", LastErrorDate: int(now.Add(-5 * time.Minute).Unix()), LastErrorMessage: "Connection refused"}, "recent error 5 minutes ago: Connection refused"},
		{"old error", tgbotapi.WebhookInfo{URL: "https://x", LastErrorDate: int(now.Add(-3 * time.Hour).Unix())}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckWebhook(tt.info, now)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestProbe(t *testing.T) {
	_, srv := newFakeAPI(t)

	self, _, err := Probe(testToken, srv.URL, srv.Client())
	require.NoError(t, err)
	assert.Equal(t, "fizzy_bot", self.UserName)
}

func TestEndpoints(t *testing.T) {
	api, file := Endpoints("")
	assert.Equal(t, tgbotapi.APIEndpoint, api)
	assert.Equal(t, tgbotapi.FileEndpoint, file)

	api, file = Endpoints("https://proxy.example.com/")
	assert.Equal(t, "https://proxy.example.com/bot%s/%s", api)
	assert.Equal(t, "https://proxy.example.com/file/bot%s/%s", file)
}

type recorder struct {
	mu        sync.Mutex
	messages  []*bot.Message
	callbacks []*bot.Callback
	members   []*bot.MemberUpdate
}

func (r *recorder) HandleMessage(ctx context.Context, msg *bot.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

func (r *recorder) HandleCallback(ctx context.Context, cb *bot.Callback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks = append(r.callbacks, cb)
}

func (r *recorder) HandleMemberAdded(ctx context.Context, upd *bot.MemberUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members = append(r.members, upd)
}

func (r *recorder) messageCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

const topicReplyUpdate = `{
	"update_id": 10,
	"message": {
		"message_id": 200,
		"message_thread_id": 55,
		"is_topic_message": true,
		"date": 0,
		"from": {"id": 42, "is_bot": false, "first_name": "Alice", "username": "alice"},
		"chat": {"id": -100123, "type": "supergroup"},
		"text": "/todo Fix bug",
		"reply_to_message": {
			"message_id": 150,
			"date": 0,
			"chat": {"id": -100123, "type": "supergroup"},
			"caption": "screenshot",
			"photo": [
				{"file_id": "s", "file_unique_id": "s", "width": 90, "height": 90, "file_size": 100},
				{"file_id": "l", "file_unique_id": "l", "width": 800, "height": 800, "file_size": 9000}
			]
		}
	}
}`

func TestDispatchMessage(t *testing.T) {
	r := &recorder{}
	require.NoError(t, Dispatch(context.Background(), []byte(topicReplyUpdate), r))

	require.Len(t, r.messages, 1)
	msg := r.messages[0]
	assert.Equal(t, 10, msg.UpdateID)
	assert.Equal(t, 200, msg.MessageID)
	assert.Equal(t, int64(-100123), msg.ChatID)
	assert.Equal(t, bot.ChatSupergroup, msg.ChatType)
	assert.Equal(t, "55", msg.TopicID())
	assert.Equal(t, "@alice", msg.From.Display())
	require.NotNil(t, msg.ReplyTo)
	assert.Equal(t, "screenshot", msg.ReplyTo.Caption)
	assert.Equal(t, []bot.Photo{{FileID: "s", FileSize: 100}, {FileID: "l", FileSize: 9000}}, msg.ReplyTo.Photos)
}

func TestDispatchTopicRootIsNotAQuote(t *testing.T) {
	raw := `{"update_id":1,"message":{"message_id":201,"message_thread_id":55,"is_topic_message":true,"date":0,
		"from":{"id":42,"is_bot":false,"first_name":"Alice"},"chat":{"id":-100123,"type":"supergroup"},"text":"/todo x",
		"reply_to_message":{"message_id":55,"date":0,"chat":{"id":-100123,"type":"supergroup"}}}}`

	r := &recorder{}
	require.NoError(t, Dispatch(context.Background(), []byte(raw), r))
	require.Len(t, r.messages, 1)
	assert.Nil(t, r.messages[0].ReplyTo)
}

func TestDispatchCallbackAndMember(t *testing.T) {
	r := &recorder{}

	callback := `{"update_id":2,"callback_query":{"id":"cb-1","from":{"id":42,"is_bot":false,"first_name":"Alice"},
		"message":{"message_id":300,"message_thread_id":55,"is_topic_message":true,"date":0,"chat":{"id":-100123,"type":"supergroup"}},
		"chat_instance":"x","data":"select_account:work"}}`
	require.NoError(t, Dispatch(context.Background(), []byte(callback), r))

	require.Len(t, r.callbacks, 1)
	cb := r.callbacks[0]
	assert.Equal(t, "cb-1", cb.ID)
	assert.Equal(t, 300, cb.MessageID)
	assert.Equal(t, "select_account:work", cb.Data)
	assert.Equal(t, "55", cb.TopicID())

	member := `{"update_id":3,"my_chat_member":{"chat":{"id":-100123,"type":"group"},"from":{"id":42,"is_bot":false,"first_name":"Alice"},"date":0,
		"old_chat_member":{"user":{"id":1,"is_bot":true,"first_name":"Fizzy"},"status":"left"},
		"new_chat_member":{"user":{"id":1,"is_bot":true,"first_name":"Fizzy"},"status":"member"}}}`
	require.NoError(t, Dispatch(context.Background(), []byte(member), r))

	require.Len(t, r.members, 1)
	assert.Equal(t, "member", r.members[0].NewStatus)
	assert.Equal(t, bot.ChatGroup, r.members[0].ChatType)
}

func TestDispatchIgnoresOtherUpdates(t *testing.T) {
	r := &recorder{}
	require.NoError(t, Dispatch(context.Background(), []byte(`{"update_id":4,"edited_message":{"message_id":1,"date":0,"chat":{"id":1,"type":"private"},"text":"x"}}`), r))
	assert.Empty(t, r.messages)

	assert.Error(t, Dispatch(context.Background(), []byte(`not json`), r))
}

func TestWebhookHandler(t *testing.T) {
	r := &recorder{}
	h := NewWebhookHandler(r, "s3cret", zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(topicReplyUpdate))
	req.Header.Set(secretHeader, "s3cret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, r.messageCount())

	req = httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(topicReplyUpdate))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/webhook", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{"))
	req.Header.Set(secretHeader, "s3cret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPoll(t *testing.T) {
	c, f := newTestClient(t)
	f.mu.Lock()
	f.updates = []string{topicReplyUpdate}
	f.mu.Unlock()

	r := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Poll(ctx, r, PollConfig{Workers: 2}) }()

	require.Eventually(t, func() bool {
		return r.messageCount() == 1 && len(f.form("getUpdates")) >= 2
	}, 5*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	polls := f.form("getUpdates")
	require.NotEmpty(t, polls)
	assert.Equal(t, "", polls[0].Get("offset"))
	assert.Equal(t, "11", polls[len(polls)-1].Get("offset"), fmt.Sprintf("%d polls", len(polls)))
}

func TestPollStopsWithoutWaitingForLongPoll(t *testing.T) {
	c, f := newTestClient(t)
	hold := make(chan struct{})
	f.mu.Lock()
	f.hold = hold
	f.mu.Unlock()
	t.Cleanup(func() { close(hold) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Poll(ctx, &recorder{}, PollConfig{Timeout: 30}) }()

	require.Eventually(t, func() bool {
		return len(f.form("getUpdates")) == 1
	}, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Poll kept waiting for the open getUpdates call")
	}
	assert.Equal(t, "30", f.form("getUpdates")[0].Get("timeout"))
}
