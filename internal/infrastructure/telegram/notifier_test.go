package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"NewsVideoPipeline/internal/config"
	"NewsVideoPipeline/internal/domain"
	"NewsVideoPipeline/internal/logging"
)

func TestNotify(t *testing.T) {
	t.Parallel()

	var gotPath, gotChat, gotText string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = r.ParseForm()
		gotChat = r.PostForm.Get("chat_id")
		gotText = r.PostForm.Get("text")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	n := NewNotifier(config.TelegramConfig{BotToken: "123:abc", ChatID: "-100", BaseURL: server.URL + "/"}, server.Client(), logging.Discard())
	require.NoError(t, n.Notify(context.Background(), "Video ready"))
	require.Equal(t, "/bot123:abc/sendMessage", gotPath)
	require.Equal(t, "-100", gotChat)
	require.Equal(t, "Video ready", gotText)
}

func TestNotifyErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer server.Close()

	n := NewNotifier(config.TelegramConfig{BotToken: "t", ChatID: "c", BaseURL: server.URL}, server.Client(), logging.Discard())
	err := n.Notify(context.Background(), "hi")
	require.ErrorIs(t, err, domain.ErrCollaboratorUnavailable)
	require.Contains(t, err.Error(), "chat not found")

	n = NewNotifier(config.TelegramConfig{BotToken: "your_bot_token_here", ChatID: "c"}, nil, logging.Discard())
	require.ErrorIs(t, n.Notify(context.Background(), "hi"), domain.ErrConfigurationMissing)
}

func TestChannelMessage(t *testing.T) {
	t.Parallel()

	msg := ChannelMessage(domain.ChannelPost{
		Title:   "Daily Current Affairs | March 1, 2026",
		Summary: strings.Repeat("a", 250),
		URL:     "https://www.youtube.com/watch?v=abc",
	})
	want := "Daily Current Affairs | March 1, 2026\n\n" + strings.Repeat("a", 200) + "...\n\nWatch: https://www.youtube.com/watch?v=abc"
	require.Equal(t, want, msg)

	require.Equal(t, "Title", ChannelMessage(domain.ChannelPost{Title: "Title"}))
}
