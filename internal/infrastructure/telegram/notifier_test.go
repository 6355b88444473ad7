package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"RingsideSync/internal/domain"
	"RingsideSync/internal/logging"
)

func TestNotifyBreakingPostsForm(t *testing.T) {
	t.Parallel()

	var gotPath, chatID, text, mode string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseForm())
		chatID = r.PostForm.Get("chat_id")
		text = r.PostForm.Get("text")
		mode = r.PostForm.Get("parse_mode")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier("token", "42")
	n.apiBase = srv.URL

	article := domain.Article{
		ID:         "id-1",
		Title:      "Champion_injured at *live* event",
		Link:       "https://example.com/a",
		Source:     "pwtorch",
		Promotions: []string{"AEW", "WWE"},
	}
	require.NoError(t, n.NotifyBreaking(context.Background(), article))

	require.Equal(t, "/bottoken/sendMessage", gotPath)
	require.Equal(t, "42", chatID)
	require.Equal(t, "Markdown", mode)
	require.Contains(t, text, "*BREAKING* [AEW, WWE]")
	require.Contains(t, text, `Champion\_injured at \*live\* event`)
	require.Contains(t, text, "https://example.com/a")
}

func TestNotifyBreakingFailures(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	n := NewNotifier("token", "42")
	n.apiBase = srv.URL
	require.ErrorContains(t, n.NotifyBreaking(context.Background(), domain.Article{Title: "x"}), "429")

	require.ErrorContains(t, NewNotifier("", "").NotifyBreaking(context.Background(), domain.Article{}), "misconfigured")
}

func TestLogNotifier(t *testing.T) {
	t.Parallel()
	require.NoError(t, NewLogNotifier(logging.Discard()).NotifyBreaking(context.Background(), domain.Article{ID: "a"}))
	require.NoError(t, NewLogNotifier(nil).NotifyBreaking(context.Background(), domain.Article{ID: "a"}))
}
