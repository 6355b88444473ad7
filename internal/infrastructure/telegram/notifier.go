package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"RingsideSync/internal/domain"
	"RingsideSync/internal/ports"
)

const defaultAPIBase = "https://api.telegram.org"

// Notifier sends breaking stories to a Telegram chat via bot API.
type Notifier struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(botToken, chatID string) *Notifier {
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  defaultAPIBase,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// NotifyBreaking posts a Markdown message announcing the article.
func (n *Notifier) NotifyBreaking(ctx context.Context, article domain.Article) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", FormatBreaking(article))
	form.Set("parse_mode", "Markdown")
	form.Set("disable_web_page_preview", "false")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}

// FormatBreaking renders the message body for one breaking article.
func FormatBreaking(article domain.Article) string {
	var b strings.Builder
	b.WriteString("*BREAKING*")
	if len(article.Promotions) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(article.Promotions, ", "))
		b.WriteString("]")
	}
	b.WriteString("\n")
	b.WriteString(escapeMarkdown(article.Title))
	b.WriteString("\n")
	b.WriteString(article.Link)
	b.WriteString("\n_")
	b.WriteString(escapeMarkdown(article.Source))
	b.WriteString("_")
	return b.String()
}

func escapeMarkdown(s string) string {
	return strings.NewReplacer("_", `\_`, "*", `\*`, "`", "\\`", "[", `\[`).Replace(s)
}

// LogNotifier writes breaking stories to the log when no chat is configured.
type LogNotifier struct {
	logger *slog.Logger
}

var _ ports.Notifier = (*LogNotifier)(nil)

// NewLogNotifier returns a notifier that only logs.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyBreaking(_ context.Context, article domain.Article) error {
	if n.logger != nil {
		n.logger.Info("breaking story", "id", article.ID, "title", article.Title, "source", article.Source, "link", article.Link)
	}
	return nil
}
