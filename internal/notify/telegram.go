// Package notify posts operational summaries to a Telegram chat through
// the Bot API. Delivery is best-effort: workflows log failures and move on.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const defaultBaseURL = "https://api.telegram.org"

// Telegram sends messages via the Bot API sendMessage method. A zero token
// or chat id turns every send into a logged no-op so the import workflow
// works unconfigured.
type Telegram struct {
	BotToken string
	ChatID   string
	Client   *http.Client
	BaseURL  string
	Log      zerolog.Logger
}

func NewTelegram(token, chatID string, log zerolog.Logger) *Telegram {
	return &Telegram{
		BotToken: token,
		ChatID:   chatID,
		Client:   &http.Client{Timeout: 10 * time.Second},
		Log:      log,
	}
}

// Send posts an HTML-formatted message to the configured chat.
func (t *Telegram) Send(ctx context.Context, text string) error {
	if t.BotToken == "" || t.ChatID == "" {
		t.Log.Warn().Msg("telegram not configured, skipping notification")
		return nil
	}
	base := t.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	payload, err := json.Marshal(map[string]any{
		"chat_id":                  t.ChatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	})
	if err != nil {
		return fmt.Errorf("encoding telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", base, t.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := t.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("sending telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram API status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}

// BankImportSummary sends the post-commit statement summary.
func (t *Telegram) BankImportSummary(ctx context.Context, file string, total, categorized, uncategorized int) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "🏦 <b>Импорт банковской выписки</b>\n\n")
	fmt.Fprintf(&buf, "📄 Файл: %s\n", html.EscapeString(file))
	fmt.Fprintf(&buf, "📊 Загружено операций: %d\n", total)
	fmt.Fprintf(&buf, "✅ Категоризировано: %d\n", categorized)
	if uncategorized > 0 {
		fmt.Fprintf(&buf, "⚠️ Без категории: %d", uncategorized)
	} else {
		fmt.Fprintf(&buf, "🎉 Все операции категоризированы")
	}
	return t.Send(ctx, buf.String())
}
