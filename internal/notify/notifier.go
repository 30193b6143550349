// Package notify shares a wrapped summary to chat channels.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"bridge-wrapped/internal/aggregator"
)

// Summary 是分享到聊天频道的年度摘要。
type Summary struct {
	Address         string
	Year            int
	Actions         int
	VolumeUSD       decimal.Decimal
	TopSource       string
	TopDestination  string
	TopToken        string
	BusiestDay      string
	BusiestDayCount int
	ClassTitle      string
	Months          int
}

// SummaryFromStats extracts the shareable headline numbers.
func SummaryFromStats(stats *aggregator.Stats) Summary {
	s := Summary{
		Address:    stats.WalletAddress,
		Year:       stats.Year,
		Actions:    stats.TotalBridgingActions,
		VolumeUSD:  stats.TotalVolumeUSD,
		ClassTitle: stats.UserClass.Title,
	}
	if stats.MostUsedSourceChain != nil {
		s.TopSource = stats.MostUsedSourceChain.ChainName
	}
	if stats.MostUsedDestinationChain != nil {
		s.TopDestination = stats.MostUsedDestinationChain.ChainName
	}
	if stats.MostBridgedToken != nil {
		s.TopToken = stats.MostBridgedToken.Symbol
	}
	if stats.BusiestDay != nil {
		s.BusiestDay = stats.BusiestDay.Date
		s.BusiestDayCount = stats.BusiestDay.Count
	}
	for _, m := range stats.MonthlyActivity {
		if m.Count > 0 {
			s.Months++
		}
	}
	return s
}

// Notifier 定义摘要推送接口。
type Notifier interface {
	Notify(ctx context.Context, summary Summary) error
}

// TelegramNotifier 通过 Telegram Bot API 推送消息。
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier 构造 Telegram 推送器。
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "notify_telegram").Logger(),
	}
}

// Notify 调用 sendMessage API 推送文本。
func (n *TelegramNotifier) Notify(ctx context.Context, summary Summary) error {
	payload := map[string]any{
		"chat_id":                  n.chatID,
		"text":                     RenderMessage(summary),
		"disable_web_page_preview": true,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	decodeErr := json.NewDecoder(resp.Body).Decode(&result)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decodeErr == nil && result.Description != "" {
			return fmt.Errorf("telegram 响应码异常: %d: %s", resp.StatusCode, result.Description)
		}
		return fmt.Errorf("telegram 响应码异常: %d", resp.StatusCode)
	}
	if decodeErr == nil && !result.OK {
		return fmt.Errorf("telegram 返回 ok=false: %s", result.Description)
	}

	n.logger.Info().
		Str("address", summary.Address).
		Int("year", summary.Year).
		Msg("摘要已发送 (Telegram)")
	return nil
}

// RenderMessage formats the plain-text share message.
func RenderMessage(s Summary) string {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("[Bridge Wrapped %d]\n", s.Year))
	builder.WriteString(fmt.Sprintf("Wallet: %s\n", shortAddress(s.Address)))
	if s.Actions == 0 {
		builder.WriteString("No bridging activity this year.\n")
		return builder.String()
	}
	builder.WriteString(fmt.Sprintf("Bridges: %d\n", s.Actions))
	builder.WriteString(fmt.Sprintf("Volume: $%s\n", s.VolumeUSD.StringFixed(2)))
	if s.TopSource != "" {
		builder.WriteString(fmt.Sprintf("Top source: %s\n", s.TopSource))
	}
	if s.TopDestination != "" {
		builder.WriteString(fmt.Sprintf("Top destination: %s\n", s.TopDestination))
	}
	if s.TopToken != "" {
		builder.WriteString(fmt.Sprintf("Top token: %s\n", s.TopToken))
	}
	if s.BusiestDay != "" {
		builder.WriteString(fmt.Sprintf("Busiest day: %s (%d bridges)\n", s.BusiestDay, s.BusiestDayCount))
	}
	builder.WriteString(fmt.Sprintf("Active months: %d/12\n", s.Months))
	if s.ClassTitle != "" {
		builder.WriteString(fmt.Sprintf("You are: %s\n", s.ClassTitle))
	}
	return builder.String()
}

func shortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

var _ Notifier = (*TelegramNotifier)(nil)
