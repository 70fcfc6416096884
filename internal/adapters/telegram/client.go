/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package telegram

import (
    "bytes"
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "strings"
    "time"

    "github.com/HamedShams/sprint-pulse/internal/config"
    "github.com/rs/zerolog"
)

// Bot API rejects longer texts.
const maxMessageRunes = 4096

type Client struct {
    token   string
    chatIDs []int64
    apiBase string
    http    *http.Client
    log     zerolog.Logger
}

type apiReply struct {
    OK          bool   `json:"ok"`
    ErrorCode   int    `json:"error_code"`
    Description string `json:"description"`
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
    return &Client{
        token:   cfg.TelegramToken,
        chatIDs: cfg.TelegramChatIDs,
        apiBase: "https://api.telegram.org",
        http:    &http.Client{Timeout: 10 * time.Second},
        log:     log,
    }
}

func (c *Client) Configured() bool { return c.token != "" && len(c.chatIDs) > 0 }

// Send posts plain text (no parse_mode) so run summaries never trip the markdown parser.
func (c *Client) Send(ctx context.Context, chatID int64, text string) error {
    if c.token == "" || chatID == 0 { return errors.New("telegram: missing token or chat id") }
    payload, err := json.Marshal(map[string]any{"chat_id": chatID, "text": truncate(text), "disable_web_page_preview": true})
    if err != nil { return err }
    u := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(c.apiBase, "/"), c.token)
    req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
    if err != nil { return err }
    req.Header.Set("Content-Type", "application/json")
    resp, err := c.http.Do(req)
    if err != nil { return fmt.Errorf("telegram: %w", err) }
    defer resp.Body.Close()

    var reply apiReply
    if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil && resp.StatusCode < 300 {
        return fmt.Errorf("telegram: decode reply: %w", err)
    }
    if resp.StatusCode >= 300 || !reply.OK {
        return fmt.Errorf("telegram: sendMessage status=%d: %s", resp.StatusCode, reply.Description)
    }
    return nil
}

// Broadcast sends text to every configured chat and joins the failures.
func (c *Client) Broadcast(ctx context.Context, text string) error {
    var errs []error
    for _, id := range c.chatIDs {
        if err := c.Send(ctx, id, text); err != nil {
            c.log.Warn().Err(err).Int64("chat_id", id).Msg("telegram send failed")
            errs = append(errs, err)
        }
    }
    return errors.Join(errs...)
}

func truncate(s string) string {
    r := []rune(s)
    if len(r) <= maxMessageRunes { return s }
    return string(r[:maxMessageRunes-1]) + "…"
}
