package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"time"

	"go_signals_project/models"

	"golang.org/x/time/rate"
)

// TelegramAPIBaseURL is the Bot API endpoint prefix
const TelegramAPIBaseURL = "https://api.telegram.org"

// telegramSendTimeout bounds one delivery attempt
const telegramSendTimeout = 10 * time.Second

// TelegramService delivers messages to the configured audience channel.
// Every call is best-effort: failures are logged and swallowed so a broken
// notification never aborts the delivery task that triggered it.
type TelegramService struct {
	apiBase      string
	token        string
	chatID       string
	winSticker   string
	lossMessages []string
	client       *http.Client
	limiter      *rate.Limiter
}

// NewTelegramService creates a gateway against the Bot API. An empty token or
// chat ID disables delivery; calls then log the payload and return.
func NewTelegramService(token, chatID, winSticker string, lossMessages []string) *TelegramService {
	return &TelegramService{
		apiBase:      TelegramAPIBaseURL,
		token:        token,
		chatID:       chatID,
		winSticker:   winSticker,
		lossMessages: lossMessages,
		client:       &http.Client{Timeout: telegramSendTimeout},
		// Bot API allows ~1 msg/s per chat with short bursts
		limiter: rate.NewLimiter(rate.Every(time.Second), 5),
	}
}

// Enabled reports whether the gateway has credentials to deliver
func (t *TelegramService) Enabled() bool {
	return t.token != "" && t.chatID != ""
}

// AnnounceEntry delivers a formatted entry message
func (t *TelegramService) AnnounceEntry(text string) {
	t.send("sendMessage", map[string]any{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	})
}

// AnnounceOutcome delivers the result of a resolved signal. WIN sends the
// fixed celebratory sticker, LOSS sends one message picked uniformly at
// random from the commiseration pool.
func (t *TelegramService) AnnounceOutcome(outcome models.Outcome) {
	if outcome == models.OutcomeWin && t.winSticker != "" {
		t.send("sendSticker", map[string]any{
			"chat_id": t.chatID,
			"sticker": t.winSticker,
		})
		return
	}

	text := string(outcome)
	if outcome == models.OutcomeLoss && len(t.lossMessages) > 0 {
		text = t.lossMessages[rand.Intn(len(t.lossMessages))]
	}
	t.send("sendMessage", map[string]any{
		"chat_id": t.chatID,
		"text":    text,
	})
}

// AnnounceDiagnostic delivers a plain diagnostic message, used when a price
// lookup fails at the entry or exit edge
func (t *TelegramService) AnnounceDiagnostic(text string) {
	t.send("sendMessage", map[string]any{
		"chat_id": t.chatID,
		"text":    text,
	})
}

// send performs one Bot API call. Errors are logged, never returned.
func (t *TelegramService) send(method string, payload map[string]any) {
	if !t.Enabled() {
		log.Printf("Telegram disabled, skipping %s: %v", method, payload["text"])
		return
	}

	if err := t.limiter.Wait(context.Background()); err != nil {
		log.Printf("Telegram rate limiter error: %v", err)
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Telegram %s marshal error: %v", method, err)
		return
	}

	url := fmt.Sprintf("%s/bot%s/%s", t.apiBase, t.token, method)
	resp, err := t.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("Telegram %s request failed: %v", method, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		log.Printf("Telegram %s error (status %d): %s", method, resp.StatusCode, preview(respBody))
	}
}
