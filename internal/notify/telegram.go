package notify

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Min interval between any two Telegram messages to the same chat to avoid
// 429 Too Many Requests.
const telegramSendInterval = 2 * time.Second

// TelegramNotifier sends alerts when a session is blocked or the captcha
// budget is exhausted. A nil notifier is a no-op, so callers never branch on
// configuration.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64

	queue chan string
	wg    sync.WaitGroup
	stop  chan struct{}
}

func NewTelegramNotifier(token string, chatID int64) *TelegramNotifier {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		slog.Error("Failed to create telegram bot", "error", err)
		return nil
	}
	bot.Debug = false

	if _, err := bot.GetMe(); err != nil {
		slog.Error("Failed to get telegram bot info", "error", err)
		return nil
	}

	n := &TelegramNotifier{
		bot:    bot,
		chatID: chatID,
		queue:  make(chan string, 100),
		stop:   make(chan struct{}),
	}

	n.wg.Add(1)
	go n.messageSender()

	slog.Info("Telegram notifier initialized", "chat_id", chatID)
	return n
}

// NotifySessionBurned queues an alert about a burned scraping identity.
func (n *TelegramNotifier) NotifySessionBurned(url string, reason error) {
	if n == nil {
		return
	}
	text := fmt.Sprintf("⚠️ ticketwatch session burned\nURL: %s\nReason: %v", url, reason)
	select {
	case n.queue <- text:
	default:
		slog.Warn("Telegram queue full, dropping alert")
	}
}

func (n *TelegramNotifier) messageSender() {
	defer n.wg.Done()
	var lastSend time.Time
	for {
		select {
		case <-n.stop:
			return
		case text := <-n.queue:
			if wait := telegramSendInterval - time.Since(lastSend); wait > 0 {
				time.Sleep(wait)
			}
			msg := tgbotapi.NewMessage(n.chatID, text)
			if _, err := n.bot.Send(msg); err != nil {
				slog.Error("Failed to send telegram alert", "error", err)
			}
			lastSend = time.Now()
		}
	}
}

func (n *TelegramNotifier) Close() {
	if n == nil {
		return
	}
	close(n.stop)
	n.wg.Wait()
}
