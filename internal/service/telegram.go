package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"breakretest-go/internal/model"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// messageSender is the part of the bot API used to deliver messages
type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramService delivers new signals to per-user chats
type TelegramService struct {
	bot           *tgbotapi.BotAPI
	sender        messageSender
	defaultChatID int64
	userChats     map[int64]int64
	statusFn      func() string
}

func NewTelegramService(token, defaultChatID string, userChats map[int64]int64) (*TelegramService, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	log.Printf("✅ Telegram bot authorized: %s", bot.Self.UserName)

	return &TelegramService{
		bot:           bot,
		sender:        bot,
		defaultChatID: parseChatID(defaultChatID),
		userChats:     userChats,
	}, nil
}

// SetStatusProvider sets the text returned by the /status command
func (s *TelegramService) SetStatusProvider(fn func() string) {
	s.statusFn = fn
}

// StartCommands listens for bot commands until ctx is cancelled
func (s *TelegramService) StartCommands(ctx context.Context) {
	if s.bot == nil {
		return
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := s.bot.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		s.bot.StopReceivingUpdates()
	}()

	SafeGo("telegram-commands", func() {
		for update := range updates {
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			s.handleCommand(update.Message.Chat.ID, update.Message.Command())
		}
	})
	log.Println("✅ Telegram command handler started")
}

func (s *TelegramService) handleCommand(chatID int64, command string) {
	log.Printf("📱 /%s command executed", command)

	switch command {
	case "start":
		s.sendMessage(chatID, "🚀 <b>Break &amp; Retest Scanner</b>\n\nNew retest setups on your watchlist are delivered here.\nUse /help to see available commands.")
	case "help":
		s.sendMessage(chatID, "🤖 <b>Commands</b>\n\n/status - Scanner status\n/start - Welcome message\n/help - This message")
	case "status":
		status := "ℹ️ Status unavailable"
		if s.statusFn != nil {
			status = s.statusFn()
		}
		s.sendMessage(chatID, escapeHTML(status))
	default:
		s.sendMessage(chatID, "Unknown command. Use /help to see available commands.")
	}
}

// ChatFor returns the chat that receives a user's signals
func (s *TelegramService) ChatFor(userID int64) int64 {
	if chatID, ok := s.userChats[userID]; ok {
		return chatID
	}
	return s.defaultChatID
}

// NotifySignals sends one message per stored result to the user's chat
func (s *TelegramService) NotifySignals(ctx context.Context, userID int64, results []model.ScanResult) error {
	chatID := s.ChatFor(userID)
	if chatID == 0 {
		return nil
	}

	var errs []error
	for i := range results {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		log.Printf("📤 [Telegram] Sending %s %s signal to user %d...", results[i].Symbol, results[i].Timeframe, userID)
		msg := tgbotapi.NewMessage(chatID, formatSignalMessage(&results[i]))
		msg.ParseMode = "HTML"
		if _, err := s.sender.Send(msg); err != nil {
			errs = append(errs, fmt.Errorf("failed to send telegram message for %s: %w", results[i].Symbol, err))
		}
	}
	return errors.Join(errs...)
}

// SendMessage sends a generic message to the default chat
func (s *TelegramService) SendMessage(message string) error {
	if s.defaultChatID == 0 {
		return nil
	}

	msg := tgbotapi.NewMessage(s.defaultChatID, message)
	msg.ParseMode = "HTML"

	if _, err := s.sender.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

func (s *TelegramService) sendMessage(chatID int64, message string) {
	msg := tgbotapi.NewMessage(chatID, message)
	msg.ParseMode = "HTML"
	if _, err := s.sender.Send(msg); err != nil {
		log.Printf("⚠️ [Telegram] Failed to send message: %v", err)
	}
}

// parseChatID converts string chat ID to int64
func parseChatID(chatIDStr string) int64 {
	chatID, err := strconv.ParseInt(strings.TrimSpace(chatIDStr), 10, 64)
	if err != nil {
		return 0
	}
	return chatID
}
