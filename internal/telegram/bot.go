// Package telegram adapts the menu router to the Telegram Bot API.
//
// The adapter owns nothing but plumbing: inbound updates become router
// events, router renders become messages with inline keyboards. All menu
// logic and error policy lives behind the router boundary.
package telegram

import (
	"context"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mkravets/shipmate/internal/menu"
	"github.com/mkravets/shipmate/internal/token"
	"go.uber.org/zap"
)

// Bot handles incoming Telegram updates via long polling and routes button
// presses to the menu router.
type Bot struct {
	api    *tgbotapi.BotAPI
	router *menu.Router
	log    *zap.Logger
}

// New creates a Bot connected with the given token.
func New(botToken string, router *menu.Router, log *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	api.Debug = false

	if log == nil {
		log = zap.NewNop()
	}
	return &Bot{api: api, router: router, log: log}, nil
}

// Start runs the long-polling loop until ctx is cancelled. Each update is
// handled on its own goroutine so one slow remote command cannot stall
// unrelated interactions.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	b.log.Info("telegram bot started", zap.String("username", b.api.Self.UserName))

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			go b.handle(ctx, update)
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		}
	}
}

// handle processes a single Telegram update.
func (b *Bot) handle(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)
	}
}

// handleCommand answers /start with the root menu as a fresh message.
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Command() != "start" {
		return
	}

	render := b.router.Handle(ctx, menu.Event{
		Caller: callerIdentity(msg.From),
		Token:  mustRoot(),
	})

	out := tgbotapi.NewMessage(msg.Chat.ID, render.Text)
	if len(render.Choices) > 0 {
		out.ReplyMarkup = keyboard(render.Choices)
	}
	if _, err := b.api.Send(out); err != nil {
		b.log.Warn("telegram: failed to send message", zap.Error(err))
	}
}

// handleCallback routes a button press and edits the originating message in
// place with the next screen.
func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	// Acknowledge first so the client stops its progress spinner.
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		b.log.Warn("telegram: callback ack failed", zap.Error(err))
	}

	render := b.router.Handle(ctx, menu.Event{
		Caller: callerIdentity(query.From),
		Token:  query.Data,
	})

	if query.Message == nil {
		return
	}

	edit := tgbotapi.NewEditMessageText(query.Message.Chat.ID, query.Message.MessageID, render.Text)
	if len(render.Choices) > 0 {
		markup := keyboard(render.Choices)
		edit.ReplyMarkup = &markup
	}
	if _, err := b.api.Send(edit); err != nil {
		// Telegram rejects edits that change nothing; harmless here.
		b.log.Warn("telegram: failed to edit message", zap.Error(err))
	}
}

// callerIdentity renders a Telegram user id as the router's opaque caller
// string. The allow-list in config holds the same decimal form.
func callerIdentity(user *tgbotapi.User) string {
	if user == nil {
		return ""
	}
	return strconv.FormatInt(user.ID, 10)
}

// keyboard lays out choices one per row, preserving router order.
func keyboard(choices []menu.Choice) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(choices))
	for _, c := range choices {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(c.Label, c.Token),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func mustRoot() string {
	s, err := token.Encode(token.Root())
	if err != nil {
		panic(err)
	}
	return s
}
