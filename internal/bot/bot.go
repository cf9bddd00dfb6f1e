// Package bot is the thin command surface: it recognizes the sticker set
// download command in incoming messages, hands it to the orchestrator and
// delivers finished archives back to the requesters.
package bot

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kvantor/telegram-sticker-vault/internal/entity"
	"github.com/kvantor/telegram-sticker-vault/internal/stickers"
	"github.com/kvantor/telegram-sticker-vault/internal/telegram"
)

const (
	cmdStickerSet = "sticker_set"

	prefSilent = "silent"
)

type api interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendReply(ctx context.Context, chatID, messageID int64, text string) error
	SendDocument(ctx context.Context, chatID int64, filename string, payload []byte) error
	SetMyCommands(ctx context.Context, commands []telegram.BotCommand) error
}

type downloader interface {
	Request(name string, dest stickers.Destination) error
}

type preferences interface {
	GetPreference(ctx context.Context, userID int64, key string) (string, error)
}

type Bot struct {
	api    api
	cache  *entity.Cache
	orch   downloader
	prefs  preferences
	name   string
	logger zerolog.Logger
}

func New(apiClient api, cache *entity.Cache, orch downloader, prefs preferences, name string, logger *zerolog.Logger) *Bot {
	return &Bot{
		api:    apiClient,
		cache:  cache,
		orch:   orch,
		prefs:  prefs,
		name:   name,
		logger: logger.With().Str("component", "bot").Logger(),
	}
}

// Subscribe wires the bot to parsed messages.
func (b *Bot) Subscribe(hub *entity.Hub) {
	hub.OnMessage(b.handleMessage)
}

// RegisterCommands publishes the command menu.
func (b *Bot) RegisterCommands(ctx context.Context) error {
	return b.api.SetMyCommands(ctx, []telegram.BotCommand{
		{Command: cmdStickerSet, Description: "Download a sticker set as a zip archive"},
	})
}

func (b *Bot) handleMessage(ctx context.Context, chatID, messageID int64) {
	rec, ok := b.cache.Get(entity.KindMessage, strconv.FormatInt(messageID, 10))
	if !ok {
		return
	}

	command, args := splitCommand(rec["text"], b.name)
	if command == "" {
		return
	}

	b.logger.Info().Str("command", command).Int64("chat_id", chatID).Msg("handling command")

	switch command {
	case cmdStickerSet:
		b.handleStickerSet(ctx, chatID, messageID, rec.Int64("from_id"), args)
	default:
		b.logger.Debug().Str("command", command).Msg("unknown command ignored")
	}
}

func (b *Bot) handleStickerSet(ctx context.Context, chatID, messageID, userID int64, args string) {
	name := strings.TrimSpace(args)
	if name == "" {
		b.reply(ctx, chatID, messageID, "Usage: /sticker_set <name>")

		return
	}

	dest := stickers.Destination{ChatID: chatID, UserID: userID, MessageID: messageID}
	if err := b.orch.Request(name, dest); err != nil {
		b.logger.Error().Err(err).Str("name", name).Msg("request rejected")
		b.reply(ctx, chatID, messageID, fmt.Sprintf("Cannot download %s right now, try again later.", name))

		return
	}

	b.reply(ctx, chatID, messageID, fmt.Sprintf("Downloading sticker set %s.", name))
}

// DeliverArchive sends a finished archive to every requesting chat, once per
// chat. The accompanying text is skipped for users with the silent preference.
func (b *Bot) DeliverArchive(ctx context.Context, name, archivePath string, dests []stickers.Destination) {
	payload, err := os.ReadFile(archivePath)
	if err != nil {
		b.logger.Error().Err(err).Str("name", name).Msg("cannot read archive")

		return
	}

	sent := make(map[int64]struct{}, len(dests))

	for _, dest := range dests {
		if _, done := sent[dest.ChatID]; done {
			continue
		}

		sent[dest.ChatID] = struct{}{}

		if err = b.api.SendDocument(ctx, dest.ChatID, name+".zip", payload); err != nil {
			b.logger.Error().Err(err).Int64("chat_id", dest.ChatID).Msg("archive delivery failed")

			continue
		}

		if b.isSilent(ctx, dest.UserID) {
			continue
		}

		if err = b.api.SendMessage(ctx, dest.ChatID, fmt.Sprintf("Sticker set %s is ready.", name)); err != nil {
			b.logger.Error().Err(err).Int64("chat_id", dest.ChatID).Msg("notification failed")
		}
	}
}

// DeliverFailure notifies every requesting chat that the set does not exist.
func (b *Bot) DeliverFailure(ctx context.Context, name string, dests []stickers.Destination) {
	notified := make(map[int64]struct{}, len(dests))

	for _, dest := range dests {
		if _, done := notified[dest.ChatID]; done {
			continue
		}

		notified[dest.ChatID] = struct{}{}

		if err := b.api.SendMessage(ctx, dest.ChatID, fmt.Sprintf("Unknown sticker set %s.", name)); err != nil {
			b.logger.Error().Err(err).Int64("chat_id", dest.ChatID).Msg("failure notice failed")
		}
	}
}

// Broadcast sends a message to every active chat.
func (b *Bot) Broadcast(ctx context.Context, text string) {
	for _, chatID := range b.cache.ActiveChats() {
		if err := b.api.SendMessage(ctx, chatID, text); err != nil {
			b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("broadcast failed")
		}
	}
}

func (b *Bot) isSilent(ctx context.Context, userID int64) bool {
	if b.prefs == nil || userID == 0 {
		return false
	}

	value, err := b.prefs.GetPreference(ctx, userID, prefSilent)
	if err != nil {
		b.logger.Error().Err(err).Int64("user_id", userID).Msg("preference lookup failed")

		return false
	}

	return value == "yes"
}

func (b *Bot) reply(ctx context.Context, chatID, messageID int64, text string) {
	if err := b.api.SendReply(ctx, chatID, messageID, text); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send reply")
	}
}

// splitCommand extracts the command and argument string from message text.
// "/cmd@OtherBot" addressed to a different bot is ignored.
func splitCommand(text, botName string) (string, string) {
	if !strings.HasPrefix(text, "/") {
		return "", ""
	}

	head, args, _ := strings.Cut(text[1:], " ")

	command, target, mentioned := strings.Cut(head, "@")
	if mentioned && botName != "" && !strings.EqualFold(target, botName) {
		return "", ""
	}

	if command == "" {
		return "", ""
	}

	return command, args
}
