package bot

import (
	"context"
	"strconv"
	"time"

	"member-directory-bot/internal/common/logger"
	"member-directory-bot/internal/platform/telegram"
)

// welcomeTTL throttles the long intro so re-adding the bot does not spam.
const welcomeTTL = time.Hour

const botIntroText = `🤖 <b>Bot connected!</b>

For everything to work correctly:
• grant me administrator rights
• disable admin anonymity
• note that I only see activity from the moment I was added

After that all commands will work. See /help for the full list.`

func (b *Bot) handleMemberEvent(ctx context.Context, event *telegram.ChatMemberUpdated) {
	oldStatus := event.OldChatMember.Status
	newStatus := event.NewChatMember.Status
	user := event.NewChatMember.User
	chatID := event.Chat.ID

	// The bot itself was added to a chat.
	if user.ID == b.api.BotID() && telegram.StatusInChat(newStatus) {
		b.sendIntro(ctx, chatID)
		return
	}

	joined := telegram.StatusOutsideChat(oldStatus) && telegram.StatusInChat(newStatus)
	// A member-to-member transition with an invite link attached is a join
	// delivered without the usual left->member edge.
	rejoined := oldStatus == telegram.StatusMember && newStatus == telegram.StatusMember && event.InviteLink != nil

	if joined || rejoined {
		if err := b.directory.UpsertFromEvent(ctx, chatID, user); err != nil {
			logger.Error().Err(err).Int64("chat_id", chatID).Int64("user_id", user.ID).Msg("join upsert failed")
			return
		}
		logger.Info().
			Int64("chat_id", chatID).
			Int64("user_id", user.ID).
			Str("username", user.Username).
			Msg("Member added to directory")

		b.sendWelcome(ctx, chatID, user)
		return
	}

	if telegram.StatusOutsideChat(newStatus) {
		if err := b.directory.RemoveFromEvent(ctx, chatID, user.ID); err != nil {
			logger.Error().Err(err).Int64("chat_id", chatID).Int64("user_id", user.ID).Msg("leave delete failed")
			return
		}
		logger.Info().
			Int64("chat_id", chatID).
			Int64("user_id", user.ID).
			Msg("Member removed from directory")
	}
}

func (b *Bot) sendIntro(ctx context.Context, chatID int64) {
	if _, err := b.api.SendMessage(ctx, chatID, botIntroText, nil); err != nil {
		logger.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send intro")
		return
	}

	allowed, err := b.throttle.Allow(ctx, "bot:welcome:"+strconv.FormatInt(chatID, 10), welcomeTTL)
	if err != nil {
		logger.Debug().Err(err).Msg("welcome throttle unavailable")
		return
	}
	if !allowed {
		return
	}

	if _, err := b.api.SendMessage(ctx, chatID, helpText, nil); err != nil {
		logger.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send intro help")
	}
}

func (b *Bot) sendWelcome(ctx context.Context, chatID int64, user telegram.User) {
	text := "👋 Hi, <b>" + user.FullName() + "</b>!\n\n" +
		"To show up properly in the directory use:\n" +
		"• <code>/name YourName</code>\n" +
		"• <code>/add YourRole</code> (optional)\n\n" +
		"If anything is unclear — /help 🙂"

	if _, err := b.api.SendMessage(ctx, chatID, text, nil); err != nil {
		logger.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send welcome")
	}
}
