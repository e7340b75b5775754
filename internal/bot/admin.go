package bot

import (
	"context"
	"fmt"
	"strings"

	"member-directory-bot/internal/common/logger"
	"member-directory-bot/internal/features/directory/models"
	"member-directory-bot/internal/features/directory/render"
	dirservice "member-directory-bot/internal/features/directory/service"
	selservice "member-directory-bot/internal/features/selection/service"
	"member-directory-bot/internal/platform/telegram"
)

const selectCallbackPrefix = "select_user:"

// cmdAssign handles /setname and /addrole: the target is either the
// replied-to user or a free-form string resolved against the directory.
func (b *Bot) cmdAssign(ctx context.Context, msg *telegram.Message, args string, kind selservice.ActionKind) {
	if err := b.auth.Gate(ctx, msg.Chat, msg.From.ID); err != nil {
		b.replyError(ctx, msg, err)
		return
	}
	defer b.deleteCommand(ctx, msg)

	if target := targetFromReply(msg); target != nil {
		if args == "" {
			b.reply(ctx, msg, assignUsage(kind))
			return
		}
		if err := b.directory.UpsertFromEvent(ctx, msg.Chat.ID, *target); err != nil {
			b.replyError(ctx, msg, err)
			return
		}
		b.applyAssign(ctx, msg, kind, msg.Chat.ID, target.ID, args)
		return
	}

	targetQuery, value, _ := strings.Cut(args, " ")
	value = strings.TrimSpace(value)
	if targetQuery == "" || value == "" {
		b.reply(ctx, msg, assignUsage(kind))
		return
	}

	res, err := b.directory.ResolveTarget(ctx, msg.Chat.ID, targetQuery)
	if err != nil {
		b.replyError(ctx, msg, err)
		return
	}

	switch res.Kind {
	case dirservice.ResolvedNone:
		b.reply(ctx, msg, "❌ Nobody matched that. Reply to the member's message or use their @username.")
	case dirservice.ResolvedOne:
		b.applyAssign(ctx, msg, kind, msg.Chat.ID, res.Match.UserID, value)
	case dirservice.ResolvedMany:
		b.proposeSelection(ctx, msg, res.Candidates, selservice.Action{Kind: kind, Value: value})
	}
}

func assignUsage(kind selservice.ActionKind) string {
	if kind == selservice.ActionAssignRole {
		return "❌ Usage: /addrole @username Role — or reply to the member's message with /addrole Role."
	}
	return "❌ Usage: /setname @username Name — or reply to the member's message with /setname Name."
}

func (b *Bot) applyAssign(ctx context.Context, msg *telegram.Message, kind selservice.ActionKind, chatID, userID int64, value string) {
	var err error
	switch kind {
	case selservice.ActionAssignRole:
		err = b.directory.AssignRole(ctx, chatID, userID, value)
	default:
		err = b.directory.AssignExternalName(ctx, chatID, userID, value)
	}
	if err != nil {
		b.replyError(ctx, msg, err)
		return
	}
	b.reply(ctx, msg, assignDone(kind, value))
}

func assignDone(kind selservice.ActionKind, value string) string {
	if kind == selservice.ActionAssignRole {
		return "✨ Role updated to <b>" + value + "</b>"
	}
	return "✨ Name updated to <b>" + value + "</b>"
}

// proposeSelection renders the candidate list with one button per candidate.
// Each button is an independent single-use capability.
func (b *Bot) proposeSelection(ctx context.Context, msg *telegram.Message, candidates []models.Member, action selservice.Action) {
	choices := b.selection.Propose(msg.Chat.ID, candidates, action)

	lines := []string{"⚠ Several members matched:", ""}
	var row []telegram.InlineKeyboardButton
	var keyboard [][]telegram.InlineKeyboardButton

	for _, choice := range choices {
		m := choice.Member
		display := m.FullName
		if display == "" {
			display = "Unnamed"
		}
		if m.ExternalName != "" {
			display += " — " + m.ExternalName
		}
		if m.Username != "" {
			display += " (@" + m.Username + ")"
		}
		lines = append(lines, "• "+display)

		row = append(row, telegram.InlineKeyboardButton{
			Text:         render.CandidateLabel(m),
			CallbackData: selectCallbackPrefix + choice.TaskID,
		})
		if len(row) == 2 {
			keyboard = append(keyboard, row)
			row = nil
		}
	}
	if len(row) > 0 {
		keyboard = append(keyboard, row)
	}

	lines = append(lines, "", "Pick the right one:")

	_, err := b.api.SendMessage(ctx, msg.Chat.ID, strings.Join(lines, "\n"), &telegram.SendOptions{
		ThreadID:    msg.MessageThreadID,
		ReplyMarkup: &telegram.InlineKeyboardMarkup{InlineKeyboard: keyboard},
	})
	if err != nil {
		logger.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("failed to send selection keyboard")
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *telegram.CallbackQuery) {
	taskID, ok := strings.CutPrefix(cb.Data, selectCallbackPrefix)
	if !ok {
		return
	}

	done, err := b.selection.Complete(ctx, taskID, cb.From.ID)
	if err != nil {
		if answerErr := b.api.AnswerCallbackQuery(ctx, cb.ID, errorMessage(err), true); answerErr != nil {
			logger.Error().Err(answerErr).Msg("failed to answer callback")
		}
		return
	}

	if cb.Message != nil {
		text := assignDone(done.Action.Kind, done.Action.Value)
		if err := b.api.EditMessageText(ctx, cb.Message.Chat.ID, cb.Message.MessageID, text); err != nil {
			logger.Error().Err(err).Msg("failed to edit selection message")
		}
	}
	if err := b.api.AnswerCallbackQuery(ctx, cb.ID, "", false); err != nil {
		logger.Error().Err(err).Msg("failed to answer callback")
	}
}

func (b *Bot) cmdExport(ctx context.Context, msg *telegram.Message, args string) {
	if err := b.auth.Gate(ctx, msg.Chat, msg.From.ID); err != nil {
		b.replyError(ctx, msg, err)
		return
	}
	defer b.deleteCommand(ctx, msg)

	members, err := b.directory.List(ctx, msg.Chat.ID, dirservice.ParseSortMode(args))
	if err != nil {
		b.replyError(ctx, msg, err)
		return
	}
	if len(members) == 0 {
		b.reply(ctx, msg, "The directory is empty, nothing to export.")
		return
	}

	filename := fmt.Sprintf("members_chat_%d.txt", msg.Chat.ID)
	content := []byte(render.ExportText(members))
	if err := b.api.SendDocument(ctx, msg.Chat.ID, filename, content, "📄 Member directory export."); err != nil {
		logger.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("failed to send export")
		b.reply(ctx, msg, "⚠ Failed to upload the export file.")
	}
}

func (b *Bot) cmdCleanup(ctx context.Context, msg *telegram.Message) {
	if err := b.auth.Gate(ctx, msg.Chat, msg.From.ID); err != nil {
		b.replyError(ctx, msg, err)
		return
	}
	defer b.deleteCommand(ctx, msg)

	result, err := b.directory.Reconcile(ctx, msg.Chat.ID, b.api)
	if err != nil {
		b.replyError(ctx, msg, err)
		return
	}

	b.reply(ctx, msg, fmt.Sprintf(
		"🧹 <b>Cleanup finished!</b>\nRemoved: <b>%d</b>\nUpdated: <b>%d</b>",
		result.Removed, result.Updated))
}
