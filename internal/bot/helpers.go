package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf16"

	"member-directory-bot/internal/common/apperr"
	"member-directory-bot/internal/common/logger"
	"member-directory-bot/internal/platform/telegram"
)

const maxMessageLen = 4096

// reply sends a plain response into the message's chat and thread.
func (b *Bot) reply(ctx context.Context, msg *telegram.Message, text string) {
	_, err := b.api.SendMessage(ctx, msg.Chat.ID, text, &telegram.SendOptions{ThreadID: msg.MessageThreadID})
	if err != nil {
		logger.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("failed to send reply")
	}
}

// replyError maps a typed failure to its user-facing message.
func (b *Bot) replyError(ctx context.Context, msg *telegram.Message, err error) {
	b.reply(ctx, msg, errorMessage(err))
}

func errorMessage(err error) string {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		return "Something went wrong, please try again."
	}

	switch appErr.Code {
	case apperr.CodeNotFound:
		return "❌ Nobody matched that."
	case apperr.CodeInvalidSelection:
		return "Stale or invalid choice."
	case apperr.CodeUnauthorized:
		switch appErr.Reason {
		case apperr.ReasonWrongContext:
			return "❌ This command only works in group chats."
		case apperr.ReasonBotNotAdmin:
			return "⚠️ I am not an administrator here, so I cannot do that.\n\nPlease grant me admin rights first."
		default:
			return "⛔ This command is available to administrators only."
		}
	case apperr.CodeCapacityExceeded:
		return "❌ This chat already has the maximum of 3 active lists."
	case apperr.CodeInvalidName:
		return "❌ " + appErr.Message + "."
	case apperr.CodeStoreUnavailable:
		return "⚠ Storage is unavailable right now, please try again."
	default:
		return "Something went wrong, please try again."
	}
}

// sendLong splits a long body on line boundaries and sends numbered parts.
func (b *Bot) sendLong(ctx context.Context, msg *telegram.Message, header, body string) {
	var parts []string
	for len(body) > maxMessageLen {
		splitPos := strings.LastIndex(body[:maxMessageLen], "\n")
		if splitPos == -1 {
			splitPos = maxMessageLen
		}
		parts = append(parts, body[:splitPos])
		body = strings.TrimLeft(body[splitPos:], "\n")
	}
	parts = append(parts, body)

	for i, part := range parts {
		text := "<b>" + header + "</b>\n\n" + part
		if len(parts) > 1 {
			text = fmt.Sprintf("<b>%s (%d/%d)</b>\n\n%s", header, i+1, len(parts), part)
		}
		b.reply(ctx, msg, text)
	}
}

// deleteCommand removes the invoking message of an admin command to keep the
// chat clean. A missing delete permission is not worth reporting to the chat.
func (b *Bot) deleteCommand(ctx context.Context, msg *telegram.Message) {
	if err := b.api.DeleteMessage(ctx, msg.Chat.ID, msg.MessageID); err != nil {
		logger.Debug().Err(err).Int64("chat_id", msg.Chat.ID).Msg("failed to delete command message")
	}
}

// targetFromReply picks the user a replied-to message belongs to. Join
// service messages with exactly one new member count as that member.
func targetFromReply(msg *telegram.Message) *telegram.User {
	reply := msg.ReplyToMessage
	if reply == nil {
		return nil
	}

	if len(reply.NewChatMembers) > 0 {
		if len(reply.NewChatMembers) == 1 {
			return &reply.NewChatMembers[0]
		}
		return nil
	}

	if reply.From != nil && !reply.From.IsBot {
		return reply.From
	}
	return nil
}

// utf16Slice cuts a substring by the UTF-16 offsets Telegram entities use.
func utf16Slice(text string, offset, length int) string {
	units := utf16.Encode([]rune(text))
	if offset < 0 || offset+length > len(units) {
		return ""
	}
	return string(utf16.Decode(units[offset : offset+length]))
}

// extractMentionedUsers resolves the users referenced in a message: explicit
// text mentions carry a user id directly, while "@username" mentions are
// accepted only when the username is already in the stored directory.
func (b *Bot) extractMentionedUsers(ctx context.Context, msg *telegram.Message) []telegram.User {
	seen := make(map[int64]struct{})
	var users []telegram.User

	for _, entity := range msg.Entities {
		switch entity.Type {
		case "text_mention":
			if entity.User == nil {
				continue
			}
			if _, ok := seen[entity.User.ID]; ok {
				continue
			}
			seen[entity.User.ID] = struct{}{}
			users = append(users, *entity.User)

		case "mention":
			raw := utf16Slice(msg.Text, entity.Offset, entity.Length)
			username := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(raw, "@")))
			if username == "" {
				continue
			}

			member, err := b.directory.LookupByUsername(ctx, msg.Chat.ID, username)
			if err != nil {
				// Unknown usernames are skipped, not errors.
				continue
			}
			if _, ok := seen[member.UserID]; ok {
				continue
			}
			seen[member.UserID] = struct{}{}
			users = append(users, telegram.User{
				ID:        member.UserID,
				FirstName: member.FullName,
				Username:  member.Username,
			})
		}
	}

	return users
}
