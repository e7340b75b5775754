package bot

import (
	"context"
	"strings"
	"time"

	"member-directory-bot/internal/common/logger"
	"member-directory-bot/internal/common/throttle"
	authservice "member-directory-bot/internal/features/auth/service"
	dirservice "member-directory-bot/internal/features/directory/service"
	selservice "member-directory-bot/internal/features/selection/service"
	tmplservice "member-directory-bot/internal/features/tmplist/service"
	"member-directory-bot/internal/platform/telegram"
)

// API is the Telegram surface the bot drives.
type API interface {
	BotID() int64
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]telegram.Update, error)
	SendMessage(ctx context.Context, chatID int64, text string, opts *telegram.SendOptions) (*telegram.Message, error)
	EditMessageText(ctx context.Context, chatID, messageID int64, text string) error
	AnswerCallbackQuery(ctx context.Context, callbackID, text string, showAlert bool) error
	DeleteMessage(ctx context.Context, chatID, messageID int64) error
	SendDocument(ctx context.Context, chatID int64, filename string, content []byte, caption string) error
	GetChatMember(ctx context.Context, chatID, userID int64) (*telegram.ChatMember, error)
}

// Bot consumes Telegram updates and routes them to the directory engine. One
// update is handled end-to-end before the next is taken.
type Bot struct {
	api         API
	directory   *dirservice.Service
	auth        *authservice.Service
	selection   *selservice.Service
	tmplists    *tmplservice.Service
	throttle    throttle.Throttle
	pollTimeout time.Duration
}

func New(
	api API,
	directory *dirservice.Service,
	auth *authservice.Service,
	selection *selservice.Service,
	tmplists *tmplservice.Service,
	th throttle.Throttle,
	pollTimeout time.Duration,
) *Bot {
	return &Bot{
		api:         api,
		directory:   directory,
		auth:        auth,
		selection:   selection,
		tmplists:    tmplists,
		throttle:    th,
		pollTimeout: pollTimeout,
	}
}

// Run long-polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	logger.Info().Msg("Bot update loop started")

	var offset int64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		updates, err := b.api.GetUpdates(ctx, offset, b.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Error().Err(err).Msg("getUpdates failed")
			time.Sleep(3 * time.Second)
			continue
		}

		for _, upd := range updates {
			offset = upd.UpdateID + 1
			b.handleUpdate(ctx, upd)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, upd telegram.Update) {
	switch {
	case upd.Message != nil:
		b.handleMessage(ctx, upd.Message)
	case upd.CallbackQuery != nil:
		b.handleCallback(ctx, upd.CallbackQuery)
	case upd.ChatMember != nil:
		b.handleMemberEvent(ctx, upd.ChatMember)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *telegram.Message) {
	if msg.From == nil {
		return
	}

	if !strings.HasPrefix(msg.Text, "/") {
		if msg.Text != "" {
			if err := b.directory.RegisterActivity(ctx, msg.Chat.ID, *msg.From); err != nil {
				logger.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("auto-register failed")
			}
		}
		return
	}

	command, args := splitCommand(msg.Text)

	switch command {
	case "help", "start":
		b.cmdHelp(ctx, msg)
	case "list":
		b.cmdList(ctx, msg, args)
	case "find":
		b.cmdFind(ctx, msg, args)
	case "name":
		b.cmdName(ctx, msg, args)
	case "add":
		b.cmdAdd(ctx, msg, args)
	case "setname":
		b.cmdAssign(ctx, msg, args, selservice.ActionAssignName)
	case "addrole":
		b.cmdAssign(ctx, msg, args, selservice.ActionAssignRole)
	case "export":
		b.cmdExport(ctx, msg, args)
	case "cleanup":
		b.cmdCleanup(ctx, msg)
	case "tmplist":
		b.cmdTmplist(ctx, msg, args)
	case "tmplist_delete":
		b.cmdTmplistDelete(ctx, msg, args)
	case "tmplist_remove":
		b.cmdTmplistRemove(ctx, msg, args)
	case "tmplist_show":
		b.cmdTmplistShow(ctx, msg, args)
	}
}

// splitCommand separates "/cmd@BotName rest of args" into ("cmd", "rest of args").
func splitCommand(text string) (string, string) {
	text = strings.TrimPrefix(text, "/")
	command, args, _ := strings.Cut(text, " ")
	command, _, _ = strings.Cut(command, "@")
	return strings.ToLower(command), strings.TrimSpace(args)
}
