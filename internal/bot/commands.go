package bot

import (
	"context"
	"strings"

	"member-directory-bot/internal/common/logger"
	"member-directory-bot/internal/features/directory/render"
	dirservice "member-directory-bot/internal/features/directory/service"
	"member-directory-bot/internal/platform/telegram"
)

const helpText = `👋 Hi! Here is what I can do:

📌 <b>Commands:</b>
/list — show the member directory
/name [name] — set your own display name
/find [name/@] — search for a member
/setname [@/name] [name] — assign a name to someone (admin)
/addrole [@/name] [role] — assign a role to someone (admin)
/add [role] — set your own role
/export — export the directory as a file (admin)
/cleanup — remove members who left (admin)
/tmplist [name] [@mentions] — create or extend a temporary list (admin)
/tmplist_show [name] — show a temporary list (admin)
/tmplist_remove [name] [@mentions] — remove members from a list (admin)
/tmplist_delete [name] — delete a temporary list (admin)

📖 <b>Sorting</b> (append to /list or /export):
• <b>n</b> — by full name
• <b>u</b> — by @username
• <b>e</b> — by assigned name`

func (b *Bot) cmdHelp(ctx context.Context, msg *telegram.Message) {
	if err := b.directory.RegisterActivity(ctx, msg.Chat.ID, *msg.From); err != nil {
		logger.Debug().Err(err).Msg("register on /help failed")
	}

	role := "member"
	if b.auth.IsAdmin(ctx, msg.Chat.ID, msg.From.ID) {
		role = "admin"
	}

	b.reply(ctx, msg, "Your role: <b>"+role+"</b>\n\n"+helpText)
}

func (b *Bot) cmdList(ctx context.Context, msg *telegram.Message, args string) {
	if err := b.directory.RegisterActivity(ctx, msg.Chat.ID, *msg.From); err != nil {
		logger.Debug().Err(err).Msg("register on /list failed")
	}

	members, err := b.directory.List(ctx, msg.Chat.ID, dirservice.ParseSortMode(args))
	if err != nil {
		b.replyError(ctx, msg, err)
		return
	}
	if len(members) == 0 {
		b.reply(ctx, msg, "The directory is empty 🕳️")
		return
	}

	lines := make([]string, 0, len(members))
	for i, m := range members {
		lines = append(lines, render.MemberLineHTML(m, i+1))
	}
	b.sendLong(ctx, msg, "📋 Member directory", strings.Join(lines, "\n"))
}

func (b *Bot) cmdFind(ctx context.Context, msg *telegram.Message, args string) {
	if args == "" {
		b.reply(ctx, msg, "Usage: /find part_of_name or @username")
		return
	}

	results, err := b.directory.Find(ctx, msg.Chat.ID, args)
	if err != nil {
		b.replyError(ctx, msg, err)
		return
	}
	if len(results) == 0 {
		b.reply(ctx, msg, "❌ Nobody matched that.")
		return
	}

	lines := make([]string, 0, len(results))
	for i, m := range results {
		lines = append(lines, render.MemberLineHTML(m, i+1))
	}
	b.sendLong(ctx, msg, "🔎 Search results", strings.Join(lines, "\n"))
}

// cmdName lets a member set their own display name.
func (b *Bot) cmdName(ctx context.Context, msg *telegram.Message, args string) {
	if args == "" {
		b.reply(ctx, msg, "✏️ Write the name after the command. Example: /name Kvane")
		return
	}

	if err := b.directory.UpsertFromEvent(ctx, msg.Chat.ID, *msg.From); err != nil {
		b.replyError(ctx, msg, err)
		return
	}
	if err := b.directory.AssignExternalName(ctx, msg.Chat.ID, msg.From.ID, args); err != nil {
		b.replyError(ctx, msg, err)
		return
	}

	b.reply(ctx, msg, "✅ Name set: <b>"+args+"</b>")
}

// cmdAdd lets a member set their own role label.
func (b *Bot) cmdAdd(ctx context.Context, msg *telegram.Message, args string) {
	if args == "" {
		b.reply(ctx, msg, "Write the role after the command. Example: /add Engineer")
		return
	}

	if err := b.directory.UpsertFromEvent(ctx, msg.Chat.ID, *msg.From); err != nil {
		b.replyError(ctx, msg, err)
		return
	}
	if err := b.directory.AssignRole(ctx, msg.Chat.ID, msg.From.ID, args); err != nil {
		b.replyError(ctx, msg, err)
		return
	}

	b.reply(ctx, msg, "✅ Role set: <b>"+args+"</b>")
}
