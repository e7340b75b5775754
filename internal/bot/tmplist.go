package bot

import (
	"context"
	"fmt"
	"strings"

	"member-directory-bot/internal/features/directory/render"
	"member-directory-bot/internal/platform/telegram"
)

// cmdTmplist creates a temporary list or extends an existing one with the
// members mentioned in the message.
func (b *Bot) cmdTmplist(ctx context.Context, msg *telegram.Message, args string) {
	if err := b.auth.Gate(ctx, msg.Chat, msg.From.ID); err != nil {
		b.replyError(ctx, msg, err)
		return
	}

	name, _, _ := strings.Cut(args, " ")
	if name == "" {
		b.reply(ctx, msg, "❌ Usage: /tmplist name @member1 @member2 …")
		return
	}

	users := b.extractMentionedUsers(ctx, msg)
	if len(users) == 0 {
		b.reply(ctx, msg, "❌ Mention at least one member that is already in the directory.")
		return
	}

	userIDs := make([]int64, 0, len(users))
	for _, u := range users {
		userIDs = append(userIDs, u.ID)
	}

	result, err := b.tmplists.CreateOrExtend(ctx, msg.Chat.ID, name, msg.From.ID, userIDs)
	if err != nil {
		b.replyError(ctx, msg, err)
		return
	}

	verb := "extended"
	if result.IsNewList {
		verb = "created"
	}
	b.reply(ctx, msg, fmt.Sprintf(
		"👥 List <b>%s</b> %s: %d new member(s). Lists expire after 24 hours.",
		strings.ToLower(name), verb, result.AddedCount))
}

func (b *Bot) cmdTmplistDelete(ctx context.Context, msg *telegram.Message, args string) {
	if err := b.auth.Gate(ctx, msg.Chat, msg.From.ID); err != nil {
		b.replyError(ctx, msg, err)
		return
	}

	if args == "" {
		b.reply(ctx, msg, "❌ Usage: /tmplist_delete name")
		return
	}

	if err := b.tmplists.Delete(ctx, msg.Chat.ID, args); err != nil {
		b.replyError(ctx, msg, err)
		return
	}
	b.reply(ctx, msg, "🗑 List <b>"+strings.ToLower(args)+"</b> deleted.")
}

func (b *Bot) cmdTmplistRemove(ctx context.Context, msg *telegram.Message, args string) {
	if err := b.auth.Gate(ctx, msg.Chat, msg.From.ID); err != nil {
		b.replyError(ctx, msg, err)
		return
	}

	name, _, _ := strings.Cut(args, " ")
	if name == "" {
		b.reply(ctx, msg, "❌ Usage: /tmplist_remove name @member1 …")
		return
	}

	users := b.extractMentionedUsers(ctx, msg)
	if len(users) == 0 {
		b.reply(ctx, msg, "❌ Mention the members to remove.")
		return
	}

	userIDs := make([]int64, 0, len(users))
	for _, u := range users {
		userIDs = append(userIDs, u.ID)
	}

	if err := b.tmplists.RemoveMembers(ctx, msg.Chat.ID, name, userIDs); err != nil {
		b.replyError(ctx, msg, err)
		return
	}
	b.reply(ctx, msg, fmt.Sprintf("✅ Removed %d member(s) from <b>%s</b>.", len(userIDs), strings.ToLower(name)))
}

func (b *Bot) cmdTmplistShow(ctx context.Context, msg *telegram.Message, args string) {
	if err := b.auth.Gate(ctx, msg.Chat, msg.From.ID); err != nil {
		b.replyError(ctx, msg, err)
		return
	}

	if args == "" {
		b.reply(ctx, msg, "❌ Usage: /tmplist_show name")
		return
	}

	userIDs, err := b.tmplists.Members(ctx, msg.Chat.ID, args)
	if err != nil {
		b.replyError(ctx, msg, err)
		return
	}
	if len(userIDs) == 0 {
		b.reply(ctx, msg, "The list is empty.")
		return
	}

	members, err := b.directory.List(ctx, msg.Chat.ID, "")
	if err != nil {
		b.replyError(ctx, msg, err)
		return
	}
	inList := make(map[int64]struct{}, len(userIDs))
	for _, id := range userIDs {
		inList[id] = struct{}{}
	}

	var lines []string
	i := 0
	for _, m := range members {
		if _, ok := inList[m.UserID]; !ok {
			continue
		}
		i++
		lines = append(lines, render.MemberLineHTML(m, i))
		delete(inList, m.UserID)
	}
	// Members that left the directory but are still referenced by the list.
	for id := range inList {
		i++
		lines = append(lines, fmt.Sprintf("%d. id %d", i, id))
	}

	b.sendLong(ctx, msg, "👥 List "+strings.ToLower(args), strings.Join(lines, "\n"))
}
