package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"member-directory-bot/internal/common/apperr"
	"member-directory-bot/internal/platform/telegram"
)

func TestSplitCommand(t *testing.T) {
	cases := []struct {
		text    string
		command string
		args    string
	}{
		{"/list", "list", ""},
		{"/list name", "list", "name"},
		{"/List@MemberDirBot  n ", "list", "n"},
		{"/setname bob Robert K", "setname", "bob Robert K"},
	}
	for _, tc := range cases {
		command, args := splitCommand(tc.text)
		assert.Equal(t, tc.command, command, tc.text)
		assert.Equal(t, tc.args, args, tc.text)
	}
}

func TestUTF16Slice(t *testing.T) {
	// Telegram entity offsets count UTF-16 code units, so anything outside
	// the BMP shifts later offsets by two.
	text := "😀 hi @bob"
	assert.Equal(t, "@bob", utf16Slice(text, 6, 4))
	assert.Equal(t, "😀", utf16Slice(text, 0, 2))
	assert.Equal(t, "", utf16Slice(text, 6, 100))
	assert.Equal(t, "", utf16Slice(text, -1, 2))
}

func TestTargetFromReply(t *testing.T) {
	user := telegram.User{ID: 10, FirstName: "Ann"}

	assert.Nil(t, targetFromReply(&telegram.Message{}))

	msg := &telegram.Message{ReplyToMessage: &telegram.Message{From: &user}}
	assert.Equal(t, &user, targetFromReply(msg))

	bot := telegram.User{ID: 11, IsBot: true}
	msg = &telegram.Message{ReplyToMessage: &telegram.Message{From: &bot}}
	assert.Nil(t, targetFromReply(msg))

	// A join service message with one new member targets that member.
	msg = &telegram.Message{ReplyToMessage: &telegram.Message{NewChatMembers: []telegram.User{user}}}
	assert.Equal(t, user, *targetFromReply(msg))

	// Ambiguous multi-member join messages are not a target.
	msg = &telegram.Message{ReplyToMessage: &telegram.Message{NewChatMembers: []telegram.User{user, bot}}}
	assert.Nil(t, targetFromReply(msg))
}

func TestErrorMessageMapping(t *testing.T) {
	assert.Contains(t, errorMessage(apperr.New(apperr.CodeNotFound, "x")), "Nobody matched")
	assert.Contains(t, errorMessage(apperr.Unauthorized(apperr.ReasonWrongContext, "x")), "group chats")
	assert.Contains(t, errorMessage(apperr.Unauthorized(apperr.ReasonActorNotAdmin, "x")), "administrators only")
	assert.Contains(t, errorMessage(apperr.Unauthorized(apperr.ReasonBotNotAdmin, "x")), "admin rights")
	assert.Contains(t, errorMessage(assertionError{}), "Something went wrong")
}

type assertionError struct{}

func (assertionError) Error() string { return "boom" }
