// Package render turns member records into display lines. Kept out of the
// services so they only ever return typed results.
package render

import (
	"fmt"
	"html"
	"strings"

	"member-directory-bot/internal/features/directory/models"
)

// Zero-width space after "@" keeps usernames from triggering notifications
// when the list is posted back into the chat.
const zeroWidthSpace = "​"

const unnamed = "Unnamed"

// MemberLineHTML renders one numbered member line for an in-chat message.
func MemberLineHTML(m models.Member, index int) string {
	fullName := m.FullName
	if fullName == "" {
		fullName = unnamed
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d. %s", index, html.EscapeString(fullName))
	if m.Username != "" {
		fmt.Fprintf(&b, " (@%s%s)", zeroWidthSpace, html.EscapeString(m.Username))
	}
	if m.ExternalName != "" {
		fmt.Fprintf(&b, " — %s", html.EscapeString(m.ExternalName))
	}
	if m.Role != "" {
		fmt.Fprintf(&b, " — <i>%s</i>", html.EscapeString(m.Role))
	}
	return b.String()
}

// MemberLineText renders one numbered member line for plain-text export.
func MemberLineText(m models.Member, index int) string {
	fullName := m.FullName
	if fullName == "" {
		fullName = unnamed
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d. %s", index, fullName)
	if m.Username != "" {
		fmt.Fprintf(&b, " (@%s)", m.Username)
	}
	if m.ExternalName != "" {
		fmt.Fprintf(&b, " — %s", m.ExternalName)
	}
	if m.Role != "" {
		fmt.Fprintf(&b, " — %s", m.Role)
	}
	return b.String()
}

// ExportText renders the whole directory as a plain-text document body.
func ExportText(members []models.Member) string {
	var b strings.Builder
	b.WriteString("Member directory:\n\n")
	for i, m := range members {
		b.WriteString(MemberLineText(m, i+1))
		b.WriteByte('\n')
	}
	return b.String()
}

// CandidateLabel renders a short button label for a disambiguation choice.
func CandidateLabel(m models.Member) string {
	label := m.FullName
	if label == "" {
		label = m.ExternalName
	}
	if label == "" {
		label = fmt.Sprintf("id %d", m.UserID)
	}
	if r := []rune(label); len(r) > 20 {
		label = string(r[:20])
	}
	return label
}
