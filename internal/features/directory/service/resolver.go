package service

import (
	"strconv"
	"strings"

	"member-directory-bot/internal/features/directory/models"
)

// ResolutionKind classifies how a query resolved against the directory.
type ResolutionKind int

const (
	ResolvedNone ResolutionKind = iota
	ResolvedOne
	ResolvedMany
)

// Resolution is the outcome of resolving a free-form target string.
// Match is set for ResolvedOne; Candidates for ResolvedMany.
type Resolution struct {
	Kind       ResolutionKind
	Match      *models.Member
	Candidates []models.Member
}

func resolutionOf(matches []models.Member) Resolution {
	switch len(matches) {
	case 0:
		return Resolution{Kind: ResolvedNone}
	case 1:
		return Resolution{Kind: ResolvedOne, Match: &matches[0]}
	default:
		return Resolution{Kind: ResolvedMany, Candidates: matches}
	}
}

// Resolve maps an operator-supplied target string to directory records.
//
// Rules apply in strict priority order; a rule that fires never falls through
// to later rules, even when it yields no matches:
//
//  1. "@handle" — exact username match only. An explicit handle must never
//     degrade to substring matching, or the wrong person could be acted on.
//  2. all digits — exact user id match only.
//  3. exact match on full name or external name.
//  4. substring match on full name, external name or username (only reached
//     when rule 3 produced zero matches).
//
// All comparisons are case-insensitive and single-chat-scoped.
func Resolve(members []models.Member, query string) Resolution {
	target := strings.ToLower(strings.TrimSpace(query))
	if target == "" {
		return Resolution{Kind: ResolvedNone}
	}

	if handle, ok := strings.CutPrefix(target, "@"); ok {
		var matches []models.Member
		for _, m := range members {
			if strings.ToLower(m.Username) == handle && m.Username != "" {
				matches = append(matches, m)
			}
		}
		return resolutionOf(matches)
	}

	if isAllDigits(target) {
		userID, err := strconv.ParseInt(target, 10, 64)
		if err != nil {
			// Too many digits to be a user id; still no name fallback.
			return Resolution{Kind: ResolvedNone}
		}
		for _, m := range members {
			if m.UserID == userID {
				match := m
				return Resolution{Kind: ResolvedOne, Match: &match}
			}
		}
		return Resolution{Kind: ResolvedNone}
	}

	var exact []models.Member
	for _, m := range members {
		if equalsFold(m.FullName, target) || equalsFold(m.ExternalName, target) {
			exact = append(exact, m)
		}
	}
	if len(exact) > 0 {
		return resolutionOf(exact)
	}

	var partial []models.Member
	for _, m := range members {
		if containsFold(m.FullName, target) ||
			containsFold(m.ExternalName, target) ||
			containsFold(m.Username, target) {
			partial = append(partial, m)
		}
	}
	return resolutionOf(partial)
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// equalsFold compares a field against an already-lowercased target. Empty
// fields never match: a member without an external name must not match an
// empty-ish query.
func equalsFold(field, loweredTarget string) bool {
	return field != "" && strings.ToLower(field) == loweredTarget
}

func containsFold(field, loweredTarget string) bool {
	return field != "" && strings.Contains(strings.ToLower(field), loweredTarget)
}
