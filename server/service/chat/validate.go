package chat

import (
	"regexp"
	"strings"
	"unicode/utf8"

	errs "github.com/parleyhq/parley/server/internal/errors"
	"github.com/parleyhq/parley/store"
)

// Participant and session identifiers are opaque tokens issued by the
// account/agent systems upstream.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

// ValidateIdentifier checks a participant identifier's format.
func ValidateIdentifier(field, id string) error {
	if id == "" {
		return errs.Validationf("%s is required", field)
	}
	if !identifierPattern.MatchString(id) {
		return errs.Validationf("%s has invalid format", field)
	}
	return nil
}

// SplitParticipants validates a participant pair and returns the user and
// agent ends. Runs entirely before any storage access.
func SplitParticipants(participants []store.Participant) (user, agent store.Participant, err error) {
	if len(participants) != 2 {
		return user, agent, errs.Validationf("participants must contain exactly two entries, got %d", len(participants))
	}

	var haveUser, haveAgent bool
	for i, p := range participants {
		switch p.Kind {
		case store.ParticipantKindUser:
			if haveUser {
				return user, agent, errs.Validation("participants must contain exactly one user")
			}
			haveUser = true
			user = p
		case store.ParticipantKindAgent:
			if haveAgent {
				return user, agent, errs.Validation("participants must contain exactly one agent")
			}
			haveAgent = true
			agent = p
		default:
			return user, agent, errs.Validationf("participants[%d] has unknown kind %q", i, string(p.Kind))
		}
	}
	if !haveUser || !haveAgent {
		return user, agent, errs.Validation("participants must contain one user and one agent")
	}

	if err := ValidateIdentifier("user id", user.ID); err != nil {
		return user, agent, err
	}
	if err := ValidateIdentifier("agent id", agent.ID); err != nil {
		return user, agent, err
	}
	return user, agent, nil
}

// ValidateContent checks an outgoing message body.
func ValidateContent(content string, maxLen int) error {
	if strings.TrimSpace(content) == "" {
		return errs.Validation("content is required")
	}
	if maxLen > 0 && utf8.RuneCountInString(content) > maxLen {
		return errs.Validationf("content exceeds maximum length of %d characters", maxLen)
	}
	return nil
}
