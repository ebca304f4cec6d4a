// Package authz holds the ownership rules that decide whether a resolved
// identity may touch a given record. Rules are pure functions over the
// identity and an already-fetched record: handlers load the resource first,
// then evaluate policy, so the rules stay testable without a store.
package authz

import (
	"errors"

	"github.com/maxjung/messagely-be/internal/models"
)

// ErrDenied is the single denial result for every rule. Handlers translate
// it to the same status as a missing claim, so "not logged in" and
// "logged in but forbidden" look identical from outside.
var ErrDenied = errors.New("not authorized")

// CorrectUser allows access to a user-scoped resource only for that user.
func CorrectUser(identity, username string) error {
	if identity != username {
		return ErrDenied
	}
	return nil
}

// MessageParticipant allows access when the identity is the message's
// sender or recipient.
func MessageParticipant(identity string, msg models.MessageDetail) error {
	if identity != msg.FromUser.Username && identity != msg.ToUser.Username {
		return ErrDenied
	}
	return nil
}

// RecipientOnly allows access only for the message's recipient; the sender
// can read the message but not mark it read.
func RecipientOnly(identity string, msg models.MessageDetail) error {
	if identity != msg.ToUser.Username {
		return ErrDenied
	}
	return nil
}
