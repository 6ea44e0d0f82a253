// Package social is the single source of truth for the relationship and
// membership state machines. Handlers load rows, ask this package
// whether a transition is allowed, and only then touch the database.
package social

import (
	"concord-backend/internal/apperror"
	"concord-backend/internal/models"
)

const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// ParseDecision validates the status a user answers a request or invite
// with. Only the two settled states are a valid answer.
func ParseDecision(status string) (string, error) {
	switch status {
	case StatusAccepted, StatusRejected:
		return status, nil
	default:
		return "", apperror.New(apperror.InvalidArgument, "status must be accepted or rejected")
	}
}

// PairKey orders two user IDs so an edge between them maps to the same
// key regardless of direction. The friends table stores this ordered
// pair under a unique index, which is what actually closes the
// concurrent double-request race.
func PairKey(a int64, b int64) (low int64, high int64) {
	if a < b {
		return a, b
	}
	return b, a
}

// ValidateRequest checks the preconditions of a new friend request.
func ValidateRequest(senderID int64, receiverID int64) error {
	if senderID == receiverID {
		return apperror.New(apperror.InvalidArgument, "You can't add yourself as a friend")
	}
	return nil
}

// RespondToEdge checks that actor may answer the given friend request.
// Only the receiver of a pending request can settle it.
func RespondToEdge(edge models.FriendEdge, actorID int64, decision string) error {
	if _, err := ParseDecision(decision); err != nil {
		return err
	}
	if edge.ReceiverID != actorID {
		return apperror.New(apperror.Forbidden, "This request wasn't sent to you")
	}
	if edge.Status != StatusPending {
		return apperror.New(apperror.NotFound, "No pending request found")
	}
	return nil
}

// CanCancelEdge checks that actor may cancel a request they sent.
// Accepted friendships are ended with removal, not cancellation.
func CanCancelEdge(edge models.FriendEdge, actorID int64) error {
	if edge.SenderID != actorID {
		return apperror.New(apperror.Forbidden, "You didn't send this request")
	}
	if edge.Status == StatusAccepted {
		return apperror.New(apperror.Conflict, "Request was already accepted")
	}
	return nil
}

// CanRemoveEdge checks that actor may unfriend through this edge.
// Either participant of an accepted edge can.
func CanRemoveEdge(edge models.FriendEdge, actorID int64) error {
	if edge.SenderID != actorID && edge.ReceiverID != actorID {
		return apperror.New(apperror.Forbidden, "You are not part of this friendship")
	}
	if edge.Status != StatusAccepted {
		return apperror.New(apperror.NotFound, "Friendship not found")
	}
	return nil
}

// RespondToInvite checks that actor may answer a server invite.
func RespondToInvite(invite models.ServerInvite, actorID int64, decision string) error {
	if _, err := ParseDecision(decision); err != nil {
		return err
	}
	if invite.RecipientID != actorID {
		return apperror.New(apperror.Forbidden, "This invite wasn't sent to you")
	}
	if invite.Status != StatusPending {
		return apperror.New(apperror.NotFound, "No pending invite found")
	}
	return nil
}

// CanCancelInvite checks that actor is the invite's sender.
func CanCancelInvite(invite models.ServerInvite, actorID int64) error {
	if invite.SenderID != actorID {
		return apperror.New(apperror.Forbidden, "You didn't send this invite")
	}
	return nil
}

// ValidRole reports whether a stored role value is one we know.
func ValidRole(role string) bool {
	switch role {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}

// CanManageChannels gates channel creation and deletion.
func CanManageChannels(role string) bool {
	return role == RoleOwner || role == RoleAdmin
}

// CanInvite gates invite creation.
func CanInvite(role string) bool {
	return role == RoleOwner || role == RoleAdmin
}

// CanDeleteServer gates server deletion. Owner only.
func CanDeleteServer(role string) bool {
	return role == RoleOwner
}
