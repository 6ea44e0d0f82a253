package social

import (
	"concord-backend/internal/apperror"
	"concord-backend/internal/models"
	"testing"
)

func kindOf(t *testing.T, err error) apperror.Kind {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	return apperror.From(err).Kind
}

func TestParseDecision(t *testing.T) {
	tests := []struct {
		name    string
		status  string
		wantErr bool
	}{
		{"accepted is valid", StatusAccepted, false},
		{"rejected is valid", StatusRejected, false},
		{"pending is not an answer", StatusPending, true},
		{"empty", "", true},
		{"garbage", "maybe", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDecision(tt.status)
			if tt.wantErr {
				if kindOf(t, err) != apperror.InvalidArgument {
					t.Errorf("expected InvalidArgument, got %v", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestPairKey(t *testing.T) {
	low1, high1 := PairKey(5, 9)
	low2, high2 := PairKey(9, 5)

	if low1 != low2 || high1 != high2 {
		t.Errorf("pair key must not depend on direction: (%d,%d) vs (%d,%d)", low1, high1, low2, high2)
	}
	if low1 != 5 || high1 != 9 {
		t.Errorf("expected (5,9), got (%d,%d)", low1, high1)
	}
}

func TestValidateRequest(t *testing.T) {
	if err := ValidateRequest(1, 2); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	err := ValidateRequest(7, 7)
	if kindOf(t, err) != apperror.InvalidArgument {
		t.Errorf("self-request should be InvalidArgument, got %v", err)
	}
}

func TestRespondToEdge(t *testing.T) {
	pending := models.FriendEdge{ID: 1, SenderID: 10, ReceiverID: 20, Status: StatusPending}

	tests := []struct {
		name     string
		edge     models.FriendEdge
		actor    int64
		decision string
		wantKind apperror.Kind
		wantOk   bool
	}{
		{"receiver accepts", pending, 20, StatusAccepted, 0, true},
		{"receiver rejects", pending, 20, StatusRejected, 0, true},
		{"sender can't answer own request", pending, 10, StatusAccepted, apperror.Forbidden, false},
		{"third party can't answer", pending, 99, StatusAccepted, apperror.Forbidden, false},
		{"bad decision", pending, 20, "pending", apperror.InvalidArgument, false},
		{
			"already accepted",
			models.FriendEdge{ID: 1, SenderID: 10, ReceiverID: 20, Status: StatusAccepted},
			20, StatusAccepted, apperror.NotFound, false,
		},
		{
			"already rejected",
			models.FriendEdge{ID: 1, SenderID: 10, ReceiverID: 20, Status: StatusRejected},
			20, StatusAccepted, apperror.NotFound, false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RespondToEdge(tt.edge, tt.actor, tt.decision)
			if tt.wantOk {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if kindOf(t, err) != tt.wantKind {
				t.Errorf("expected kind %v, got %v", tt.wantKind, err)
			}
		})
	}
}

func TestCanCancelEdge(t *testing.T) {
	pending := models.FriendEdge{ID: 1, SenderID: 10, ReceiverID: 20, Status: StatusPending}

	if err := CanCancelEdge(pending, 10); err != nil {
		t.Errorf("sender should be able to cancel: %v", err)
	}

	if kindOf(t, CanCancelEdge(pending, 20)) != apperror.Forbidden {
		t.Error("receiver must not cancel")
	}
	if kindOf(t, CanCancelEdge(pending, 42)) != apperror.Forbidden {
		t.Error("stranger must not cancel")
	}

	accepted := models.FriendEdge{ID: 1, SenderID: 10, ReceiverID: 20, Status: StatusAccepted}
	if kindOf(t, CanCancelEdge(accepted, 10)) != apperror.Conflict {
		t.Error("accepted friendship can't be cancelled, only removed")
	}
}

func TestCanRemoveEdge(t *testing.T) {
	accepted := models.FriendEdge{ID: 1, SenderID: 10, ReceiverID: 20, Status: StatusAccepted}

	// remove is direction independent
	if err := CanRemoveEdge(accepted, 10); err != nil {
		t.Errorf("sender should be able to unfriend: %v", err)
	}
	if err := CanRemoveEdge(accepted, 20); err != nil {
		t.Errorf("receiver should be able to unfriend: %v", err)
	}

	if kindOf(t, CanRemoveEdge(accepted, 42)) != apperror.Forbidden {
		t.Error("stranger must not unfriend")
	}

	pending := models.FriendEdge{ID: 1, SenderID: 10, ReceiverID: 20, Status: StatusPending}
	if kindOf(t, CanRemoveEdge(pending, 10)) != apperror.NotFound {
		t.Error("pending request is not a friendship")
	}
}

func TestRespondToInvite(t *testing.T) {
	pending := models.ServerInvite{ID: 1, ServerID: 5, SenderID: 10, RecipientID: 20, Status: StatusPending}

	if err := RespondToInvite(pending, 20, StatusAccepted); err != nil {
		t.Errorf("recipient should be able to accept: %v", err)
	}

	if kindOf(t, RespondToInvite(pending, 10, StatusAccepted)) != apperror.Forbidden {
		t.Error("sender must not answer their own invite")
	}
	if kindOf(t, RespondToInvite(pending, 20, "whatever")) != apperror.InvalidArgument {
		t.Error("bad decision must be InvalidArgument")
	}

	settled := models.ServerInvite{ID: 1, ServerID: 5, SenderID: 10, RecipientID: 20, Status: StatusAccepted}
	if kindOf(t, RespondToInvite(settled, 20, StatusRejected)) != apperror.NotFound {
		t.Error("settled invite can't be answered again")
	}
}

func TestCanCancelInvite(t *testing.T) {
	invite := models.ServerInvite{ID: 1, ServerID: 5, SenderID: 10, RecipientID: 20, Status: StatusPending}

	if err := CanCancelInvite(invite, 10); err != nil {
		t.Errorf("sender should be able to cancel: %v", err)
	}
	if kindOf(t, CanCancelInvite(invite, 20)) != apperror.Forbidden {
		t.Error("recipient must not cancel the invite")
	}
}

func TestRoles(t *testing.T) {
	tests := []struct {
		role           string
		valid          bool
		manageChannels bool
		invite         bool
		deleteServer   bool
	}{
		{RoleOwner, true, true, true, true},
		{RoleAdmin, true, true, true, false},
		{RoleMember, true, false, false, false},
		{"superuser", false, false, false, false},
		{"", false, false, false, false},
	}

	for _, tt := range tests {
		t.Run("role "+tt.role, func(t *testing.T) {
			if got := ValidRole(tt.role); got != tt.valid {
				t.Errorf("ValidRole(%q) = %t", tt.role, got)
			}
			if got := CanManageChannels(tt.role); got != tt.manageChannels {
				t.Errorf("CanManageChannels(%q) = %t", tt.role, got)
			}
			if got := CanInvite(tt.role); got != tt.invite {
				t.Errorf("CanInvite(%q) = %t", tt.role, got)
			}
			if got := CanDeleteServer(tt.role); got != tt.deleteServer {
				t.Errorf("CanDeleteServer(%q) = %t", tt.role, got)
			}
		})
	}
}
