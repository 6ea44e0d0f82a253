package handlers

import (
	"concord-backend/internal/models"
	"fmt"
	"net/http"
	"testing"
)

func TestServerLifecycle(t *testing.T) {
	ownerID, ownerToken := registerUser(t, "srv_owner")
	_, strangerToken := registerUser(t, "srv_stranger")

	serverID := createTestServer(t, ownerToken, "Test Server")

	// creator shows up as owner
	w := doJSON(t, http.MethodGet, "/api/servers/my-servers", ownerToken, nil)
	expectStatus(t, w, http.StatusOK)

	var servers []models.Server
	decodeBody(t, w, &servers)
	if len(servers) != 1 || servers[0].Role != "owner" || servers[0].OwnerID != ownerID {
		t.Fatalf("expected one owned server, got %+v", servers)
	}

	// existence before membership: stranger gets Forbidden, not NotFound
	w = doJSON(t, http.MethodGet, fmt.Sprintf("/api/servers/%d", serverID), strangerToken, nil)
	expectStatus(t, w, http.StatusForbidden)

	w = doJSON(t, http.MethodGet, "/api/servers/987654", ownerToken, nil)
	expectStatus(t, w, http.StatusNotFound)

	w = doJSON(t, http.MethodGet, fmt.Sprintf("/api/servers/%d", serverID), ownerToken, nil)
	expectStatus(t, w, http.StatusOK)

	var server models.Server
	decodeBody(t, w, &server)
	if server.Name != "Test Server" || server.Role != "owner" {
		t.Fatalf("unexpected server record: %+v", server)
	}

	// only the owner may delete
	w = doJSON(t, http.MethodDelete, fmt.Sprintf("/api/servers/%d", serverID), strangerToken, nil)
	expectStatus(t, w, http.StatusForbidden)

	w = doJSON(t, http.MethodDelete, fmt.Sprintf("/api/servers/%d", serverID), ownerToken, nil)
	expectStatus(t, w, http.StatusOK)

	w = doJSON(t, http.MethodGet, fmt.Sprintf("/api/servers/%d", serverID), ownerToken, nil)
	expectStatus(t, w, http.StatusNotFound)
}

func TestChannelPositions(t *testing.T) {
	_, ownerToken := registerUser(t, "chan_owner")
	serverID := createTestServer(t, ownerToken, "Channel Server")

	general := createTestChannel(t, ownerToken, serverID, "text", "general")
	if general.Position != 1 {
		t.Errorf("first channel should get position 1, got %d", general.Position)
	}

	random := createTestChannel(t, ownerToken, serverID, "text", "random")
	if random.Position != 2 {
		t.Errorf("second channel should get position 2, got %d", random.Position)
	}

	third := createTestChannel(t, ownerToken, serverID, "text", "third")
	if third.Position != 3 {
		t.Errorf("third channel should get position 3, got %d", third.Position)
	}

	// deleting from the middle doesn't free the slot, positions only grow
	w := doJSON(t, http.MethodDelete, fmt.Sprintf("/api/servers/%d/channels/%d", serverID, random.ID), ownerToken, nil)
	expectStatus(t, w, http.StatusOK)

	fourth := createTestChannel(t, ownerToken, serverID, "text", "fourth")
	if fourth.Position != 4 {
		t.Errorf("positions must keep increasing after a delete, got %d", fourth.Position)
	}

	// listing is ordered and filtered by kind
	createTestChannel(t, ownerToken, serverID, "voice", "lounge")

	w = doJSON(t, http.MethodGet, fmt.Sprintf("/api/servers/%d/channels?kind=text", serverID), ownerToken, nil)
	expectStatus(t, w, http.StatusOK)

	var channels []models.Channel
	decodeBody(t, w, &channels)
	if len(channels) != 3 {
		t.Fatalf("expected 3 text channels, got %+v", channels)
	}
	for i := 1; i < len(channels); i++ {
		if channels[i-1].Position >= channels[i].Position {
			t.Errorf("channels not ordered by position: %+v", channels)
		}
	}

	w = doJSON(t, http.MethodGet, fmt.Sprintf("/api/servers/%d/channels?kind=disco", serverID), ownerToken, nil)
	expectStatus(t, w, http.StatusBadRequest)
}

func TestChannelRoleGate(t *testing.T) {
	_, ownerToken := registerUser(t, "gate_owner")
	_, memberToken := registerUser(t, "gate_member")

	serverID := createTestServer(t, ownerToken, "Gated Server")
	general := createTestChannel(t, ownerToken, serverID, "text", "general")

	inviteAndAccept(t, ownerToken, memberToken, serverID, "gate_member")

	// a plain member can look but not touch
	w := doJSON(t, http.MethodGet, fmt.Sprintf("/api/servers/%d/channels?kind=text", serverID), memberToken, nil)
	expectStatus(t, w, http.StatusOK)

	w = doJSON(t, http.MethodPost, fmt.Sprintf("/api/servers/%d/channels", serverID), memberToken, map[string]any{
		"kind": "text",
		"name": "sneaky",
	})
	expectStatus(t, w, http.StatusForbidden)

	w = doJSON(t, http.MethodDelete, fmt.Sprintf("/api/servers/%d/channels/%d", serverID, general.ID), memberToken, nil)
	expectStatus(t, w, http.StatusForbidden)
}

func TestChannelScopedToServer(t *testing.T) {
	_, ownerToken := registerUser(t, "scope_owner")
	_, otherToken := registerUser(t, "scope_other")

	serverID := createTestServer(t, ownerToken, "Mine")
	otherServerID := createTestServer(t, otherToken, "Theirs")
	foreign := createTestChannel(t, otherToken, otherServerID, "text", "foreign")

	// owner of one server can't delete a channel of another through it
	w := doJSON(t, http.MethodDelete, fmt.Sprintf("/api/servers/%d/channels/%d", serverID, foreign.ID), ownerToken, nil)
	expectStatus(t, w, http.StatusNotFound)

	// the channel is still there for its real owner
	w = doJSON(t, http.MethodGet, fmt.Sprintf("/api/servers/%d/channels?kind=text", otherServerID), otherToken, nil)
	expectStatus(t, w, http.StatusOK)

	var channels []models.Channel
	decodeBody(t, w, &channels)
	if len(channels) != 1 {
		t.Fatalf("foreign channel was deleted: %+v", channels)
	}
}

func TestInviteFlow(t *testing.T) {
	_, ownerToken := registerUser(t, "inv_owner")
	recipientID, recipientToken := registerUser(t, "inv_recipient")

	serverID := createTestServer(t, ownerToken, "Invite Server")

	// unknown recipient
	w := doJSON(t, http.MethodPost, fmt.Sprintf("/api/servers/%d/invites", serverID), ownerToken, map[string]string{
		"recipientUsername": "inv_nobody",
	})
	expectStatus(t, w, http.StatusNotFound)

	w = doJSON(t, http.MethodPost, fmt.Sprintf("/api/servers/%d/invites", serverID), ownerToken, map[string]string{
		"recipientUsername": "inv_recipient",
	})
	expectStatus(t, w, http.StatusOK)

	var invite models.ServerInvite
	decodeBody(t, w, &invite)
	if invite.RecipientID != recipientID {
		t.Fatalf("unexpected invite: %+v", invite)
	}

	// a second pending invite for the same pair is refused
	w = doJSON(t, http.MethodPost, fmt.Sprintf("/api/servers/%d/invites", serverID), ownerToken, map[string]string{
		"recipientUsername": "inv_recipient",
	})
	expectStatus(t, w, http.StatusConflict)

	// the recipient sees it, the sender too
	w = doJSON(t, http.MethodGet, "/api/servers/invites/received", recipientToken, nil)
	expectStatus(t, w, http.StatusOK)
	var received []models.ServerInvite
	decodeBody(t, w, &received)
	if len(received) != 1 || received[0].ID != invite.ID {
		t.Fatalf("expected the invite in received, got %+v", received)
	}

	w = doJSON(t, http.MethodGet, "/api/servers/invites/sent", ownerToken, nil)
	expectStatus(t, w, http.StatusOK)
	var sent []models.ServerInvite
	decodeBody(t, w, &sent)
	if len(sent) != 1 {
		t.Fatalf("expected the invite in sent, got %+v", sent)
	}

	// only the recipient may answer, and only with a real decision
	w = doJSON(t, http.MethodPost, fmt.Sprintf("/api/servers/invites/%d/respond", invite.ID), ownerToken, map[string]string{"status": "accepted"})
	expectStatus(t, w, http.StatusForbidden)

	w = doJSON(t, http.MethodPost, fmt.Sprintf("/api/servers/invites/%d/respond", invite.ID), recipientToken, map[string]string{"status": "perhaps"})
	expectStatus(t, w, http.StatusBadRequest)

	w = doJSON(t, http.MethodPost, fmt.Sprintf("/api/servers/invites/%d/respond", invite.ID), recipientToken, map[string]string{"status": "accepted"})
	expectStatus(t, w, http.StatusOK)

	// accepting created the membership
	w = doJSON(t, http.MethodGet, fmt.Sprintf("/api/servers/%d", serverID), recipientToken, nil)
	expectStatus(t, w, http.StatusOK)
	var server models.Server
	decodeBody(t, w, &server)
	if server.Role != "member" {
		t.Errorf("expected role member after accepting, got %q", server.Role)
	}

	// members can't be invited again
	w = doJSON(t, http.MethodPost, fmt.Sprintf("/api/servers/%d/invites", serverID), ownerToken, map[string]string{
		"recipientUsername": "inv_recipient",
	})
	expectStatus(t, w, http.StatusConflict)

	// plain members can't invite others
	registerUser(t, "inv_third")
	w = doJSON(t, http.MethodPost, fmt.Sprintf("/api/servers/%d/invites", serverID), recipientToken, map[string]string{
		"recipientUsername": "inv_third",
	})
	expectStatus(t, w, http.StatusForbidden)
}

func TestCancelInvite(t *testing.T) {
	_, ownerToken := registerUser(t, "cinv_owner")
	_, recipientToken := registerUser(t, "cinv_recipient")

	serverID := createTestServer(t, ownerToken, "Cancel Server")

	w := doJSON(t, http.MethodPost, fmt.Sprintf("/api/servers/%d/invites", serverID), ownerToken, map[string]string{
		"recipientUsername": "cinv_recipient",
	})
	expectStatus(t, w, http.StatusOK)

	var invite models.ServerInvite
	decodeBody(t, w, &invite)

	// the recipient declines through respond, not cancel
	w = doJSON(t, http.MethodDelete, fmt.Sprintf("/api/servers/invites/%d", invite.ID), recipientToken, nil)
	expectStatus(t, w, http.StatusForbidden)

	w = doJSON(t, http.MethodDelete, fmt.Sprintf("/api/servers/invites/%d", invite.ID), ownerToken, nil)
	expectStatus(t, w, http.StatusOK)

	w = doJSON(t, http.MethodDelete, fmt.Sprintf("/api/servers/invites/%d", invite.ID), ownerToken, nil)
	expectStatus(t, w, http.StatusNotFound)
}

func TestRejectedInviteAllowsRetry(t *testing.T) {
	_, ownerToken := registerUser(t, "rinv_owner")
	_, recipientToken := registerUser(t, "rinv_recipient")

	serverID := createTestServer(t, ownerToken, "Retry Server")

	w := doJSON(t, http.MethodPost, fmt.Sprintf("/api/servers/%d/invites", serverID), ownerToken, map[string]string{
		"recipientUsername": "rinv_recipient",
	})
	expectStatus(t, w, http.StatusOK)

	var invite models.ServerInvite
	decodeBody(t, w, &invite)

	w = doJSON(t, http.MethodPost, fmt.Sprintf("/api/servers/invites/%d/respond", invite.ID), recipientToken, map[string]string{"status": "rejected"})
	expectStatus(t, w, http.StatusOK)

	// a settled invite no longer blocks a fresh one
	w = doJSON(t, http.MethodPost, fmt.Sprintf("/api/servers/%d/invites", serverID), ownerToken, map[string]string{
		"recipientUsername": "rinv_recipient",
	})
	expectStatus(t, w, http.StatusOK)
}
