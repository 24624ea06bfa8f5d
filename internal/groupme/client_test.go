package groupme

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-token", "12345", "bot-auth")
}

func TestGetMembershipID(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/groups/12345" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("token") != "test-token" {
			t.Error("Expected token query param")
		}
		_, _ = w.Write([]byte(`{"response":{"id":"12345","members":[
			{"id":"m1","user_id":"111","nickname":"Alex"},
			{"id":"m2","user_id":"222","nickname":"Jordan"}
		]}}`))
	})

	id, err := client.GetMembershipID(context.Background(), "222")
	if err != nil {
		t.Fatalf("GetMembershipID failed: %v", err)
	}
	if id != "m2" {
		t.Errorf("Expected membership m2, got %q", id)
	}

	id, err = client.GetMembershipID(context.Background(), "999")
	if err != nil {
		t.Fatalf("GetMembershipID failed: %v", err)
	}
	if id != "" {
		t.Errorf("Expected empty membership for unknown user, got %q", id)
	}
}

func TestSendDMAppendsAutomationSuffix(t *testing.T) {
	t.Parallel()

	var captured map[string]map[string]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/direct_messages" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("Failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	})

	if err := client.SendDM(context.Background(), "111", "warning: spam detected"); err != nil {
		t.Fatalf("SendDM failed: %v", err)
	}

	dm := captured["direct_message"]
	if dm["recipient_id"] != "111" {
		t.Errorf("Expected recipient 111, got %q", dm["recipient_id"])
	}
	if !strings.HasPrefix(dm["text"], "warning: spam detected") {
		t.Errorf("Expected warning text, got %q", dm["text"])
	}
	if !strings.Contains(dm["text"], "performed automatically by a bot") {
		t.Errorf("Expected automation suffix, got %q", dm["text"])
	}
	if dm["source_guid"] == "" {
		t.Error("Expected a source_guid")
	}
}

func TestPostBotMessage(t *testing.T) {
	t.Parallel()

	var captured map[string]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bots/post" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("Failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	})

	if err := client.PostBotMessage(context.Background(), "@Alex has been removed."); err != nil {
		t.Fatalf("PostBotMessage failed: %v", err)
	}
	if captured["bot_id"] != "bot-auth" {
		t.Errorf("Expected bot auth id, got %q", captured["bot_id"])
	}
	if captured["text"] != "@Alex has been removed." {
		t.Errorf("Unexpected text %q", captured["text"])
	}
}

func TestDeleteMessageFailureSurfacesError(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("Expected DELETE, got %s", r.Method)
		}
		http.Error(w, "not found", http.StatusNotFound)
	})

	if err := client.DeleteMessage(context.Background(), "msg-1"); err == nil {
		t.Fatal("Expected error for 404 response")
	}
}

func TestListSubgroups(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/groups/12345/subgroups" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"response":[
			{"id":1,"name":"general","messages":{"last_message_id":"lm1","preview":{"text":"hello","nickname":"Alex"}}},
			{"id":2,"name":"tickets","messages":{"last_message_id":"lm2","preview":{"text":"selling 2 tickets","nickname":"Spammer"}}}
		]}`))
	})

	subgroups, err := client.ListSubgroups(context.Background())
	if err != nil {
		t.Fatalf("ListSubgroups failed: %v", err)
	}
	if len(subgroups) != 2 {
		t.Fatalf("Expected 2 subgroups, got %d", len(subgroups))
	}
	if subgroups[1].Messages.Preview.Text != "selling 2 tickets" {
		t.Errorf("Unexpected preview %q", subgroups[1].Messages.Preview.Text)
	}
	if subgroups[1].Messages.LastMessageID != "lm2" {
		t.Errorf("Unexpected last message id %q", subgroups[1].Messages.LastMessageID)
	}
}

func TestApproveMembership(t *testing.T) {
	t.Parallel()

	var captured map[string]bool
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/groups/12345/members/pm1/approval" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("Failed to decode body: %v", err)
		}
	})

	if err := client.ApproveMembership(context.Background(), "pm1", false); err != nil {
		t.Fatalf("ApproveMembership failed: %v", err)
	}
	if captured["approval"] {
		t.Error("Expected denial payload")
	}
}

func TestRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	attempts := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			http.Error(w, "upstream hiccup", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"response":[]}`))
	})

	if _, err := client.ListPendingMemberships(context.Background()); err != nil {
		t.Fatalf("Expected retry to succeed: %v", err)
	}
	if attempts < 2 {
		t.Errorf("Expected at least 2 attempts, got %d", attempts)
	}
}
