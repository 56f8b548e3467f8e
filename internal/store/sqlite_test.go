package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/chatline-im/chatline/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestUpsertUserCreatesAndRefreshes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, err := s.UpsertUser(ctx, "a@x.com", "Alice", "av1")
	if err != nil {
		t.Fatal(err)
	}
	if !u.Online {
		t.Error("new user should be online")
	}
	if u.Name != "Alice" {
		t.Errorf("expected name Alice, got %q", u.Name)
	}

	// Second login refreshes profile and keeps the user online
	u, err = s.UpsertUser(ctx, "a@x.com", "Alicia", "av2")
	if err != nil {
		t.Fatal(err)
	}
	if u.Name != "Alicia" || u.Avatar != "av2" {
		t.Errorf("profile not refreshed: %+v", u)
	}

	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 {
		t.Fatalf("expected 1 user, got %d", len(users))
	}
}

func TestSetUserOffline(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.UpsertUser(ctx, "a@x.com", "Alice", ""); err != nil {
		t.Fatal(err)
	}
	if err := s.SetUserOffline(ctx, "a@x.com"); err != nil {
		t.Fatal(err)
	}

	u, err := s.GetUser(ctx, "a@x.com")
	if err != nil {
		t.Fatal(err)
	}
	if u.Online {
		t.Error("user should be offline")
	}

	// Unknown user: no error, no effect
	if err := s.SetUserOffline(ctx, "ghost@x.com"); err != nil {
		t.Fatal(err)
	}
}

func TestGetUserNotFound(t *testing.T) {
	s := newTestStore(t)

	u, err := s.GetUser(context.Background(), "ghost@x.com")
	if err != nil {
		t.Fatal(err)
	}
	if u != nil {
		t.Errorf("expected nil for missing user, got %+v", u)
	}
}

func TestListUsersOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"Cara", "Alice", "Bob"} {
		if _, err := s.UpsertUser(ctx, name+"@x.com", name, ""); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.SetUserOffline(ctx, "Alice@x.com"); err != nil {
		t.Fatal(err)
	}

	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	got := make([]string, len(users))
	for i, u := range users {
		got[i] = u.Name
	}
	// Online first (Bob, Cara alphabetical), then offline (Alice)
	want := []string{"Bob", "Cara", "Alice"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func TestSaveMessageAssignsIDAndTimestamp(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	msg := &models.Message{From: "a@x.com", To: "b@x.com", Text: "hi"}
	if err := s.SaveMessage(ctx, msg); err != nil {
		t.Fatal(err)
	}
	if msg.ID == "" {
		t.Error("expected store-assigned id")
	}
	if msg.CreatedAt.IsZero() {
		t.Error("expected store-assigned timestamp")
	}
	if msg.Kind != models.KindText {
		t.Errorf("expected default kind text, got %q", msg.Kind)
	}
	if msg.Read {
		t.Error("new message must be unread")
	}

	got, err := s.GetMessage(ctx, msg.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Text != "hi" {
		t.Fatalf("round trip failed: %+v", got)
	}
}

func TestConversationBothDirectionsAscending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	pairs := []struct{ from, to, text string }{
		{"a@x.com", "b@x.com", "one"},
		{"b@x.com", "a@x.com", "two"},
		{"a@x.com", "b@x.com", "three"},
		{"a@x.com", "c@x.com", "other pair"},
	}
	for _, p := range pairs {
		if err := s.SaveMessage(ctx, &models.Message{From: p.from, To: p.to, Text: p.text}); err != nil {
			t.Fatal(err)
		}
	}

	msgs, err := s.GetConversation(ctx, "a@x.com", "b@x.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	want := []string{"one", "two", "three"}
	for i, w := range want {
		if msgs[i].Text != w {
			t.Fatalf("expected order %v, got %q at %d", want, msgs[i].Text, i)
		}
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt) {
			t.Error("messages not ascending by created_at")
		}
	}

	// Argument order does not matter
	rev, err := s.GetConversation(ctx, "b@x.com", "a@x.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(rev) != 3 {
		t.Fatalf("expected 3 messages for reversed pair, got %d", len(rev))
	}
}

func TestConversationEmptyPair(t *testing.T) {
	s := newTestStore(t)

	msgs, err := s.GetConversation(context.Background(), "a@x.com", "b@x.com")
	if err != nil {
		t.Fatal(err)
	}
	if msgs == nil {
		t.Error("expected empty slice, not nil")
	}
	if len(msgs) != 0 {
		t.Errorf("expected no messages, got %d", len(msgs))
	}
}

func TestMarkMessageReadTransitionsOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	msg := &models.Message{From: "a@x.com", To: "b@x.com", Text: "hi"}
	if err := s.SaveMessage(ctx, msg); err != nil {
		t.Fatal(err)
	}

	changed, err := s.MarkMessageRead(ctx, msg.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Error("first mark should report a transition")
	}

	changed, err = s.MarkMessageRead(ctx, msg.ID)
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Error("second mark must be a no-op")
	}

	got, err := s.GetMessage(ctx, msg.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Read {
		t.Error("message should be read")
	}

	// Unknown id: no transition, no error
	changed, err = s.MarkMessageRead(ctx, "no-such-id")
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Error("unknown id must not report a transition")
	}
}

func TestAggregates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	last, err := s.GetMostRecentActivity(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if last != nil {
		t.Error("expected nil activity on empty store")
	}

	for _, name := range []string{"Alice", "Bob"} {
		if _, err := s.UpsertUser(ctx, name+"@x.com", name, ""); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.SetUserOffline(ctx, "Bob@x.com"); err != nil {
		t.Fatal(err)
	}
	msg := &models.Message{From: "Alice@x.com", To: "Bob@x.com", Text: "hi"}
	if err := s.SaveMessage(ctx, msg); err != nil {
		t.Fatal(err)
	}

	if n, _ := s.CountUsers(ctx); n != 2 {
		t.Errorf("expected 2 users, got %d", n)
	}
	if n, _ := s.CountOnlineUsers(ctx); n != 1 {
		t.Errorf("expected 1 online user, got %d", n)
	}
	if n, _ := s.CountMessages(ctx); n != 1 {
		t.Errorf("expected 1 message, got %d", n)
	}

	last, err = s.GetMostRecentActivity(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if last == nil {
		t.Fatal("expected activity timestamp")
	}
	if !last.Equal(msg.CreatedAt) {
		t.Errorf("expected %v, got %v", msg.CreatedAt, *last)
	}
}

func TestImageMessageRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	msg := &models.Message{
		From:  "a@x.com",
		To:    "b@x.com",
		Image: "data:image/png;base64,abc",
		Kind:  models.KindImage,
	}
	if err := s.SaveMessage(ctx, msg); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetMessage(ctx, msg.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind != models.KindImage {
		t.Errorf("expected kind image, got %q", got.Kind)
	}
	if got.Text != "" {
		t.Errorf("expected empty body, got %q", got.Text)
	}
	if got.Image != "data:image/png;base64,abc" {
		t.Errorf("image ref mangled: %q", got.Image)
	}
}
