package store

import (
	"context"
	"testing"
)

func TestMemoryStore_SessionLifecycle(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	sess, err := m.CreateSession(ctx, Session{ID: "s1", Weather: "rain", RoadType: "highway"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sess.Status != StatusActive {
		t.Errorf("expected active status, got %s", sess.Status)
	}
	if sess.StartedAt.IsZero() {
		t.Error("expected StartedAt to be set")
	}

	// Creating the same id again returns the existing record.
	again, err := m.CreateSession(ctx, Session{ID: "s1", Weather: "snow"})
	if err != nil {
		t.Fatalf("create again: %v", err)
	}
	if again.Weather != "rain" {
		t.Errorf("duplicate create must not overwrite, got weather %s", again.Weather)
	}

	found, err := m.FindSession(ctx, "s1")
	if err != nil || found == nil {
		t.Fatalf("find: %v %v", found, err)
	}

	missing, err := m.FindSession(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("expected (nil, nil) for unknown session, got %v %v", missing, err)
	}

	ended, err := m.EndSession(ctx, "s1")
	if err != nil || ended == nil {
		t.Fatalf("end: %v %v", ended, err)
	}
	if ended.Status != StatusCompleted || ended.EndedAt == nil {
		t.Errorf("expected completed session with EndedAt, got %+v", ended)
	}
}

func TestMemoryStore_DriverResponses(t *testing.T) {
	m := NewMemoryStore()
	err := m.SaveDriverResponse(context.Background(), DriverResponse{
		SessionID: "s1",
		AlertKind: "collision_warning",
		Action:    "braked",
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	got := m.Responses()
	if len(got) != 1 || got[0].Action != "braked" {
		t.Fatalf("unexpected responses: %+v", got)
	}
}
