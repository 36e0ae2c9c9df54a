package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"lifelink/internal/infra/pgtest"
)

func TestPGStoreRespondIsConditional(t *testing.T) {
	store := NewPGStore(pgtest.Open(t, "notifications"))
	ctx := context.Background()

	n := &Notification{
		ID: "n1", DonorID: "d1", RequestID: "r1", Message: "Urgent",
		Type: TypeEmergency, Status: StatusPending, Timestamp: time.Now().UTC(),
	}
	if err := store.Save(ctx, n); err != nil {
		t.Fatalf("save: %v", err)
	}

	ok, err := store.Respond(ctx, "n1", StatusDeclined)
	if err != nil || !ok {
		t.Fatalf("first respond: ok=%v err=%v", ok, err)
	}
	ok, err = store.Respond(ctx, "n1", StatusAccepted)
	if err != nil || ok {
		t.Fatalf("second respond must be refused: ok=%v err=%v", ok, err)
	}

	if ok, err := store.Reopen(ctx, "n1", StatusAccepted); err != nil || ok {
		t.Fatalf("reopen from the wrong status must be refused: ok=%v err=%v", ok, err)
	}

	got, err := store.Get(ctx, "n1")
	if err != nil || got.Status != StatusDeclined {
		t.Fatalf("get: %+v %v", got, err)
	}
	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	list, _ := store.List(ctx, "d1")
	if len(list) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(list))
	}
}
