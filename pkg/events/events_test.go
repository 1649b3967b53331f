package events

import (
	"testing"
	"time"
)

func TestBrokerDeliversToSubscriber(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()

	b.Emit(EventRestartIssued, "gateway restart", map[string]string{"reason": "fatal"})

	select {
	case ev := <-sub:
		if ev.Type != EventRestartIssued {
			t.Errorf("expected %s, got %s", EventRestartIssued, ev.Type)
		}
		if ev.ID == "" {
			t.Error("expected event ID to be filled in")
		}
		if ev.Timestamp.IsZero() {
			t.Error("expected timestamp to be filled in")
		}
		if ev.Metadata["reason"] != "fatal" {
			t.Errorf("unexpected metadata: %v", ev.Metadata)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBrokerFanOut(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub1 := b.Subscribe()
	sub2 := b.Subscribe()

	if b.SubscriberCount() != 2 {
		t.Fatalf("expected 2 subscribers, got %d", b.SubscriberCount())
	}

	b.Emit(EventSnapshotTaken, "snapshot", nil)

	for i, sub := range []Subscriber{sub1, sub2} {
		select {
		case ev := <-sub:
			if ev.Type != EventSnapshotTaken {
				t.Errorf("subscriber %d: unexpected type %s", i, ev.Type)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("subscriber %d: timed out", i)
		}
	}
}

func TestBrokerUnsubscribeCloses(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	b.Unsubscribe(sub)

	if _, ok := <-sub; ok {
		t.Error("expected closed channel after unsubscribe")
	}
	if b.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", b.SubscriberCount())
	}
}
