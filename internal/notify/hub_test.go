package notify

import (
	"testing"
	"time"
)

func TestSubscribeAndSend(t *testing.T) {
	h := NewHub()

	ch, cancel := h.Subscribe("org-1")
	defer cancel()

	h.SendToOrganization("org-1", Event{
		Type: EventMemberRoleUpdated,
		Data: map[string]any{"userId": "u-1"},
	})

	select {
	case ev := <-ch:
		if ev.Type != EventMemberRoleUpdated {
			t.Errorf("expected event type %s, got %s", EventMemberRoleUpdated, ev.Type)
		}
		if ev.Data["userId"] != "u-1" {
			t.Errorf("unexpected event data: %v", ev.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestSendIsScopedToOrganization(t *testing.T) {
	h := NewHub()

	ch1, cancel1 := h.Subscribe("org-1")
	defer cancel1()
	ch2, cancel2 := h.Subscribe("org-2")
	defer cancel2()

	h.SendToOrganization("org-1", Event{Type: EventMemberRemoved})

	select {
	case <-ch1:
	case <-time.After(time.Second):
		t.Fatal("org-1 subscriber should receive the event")
	}

	select {
	case ev := <-ch2:
		t.Fatalf("org-2 subscriber should not receive org-1 events, got %v", ev)
	default:
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	h := NewHub()

	ch, cancel := h.Subscribe("org-1")
	cancel()

	// Channel is closed after cancel.
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after cancel")
	}

	// Sending after cancel must not panic.
	h.SendToOrganization("org-1", Event{Type: EventMemberRemoved})

	if n := h.SubscriberCount(); n != 0 {
		t.Errorf("expected 0 subscribers after cancel, got %d", n)
	}

	// Double cancel is safe.
	cancel()
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	h := NewHub()

	_, cancel := h.Subscribe("org-1")
	defer cancel()

	// Overfill the buffer; sends must return immediately, dropping extras.
	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			h.SendToOrganization("org-1", Event{Type: EventMemberStatusUpdated})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("send blocked on a slow subscriber")
	}
}

func TestOnCountChange(t *testing.T) {
	h := NewHub()

	var counts []int
	h.OnCountChange(func(n int) { counts = append(counts, n) })

	_, cancel1 := h.Subscribe("org-1")
	_, cancel2 := h.Subscribe("org-2")
	cancel1()
	cancel2()

	want := []int{1, 2, 1, 0}
	if len(counts) != len(want) {
		t.Fatalf("expected %d callbacks, got %d: %v", len(want), len(counts), counts)
	}
	for i := range want {
		if counts[i] != want[i] {
			t.Errorf("callback %d: expected %d, got %d", i, want[i], counts[i])
		}
	}
}
