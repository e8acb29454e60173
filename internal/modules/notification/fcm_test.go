package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"firebase.google.com/go/v4/messaging"

	"ridematch/internal/modules/matching"
)

type mockSender struct {
	sent []*messaging.Message
	err  error
}

func (m *mockSender) Send(_ context.Context, msg *messaging.Message) (string, error) {
	m.sent = append(m.sent, msg)
	if m.err != nil {
		return "", m.err
	}
	return "projects/test/messages/1", nil
}

func TestNotifyDriver_SendsToDriverTopic(t *testing.T) {
	s := &mockSender{}
	n := &FCMNotifier{client: s}
	pickup := time.Date(2026, 3, 2, 8, 15, 0, 0, time.UTC)
	stops := []matching.Assignment{
		{ID: "a2", PassengerID: "p2", Sequence: 2, EstimatedPickup: pickup.Add(30 * time.Minute)},
		{ID: "a1", PassengerID: "p1", Sequence: 1, EstimatedPickup: pickup},
	}

	if err := n.NotifyDriver(context.Background(), "d7", stops); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(s.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(s.sent))
	}
	msg := s.sent[0]
	if msg.Topic != "driver_d7" {
		t.Errorf("topic = %q", msg.Topic)
	}
	if msg.Data["stops"] != "2" || msg.Data["assignment_id"] != "a1" || msg.Data["pickup_at"] != "2026-03-02T08:15:00Z" {
		t.Errorf("data = %v", msg.Data)
	}
}

func TestNotifyDriver_NoStops(t *testing.T) {
	s := &mockSender{}
	n := &FCMNotifier{client: s}
	if err := n.NotifyDriver(context.Background(), "d1", nil); err != nil {
		t.Fatal(err)
	}
	if len(s.sent) != 0 {
		t.Errorf("sent %d messages for no stops", len(s.sent))
	}
}

func TestNotifyDriver_SendError(t *testing.T) {
	boom := errors.New("unavailable")
	n := &FCMNotifier{client: &mockSender{err: boom}}
	err := n.NotifyDriver(context.Background(), "d1", []matching.Assignment{{ID: "a1", Sequence: 1}})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped send error", err)
	}
}
