// Package notification pushes dispatch results to drivers through Firebase
// Cloud Messaging.
package notification

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"firebase.google.com/go/v4/messaging"

	"ridematch/internal/modules/matching"
	"ridematch/internal/types"
)

// sender is the subset of *messaging.Client the notifier uses.
type sender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMNotifier sends one data message per driver to the topic driver_<id>.
type FCMNotifier struct {
	client sender
}

func NewFCMNotifier(client *messaging.Client) *FCMNotifier {
	return &FCMNotifier{client: client}
}

func (n *FCMNotifier) NotifyDriver(ctx context.Context, driverID types.ID, stops []matching.Assignment) error {
	if len(stops) == 0 {
		return nil
	}
	msg := buildMessage(driverID, stops)
	messageID, err := n.client.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("sending FCM to topic %s: %w", msg.Topic, err)
	}
	log.Printf("[NOTIFY] driver %s: %d stops, message_id=%s", driverID, len(stops), messageID)
	return nil
}

// Topic is the FCM topic a driver's app subscribes to.
func Topic(driverID types.ID) string {
	return "driver_" + string(driverID)
}

func buildMessage(driverID types.ID, stops []matching.Assignment) *messaging.Message {
	first := stops[0]
	for _, s := range stops[1:] {
		if s.Sequence < first.Sequence {
			first = s
		}
	}
	return &messaging.Message{
		Topic: Topic(driverID),
		Data: map[string]string{
			"type":          "dispatch",
			"driver_id":     string(driverID),
			"stops":         strconv.Itoa(len(stops)),
			"assignment_id": first.ID,
			"passenger_id":  string(first.PassengerID),
			"pickup_at":     first.EstimatedPickup.Format(time.RFC3339),
		},
		Notification: &messaging.Notification{
			Title: "New trips assigned",
			Body:  fmt.Sprintf("%d stops, first pickup at %s", len(stops), first.EstimatedPickup.Format("15:04")),
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	}
}

// LogNotifier writes notifications to the log. It is used when Firebase is
// not configured.
type LogNotifier struct{}

func (LogNotifier) NotifyDriver(_ context.Context, driverID types.ID, stops []matching.Assignment) error {
	for _, s := range stops {
		log.Printf("[NOTIFY] driver %s stop %d: passenger %s pickup %s (%s)",
			driverID, s.Sequence, s.PassengerID, s.EstimatedPickup.Format(time.RFC3339), s.Kind)
	}
	return nil
}
