// Package notify pushes committed reservations to Firebase Cloud Messaging topics.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/MarkoPoloResearchLab/teetime/pkg/booking"
	"google.golang.org/api/option"
)

const (
	defaultTopicPrefix = "teetime-branch-"
	notificationTitle  = "New reservation"

	errorOperationNotify = "notify"
	errorSubjectMessage  = "message"
	errorCodeSend        = "send"
)

// ErrInvalidConfig is returned when the notifier cannot be built.
var ErrInvalidConfig = errors.New("invalid notifier config")

// Sender delivers one FCM message. *messaging.Client satisfies it.
type Sender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMNotifier implements booking.Notifier with one topic per branch.
type FCMNotifier struct {
	sender      Sender
	topicPrefix string
}

// NewFCMNotifier wraps sender. An empty prefix uses the default topic prefix.
func NewFCMNotifier(sender Sender, topicPrefix string) (*FCMNotifier, error) {
	if sender == nil {
		return nil, fmt.Errorf("%w: sender is nil", ErrInvalidConfig)
	}
	prefix := strings.TrimSpace(topicPrefix)
	if prefix == "" {
		prefix = defaultTopicPrefix
	}
	return &FCMNotifier{sender: sender, topicPrefix: prefix}, nil
}

// NewMessagingClient initializes a Firebase app from a service account file.
func NewMessagingClient(ctx context.Context, credentialsFile string) (*messaging.Client, error) {
	if strings.TrimSpace(credentialsFile) == "" {
		return nil, fmt.Errorf("%w: credentials file is required", ErrInvalidConfig)
	}
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase messaging: %w", err)
	}
	return client, nil
}

// Topic returns the topic staff devices of branch subscribe to.
func (notifier *FCMNotifier) Topic(branch booking.BranchID) string {
	return notifier.topicPrefix + topicSafe(branch.String())
}

func (notifier *FCMNotifier) ReservationCommitted(ctx context.Context, record booking.ReservationRecord) error {
	message := &messaging.Message{
		Topic: notifier.Topic(record.Branch),
		Notification: &messaging.Notification{
			Title: notificationTitle,
			Body: fmt.Sprintf("%s %s %s-%s", record.ResourceID, record.Date,
				booking.ToTimeString(record.Start), booking.ToTimeString(record.End)),
		},
		Data: map[string]string{
			"reservation_id": record.ReservationID.String(),
			"branch_id":      record.Branch.String(),
			"resource_kind":  record.Kind.String(),
			"resource_id":    record.ResourceID.String(),
			"date":           record.Date.String(),
			"start":          booking.ToTimeString(record.Start),
			"end":            booking.ToTimeString(record.End),
			"member_id":      record.Member.String(),
			"payment_method": string(record.PaymentMethod),
			"net_amount":     strconv.FormatInt(record.NetAmount, 10),
		},
	}
	if _, err := notifier.sender.Send(ctx, message); err != nil {
		return booking.WrapError(errorOperationNotify, errorSubjectMessage, errorCodeSend, err)
	}
	return nil
}

// topicSafe keeps the characters FCM accepts in topic names: [a-zA-Z0-9-_.~%].
func topicSafe(raw string) string {
	var builder strings.Builder
	for _, character := range raw {
		switch {
		case character >= 'a' && character <= 'z', character >= 'A' && character <= 'Z', character >= '0' && character <= '9':
			builder.WriteRune(character)
		case strings.ContainsRune("-_.~%", character):
			builder.WriteRune(character)
		default:
			builder.WriteRune('_')
		}
	}
	return builder.String()
}
