package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/MarkoPoloResearchLab/teetime/pkg/booking"
)

type recordingSender struct {
	messages []*messaging.Message
	err      error
}

func (sender *recordingSender) Send(_ context.Context, message *messaging.Message) (string, error) {
	sender.messages = append(sender.messages, message)
	if sender.err != nil {
		return "", sender.err
	}
	return "projects/test/messages/1", nil
}

func committedRecord(test *testing.T, branchRaw string) booking.ReservationRecord {
	test.Helper()
	branch, err := booking.NewBranchID(branchRaw)
	if err != nil {
		test.Fatalf("branch: %v", err)
	}
	resource, _ := booking.NewResourceID("3")
	member, _ := booking.NewMemberID("m-1")
	date, _ := booking.NewDate("2025-03-11")
	return booking.ReservationRecord{
		ReservationID: booking.ReservationIDFor(date, resource, 600),
		Branch:        branch,
		ResourceID:    resource,
		Kind:          booking.ResourceKindBay,
		Date:          date,
		Start:         600,
		End:           660,
		Member:        member,
		PaymentMethod: booking.PaymentCard,
		NetAmount:     30000,
		CreatedAt:     time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
	}
}

func TestReservationCommittedSendsTopicMessage(test *testing.T) {
	test.Parallel()
	sender := &recordingSender{}
	notifier, err := NewFCMNotifier(sender, "")
	if err != nil {
		test.Fatalf("notifier: %v", err)
	}
	if err := notifier.ReservationCommitted(context.Background(), committedRecord(test, "b-1")); err != nil {
		test.Fatalf("notify: %v", err)
	}
	if len(sender.messages) != 1 {
		test.Fatalf("expected one message, got %d", len(sender.messages))
	}
	message := sender.messages[0]
	if message.Topic != "teetime-branch-b-1" {
		test.Fatalf("unexpected topic %q", message.Topic)
	}
	if message.Data["reservation_id"] != "250311_3_1000" || message.Data["net_amount"] != "30000" || message.Data["end"] != "11:00" {
		test.Fatalf("unexpected data %v", message.Data)
	}
	if message.Notification == nil || message.Notification.Body != "3 2025-03-11 10:00-11:00" {
		test.Fatalf("unexpected notification %+v", message.Notification)
	}
}

func TestTopicReplacesUnsafeCharacters(test *testing.T) {
	test.Parallel()
	notifier, err := NewFCMNotifier(&recordingSender{}, "staff-")
	if err != nil {
		test.Fatalf("notifier: %v", err)
	}
	branch, _ := booking.NewBranchID("강남 1호점")
	if topic := notifier.Topic(branch); topic != "staff-___1__" {
		test.Fatalf("unexpected topic %q", topic)
	}
}

func TestReservationCommittedWrapsSendFailure(test *testing.T) {
	test.Parallel()
	sender := &recordingSender{err: errors.New("quota exceeded")}
	notifier, _ := NewFCMNotifier(sender, "")
	err := notifier.ReservationCommitted(context.Background(), committedRecord(test, "b-1"))
	var operationError booking.OperationError
	if !errors.As(err, &operationError) || operationError.Operation() != errorOperationNotify {
		test.Fatalf("expected notify operation error, got %v", err)
	}
}

func TestConstructorsValidateInput(test *testing.T) {
	test.Parallel()
	if _, err := NewFCMNotifier(nil, ""); !errors.Is(err, ErrInvalidConfig) {
		test.Fatalf("expected nil sender rejection, got %v", err)
	}
	if _, err := NewMessagingClient(context.Background(), " "); !errors.Is(err, ErrInvalidConfig) {
		test.Fatalf("expected missing credentials rejection, got %v", err)
	}
}
