package notification

import (
	"context"
	"errors"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"astroconsult-backend/internal/domain"
)

type MockDialer struct {
	mock.Mock
}

func (m *MockDialer) DialAndSend(msgs ...*gomail.Message) error {
	args := m.Called(msgs)
	return args.Error(0)
}

type MockMessaging struct {
	mock.Mock
}

func (m *MockMessaging) Send(ctx context.Context, msg *messaging.Message) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

func TestEmailSender_Send(t *testing.T) {
	dialer := new(MockDialer)
	s := &EmailSender{dialer: dialer, from: "noreply@astroconsult.app"}
	user := &domain.User{ID: "u1", Name: "Asha", Email: "asha@example.com"}
	n := domain.Notification{UserID: "u1", Title: "Session charged", Message: "Your call was billed.", Amount: "50.00",
		Attributes: map[string]string{"balance": "50.00"}}

	dialer.On("DialAndSend", mock.MatchedBy(func(msgs []*gomail.Message) bool {
		return len(msgs) == 1 &&
			msgs[0].GetHeader("Subject")[0] == "Session charged" &&
			msgs[0].GetHeader("From")[0] == "noreply@astroconsult.app"
	})).Return(nil).Once()

	require.NoError(t, s.Send(context.Background(), user, n))
	dialer.AssertExpectations(t)

	body := emailBody("Asha", n)
	assert.Contains(t, body, "Amount: 50.00")
	assert.Contains(t, body, "Wallet balance: 50.00")
}

func TestEmailSender_Errors(t *testing.T) {
	dialer := new(MockDialer)
	s := &EmailSender{dialer: dialer, from: "noreply@astroconsult.app"}

	err := s.Send(context.Background(), &domain.User{ID: "u1"}, domain.Notification{})
	assert.ErrorIs(t, err, errNoAddress)

	dialer.On("DialAndSend", mock.Anything).Return(errors.New("connection refused"))
	err = s.Send(context.Background(), &domain.User{ID: "u1", Email: "a@b.c"}, domain.Notification{Title: "x"})
	assert.ErrorContains(t, err, "connection refused")
}

func TestPushSender_Send(t *testing.T) {
	client := new(MockMessaging)
	s := &PushSender{client: client}
	token := "device-1"
	user := &domain.User{ID: "u1", DeviceToken: &token}
	n := domain.Notification{ID: "n1", UserID: "u1", Kind: domain.NotificationSessionEarned, Title: "Earned", Message: "You earned 40.00",
		Amount: "40.00", Attributes: map[string]string{"session_id": "s1"}}

	client.On("Send", mock.Anything, mock.MatchedBy(func(m *messaging.Message) bool {
		return m.Token == "device-1" &&
			m.Notification.Title == "Earned" &&
			m.Data["kind"] == "SESSION_EARNED" &&
			m.Data["session_id"] == "s1" &&
			m.Data["amount"] == "40.00"
	})).Return("projects/x/messages/1", nil).Once()

	require.NoError(t, s.Send(context.Background(), user, n))
	client.AssertExpectations(t)
}

func TestPushSender_NoDeviceToken(t *testing.T) {
	s := &PushSender{client: new(MockMessaging)}
	err := s.Send(context.Background(), &domain.User{ID: "u1"}, domain.Notification{})
	assert.ErrorIs(t, err, errNoAddress)
}
