package mail

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/bsg-enterprise/ticketing/internal/config"
)

func TestNew_PicksImplementationFromConfig(t *testing.T) {
	logger := zap.NewNop()

	_, isLog := New(config.EmailConfig{}, logger).(*LogMailer)
	assert.True(t, isLog)

	_, isSMTP := New(config.EmailConfig{Host: "smtp.bsg.co.id", Port: 587, From: "helpdesk@bsg.co.id"}, logger).(*SMTPMailer)
	assert.True(t, isSMTP)
}

func TestSMTPMailer_NoRecipientsIsNoop(t *testing.T) {
	m := NewSMTPMailer(config.EmailConfig{Host: "127.0.0.1", Port: 1})
	assert.NoError(t, m.Send(context.Background(), Message{Subject: "x"}))
}

func TestSMTPMailer_CancelledContext(t *testing.T) {
	m := NewSMTPMailer(config.EmailConfig{Host: "127.0.0.1", Port: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Send(ctx, Message{To: []string{"a@bsg.co.id"}}), context.Canceled)
}
