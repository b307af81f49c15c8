package service

import (
	"context"

	"kilnbazaar/pkg/logger"
)

// Notifier delivers short text messages to a chat. Delivery is best-effort:
// callers log failures and carry on.
type Notifier interface {
	Notify(ctx context.Context, chatID int64, text string) error
}

// OTPSender hands a freshly generated login code to the phone's owner.
type OTPSender interface {
	SendOTP(ctx context.Context, phone, code string) error
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, int64, string) error { return nil }

// LogOTPSender writes codes to the log. Only meant for local development.
type LogOTPSender struct {
	Log logger.ILogger
}

func (s LogOTPSender) SendOTP(_ context.Context, phone, code string) error {
	s.Log.Warning("OTP issued (debug delivery)", logger.String("phone", phone), logger.String("code", code))
	return nil
}
