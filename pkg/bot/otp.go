package bot

import (
	"context"
	"fmt"

	"kilnbazaar/pkg/logger"
	"kilnbazaar/service"
	"kilnbazaar/storage"
)

// OTPSender delivers login codes through Telegram to users who have linked a
// chat, and hands everything else to Fallback.
type OTPSender struct {
	Notifier service.Notifier
	Users    storage.IUserStorage
	Fallback service.OTPSender
	Log      logger.ILogger
}

func (s OTPSender) SendOTP(ctx context.Context, phone, code string) error {
	user, err := s.Users.GetByPhone(ctx, phone)
	if err != nil || user.TelegramID == nil {
		return s.Fallback.SendOTP(ctx, phone, code)
	}
	text := fmt.Sprintf("🔐 Your KilnBazaar login code is %s. Do not share it.", code)
	if err := s.Notifier.Notify(ctx, *user.TelegramID, text); err != nil {
		s.Log.Warning("telegram otp delivery failed, using fallback", logger.Error(err))
		return s.Fallback.SendOTP(ctx, phone, code)
	}
	return nil
}
