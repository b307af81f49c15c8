package service

import (
	"time"

	"kilnbazaar/pkg/logger"
	"kilnbazaar/storage"
)

type IServiceManager interface {
	Auth() AuthService
	Provider() ProviderService
	Request() RequestService
	Dashboard() DashboardService
}

type Options struct {
	Auth      AuthConfig
	Notifier  Notifier
	OTPSender OTPSender
}

type service struct {
	authService      AuthService
	providerService  ProviderService
	requestService   RequestService
	dashboardService DashboardService
}

func New(stg storage.IStorage, log logger.ILogger, opts Options) IServiceManager {
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}
	if opts.OTPSender == nil {
		opts.OTPSender = LogOTPSender{Log: log}
	}
	return &service{
		authService:      NewAuthService(stg, log, opts.Auth, opts.OTPSender),
		providerService:  NewProviderService(stg, log),
		requestService:   NewRequestService(stg, log, opts.Notifier),
		dashboardService: NewDashboardService(stg, log),
	}
}

func (s *service) Auth() AuthService {
	return s.authService
}

func (s *service) Provider() ProviderService {
	return s.providerService
}

func (s *service) Request() RequestService {
	return s.requestService
}

func (s *service) Dashboard() DashboardService {
	return s.dashboardService
}

var timeNow = time.Now
