package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"kilnbazaar/pkg/logger"
	"kilnbazaar/pkg/models"
	"kilnbazaar/storage"
)

type AuthConfig struct {
	Secret      string
	TokenTTL    time.Duration
	OTPTTL      time.Duration
	OTPLength   int
	MaxAttempts int
}

type Claims struct {
	UserID int64
	Role   string
}

type AuthService interface {
	RequestOTP(ctx context.Context, phone string) error
	VerifyOTP(ctx context.Context, phone, code, fullName, role string) (*models.User, string, error)
	IssueToken(user *models.User) (string, error)
	ParseToken(token string) (*Claims, error)
	Me(ctx context.Context, userID int64) (*models.User, error)
}

type authService struct {
	users  storage.IUserStorage
	otps   storage.IOTPStorage
	log    logger.ILogger
	cfg    AuthConfig
	sender OTPSender
	cost   int
}

func NewAuthService(stg storage.IStorage, log logger.ILogger, cfg AuthConfig, sender OTPSender) AuthService {
	if cfg.OTPLength <= 0 {
		cfg.OTPLength = 6
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = 5 * time.Minute
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 72 * time.Hour
	}
	return &authService{
		users:  stg.User(),
		otps:   stg.OTP(),
		log:    log,
		cfg:    cfg,
		sender: sender,
		cost:   bcrypt.DefaultCost,
	}
}

var phonePattern = regexp.MustCompile(`^\+[0-9]{10,15}$`)

// NormalizePhone strips separators and prefixes bare ten-digit numbers with +91.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for i, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return "", invalid("phone", "phone number may only contain digits")
		}
	}
	phone := b.String()
	if !strings.HasPrefix(phone, "+") {
		if len(phone) == 10 {
			phone = "+91" + phone
		} else {
			phone = "+" + phone
		}
	}
	if !phonePattern.MatchString(phone) {
		return "", invalid("phone", "enter a valid phone number")
	}
	return phone, nil
}

func (s *authService) RequestOTP(ctx context.Context, phone string) error {
	phone, err := NormalizePhone(phone)
	if err != nil {
		return err
	}

	code, err := generateCode(s.cfg.OTPLength)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.cost)
	if err != nil {
		return err
	}

	err = s.otps.Upsert(ctx, &models.OTP{
		Phone:     phone,
		CodeHash:  string(hash),
		ExpiresAt: timeNow().Add(s.cfg.OTPTTL),
	})
	if err != nil {
		return fmt.Errorf("store otp: %w", err)
	}

	if err := s.sender.SendOTP(ctx, phone, code); err != nil {
		s.log.Error("failed to deliver otp", logger.String("phone", phone), logger.Error(err))
		return fmt.Errorf("deliver otp: %w", err)
	}
	return nil
}

func (s *authService) VerifyOTP(ctx context.Context, phone, code, fullName, role string) (*models.User, string, error) {
	phone, err := NormalizePhone(phone)
	if err != nil {
		return nil, "", err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, "", invalid("code", "enter the code we sent you")
	}
	if role == "" {
		role = models.RoleManufacturer
	}
	if role != models.RoleManufacturer && role != models.RoleProvider {
		return nil, "", invalid("role", "role must be manufacturer or provider")
	}

	otp, err := s.otps.Get(ctx, phone)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, "", ErrUnauthorized
		}
		return nil, "", err
	}
	if timeNow().After(otp.ExpiresAt) {
		_ = s.otps.Delete(ctx, phone)
		return nil, "", ErrUnauthorized
	}
	// The attempt is counted before the code is compared, so concurrent
	// guesses cannot get past the limit.
	attempts, err := s.otps.IncrementAttempts(ctx, phone)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, "", ErrUnauthorized
		}
		return nil, "", err
	}
	if attempts > s.cfg.MaxAttempts {
		_ = s.otps.Delete(ctx, phone)
		return nil, "", ErrUnauthorized
	}
	if bcrypt.CompareHashAndPassword([]byte(otp.CodeHash), []byte(code)) != nil {
		return nil, "", ErrUnauthorized
	}
	if err := s.otps.Delete(ctx, phone); err != nil {
		s.log.Warning("failed to delete used otp", logger.Error(err))
	}

	user, err := s.users.GetOrCreateByPhone(ctx, phone, strings.TrimSpace(fullName), role)
	if err != nil {
		return nil, "", err
	}
	token, err := s.IssueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *authService) IssueToken(user *models.User) (string, error) {
	now := timeNow()
	claims := jwt.MapClaims{
		"sub":  strconv.FormatInt(user.ID, 10),
		"role": user.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(s.cfg.TokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.Secret))
}

func (s *authService) ParseToken(tokenStr string) (*Claims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	}, jwt.WithTimeFunc(timeNow))
	if err != nil || !token.Valid {
		return nil, ErrUnauthorized
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrUnauthorized
	}
	sub, _ := claims["sub"].(string)
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || id <= 0 {
		return nil, ErrUnauthorized
	}
	role, _ := claims["role"].(string)
	return &Claims{UserID: id, Role: role}, nil
}

func (s *authService) Me(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, translate(err)
	}
	return user, nil
}

func generateCode(length int) (string, error) {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}
