package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	tele "gopkg.in/telebot.v3"

	"kilnbazaar/pkg/logger"
	"kilnbazaar/pkg/models"
	"kilnbazaar/service"
	"kilnbazaar/storage"
)

type Session struct {
	UserID int64
	State  string
	Panel  *service.Panel

	Inquiry service.InquiryDraft
	Rating  service.RatingDraft
}

type Bot struct {
	Bot *tele.Bot
	Log logger.ILogger
	Svc service.IServiceManager
	Stg storage.IStorage

	mu       sync.Mutex
	sessions map[int64]*Session
	chats    map[int64]*sync.Mutex
}

const (
	StateIdle           = "idle"
	StateInquiryMessage = "awaiting_inquiry_message"
	StateRatingComment  = "awaiting_rating_comment"
)

const handlerTimeout = 15 * time.Second

var messages = map[string]map[string]string{
	"en": {
		"welcome":         "👋 Welcome to KilnBazaar. Share your phone number to link this chat to your account.",
		"share_contact":   "📱 Share phone number",
		"own_contact":     "Please share your own phone number.",
		"linked":          "🎉 This chat is now linked to %s.",
		"not_linked":      "Send /start to link your account first.",
		"pick_kind":       "Which suppliers do you want to work with?",
		"menu":            "🧱 %s dashboard. Pick an action:",
		"provider_menu":   "🔔 You will get new requests for your listings here.",
		"no_rows":         "📭 Nothing here yet.",
		"more_rows":       "\n…and %d older, delete some to see them. ☑️ All includes them.",
		"pick_provider":   "Pick a supplier for your inquiry:",
		"no_providers":    "No suppliers listed yet.",
		"inquiry_message": "✍️ Write your inquiry (quantity, delivery place, dates):",
		"inquiry_sent":    "✅ Inquiry #%d sent.",
		"pick_order":      "Which order do you want to rate?",
		"no_orders":       "You have no orders to rate yet.",
		"pick_stars":      "How many stars?",
		"rating_comment":  "✍️ A short comment about the supplier:",
		"rating_sent":     "⭐ Thanks, your rating was saved.",
		"deleted":         "🗑 Deleted %d item(s).",
		"delete_failed":   "⚠️ Nothing was deleted. Your selection is kept, try again.",
		"busy":            "⏳ Still working on your previous request.",
		"error":           "⚠️ Something went wrong, please try again.",
	},
}

func msg(key string) string {
	return messages["en"][key]
}

// New creates the bot. With offline set no request reaches Telegram, which
// is what tests use.
func New(token string, offline bool, svc service.IServiceManager, stg storage.IStorage, log logger.ILogger) (*Bot, error) {
	return newBot(tele.Settings{
		Token:   token,
		Poller:  &tele.LongPoller{Timeout: 10 * time.Second},
		Offline: offline,
	}, svc, stg, log)
}

func newBot(pref tele.Settings, svc service.IServiceManager, stg storage.IStorage, log logger.ILogger) (*Bot, error) {
	pref.OnError = func(err error, c tele.Context) {
		log.Error("telegram handler failed", logger.Error(err))
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, err
	}
	bot := &Bot{
		Bot:      b,
		Log:      log,
		Svc:      svc,
		Stg:      stg,
		sessions: make(map[int64]*Session),
		chats:    make(map[int64]*sync.Mutex),
	}
	bot.registerHandlers()
	return bot, nil
}

func (b *Bot) Start() {
	b.Log.Info("🤖 telegram bot started")
	b.Bot.Start()
}

func (b *Bot) Stop() {
	b.Bot.Stop()
}

// Notify sends text to a chat. It satisfies service.Notifier.
func (b *Bot) Notify(_ context.Context, chatID int64, text string) error {
	_, err := b.Bot.Send(&tele.User{ID: chatID}, text)
	return err
}

func (b *Bot) session(teleID int64) *Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessions[teleID]
}

func (b *Bot) setSession(teleID int64, s *Session) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions[teleID] = s
}

// chatLock returns the mutex that orders updates from one sender.
func (b *Bot) chatLock(teleID int64) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.chats[teleID]
	if !ok {
		l = &sync.Mutex{}
		b.chats[teleID] = l
	}
	return l
}

// serializeChat runs one handler at a time per sender. telebot dispatches
// every update on its own goroutine, and handlers mutate the sender's Session.
func (b *Bot) serializeChat(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		sender := c.Sender()
		if sender == nil {
			return next(c)
		}
		l := b.chatLock(sender.ID)
		l.Lock()
		defer l.Unlock()
		return next(c)
	}
}

func (b *Bot) registerHandlers() {
	// Must come before Handle: telebot binds middleware when a handler is added.
	b.Bot.Use(b.serializeChat)

	b.Bot.Handle("/start", b.handleStart)
	b.Bot.Handle(tele.OnContact, b.handleContact)

	for _, k := range models.Kinds {
		b.Bot.Handle(kindLabel(k), b.handleKind(k))
	}
	b.Bot.Handle(btnRequests, b.handleRequests)
	b.Bot.Handle(btnNewInquiry, b.handleInquiryStart)
	b.Bot.Handle(btnRate, b.handleRateStart)
	b.Bot.Handle(btnSwitch, b.handleStart)

	b.Bot.Handle(&cbList, b.handleShowList)
	b.Bot.Handle(&cbToggle, b.handleToggle)
	b.Bot.Handle(&cbSelectAll, b.handleSelectAll)
	b.Bot.Handle(&cbDeleteSelected, b.handleDeleteSelected)
	b.Bot.Handle(&cbDeleteOne, b.handleDeleteOne)
	b.Bot.Handle(&cbInquiryProvider, b.handleInquiryProvider)
	b.Bot.Handle(&cbRateOrder, b.handleRateOrder)
	b.Bot.Handle(&cbStars, b.handleStars)

	b.Bot.Handle(tele.OnText, b.handleText)
}

func (b *Bot) handleStart(c tele.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	user, err := b.Stg.User().GetByTelegramID(ctx, c.Sender().ID)
	if errors.Is(err, storage.ErrNotFound) {
		menu := &tele.ReplyMarkup{ResizeKeyboard: true, OneTimeKeyboard: true}
		menu.Reply(menu.Row(menu.Contact(msg("share_contact"))))
		return c.Send(msg("welcome"), menu)
	}
	if err != nil {
		return b.fail(c, err)
	}

	b.setSession(c.Sender().ID, &Session{UserID: user.ID, State: StateIdle})
	return b.showStart(c, user)
}

func (b *Bot) handleContact(c tele.Context) error {
	contact := c.Message().Contact
	if contact == nil || contact.UserID != c.Sender().ID {
		return c.Send(msg("own_contact"))
	}
	phone, err := service.NormalizePhone(contact.PhoneNumber)
	if err != nil {
		return c.Send(msg("own_contact"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	name := fmt.Sprintf("%s %s", contact.FirstName, contact.LastName)
	user, err := b.Stg.User().GetOrCreateByPhone(ctx, phone, name, models.RoleManufacturer)
	if err != nil {
		return b.fail(c, err)
	}
	if err := b.Stg.User().SetTelegramID(ctx, user.ID, c.Sender().ID); err != nil {
		return b.fail(c, err)
	}

	b.setSession(c.Sender().ID, &Session{UserID: user.ID, State: StateIdle})
	if err := c.Send(fmt.Sprintf(msg("linked"), phone), tele.RemoveKeyboard); err != nil {
		return err
	}
	return b.showStart(c, user)
}

func (b *Bot) showStart(c tele.Context, user *models.User) error {
	if user.Role == models.RoleProvider {
		return c.Send(msg("provider_menu"))
	}
	menu := &tele.ReplyMarkup{ResizeKeyboard: true}
	var row []tele.Btn
	for _, k := range models.Kinds {
		row = append(row, menu.Text(kindLabel(k)))
	}
	menu.Reply(menu.Row(row...))
	return c.Send(msg("pick_kind"), menu)
}

func (b *Bot) handleKind(kind models.ProviderKind) tele.HandlerFunc {
	return func(c tele.Context) error {
		s := b.session(c.Sender().ID)
		if s == nil {
			return c.Send(msg("not_linked"))
		}
		s.Panel = service.NewPanel(b.Svc, b.Log, kind, s.UserID)
		s.State = StateIdle

		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()
		if err := s.Panel.Refresh(ctx); err != nil {
			return b.fail(c, err)
		}
		return b.showMenu(c, kind)
	}
}

func (b *Bot) showMenu(c tele.Context, kind models.ProviderKind) error {
	menu := &tele.ReplyMarkup{ResizeKeyboard: true}
	menu.Reply(
		menu.Row(menu.Text(btnRequests)),
		menu.Row(menu.Text(btnNewInquiry), menu.Text(btnRate)),
		menu.Row(menu.Text(btnSwitch)),
	)
	return c.Send(fmt.Sprintf(msg("menu"), kindTitle(kind)), menu)
}

// panel returns the session panel, telling the user what to do when there is
// none yet.
func (b *Bot) panel(c tele.Context) (*Session, bool) {
	s := b.session(c.Sender().ID)
	if s == nil {
		_ = c.Send(msg("not_linked"))
		return nil, false
	}
	if s.Panel == nil {
		_ = c.Send(msg("pick_kind"))
		return nil, false
	}
	return s, true
}

func (b *Bot) handleText(c tele.Context) error {
	s := b.session(c.Sender().ID)
	if s == nil || s.State == StateIdle || s.Panel == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	switch s.State {
	case StateInquiryMessage:
		s.Inquiry.Message = c.Text()
		inquiry, err := s.Panel.SubmitInquiry(ctx, s.Inquiry)
		if err != nil {
			return b.reply(c, err)
		}
		s.State = StateIdle
		return c.Send(fmt.Sprintf(msg("inquiry_sent"), inquiry.ID))
	case StateRatingComment:
		s.Rating.Comment = c.Text()
		if _, err := s.Panel.SubmitRating(ctx, s.Rating); err != nil {
			return b.reply(c, err)
		}
		s.State = StateIdle
		return c.Send(msg("rating_sent"))
	}
	return nil
}

// reply turns a service error into a chat message. Validation problems are
// shown to the user as they are; the session state is left alone so they can
// retry.
func (b *Bot) reply(c tele.Context, err error) error {
	var v *service.ValidationError
	switch {
	case errors.As(err, &v):
		return c.Send("⚠️ " + v.Message)
	case errors.Is(err, service.ErrNoOrdersToRate):
		return c.Send(msg("no_orders"))
	case errors.Is(err, service.ErrBusy):
		return c.Send(msg("busy"))
	}
	return b.fail(c, err)
}

func (b *Bot) fail(c tele.Context, err error) error {
	b.Log.Error("telegram request failed", logger.Int64("chat", c.Sender().ID), logger.Error(err))
	return c.Send(msg("error"))
}
