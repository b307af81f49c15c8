package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"

	"kilnbazaar/pkg/logger"
	"kilnbazaar/pkg/models"
	"kilnbazaar/service"
	"kilnbazaar/storage"
)

type stubDashboard struct {
	service.DashboardService
	snap *service.Snapshot
}

func (d stubDashboard) FetchAll(context.Context, models.ProviderKind, int64) (*service.Snapshot, error) {
	return d.snap, nil
}

type stubServices struct {
	service.IServiceManager
	dashboard stubDashboard
}

func (s stubServices) Dashboard() service.DashboardService { return s.dashboard }
func (s stubServices) Request() service.RequestService     { return nil }

func testPanel(t *testing.T) *service.Panel {
	t.Helper()
	pending, paid := "pending", "paid"
	inquiry := &models.Inquiry{ID: 4, ProviderName: "Sharma Coal", Status: &pending}
	order := &models.Order{ID: 8, OrderNumber: "ORD-1234ABCD", ProviderName: "Sharma Coal", PaymentStatus: &paid}
	snap := &service.Snapshot{
		Inquiries: []service.InquiryRow{{Inquiry: inquiry, View: inquiry.DerivedStatus()}},
		Orders:    []service.OrderRow{{Order: order, View: order.DerivedStatus(), Payment: order.DerivedPaymentStatus()}},
	}
	p := service.NewPanel(stubServices{dashboard: stubDashboard{snap: snap}}, logger.Nop(), models.KindCoal, 1)
	require.NoError(t, p.Refresh(context.Background()))
	return p
}

func TestCallbackArgs(t *testing.T) {
	list, id, err := callbackArgs("orders|42")
	require.NoError(t, err)
	assert.Equal(t, models.ListOrders, list)
	assert.Equal(t, int64(42), id)

	list, id, err = callbackArgs("ratings")
	require.NoError(t, err)
	assert.Equal(t, models.ListRatings, list)
	assert.Zero(t, id)

	_, _, err = callbackArgs("bricks|1")
	assert.Error(t, err)
	_, _, err = callbackArgs("orders|x")
	assert.Error(t, err)
}

func TestKindLabels(t *testing.T) {
	assert.Equal(t, "🪨 Coal", kindLabel(models.KindCoal))
	assert.Equal(t, "Transport", kindTitle(models.KindTransport))
	assert.Equal(t, "👷 Labour", kindLabel(models.KindLabour))
}

func TestRenderList(t *testing.T) {
	p := testPanel(t)

	text, menu := renderList(p, models.ListInquiries)
	assert.Contains(t, text, "#4 Sharma Coal: pending")
	require.Len(t, menu.InlineKeyboard, 2)
	assert.Equal(t, "☐ #4", menu.InlineKeyboard[0][0].Text)
	assert.Equal(t, "🗑 Delete selected (0)", menu.InlineKeyboard[1][1].Text)

	p.Toggle(models.ListInquiries, 4)
	_, menu = renderList(p, models.ListInquiries)
	assert.Equal(t, "☑️ #4", menu.InlineKeyboard[0][0].Text)
	assert.Equal(t, "🗑 Delete selected (1)", menu.InlineKeyboard[1][1].Text)

	// Payment "paid" is shown as stored; only "completed" needs provider evidence.
	text, _ = renderList(p, models.ListOrders)
	assert.Contains(t, text, "ORD-1234ABCD")
	assert.Contains(t, text, "payment paid")

	text, menu = renderList(p, models.ListRatings)
	assert.True(t, strings.HasSuffix(text, msg("no_rows")))
	assert.Empty(t, menu.InlineKeyboard)
}

func TestRenderListEscapesHTML(t *testing.T) {
	pending := "pending"
	inquiry := &models.Inquiry{ID: 4, ProviderName: "Sharma & Sons <Coal>", Status: &pending}
	quotation := &models.Quotation{ID: 6, ItemType: "slack <b>", Unit: "t & kg", ProviderName: "x"}
	snap := &service.Snapshot{
		Inquiries:  []service.InquiryRow{{Inquiry: inquiry, View: inquiry.DerivedStatus()}},
		Quotations: []service.QuotationRow{{Quotation: quotation, View: quotation.DerivedStatus()}},
	}
	p := service.NewPanel(stubServices{dashboard: stubDashboard{snap: snap}}, logger.Nop(), models.KindCoal, 1)
	require.NoError(t, p.Refresh(context.Background()))

	text, _ := renderList(p, models.ListInquiries)
	assert.Contains(t, text, "Sharma &amp; Sons &lt;Coal&gt;")
	assert.NotContains(t, text, "<Coal>")

	text, _ = renderList(p, models.ListQuotations)
	assert.Contains(t, text, "slack &lt;b&gt;")
	assert.Contains(t, text, "t &amp; kg")
}

func TestRenderListCapsRows(t *testing.T) {
	pending := "pending"
	long := strings.Repeat("Very Long Kiln Supplier Name ", 10)
	var rows []service.InquiryRow
	for i := 1; i <= 45; i++ {
		inquiry := &models.Inquiry{ID: int64(i), ProviderName: long, Status: &pending}
		rows = append(rows, service.InquiryRow{Inquiry: inquiry, View: inquiry.DerivedStatus()})
	}
	p := service.NewPanel(stubServices{dashboard: stubDashboard{snap: &service.Snapshot{Inquiries: rows}}}, logger.Nop(), models.KindCoal, 1)
	require.NoError(t, p.Refresh(context.Background()))

	text, menu := renderList(p, models.ListInquiries)
	assert.Less(t, utf8.RuneCountInString(text), 4096)
	assert.Contains(t, text, "25 older")
	assert.Len(t, menu.InlineKeyboard, maxListRows+1)

	// All still covers the rows that are not shown.
	p.SelectAll(models.ListInquiries)
	assert.Len(t, p.Selected(models.ListInquiries), 45)
}

// fakeTelegram stands in for the Bot API: every call succeeds with a message.
type fakeTelegram struct {
	mu    sync.Mutex
	calls []apiCall
}

type apiCall struct {
	method string
	params map[string]string
}

func (f *fakeTelegram) sent(method string) []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apiCall
	for _, c := range f.calls {
		if c.method == method {
			out = append(out, c)
		}
	}
	return out
}

func newTestBot(t *testing.T, svc service.IServiceManager) (*Bot, *fakeTelegram) {
	t.Helper()
	api := &fakeTelegram{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		params := map[string]string{}
		_ = json.NewDecoder(r.Body).Decode(&params)
		api.mu.Lock()
		api.calls = append(api.calls, apiCall{method: path.Base(r.URL.Path), params: params})
		api.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":7,"type":"private"}}}`)
	}))
	t.Cleanup(srv.Close)

	b, err := newBot(tele.Settings{Token: "123:test", URL: srv.URL, Offline: true}, svc, nil, logger.Nop())
	require.NoError(t, err)
	return b, api
}

const chatID = int64(7)

func callbackUpdate(data string) tele.Update {
	return tele.Update{Callback: &tele.Callback{
		ID:      "cb",
		Sender:  &tele.User{ID: chatID},
		Data:    data,
		Message: &tele.Message{ID: 1, Chat: &tele.Chat{ID: chatID}},
	}}
}

func textUpdate(text string) tele.Update {
	return tele.Update{Message: &tele.Message{ID: 2, Sender: &tele.User{ID: chatID}, Chat: &tele.Chat{ID: chatID}, Text: text}}
}

func TestSerializeChatRunsOneHandlerAtATime(t *testing.T) {
	b, _ := newTestBot(t, stubServices{})

	var mu sync.Mutex
	running, peak := 0, 0
	h := b.serializeChat(func(tele.Context) error {
		mu.Lock()
		running++
		if running > peak {
			peak = running
		}
		mu.Unlock()
		time.Sleep(time.Millisecond)
		mu.Lock()
		running--
		mu.Unlock()
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h(b.Bot.NewContext(textUpdate("hi")))
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, peak)
}

func TestConcurrentUpdatesShareOneSession(t *testing.T) {
	svc := stubServices{dashboard: stubDashboard{snap: &service.Snapshot{}}}
	b, api := newTestBot(t, svc)
	b.setSession(chatID, &Session{
		UserID: 1,
		State:  StateIdle,
		Panel:  testPanel(t),
		Rating: service.RatingDraft{ProviderID: 5, OrderNumber: "ORD-1234ABCD"},
	})

	updates := []struct {
		handler tele.HandlerFunc
		update  tele.Update
	}{
		{b.handleStars, callbackUpdate("4")},
		{b.handleInquiryProvider, callbackUpdate("9")},
		{b.handleKind(models.KindTransport), textUpdate(kindLabel(models.KindTransport))},
	}
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		for _, u := range updates {
			wg.Add(1)
			go func(h tele.HandlerFunc, upd tele.Update) {
				defer wg.Done()
				_ = b.serializeChat(h)(b.Bot.NewContext(upd))
			}(u.handler, u.update)
		}
	}
	wg.Wait()

	s := b.session(chatID)
	assert.Contains(t, []string{StateIdle, StateInquiryMessage, StateRatingComment}, s.State)
	assert.Equal(t, models.KindTransport, s.Panel.Kind)
	assert.NotEmpty(t, api.sent("sendMessage"))
}

func TestRateStartCapsOrders(t *testing.T) {
	var orders []service.OrderRow
	for i := 1; i <= 30; i++ {
		o := &models.Order{ID: int64(i), OrderNumber: fmt.Sprintf("ORD-%08d", i), ProviderID: 5, ProviderName: "Sharma Coal"}
		orders = append(orders, service.OrderRow{Order: o, View: o.DerivedStatus(), Payment: o.DerivedPaymentStatus()})
	}
	svc := stubServices{dashboard: stubDashboard{snap: &service.Snapshot{Orders: orders}}}
	b, api := newTestBot(t, svc)
	p := service.NewPanel(svc, logger.Nop(), models.KindCoal, 1)
	require.NoError(t, p.Refresh(context.Background()))
	b.setSession(chatID, &Session{UserID: 1, State: StateIdle, Panel: p})

	require.NoError(t, b.handleRateStart(b.Bot.NewContext(textUpdate(btnRate))))

	sent := api.sent("sendMessage")
	require.Len(t, sent, 1)
	var markup struct {
		InlineKeyboard [][]struct {
			Text string `json:"text"`
		} `json:"inline_keyboard"`
	}
	require.NoError(t, json.Unmarshal([]byte(sent[0].params["reply_markup"]), &markup))
	require.Len(t, markup.InlineKeyboard, maxRateButtons)
	assert.Equal(t, "ORD-00000001, Sharma Coal", markup.InlineKeyboard[0][0].Text)
}

type stubUsers struct {
	storage.IUserStorage
	users map[string]*models.User
}

func (s stubUsers) GetByPhone(_ context.Context, phone string) (*models.User, error) {
	if u, ok := s.users[phone]; ok {
		return u, nil
	}
	return nil, storage.ErrNotFound
}

type sentMessage struct {
	chat int64
	text string
}

type stubNotifier struct {
	sent []sentMessage
	err  error
}

func (n *stubNotifier) Notify(_ context.Context, chatID int64, text string) error {
	n.sent = append(n.sent, sentMessage{chatID, text})
	return n.err
}

type stubFallback struct{ phones []string }

func (f *stubFallback) SendOTP(_ context.Context, phone, _ string) error {
	f.phones = append(f.phones, phone)
	return nil
}

func TestOTPSender(t *testing.T) {
	chat := int64(77)
	users := stubUsers{users: map[string]*models.User{
		"+919000000001": {ID: 1, TelegramID: &chat},
		"+919000000002": {ID: 2},
	}}
	ctx := context.Background()

	t.Run("linked chat", func(t *testing.T) {
		n, fb := &stubNotifier{}, &stubFallback{}
		s := OTPSender{Notifier: n, Users: users, Fallback: fb, Log: logger.Nop()}
		require.NoError(t, s.SendOTP(ctx, "+919000000001", "123456"))
		require.Len(t, n.sent, 1)
		assert.Equal(t, chat, n.sent[0].chat)
		assert.Contains(t, n.sent[0].text, "123456")
		assert.Empty(t, fb.phones)
	})

	t.Run("no chat", func(t *testing.T) {
		n, fb := &stubNotifier{}, &stubFallback{}
		s := OTPSender{Notifier: n, Users: users, Fallback: fb, Log: logger.Nop()}
		require.NoError(t, s.SendOTP(ctx, "+919000000002", "123456"))
		require.NoError(t, s.SendOTP(ctx, "+919000000003", "123456"))
		assert.Empty(t, n.sent)
		assert.Equal(t, []string{"+919000000002", "+919000000003"}, fb.phones)
	})

	t.Run("telegram down", func(t *testing.T) {
		n, fb := &stubNotifier{err: errors.New("blocked by user")}, &stubFallback{}
		s := OTPSender{Notifier: n, Users: users, Fallback: fb, Log: logger.Nop()}
		require.NoError(t, s.SendOTP(ctx, "+919000000001", "123456"))
		assert.Equal(t, []string{"+919000000001"}, fb.phones)
	})
}

func TestNewOffline(t *testing.T) {
	b, err := New("123:offline", true, stubServices{}, nil, logger.Nop())
	require.NoError(t, err)
	assert.NotNil(t, b.Bot)
	assert.Nil(t, b.session(1))
}
