package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"kilnbazaar/pkg/models"
	"kilnbazaar/storage"
)

var errStoreDown = errors.New("store down")

// fakeStore keeps everything in maps and counts the calls tests care about.
type fakeStore struct {
	mu     sync.Mutex
	nextID int64

	users     map[int64]*models.User
	otps      map[string]*models.OTP
	providers map[int64]*models.Provider

	inquiries  map[int64]*models.Inquiry
	quotations map[int64]*models.Quotation
	orders     map[int64]*models.Order
	ratings    map[int64]*models.Rating

	creates    map[models.ListName]int
	fetches    map[models.ListName]int
	deleteMany int
	deleteOne  int

	failFetch      map[models.ListName]error
	failDeleteMany error
	failCreate     error

	// afterOTPGet runs between reading an OTP and returning it, standing in
	// for verifications that land in that gap.
	afterOTPGet func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:      map[int64]*models.User{},
		otps:       map[string]*models.OTP{},
		providers:  map[int64]*models.Provider{},
		inquiries:  map[int64]*models.Inquiry{},
		quotations: map[int64]*models.Quotation{},
		orders:     map[int64]*models.Order{},
		ratings:    map[int64]*models.Rating{},
		creates:    map[models.ListName]int{},
		fetches:    map[models.ListName]int{},
		failFetch:  map[models.ListName]error{},
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) fetchCount(l models.ListName) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches[l]
}

func (f *fakeStore) addProvider(userID int64, name string, teleID *int64) *models.Provider {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &models.Provider{ID: f.id(), UserID: userID, Kind: models.KindCoal, BusinessName: name, TelegramID: teleID}
	f.providers[p.ID] = p
	return p
}

func (f *fakeStore) addOrder(manufacturerID, providerID int64, number string) *models.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	o := &models.Order{ID: f.id(), OrderNumber: number, ManufacturerID: manufacturerID, ProviderID: providerID}
	f.orders[o.ID] = o
	return o
}

func (f *fakeStore) addInquiry(manufacturerID, providerID int64) *models.Inquiry {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := &models.Inquiry{ID: f.id(), ManufacturerID: manufacturerID, ProviderID: providerID, Message: "hello"}
	f.inquiries[i.ID] = i
	return i
}

func (f *fakeStore) User() storage.IUserStorage                              { return fakeUsers{f} }
func (f *fakeStore) OTP() storage.IOTPStorage                                { return fakeOTPs{f} }
func (f *fakeStore) Provider(models.ProviderKind) storage.IProviderStorage   { return fakeProviders{f} }
func (f *fakeStore) Inquiry(models.ProviderKind) storage.IInquiryStorage     { return fakeInquiries{f} }
func (f *fakeStore) Quotation(models.ProviderKind) storage.IQuotationStorage { return fakeQuotations{f} }
func (f *fakeStore) Order(models.ProviderKind) storage.IOrderStorage         { return fakeOrders{f} }
func (f *fakeStore) Rating(models.ProviderKind) storage.IRatingStorage       { return fakeRatings{f} }

func (f *fakeStore) Close() {}

func (f *fakeStore) GetPool() *pgxpool.Pool { return nil }

// deleteFrom removes the ids of m owned by manufacturerID.
func deleteFrom[T any](f *fakeStore, m map[int64]T, owner func(T) int64, manufacturerID int64, ids []int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteMany++
	if f.failDeleteMany != nil {
		return 0, f.failDeleteMany
	}
	var n int64
	for _, id := range ids {
		if v, ok := m[id]; ok && owner(v) == manufacturerID {
			delete(m, id)
			n++
		}
	}
	return n, nil
}

func deleteOne[T any](f *fakeStore, m map[int64]T, owner func(T) int64, manufacturerID, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteOne++
	v, ok := m[id]
	if !ok || owner(v) != manufacturerID {
		return storage.ErrNotFound
	}
	delete(m, id)
	return nil
}

func listWhere[T any](f *fakeStore, l models.ListName, m map[int64]T, keep func(T) bool) ([]T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches[l]++
	if err := f.failFetch[l]; err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	var out []T
	for _, id := range ids {
		if keep(m[id]) {
			out = append(out, m[id])
		}
	}
	return out, nil
}

func (f *fakeStore) created(l models.ListName) error {
	f.creates[l]++
	return f.failCreate
}

type fakeUsers struct{ f *fakeStore }

func (s fakeUsers) GetOrCreateByPhone(_ context.Context, phone, fullName, role string) (*models.User, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	for _, u := range s.f.users {
		if u.Phone == phone {
			return u, nil
		}
	}
	u := &models.User{ID: s.f.id(), Phone: phone, FullName: fullName, Role: role}
	s.f.users[u.ID] = u
	return u, nil
}

func (s fakeUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	if u, ok := s.f.users[id]; ok {
		return u, nil
	}
	return nil, storage.ErrNotFound
}

func (s fakeUsers) GetByPhone(_ context.Context, phone string) (*models.User, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	for _, u := range s.f.users {
		if u.Phone == phone {
			return u, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s fakeUsers) GetByTelegramID(_ context.Context, teleID int64) (*models.User, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	for _, u := range s.f.users {
		if u.TelegramID != nil && *u.TelegramID == teleID {
			return u, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s fakeUsers) UpdateProfile(_ context.Context, id int64, fullName string, companyName *string) error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	u, ok := s.f.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.FullName, u.CompanyName = fullName, companyName
	return nil
}

func (s fakeUsers) SetTelegramID(_ context.Context, id int64, teleID int64) error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	u, ok := s.f.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.TelegramID = &teleID
	return nil
}

type fakeOTPs struct{ f *fakeStore }

func (s fakeOTPs) Upsert(_ context.Context, otp *models.OTP) error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	cp := *otp
	s.f.otps[otp.Phone] = &cp
	return nil
}

func (s fakeOTPs) Get(_ context.Context, phone string) (*models.OTP, error) {
	s.f.mu.Lock()
	o, ok := s.f.otps[phone]
	var cp models.OTP
	if ok {
		cp = *o
	}
	hook := s.f.afterOTPGet
	s.f.mu.Unlock()

	if !ok {
		return nil, storage.ErrNotFound
	}
	if hook != nil {
		hook()
	}
	return &cp, nil
}

func (s fakeOTPs) IncrementAttempts(_ context.Context, phone string) (int, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	o, ok := s.f.otps[phone]
	if !ok {
		return 0, storage.ErrNotFound
	}
	o.Attempts++
	return o.Attempts, nil
}

func (s fakeOTPs) Delete(_ context.Context, phone string) error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	delete(s.f.otps, phone)
	return nil
}

func (s fakeOTPs) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	var n int64
	for phone, o := range s.f.otps {
		if o.ExpiresAt.Before(now) {
			delete(s.f.otps, phone)
			n++
		}
	}
	return n, nil
}

type fakeProviders struct{ f *fakeStore }

func (s fakeProviders) Create(_ context.Context, p *models.Provider) (*models.Provider, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	cp := *p
	cp.ID = s.f.id()
	s.f.providers[cp.ID] = &cp
	return &cp, nil
}

func (s fakeProviders) Update(_ context.Context, p *models.Provider) (*models.Provider, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	if _, ok := s.f.providers[p.ID]; !ok {
		return nil, storage.ErrNotFound
	}
	cp := *p
	s.f.providers[p.ID] = &cp
	return &cp, nil
}

func (s fakeProviders) GetByID(_ context.Context, id int64) (*models.Provider, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	if p, ok := s.f.providers[id]; ok {
		return p, nil
	}
	return nil, storage.ErrNotFound
}

func (s fakeProviders) GetByUserID(_ context.Context, userID int64) ([]*models.Provider, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	var out []*models.Provider
	for _, p := range s.f.providers {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s fakeProviders) List(_ context.Context, filter models.ProviderFilter) ([]*models.Provider, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	var out []*models.Provider
	for _, p := range s.f.providers {
		if filter.VerifiedOnly && !p.IsVerified {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

type fakeInquiries struct{ f *fakeStore }

func inquiryOwner(i *models.Inquiry) int64 { return i.ManufacturerID }

func (s fakeInquiries) Create(_ context.Context, i *models.Inquiry) (*models.Inquiry, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	if err := s.f.created(models.ListInquiries); err != nil {
		return nil, err
	}
	cp := *i
	cp.ID = s.f.id()
	s.f.inquiries[cp.ID] = &cp
	return &cp, nil
}

func (s fakeInquiries) GetByID(_ context.Context, id int64) (*models.Inquiry, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	if i, ok := s.f.inquiries[id]; ok {
		return i, nil
	}
	return nil, storage.ErrNotFound
}

func (s fakeInquiries) GetByManufacturer(_ context.Context, manufacturerID int64) ([]*models.Inquiry, error) {
	return listWhere(s.f, models.ListInquiries, s.f.inquiries, func(i *models.Inquiry) bool { return i.ManufacturerID == manufacturerID })
}

func (s fakeInquiries) GetByProvider(_ context.Context, providerID int64) ([]*models.Inquiry, error) {
	return listWhere(s.f, models.ListInquiries, s.f.inquiries, func(i *models.Inquiry) bool { return i.ProviderID == providerID })
}

func (s fakeInquiries) Respond(_ context.Context, id int64, response, st string, at time.Time) error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	i, ok := s.f.inquiries[id]
	if !ok {
		return storage.ErrNotFound
	}
	i.ProviderResponse, i.Status, i.RespondedAt = &response, &st, &at
	return nil
}

func (s fakeInquiries) Delete(_ context.Context, manufacturerID, id int64) error {
	return deleteOne(s.f, s.f.inquiries, inquiryOwner, manufacturerID, id)
}

func (s fakeInquiries) DeleteMany(_ context.Context, manufacturerID int64, ids []int64) (int64, error) {
	return deleteFrom(s.f, s.f.inquiries, inquiryOwner, manufacturerID, ids)
}

type fakeQuotations struct{ f *fakeStore }

func quotationOwner(q *models.Quotation) int64 { return q.ManufacturerID }

func (s fakeQuotations) Create(_ context.Context, q *models.Quotation) (*models.Quotation, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	if err := s.f.created(models.ListQuotations); err != nil {
		return nil, err
	}
	cp := *q
	cp.ID = s.f.id()
	s.f.quotations[cp.ID] = &cp
	return &cp, nil
}

func (s fakeQuotations) GetByID(_ context.Context, id int64) (*models.Quotation, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	if q, ok := s.f.quotations[id]; ok {
		return q, nil
	}
	return nil, storage.ErrNotFound
}

func (s fakeQuotations) GetByManufacturer(_ context.Context, manufacturerID int64) ([]*models.Quotation, error) {
	return listWhere(s.f, models.ListQuotations, s.f.quotations, func(q *models.Quotation) bool { return q.ManufacturerID == manufacturerID })
}

func (s fakeQuotations) GetByProvider(_ context.Context, providerID int64) ([]*models.Quotation, error) {
	return listWhere(s.f, models.ListQuotations, s.f.quotations, func(q *models.Quotation) bool { return q.ProviderID == providerID })
}

func (s fakeQuotations) Respond(_ context.Context, id int64, r models.QuotationResponse) error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	q, ok := s.f.quotations[id]
	if !ok {
		return storage.ErrNotFound
	}
	at := r.RespondedAt
	q.DeliveryTimeline, q.PaymentTerms, q.AdditionalNotes, q.ValidityPeriod = r.DeliveryTimeline, r.PaymentTerms, r.AdditionalNotes, r.ValidityPeriod
	q.ProviderResponseDate, q.RespondedAt = &at, &at
	return nil
}

func (s fakeQuotations) Delete(_ context.Context, manufacturerID, id int64) error {
	return deleteOne(s.f, s.f.quotations, quotationOwner, manufacturerID, id)
}

func (s fakeQuotations) DeleteMany(_ context.Context, manufacturerID int64, ids []int64) (int64, error) {
	return deleteFrom(s.f, s.f.quotations, quotationOwner, manufacturerID, ids)
}

type fakeOrders struct{ f *fakeStore }

func orderOwner(o *models.Order) int64 { return o.ManufacturerID }

func (s fakeOrders) Create(_ context.Context, o *models.Order) (*models.Order, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	if err := s.f.created(models.ListOrders); err != nil {
		return nil, err
	}
	cp := *o
	cp.ID = s.f.id()
	s.f.orders[cp.ID] = &cp
	return &cp, nil
}

func (s fakeOrders) GetByID(_ context.Context, id int64) (*models.Order, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	if o, ok := s.f.orders[id]; ok {
		return o, nil
	}
	return nil, storage.ErrNotFound
}

func (s fakeOrders) GetByManufacturer(_ context.Context, manufacturerID int64) ([]*models.Order, error) {
	return listWhere(s.f, models.ListOrders, s.f.orders, func(o *models.Order) bool { return o.ManufacturerID == manufacturerID })
}

func (s fakeOrders) GetByProvider(_ context.Context, providerID int64) ([]*models.Order, error) {
	return listWhere(s.f, models.ListOrders, s.f.orders, func(o *models.Order) bool { return o.ProviderID == providerID })
}

func (s fakeOrders) Confirm(_ context.Context, id int64, c models.OrderConfirmation) error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	o, ok := s.f.orders[id]
	if !ok {
		return storage.ErrNotFound
	}
	yes, at, st := true, c.ConfirmedAt, c.OrderStatus
	o.ConfirmedByProvider, o.ProviderConfirmationDate, o.OrderStatus = &yes, &at, &st
	o.ProviderOrderNumber, o.TrackingNumber = c.ProviderOrderNumber, c.TrackingNumber
	return nil
}

func (s fakeOrders) MarkDelivered(_ context.Context, id int64, at time.Time) error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	o, ok := s.f.orders[id]
	if !ok {
		return storage.ErrNotFound
	}
	st := "delivered"
	o.ActualDeliveryDate, o.OrderStatus = &at, &st
	return nil
}

func (s fakeOrders) SetPaymentStatus(_ context.Context, manufacturerID, id int64, st string) error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	o, ok := s.f.orders[id]
	if !ok || o.ManufacturerID != manufacturerID {
		return storage.ErrNotFound
	}
	o.PaymentStatus = &st
	return nil
}

func (s fakeOrders) Delete(_ context.Context, manufacturerID, id int64) error {
	return deleteOne(s.f, s.f.orders, orderOwner, manufacturerID, id)
}

func (s fakeOrders) DeleteMany(_ context.Context, manufacturerID int64, ids []int64) (int64, error) {
	return deleteFrom(s.f, s.f.orders, orderOwner, manufacturerID, ids)
}

type fakeRatings struct{ f *fakeStore }

func ratingOwner(r *models.Rating) int64 { return r.ManufacturerID }

func (s fakeRatings) Create(_ context.Context, r *models.Rating) (*models.Rating, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	if err := s.f.created(models.ListRatings); err != nil {
		return nil, err
	}
	cp := *r
	cp.ID = s.f.id()
	s.f.ratings[cp.ID] = &cp
	return &cp, nil
}

func (s fakeRatings) GetByManufacturer(_ context.Context, manufacturerID int64) ([]*models.Rating, error) {
	return listWhere(s.f, models.ListRatings, s.f.ratings, func(r *models.Rating) bool { return r.ManufacturerID == manufacturerID })
}

func (s fakeRatings) GetByProvider(_ context.Context, providerID int64) ([]*models.Rating, error) {
	return listWhere(s.f, models.ListRatings, s.f.ratings, func(r *models.Rating) bool { return r.ProviderID == providerID })
}

func (s fakeRatings) Delete(_ context.Context, manufacturerID, id int64) error {
	return deleteOne(s.f, s.f.ratings, ratingOwner, manufacturerID, id)
}

func (s fakeRatings) DeleteMany(_ context.Context, manufacturerID int64, ids []int64) (int64, error) {
	return deleteFrom(s.f, s.f.ratings, ratingOwner, manufacturerID, ids)
}

// recordingNotifier remembers every message sent.
type recordingNotifier struct {
	mu   sync.Mutex
	sent map[int64][]string
}

func (n *recordingNotifier) Notify(_ context.Context, chatID int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sent == nil {
		n.sent = map[int64][]string{}
	}
	n.sent[chatID] = append(n.sent[chatID], text)
	return nil
}

type capturingSender struct {
	codes map[string]string
}

func (s *capturingSender) SendOTP(_ context.Context, phone, code string) error {
	if s.codes == nil {
		s.codes = map[string]string{}
	}
	s.codes[phone] = code
	return nil
}
