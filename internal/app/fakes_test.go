package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyaschafer/PathRegister/internal/domain"
	"github.com/garyaschafer/PathRegister/internal/payment"
)

// memStore is an in-memory stand-in for the Postgres repositories. WithTx
// serializes whole transactions the way row locks do in Postgres, so
// concurrency tests observe the same one-winner behavior.
type memStore struct {
	txMu     sync.Mutex
	mu       sync.Mutex
	events   map[string]domain.Event
	regs     map[string]domain.Registration
	tickets  map[string]domain.Ticket // by ticket code
	payments map[string]domain.Payment
}

func newMemStore() *memStore {
	return &memStore{
		events:   make(map[string]domain.Event),
		regs:     make(map[string]domain.Registration),
		tickets:  make(map[string]domain.Ticket),
		payments: make(map[string]domain.Payment),
	}
}

func (m *memStore) putEvent(e domain.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[e.ID] = e
}

func (m *memStore) putRegistration(reg domain.Registration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regs[reg.ID] = reg
}

func (m *memStore) putPayment(p domain.Payment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[p.ID] = p
}

func (m *memStore) putTicket(t domain.Ticket) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickets[t.TicketCode] = t
}

func (m *memStore) event(id string) domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events[id]
}

func (m *memStore) registration(id string) domain.Registration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.regs[id]
}

func (m *memStore) ticketsFor(registrationID string) []domain.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Ticket
	for _, t := range m.tickets {
		if t.RegistrationID == registrationID {
			out = append(out, t)
		}
	}
	return out
}

func (m *memStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return fn(ctx)
}

func (m *memStore) GetEventForUpdate(_ context.Context, eventID string) (domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[eventID]
	if !ok {
		return domain.Event{}, domain.ErrEventNotFound
	}
	return e, nil
}

func (m *memStore) GetEvent(ctx context.Context, id string) (domain.Event, error) {
	return m.GetEventForUpdate(ctx, id)
}

func (m *memStore) CreateRegistration(_ context.Context, reg domain.Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regs[reg.ID] = reg
	return nil
}

func (m *memStore) CreateTickets(_ context.Context, tickets []domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range tickets {
		m.tickets[t.TicketCode] = t
	}
	return nil
}

func (m *memStore) CreatePayment(_ context.Context, p domain.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[p.ID] = p
	return nil
}

func (m *memStore) GetPaymentByIntentForUpdate(_ context.Context, intentID string) (domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.IntentID == intentID {
			return p, nil
		}
	}
	return domain.Payment{}, domain.ErrPaymentNotFound
}

func (m *memStore) GetPrimaryPayment(_ context.Context, registrationID string) (domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var found *domain.Payment
	for _, p := range m.payments {
		if p.RegistrationID != registrationID {
			continue
		}
		if found == nil || p.CreatedAt.After(found.CreatedAt) {
			cp := p
			found = &cp
		}
	}
	if found == nil {
		return domain.Payment{}, domain.ErrPaymentNotFound
	}
	return *found, nil
}

func (m *memStore) GetPrimaryPaymentForUpdate(ctx context.Context, registrationID string) (domain.Payment, error) {
	return m.GetPrimaryPayment(ctx, registrationID)
}

func (m *memStore) UpdatePaymentStatus(_ context.Context, paymentID string, status domain.PaymentStatus, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[paymentID]
	if !ok {
		return domain.ErrPaymentNotFound
	}
	p.Status = status
	p.UpdatedAt = at
	m.payments[paymentID] = p
	return nil
}

func (m *memStore) GetRegistration(_ context.Context, id string) (domain.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.regs[id]
	if !ok {
		return domain.Registration{}, domain.ErrRegistrationNotFound
	}
	return reg, nil
}

func (m *memStore) GetRegistrationForUpdate(ctx context.Context, id string) (domain.Registration, error) {
	return m.GetRegistration(ctx, id)
}

func (m *memStore) UpdateRegistrationState(_ context.Context, id string, status domain.RegistrationStatus, payState domain.PaymentState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.regs[id]
	if !ok {
		return domain.ErrRegistrationNotFound
	}
	reg.Status = status
	reg.PaymentStatus = payState
	m.regs[id] = reg
	return nil
}

func (m *memStore) CountTickets(_ context.Context, registrationID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, t := range m.tickets {
		if t.RegistrationID == registrationID {
			count++
		}
	}
	return count, nil
}

func (m *memStore) GetTicketByCode(_ context.Context, code string) (domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[code]
	if !ok {
		return domain.Ticket{}, domain.ErrTicketNotFound
	}
	return t, nil
}

func (m *memStore) CheckInTicket(_ context.Context, code string, at time.Time) (domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[code]
	if !ok {
		return domain.Ticket{}, domain.ErrTicketNotFound
	}
	if t.CheckedIn {
		return domain.Ticket{}, domain.ErrAlreadyCheckedIn
	}
	t.CheckedIn = true
	t.CheckedInAt = &at
	m.tickets[code] = t
	return t, nil
}

func (m *memStore) DueReminders(_ context.Context, from, to time.Time) ([]domain.ReminderCandidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []domain.ReminderCandidate
	for _, reg := range m.regs {
		if reg.Status != domain.RegistrationStatusConfirmed ||
			reg.PaymentStatus != domain.PaymentStateCompleted ||
			reg.ReminderSentAt != nil {
			continue
		}
		e, ok := m.events[reg.EventID]
		if !ok || e.StartsAt.Before(from) || !e.StartsAt.Before(to) {
			continue
		}
		due = append(due, domain.ReminderCandidate{
			RegistrationID: reg.ID,
			Name:           reg.Name,
			Email:          reg.Email,
			EventTitle:     e.Title,
			EventStartsAt:  e.StartsAt,
		})
	}
	return due, nil
}

func (m *memStore) ClaimReminder(_ context.Context, registrationID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.regs[registrationID]
	if !ok || reg.ReminderSentAt != nil {
		return false, nil
	}
	reg.ReminderSentAt = &at
	m.regs[registrationID] = reg
	return true, nil
}

func (m *memStore) CreateEvent(_ context.Context, event domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[event.ID] = event
	return nil
}

func (m *memStore) ListEvents(_ context.Context, publishedOnly bool) ([]domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Event
	for _, e := range m.events {
		if publishedOnly && e.Status != domain.EventStatusPublished {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *memStore) UpdateEvent(_ context.Context, event domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.events[event.ID]
	if !ok {
		return domain.ErrEventNotFound
	}
	remaining := cur.Remaining + (event.Capacity - cur.Capacity)
	if remaining < 0 {
		remaining = 0
	}
	event.Remaining = remaining
	event.Status = cur.Status
	event.CreatedAt = cur.CreatedAt
	m.events[event.ID] = event
	return nil
}

func (m *memStore) SetEventStatus(_ context.Context, id string, status domain.EventStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return domain.ErrEventNotFound
	}
	e.Status = status
	m.events[id] = e
	return nil
}

func (m *memStore) DeleteEvent(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[id]; !ok {
		return domain.ErrEventNotFound
	}
	delete(m.events, id)
	return nil
}

func (m *memStore) ListRegistrationsByEvent(_ context.Context, eventID string) ([]domain.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[eventID]; !ok {
		return nil, domain.ErrEventNotFound
	}
	var out []domain.Registration
	for _, reg := range m.regs {
		if reg.EventID == eventID {
			out = append(out, reg)
		}
	}
	return out, nil
}

func (m *memStore) Stats(_ context.Context) (domain.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := domain.Stats{TotalEvents: len(m.events), Revenue: decimal.Zero}
	for _, reg := range m.regs {
		if reg.Status != domain.RegistrationStatusCancelled {
			s.TotalRegistrations++
		}
		if reg.PaymentStatus == domain.PaymentStateCompleted {
			s.Revenue = s.Revenue.Add(reg.TotalAmount)
		}
	}
	return s, nil
}

// memLedger mutates the remaining counter of the memStore's events.
type memLedger struct {
	store *memStore
}

func (l *memLedger) TryReserve(_ context.Context, eventID string, seats int) (int, error) {
	if seats <= 0 {
		return 0, domain.ErrInvalidSeats
	}
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	e, ok := l.store.events[eventID]
	if !ok {
		return 0, domain.ErrEventNotFound
	}
	if e.Remaining < seats {
		return 0, domain.ErrCapacityExceeded
	}
	e.Remaining -= seats
	l.store.events[eventID] = e
	return e.Remaining, nil
}

func (l *memLedger) Release(_ context.Context, eventID string, seats int) error {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	e, ok := l.store.events[eventID]
	if !ok {
		return domain.ErrEventNotFound
	}
	e.Remaining += seats
	if e.Remaining > e.Capacity {
		e.Remaining = e.Capacity
	}
	l.store.events[eventID] = e
	return nil
}

// fakeProvider scripts payment provider responses and records calls.
type fakeProvider struct {
	mu            sync.Mutex
	createErr     error
	retrieved     map[string]payment.Intent
	refundErr     error
	intentCount   int
	retrieveCount int
	refundedIDs   []string
	createdAmount decimal.Decimal
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{retrieved: make(map[string]payment.Intent)}
}

func (f *fakeProvider) CreateIntent(_ context.Context, amount decimal.Decimal, _ string, _ map[string]string) (payment.Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return payment.Intent{}, f.createErr
	}
	f.intentCount++
	f.createdAmount = amount
	id := fmt.Sprintf("pi_%d", f.intentCount)
	return payment.Intent{ID: id, ClientSecret: id + "_secret", Status: payment.IntentStatusPending}, nil
}

func (f *fakeProvider) RetrieveIntent(_ context.Context, id string) (payment.Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retrieveCount++
	intent, ok := f.retrieved[id]
	if !ok {
		return payment.Intent{ID: id, Status: payment.IntentStatusPending}, nil
	}
	return intent, nil
}

func (f *fakeProvider) Refund(_ context.Context, intentID string, _ decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refundErr != nil {
		return f.refundErr
	}
	f.refundedIDs = append(f.refundedIDs, intentID)
	return nil
}

func (f *fakeProvider) refunds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.refundedIDs...)
}

// fakeSender records outbound mail and can fail selected recipients.
type fakeSender struct {
	mu     sync.Mutex
	sent   []sentMail
	failTo map[string]error
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

func newFakeSender() *fakeSender {
	return &fakeSender{failTo: make(map[string]error)}
}

func (f *fakeSender) Send(_ context.Context, to, subject, textBody, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failTo[to]; ok {
		return err
	}
	f.sent = append(f.sent, sentMail{To: to, Subject: subject, Body: textBody})
	return nil
}

func (f *fakeSender) messages() []sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMail(nil), f.sent...)
}
