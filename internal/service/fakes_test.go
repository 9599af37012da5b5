package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/helpdeskhq/helpdesk/internal/auth"
	"github.com/helpdeskhq/helpdesk/internal/domain"
	"github.com/helpdeskhq/helpdesk/internal/events"
	"github.com/helpdeskhq/helpdesk/internal/repository"
)

func principal(id string, role domain.Role, roles ...domain.Role) *auth.Principal {
	if len(roles) == 0 {
		roles = []domain.Role{role}
	}
	return &auth.Principal{User: &domain.User{ID: id, Name: id, Roles: roles, Active: true}, Role: role}
}

func clientOf(id, companyID string) *auth.Principal {
	p := principal(id, domain.RoleClient)
	p.User.CompanyID = &companyID
	return p
}

type fakeUsers struct {
	byID map[string]*domain.User
	seq  int
}

func newFakeUsers(users ...*domain.User) *fakeUsers {
	f := &fakeUsers{byID: map[string]*domain.User{}}
	for _, u := range users {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, user *domain.User) error {
	f.seq++
	user.ID = fmt.Sprintf("user-%d", f.seq)
	copied := *user
	f.byID[user.ID] = &copied
	return nil
}

func (f *fakeUsers) Update(_ context.Context, user *domain.User) error {
	if _, ok := f.byID[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *user
	f.byID[user.ID] = &copied
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUsers) List(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	var out []domain.User
	for _, u := range f.byID {
		if filter.Role != nil && !u.HasRole(*filter.Role) {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeCompanies struct {
	byID map[string]*domain.Company
}

func newFakeCompanies(companies ...*domain.Company) *fakeCompanies {
	f := &fakeCompanies{byID: map[string]*domain.Company{}}
	for _, c := range companies {
		f.byID[c.ID] = c
	}
	return f
}

func (f *fakeCompanies) Create(_ context.Context, company *domain.Company) error {
	company.ID = fmt.Sprintf("company-%d", len(f.byID)+1)
	copied := *company
	f.byID[company.ID] = &copied
	return nil
}

func (f *fakeCompanies) Update(_ context.Context, company *domain.Company) error {
	copied := *company
	f.byID[company.ID] = &copied
	return nil
}

func (f *fakeCompanies) GetByID(_ context.Context, id string) (*domain.Company, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *c
	return &copied, nil
}

func (f *fakeCompanies) GetByTaxID(_ context.Context, taxID string) (*domain.Company, error) {
	for _, c := range f.byID {
		if c.TaxID == taxID {
			copied := *c
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeCompanies) List(context.Context, repository.CompanyFilter) ([]domain.Company, error) {
	out := make([]domain.Company, 0, len(f.byID))
	for _, c := range f.byID {
		out = append(out, *c)
	}
	return out, nil
}

type fakeCalls struct {
	byID    map[string]*domain.Call
	filters []repository.CallFilter
	listed  []domain.Call
}

func newFakeCalls(calls ...*domain.Call) *fakeCalls {
	f := &fakeCalls{byID: map[string]*domain.Call{}}
	for _, c := range calls {
		f.byID[c.ID] = c
	}
	return f
}

func (f *fakeCalls) Create(_ context.Context, call *domain.Call) error {
	call.ID = fmt.Sprintf("call-%d", len(f.byID)+1)
	copied := *call
	f.byID[call.ID] = &copied
	return nil
}

func (f *fakeCalls) Update(_ context.Context, call *domain.Call) error {
	copied := *call
	f.byID[call.ID] = &copied
	return nil
}

func (f *fakeCalls) GetByID(_ context.Context, id string) (*domain.Call, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *c
	return &copied, nil
}

func (f *fakeCalls) GetByProtocol(_ context.Context, protocol string) (*domain.Call, error) {
	for _, c := range f.byID {
		if c.Protocol == protocol {
			copied := *c
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeCalls) ListWithFilter(_ context.Context, filter repository.CallFilter) ([]domain.Call, error) {
	f.filters = append(f.filters, filter)
	if f.listed != nil {
		end := filter.Offset + filter.Limit
		if filter.Offset >= len(f.listed) {
			return nil, nil
		}
		if end > len(f.listed) {
			end = len(f.listed)
		}
		return f.listed[filter.Offset:end], nil
	}
	var out []domain.Call
	for _, c := range f.byID {
		if filter.ClientID != nil && c.ClientID != *filter.ClientID {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

type fakeMessages struct {
	msgs []domain.CallMessage
}

func (f *fakeMessages) Create(_ context.Context, msg *domain.CallMessage) error {
	msg.ID = fmt.Sprintf("msg-%d", len(f.msgs)+1)
	f.msgs = append(f.msgs, *msg)
	return nil
}

func (f *fakeMessages) ListByCall(_ context.Context, callID string) ([]domain.CallMessage, error) {
	var out []domain.CallMessage
	for _, m := range f.msgs {
		if m.CallID == callID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeHistory struct {
	entries []domain.CallHistory
}

func (f *fakeHistory) Create(_ context.Context, h *domain.CallHistory) error {
	f.entries = append(f.entries, *h)
	return nil
}

func (f *fakeHistory) ListByCall(_ context.Context, callID string, _, _ int) ([]domain.CallHistory, error) {
	var out []domain.CallHistory
	for _, h := range f.entries {
		if h.CallID == callID {
			out = append(out, h)
		}
	}
	return out, nil
}

type fakeResets struct {
	tokens map[string]*repository.PasswordResetToken
}

func newFakeResets() *fakeResets {
	return &fakeResets{tokens: map[string]*repository.PasswordResetToken{}}
}

func (f *fakeResets) Create(_ context.Context, token *repository.PasswordResetToken) error {
	token.ID = fmt.Sprintf("reset-%d", len(f.tokens)+1)
	copied := *token
	f.tokens[token.Token] = &copied
	return nil
}

func (f *fakeResets) GetByToken(_ context.Context, token string) (*repository.PasswordResetToken, error) {
	t, ok := f.tokens[token]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *t
	return &copied, nil
}

func (f *fakeResets) MarkUsed(_ context.Context, id string) error {
	for _, t := range f.tokens {
		if t.ID == id && t.UsedAt == nil {
			now := time.Now()
			t.UsedAt = &now
			return nil
		}
	}
	return pgx.ErrNoRows
}

type fakeChats struct {
	mu       sync.Mutex
	sessions map[string]*domain.ChatSession
	messages []domain.ChatMessage

	// failAccept makes AcceptSession fail without touching the session.
	failAccept error
}

func newFakeChats() *fakeChats {
	return &fakeChats{sessions: map[string]*domain.ChatSession{}}
}

func (f *fakeChats) CreateSession(_ context.Context, session *domain.ChatSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	session.ID = fmt.Sprintf("chat-%d", len(f.sessions)+1)
	copied := *session
	f.sessions[session.ID] = &copied
	return nil
}

func (f *fakeChats) GetSession(_ context.Context, id string) (*domain.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	copied := *s
	return &copied, nil
}

func (f *fakeChats) FindOpenSessionByClient(_ context.Context, clientID string) (*domain.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.ClientID == clientID && s.IsOpen() {
			copied := *s
			return &copied, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (f *fakeChats) AcceptSession(_ context.Context, id, operatorID string, at time.Time) (*domain.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAccept != nil {
		return nil, f.failAccept
	}
	s, ok := f.sessions[id]
	if !ok || s.Status != domain.ChatStatusWaiting {
		return nil, repository.ErrSessionNotWaiting
	}
	s.Status = domain.ChatStatusActive
	s.OperatorID = &operatorID
	s.AcceptedAt = &at
	copied := *s
	return &copied, nil
}

func (f *fakeChats) UpdateStatus(_ context.Context, id string, status domain.ChatStatus, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	s.Status = status
	if status == domain.ChatStatusClosed || status == domain.ChatStatusCancelled {
		s.ClosedAt = &at
	}
	return nil
}

func (f *fakeChats) ListSessions(_ context.Context, filter repository.ChatSessionFilter) ([]domain.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ChatSession
	for _, s := range f.sessions {
		if filter.ClientID != nil && s.ClientID != *filter.ClientID {
			continue
		}
		if filter.OperatorID != nil && (s.OperatorID == nil || *s.OperatorID != *filter.OperatorID) {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeChats) AppendMessage(_ context.Context, msg *domain.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg.ID = fmt.Sprintf("line-%d", len(f.messages)+1)
	f.messages = append(f.messages, *msg)
	return nil
}

func (f *fakeChats) ListMessages(_ context.Context, sessionID string, since time.Time, limit int) ([]domain.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ChatMessage
	for _, m := range f.messages {
		if m.SessionID == sessionID && m.SentAt.After(since) && len(out) < limit {
			out = append(out, m)
		}
	}
	return out, nil
}

// fakeQueue mirrors the sorted-set semantics: remove and pop succeed for exactly one caller.
type fakeQueue struct {
	mu      sync.Mutex
	entries []repository.QueueEntry
	failAdd error
}

func (q *fakeQueue) Enqueue(_ context.Context, sessionID string, at time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.failAdd != nil {
		return q.failAdd
	}
	q.entries = append(q.entries, repository.QueueEntry{SessionID: sessionID, Since: at})
	return nil
}

func (q *fakeQueue) Remove(_ context.Context, sessionID string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, e := range q.entries {
		if e.SessionID == sessionID {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (q *fakeQueue) PopOldest(context.Context) (string, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return "", false, nil
	}
	head := q.entries[0]
	q.entries = q.entries[1:]
	return head.SessionID, true, nil
}

func (q *fakeQueue) List(_ context.Context, limit int) ([]repository.QueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]repository.QueueEntry(nil), q.entries...), nil
}

func (q *fakeQueue) Position(_ context.Context, sessionID string) (int64, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, e := range q.entries {
		if e.SessionID == sessionID {
			return int64(i), true, nil
		}
	}
	return 0, false, nil
}

func (q *fakeQueue) Len(context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.entries)), nil
}

type fakeArticles struct {
	byID    map[string]*domain.Article
	filters []repository.ArticleFilter
}

func newFakeArticles(articles ...*domain.Article) *fakeArticles {
	f := &fakeArticles{byID: map[string]*domain.Article{}}
	for _, a := range articles {
		f.byID[a.ID] = a
	}
	return f
}

func (f *fakeArticles) Create(_ context.Context, a *domain.Article) error {
	a.ID = fmt.Sprintf("article-%d", len(f.byID)+1)
	copied := *a
	f.byID[a.ID] = &copied
	return nil
}

func (f *fakeArticles) Update(_ context.Context, a *domain.Article) error {
	copied := *a
	f.byID[a.ID] = &copied
	return nil
}

func (f *fakeArticles) Delete(_ context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return mongo.ErrNoDocuments
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeArticles) GetByID(_ context.Context, id string) (*domain.Article, error) {
	a, ok := f.byID[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	copied := *a
	return &copied, nil
}

func (f *fakeArticles) List(_ context.Context, filter repository.ArticleFilter) ([]domain.Article, error) {
	f.filters = append(f.filters, filter)
	var out []domain.Article
	for _, a := range f.byID {
		out = append(out, *a)
	}
	return out, nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, 0, len(d.events))
	for _, e := range d.events {
		out = append(out, e.Type)
	}
	return out
}
