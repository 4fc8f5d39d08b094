package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bookfairhq/bookfair-backend/internal/draft"
	"github.com/bookfairhq/bookfair-backend/internal/model"
	"github.com/bookfairhq/bookfair-backend/internal/notify"
	"github.com/bookfairhq/bookfair-backend/internal/payment"
	"github.com/bookfairhq/bookfair-backend/internal/reference"
	"github.com/bookfairhq/bookfair-backend/internal/repository"
)

// fakeStore is an in-memory SubmissionStore.
type fakeStore struct {
	mu      sync.Mutex
	subs    map[string]*model.Submission
	creates int
	gets    int

	// When set, Create signals createStarted and blocks until
	// createRelease closes. Used by the double-submit test.
	createStarted chan struct{}
	createRelease chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{subs: make(map[string]*model.Submission)}
}

func (s *fakeStore) Create(_ context.Context, kind model.Kind, payload model.Payload) (*model.Submission, error) {
	if s.createStarted != nil {
		s.createStarted <- struct{}{}
		<-s.createRelease
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	now := time.Now().UTC()
	sub := &model.Submission{
		Reference: reference.New(kind),
		Kind:      kind,
		Payload:   payload,
		Status:    model.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.subs[sub.Reference] = sub
	cp := *sub
	return &cp, nil
}

func (s *fakeStore) GetByReference(_ context.Context, ref string) (*model.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	sub, ok := s.subs[ref]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

func (s *fakeStore) UpdateStatus(_ context.Context, ref string, status model.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[ref]
	if !ok {
		return repository.ErrNotFound
	}
	sub.Status = status
	sub.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *fakeStore) SetAdminConfirmed(_ context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[ref]
	if !ok {
		return repository.ErrNotFound
	}
	sub.AdminConfirmed = true
	sub.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *fakeStore) SetPayBy(_ context.Context, ref string, payBy time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[ref]
	if !ok {
		return repository.ErrNotFound
	}
	sub.PayBy = &payBy
	return nil
}

func (s *fakeStore) UpdateFields(_ context.Context, ref string, partial model.Payload) (*model.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[ref]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if partial.PaymentMethod != "" {
		sub.Payload.PaymentMethod = partial.PaymentMethod
	}
	if partial.FirstName != "" {
		sub.Payload.FirstName = partial.FirstName
	}
	if partial.LastName != "" {
		sub.Payload.LastName = partial.LastName
	}
	sub.UpdatedAt = time.Now().UTC()
	cp := *sub
	return &cp, nil
}

func (s *fakeStore) MarkCheckedIn(_ context.Context, ref string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[ref]
	if !ok {
		return false, repository.ErrNotFound
	}
	if sub.CheckedInAt != nil {
		return false, nil
	}
	now := time.Now().UTC()
	sub.CheckedInAt = &now
	return true, nil
}

func (s *fakeStore) ListByKind(_ context.Context, kind model.Kind) ([]model.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Submission
	for _, sub := range s.subs {
		if sub.Kind == kind {
			out = append(out, *sub)
		}
	}
	return out, nil
}

// fakeCatalog prices carts from a fixed map.
type fakeCatalog struct {
	prices map[string]int64
}

func (c *fakeCatalog) ListActive(context.Context) ([]model.CatalogItem, error) {
	var items []model.CatalogItem
	for id, price := range c.prices {
		items = append(items, model.CatalogItem{ID: id, Title: id, UnitPrice: price, Active: true})
	}
	return items, nil
}

func (c *fakeCatalog) PricesFor(_ context.Context, ids []string) (map[string]int64, error) {
	out := make(map[string]int64, len(ids))
	for _, id := range ids {
		price, ok := c.prices[id]
		if !ok {
			return nil, repository.ErrNotFound
		}
		out[id] = price
	}
	return out, nil
}

// fakeGateway records session requests and returns canned results.
type fakeGateway struct {
	mu        sync.Mutex
	sessions  []payment.SessionRequest
	createErr error
	verify    *payment.VerifyResult
	verifyErr error
}

func (g *fakeGateway) CreateSession(_ context.Context, req payment.SessionRequest) (*payment.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.sessions = append(g.sessions, req)
	return &payment.Session{AuthorizationURL: "https://checkout.example.com/" + req.Reference}, nil
}

func (g *fakeGateway) Verify(context.Context, string) (*payment.VerifyResult, error) {
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	if g.verify == nil {
		return nil, errors.New("no verify result configured")
	}
	return g.verify, nil
}

// fakeNotifier records delivered events.
type fakeNotifier struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (n *fakeNotifier) Notify(_ context.Context, event notify.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.events = append(n.events, event)
	return nil
}

func (n *fakeNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.events))
	for i, e := range n.events {
		out[i] = e.Type
	}
	return out
}

// fakeDrafts is an in-memory DraftCache.
type fakeDrafts struct {
	mu     sync.Mutex
	drafts map[string]draft.Draft
}

func newFakeDrafts() *fakeDrafts {
	return &fakeDrafts{drafts: make(map[string]draft.Draft)}
}

func (d *fakeDrafts) Save(_ context.Context, token string, dr draft.Draft) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if token == "" {
		token = "tok-1"
	}
	d.drafts[token] = dr
	return token, nil
}

func (d *fakeDrafts) Load(_ context.Context, token string) (*draft.Draft, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	dr, ok := d.drafts[token]
	if !ok {
		return nil, draft.ErrNotFound
	}
	return &dr, nil
}

func (d *fakeDrafts) Clear(_ context.Context, token string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.drafts, token)
	return nil
}
