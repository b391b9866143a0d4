package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/totegamma/lngateway/internal/domain"
)

type mockUserRepo struct {
	mu    sync.Mutex
	users map[int]*domain.User
}

func newMockUserRepo(users ...domain.User) *mockUserRepo {
	repo := &mockUserRepo{users: make(map[int]*domain.User)}
	for i := range users {
		user := users[i]
		repo.users[user.ID] = &user
	}
	return repo
}

func (m *mockUserRepo) Get(ctx context.Context, id int) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return domain.User{}, domain.ErrUnknownUser
	}
	return *user, nil
}

func (m *mockUserRepo) GetByName(ctx context.Context, name string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Name == name {
			return *user, nil
		}
	}
	return domain.User{}, domain.ErrUnknownUser
}

func (m *mockUserRepo) ClaimNextTweak(ctx context.Context, userID int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return 0, domain.ErrUnknownUser
	}
	user.LastTweak++
	return user.LastTweak, nil
}

func (m *mockUserRepo) lastTweak(userID int) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[userID].LastTweak
}

type mockInvoiceRepo struct {
	mu        sync.Mutex
	seq       int
	invoices  map[int]domain.Invoice
	updateErr error
}

func newMockInvoiceRepo(invoices ...domain.Invoice) *mockInvoiceRepo {
	repo := &mockInvoiceRepo{invoices: make(map[int]domain.Invoice)}
	for _, invoice := range invoices {
		repo.seq++
		invoice.ID = repo.seq
		repo.invoices[invoice.ID] = invoice
	}
	return repo
}

func (m *mockInvoiceRepo) Create(ctx context.Context, invoice domain.Invoice) (domain.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	invoice.ID = m.seq
	m.invoices[invoice.ID] = invoice
	return invoice, nil
}

func (m *mockInvoiceRepo) GetByOperationID(ctx context.Context, opID string) (domain.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, invoice := range m.invoices {
		if invoice.OperationID == opID {
			return invoice, nil
		}
	}
	return domain.Invoice{}, domain.NotFoundError{Resource: "invoice"}
}

func (m *mockInvoiceRepo) ListByState(ctx context.Context, state domain.InvoiceState) ([]domain.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []domain.Invoice
	for id := 1; id <= m.seq; id++ {
		if invoice, ok := m.invoices[id]; ok && invoice.State == state {
			result = append(result, invoice)
		}
	}
	return result, nil
}

func (m *mockInvoiceRepo) UpdateState(ctx context.Context, id int, state domain.InvoiceState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	invoice, ok := m.invoices[id]
	if !ok {
		return domain.NotFoundError{Resource: "invoice"}
	}
	if !domain.CanTransition(invoice.State, state) {
		return domain.ErrInvalidTransition
	}
	invoice.State = state
	m.invoices[id] = invoice
	return nil
}

func (m *mockInvoiceRepo) stateOf(opID string) domain.InvoiceState {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, invoice := range m.invoices {
		if invoice.OperationID == opID {
			return invoice.State
		}
	}
	return domain.InvoiceState(-1)
}

func (m *mockInvoiceRepo) tweaks() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []int64
	for id := 1; id <= m.seq; id++ {
		if invoice, ok := m.invoices[id]; ok {
			result = append(result, invoice.Tweak)
		}
	}
	return result
}

type mockBackend struct {
	mu           sync.Mutex
	id           string
	nextOp       int
	duplicates   map[uint64]bool
	createErr    error
	subscribeErr error
	subscribes   map[string]int
	streams      map[string]chan domain.PaymentUpdate
}

func newMockBackend(id string) *mockBackend {
	return &mockBackend{
		id:         id,
		duplicates: make(map[uint64]bool),
		subscribes: make(map[string]int),
		streams:    make(map[string]chan domain.PaymentUpdate),
	}
}

func (b *mockBackend) FederationID() string { return b.id }

func (b *mockBackend) CreateTweakedInvoice(ctx context.Context, pubkey string, tweak uint64, amountMsat int64, description string) (string, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.createErr != nil {
		return "", "", b.createErr
	}
	if b.duplicates[tweak] {
		return "", "", domain.ErrDuplicateTweak
	}
	b.nextOp++
	opID := fmt.Sprintf("%s-op-%d", b.id, b.nextOp)
	return opID, "lnbc1" + opID, nil
}

func (b *mockBackend) SubscribeReceive(ctx context.Context, opID string) (<-chan domain.PaymentUpdate, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subscribeErr != nil {
		return nil, b.subscribeErr
	}
	b.subscribes[opID]++
	stream, ok := b.streams[opID]
	if !ok {
		stream = make(chan domain.PaymentUpdate, 8)
		b.streams[opID] = stream
	}
	return stream, nil
}

func (b *mockBackend) Info(ctx context.Context) (domain.FederationInfo, error) {
	return domain.FederationInfo{FederationID: b.id}, nil
}

func (b *mockBackend) push(opID string, update domain.PaymentUpdate) {
	b.mu.Lock()
	stream, ok := b.streams[opID]
	if !ok {
		stream = make(chan domain.PaymentUpdate, 8)
		b.streams[opID] = stream
	}
	b.mu.Unlock()
	stream <- update
}

func (b *mockBackend) finish(opID string) {
	b.mu.Lock()
	stream, ok := b.streams[opID]
	delete(b.streams, opID)
	b.mu.Unlock()
	if ok {
		close(stream)
	}
}

func (b *mockBackend) subscribeCount(opID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.subscribes[opID]
}

type mockDirectory struct {
	mu       sync.Mutex
	backends map[string]LightningBackend
}

func newMockDirectory(backends ...*mockBackend) *mockDirectory {
	directory := &mockDirectory{backends: make(map[string]LightningBackend)}
	for _, backend := range backends {
		directory.backends[backend.id] = backend
	}
	return directory
}

func (d *mockDirectory) Resolve(ctx context.Context, user domain.User) (string, LightningBackend, error) {
	federationID := user.PrimaryFederation()
	backend, err := d.Lookup(ctx, federationID)
	if err != nil {
		return "", nil, err
	}
	return federationID, backend, nil
}

func (d *mockDirectory) Lookup(ctx context.Context, federationID string) (LightningBackend, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	backend, ok := d.backends[federationID]
	if !ok {
		return nil, domain.ErrUnknownFederation
	}
	return backend, nil
}

func (d *mockDirectory) Register(ctx context.Context, descriptor domain.InviteDescriptor) error {
	return nil
}

func (d *mockDirectory) List(ctx context.Context) []LightningBackend {
	d.mu.Lock()
	defer d.mu.Unlock()
	var backends []LightningBackend
	for _, backend := range d.backends {
		backends = append(backends, backend)
	}
	return backends
}

type mockNotifier struct {
	mu       sync.Mutex
	err      error
	notified []domain.Invoice
}

func (n *mockNotifier) Notify(ctx context.Context, invoice domain.Invoice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.notified = append(n.notified, invoice)
	return nil
}

func (n *mockNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.notified)
}
