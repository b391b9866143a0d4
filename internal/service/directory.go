package service

import (
	"context"
	"encoding/hex"
	"log/slog"
	"sync"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/totegamma/lngateway/internal/domain"
	"github.com/totegamma/lngateway/internal/usecase"
)

var tracer = otel.Tracer("directory")

// BackendFactory builds a live backend handle from an invite descriptor.
type BackendFactory func(descriptor domain.InviteDescriptor) (usecase.LightningBackend, error)

// FederationDirectory holds one backend handle per registered federation.
// Reads are concurrent; registration excludes them for the duration of the
// insert. Handles are never mutated after registration, so the value
// returned under the read lock is a stable snapshot that later registrations
// cannot disturb.
type FederationDirectory struct {
	mu      sync.RWMutex
	clients map[string]usecase.LightningBackend
	factory BackendFactory
}

func NewFederationDirectory(factory BackendFactory) *FederationDirectory {
	return &FederationDirectory{
		clients: make(map[string]usecase.LightningBackend),
		factory: factory,
	}
}

// Resolve returns the backend handle of the user's primary federation.
func (d *FederationDirectory) Resolve(ctx context.Context, user domain.User) (string, usecase.LightningBackend, error) {
	ctx, span := tracer.Start(ctx, "Directory.Service.Resolve")
	defer span.End()

	federationID := user.PrimaryFederation()
	if !validFederationID(federationID) {
		err := errors.Wrapf(domain.ErrUnknownFederation, "invalid federation id for user %s", user.Name)
		span.RecordError(err)
		return "", nil, err
	}

	backend, err := d.Lookup(ctx, federationID)
	if err != nil {
		span.RecordError(err)
		return "", nil, err
	}

	return federationID, backend, nil
}

// Lookup returns the backend handle for a federation id.
func (d *FederationDirectory) Lookup(ctx context.Context, federationID string) (usecase.LightningBackend, error) {
	d.mu.RLock()
	backend, ok := d.clients[federationID]
	d.mu.RUnlock()

	if !ok {
		return nil, errors.Wrapf(domain.ErrUnknownFederation, "federation %s not registered", federationID)
	}
	return backend, nil
}

// Register adds a federation's backend handle. Registering an already-known
// federation is a no-op.
func (d *FederationDirectory) Register(ctx context.Context, descriptor domain.InviteDescriptor) error {
	ctx, span := tracer.Start(ctx, "Directory.Service.Register")
	defer span.End()

	if !validFederationID(descriptor.FederationID) {
		err := errors.Wrapf(domain.ErrUnknownFederation, "invalid federation id %s", descriptor.FederationID)
		span.RecordError(err)
		return err
	}

	d.mu.RLock()
	_, exists := d.clients[descriptor.FederationID]
	d.mu.RUnlock()
	if exists {
		return nil
	}

	backend, err := d.factory(descriptor)
	if err != nil {
		span.RecordError(errors.Wrap(err, "failed to build federation client"))
		return err
	}

	d.mu.Lock()
	if _, exists := d.clients[descriptor.FederationID]; !exists {
		d.clients[descriptor.FederationID] = backend
	}
	d.mu.Unlock()

	slog.InfoContext(
		ctx, "federation registered",
		slog.String("federation", descriptor.FederationID),
		slog.String("module", "directory"),
	)

	return nil
}

// List returns every registered backend handle in no particular order.
func (d *FederationDirectory) List(ctx context.Context) []usecase.LightningBackend {
	d.mu.RLock()
	defer d.mu.RUnlock()

	backends := make([]usecase.LightningBackend, 0, len(d.clients))
	for _, backend := range d.clients {
		backends = append(backends, backend)
	}
	return backends
}

// validFederationID checks the 32-byte hex form federation ids use.
func validFederationID(id string) bool {
	if len(id) != 64 {
		return false
	}
	_, err := hex.DecodeString(id)
	return err == nil
}
