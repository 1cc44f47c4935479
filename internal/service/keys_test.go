package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/atinyakov/vaultkeeper/internal/keys"
	"github.com/atinyakov/vaultkeeper/internal/tenant"
)

type memKeys struct {
	blobs map[string][]byte
	puts  int
}

func (m *memKeys) GetKey(_ context.Context, owner tenant.ID) ([]byte, error) {
	return m.blobs[string(owner)], nil
}

func (m *memKeys) PutKey(_ context.Context, owner tenant.ID, blob []byte) ([]byte, error) {
	m.puts++
	if b, ok := m.blobs[string(owner)]; ok {
		return b, nil
	}
	m.blobs[string(owner)] = blob
	return blob, nil
}

type mockDeriver struct {
	DeriveKeyFunc func(ctx context.Context, derivationContext, input, transportKey []byte) ([]byte, error)
	calls         int
}

func (m *mockDeriver) DeriveKey(ctx context.Context, derivationContext, input, transportKey []byte) ([]byte, error) {
	m.calls++
	return m.DeriveKeyFunc(ctx, derivationContext, input, transportKey)
}

type mockRegistrar struct {
	err error
}

func (m mockRegistrar) RegisterOwner(context.Context, tenant.ID) error { return m.err }

type nopMaintainer struct{}

func (nopMaintainer) Maintain(context.Context) {}

func validRequest(scope keys.Scope) DeriveRequest {
	return DeriveRequest{
		Input:        []byte("input"),
		Scope:        scope,
		TransportKey: make([]byte, keys.TransportKeyLen),
	}
}

func TestDeriveKey_DerivesOnceThenServesStored(t *testing.T) {
	repo := &memKeys{blobs: map[string][]byte{}}
	d := &mockDeriver{
		DeriveKeyFunc: func(_ context.Context, dctx, _, _ []byte) ([]byte, error) {
			if !bytes.Equal(dctx, (keys.Scope{Kind: keys.ScopeInstance}).Context()) {
				t.Errorf("unexpected derivation context %x", dctx)
			}
			return []byte("blob"), nil
		},
	}
	svc := NewKeyService(repo, d, mockRegistrar{}, nopMaintainer{}, zap.NewNop())
	caller := tenant.ID("alice")

	for i := 0; i < 2; i++ {
		blob, err := svc.DeriveKey(context.Background(), caller, validRequest(keys.Scope{Kind: keys.ScopeInstance}))
		if err != nil {
			t.Fatalf("DeriveKey error = %v", err)
		}
		if string(blob) != "blob" {
			t.Errorf("DeriveKey = %q; want blob", blob)
		}
	}
	if d.calls != 1 {
		t.Errorf("deriver called %d times; want 1", d.calls)
	}

	blob, err := svc.GetKey(context.Background(), caller)
	if err != nil || string(blob) != "blob" {
		t.Errorf("GetKey = %q, %v", blob, err)
	}
}

func TestDeriveKey_DerivationError(t *testing.T) {
	repo := &memKeys{blobs: map[string][]byte{}}
	d := &mockDeriver{
		DeriveKeyFunc: func(context.Context, []byte, []byte, []byte) ([]byte, error) {
			return nil, errors.New("threshold not reached")
		},
	}
	svc := NewKeyService(repo, d, mockRegistrar{}, nopMaintainer{}, zap.NewNop())

	_, err := svc.DeriveKey(context.Background(), tenant.ID("alice"), validRequest(keys.Scope{Kind: keys.ScopeInstance}))
	var derr *DerivationError
	if !errors.As(err, &derr) {
		t.Fatalf("error = %v; want *DerivationError", err)
	}
	if derr.Description != "threshold not reached" {
		t.Errorf("Description = %q", derr.Description)
	}
	if repo.puts != 0 {
		t.Errorf("PutKey called %d times after failure; want 0", repo.puts)
	}
}

func TestDeriveKey_Validation(t *testing.T) {
	repo := &memKeys{blobs: map[string][]byte{}}
	d := &mockDeriver{}
	svc := NewKeyService(repo, d, mockRegistrar{}, nopMaintainer{}, zap.NewNop())

	req := validRequest(keys.Scope{Kind: keys.ScopeInstance})
	req.TransportKey = []byte("short")
	_, err := svc.DeriveKey(context.Background(), tenant.ID("alice"), req)
	if !errors.Is(err, keys.ErrInvalidTransportKey) {
		t.Errorf("error = %v; want ErrInvalidTransportKey", err)
	}

	req = validRequest(keys.Scope{Kind: keys.ScopeInstance})
	req.Input = make([]byte, keys.MaxInputLen+1)
	_, err = svc.DeriveKey(context.Background(), tenant.ID("alice"), req)
	if !errors.Is(err, keys.ErrInputTooLarge) {
		t.Errorf("error = %v; want ErrInputTooLarge", err)
	}
	if d.calls != 0 {
		t.Errorf("deriver called %d times; want 0", d.calls)
	}
}

func TestDeriveKey_OwnerScope(t *testing.T) {
	repo := &memKeys{blobs: map[string][]byte{"bob": []byte("bob's key")}}
	svc := NewKeyService(repo, &mockDeriver{}, mockRegistrar{}, nopMaintainer{}, zap.NewNop())

	_, err := svc.DeriveKey(context.Background(), tenant.ID("alice"),
		validRequest(keys.Scope{Kind: keys.ScopeOwner, ID: []byte("bob")}))
	if !errors.Is(err, ErrScopeMismatch) {
		t.Fatalf("error = %v; want ErrScopeMismatch", err)
	}

	blob, err := svc.DeriveKey(context.Background(), tenant.ID("bob"),
		validRequest(keys.Scope{Kind: keys.ScopeOwner, ID: []byte("bob")}))
	if err != nil {
		t.Fatalf("DeriveKey error = %v", err)
	}
	if string(blob) != "bob's key" {
		t.Errorf("DeriveKey = %q", blob)
	}
}

func TestDeriveKey_AtCapacity(t *testing.T) {
	repo := &memKeys{blobs: map[string][]byte{}}
	d := &mockDeriver{}
	svc := NewKeyService(repo, d, mockRegistrar{err: ErrAtCapacity}, nopMaintainer{}, zap.NewNop())

	_, err := svc.DeriveKey(context.Background(), tenant.ID("zed"), validRequest(keys.Scope{Kind: keys.ScopeInstance}))
	if !errors.Is(err, ErrAtCapacity) {
		t.Fatalf("error = %v; want ErrAtCapacity", err)
	}
	if d.calls != 0 {
		t.Errorf("deriver called %d times; want 0", d.calls)
	}
}
