package authorization

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/ocpp-gateway/internal/ocpp"
)

// mockRepository is an in-memory Repository with an injectable error.
type mockRepository struct {
	mu     sync.Mutex
	tokens map[string]Token
	getErr error
}

func newMockRepository(tokens ...Token) *mockRepository {
	m := &mockRepository{tokens: make(map[string]Token)}
	for _, t := range tokens {
		m.tokens[t.Key] = t
	}
	return m
}

func (m *mockRepository) GetToken(_ context.Context, key string) (*Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	t, ok := m.tokens[key]
	if !ok {
		return nil, ErrTokenNotFound
	}
	return &t, nil
}

func (m *mockRepository) UpsertToken(_ context.Context, t *Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[t.Key] = *t
	return nil
}

func TestGate_Authorize(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	repo := newMockRepository(
		Token{Key: "TAG1", Status: ocpp.AuthorizationAccepted},
		Token{Key: "CHILD", Status: ocpp.AuthorizationAccepted, ParentKey: "FLEET", ExpiryDate: &future},
		Token{Key: "OLD", Status: ocpp.AuthorizationAccepted, ExpiryDate: &past},
		Token{Key: "EDGE", Status: ocpp.AuthorizationAccepted, ExpiryDate: &now},
		Token{Key: "STOLEN", Status: ocpp.AuthorizationBlocked},
		Token{Key: "BUSY", Status: ocpp.AuthorizationConcurrentTx},
		Token{Key: "WEIRD", Status: "Maybe"},
	)
	gate := NewGate(repo)
	gate.SetClock(func() time.Time { return now })

	tests := []struct {
		key        string
		wantStatus ocpp.AuthorizationStatus
		wantParent string
		wantExpiry bool
	}{
		{"TAG1", ocpp.AuthorizationAccepted, "", false},
		{"CHILD", ocpp.AuthorizationAccepted, "FLEET", true},
		{"OLD", ocpp.AuthorizationExpired, "", true},
		{"EDGE", ocpp.AuthorizationExpired, "", true},
		{"STOLEN", ocpp.AuthorizationBlocked, "", false},
		{"BUSY", ocpp.AuthorizationConcurrentTx, "", false},
		{"WEIRD", ocpp.AuthorizationInvalid, "", false},
		{"NOPE", ocpp.AuthorizationInvalid, "", false},
		{"", ocpp.AuthorizationInvalid, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			info := gate.Authorize(context.Background(), tt.key)
			if info.Status != tt.wantStatus {
				t.Errorf("Status = %v, want %v", info.Status, tt.wantStatus)
			}
			if info.ParentIDTag != tt.wantParent {
				t.Errorf("ParentIDTag = %q, want %q", info.ParentIDTag, tt.wantParent)
			}
			if (info.ExpiryDate != nil) != tt.wantExpiry {
				t.Errorf("ExpiryDate = %v, want set=%v", info.ExpiryDate, tt.wantExpiry)
			}
		})
	}
}

func TestGate_Authorize_StoreFailure(t *testing.T) {
	repo := newMockRepository(Token{Key: "TAG1", Status: ocpp.AuthorizationAccepted})
	repo.getErr = errors.New("disk on fire")

	info := NewGate(repo).Authorize(context.Background(), "TAG1")
	if info.Status != ocpp.AuthorizationInvalid {
		t.Errorf("Status = %v, want Invalid on store failure", info.Status)
	}
}
