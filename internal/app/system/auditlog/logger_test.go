package auditlog

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanvirrrhasan/namajtracker/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type memStore struct {
	events []audit.Event
}

func (m *memStore) Log(_ context.Context, e audit.Event) error {
	m.events = append(m.events, e)
	return nil
}

func TestLog_Destinations(t *testing.T) {
	tests := []struct {
		name    string
		setting string
		wantDB  int
		wantLog int
	}{
		{"all", DestAll, 1, 1},
		{"db", DestDB, 1, 0},
		{"log", DestLog, 0, 1},
		{"off", DestOff, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.InfoLevel)
			store := &memStore{}
			l := New(store, zap.New(core), Config{Auth: tt.setting, Admin: DestAll})

			req := httptest.NewRequest("GET", "/auth/google/callback", nil)
			l.LoginSuccess(context.Background(), req, primitive.NewObjectID(), "sub-1", "a@example.com")

			assert.Len(t, store.events, tt.wantDB)
			assert.Equal(t, tt.wantLog, logs.FilterMessage("audit event").Len())
		})
	}
}

func TestLog_NilLogger(t *testing.T) {
	var l *Logger
	l.Logout(context.Background(), httptest.NewRequest("POST", "/logout", nil), "x")
}

func TestMemberRoleChanged(t *testing.T) {
	store := &memStore{}
	l := New(store, zap.NewNop(), Config{Auth: DestOff, Admin: DestDB})

	actor, target := primitive.NewObjectID(), primitive.NewObjectID()
	req := httptest.NewRequest("POST", "/api/admin/members/x/role", nil)
	req.RemoteAddr = "203.0.113.9:41000"
	l.MemberRoleChanged(context.Background(), req, actor, target, "member", "admin")

	require.Len(t, store.events, 1)
	e := store.events[0]
	assert.Equal(t, audit.CategoryAdmin, e.Category)
	assert.Equal(t, audit.EventMemberRoleChanged, e.EventType)
	assert.Equal(t, "203.0.113.9", e.IP)
	assert.Equal(t, actor, *e.ActorID)
	assert.Equal(t, target, *e.MemberID)
	assert.Equal(t, "admin", e.Details["to"])
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "198.51.100.4"
	assert.Equal(t, "198.51.100.4", clientIP(req))
	req.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "2001:db8::1", clientIP(req))
}
