// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net"
	"net/http"

	"github.com/tanvirrrhasan/namajtracker/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destinations for a category of events.
const (
	DestAll = "all" // MongoDB + zap
	DestDB  = "db"  // MongoDB only
	DestLog = "log" // zap only
	DestOff = "off"
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls sign-in, sign-out, linking and self-service profile events.
	Auth string
	// Admin controls member management events.
	Admin string
}

// Store is the persistence side of the audit log.
type Store interface {
	Log(ctx context.Context, event audit.Event) error
}

// Logger fans audit events out to MongoDB and zap.
type Logger struct {
	store  Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// clientIP returns the request's remote IP. RealIP middleware has already
// replaced RemoteAddr with the forwarded address when one is present.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}

	if event.MemberID != nil {
		fields = append(fields, zap.String("member_id", event.MemberID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event according to the category's destination.
// A nil Logger is a no-op.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	default:
		setting = DestAll
	}

	if setting == DestOff {
		return
	}
	if setting == DestAll || setting == DestLog {
		l.logToZap(event)
	}
	if (setting == DestAll || setting == DestDB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func requestEvent(r *http.Request, category, eventType string) audit.Event {
	return audit.Event{
		Category:  category,
		EventType: eventType,
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	}
}

// --- Authentication Events ---

// LoginSuccess logs a successful Google sign-in.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, memberID primitive.ObjectID, identity, email string) {
	e := requestEvent(r, audit.CategoryAuth, audit.EventLoginSuccess)
	e.MemberID = &memberID
	e.Details = map[string]string{"identity": identity, "email": email}
	l.Log(ctx, e)
}

// LoginFailedMemberDisabled logs a sign-in refused because the member is inactive.
func (l *Logger) LoginFailedMemberDisabled(ctx context.Context, r *http.Request, memberID primitive.ObjectID, identity string) {
	e := requestEvent(r, audit.CategoryAuth, audit.EventLoginFailedMemberDisabled)
	e.MemberID = &memberID
	e.Success = false
	e.FailureReason = "member disabled"
	e.Details = map[string]string{"identity": identity}
	l.Log(ctx, e)
}

// LoginFailedOAuth logs a sign-in that failed at the identity provider step.
func (l *Logger) LoginFailedOAuth(ctx context.Context, r *http.Request, reason string) {
	e := requestEvent(r, audit.CategoryAuth, audit.EventLoginFailedOAuth)
	e.Success = false
	e.FailureReason = reason
	l.Log(ctx, e)
}

// MemberSelfCreated logs a member record created on first sign-in.
func (l *Logger) MemberSelfCreated(ctx context.Context, r *http.Request, memberID primitive.ObjectID, role string) {
	e := requestEvent(r, audit.CategoryAuth, audit.EventMemberSelfCreated)
	e.MemberID = &memberID
	e.Details = map[string]string{"role": role}
	l.Log(ctx, e)
}

// MemberLinked logs an identity attached to an existing member record.
func (l *Logger) MemberLinked(ctx context.Context, r *http.Request, memberID primitive.ObjectID, identity string) {
	e := requestEvent(r, audit.CategoryAuth, audit.EventMemberLinked)
	e.MemberID = &memberID
	e.Details = map[string]string{"identity": identity}
	l.Log(ctx, e)
}

// Logout logs a sign-out. memberID is the hex ID from the session.
func (l *Logger) Logout(ctx context.Context, r *http.Request, memberID string) {
	e := requestEvent(r, audit.CategoryAuth, audit.EventLogout)
	if oid, err := primitive.ObjectIDFromHex(memberID); err == nil {
		e.MemberID = &oid
	}
	l.Log(ctx, e)
}

// ProfileUpdated logs a member editing their own profile.
func (l *Logger) ProfileUpdated(ctx context.Context, r *http.Request, memberID primitive.ObjectID, fieldsChanged string) {
	e := requestEvent(r, audit.CategoryAuth, audit.EventProfileUpdated)
	e.MemberID = &memberID
	e.Details = map[string]string{"fields_changed": fieldsChanged}
	l.Log(ctx, e)
}

// --- Admin Events ---

// MemberRoleChanged logs an admin granting or revoking the admin role.
func (l *Logger) MemberRoleChanged(ctx context.Context, r *http.Request, actorID, memberID primitive.ObjectID, from, to string) {
	e := requestEvent(r, audit.CategoryAdmin, audit.EventMemberRoleChanged)
	e.MemberID = &memberID
	e.ActorID = &actorID
	e.Details = map[string]string{"from": from, "to": to}
	l.Log(ctx, e)
}

// MemberStatusChanged logs an admin activating or deactivating a member.
func (l *Logger) MemberStatusChanged(ctx context.Context, r *http.Request, actorID, memberID primitive.ObjectID, from, to string) {
	e := requestEvent(r, audit.CategoryAdmin, audit.EventMemberStatusChanged)
	e.MemberID = &memberID
	e.ActorID = &actorID
	e.Details = map[string]string{"from": from, "to": to}
	l.Log(ctx, e)
}

// AdminSeeded logs the startup admin seed. There is no request.
func (l *Logger) AdminSeeded(ctx context.Context, memberID primitive.ObjectID, email string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventAdminSeeded,
		MemberID:  &memberID,
		IP:        "startup",
		Success:   true,
		Details:   map[string]string{"email": email},
	})
}
