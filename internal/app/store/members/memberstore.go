// internal/app/store/members/memberstore.go
package memberstore

// Terminology: Member Identifiers
//   - MemberID / memberID / member_id: The MongoDB ObjectID (_id) of a member record
//   - Identity / identity_id: The identity provider's subject id linked on login

import (
	"context"
	"errors"
	"strings"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/tanvirrrhasan/namajtracker/internal/app/system/htmlsanitize"
	"github.com/tanvirrrhasan/namajtracker/internal/app/system/normalize"
	"github.com/tanvirrrhasan/namajtracker/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the name of the members collection.
const Collection = "members"

// Store provides access to the members collection.
type Store struct {
	c *mongo.Collection

	// beforeRecount runs between a demotion's write and its admin recount.
	beforeRecount func()
}

// New creates a member Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

var (
	// ErrDuplicateMember is returned when the email or identity is already taken.
	ErrDuplicateMember = errors.New("a member with this email or identity already exists")
	// ErrLastAdmin is returned when a change would leave no active admin.
	ErrLastAdmin = errors.New("cannot remove the last active admin")

	// ErrInvalidRole is returned for a role other than admin or member.
	ErrInvalidRole = errors.New(`role must be "admin"|"member"`)
	// ErrInvalidStatus is returned for a status other than active or disabled.
	ErrInvalidStatus = errors.New(`status must be "active"|"disabled"`)
	// ErrNameRequired is returned when the display name is blank after cleanup.
	ErrNameRequired = errors.New("full name is required")
)

// GetByID loads a member by ObjectID. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Member, error) {
	var m models.Member
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// GetByIdentity looks up a member by linked identity. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByIdentity(ctx context.Context, identity string) (*models.Member, error) {
	var m models.Member
	if err := s.c.FindOne(ctx, bson.M{"identity_id": identity}).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// GetByEmail looks up a member by email (case-insensitive). Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.Member, error) {
	var m models.Member
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ResolveByIdentity returns the member linked to identity, or nil if none.
func (s *Store) ResolveByIdentity(ctx context.Context, identity string) (*models.Member, error) {
	identity = normalize.Identity(identity)
	if identity == "" {
		return nil, nil
	}
	m, err := s.GetByIdentity(ctx, identity)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	return m, err
}

// rosterSort orders by folded display name, ties broken by _id.
var rosterSort = bson.D{{Key: "full_name_ci", Value: 1}, {Key: "_id", Value: 1}}

// ListActive returns the active roster sorted by name.
func (s *Store) ListActive(ctx context.Context) ([]models.Member, error) {
	return s.find(ctx, bson.M{"status": models.StatusActive}, options.Find().SetSort(rosterSort))
}

// ListAll returns every member, active or not, sorted by name.
func (s *Store) ListAll(ctx context.Context) ([]models.Member, error) {
	return s.find(ctx, bson.M{}, options.Find().SetSort(rosterSort))
}

func (s *Store) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.Member, error) {
	cur, err := s.c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	members := []models.Member{}
	if err := cur.All(ctx, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// CountActiveAdmins returns the number of members with role=admin and status=active.
func (s *Store) CountActiveAdmins(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"role":   models.RoleAdmin,
		"status": models.StatusActive,
	})
}

// Create inserts a new member after normalizing & validating fields.
func (s *Store) Create(ctx context.Context, m models.Member) (models.Member, error) {
	m.ID = primitive.NewObjectID()
	m.FullName = htmlsanitize.PlainText(normalize.Name(m.FullName))
	if m.FullName == "" {
		return models.Member{}, ErrNameRequired
	}
	m.FullNameCI = text.Fold(m.FullName)

	if m.Email != nil {
		email := normalize.Email(*m.Email)
		m.Email = nilIfEmpty(email)
	}
	if m.IdentityID != nil {
		m.IdentityID = nilIfEmpty(normalize.Identity(*m.IdentityID))
	}

	if m.Role == "" {
		m.Role = models.RoleMember
	}
	if m.Status == "" {
		m.Status = models.StatusActive
	}
	if !models.IsValidRole(m.Role) {
		return models.Member{}, ErrInvalidRole
	}
	if m.Status != models.StatusActive && m.Status != models.StatusDisabled {
		return models.Member{}, ErrInvalidStatus
	}

	now := time.Now().UTC()
	if m.JoinedAt.IsZero() {
		m.JoinedAt = now
	}
	m.CreatedAt = now
	m.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, m); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Member{}, ErrDuplicateMember
		}
		return models.Member{}, err
	}
	return m, nil
}

// Claims is what the identity provider tells us about a signed-in person.
type Claims struct {
	Identity string
	Email    string
	Name     string
}

// SignIn links claims to a member, creating one on first login.
//
// Lookup order is identity, then email. The identity is (re)attached on every
// call. A newly created member becomes admin when no active admin exists.
func (s *Store) SignIn(ctx context.Context, c Claims) (models.Member, bool, error) {
	identity := normalize.Identity(c.Identity)
	if identity == "" {
		return models.Member{}, false, errors.New("identity is required")
	}
	email := normalize.Email(c.Email)
	now := time.Now().UTC()

	m, err := s.GetByIdentity(ctx, identity)
	if err == nil {
		return s.touchLogin(ctx, *m, identity, now)
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Member{}, false, err
	}

	if email != "" {
		m, err = s.GetByEmail(ctx, email)
		if err == nil {
			return s.touchLogin(ctx, *m, identity, now)
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return models.Member{}, false, err
		}
	}

	admins, err := s.CountActiveAdmins(ctx)
	if err != nil {
		return models.Member{}, false, err
	}
	role := models.RoleMember
	if admins == 0 {
		role = models.RoleAdmin
	}

	name := c.Name
	if strings.TrimSpace(name) == "" {
		name = email
		if i := strings.Index(name, "@"); i > 0 {
			name = name[:i]
		}
		if name == "" {
			name = "Member"
		}
	}

	created, err := s.Create(ctx, models.Member{
		FullName:    name,
		Email:       &email,
		IdentityID:  &identity,
		Role:        role,
		LastLoginAt: &now,
	})
	if errors.Is(err, ErrDuplicateMember) {
		// Lost a race with a concurrent first login for the same person.
		m, err = s.GetByIdentity(ctx, identity)
		if err != nil {
			return models.Member{}, false, err
		}
		return *m, false, nil
	}
	if err != nil {
		return models.Member{}, false, err
	}
	return created, true, nil
}

func (s *Store) touchLogin(ctx context.Context, m models.Member, identity string, now time.Time) (models.Member, bool, error) {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": m.ID}, bson.M{"$set": bson.M{
		"identity_id":   identity,
		"last_login_at": now,
		"updated_at":    now,
	}})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.Member{}, false, ErrDuplicateMember
		}
		return models.Member{}, false, err
	}
	m.IdentityID = &identity
	m.LastLoginAt = &now
	m.UpdatedAt = now
	return m, false, nil
}

// ProfileUpdate holds the self-editable profile fields.
// Nil means "don't update this field".
type ProfileUpdate struct {
	FullName *string
	Phone    *string
	Address  *string
}

// UpdateProfile updates a member's own profile fields and returns the result.
func (s *Store) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd ProfileUpdate) (*models.Member, error) {
	set := bson.M{"updated_at": time.Now().UTC()}

	if upd.FullName != nil {
		name := htmlsanitize.PlainText(normalize.Name(*upd.FullName))
		if name == "" {
			return nil, ErrNameRequired
		}
		set["full_name"] = name
		set["full_name_ci"] = text.Fold(name)
	}
	if upd.Phone != nil {
		set["phone"] = htmlsanitize.PlainText(strings.TrimSpace(*upd.Phone))
	}
	if upd.Address != nil {
		set["address"] = htmlsanitize.PlainText(strings.TrimSpace(*upd.Address))
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var m models.Member
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// SetRole changes a member's role. Demoting the last active admin fails with ErrLastAdmin.
func (s *Store) SetRole(ctx context.Context, id primitive.ObjectID, role string) (*models.Member, error) {
	role = normalize.Role(role)
	if !models.IsValidRole(role) {
		return nil, ErrInvalidRole
	}
	if role != models.RoleAdmin {
		return s.demote(ctx, id, bson.M{"role": role})
	}
	return s.set(ctx, id, bson.M{"role": role})
}

// SetStatus activates or deactivates a member. Deactivating the last active
// admin fails with ErrLastAdmin.
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, status string) (*models.Member, error) {
	status = normalize.Status(status)
	if status != models.StatusActive && status != models.StatusDisabled {
		return nil, ErrInvalidStatus
	}
	if status == models.StatusDisabled {
		return s.demote(ctx, id, bson.M{"status": status})
	}
	return s.set(ctx, id, bson.M{"status": status})
}

// demote applies a change that may take an active admin out of the admin
// set. The admin count is checked before the write and again after it;
// if no active admin remains the member's previous role and status are
// restored and ErrLastAdmin is returned.
func (s *Store) demote(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Member, error) {
	prev, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !prev.IsAdmin() || !prev.IsActive() {
		return s.set(ctx, id, set)
	}
	n, err := s.CountActiveAdmins(ctx)
	if err != nil {
		return nil, err
	}
	if n <= 1 {
		return nil, ErrLastAdmin
	}

	m, err := s.set(ctx, id, set)
	if err != nil {
		return nil, err
	}
	if s.beforeRecount != nil {
		s.beforeRecount()
	}
	n, err = s.CountActiveAdmins(ctx)
	if err == nil && n > 0 {
		return m, nil
	}
	if _, rerr := s.set(ctx, id, bson.M{"role": prev.Role, "status": prev.Status}); rerr != nil {
		return nil, errors.Join(ErrLastAdmin, rerr)
	}
	if err != nil {
		return nil, err
	}
	return nil, ErrLastAdmin
}

func (s *Store) set(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Member, error) {
	set["updated_at"] = time.Now().UTC()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var m models.Member
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// EnsureAdmin makes sure a member with the given email exists and is an
// active admin. The identity is linked later, on that person's first login.
func (s *Store) EnsureAdmin(ctx context.Context, email, name string) (models.Member, bool, error) {
	email = normalize.Email(email)
	if name == "" {
		name = "Admin"
	}

	m, err := s.GetByEmail(ctx, email)
	if err == nil {
		if m.IsAdmin() && m.IsActive() {
			return *m, false, nil
		}
		updated, err := s.set(ctx, m.ID, bson.M{"role": models.RoleAdmin, "status": models.StatusActive})
		if err != nil {
			return models.Member{}, false, err
		}
		return *updated, false, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Member{}, false, err
	}

	created, err := s.Create(ctx, models.Member{
		FullName: name,
		Email:    &email,
		Role:     models.RoleAdmin,
	})
	if err != nil {
		return models.Member{}, false, err
	}
	return created, true, nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
