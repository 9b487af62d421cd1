package identity

import (
	"context"

	"github.com/partsinc/parts-server/internal/domain"
)

// Repository defines the interface for user storage.
type Repository interface {
	// UpsertUser creates the user if missing and sets the supplied profile fields.
	// A non-empty passwordHash is stored as well.
	UpsertUser(ctx context.Context, email string, profile Profile, passwordHash string) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	// UpdateProfile sets the supplied fields on an existing user. Returns ErrUserNotFound if absent.
	UpdateProfile(ctx context.Context, email string, profile Profile) error
	SetRole(ctx context.Context, email string, role domain.Role) error
	DeleteUser(ctx context.Context, email string) error
}

// Profile is a partial update of user profile fields. Nil fields are left untouched.
type Profile struct {
	Name      *string
	Image     *string
	Phone     *string
	Address   *string
	Education *string
	LinkedIn  *string
}

// IsEmpty returns true if no field is set.
func (p Profile) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// Fields returns the set fields keyed by their stored name.
func (p Profile) Fields() map[string]string {
	fields := make(map[string]string)
	add := func(key string, v *string) {
		if v != nil {
			fields[key] = *v
		}
	}
	add("name", p.Name)
	add("image", p.Image)
	add("phone", p.Phone)
	add("address", p.Address)
	add("education", p.Education)
	add("linkedin", p.LinkedIn)
	return fields
}
