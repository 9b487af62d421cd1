// Package mongo provides the MongoDB implementation of the identity repository.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/partsinc/parts-server/internal/domain"
	"github.com/partsinc/parts-server/internal/identity"
	"github.com/partsinc/parts-server/internal/pkg/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type userDocument struct {
	Email        string    `bson:"email"`
	Name         string    `bson:"name,omitempty"`
	Role         string    `bson:"role,omitempty"`
	Image        string    `bson:"image,omitempty"`
	Phone        string    `bson:"phone,omitempty"`
	Address      string    `bson:"address,omitempty"`
	Education    string    `bson:"education,omitempty"`
	LinkedIn     string    `bson:"linkedin,omitempty"`
	PasswordHash string    `bson:"passwordHash,omitempty"`
	CreatedAt    time.Time `bson:"createdAt,omitempty"`
	UpdatedAt    time.Time `bson:"updatedAt,omitempty"`
}

func (d *userDocument) toDomain() domain.User {
	return domain.User{
		Email:        d.Email,
		Name:         d.Name,
		Role:         domain.Role(d.Role),
		Image:        d.Image,
		Phone:        d.Phone,
		Address:      d.Address,
		Education:    d.Education,
		LinkedIn:     d.LinkedIn,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// Repository implements the identity.Repository interface using MongoDB.
type Repository struct {
	users *mongo.Collection
}

// NewRepository creates a new MongoDB repository.
func NewRepository(db *mongo.Database) *Repository {
	return &Repository{users: db.Collection(mongodb.UsersCollection)}
}

func profileSet(profile identity.Profile, now time.Time) bson.M {
	set := bson.M{"updatedAt": now}
	for k, v := range profile.Fields() {
		set[k] = v
	}
	return set
}

// UpsertUser creates the user if missing and sets the supplied profile fields.
func (r *Repository) UpsertUser(ctx context.Context, email string, profile identity.Profile, passwordHash string) error {
	now := time.Now().UTC()
	set := profileSet(profile, now)
	if passwordHash != "" {
		set["passwordHash"] = passwordHash
	}

	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"createdAt": now},
	}
	_, err := r.users.UpdateOne(ctx, bson.M{"email": email}, update, options.Update().SetUpsert(true).SetCollation(mongodb.EmailCollation))
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// GetUserByEmail retrieves a user by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var doc userDocument
	err := r.users.FindOne(ctx, bson.M{"email": email}, options.FindOne().SetCollation(mongodb.EmailCollation)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, identity.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	user := doc.toDomain()
	return &user, nil
}

// ListUsers retrieves all users in insertion order.
func (r *Repository) ListUsers(ctx context.Context) ([]domain.User, error) {
	cursor, err := r.users.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer cursor.Close(ctx)

	users := make([]domain.User, 0)
	for cursor.Next(ctx) {
		var doc userDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode user: %w", err)
		}
		users = append(users, doc.toDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// UpdateProfile sets the supplied fields on an existing user.
func (r *Repository) UpdateProfile(ctx context.Context, email string, profile identity.Profile) error {
	return r.updateOne(ctx, email, profileSet(profile, time.Now().UTC()))
}

// SetRole changes the role of an existing user.
func (r *Repository) SetRole(ctx context.Context, email string, role domain.Role) error {
	return r.updateOne(ctx, email, bson.M{"role": string(role), "updatedAt": time.Now().UTC()})
}

func (r *Repository) updateOne(ctx context.Context, email string, set bson.M) error {
	result, err := r.users.UpdateOne(ctx, bson.M{"email": email}, bson.M{"$set": set},
		options.Update().SetCollation(mongodb.EmailCollation))
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if result.MatchedCount == 0 {
		return identity.ErrUserNotFound
	}
	return nil
}

// DeleteUser removes a user by email.
func (r *Repository) DeleteUser(ctx context.Context, email string) error {
	result, err := r.users.DeleteOne(ctx, bson.M{"email": email}, options.Delete().SetCollation(mongodb.EmailCollation))
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if result.DeletedCount == 0 {
		return identity.ErrUserNotFound
	}
	return nil
}
