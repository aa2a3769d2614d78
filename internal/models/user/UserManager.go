// This file contains the UserManager implementation, which is responsible for interacting with the MongoDB users collection.
// The UserManager struct contains a source for the MongoDB database, the users collection name and a logger. It provides methods to create, get,
// list, update and delete user documents. Interaction with single users is by ID, apart from the email/mobile lookups used by
// registration and login.

package user

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/NeRF-or-Nothing/go-user-server/internal/database"
	"github.com/NeRF-or-Nothing/go-user-server/internal/log"
)

type UserManager struct {
	database       func() *mongo.Database
	collectionName string
	logger         *log.Logger
}

// NewUserManager creates a new instance of UserManager backed by db.collectionName.
func NewUserManager(db *mongo.Database, collectionName string, logger *log.Logger) *UserManager {
	return NewDeferredUserManager(func() *mongo.Database { return db }, collectionName, logger)
}

// NewDeferredUserManager creates a UserManager that resolves its database on every call, for clients
// that are created after startup. Calls made while source returns nil fail with database.ErrNotReady.
func NewDeferredUserManager(source func() *mongo.Database, collectionName string, logger *log.Logger) *UserManager {
	return &UserManager{
		database:       source,
		collectionName: collectionName,
		logger:         logger,
	}
}

func (um *UserManager) users() (*mongo.Collection, error) {
	db := um.database()
	if db == nil {
		return nil, database.ErrNotReady
	}
	return db.Collection(um.collectionName), nil
}

// EnsureIndexes creates the unique indexes on email and mobile. Documents where the field is
// missing or not a string are not indexed, so legacy records without a mobile number do not collide.
func (um *UserManager) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().
				SetName("email_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"email": bson.M{"$type": "string"}}),
		},
		{
			Keys: bson.D{{Key: "mobile", Value: 1}},
			Options: options.Index().
				SetName("mobile_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"mobile": bson.M{"$type": "string"}}),
		},
	}

	users, err := um.users()
	if err != nil {
		return err
	}
	names, err := users.Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	um.logger.Debugf("Ensured indexes %v on %s", names, users.Name())
	return nil
}

// CreateUser inserts a new user document. A new ID is generated if the user has none.
// Returns ErrUserExists if the email or mobile number violates a unique index.
func (um *UserManager) CreateUser(ctx context.Context, user *User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}

	users, err := um.users()
	if err != nil {
		return err
	}
	_, err = users.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrUserExists
		}
		return err
	}
	return nil
}

// GetUserByID retrieves a user from the database based on the given ID.
func (um *UserManager) GetUserByID(ctx context.Context, userID primitive.ObjectID) (*User, error) {
	return um.findOne(ctx, bson.M{"_id": userID})
}

// GetUserByEmail retrieves a user from the database based on the given email.
// Returns the User, nil if successful. Returns nil, ErrUserNotFound if the user is not found.
func (um *UserManager) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return um.findOne(ctx, bson.M{"email": email})
}

// GetUserByEmailOrMobile retrieves the first user holding either the email or the mobile number.
func (um *UserManager) GetUserByEmailOrMobile(ctx context.Context, email, mobile string) (*User, error) {
	return um.findOne(ctx, bson.M{"$or": bson.A{
		bson.M{"email": email},
		bson.M{"mobile": mobile},
	}})
}

func (um *UserManager) findOne(ctx context.Context, filter bson.M) (*User, error) {
	users, err := um.users()
	if err != nil {
		return nil, err
	}
	var user User
	err = users.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ListUsers returns every user in the collection. The slice is empty, never nil, for an empty collection.
func (um *UserManager) ListUsers(ctx context.Context) ([]*User, error) {
	users, err := um.users()
	if err != nil {
		return nil, err
	}
	cursor, err := users.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}

	result := []*User{}
	if err := cursor.All(ctx, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateUser applies the present fields of update to the user and returns the updated document.
// An empty update returns the current document unchanged.
func (um *UserManager) UpdateUser(ctx context.Context, userID primitive.ObjectID, update UserUpdate) (*User, error) {
	if update.IsEmpty() {
		return um.GetUserByID(ctx, userID)
	}

	users, err := um.users()
	if err != nil {
		return nil, err
	}
	var user User
	err = users.FindOneAndUpdate(
		ctx,
		bson.M{"_id": userID},
		bson.M{"$set": update.SetDocument()},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrUserExists
		}
		return nil, err
	}
	return &user, nil
}

// DeleteUser removes the user and returns the document as it was before deletion.
func (um *UserManager) DeleteUser(ctx context.Context, userID primitive.ObjectID) (*User, error) {
	users, err := um.users()
	if err != nil {
		return nil, err
	}
	var user User
	err = users.FindOneAndDelete(ctx, bson.M{"_id": userID}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
