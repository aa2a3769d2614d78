package services

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/NeRF-or-Nothing/go-user-server/internal/common"
	"github.com/NeRF-or-Nothing/go-user-server/internal/log"
	"github.com/NeRF-or-Nothing/go-user-server/internal/models/user"
)

// ErrInvalidCredentials is returned by LoginUser for both an unknown email and a wrong password.
var ErrInvalidCredentials = errors.New("invalid email or password")

// UserStore is the data-access layer used by UserService. Implemented by user.UserManager and user.MemoryUserManager.
type UserStore interface {
	CreateUser(ctx context.Context, u *user.User) error
	GetUserByID(ctx context.Context, userID primitive.ObjectID) (*user.User, error)
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
	GetUserByEmailOrMobile(ctx context.Context, email, mobile string) (*user.User, error)
	ListUsers(ctx context.Context) ([]*user.User, error)
	UpdateUser(ctx context.Context, userID primitive.ObjectID, update user.UserUpdate) (*user.User, error)
	DeleteUser(ctx context.Context, userID primitive.ObjectID) (*user.User, error)
}

type UserService struct {
	store  UserStore
	events EventPublisher
	logger *log.Logger
}

func NewUserService(store UserStore, events EventPublisher, logger *log.Logger) *UserService {
	if events == nil {
		events = NopEventPublisher{}
	}
	return &UserService{
		store:  store,
		events: events,
		logger: logger,
	}
}

// RegisterUser creates a user after checking that no user holds the email or mobile number.
// Returns user.ErrUserExists if one does. The unique indexes catch registrations that race past the check.
func (s *UserService) RegisterUser(ctx context.Context, req *common.CreateUserRequest) (*user.User, error) {
	_, err := s.store.GetUserByEmailOrMobile(ctx, req.Email, req.Mobile)
	if err == nil {
		return nil, user.ErrUserExists
	}
	if !errors.Is(err, user.ErrUserNotFound) {
		return nil, err
	}

	return s.createUser(ctx, req)
}

// AddUser creates a user without the up-front duplicate lookup.
func (s *UserService) AddUser(ctx context.Context, req *common.CreateUserRequest) (*user.User, error) {
	return s.createUser(ctx, req)
}

func (s *UserService) createUser(ctx context.Context, req *common.CreateUserRequest) (*user.User, error) {
	u := &user.User{
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		Email:     req.Email,
		Mobile:    req.Mobile,
		Gender:    req.Gender,
		Role:      req.Role,
		Status:    req.Status,
	}
	if err := u.SetPassword(req.Password); err != nil {
		return nil, err
	}

	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	s.publish(ctx, EventUserCreated, u.ID)
	return u, nil
}

// LoginUser returns the user if the email exists and the password matches.
// Returns ErrInvalidCredentials otherwise, without revealing which check failed.
func (s *UserService) LoginUser(ctx context.Context, email, password string) (*user.User, error) {
	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := u.CheckPassword(password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// ListUsers returns every user.
func (s *UserService) ListUsers(ctx context.Context) ([]*user.User, error) {
	return s.store.ListUsers(ctx)
}

// GetUser returns the user with the given hex id.
func (s *UserService) GetUser(ctx context.Context, id string) (*user.User, error) {
	userID, err := user.ParseID(id)
	if err != nil {
		return nil, err
	}
	return s.store.GetUserByID(ctx, userID)
}

// UpdateUser applies the fields present in req and returns the updated user.
// A new password is hashed before it is stored; an empty password is ignored.
func (s *UserService) UpdateUser(ctx context.Context, id string, req *common.UpdateUserRequest) (*user.User, error) {
	userID, err := user.ParseID(id)
	if err != nil {
		return nil, err
	}

	update := user.UserUpdate{
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		Email:     req.Email,
		Mobile:    req.Mobile,
		Gender:    req.Gender,
		Role:      req.Role,
		Status:    req.Status,
	}
	if req.Password != nil && *req.Password != "" {
		hashed, err := user.HashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		update.Password = &hashed
	}

	u, err := s.store.UpdateUser(ctx, userID, update)
	if err != nil {
		return nil, err
	}

	if !update.IsEmpty() {
		s.publish(ctx, EventUserUpdated, u.ID)
	}
	return u, nil
}

// DeleteUser removes the user and returns its last stored state.
func (s *UserService) DeleteUser(ctx context.Context, id string) (*user.User, error) {
	userID, err := user.ParseID(id)
	if err != nil {
		return nil, err
	}

	u, err := s.store.DeleteUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, EventUserDeleted, u.ID)
	return u, nil
}

// publish sends a lifecycle event. Failures are logged only; the store write already succeeded.
func (s *UserService) publish(ctx context.Context, eventType string, userID primitive.ObjectID) {
	event := UserEvent{
		Type:       eventType,
		UserID:     userID.Hex(),
		OccurredAt: time.Now().UTC(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Errorf("Failed to publish %s for user %s: %v", eventType, event.UserID, err)
	}
}
