package user

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryUserManager keeps users in process memory. It mirrors UserManager, including the
// email/mobile uniqueness enforced there by unique indexes.
type MemoryUserManager struct {
	mu    sync.RWMutex
	users []User
}

// NewMemoryUserManager creates a MemoryUserManager holding a copy of seed.
func NewMemoryUserManager(seed ...User) *MemoryUserManager {
	m := &MemoryUserManager{users: make([]User, 0, len(seed))}
	for _, u := range seed {
		if u.ID.IsZero() {
			u.ID = primitive.NewObjectID()
		}
		m.users = append(m.users, u)
	}
	return m
}

// conflicts reports whether a user other than self holds email or mobile. Caller holds mu.
func (m *MemoryUserManager) conflicts(self primitive.ObjectID, email, mobile string) bool {
	for _, u := range m.users {
		if u.ID == self {
			continue
		}
		if u.Email == email || u.Mobile == mobile {
			return true
		}
	}
	return false
}

func (m *MemoryUserManager) CreateUser(_ context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if m.conflicts(user.ID, user.Email, user.Mobile) {
		return ErrUserExists
	}
	m.users = append(m.users, *user)
	return nil
}

func (m *MemoryUserManager) find(match func(User) bool) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if match(u) {
			found := u
			return &found, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *MemoryUserManager) GetUserByID(_ context.Context, userID primitive.ObjectID) (*User, error) {
	return m.find(func(u User) bool { return u.ID == userID })
}

func (m *MemoryUserManager) GetUserByEmail(_ context.Context, email string) (*User, error) {
	return m.find(func(u User) bool { return u.Email == email })
}

func (m *MemoryUserManager) GetUserByEmailOrMobile(_ context.Context, email, mobile string) (*User, error) {
	return m.find(func(u User) bool { return u.Email == email || u.Mobile == mobile })
}

func (m *MemoryUserManager) ListUsers(_ context.Context) ([]*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]*User, 0, len(m.users))
	for _, u := range m.users {
		u := u
		users = append(users, &u)
	}
	return users, nil
}

func (m *MemoryUserManager) UpdateUser(_ context.Context, userID primitive.ObjectID, update UserUpdate) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, u := range m.users {
		if u.ID != userID {
			continue
		}
		update.Apply(&u)
		if m.conflicts(u.ID, u.Email, u.Mobile) {
			return nil, ErrUserExists
		}
		m.users[i] = u
		return &u, nil
	}
	return nil, ErrUserNotFound
}

func (m *MemoryUserManager) DeleteUser(_ context.Context, userID primitive.ObjectID) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, u := range m.users {
		if u.ID == userID {
			m.users = append(m.users[:i], m.users[i+1:]...)
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}
