package user

import (
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrUserNotFound is returned when a requested user is not found in the database.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned when another user already holds the email or mobile number.
	ErrUserExists = errors.New("user already exists with the given email or mobile number")
	// ErrInvalidID is returned when an identifier is not a valid ObjectID hex string.
	ErrInvalidID = errors.New("invalid user ID format")
)

// User represents a user in the system
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Firstname string             `bson:"firstname" json:"firstname"`
	Lastname  string             `bson:"lastname" json:"lastname"`
	Email     string             `bson:"email" json:"email"`
	Mobile    string             `bson:"mobile" json:"mobile"`
	Password  string             `bson:"password" json:"-"`
	Gender    string             `bson:"gender" json:"gender"`
	Role      string             `bson:"role" json:"role"`
	Status    string             `bson:"status" json:"status"`
}

// ParseID converts a hex string into an ObjectID. Returns ErrInvalidID if the string is not 24 hex characters.
func ParseID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return id, nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedPassword), nil
}

// SetPassword sets a new password for the user. Encrypts the password using bcrypt.
func (u *User) SetPassword(password string) error {
	hashedPassword, err := HashPassword(password)
	if err != nil {
		return err
	}
	u.Password = hashedPassword
	return nil
}

// CheckPassword verifies if the provided password is correct.
// Returns nil on success, or error on failure
func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
}

// UserUpdate holds the fields of a partial update. Nil fields are left untouched.
// Password, when set, must already be hashed.
type UserUpdate struct {
	Firstname *string
	Lastname  *string
	Email     *string
	Mobile    *string
	Password  *string
	Gender    *string
	Role      *string
	Status    *string
}

type updateField struct {
	key string
	val *string
}

func (up UserUpdate) fields() []updateField {
	return []updateField{
		{"firstname", up.Firstname},
		{"lastname", up.Lastname},
		{"email", up.Email},
		{"mobile", up.Mobile},
		{"password", up.Password},
		{"gender", up.Gender},
		{"role", up.Role},
		{"status", up.Status},
	}
}

// IsEmpty reports whether the update sets no fields.
func (up UserUpdate) IsEmpty() bool {
	return len(up.SetDocument()) == 0
}

// SetDocument returns the $set document for the present fields.
func (up UserUpdate) SetDocument() bson.D {
	doc := bson.D{}
	for _, f := range up.fields() {
		if f.val != nil {
			doc = append(doc, bson.E{Key: f.key, Value: *f.val})
		}
	}
	return doc
}

// Apply copies the present fields onto u.
func (up UserUpdate) Apply(u *User) {
	targets := map[string]*string{
		"firstname": &u.Firstname,
		"lastname":  &u.Lastname,
		"email":     &u.Email,
		"mobile":    &u.Mobile,
		"password":  &u.Password,
		"gender":    &u.Gender,
		"role":      &u.Role,
		"status":    &u.Status,
	}
	for _, f := range up.fields() {
		if f.val != nil {
			*targets[f.key] = *f.val
		}
	}
}
