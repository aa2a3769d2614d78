// This file contains the expected structure of incoming requests to the API. These structs are used to
// validate incoming requests, provide a consistent interface for handling requests, and to pass data to the
// appropriate handlers.

// Path identifiers are not part of these structs. They are validated as ObjectIDs by the services, so a malformed
// id is rejected before any database call.

package common

// CreateUserRequest is the body of both the register and add endpoints. Status is the only optional field.
type CreateUserRequest struct {
	Firstname string `json:"firstname" validate:"required"`
	Lastname  string `json:"lastname" validate:"required"`
	Email     string `json:"email" validate:"required"`
	Mobile    string `json:"mobile" validate:"required"`
	Password  string `json:"password" validate:"required"`
	Gender    string `json:"gender" validate:"required"`
	Role      string `json:"role" validate:"required"`
	Status    string `json:"status"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UpdateUserRequest carries a partial update. Absent and null fields are left unchanged.
type UpdateUserRequest struct {
	Firstname *string `json:"firstname"`
	Lastname  *string `json:"lastname"`
	Email     *string `json:"email"`
	Mobile    *string `json:"mobile"`
	Password  *string `json:"password"`
	Gender    *string `json:"gender"`
	Role      *string `json:"role"`
	Status    *string `json:"status"`
}
