package common

// Envelope is the JSON shape returned by every endpoint.
type Envelope struct {
	Error   bool        `json:"error"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	User    interface{} `json:"user,omitempty"`
}

// LoginUser is the subset of a user echoed back by a successful login.
type LoginUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Success builds a non-error envelope carrying data.
func Success(message string, data interface{}) Envelope {
	return Envelope{Message: message, Data: data}
}

// Failure builds an error envelope.
func Failure(message string) Envelope {
	return Envelope{Error: true, Message: message}
}
