package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/NeRF-or-Nothing/go-user-server/internal/common"
	"github.com/NeRF-or-Nothing/go-user-server/internal/database"
	"github.com/NeRF-or-Nothing/go-user-server/internal/models/user"
	"github.com/NeRF-or-Nothing/go-user-server/internal/services"
)

// Client-facing messages.
const (
	msgAllFieldsRequired   = "All fields are required"
	msgCredentialsRequired = "Email and password are required"
	msgInvalidCredentials  = "Invalid email or password"
	msgUserExists          = "User already exists with the given email or mobile number"
	msgInvalidID           = "Invalid user ID format"
	msgUserNotFound        = "User not found"
	msgNotReady            = "Database connection not ready"
)

// respondError maps service errors onto status codes. Unknown errors are infrastructure
// failures and their message is passed through.
func (s *WebServer) respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := err.Error()

	switch {
	case errors.Is(err, user.ErrInvalidID):
		status, message = fiber.StatusBadRequest, msgInvalidID
	case errors.Is(err, user.ErrUserNotFound):
		status, message = fiber.StatusNotFound, msgUserNotFound
	case errors.Is(err, user.ErrUserExists):
		status, message = fiber.StatusBadRequest, msgUserExists
	case errors.Is(err, services.ErrInvalidCredentials):
		status, message = fiber.StatusBadRequest, msgInvalidCredentials
	case errors.Is(err, database.ErrNotReady):
		status, message = fiber.StatusServiceUnavailable, msgNotReady
	}

	if status == fiber.StatusInternalServerError {
		s.logger.Errorf("%s %s failed: %v", c.Method(), c.Path(), err)
	} else {
		s.logger.Infof("%s %s rejected: %v", c.Method(), c.Path(), err)
	}
	return c.Status(status).JSON(common.Failure(message))
}

// parseCreateRequest parses and validates the body shared by register and add.
// A non-empty message means the request must be rejected with 400.
func (s *WebServer) parseCreateRequest(c *fiber.Ctx) (*common.CreateUserRequest, string) {
	var req common.CreateUserRequest
	if err := ParseBody(c, &req); err != nil {
		return nil, err.Error()
	}
	if err := ValidateRequest(&req); err != nil {
		s.logger.Info("Create user request validation failed:", err.Error())
		return nil, msgAllFieldsRequired
	}
	return &req, ""
}

func (s *WebServer) registerUser(c *fiber.Ctx) error {
	s.logger.Info("Register request received")

	req, msg := s.parseCreateRequest(c)
	if msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(common.Failure(msg))
	}

	u, err := s.userService.RegisterUser(c.UserContext(), req)
	if err != nil {
		return s.respondError(c, err)
	}

	s.logger.Infof("User %s registered successfully", u.ID.Hex())
	return c.Status(fiber.StatusCreated).JSON(common.Success("User registered successfully", u))
}

func (s *WebServer) addUser(c *fiber.Ctx) error {
	s.logger.Info("Add user request received")

	req, msg := s.parseCreateRequest(c)
	if msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(common.Failure(msg))
	}

	u, err := s.userService.AddUser(c.UserContext(), req)
	if err != nil {
		return s.respondError(c, err)
	}

	s.logger.Infof("User %s added successfully", u.ID.Hex())
	return c.Status(fiber.StatusCreated).JSON(common.Success("User added successfully", u))
}

func (s *WebServer) loginUser(c *fiber.Ctx) error {
	s.logger.Info("Login request received")

	var req common.LoginRequest
	if err := ParseBody(c, &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(common.Failure(err.Error()))
	}
	if err := ValidateRequest(&req); err != nil {
		s.logger.Info("Login request validation failed:", err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(common.Failure(msgCredentialsRequired))
	}

	u, err := s.userService.LoginUser(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return s.respondError(c, err)
	}

	s.logger.Infof("User %s logged in", u.ID.Hex())
	return c.Status(fiber.StatusOK).JSON(common.Envelope{
		Message: "Login successful",
		User:    common.LoginUser{ID: u.ID.Hex(), Email: u.Email, Role: u.Role},
	})
}

func (s *WebServer) listUsers(c *fiber.Ctx) error {
	users, err := s.userService.ListUsers(c.UserContext())
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(common.Success("Users fetched successfully", users))
}

func (s *WebServer) getUser(c *fiber.Ctx) error {
	u, err := s.userService.GetUser(c.UserContext(), c.Params("id"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(common.Success("User fetched successfully", u))
}

func (s *WebServer) updateUser(c *fiber.Ctx) error {
	s.logger.Info("Update user request received")

	var req common.UpdateUserRequest
	if err := ParseBody(c, &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(common.Failure(err.Error()))
	}

	u, err := s.userService.UpdateUser(c.UserContext(), c.Params("id"), &req)
	if err != nil {
		return s.respondError(c, err)
	}

	s.logger.Infof("User %s updated successfully", u.ID.Hex())
	return c.Status(fiber.StatusOK).JSON(common.Success("User updated successfully", u))
}

func (s *WebServer) deleteUser(c *fiber.Ctx) error {
	s.logger.Info("Delete user request received")

	u, err := s.userService.DeleteUser(c.UserContext(), c.Params("id"))
	if err != nil {
		return s.respondError(c, err)
	}

	s.logger.Infof("User %s deleted successfully", u.ID.Hex())
	return c.Status(fiber.StatusOK).JSON(common.Success("User deleted successfully", u))
}
