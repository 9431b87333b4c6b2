// Package accounts validates the registration and profile forms and keeps the
// session user. Passwords are checked but never stored.
package accounts

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/problemradar/problem-radar/internal/models"
	"github.com/problemradar/problem-radar/internal/notifications"
	"github.com/sirupsen/logrus"
)

// ValidationError reports form input rejected before any state change
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// RegistrationForm is the sign-up form
type RegistrationForm struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	AgreeToTerms    bool   `json:"agree_to_terms"`
}

// ProfileForm edits the session user's name and email
type ProfileForm struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// PasswordForm changes the session user's password
type PasswordForm struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// Service holds the session user
type Service struct {
	notifier notifications.NotificationInterface
	now      func() time.Time

	mu   sync.RWMutex
	user models.User
}

// NewService creates an account service for the given session user
func NewService(notifier notifications.NotificationInterface, user models.User) *Service {
	return &Service{
		notifier: notifier,
		now:      time.Now,
		user:     user,
	}
}

// User returns the session user
func (s *Service) User() models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Register validates a sign-up form and returns the account it describes.
// New accounts start on the free tier.
func (s *Service) Register(form RegistrationForm) (models.User, error) {
	if err := validateRegistration(form); err != nil {
		s.notify(models.NewError("Error", err.Error()))
		return models.User{}, err
	}

	user := models.User{
		ID:                 uuid.NewString(),
		Email:              strings.TrimSpace(form.Email),
		Name:               strings.TrimSpace(form.FirstName + " " + form.LastName),
		SubscriptionTier:   "Free",
		SubscriptionStatus: "trial",
		UsageLimits:        models.UsageLimits{SearchesPerDay: 10, AlertsCount: 3},
		CreatedAt:          s.now().UTC(),
	}

	logrus.Infof("Registered account %s for %s", user.ID, user.Email)
	s.notify(models.NewInfo("Account created!", "Welcome to ProblemRadar AI. You can now sign in."))
	return user, nil
}

func validateRegistration(form RegistrationForm) error {
	if strings.TrimSpace(form.FirstName) == "" || strings.TrimSpace(form.LastName) == "" {
		return &ValidationError{Field: "name", Message: "Please enter your first and last name"}
	}
	if err := validateEmail(form.Email); err != nil {
		return err
	}
	if form.Password == "" {
		return &ValidationError{Field: "password", Message: "Please choose a password"}
	}
	if form.Password != form.ConfirmPassword {
		return &ValidationError{Field: "confirm_password", Message: "Passwords don't match"}
	}
	if !form.AgreeToTerms {
		return &ValidationError{Field: "agree_to_terms", Message: "Please agree to the terms and conditions"}
	}
	return nil
}

// UpdateProfile replaces the session user's name and email
func (s *Service) UpdateProfile(form ProfileForm) (models.User, error) {
	name := strings.TrimSpace(form.Name)
	if name == "" {
		err := &ValidationError{Field: "name", Message: "Please enter your name"}
		s.notify(models.NewError("Error", err.Message))
		return models.User{}, err
	}
	if err := validateEmail(form.Email); err != nil {
		s.notify(models.NewError("Error", err.Error()))
		return models.User{}, err
	}

	s.mu.Lock()
	s.user.Name = name
	s.user.Email = strings.TrimSpace(form.Email)
	user := s.user
	s.mu.Unlock()

	s.notify(models.NewInfo("Profile updated", "Your profile information has been saved."))
	return user, nil
}

// ChangePassword validates a password change
func (s *Service) ChangePassword(form PasswordForm) error {
	var err error
	switch {
	case form.NewPassword == "":
		err = &ValidationError{Field: "new_password", Message: "Please enter a new password"}
	case form.NewPassword != form.ConfirmPassword:
		err = &ValidationError{Field: "confirm_password", Message: "New passwords don't match"}
	}
	if err != nil {
		s.notify(models.NewError("Error", err.Error()))
		return err
	}

	s.notify(models.NewInfo("Password updated", "Your password has been successfully changed."))
	return nil
}

func validateEmail(raw string) error {
	email := strings.TrimSpace(raw)
	if email == "" {
		return &ValidationError{Field: "email", Message: "Please enter your email address"}
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return &ValidationError{Field: "email", Message: fmt.Sprintf("%q is not a valid email address", email)}
	}
	return nil
}

func (s *Service) notify(n *models.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(n); err != nil {
		logrus.Errorf("Failed to emit notification %q: %v", n.Title, err)
	}
}

// IsValidationError reports whether err was caused by rejected form input
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
