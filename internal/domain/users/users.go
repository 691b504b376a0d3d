package users

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserEmailInvalid       = errors.New("user email is invalid")
	ErrUserNameEmpty          = errors.New("user name is empty")
	ErrUserPasswdTooShort     = errors.New("user password must be at least 8 characters")
	ErrUserCredentialsInvalid = errors.New("user credentials invalid")
)

const minPasswordLength = 8

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

var validate = validator.New()

// CreateUser validates the registration data and hashes the password.
func CreateUser(email, name, password string) (*User, error) {
	email = NormalizeEmail(email)

	if err := ValidateEmail(email); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrUserNameEmpty
	}

	if len(password) < minPasswordLength {
		return nil, ErrUserPasswdTooShort
	}

	passwordHash, err := getPasswordHash(password)
	if err != nil {
		return nil, fmt.Errorf("getPasswordHash: %w", err)
	}

	return &User{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		Role:         RoleUser,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// CheckPassword compares password with the stored bcrypt hash.
func (u *User) CheckPassword(password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrUserCredentialsInvalid
		}

		return fmt.Errorf("bcrypt.CompareHashAndPassword: %w", err)
	}

	return nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidateEmail(email string) error {
	if err := validate.Var(email, "required,email"); err != nil {
		return ErrUserEmailInvalid
	}

	return nil
}

func getPasswordHash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("bcrypt.GenerateFromPassword: %w", err)
	}

	return string(hash), nil
}
