package services

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/ragpanel/ragpanel-be/internal/models"
	"golang.org/x/crypto/bcrypt"
)

var (
	emailRegexp    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	usernameRegexp = regexp.MustCompile(`^[A-Za-z0-9_]{3,30}$`)
)

const minPasswordLength = 6

// dummyHash is compared against when a login names an unknown user, so the
// request costs the same as a real password check (anti-enumeration).
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("ragpanel-dummy-credential"), bcrypt.MinCost)

// AccountServiceProvider defines the interface for account services.
type AccountServiceProvider interface {
	Register(name, email, username, password string) (models.Account, error)
	Authenticate(username, password string) (models.Account, error)
	GetAccountByID(id string) (models.Account, error)
	UpdateProfile(id, name, email string) (models.Account, error)
	UpdatePassword(id, currentPassword, newPassword string) error
}

// AccountService provides business logic for account management.
type AccountService struct {
	db         *sql.DB
	bcryptCost int
}

// NewAccountService creates a new AccountService.
func NewAccountService(db *sql.DB, bcryptCost int) *AccountService {
	return &AccountService{db: db, bcryptCost: bcryptCost}
}

const accountColumns = `id, name, username, email, password_hash,
	database_uri, bot_endpoint, scheduler_endpoint, scraper_endpoint,
	created_at, updated_at`

func scanAccount(row interface{ Scan(...interface{}) error }) (models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.Name, &a.Username, &a.Email, &a.PasswordHash,
		&a.DatabaseURI, &a.BotEndpoint, &a.SchedulerEndpoint, &a.ScraperEndpoint,
		&a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// Register validates the input, enforces username/email uniqueness and
// creates the account with a bcrypt password hash.
func (s *AccountService) Register(name, email, username, password string) (models.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)
	name = strings.TrimSpace(name)

	if name == "" {
		return models.Account{}, &ValidationError{Field: "name", Message: "name is required"}
	}
	if !emailRegexp.MatchString(email) {
		return models.Account{}, &ValidationError{Field: "email", Message: "invalid email address"}
	}
	if !usernameRegexp.MatchString(username) {
		return models.Account{}, &ValidationError{Field: "username", Message: "username must be 3-30 characters, letters, digits or underscore"}
	}
	if len(password) < minPasswordLength {
		return models.Account{}, &ValidationError{Field: "password", Message: fmt.Sprintf("password must be at least %d characters", minPasswordLength)}
	}

	// Pre-check for friendlier errors; the unique indexes remain the final
	// arbiter when two registrations race past this point.
	if err := s.checkUnique(email, username); err != nil {
		return models.Account{}, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return models.Account{}, fmt.Errorf("failed to hash password: %w", err)
	}

	account := models.Account{
		ID:           uuid.New().String(),
		Name:         name,
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
	}

	_, err = s.db.Exec(
		"INSERT INTO accounts (id, name, username, email, password_hash) VALUES (?, ?, ?, ?, ?)",
		account.ID, account.Name, account.Username, account.Email, account.PasswordHash,
	)
	if err != nil {
		if conflict := uniqueConflict(err); conflict != nil {
			return models.Account{}, conflict
		}
		return models.Account{}, err
	}

	return s.GetAccountByID(account.ID)
}

func (s *AccountService) checkUnique(email, username string) error {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(1) FROM accounts WHERE lower(email) = ?", email).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return &ConflictError{Field: "email"}
	}
	if err := s.db.QueryRow("SELECT COUNT(1) FROM accounts WHERE username = ?", username).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return &ConflictError{Field: "username"}
	}
	return nil
}

// uniqueConflict translates a unique-index violation from the store into the
// same ConflictError the pre-check produces.
func uniqueConflict(err error) *ConflictError {
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") {
		return nil
	}
	if strings.Contains(msg, "accounts.email") {
		return &ConflictError{Field: "email"}
	}
	if strings.Contains(msg, "accounts.username") {
		return &ConflictError{Field: "username"}
	}
	return &ConflictError{Field: "account"}
}

// Authenticate verifies a user's credentials. Unknown username and wrong
// password both return ErrInvalidCredentials, with a dummy hash comparison
// in the unknown-user path so the two are not separable by timing.
func (s *AccountService) Authenticate(username, password string) (models.Account, error) {
	row := s.db.QueryRow("SELECT "+accountColumns+" FROM accounts WHERE username = ?", username)
	account, err := scanAccount(row)
	if err != nil {
		if err == sql.ErrNoRows {
			bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return models.Account{}, ErrInvalidCredentials
		}
		return models.Account{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return models.Account{}, ErrInvalidCredentials
	}

	return account, nil
}

// GetAccountByID retrieves a single account by its ID.
func (s *AccountService) GetAccountByID(id string) (models.Account, error) {
	row := s.db.QueryRow("SELECT "+accountColumns+" FROM accounts WHERE id = ?", id)
	account, err := scanAccount(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Account{}, ErrNotFound
		}
		return models.Account{}, err
	}
	return account, nil
}

// UpdateProfile updates an account's non-sensitive information.
func (s *AccountService) UpdateProfile(id, name, email string) (models.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)

	if name == "" {
		return models.Account{}, &ValidationError{Field: "name", Message: "name is required"}
	}
	if !emailRegexp.MatchString(email) {
		return models.Account{}, &ValidationError{Field: "email", Message: "invalid email address"}
	}

	_, err := s.db.Exec(
		"UPDATE accounts SET name = ?, email = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		name, email, id,
	)
	if err != nil {
		if conflict := uniqueConflict(err); conflict != nil {
			return models.Account{}, conflict
		}
		return models.Account{}, err
	}
	return s.GetAccountByID(id)
}

// UpdatePassword verifies the current password, then hashes and sets a new one.
func (s *AccountService) UpdatePassword(id, currentPassword, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return &ValidationError{Field: "newPassword", Message: fmt.Sprintf("password must be at least %d characters", minPasswordLength)}
	}

	var currentHash string
	if err := s.db.QueryRow("SELECT password_hash FROM accounts WHERE id = ?", id).Scan(&currentHash); err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(currentHash), []byte(currentPassword)); err != nil {
		return ErrInvalidCredentials
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash new password: %w", err)
	}

	_, err = s.db.Exec("UPDATE accounts SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", string(hashedPassword), id)
	return err
}
