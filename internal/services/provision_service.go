package services

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/ragpanel/ragpanel-be/internal/models"
)

const (
	fingerprintLength = 8
	fallbackSlug      = "user"
)

var nonAlnumRegexp = regexp.MustCompile(`[^a-z0-9]+`)

// LocatorBases holds the configured base addresses the per-user resource
// locators are derived from.
type LocatorBases struct {
	MongoBaseURI     string
	BotBaseURL       string
	SchedulerBaseURL string
	ScraperBaseURL   string
}

// ProvisionServiceProvider defines the interface for provisioning services.
type ProvisionServiceProvider interface {
	EnsureProvisioned(account models.Account) (models.Account, error)
}

// ProvisionService computes and persists the deterministic per-user resource
// locators. Provisioning is idempotent and cheap to call on every access:
// concurrent callers compute byte-identical values, so last-write-wins
// persistence cannot corrupt anything.
type ProvisionService struct {
	db    *sql.DB
	bases LocatorBases
}

// NewProvisionService creates a new ProvisionService.
func NewProvisionService(db *sql.DB, bases LocatorBases) *ProvisionService {
	return &ProvisionService{db: db, bases: bases}
}

// EnsureProvisioned returns the account with all four resource locators set,
// computing and persisting them on first call. Already-provisioned accounts
// are returned unchanged without touching the store.
func (s *ProvisionService) EnsureProvisioned(account models.Account) (models.Account, error) {
	if account.Provisioned() {
		return account, nil
	}
	if account.ID == "" || account.Username == "" {
		return models.Account{}, &PreconditionError{Message: "cannot provision an account without id and username"}
	}

	ident := ResourceIdentifier(account.ID, account.Username)

	account.DatabaseURI = JoinURL(s.bases.MongoBaseURI, ident)
	account.BotEndpoint = JoinURL(s.bases.BotBaseURL, ident)
	account.SchedulerEndpoint = JoinURL(s.bases.SchedulerBaseURL, ident)
	account.ScraperEndpoint = JoinURL(s.bases.ScraperBaseURL, ident)

	// The write completes before the locators are returned to the caller.
	_, err := s.db.Exec(
		`UPDATE accounts SET database_uri = ?, bot_endpoint = ?, scheduler_endpoint = ?,
			scraper_endpoint = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		account.DatabaseURI, account.BotEndpoint, account.SchedulerEndpoint,
		account.ScraperEndpoint, account.ID,
	)
	if err != nil {
		return models.Account{}, err
	}

	return account, nil
}

// ResourceIdentifier builds the "slug-fingerprint" identifier for a user.
// It is a pure function of (accountID, username): no clocks, salts or
// process identity, so the result is stable across restarts and machines.
func ResourceIdentifier(accountID, username string) string {
	return Slugify(username) + "-" + Fingerprint(accountID, username)
}

// Slugify normalizes a username into an identifier-safe slug: lowercased,
// non-alphanumeric runs collapsed to single hyphens, leading and trailing
// hyphens trimmed. An empty result falls back to a fixed default.
func Slugify(s string) string {
	slug := nonAlnumRegexp.ReplaceAllString(strings.ToLower(s), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return fallbackSlug
	}
	return slug
}

// Fingerprint derives a short deterministic digest from the identity pair,
// disambiguating slugs across accounts.
func Fingerprint(accountID, username string) string {
	sum := sha256.Sum256([]byte(accountID + ":" + username))
	return hex.EncodeToString(sum[:])[:fingerprintLength]
}

// JoinURL appends a path segment to a base address without duplicating
// separators.
func JoinURL(base, segment string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(segment, "/")
}
