package models

import "time"

// Account represents a user account in the system.
//
// The four resource locators are empty until the account is provisioned on
// first authenticated access; after that they are always set together.
type Account struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose this to the client
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	DatabaseURI       string `json:"databaseUri,omitempty"`
	BotEndpoint       string `json:"botEndpoint,omitempty"`
	SchedulerEndpoint string `json:"schedulerEndpoint,omitempty"`
	ScraperEndpoint   string `json:"scraperEndpoint,omitempty"`
}

// Provisioned reports whether all four resource locators are set.
func (a Account) Provisioned() bool {
	return a.DatabaseURI != "" && a.BotEndpoint != "" &&
		a.SchedulerEndpoint != "" && a.ScraperEndpoint != ""
}

// AccountSummary is the public view of an account returned by the API.
type AccountSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Summary returns the public view of the account.
func (a Account) Summary() AccountSummary {
	return AccountSummary{
		ID:       a.ID,
		Name:     a.Name,
		Username: a.Username,
		Email:    a.Email,
	}
}
