package auth

import (
	"os"
	"time"
)

const (
	EnvSessionID = "TIKSCRAPER_SESSION_ID"
	EnvMsToken   = "TIKSCRAPER_MS_TOKEN"
	EnvUserAgent = "TIKSCRAPER_USER_AGENT"

	// EnvAccountName is the username reported for environment credentials
	EnvAccountName = "env"
)

// EnvironmentStore reads a single read-only account from the environment
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve returns the environment account. username must be empty or
// "env".
func (e *EnvironmentStore) Retrieve(username string) (*Account, error) {
	if username != "" && username != EnvAccountName {
		return nil, ErrCredentialsNotFound
	}

	sessionID := os.Getenv(EnvSessionID)
	if sessionID == "" {
		return nil, ErrCredentialsNotFound
	}

	return &Account{
		Username:     EnvAccountName,
		SessionID:    sessionID,
		MsToken:      os.Getenv(EnvMsToken),
		UserAgent:    os.Getenv(EnvUserAgent),
		LastModified: time.Now(),
	}, nil
}

// List returns the environment account when it is set
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(username string) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Exists(username string) bool {
	_, err := e.Retrieve(username)
	return err == nil
}
