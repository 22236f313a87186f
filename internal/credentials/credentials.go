// Package credentials provides storage and retrieval of the backend API
// token using the OS-native keyring, with an environment variable
// override.
package credentials

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

const (
	// serviceName namespaces keyring entries for this application.
	serviceName = "prayat"
	// accountName is the keyring account the backend token is filed under.
	accountName = "backend"
	// EnvToken overrides the keyring when set.
	EnvToken = "PRAYAT_BACKEND_TOKEN"
)

// Source indicates where a token was retrieved from
type Source string

const (
	SourceKeyring     Source = "keyring"
	SourceEnvironment Source = "environment"
	SourceNone        Source = "none"
)

// Keyring is the interface for keyring operations
type Keyring interface {
	Set(service, account, password string) error
	Get(service, account string) (string, error)
	Delete(service, account string) error
}

// Manager handles token operations
type Manager struct {
	keyring Keyring
}

// ManagerOption is a functional option for Manager
type ManagerOption func(*Manager)

// WithKeyring sets a custom keyring implementation
func WithKeyring(k Keyring) ManagerOption {
	return func(m *Manager) {
		m.keyring = k
	}
}

// NewManager creates a new credential manager backed by the OS keyring
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		keyring: &systemKeyring{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetToken stores the backend API token in the keyring
func (m *Manager) SetToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("token is empty")
	}
	return m.keyring.Set(serviceName, accountName, token)
}

// Token retrieves the backend API token. The environment variable takes
// priority over the keyring; an empty token with SourceNone means the
// backend is queried unauthenticated.
func (m *Manager) Token() (string, Source) {
	if token := os.Getenv(EnvToken); token != "" {
		return token, SourceEnvironment
	}
	if token, err := m.keyring.Get(serviceName, accountName); err == nil && token != "" {
		return token, SourceKeyring
	}
	return "", SourceNone
}

// DeleteToken removes the backend API token from the keyring
func (m *Manager) DeleteToken() error {
	return m.keyring.Delete(serviceName, accountName)
}

// PromptToken reads a token from the terminal without echo. Falls back to
// a plain line read when stdin is not a terminal (piped input).
func PromptToken(stdout io.Writer) (string, error) {
	fmt.Fprint(stdout, "Backend API token: ")

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(stdout)
		if err != nil {
			return "", fmt.Errorf("failed to read token: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	var line string
	if _, err := fmt.Fscanln(os.Stdin, &line); err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return strings.TrimSpace(line), nil
}
