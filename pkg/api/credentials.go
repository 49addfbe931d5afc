package api

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/sgaunet/tapbump/internal/security"
)

// CredentialSource identifies where a token was resolved from.
type CredentialSource int

const (
	// SourceNone means no credential was found; requests go out anonymous.
	SourceNone CredentialSource = iota
	// SourceEnv means the token came from TAPBUMP_GITHUB_TOKEN or GITHUB_TOKEN.
	SourceEnv
	// SourceStore means the token came from the credential-store file under
	// the user config directory.
	SourceStore
)

// String returns a short name for the source, safe to log.
func (s CredentialSource) String() string {
	switch s {
	case SourceEnv:
		return "environment"
	case SourceStore:
		return "credential store"
	default:
		return "none"
	}
}

// Credentials is a resolved API credential. It is resolved once per process
// and immutable afterwards; the token is wrapped so it cannot leak through
// formatting.
type Credentials struct {
	Source CredentialSource
	Token  security.SecureToken
}

// IsAnonymous reports whether no token is available.
func (c Credentials) IsAnonymous() bool {
	return c.Source == SourceNone || c.Token.IsEmpty()
}

// Environment variables consulted for credentials, in order.
var tokenEnvVars = []string{"TAPBUMP_GITHUB_TOKEN", "GITHUB_TOKEN"}

// ResolveCredentials resolves the API credential from the environment first,
// then the credential-store file. Absence of a credential is not an error;
// anonymous access works for public resources at a lower rate limit.
func ResolveCredentials() Credentials {
	for _, name := range tokenEnvVars {
		if token := strings.TrimSpace(os.Getenv(name)); token != "" {
			return Credentials{Source: SourceEnv, Token: security.NewSecureToken(token)}
		}
	}

	if token := storeToken(); token != "" {
		return Credentials{Source: SourceStore, Token: security.NewSecureToken(token)}
	}

	return Credentials{Source: SourceNone}
}

// storeToken reads the token file under the user config directory. The file
// holds a single token, optionally followed by a newline.
func storeToken() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	path := filepath.Join(homeDir, ".config", "tapbump", "token")
	// #nosec G304 - Reading the credential store from the user's home directory is intentional
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}

	return strings.TrimSpace(string(data))
}
