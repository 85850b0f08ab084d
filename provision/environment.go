package provision

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"text/template"

	"github.com/compose-spec/compose-go/v2/dotenv"

	"github.com/oar-cd/berth/config"
)

const (
	// TLSCertKey marks an environment file that already carries the TLS settings.
	TLSCertKey = "SSL_CERT_PATH"
	TLSKeyKey  = "SSL_KEY_PATH"

	secretPrefix = "change-this-secret-in-production-"
	secretBytes  = 16
)

var environmentTemplate = template.Must(template.New("env").Parse(`# {{.ServiceName}} production environment configuration
# Database location (relative to WorkingDirectory)
DATABASE_PATH={{.DatabaseFile}}

# Server configuration
SERVER_PORT={{.ServerPort}}
JWT_SECRET={{.Secret}}
SESSION_DURATION_SECONDS={{.SessionDuration}}

# Logging
RUST_LOG=info
RUST_BACKTRACE=1

# Add any additional environment variables here
`))

// RenderEnvironment produces the content of a freshly created environment file.
func RenderEnvironment(cfg config.Config, secret string) (string, error) {
	var buf bytes.Buffer
	err := environmentTemplate.Execute(&buf, struct {
		config.Config
		Secret string
	}{Config: cfg, Secret: secret})
	if err != nil {
		return "", fmt.Errorf("rendering environment file: %w", err)
	}
	return buf.String(), nil
}

// RenderTLSBlock is appended once to an existing environment file.
func RenderTLSBlock(cfg config.Config) string {
	return fmt.Sprintf("\n# SSL/TLS Configuration (Let's Encrypt)\n%s=%s\n%s=%s\n",
		TLSCertKey, cfg.CertPath(), TLSKeyKey, cfg.KeyPath())
}

type Environment struct {
	host   *Host
	random io.Reader
}

func NewEnvironment(h *Host) *Environment {
	return &Environment{host: h, random: rand.Reader}
}

// Ensure creates the environment file with a fresh secret. An existing file is never modified.
func (e *Environment) Ensure(ctx context.Context) error {
	path := e.host.Config.EnvFile

	_, err := os.Stat(path)
	if err == nil {
		return Skip("environment file exists (preserved): %s", path)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking environment file: %w", err)
	}

	secret, err := e.newSecret()
	if err != nil {
		return err
	}
	content, err := RenderEnvironment(e.host.Config, secret)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return fmt.Errorf("creating environment file: %w", err)
	}
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing environment file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing environment file: %w", err)
	}

	if err := os.Chmod(path, 0o640); err != nil {
		return fmt.Errorf("setting permissions on %s: %w", path, err)
	}
	if err := os.Chown(path, e.host.Privileged.UID, e.host.Privileged.GID); err != nil {
		return fmt.Errorf("changing ownership of %s: %w", path, err)
	}

	e.host.success("Environment file created: %s", path)
	return nil
}

// AppendTLS adds the certificate paths once a certificate exists.
func (e *Environment) AppendTLS(ctx context.Context) error {
	cfg := e.host.Config

	if !Exists(cfg.CertPath()) {
		return Skip("SSL certificate not found, skipping SSL environment configuration")
	}

	present, err := e.HasKey(TLSCertKey)
	if err != nil {
		return err
	}
	if present {
		return Skip("SSL configuration already present in environment file")
	}

	f, err := os.OpenFile(cfg.EnvFile, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return fmt.Errorf("opening environment file: %w", err)
	}
	if _, err := f.WriteString(RenderTLSBlock(cfg)); err != nil {
		_ = f.Close()
		return fmt.Errorf("appending TLS configuration: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing environment file: %w", err)
	}

	e.host.success("SSL configuration added to %s", cfg.EnvFile)
	e.host.info("  Certificate: %s", cfg.CertPath())
	e.host.info("  Private key: %s", cfg.KeyPath())
	return nil
}

// HasKey reports whether the environment file defines key. A file the dotenv parser
// rejects is searched textually so operator edits never cause a duplicate append.
func (e *Environment) HasKey(key string) (bool, error) {
	path := e.host.Config.EnvFile

	values, err := dotenv.Read(path)
	if err == nil {
		_, ok := values[key]
		return ok, nil
	}

	data, readErr := os.ReadFile(path)
	if readErr != nil {
		return false, fmt.Errorf("reading environment file: %w", readErr)
	}
	slog.Warn("Environment file is not valid dotenv, falling back to text search",
		"layer", "provision",
		"operation", "has_key",
		"path", path,
		"error", err)
	return strings.Contains(string(data), key), nil
}

// Values parses the environment file.
func (e *Environment) Values() (map[string]string, error) {
	values, err := dotenv.Read(e.host.Config.EnvFile)
	if err != nil {
		return nil, fmt.Errorf("reading environment file: %w", err)
	}
	return values, nil
}

func (e *Environment) newSecret() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := io.ReadFull(e.random, b); err != nil {
		return "", fmt.Errorf("generating secret: %w", err)
	}
	return secretPrefix + hex.EncodeToString(b), nil
}
