package provision

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"

	"github.com/oar-cd/berth/config"
	"github.com/oar-cd/berth/runner"
)

const renewalTimer = "certbot.timer"

// HookPath is the post-renewal hook that restarts the service.
func HookPath(cfg config.Config) string {
	return filepath.Join(cfg.RenewalHookDir(), "restart-"+slug.Make(cfg.ServiceName)+".sh")
}

func RenderHook(cfg config.Config) string {
	return fmt.Sprintf("#!/bin/bash\n# Restart %s after certificate renewal\nsystemctl restart %s\n",
		cfg.ServiceName, cfg.ServiceName)
}

// Certificates obtains and renews the service's certificate with certbot.
type Certificates struct {
	host *Host
}

func NewCertificates(h *Host) *Certificates {
	return &Certificates{host: h}
}

// Present reports whether the certificate chain exists on disk.
func (c *Certificates) Present() bool {
	return Exists(c.host.Config.CertPath())
}

// EnsureClient installs certbot from the package manager when it is missing.
func (c *Certificates) EnsureClient(ctx context.Context) error {
	if _, err := c.host.Runner.LookPath("certbot"); err == nil {
		return Skip("certbot already installed")
	}

	c.host.info("Installing Certbot and required packages...")
	if _, err := c.host.run(ctx, runner.New("apt", "update")); err != nil {
		return fmt.Errorf("updating package index: %w", err)
	}
	if _, err := c.host.run(ctx, runner.New("apt", "install", "-y", "certbot", "python3-certbot")); err != nil {
		return fmt.Errorf("installing certbot: %w", err)
	}
	c.host.success("Certbot installed")
	return nil
}

// Obtain requests a certificate in standalone mode unless one already exists.
// The service is stopped first to free the HTTP port.
func (c *Certificates) Obtain(ctx context.Context) error {
	cfg := c.host.Config

	if c.Present() {
		return Skip("certificate already exists for %s (to renew, run: sudo certbot renew)", cfg.Domain)
	}

	c.host.info("Obtaining certificate for %s...", cfg.Domain)
	c.host.warn("Make sure:")
	c.host.info("  1. DNS for %s points to this server's IP", cfg.Domain)
	c.host.info("  2. Port %d is accessible from the internet", cfg.HTTPPort)
	c.host.info("  3. The %s service will be temporarily stopped", cfg.ServiceName)

	if _, err := c.host.try(ctx, runner.Tolerant("systemctl", "stop", cfg.ServiceName)); err != nil {
		return err
	}

	res, err := c.host.try(ctx, runner.Tolerant("certbot", "certonly",
		"--standalone",
		"--non-interactive",
		"--agree-tos",
		"--email", cfg.AdminEmail(),
		"--domains", cfg.Domain,
	))
	if err != nil {
		return err
	}
	if !res.Success() {
		return Tolerate(&runner.CommandError{Result: res},
			"failed to obtain SSL certificate: check that DNS for %s is correctly configured and port %d is reachable and free (manual: sudo certbot certonly --standalone -d %s)",
			cfg.Domain, cfg.HTTPPort, cfg.Domain)
	}

	c.host.success("SSL certificate obtained for %s", cfg.Domain)
	c.host.info("  Certificate: %s", cfg.CertPath())
	c.host.info("  Private key: %s", cfg.KeyPath())
	return nil
}

// SetupRenewal makes sure the renewal timer runs, installs the restart hook and tests renewal.
func (c *Certificates) SetupRenewal(ctx context.Context) error {
	cfg := c.host.Config

	timers, err := c.host.try(ctx, runner.Tolerant("systemctl", "list-timers", renewalTimer))
	if err != nil {
		return err
	}
	if timers.Success() && strings.Contains(timers.Stdout, renewalTimer) {
		c.host.success("Certbot renewal timer already active")
	} else {
		for _, verb := range []string{"enable", "start"} {
			if _, err := c.host.try(ctx, runner.Tolerant("systemctl", verb, renewalTimer)); err != nil {
				return err
			}
		}
		c.host.success("Certbot renewal timer enabled")
	}

	hook := HookPath(cfg)
	if err := os.MkdirAll(filepath.Dir(hook), 0o755); err != nil {
		return fmt.Errorf("creating renewal hook directory: %w", err)
	}
	if err := writeFileAtomic(hook, []byte(RenderHook(cfg)), 0o755); err != nil {
		return fmt.Errorf("writing renewal hook: %w", err)
	}
	c.host.success("Renewal hook created: %s", hook)

	c.host.info("Testing renewal configuration (dry run)...")
	dry, err := c.host.try(ctx, runner.Tolerant("certbot", "renew", "--dry-run"))
	if err != nil {
		return err
	}
	if !dry.Success() {
		return Tolerate(&runner.CommandError{Result: dry}, "renewal test had issues, but renewal timer is configured")
	}

	c.host.success("Renewal test successful")
	return nil
}
