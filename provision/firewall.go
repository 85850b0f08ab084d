package provision

import (
	"context"
	"fmt"

	"github.com/oar-cd/berth/config"
	"github.com/oar-cd/berth/runner"
)

type FirewallRule struct {
	Port  int
	Label string
}

func (r FirewallRule) Spec() string {
	return fmt.Sprintf("%d/tcp", r.Port)
}

// FirewallRules lists the ports to open. The admin port always comes first
// so the firewall is never enabled without it.
func FirewallRules(cfg config.Config) []FirewallRule {
	candidates := []FirewallRule{
		{Port: cfg.AdminPort, Label: "SSH"},
		{Port: cfg.HTTPPort, Label: "HTTP"},
		{Port: cfg.HTTPSPort, Label: "HTTPS"},
	}

	seen := make(map[int]bool, len(candidates))
	rules := make([]FirewallRule, 0, len(candidates))
	for _, r := range candidates {
		if seen[r.Port] {
			continue
		}
		seen[r.Port] = true
		rules = append(rules, r)
	}
	return rules
}

type Firewall struct {
	host *Host
}

func NewFirewall(h *Host) *Firewall {
	return &Firewall{host: h}
}

func (f *Firewall) Configure(ctx context.Context) error {
	if _, err := f.host.Runner.LookPath("ufw"); err != nil {
		return Skip("ufw not found, skipping firewall configuration (install with: sudo apt install ufw)")
	}

	for _, rule := range FirewallRules(f.host.Config) {
		if _, err := f.host.run(ctx, runner.New("ufw", "allow", rule.Spec())); err != nil {
			return fmt.Errorf("allowing %s: %w", rule.Spec(), err)
		}
		f.host.success("Allowed %s (port %d)", rule.Label, rule.Port)
	}

	if _, err := f.host.run(ctx, runner.New("ufw", "--force", "enable")); err != nil {
		return fmt.Errorf("enabling firewall: %w", err)
	}
	f.host.success("Firewall enabled")

	if _, err := f.host.run(ctx, runner.New("ufw", "status")); err != nil {
		return fmt.Errorf("querying firewall status: %w", err)
	}
	return nil
}
