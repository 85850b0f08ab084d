package pipeline

import (
	"fmt"
	"strings"

	"github.com/oar-cd/berth/cmd/output"
	"github.com/oar-cd/berth/config"
)

type summarySection struct {
	title string
	rows  [][]string
}

// RenderSummary describes how to operate the deployed service.
// The TLS section and follow-ups depend on whether a certificate is installed.
func RenderSummary(cfg config.Config, certPresent bool, commit string) (string, error) {
	svc := cfg.ServiceName

	sections := []summarySection{
		{"Service Management", [][]string{
			{"Start:", "sudo systemctl start " + svc},
			{"Stop:", "sudo systemctl stop " + svc},
			{"Restart:", "sudo systemctl restart " + svc},
			{"Status:", "sudo systemctl status " + svc},
		}},
		{"Log Files", [][]string{
			{"Application:", cfg.ServerLogPath()},
			{"Errors:", cfg.ErrorLogPath()},
			{"Live logs:", fmt.Sprintf("sudo journalctl -u %s -f", svc)},
		}},
		{"Configuration", [][]string{
			{"Environment:", cfg.EnvFile},
			{"Service:", cfg.UnitPath},
			{"Data dir:", cfg.DataDir},
		}},
	}

	details := [][]string{
		{"Running as:", cfg.ServiceUser},
		{"Domain:", cfg.Domain},
		{"Listening:", fmt.Sprintf("0.0.0.0:%d", cfg.ServerPort)},
		{"Binary:", cfg.BinaryDest},
	}
	if commit != "" {
		details = append(details, []string{"Commit:", commit})
	}
	sections = append(sections, summarySection{"Server Details", details})

	if certPresent {
		sections = append(sections, summarySection{"SSL/TLS (Let's Encrypt)", [][]string{
			{"Certificate:", cfg.CertPath()},
			{"Private key:", cfg.KeyPath()},
			{"Auto-renewal:", "Enabled (via certbot.timer)"},
			{"Check renewal:", "sudo certbot renew --dry-run"},
			{"Renewal timer:", "sudo systemctl status certbot.timer"},
		}})
	}

	var b strings.Builder
	rule := strings.Repeat("=", 60)
	b.WriteString("\n" + rule + "\n")
	fmt.Fprintf(&b, "%s Installation/Update Complete!\n", svc)
	b.WriteString(rule + "\n")

	for _, s := range sections {
		table, err := output.PrintTable(nil, s.rows)
		if err != nil {
			return "", fmt.Errorf("rendering %s: %w", strings.ToLower(s.title), err)
		}
		fmt.Fprintf(&b, "\n%s:\n%s", s.title, table)
	}

	b.WriteString("\nNext Steps:\n")
	b.WriteString("  1. Verify server is running:\n")
	b.WriteString("     curl https://localhost/stats\n")
	if certPresent {
		fmt.Fprintf(&b, "     curl https://%s/stats\n", cfg.Domain)
	}
	b.WriteString("  2. Check logs for any issues:\n")
	fmt.Fprintf(&b, "     sudo tail -f %s\n", cfg.ServerLogPath())
	if !certPresent {
		b.WriteString("  3. SSL certificate not found. Make sure:\n")
		fmt.Fprintf(&b, "     - DNS for %s points to this server\n", cfg.Domain)
		fmt.Fprintf(&b, "     - Then run: sudo certbot certonly --standalone -d %s\n", cfg.Domain)
	}

	return b.String(), nil
}
