package provision

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/oar-cd/berth/config"
)

var logrotateTemplate = template.Must(template.New("logrotate").Parse(`{{.LogDir}}/*.log {
    daily
    rotate 14
    compress
    delaycompress
    missingok
    notifempty
    create 0640 {{.ServiceUser}} {{.ServiceGroup}}
    sharedscripts
    postrotate
        systemctl reload {{.ServiceName}} >/dev/null 2>&1 || true
    endscript
}
`))

func RenderLogrotate(cfg config.Config) (string, error) {
	var buf bytes.Buffer
	if err := logrotateTemplate.Execute(&buf, cfg); err != nil {
		return "", fmt.Errorf("rendering logrotate policy: %w", err)
	}
	return buf.String(), nil
}

type LogRotation struct {
	host *Host
}

func NewLogRotation(h *Host) *LogRotation {
	return &LogRotation{host: h}
}

// Write regenerates the rotation policy in full.
func (l *LogRotation) Write(ctx context.Context) error {
	content, err := RenderLogrotate(l.host.Config)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(l.host.Config.LogrotatePath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing logrotate policy: %w", err)
	}
	l.host.success("Log rotation configured: %s", l.host.Config.LogrotatePath)
	return nil
}
