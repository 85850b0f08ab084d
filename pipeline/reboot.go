package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/oar-cd/berth/cmd/output"
	"github.com/oar-cd/berth/runner"
)

// reboot counts down and restarts the host, the last resort when the service did not come up.
func (p *Pipeline) reboot(ctx context.Context) error {
	countdown := p.host.Config.RebootCountdown
	p.print(output.Warning, "Service is not running, rebooting in...")

	for i := countdown; i > 0; i-- {
		p.print(output.Plain, "... %d...", i)
		if err := p.sleep(ctx, time.Second); err != nil {
			return err
		}
	}

	if _, err := p.host.Runner.Run(ctx, runner.New("shutdown", "-r", "now")); err != nil {
		return fmt.Errorf("rebooting host: %w", err)
	}
	return nil
}

func (p *Pipeline) sleep(ctx context.Context, d time.Duration) error {
	if p.host.Sleep != nil {
		return p.host.Sleep(ctx, d)
	}
	return ctx.Err()
}
