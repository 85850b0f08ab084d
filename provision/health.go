package provision

import (
	"context"
)

// Health enables and starts the service, then reports whether it came up.
type Health struct {
	host *Host
	unit *ServiceUnit
}

func NewHealth(h *Host, unit *ServiceUnit) *Health {
	return &Health{host: h, unit: unit}
}

// Start returns false when the service is not running after the settle delay.
// Errors are reserved for failed supervisor commands and cancellation.
func (h *Health) Start(ctx context.Context) (bool, error) {
	cfg := h.host.Config

	if err := h.unit.Reload(ctx); err != nil {
		return false, err
	}
	h.host.success("Systemd daemon reloaded")

	if err := h.unit.Enable(ctx); err != nil {
		return false, err
	}
	h.host.success("Service enabled (will start on boot)")

	if err := h.unit.Start(ctx); err != nil {
		return false, err
	}
	h.host.success("Service started")

	if err := h.host.sleep(ctx, cfg.SettleDelay); err != nil {
		return false, err
	}

	res, err := h.unit.Status(ctx)
	if err != nil {
		return false, err
	}
	if !res.Success() {
		h.host.warn("Service may have issues. Check logs with:")
		h.host.info("  sudo journalctl -u %s -f", cfg.ServiceName)
		return false, nil
	}

	h.host.success("Service is running")
	return true, nil
}
