package services

import (
	"notification-system/internal/domain"
	"notification-system/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Janitor periodically pings every registered connection and prunes the
// ones that fail. The stream handlers and the dispatcher already remove
// connections on their own exit and failure paths; the sweep is the
// backstop for sockets that died without either path firing.
type Janitor struct {
	cron     *cron.Cron
	registry domain.ConnectionRegistry
	spec     string
	log      logger.Logger
}

func NewJanitor(registry domain.ConnectionRegistry, spec string, log logger.Logger) *Janitor {
	return &Janitor{
		cron:     cron.New(cron.WithSeconds()),
		registry: registry,
		spec:     spec,
		log:      log,
	}
}

func (j *Janitor) Start() error {
	j.log.Info("Starting connection janitor", "spec", j.spec)

	if _, err := j.cron.AddFunc(j.spec, j.Sweep); err != nil {
		return err
	}

	j.cron.Start()
	return nil
}

func (j *Janitor) Stop() error {
	j.log.Info("Stopping connection janitor")
	j.cron.Stop()
	return nil
}

func (j *Janitor) Sweep() {
	connections := j.registry.Connections()
	for _, conn := range connections {
		if err := conn.Ping(); err != nil {
			j.log.Warn("Keepalive failed, pruning connection",
				"routing_key", conn.RoutingKey(), "error", err)
			j.registry.Unregister(conn.RoutingKey())
			conn.Close()
		}
	}
}
