package monitoring

import (
	"context"
	"net/http"
	"time"

	"github.com/ragpanel/ragpanel-be/internal/models"
	"github.com/ragpanel/ragpanel-be/internal/services"
	ws "github.com/ragpanel/ragpanel-be/internal/websocket"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// HealthChecker periodically probes the downstream services every user
// depends on (inference bot, scheduler, scraper), persists the result and
// broadcasts health transitions to connected dashboards.
type HealthChecker struct {
	statusSvc services.StatusServiceProvider
	eventSvc  services.EventServiceProvider
	hub       *ws.Hub
	targets   map[string]string // service name -> base URL
	client    *http.Client
	cron      *cron.Cron
	lastState map[string]bool
}

// NewHealthChecker creates a new HealthChecker probing the given targets.
func NewHealthChecker(statusSvc services.StatusServiceProvider, eventSvc services.EventServiceProvider, hub *ws.Hub, targets map[string]string) *HealthChecker {
	return &HealthChecker{
		statusSvc: statusSvc,
		eventSvc:  eventSvc,
		hub:       hub,
		targets:   targets,
		client:    &http.Client{Timeout: 5 * time.Second},
		lastState: make(map[string]bool),
	}
}

// Run starts the periodic checks.
func (hc *HealthChecker) Run() {
	log.Info().Msg("Starting downstream health checker...")

	// Run once immediately on start
	hc.checkAll()

	hc.cron = cron.New()
	hc.cron.AddFunc("@every 30s", hc.checkAll)
	hc.cron.Start()
}

// Stop halts the periodic checks.
func (hc *HealthChecker) Stop() {
	if hc.cron != nil {
		ctx := hc.cron.Stop()
		<-ctx.Done()
	}
	log.Info().Msg("Stopped downstream health checker.")
}

func (hc *HealthChecker) checkAll() {
	for service, url := range hc.targets {
		status := hc.probe(service, url)

		if err := hc.statusSvc.RecordStatus(status); err != nil {
			log.Error().Err(err).Str("service", service).Msg("HealthChecker: Failed to record status")
		}

		// Only raise events and broadcasts on transitions, not every tick.
		prev, seen := hc.lastState[service]
		if !seen || prev != status.Healthy {
			hc.lastState[service] = status.Healthy

			level, verb := "info", "is reachable"
			if !status.Healthy {
				level, verb = "error", "is unreachable"
			}
			msg := "Downstream service '" + service + "' " + verb
			if err := hc.eventSvc.CreateEvent("monitor.health."+service, level, msg, nil); err != nil {
				log.Error().Err(err).Str("service", service).Msg("HealthChecker: Failed to log event")
			}
			hc.hub.Broadcast <- ws.NewMessage("service_status", status)
		}
	}
}

// probe issues a single GET to the service base URL. Any HTTP response, even
// an error status, proves the service is up; only transport failures count
// as unhealthy.
func (hc *HealthChecker) probe(service, url string) models.ServiceStatus {
	start := time.Now()
	status := models.ServiceStatus{
		Service:   service,
		URL:       url,
		CheckedAt: start,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		status.Detail = err.Error()
		return status
	}

	resp, err := hc.client.Do(req)
	status.LatencyMs = int(time.Since(start).Milliseconds())
	if err != nil {
		status.Detail = err.Error()
		return status
	}
	resp.Body.Close()

	status.Healthy = true
	return status
}
