package services

import (
	"database/sql"

	"github.com/ragpanel/ragpanel-be/internal/models"
)

// StatusServiceProvider defines the interface for downstream status storage.
type StatusServiceProvider interface {
	RecordStatus(status models.ServiceStatus) error
	GetStatuses() ([]models.ServiceStatus, error)
}

// StatusService persists the last observed health of each downstream service.
type StatusService struct {
	db *sql.DB
}

// NewStatusService creates a new StatusService.
func NewStatusService(db *sql.DB) *StatusService {
	return &StatusService{db: db}
}

// RecordStatus upserts the health row for a service.
func (s *StatusService) RecordStatus(status models.ServiceStatus) error {
	_, err := s.db.Exec(
		`INSERT INTO service_status (service, url, healthy, detail, latency_ms, checked_at)
		 VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(service) DO UPDATE SET
			url = excluded.url,
			healthy = excluded.healthy,
			detail = excluded.detail,
			latency_ms = excluded.latency_ms,
			checked_at = CURRENT_TIMESTAMP`,
		status.Service, status.URL, status.Healthy, status.Detail, status.LatencyMs,
	)
	return err
}

// GetStatuses returns the latest snapshot for every monitored service.
func (s *StatusService) GetStatuses() ([]models.ServiceStatus, error) {
	rows, err := s.db.Query("SELECT service, url, healthy, detail, latency_ms, checked_at FROM service_status ORDER BY service")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var statuses []models.ServiceStatus
	for rows.Next() {
		var st models.ServiceStatus
		if err := rows.Scan(&st.Service, &st.URL, &st.Healthy, &st.Detail, &st.LatencyMs, &st.CheckedAt); err != nil {
			return nil, err
		}
		statuses = append(statuses, st)
	}
	return statuses, rows.Err()
}
