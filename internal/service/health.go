package service

import (
	"sync"

	"telemetry_dashboard/internal/models"
)

type HealthService struct {
	pub Publisher

	mu     sync.RWMutex
	status *models.HealthStatus
}

func NewHealthService(pub Publisher) *HealthService {
	return &HealthService{pub: pub}
}

// HealthStatus returns the last reported status, if any.
func (s *HealthService) HealthStatus() (models.HealthStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.status == nil {
		return models.HealthStatus{}, false
	}
	return *s.status, true
}

func (s *HealthService) UpdateHealth(h models.HealthStatus) {
	s.mu.Lock()
	s.status = &h
	s.mu.Unlock()

	if s.pub != nil {
		s.pub.Publish(models.HealthStatusChangeEvent, models.HealthStatusChange{Status: &h})
	}
}
