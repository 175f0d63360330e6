package alerting

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store used by tests and standalone runs.
// A single mutex makes every mutate callback atomic.
type MemoryStore struct {
	mu        sync.Mutex
	alerts    map[string]*Alert
	incidents map[string]*Incident
	alertSeq  []string
	incSeq    []string
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		alerts:    make(map[string]*Alert),
		incidents: make(map[string]*Incident),
	}
}

func (s *MemoryStore) SaveAlert(ctx context.Context, alert *Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.alerts[alert.ID]; ok {
		return fmt.Errorf("alert %s already exists", alert.ID)
	}
	cp := *alert
	s.alerts[alert.ID] = &cp
	s.alertSeq = append(s.alertSeq, alert.ID)
	return nil
}

func (s *MemoryStore) UpdateAlert(ctx context.Context, id string, mutate func(*Alert) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[id]
	if !ok {
		return fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	if err := mutate(a); err != nil {
		return err
	}
	// Keep the incident's embedded copy in line with the canonical alert.
	if a.IncidentID != "" {
		if inc, ok := s.incidents[a.IncidentID]; ok {
			for i, member := range inc.Alerts {
				if member.ID == a.ID {
					cp := *a
					inc.Alerts[i] = &cp
				}
			}
		}
	}
	return nil
}

func (s *MemoryStore) GetAlert(ctx context.Context, id string) (*Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[id]
	if !ok {
		return nil, fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) ListAlerts(ctx context.Context, limit int) ([]*Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Alert, 0, len(s.alertSeq))
	for i := len(s.alertSeq) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		cp := *s.alerts[s.alertSeq[i]]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) ListOpenAlerts(ctx context.Context) ([]*Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Alert
	for _, id := range s.alertSeq {
		a := s.alerts[id]
		if a.Acknowledged || a.EscalatedAt != nil {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) CreateIncident(ctx context.Context, incident *Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.incidents[incident.ID]; ok {
		return fmt.Errorf("incident %s already exists", incident.ID)
	}
	cp := s.copyIncident(incident)
	s.incidents[incident.ID] = cp
	s.incSeq = append(s.incSeq, incident.ID)
	for _, a := range incident.Alerts {
		if stored, ok := s.alerts[a.ID]; ok {
			stored.IncidentID = incident.ID
		}
	}
	return nil
}

func (s *MemoryStore) UpdateIncident(ctx context.Context, id string, mutate func(*Incident) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inc, ok := s.incidents[id]
	if !ok {
		return fmt.Errorf("incident %s: %w", id, ErrNotFound)
	}
	if err := mutate(inc); err != nil {
		return err
	}
	for _, a := range inc.Alerts {
		if stored, ok := s.alerts[a.ID]; ok {
			stored.IncidentID = id
		}
	}
	return nil
}

func (s *MemoryStore) GetIncident(ctx context.Context, id string) (*Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inc, ok := s.incidents[id]
	if !ok {
		return nil, fmt.Errorf("incident %s: %w", id, ErrNotFound)
	}
	return s.copyIncident(inc), nil
}

func (s *MemoryStore) ListIncidents(ctx context.Context, status IncidentStatus) ([]*Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Incident, 0, len(s.incSeq))
	for _, id := range s.incSeq {
		inc := s.incidents[id]
		if status != "" && inc.Status != status {
			continue
		}
		out = append(out, s.copyIncident(inc))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) copyIncident(inc *Incident) *Incident {
	cp := *inc
	cp.Alerts = make([]*Alert, len(inc.Alerts))
	for i, a := range inc.Alerts {
		ac := *a
		cp.Alerts[i] = &ac
	}
	return &cp
}
