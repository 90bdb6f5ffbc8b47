package domain

// ComponentStatus is the health of one external collaborator.
type ComponentStatus struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Detail  string `json:"detail,omitempty"`
}

// HealthReport aggregates component statuses.
type HealthReport struct {
	Components    []ComponentStatus `json:"components"`
	DocumentCount int               `json:"document_count"`
}

// Healthy reports whether every component is healthy.
func (r HealthReport) Healthy() bool {
	for _, c := range r.Components {
		if !c.Healthy {
			return false
		}
	}
	return true
}
