package domain

import "time"

// DependencyCheck is the result of checking one tool or credential.
type DependencyCheck struct {
	Name     string `json:"name"`
	OK       bool   `json:"ok"`
	Required bool   `json:"required"`
	Detail   string `json:"detail,omitempty"`
}

// SystemReport is the outcome of a dependency sweep.
type SystemReport struct {
	Healthy      bool              `json:"healthy"`
	Checks       []DependencyCheck `json:"checks"`
	OutputSizeMB float64           `json:"output_size_mb"`
	CheckedAt    time.Time         `json:"checked_at"`
}

// Add records a check and clears Healthy when a required one fails.
func (r *SystemReport) Add(c DependencyCheck) {
	r.Checks = append(r.Checks, c)
	if c.Required && !c.OK {
		r.Healthy = false
	}
}
