package health

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusSyncing   = "syncing"
)

// SourceHealth is one probe result. It is recomputed per health-check cycle
// and never cached across cycles.
type SourceHealth struct {
	Name      string `json:"service"`
	Status    string `json:"status"`
	LastError string `json:"error,omitempty"`
}
