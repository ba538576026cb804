package core

// Health statuses.
const (
	StatusExcellent = "excellent"
	StatusHealthy   = "healthy"
	StatusWarning   = "warning"
	StatusCritical  = "critical"
	StatusUnknown   = "unknown"
)

// Alert levels.
const (
	AlertCritical = "critical"
	AlertWarning  = "warning"
)

// NetworkTotals aggregates one card network for a billing month.
type NetworkTotals struct {
	Unbilled      Money `json:"unbilled"`
	Installments  Money `json:"installments"`
	International Money `json:"international"`
	Payments      Money `json:"payments"`
	Total         Money `json:"total"`
}

// ProjectedItem is one projected occurrence listed in the snapshot detail.
type ProjectedItem struct {
	OccurrenceID int64     `json:"occurrence_id"`
	TemplateID   int64     `json:"template_id"`
	Label        string    `json:"label"`
	Direction    Direction `json:"direction"`
	Amount       Money     `json:"amount"`
	Date         Date      `json:"date"`
}

// Projected splits the projected occurrences of a month.
type Projected struct {
	Income  Money           `json:"income"`
	Expense Money           `json:"expense"`
	Detail  []ProjectedItem `json:"detail"`
}

type Alert struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// HealthSnapshot is a derived, never persisted view of the short-term
// financial position for a target month.
type HealthSnapshot struct {
	Owner            string                   `json:"owner"`
	Target           Period                   `json:"target"`
	CheckingBalance  Money                    `json:"checking_balance"`
	Cards            map[string]NetworkTotals `json:"cards"`
	Projected        Projected                `json:"projected"`
	TotalCommitments Money                    `json:"total_commitments"`
	ProjectedBalance Money                    `json:"projected_balance"`
	HealthScore      int                      `json:"health_score"`
	HealthStatus     string                   `json:"health_status"`
	Alerts           []Alert                  `json:"alerts"`
	// Degraded names the sub-fetches that failed and were counted as zero.
	Degraded []string `json:"degraded,omitempty"`
}
