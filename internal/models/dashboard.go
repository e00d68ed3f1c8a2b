package models

// ── Dashboard Metrics ────────────────────────────────────────────

// DashboardMetrics holds the main dashboard statistics.
type DashboardMetrics struct {
	TotalCrew          int `json:"totalCrew"`
	OnBoard            int `json:"onBoard"`
	OnShore            int `json:"onShore"`
	ActiveContracts    int `json:"activeContracts"`
	ValidDocuments     int `json:"validDocuments"`
	ExpiringDocuments  int `json:"expiringDocuments"`
	ExpiredDocuments   int `json:"expiredDocuments"`
	ContractsEnding    int `json:"contractsEnding"` // active contracts ending within 30 days
}

// ── Expiry Alerts ────────────────────────────────────────────────

// ExpiryAlert represents a document or contract nearing/past expiry.
type ExpiryAlert struct {
	Kind         string `json:"kind"` // "document" | "contract"
	EntityID     string `json:"entityId"`
	CrewID       string `json:"crewId"`
	CrewName     string `json:"crewName"`
	CrewRank     string `json:"crewRank"`
	VesselName   string `json:"vesselName,omitempty"`
	DocumentType string `json:"documentType,omitempty"`
	ExpiryDate   string `json:"expiryDate"`
	DaysLeft     int    `json:"daysLeft"`
	Status       string `json:"status"`
}

// ── Compliance Stats ─────────────────────────────────────────────

// ComplianceStats provides a fleet-wide compliance overview.
type ComplianceStats struct {
	TotalCrew         int               `json:"totalCrew"`
	TotalDocuments    int               `json:"totalDocuments"`
	DocumentsByStatus map[string]int    `json:"documentsByStatus"` // status → count
	CompletionRate    float64           `json:"completionRate"`    // share of tracked slots with an uploaded file
	VesselBreakdown   []VesselCompliance `json:"vesselBreakdown"`
	CriticalAlerts    []ExpiryAlert     `json:"criticalAlerts"`
}

// VesselCompliance is per-vessel compliance stats.
type VesselCompliance struct {
	VesselID      string `json:"vesselId"`
	VesselName    string `json:"vesselName"`
	OnboardCount  int    `json:"onboardCount"`
	ExpiredCount  int    `json:"expiredCount"`
	ExpiringCount int    `json:"expiringCount"`
	MissingCount  int    `json:"missingCount"`
}
