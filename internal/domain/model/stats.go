package model

// DashboardStats is the aggregate counters card, assembled from four parallel
// backend calls. A zero value is the documented fallback when any of them fail.
type DashboardStats struct {
	TotalGames     int `json:"totalGames"`
	TotalTeams     int `json:"totalTeams"`
	PublishedNews  int `json:"publishedNews"`
	UniqueUsers    int `json:"uniqueUsers"`
	WeeklyTrendPct int `json:"weeklyTrendPct"`
}

// HealthStatus is the aggregate system-health verdict.
type HealthStatus string

const (
	HealthOperational HealthStatus = "operational"
	HealthDegraded    HealthStatus = "degraded"
	HealthDown        HealthStatus = "down"
)

// ProbeResult is one independent health probe outcome.
type ProbeResult struct {
	Name      string `json:"name"`
	Healthy   bool   `json:"healthy"`
	LatencyMS int64  `json:"latencyMs"`
}

// SystemHealth aggregates the API, storage and cache probes.
// Status is operational only when all three probes are healthy.
type SystemHealth struct {
	Status  HealthStatus `json:"status"`
	API     ProbeResult  `json:"api"`
	Storage ProbeResult  `json:"storage"`
	Cache   ProbeResult  `json:"cache"`
}

// TrendPoint is one entry of a time-ordered (date, count) analytics series.
type TrendPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// EngagementPoint is one day of the daily-active-users series.
type EngagementPoint struct {
	Date        string `json:"date"`
	ActiveUsers int    `json:"activeUsers"`
}

// ContentPerformance is one ranked content entity with its view counters.
type ContentPerformance struct {
	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
	Title      string `json:"title"`
	Views      int    `json:"views"`
	Engagement int    `json:"engagement"`
}

// AdminAction is one flattened audit-log record.
type AdminAction struct {
	ID         string `json:"id"`
	AdminName  string `json:"adminName"`
	Action     string `json:"action"`
	EntityType string `json:"entityType"`
	CreatedAt  string `json:"createdAt"`
}
