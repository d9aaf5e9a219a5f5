package panel

// Health is the visual category of a health score.
type Health string

const (
	HealthHealthy   Health = "healthy"
	HealthDegraded  Health = "degraded"
	HealthUnhealthy Health = "unhealthy"
)

// Thresholds are exclusive: a score equal to a threshold falls to the lower
// category (80 is degraded, 60 is unhealthy).
const (
	healthyAbove  = 80
	degradedAbove = 60
)

// ClassifyHealth maps a 0-100 score to its category.
func ClassifyHealth(score float64) Health {
	switch {
	case score > healthyAbove:
		return HealthHealthy
	case score > degradedAbove:
		return HealthDegraded
	default:
		return HealthUnhealthy
	}
}
