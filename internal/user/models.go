package user

import "time"

type User struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Email     string        `json:"email"`
	Stats     LifetimeStats `json:"lifetime_stats"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// LifetimeStats is a cache of the user's cumulative totals over completed
// rides. The ride set is the source of truth; Recompute rebuilds these
// values from it.
type LifetimeStats struct {
	TotalDistanceKm float64 `json:"total_distance_km"`
	TotalDurationS  int64   `json:"total_duration_s"`
	AvgSpeedKmh     float64 `json:"avg_speed_kmh"`
	TotalCalories   float64 `json:"total_calories"`
}
