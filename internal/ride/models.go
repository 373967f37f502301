package ride

import "time"

type Status string

// A ride starts active and moves one way to completed. Paused exists in
// the stored status set but no operation currently reaches it; pause and
// resume semantics (including how paused intervals count toward
// duration) are still undecided.
const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
)

type Ride struct {
	ID         string       `json:"id"`
	UserID     string       `json:"user_id"`
	Title      string       `json:"title"`
	StartTime  time.Time    `json:"start_time"`
	EndTime    *time.Time   `json:"end_time,omitempty"`
	DurationS  int64        `json:"duration_s"`
	DistanceKm float64      `json:"distance_km"`
	AvgSpeed   float64      `json:"avg_speed_kmh"`
	Calories   float64      `json:"calories"`
	Status     Status       `json:"status"`
	Route      []RoutePoint `json:"route"`
	CreatedAt  time.Time    `json:"created_at"`
}

// RoutePoint is one recorded coordinate of a ride's route. Points are
// append-only; the system never removes or reorders them.
type RoutePoint struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	RecordedAt time.Time `json:"timestamp"`
}

// EndMetrics carries the client-reported summary applied verbatim when a
// ride completes.
type EndMetrics struct {
	DistanceKm float64
	DurationS  int64
	AvgSpeed   float64
	Calories   float64
}
