package ride

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/vsundaran/cycle-tracker/internal/db"
	"github.com/vsundaran/cycle-tracker/internal/live"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrNotFound  = errors.New("ride not found")
	ErrNotOwner  = errors.New("user not authorized")
	ErrNotActive = errors.New("ride is not active")
)

type Service struct {
	db  db.Querier
	hub *live.Hub
}

func NewService(db db.Querier, hub *live.Hub) *Service {
	return &Service{db: db, hub: hub}
}

func (s *Service) Start(ctx context.Context, ownerID, title string) (Ride, error) {
	if title == "" {
		title = "New Ride"
	}

	r := Ride{
		ID:        uuid.NewString(),
		UserID:    ownerID,
		Title:     title,
		StartTime: time.Now(),
		Status:    StatusActive,
		Route:     []RoutePoint{},
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO rides (id, user_id, title, start_time, status)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at
	`, r.ID, r.UserID, r.Title, r.StartTime, string(r.Status))
	if err := row.Scan(&r.CreatedAt); err != nil {
		return Ride{}, err
	}
	return r, nil
}

// AppendPoints appends a batch of coordinates to an active ride owned by
// the requester and returns the full route. The insert is a single
// statement guarded by the ride's status, so concurrent batches may
// interleave but none is ever lost, and no point can land on a ride that
// completed in the meantime.
func (s *Service) AppendPoints(ctx context.Context, rideID, requesterID string, points []RoutePoint) ([]RoutePoint, error) {
	r, err := s.owned(ctx, rideID, requesterID)
	if err != nil {
		return nil, err
	}
	if r.Status != StatusActive {
		return nil, ErrNotActive
	}

	if len(points) > 0 {
		lats := make([]float64, len(points))
		lngs := make([]float64, len(points))
		times := make([]time.Time, len(points))
		for i, p := range points {
			lats[i] = p.Latitude
			lngs[i] = p.Longitude
			if p.RecordedAt.IsZero() {
				p.RecordedAt = time.Now()
			}
			times[i] = p.RecordedAt
		}

		tag, err := s.db.Exec(ctx, `
			INSERT INTO ride_points (ride_id, latitude, longitude, recorded_at)
			SELECT r.id, p.latitude, p.longitude, p.recorded_at
			FROM rides r,
			     unnest($2::float8[], $3::float8[], $4::timestamptz[]) AS p(latitude, longitude, recorded_at)
			WHERE r.id = $1 AND r.status = 'active'
		`, rideID, lats, lngs, times)
		if err != nil {
			return nil, err
		}
		if tag.RowsAffected() == 0 {
			// ride completed between the ownership check and the insert
			return nil, ErrNotActive
		}

		if s.hub != nil {
			payload, _ := json.Marshal(points)
			s.hub.Broadcast(rideID, payload)
		}
	}

	return s.route(ctx, rideID)
}

// End completes an active ride with the client-reported metrics and adds
// them to the owner's lifetime totals. Both writes happen in one
// transaction; the status predicate on the ride update makes a
// concurrent or repeated End lose the race instead of double-counting.
func (s *Service) End(ctx context.Context, rideID, requesterID string, m EndMetrics) (Ride, error) {
	r, err := s.owned(ctx, rideID, requesterID)
	if err != nil {
		return Ride{}, err
	}
	if r.Status != StatusActive {
		return Ride{}, ErrNotActive
	}

	endTime := time.Now()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Ride{}, err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE rides
		SET end_time=$2, duration_s=$3, distance_km=$4, avg_speed_kmh=$5, calories=$6, status='completed'
		WHERE id=$1 AND status='active'
	`, rideID, endTime, m.DurationS, m.DistanceKm, m.AvgSpeed, m.Calories)
	if err != nil {
		_ = tx.Rollback(ctx)
		return Ride{}, err
	}
	if tag.RowsAffected() == 0 {
		_ = tx.Rollback(ctx)
		return Ride{}, ErrNotActive
	}

	_, err = tx.Exec(ctx, `
		UPDATE users
		SET lifetime_distance_km = lifetime_distance_km + $2,
		    lifetime_duration_s = lifetime_duration_s + $3,
		    lifetime_calories = lifetime_calories + $4,
		    lifetime_avg_speed_kmh = CASE WHEN lifetime_duration_s + $3 > 0
		        THEN (lifetime_distance_km + $2) / ((lifetime_duration_s + $3) / 3600.0)
		        ELSE 0 END
		WHERE id=$1
	`, r.UserID, m.DistanceKm, m.DurationS, m.Calories)
	if err != nil {
		_ = tx.Rollback(ctx)
		return Ride{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Ride{}, err
	}

	r.EndTime = &endTime
	r.DurationS = m.DurationS
	r.DistanceKm = m.DistanceKm
	r.AvgSpeed = m.AvgSpeed
	r.Calories = m.Calories
	r.Status = StatusCompleted

	route, err := s.route(ctx, rideID)
	if err != nil {
		return Ride{}, err
	}
	r.Route = route
	return r, nil
}

func (s *Service) Get(ctx context.Context, rideID, requesterID string) (Ride, error) {
	r, err := s.owned(ctx, rideID, requesterID)
	if err != nil {
		return Ride{}, err
	}
	r.Route, err = s.route(ctx, rideID)
	if err != nil {
		return Ride{}, err
	}
	return r, nil
}

func (s *Service) List(ctx context.Context, ownerID string) ([]Ride, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, title, start_time, end_time, duration_s, distance_km, avg_speed_kmh, calories, status, created_at
		FROM rides WHERE user_id=$1
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []Ride
	for rows.Next() {
		r, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range rides {
		rides[i].Route, err = s.route(ctx, rides[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return rides, nil
}

func (s *Service) Latest(ctx context.Context, ownerID string) (Ride, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, user_id, title, start_time, end_time, duration_s, distance_km, avg_speed_kmh, calories, status, created_at
		FROM rides WHERE user_id=$1
		ORDER BY created_at DESC
		LIMIT 1
	`, ownerID)

	r, err := scanRide(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Ride{}, ErrNotFound
	}
	if err != nil {
		return Ride{}, err
	}
	r.Route, err = s.route(ctx, r.ID)
	if err != nil {
		return Ride{}, err
	}
	return r, nil
}

// owned loads a ride without its route and enforces ownership.
func (s *Service) owned(ctx context.Context, rideID, requesterID string) (Ride, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, user_id, title, start_time, end_time, duration_s, distance_km, avg_speed_kmh, calories, status, created_at
		FROM rides WHERE id=$1
	`, rideID)

	r, err := scanRide(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Ride{}, ErrNotFound
	}
	if err != nil {
		return Ride{}, err
	}
	if r.UserID != requesterID {
		return Ride{}, ErrNotOwner
	}
	return r, nil
}

func (s *Service) route(ctx context.Context, rideID string) ([]RoutePoint, error) {
	rows, err := s.db.Query(ctx, `
		SELECT latitude, longitude, recorded_at
		FROM ride_points WHERE ride_id=$1
		ORDER BY id
	`, rideID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	route := []RoutePoint{}
	for rows.Next() {
		var p RoutePoint
		if err := rows.Scan(&p.Latitude, &p.Longitude, &p.RecordedAt); err != nil {
			return nil, err
		}
		route = append(route, p)
	}
	return route, rows.Err()
}

func scanRide(row pgx.Row) (Ride, error) {
	var r Ride
	var endTime sql.NullTime
	var status string
	err := row.Scan(&r.ID, &r.UserID, &r.Title, &r.StartTime, &endTime,
		&r.DurationS, &r.DistanceKm, &r.AvgSpeed, &r.Calories, &status, &r.CreatedAt)
	if err != nil {
		return Ride{}, err
	}
	if endTime.Valid {
		t := endTime.Time
		r.EndTime = &t
	}
	r.Status = Status(status)
	return r, nil
}
