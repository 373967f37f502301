package user

import (
	"context"
	"errors"

	"github.com/vsundaran/cycle-tracker/internal/db"
	"github.com/vsundaran/cycle-tracker/internal/geo"

	"github.com/jackc/pgx/v5"
)

var ErrNotFound = errors.New("user not found")

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

// Me returns the user's profile with lifetime stats freshly rebuilt from
// their completed rides. The recompute overwrites the stored totals
// unconditionally, which makes it the reconciliation path for any drift
// the per-ride incremental updates may have accumulated.
func (s *Service) Me(ctx context.Context, userID string) (User, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return User{}, err
	}

	stats, err := s.Recompute(ctx, userID)
	if err != nil {
		return User{}, err
	}

	_, err = s.db.Exec(ctx, `
		UPDATE users
		SET lifetime_distance_km=$2, lifetime_duration_s=$3, lifetime_avg_speed_kmh=$4, lifetime_calories=$5
		WHERE id=$1
	`, userID, stats.TotalDistanceKm, stats.TotalDurationS, stats.AvgSpeedKmh, stats.TotalCalories)
	if err != nil {
		return User{}, err
	}

	u.Stats = stats
	return u, nil
}

// Recompute derives lifetime totals from the user's completed rides. Rides
// that were ended without a client-reported distance fall back to the
// haversine length of their recorded route. Read-only over rides.
func (s *Service) Recompute(ctx context.Context, userID string) (LifetimeStats, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, distance_km, duration_s, calories
		FROM rides
		WHERE user_id=$1 AND status='completed'
	`, userID)
	if err != nil {
		return LifetimeStats{}, err
	}
	defer rows.Close()

	type rideRow struct {
		id       string
		distance float64
		duration int64
		calories float64
	}
	var rides []rideRow
	for rows.Next() {
		var r rideRow
		if err := rows.Scan(&r.id, &r.distance, &r.duration, &r.calories); err != nil {
			return LifetimeStats{}, err
		}
		rides = append(rides, r)
	}
	if err := rows.Err(); err != nil {
		return LifetimeStats{}, err
	}

	var stats LifetimeStats
	for _, r := range rides {
		distance := r.distance
		if distance == 0 {
			route, err := s.route(ctx, r.id)
			if err != nil {
				return LifetimeStats{}, err
			}
			distance = geo.RouteDistanceKm(route)
		}
		stats.TotalDistanceKm += distance
		stats.TotalDurationS += r.duration
		stats.TotalCalories += r.calories
	}

	if stats.TotalDurationS > 0 {
		stats.AvgSpeedKmh = stats.TotalDistanceKm / (float64(stats.TotalDurationS) / 3600)
	}
	return stats, nil
}

func (s *Service) Get(ctx context.Context, userID string) (User, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, email, lifetime_distance_km, lifetime_duration_s, lifetime_avg_speed_kmh, lifetime_calories, created_at, updated_at
		FROM users WHERE id=$1
	`, userID)

	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email,
		&u.Stats.TotalDistanceKm, &u.Stats.TotalDurationS, &u.Stats.AvgSpeedKmh, &u.Stats.TotalCalories,
		&u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID, name string) (User, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return User{}, err
	}
	if name != "" {
		u.Name = name
	}

	row := s.db.QueryRow(ctx, `
		UPDATE users SET name=$2, updated_at=NOW()
		WHERE id=$1
		RETURNING updated_at
	`, u.ID, u.Name)
	if err := row.Scan(&u.UpdatedAt); err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *Service) route(ctx context.Context, rideID string) ([]geo.Point, error) {
	rows, err := s.db.Query(ctx, `
		SELECT latitude, longitude
		FROM ride_points WHERE ride_id=$1
		ORDER BY id
	`, rideID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var route []geo.Point
	for rows.Next() {
		var p geo.Point
		if err := rows.Scan(&p.Latitude, &p.Longitude); err != nil {
			return nil, err
		}
		route = append(route, p)
	}
	return route, rows.Err()
}
