package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vsundaran/cycle-tracker/internal/geo"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
)

var userColumns = []string{"id", "name", "email", "lifetime_distance_km", "lifetime_duration_s", "lifetime_avg_speed_kmh", "lifetime_calories", "created_at", "updated_at"}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func userRow(id string) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows(userColumns).
		AddRow(id, "Rider", "rider@example.com", 0.0, int64(0), 0.0, 0.0, now, now)
}

func TestMeRecomputesAndPersists(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`FROM users WHERE id=`).
		WithArgs("user-1").
		WillReturnRows(userRow("user-1"))

	// ride-2 has no stored distance and falls back to its route
	mock.ExpectQuery(`FROM rides`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "distance_km", "duration_s", "calories"}).
			AddRow("ride-1", 10.0, int64(3600), 500.0).
			AddRow("ride-2", 0.0, int64(1800), 200.0))

	route := []geo.Point{{Latitude: 0, Longitude: 0}, {Latitude: 0, Longitude: 0.5}, {Latitude: 0, Longitude: 1}}
	routeRows := pgxmock.NewRows([]string{"latitude", "longitude"})
	for _, p := range route {
		routeRows.AddRow(p.Latitude, p.Longitude)
	}
	mock.ExpectQuery(`FROM ride_points`).
		WithArgs("ride-2").
		WillReturnRows(routeRows)

	wantDistance := 10 + geo.RouteDistanceKm(route)
	wantDuration := int64(5400)
	wantAvg := wantDistance / (float64(wantDuration) / 3600)
	mock.ExpectExec(`UPDATE users`).
		WithArgs("user-1", wantDistance, wantDuration, wantAvg, 700.0).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	svc := NewService(mock)
	me, err := svc.Me(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if me.Stats.TotalDistanceKm != wantDistance {
		t.Fatalf("unexpected distance: %v", me.Stats.TotalDistanceKm)
	}
	if me.Stats.TotalDurationS != wantDuration || me.Stats.TotalCalories != 700 {
		t.Fatalf("unexpected stats: %+v", me.Stats)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMeUserNotFound(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`FROM users WHERE id=`).
		WithArgs("user-404").
		WillReturnError(pgx.ErrNoRows)

	svc := NewService(mock)
	if _, err := svc.Me(context.Background(), "user-404"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecomputeNoCompletedRides(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`FROM rides`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "distance_km", "duration_s", "calories"}))

	svc := NewService(mock)
	stats, err := svc.Recompute(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if stats != (LifetimeStats{}) {
		t.Fatalf("expected zero stats, got %+v", stats)
	}
}

func TestRecomputeAvgSpeedZeroWhenNoDuration(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`FROM rides`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "distance_km", "duration_s", "calories"}).
			AddRow("ride-1", 5.0, int64(0), 100.0))

	svc := NewService(mock)
	stats, err := svc.Recompute(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if stats.AvgSpeedKmh != 0 {
		t.Fatalf("expected zero avg speed, got %v", stats.AvgSpeedKmh)
	}
	if stats.TotalDistanceKm != 5 {
		t.Fatalf("expected distance kept, got %v", stats.TotalDistanceKm)
	}
}

func TestRecomputeShortRouteFallbackIsZero(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`FROM rides`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "distance_km", "duration_s", "calories"}).
			AddRow("ride-1", 0.0, int64(600), 50.0))
	mock.ExpectQuery(`FROM ride_points`).
		WithArgs("ride-1").
		WillReturnRows(pgxmock.NewRows([]string{"latitude", "longitude"}).
			AddRow(1.0, 1.0))

	svc := NewService(mock)
	stats, err := svc.Recompute(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if stats.TotalDistanceKm != 0 {
		t.Fatalf("single-point route should contribute no distance: %v", stats.TotalDistanceKm)
	}
	if stats.TotalDurationS != 600 || stats.TotalCalories != 50 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestRecomputeIdempotent(t *testing.T) {
	mock := newMock(t)

	rides := func() *pgxmock.Rows {
		return pgxmock.NewRows([]string{"id", "distance_km", "duration_s", "calories"}).
			AddRow("ride-1", 10.0, int64(3600), 500.0)
	}
	mock.ExpectQuery(`FROM rides`).WithArgs("user-1").WillReturnRows(rides())
	mock.ExpectQuery(`FROM rides`).WithArgs("user-1").WillReturnRows(rides())

	svc := NewService(mock)
	first, err := svc.Recompute(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("first recompute: %v", err)
	}
	second, err := svc.Recompute(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("second recompute: %v", err)
	}
	if first != second {
		t.Fatalf("recompute not idempotent: %+v vs %+v", first, second)
	}
	if first.TotalDistanceKm != 10 || first.AvgSpeedKmh != 10 {
		t.Fatalf("unexpected stats: %+v", first)
	}
}

func TestUpdateProfile(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`FROM users WHERE id=`).
		WithArgs("user-1").
		WillReturnRows(userRow("user-1"))
	mock.ExpectQuery(`UPDATE users SET name=`).
		WithArgs("user-1", "New Name").
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))

	svc := NewService(mock)
	updated, err := svc.UpdateProfile(context.Background(), "user-1", "New Name")
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.Name != "New Name" {
		t.Fatalf("unexpected name: %s", updated.Name)
	}
}

func TestUpdateProfileEmptyNameKeepsOld(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`FROM users WHERE id=`).
		WithArgs("user-1").
		WillReturnRows(userRow("user-1"))
	mock.ExpectQuery(`UPDATE users SET name=`).
		WithArgs("user-1", "Rider").
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))

	svc := NewService(mock)
	updated, err := svc.UpdateProfile(context.Background(), "user-1", "")
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.Name != "Rider" {
		t.Fatalf("unexpected name: %s", updated.Name)
	}
}
