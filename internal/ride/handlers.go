package ride

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

type startRequest struct {
	Title string `json:"title"`
}

type coordinatesRequest struct {
	Coordinates []coordinatePayload `json:"coordinates"`
}

type coordinatePayload struct {
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
	Timestamp *time.Time `json:"timestamp"`
}

type endRequest struct {
	DistanceKm float64 `json:"distance"`
	DurationS  int64   `json:"duration"`
	AvgSpeed   float64 `json:"avgSpeed"`
	Calories   float64 `json:"calories"`
}

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		// body is optional; an absent title falls back to the default
		var req startRequest
		_ = c.BodyParser(&req)
		userID, _ := c.Locals("user_id").(string)
		created, err := svc.Start(c.Context(), userID, req.Title)
		if err != nil {
			return errorFor(err)
		}
		return c.Status(fiber.StatusCreated).JSON(created)
	})

	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)
		rides, err := svc.List(c.Context(), userID)
		if err != nil {
			return errorFor(err)
		}
		return c.JSON(rides)
	})

	r.Get("/latest", authMiddleware, func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)
		latest, err := svc.Latest(c.Context(), userID)
		if err != nil {
			return errorFor(err)
		}
		return c.JSON(latest)
	})

	r.Get("/:id", authMiddleware, func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)
		found, err := svc.Get(c.Context(), c.Params("id"), userID)
		if err != nil {
			return errorFor(err)
		}
		return c.JSON(found)
	})

	r.Put("/:id/coordinates", authMiddleware, func(c *fiber.Ctx) error {
		var req coordinatesRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		if len(req.Coordinates) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "coordinates required")
		}

		points := make([]RoutePoint, len(req.Coordinates))
		for i, coord := range req.Coordinates {
			if coord.Latitude == nil || coord.Longitude == nil {
				return fiber.NewError(fiber.StatusBadRequest, "latitude and longitude required")
			}
			points[i] = RoutePoint{Latitude: *coord.Latitude, Longitude: *coord.Longitude}
			if coord.Timestamp != nil {
				points[i].RecordedAt = *coord.Timestamp
			}
		}

		userID, _ := c.Locals("user_id").(string)
		route, err := svc.AppendPoints(c.Context(), c.Params("id"), userID, points)
		if err != nil {
			return errorFor(err)
		}
		return c.JSON(route)
	})

	r.Put("/:id/end", authMiddleware, func(c *fiber.Ctx) error {
		var req endRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		userID, _ := c.Locals("user_id").(string)
		ended, err := svc.End(c.Context(), c.Params("id"), userID, EndMetrics{
			DistanceKm: req.DistanceKm,
			DurationS:  req.DurationS,
			AvgSpeed:   req.AvgSpeed,
			Calories:   req.Calories,
		})
		if err != nil {
			return errorFor(err)
		}
		return c.JSON(ended)
	})
}

func errorFor(err error) *fiber.Error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "ride not found")
	case errors.Is(err, ErrNotOwner):
		return fiber.NewError(fiber.StatusUnauthorized, "user not authorized")
	case errors.Is(err, ErrNotActive):
		return fiber.NewError(fiber.StatusBadRequest, "ride is not active")
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
