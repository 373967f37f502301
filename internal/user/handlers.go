package user

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

type profileRequest struct {
	Name string `json:"name"`
}

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/me", authMiddleware, func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)
		u, err := svc.Me(c.Context(), userID)
		if err != nil {
			return errorFor(err)
		}
		return c.JSON(u)
	})

	r.Put("/profile", authMiddleware, func(c *fiber.Ctx) error {
		var req profileRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		userID, _ := c.Locals("user_id").(string)
		u, err := svc.UpdateProfile(c.Context(), userID, req.Name)
		if err != nil {
			return errorFor(err)
		}
		return c.JSON(u)
	})
}

func errorFor(err error) *fiber.Error {
	if errors.Is(err, ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "user not found")
	}
	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}
