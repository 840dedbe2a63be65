package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/iameddypro/furaha-surfing/internal/model"
	"github.com/iameddypro/furaha-surfing/internal/repository"
	"github.com/iameddypro/furaha-surfing/internal/routeros"
)

func (h *Handler) AdminListRouters(c *fiber.Ctx) error {
	routers, err := h.routerSvc.GetAllRouters(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load routers",
		})
	}
	return c.JSON(routers)
}

// RouterRequest is the admin payload for creating or updating a router.
// Credentials ride in here instead of on the model, which keeps them out
// of portal responses.
type RouterRequest struct {
	Name        string `json:"name"`
	Address     string `json:"address"`
	Location    string `json:"location"`
	APIPort     int    `json:"api_port"`
	APIUsername string `json:"api_username"`
	APIPassword string `json:"api_password"`
	IsActive    *bool  `json:"is_active"`
}

func (h *Handler) AdminCreateRouter(c *fiber.Ctx) error {
	var req RouterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Name == "" || req.Address == "" || req.APIUsername == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Name, address and API username are required",
		})
	}

	router := model.RouterDevice{
		Name:        req.Name,
		Address:     req.Address,
		Location:    req.Location,
		APIPort:     req.APIPort,
		APIUsername: req.APIUsername,
		APIPassword: req.APIPassword,
		IsActive:    true,
	}
	if router.APIPort == 0 {
		router.APIPort = 80
	}
	if req.IsActive != nil {
		router.IsActive = *req.IsActive
	}

	if err := h.routerSvc.CreateRouter(c.Context(), &router); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create router",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(router.ToAdmin())
}

func (h *Handler) AdminUpdateRouter(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid router ID",
		})
	}

	var req RouterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	router, err := h.routerSvc.GetRouter(c.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrRouterNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Router not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load router",
		})
	}

	// Omitted fields keep their stored values, the password included.
	if req.Name != "" {
		router.Name = req.Name
	}
	if req.Address != "" {
		router.Address = req.Address
	}
	if req.Location != "" {
		router.Location = req.Location
	}
	if req.APIPort != 0 {
		router.APIPort = req.APIPort
	}
	if req.APIUsername != "" {
		router.APIUsername = req.APIUsername
	}
	if req.APIPassword != "" {
		router.APIPassword = req.APIPassword
	}
	if req.IsActive != nil {
		router.IsActive = *req.IsActive
	}

	if err := h.routerSvc.UpdateRouter(c.Context(), router); err != nil {
		if errors.Is(err, repository.ErrRouterNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Router not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update router",
		})
	}
	return c.JSON(router.ToAdmin())
}

func (h *Handler) AdminDeleteRouter(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid router ID",
		})
	}

	if err := h.routerSvc.DeleteRouter(c.Context(), id); err != nil {
		if errors.Is(err, repository.ErrRouterNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Router not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete router",
		})
	}
	return c.JSON(fiber.Map{"success": true})
}

func (h *Handler) AdminTestRouter(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid router ID",
		})
	}

	if err := h.routerSvc.TestConnection(c.Context(), id); err != nil {
		if errors.Is(err, repository.ErrRouterNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Router not found",
			})
		}
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Router is unreachable",
		})
	}
	return c.JSON(fiber.Map{"success": true})
}

func (h *Handler) AdminGetRouterStatus(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid router ID",
		})
	}

	status, err := h.routerSvc.GetStatus(c.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRouterNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Router not found",
			})
		case errors.Is(err, routeros.ErrUnreachable):
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": "Router is unreachable",
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to load router status",
			})
		}
	}
	return c.JSON(status)
}

func (h *Handler) AdminListRouterSessions(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid router ID",
		})
	}

	sessions, err := h.routerSvc.ListSessions(c.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRouterNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Router not found",
			})
		case errors.Is(err, routeros.ErrUnreachable):
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": "Router is unreachable",
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to load sessions",
			})
		}
	}
	return c.JSON(sessions)
}

func (h *Handler) AdminKickSession(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid router ID",
		})
	}
	entryID := c.Params("entryId")
	if entryID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Session entry ID is required",
		})
	}

	if err := h.routerSvc.KickSession(c.Context(), id, entryID); err != nil {
		switch {
		case errors.Is(err, repository.ErrRouterNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Router not found",
			})
		case errors.Is(err, routeros.ErrUnreachable):
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": "Router is unreachable",
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to kick session",
			})
		}
	}
	return c.JSON(fiber.Map{"success": true})
}
