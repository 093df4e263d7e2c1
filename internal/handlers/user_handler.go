package handlers

import (
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/dto"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/services"
	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	authService *services.AuthService
	itemService *services.ItemService
}

func NewUserHandler(authService *services.AuthService, itemService *services.ItemService) *UserHandler {
	return &UserHandler{authService: authService, itemService: itemService}
}

// MyListings returns every listing of the caller, sold ones included.
func (h *UserHandler) MyListings(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return respondError(c, err)
	}

	resp, err := h.itemService.ListBySeller(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

func (h *UserHandler) MyFavorites(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return respondError(c, err)
	}

	resp, err := h.itemService.ListFavorites(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

// DeleteUser removes an account by email. Admin only.
func (h *UserHandler) DeleteUser(c *fiber.Ctx) error {
	var req dto.DeleteUserRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	resp, err := h.authService.DeleteUser(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}
