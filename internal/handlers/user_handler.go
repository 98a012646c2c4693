package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/microcommerce/auth-service/internal/dto"
	"github.com/microcommerce/auth-service/internal/models"
	"github.com/microcommerce/auth-service/internal/services"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) List(c *fiber.Ctx) error {
	var q dto.ListUsersQuery
	if err := c.QueryParser(&q); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid query parameters",
		})
	}
	if err := dto.Validate(&q); err != nil {
		return domainError(c, err)
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 10
	}

	users, total, err := h.userService.ListUsers(c.UserContext(), q)
	if err != nil {
		return domainError(c, err)
	}

	return c.JSON(dto.UserListResponse{
		Users: userResponses(users),
		Total: total,
		Page:  q.Page,
		Limit: q.Limit,
	})
}

func (h *UserHandler) GetByID(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid user id",
		})
	}

	user, err := h.userService.GetByID(c.UserContext(), uint(id))
	if err != nil {
		return domainError(c, err)
	}

	return c.JSON(userResponse(user))
}

func userResponse(u *models.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

func userResponses(users []models.User) []dto.UserResponse {
	out := make([]dto.UserResponse, len(users))
	for i := range users {
		out[i] = userResponse(&users[i])
	}
	return out
}
