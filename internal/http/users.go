package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"postboard/internal/service"
)

type createUserRequest struct {
	Username string  `json:"username" binding:"required"`
	Email    string  `json:"email" binding:"required,email"`
	FullName *string `json:"full_name"`
	Disabled *bool   `json:"disabled"`
	Password string  `json:"password" binding:"required,max=72"`
}

func (h *Handler) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	input := service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
	}
	if req.Disabled != nil {
		input.Disabled = *req.Disabled
	}

	user, err := h.users.Register(c.Request.Context(), input)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, userToResponse(*user))
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]UserResponse, len(users))
	for i := range users {
		resp[i] = userToResponse(users[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) currentUser(c *gin.Context) {
	c.JSON(http.StatusOK, userToResponse(*currentSession(c).User))
}
