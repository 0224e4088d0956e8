package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type tokenRequest struct {
	Username  string `form:"username" binding:"required"`
	Password  string `form:"password" binding:"required"`
	GrantType string `form:"grant_type"`
}

// issueToken implements the OAuth2 password grant over a form body.
func (h *Handler) issueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBind(&req); err != nil {
		writeBindError(c, err)
		return
	}
	if req.GrantType != "" && req.GrantType != "password" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "grant_type must be 'password'"})
		return
	}

	token, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, TokenResponse{
		AccessToken: token.Token,
		TokenType:   "bearer",
		ExpiresIn:   int64(time.Until(token.ExpiresAt).Round(time.Second) / time.Second),
	})
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), currentSession(c)); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
