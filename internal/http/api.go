package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"postboard/internal/domain"
	"postboard/internal/service"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	users  service.UserService
	posts  service.PostService
	auth   service.AuthService
	logger *logrus.Logger
}

func NewHandler(users service.UserService, posts service.PostService, auth service.AuthService, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	registerFieldNames()
	return &Handler{
		users:  users,
		posts:  posts,
		auth:   auth,
		logger: logger,
	}
}

// RegisterRoutes mounts every endpoint on router. Collection paths answer
// with and without the trailing slash; repeated slashes are collapsed.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	// "//token" and "/token" are the same route
	router.RemoveExtraSlash = true
	router.Use(accessLog(h.logger), corsMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.POST("/token", h.issueToken)
	router.POST("/logout", h.requireAuth(), h.logout)

	users := router.Group("/users")
	{
		users.POST("", h.createUser)
		users.POST("/", h.createUser)
		users.GET("", h.requireAuth(), h.listUsers)
		users.GET("/", h.requireAuth(), h.listUsers)
		users.GET("/me", h.requireAuth(), h.currentUser)
	}

	posts := router.Group("/posts", h.requireAuth())
	{
		posts.POST("", h.createPost)
		posts.POST("/", h.createPost)
		posts.GET("", h.listPosts)
		posts.GET("/", h.listPosts)
		posts.GET("/:id", h.getPost)
		posts.PUT("/:id", h.updatePost)
		posts.DELETE("/:id", h.deletePost)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "WWW-Authenticate")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func accessLog(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"client":  c.ClientIP(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("request")
			return
		}
		entry.Info("request")
	}
}

type UserResponse struct {
	ID        int64   `json:"id"`
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	FullName  *string `json:"full_name"`
	Disabled  bool    `json:"disabled"`
	CreatedAt string  `json:"created_at"`
}

type PostResponse struct {
	ID        int64  `json:"id"`
	OwnerID   int64  `json:"owner_id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Public    bool   `json:"public"`
	CreatedAt string `json:"created_at"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

func userToResponse(user domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FullName:  user.FullName,
		Disabled:  user.Disabled,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	}
}

func postToResponse(post domain.Post) PostResponse {
	return PostResponse{
		ID:        post.ID,
		OwnerID:   post.OwnerID,
		Title:     post.Title,
		Content:   post.Content,
		Public:    post.Public,
		CreatedAt: post.CreatedAt.Format(time.RFC3339),
	}
}
