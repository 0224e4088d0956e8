package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"postboard/internal/service"
)

// postRequest is a full replacement of the owner-controlled fields; public
// must be present even when false.
type postRequest struct {
	Title   string `json:"title" binding:"required"`
	Content string `json:"content" binding:"required"`
	Public  *bool  `json:"public" binding:"required"`
}

func (r postRequest) input() service.PostInput {
	return service.PostInput{
		Title:   r.Title,
		Content: r.Content,
		Public:  *r.Public,
	}
}

type listPostsQuery struct {
	Skip  int `form:"skip,default=0" binding:"min=0"`
	Limit int `form:"limit,default=100" binding:"min=0"`
}

func (h *Handler) createPost(c *gin.Context) {
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	post, err := h.posts.Create(c.Request.Context(), currentSession(c).User.ID, req.input())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, postToResponse(*post))
}

func (h *Handler) listPosts(c *gin.Context) {
	var query listPostsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		writeBindError(c, err)
		return
	}

	posts, err := h.posts.ListPublic(c.Request.Context(), query.Skip, query.Limit)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]PostResponse, len(posts))
	for i := range posts {
		resp[i] = postToResponse(posts[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getPost(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}

	post, err := h.posts.Get(c.Request.Context(), currentSession(c).User.ID, id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, postToResponse(*post))
}

func (h *Handler) updatePost(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}

	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	post, err := h.posts.Update(c.Request.Context(), currentSession(c).User.ID, id, req.input())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, postToResponse(*post))
}

func (h *Handler) deletePost(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}

	if err := h.posts.Delete(c.Request.Context(), currentSession(c).User.ID, id); err != nil {
		h.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func postID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "post id must be an integer"})
		return 0, false
	}
	return id, true
}
