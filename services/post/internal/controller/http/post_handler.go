package http

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tell-all/pkg/logger"
	"tell-all/services/post/internal/entity"
	"tell-all/services/post/internal/usecase"

	"github.com/gin-gonic/gin"
)

const (
	dateLayout   = "2006-01-02"
	defaultLimit = 20
	maxLimit     = 100
)

type PostHandler struct {
	postUseCase usecase.PostUseCase
	logger      *logger.Logger
}

func NewPostHandler(postUseCase usecase.PostUseCase, logger *logger.Logger) *PostHandler {
	return &PostHandler{
		postUseCase: postUseCase,
		logger:      logger,
	}
}

// PostResponse is the list representation of a post.
type PostResponse struct {
	Title              string   `json:"title"`
	Slug               string   `json:"slug"`
	Summary            *string  `json:"summary"`
	CoverPicture       *string  `json:"cover_picture"`
	AuthorEmailAddress string   `json:"author_email_address"`
	Status             string   `json:"status"`
	Type               string   `json:"type"`
	PubDate            *string  `json:"pub_date"`
	Tags               []string `json:"tags"`
}

type PostDetailResponse struct {
	PostResponse
	Body     *string `json:"body"`
	BodyHTML string  `json:"body_html"`
}

func toPostResponse(post *entity.Post) PostResponse {
	resp := PostResponse{
		Title:              post.Title,
		Slug:               post.Slug,
		Summary:            post.Summary,
		CoverPicture:       post.CoverPicture,
		AuthorEmailAddress: post.AuthorEmail(),
		Status:             string(post.Status),
		Type:               string(post.Type),
		Tags:               post.TagNames(),
	}
	if post.PubDate != nil {
		d := post.PubDate.Format(dateLayout)
		resp.PubDate = &d
	}
	return resp
}

func toPostResponses(posts []*entity.Post) []PostResponse {
	out := make([]PostResponse, len(posts))
	for i, p := range posts {
		out[i] = toPostResponse(p)
	}
	return out
}

type CreatePostRequest struct {
	Title        string   `form:"title" json:"title"`
	Summary      *string  `form:"summary" json:"summary"`
	Body         *string  `form:"body" json:"body"`
	CoverPicture *string  `form:"-" json:"cover_picture"`
	Type         string   `form:"type" json:"type"`
	PubDate      string   `form:"pub_date" json:"pub_date"`
	Tags         []string `form:"tags" json:"tags"`
}

// EditPostRequest deliberately has no title field; a title in the payload is dropped.
type EditPostRequest struct {
	Summary      *string   `form:"summary" json:"summary"`
	Body         *string   `form:"body" json:"body"`
	CoverPicture *string   `form:"-" json:"cover_picture"`
	Type         *string   `form:"type" json:"type"`
	PubDate      *string   `form:"pub_date" json:"pub_date"`
	Tags         *[]string `form:"-" json:"tags"`
}

// CreatePost godoc
// @Summary      Create a post
// @Description  Create a draft post. Accepts JSON or multipart form; a multipart file named cover_picture is uploaded to object storage.
// @Tags         posts
// @Accept       json,multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreatePostRequest true "Post data"
// @Success      201  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /posts/add [post]
func (h *PostHandler) CreatePost(c *gin.Context) {
	userID := c.GetString("user_id")

	var req CreatePostRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "post creation failed", "errors": gin.H{"non_field_errors": err.Error()}})
		return
	}
	if c.ContentType() != gin.MIMEJSON {
		req.CoverPicture = formString(c, "cover_picture")
	}

	pubDate, ok := parseDate(req.PubDate)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "post creation failed", "errors": gin.H{"pub_date": "Date has wrong format. Use YYYY-MM-DD."}})
		return
	}

	cover, closeCover, err := coverUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "post creation failed", "errors": gin.H{"cover_picture": err.Error()}})
		return
	}
	defer closeCover()

	post, err := h.postUseCase.CreatePost(c.Request.Context(), userID, usecase.CreatePostInput{
		Title:        req.Title,
		Summary:      req.Summary,
		Body:         req.Body,
		CoverPicture: req.CoverPicture,
		Cover:        cover,
		Type:         req.Type,
		PubDate:      pubDate,
		Tags:         req.Tags,
	})
	if err != nil {
		h.writeError(c, "post creation failed", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "post created", "data": toPostResponse(post)})
}

// ListAllPosts godoc
// @Summary      List all posts
// @Description  Every post regardless of status. Admin only.
// @Tags         posts
// @Produce      json
// @Security     BearerAuth
// @Param        status query string false "draft, published or valid_to_publish"
// @Param        type query string false "freemium or premium"
// @Param        pub_date query string false "Exact publication date (YYYY-MM-DD)"
// @Param        tags__name query string false "Tag name"
// @Param        search query string false "Search title and slug"
// @Param        limit query int false "Page size"
// @Param        offset query int false "Page offset"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]interface{}
// @Router       /posts/all [get]
func (h *PostHandler) ListAllPosts(c *gin.Context) {
	q, ok := h.listQuery(c)
	if !ok {
		return
	}

	switch c.Query("status") {
	case "":
	case string(entity.StatusDraft):
		q.View = entity.ViewDraft
	case string(entity.StatusPublished):
		q.View = entity.ViewPublished
	case "valid_to_publish":
		q.View = entity.ViewValidToPublish
	default:
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid filter", "errors": gin.H{"status": "Select a valid choice."}})
		return
	}

	posts, total, err := h.postUseCase.ListAllPosts(c.Request.Context(), q)
	if err != nil {
		h.writeError(c, "failed to fetch posts", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "posts", "count": total, "data": toPostResponses(posts)})
}

// ListPublishedPosts godoc
// @Summary      List published posts
// @Tags         posts
// @Produce      json
// @Param        type query string false "freemium or premium"
// @Param        pub_date query string false "Exact publication date (YYYY-MM-DD)"
// @Param        tags__name query string false "Tag name"
// @Param        search query string false "Search title and slug"
// @Param        limit query int false "Page size"
// @Param        offset query int false "Page offset"
// @Success      200  {object}  map[string]interface{}
// @Router       /posts [get]
func (h *PostHandler) ListPublishedPosts(c *gin.Context) {
	q, ok := h.listQuery(c)
	if !ok {
		return
	}

	posts, total, err := h.postUseCase.ListPublishedPosts(c.Request.Context(), q)
	if err != nil {
		h.writeError(c, "failed to fetch posts", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "published posts", "count": total, "data": toPostResponses(posts)})
}

// GetPublishedPost godoc
// @Summary      Get a published post
// @Description  Published post detail with the body rendered to sanitized HTML.
// @Tags         posts
// @Produce      json
// @Param        slug path string true "Post slug"
// @Success      200  {object}  PostDetailResponse
// @Failure      404  {object}  map[string]string
// @Router       /posts/{slug} [get]
func (h *PostHandler) GetPublishedPost(c *gin.Context) {
	result, err := h.postUseCase.GetPublishedPost(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.writeError(c, "failed to fetch post", err)
		return
	}

	c.JSON(http.StatusOK, PostDetailResponse{
		PostResponse: toPostResponse(result.Post),
		Body:         result.Post.Body,
		BodyHTML:     result.BodyHTML,
	})
}

// EditPost godoc
// @Summary      Edit a post
// @Description  Partial update of summary, body, cover picture, type, pub_date and tags. The title cannot change.
// @Tags         posts
// @Accept       json,multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        slug path string true "Post slug"
// @Param        request body EditPostRequest true "Fields to change"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]string
// @Router       /posts/edit/{slug} [put]
func (h *PostHandler) EditPost(c *gin.Context) {
	userID := c.GetString("user_id")

	var req EditPostRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "post edit failed", "errors": gin.H{"non_field_errors": err.Error()}})
		return
	}
	if c.ContentType() != gin.MIMEJSON {
		req.CoverPicture = formString(c, "cover_picture")
		if tags, ok := c.GetPostFormArray("tags"); ok {
			req.Tags = &tags
		}
	}

	in := usecase.EditPostInput{
		Summary:      req.Summary,
		Body:         req.Body,
		CoverPicture: req.CoverPicture,
		Type:         req.Type,
		Tags:         req.Tags,
	}

	if req.PubDate != nil {
		pubDate, ok := parseDate(*req.PubDate)
		if !ok || pubDate == nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "post edit failed", "errors": gin.H{"pub_date": "Date has wrong format. Use YYYY-MM-DD."}})
			return
		}
		in.PubDate = pubDate
	}

	cover, closeCover, err := coverUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "post edit failed", "errors": gin.H{"cover_picture": err.Error()}})
		return
	}
	defer closeCover()
	in.Cover = cover

	post, err := h.postUseCase.EditPost(c.Request.Context(), c.Param("slug"), userID, in)
	if err != nil {
		h.writeError(c, "post edit failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "post updated", "data": toPostResponse(post)})
}

// DeletePost godoc
// @Summary      Delete a post
// @Tags         posts
// @Security     BearerAuth
// @Param        slug path string true "Post slug"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Router       /posts/delete/{slug} [delete]
func (h *PostHandler) DeletePost(c *gin.Context) {
	if err := h.postUseCase.DeletePost(c.Request.Context(), c.Param("slug")); err != nil {
		h.writeError(c, "post deletion failed", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListTags godoc
// @Summary      List tags
// @Tags         tags
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /tags [get]
func (h *PostHandler) ListTags(c *gin.Context) {
	tags, err := h.postUseCase.ListTags(c.Request.Context())
	if err != nil {
		h.writeError(c, "failed to fetch tags", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "tags", "count": len(tags), "data": tags})
}

// CreateTag godoc
// @Summary      Create a tag
// @Tags         tags
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body object true "Tag" SchemaExample({"name":"golang"})
// @Success      201  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]interface{}
// @Router       /tags [post]
func (h *PostHandler) CreateTag(c *gin.Context) {
	var req struct {
		Name string `json:"name" form:"name"`
	}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "tag creation failed", "errors": gin.H{"non_field_errors": err.Error()}})
		return
	}

	tag, err := h.postUseCase.CreateTag(c.Request.Context(), req.Name)
	if err != nil {
		h.writeError(c, "tag creation failed", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "tag created", "data": tag})
}

func (h *PostHandler) listQuery(c *gin.Context) (usecase.ListQuery, bool) {
	q := usecase.ListQuery{
		Type:   c.Query("type"),
		Tag:    c.Query("tags__name"),
		Search: c.Query("search"),
		Limit:  defaultLimit,
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid filter", "errors": gin.H{"limit": "A valid positive integer is required."}})
			return q, false
		}
		if limit > maxLimit {
			limit = maxLimit
		}
		q.Limit = limit
	}
	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid filter", "errors": gin.H{"offset": "A valid non-negative integer is required."}})
			return q, false
		}
		q.Offset = offset
	}

	pubDate, ok := parseDate(c.Query("pub_date"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid filter", "errors": gin.H{"pub_date": "Date has wrong format. Use YYYY-MM-DD."}})
		return q, false
	}
	q.PubDate = pubDate

	return q, true
}

func (h *PostHandler) writeError(c *gin.Context, message string, err error) {
	if verr, ok := usecase.AsValidationError(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": message, "errors": verr.Fields})
		return
	}

	switch {
	case errors.Is(err, usecase.ErrPostNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Not found."})
	case errors.Is(err, usecase.ErrCoverStoreDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": err.Error()})
	default:
		h.logger.Error("[POST] %s: %v", message, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": message})
	}
}

// parseDate accepts an empty value as "no date".
func parseDate(raw string) (*time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	d, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, false
	}
	return &d, true
}

// formString reads a text field that may share its name with a file field.
func formString(c *gin.Context, key string) *string {
	if v, ok := c.GetPostForm(key); ok {
		return &v
	}
	return nil
}

// coverUpload returns the multipart cover_picture file, if one was sent.
func coverUpload(c *gin.Context) (*usecase.CoverUpload, func(), error) {
	noop := func() {}
	if !strings.HasPrefix(c.ContentType(), gin.MIMEMultipartPOSTForm) {
		return nil, noop, nil
	}

	header, err := c.FormFile("cover_picture")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, noop, nil
		}
		return nil, noop, err
	}

	file, err := header.Open()
	if err != nil {
		return nil, noop, err
	}

	return &usecase.CoverUpload{
		Filename:    header.Filename,
		ContentType: contentType(header),
		Body:        file,
	}, func() { file.Close() }, nil
}

func contentType(header *multipart.FileHeader) string {
	if ct := header.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "image/jpeg"
}
