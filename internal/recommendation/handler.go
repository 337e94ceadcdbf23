package recommendation

import (
	"context"
	"errors"
	"net/http"

	"github.com/dustin/movie-recommender/pkg/logger"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
)

// Handler handles HTTP requests for recommendation queries
type Handler struct {
	service Service
	logger  *logger.Logger
}

// NewHandler creates a new recommendation handler
func NewHandler(service Service, log *logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  log.WithComponent("recommendation-handler"),
	}
}

// RecommendRequest is the query body. Absent fields take defaults; an explicit
// empty method is rejected like any other unknown method.
type RecommendRequest struct {
	Movies []string `json:"movies"`
	N      *int     `json:"n"`
	Method *string  `json:"method"`
}

// RecommendResponse always carries non-nil lists
type RecommendResponse struct {
	Recommendations []Recommendation `json:"recommendations"`
	Unresolved      []string         `json:"unresolved"`
	IndexID         string           `json:"index_id"`
	Method          Method           `json:"method"`
}

// Recommend handles a liked-movies query
func (h *Handler) Recommend(c *gin.Context) {
	var req RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "code": "bad_request"})
		return
	}

	q := TitleQuery{
		Titles: req.Movies,
		N:      h.service.DefaultN(),
		Method: MethodItemCF,
	}
	if req.N != nil {
		q.N = *req.N
	}
	if req.Method != nil {
		q.Method = Method(*req.Method)
	}

	res, err := h.service.Recommend(c.Request.Context(), q)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := RecommendResponse{
		Recommendations: res.Recommendations,
		Unresolved:      res.Unresolved,
		IndexID:         res.IndexID,
		Method:          res.Method,
	}
	if resp.Recommendations == nil {
		resp.Recommendations = []Recommendation{}
	}
	if resp.Unresolved == nil {
		resp.Unresolved = []string{}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	body := gin.H{"error": err.Error(), "code": errorCode(err)}

	var resErr *ResolutionError
	if errors.As(err, &resErr) {
		body["unresolved"] = resErr.Unresolved
	}
	if status == http.StatusServiceUnavailable {
		c.Header("Retry-After", "5")
	}
	if status >= http.StatusInternalServerError {
		h.logger.With("request_id", requestid.Get(c)).Error("Recommendation query failed: " + err.Error())
	}
	c.JSON(status, body)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrEmptyInput), errors.Is(err, ErrUnsupportedMethod):
		return http.StatusBadRequest
	case errors.Is(err, ErrNoLikedItemsResolved):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrIndexUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrEmptyInput):
		return "empty_input"
	case errors.Is(err, ErrUnsupportedMethod):
		return "unsupported_method"
	case errors.Is(err, ErrNoLikedItemsResolved):
		return "no_liked_items_resolved"
	case errors.Is(err, ErrIndexUnavailable):
		return "index_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "internal"
	}
}

// RegisterRoutes registers the recommend endpoint on a router or group
func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.POST("/recommend", h.Recommend)
}
