package http

import (
	"net/http"

	"tell-all/pkg/logger"
	"tell-all/services/notification/internal/usecase"

	"github.com/gin-gonic/gin"
)

type MailHandler struct {
	mailUseCase usecase.MailUseCase
	logger      *logger.Logger
}

func NewMailHandler(mailUseCase usecase.MailUseCase, logger *logger.Logger) *MailHandler {
	return &MailHandler{
		mailUseCase: mailUseCase,
		logger:      logger,
	}
}

// GetStats godoc
// @Summary      Mail delivery stats
// @Description  Delivered and failed message counts plus tasks waiting in the mail queue
// @Tags         mail
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  entity.Stats
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /mail/stats [get]
func (h *MailHandler) GetStats(c *gin.Context) {
	stats, err := h.mailUseCase.Stats(c.Request.Context())
	if err != nil {
		h.logger.Error("[MAIL] Failed to read stats: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
