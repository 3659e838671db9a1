package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tyemirov/cyberhelp/internal/journal"
)

type deliveryHandler struct {
	deliveries DeliveryLister
	logger     *slog.Logger
}

func newDeliveryHandler(deliveries DeliveryLister, logger *slog.Logger) *deliveryHandler {
	return &deliveryHandler{deliveries: deliveries, logger: logger}
}

func (handler *deliveryHandler) listDeliveries(contextGin *gin.Context) {
	status := journal.Status(strings.ToLower(strings.TrimSpace(contextGin.Query("status"))))
	limit, _ := strconv.Atoi(contextGin.Query("limit"))

	deliveries, err := handler.deliveries.List(contextGin.Request.Context(), status, limit)
	switch {
	case errors.Is(err, journal.ErrInvalidStatus):
		contextGin.JSON(http.StatusBadRequest, gin.H{"error": "status must be sent or failed"})
		return
	case err != nil:
		handler.logger.Error("http_handler_error", "route", "deliveries", "error", err)
		contextGin.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if deliveries == nil {
		deliveries = []journal.Delivery{}
	}
	contextGin.JSON(http.StatusOK, gin.H{"deliveries": deliveries})
}
