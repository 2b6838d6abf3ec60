package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/MarkoPoloResearchLab/cylinders/internal/domain"
	"github.com/MarkoPoloResearchLab/cylinders/pkg/stockledger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func successEnvelope(data any, message string) gin.H {
	return gin.H{
		"success": true,
		"data":    data,
		"message": message,
	}
}

func listEnvelope(data any, page domain.Page, message string) gin.H {
	return gin.H{
		"success":    true,
		"data":       data,
		"message":    message,
		"page":       page.Page,
		"limit":      page.Limit,
		"total":      page.Total,
		"totalPages": page.TotalPages,
	}
}

func errorEnvelope(message string, fields map[string]string) gin.H {
	envelope := gin.H{
		"success": false,
		"message": message,
	}
	if len(fields) > 0 {
		envelope["errors"] = fields
	}
	return envelope
}

// respondError maps the domain error taxonomy onto HTTP statuses.
// Anything outside the taxonomy is logged and hidden behind a generic
// internal error.
func (server *Server) respondError(ctx *gin.Context, err error) {
	var validationErr domain.ValidationError
	if errors.As(err, &validationErr) {
		ctx.JSON(http.StatusBadRequest, errorEnvelope(domain.ErrValidation.Error(), validationErr.Fields))
		return
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		ctx.JSON(http.StatusNotFound, errorEnvelope(err.Error(), nil))
	case errors.Is(err, domain.ErrForbidden):
		ctx.JSON(http.StatusForbidden, errorEnvelope(err.Error(), nil))
	case errors.Is(err, domain.ErrConflict):
		ctx.JSON(http.StatusConflict, errorEnvelope(err.Error(), nil))
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInactive),
		errors.Is(err, stockledger.ErrInsufficientStock),
		errors.Is(err, stockledger.ErrAlreadyInitialized),
		errors.Is(err, stockledger.ErrUnknownCylinderType),
		errors.Is(err, stockledger.ErrInvalidQuantity),
		errors.Is(err, stockledger.ErrInvalidReason),
		errors.Is(err, stockledger.ErrInvalidCylinderType),
		errors.Is(err, stockledger.ErrInvalidTenantID):
		ctx.JSON(http.StatusBadRequest, errorEnvelope(err.Error(), nil))
	default:
		server.logger.Error("request failed",
			zap.String("path", ctx.FullPath()),
			zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, errorEnvelope("internal error", nil))
	}
}

func pageParams(ctx *gin.Context) (int, int) {
	page := intQuery(ctx, "page", domain.DefaultPage)
	limit := intQuery(ctx, "limit", domain.DefaultLimit)
	return page, limit
}

func intQuery(ctx *gin.Context, name string, fallback int) int {
	raw := ctx.Query(name)
	if raw == "" {
		return fallback
	}
	value := 0
	for _, character := range raw {
		if character < '0' || character > '9' {
			return fallback
		}
		value = value*10 + int(character-'0')
	}
	return value
}

const dateLayout = "2006-01-02"

func dateQuery(ctx *gin.Context, name string) (*time.Time, error) {
	raw := ctx.Query(name)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, domain.Invalid(name, "expected date in YYYY-MM-DD form")
	}
	return &parsed, nil
}

func requiredDateQuery(ctx *gin.Context, name string) (time.Time, error) {
	parsed, err := dateQuery(ctx, name)
	if err != nil {
		return time.Time{}, err
	}
	if parsed == nil {
		return time.Time{}, domain.Invalid(name, "date is required")
	}
	return *parsed, nil
}

func parseDateField(name string, raw string) (time.Time, error) {
	parsed, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, domain.Invalid(name, "expected date in YYYY-MM-DD form")
	}
	return parsed, nil
}
