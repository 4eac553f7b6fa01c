package http

import (
	"errors"
	"net/http"

	"signflow/internal/domain"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		status, code = http.StatusBadRequest, "INVALID_ARGUMENT"
	case errors.Is(err, domain.ErrNoRecipients):
		status, code = http.StatusBadRequest, "NO_RECIPIENTS"
	case errors.Is(err, domain.ErrAlreadySent):
		status, code = http.StatusConflict, "ALREADY_SENT"
	case errors.Is(err, domain.ErrVoidCompleted):
		status, code = http.StatusConflict, "VOID_COMPLETED"
	case errors.Is(err, domain.ErrAlreadyVoided):
		status, code = http.StatusConflict, "ALREADY_VOIDED"
	case errors.Is(err, domain.ErrNotDraft):
		status, code = http.StatusConflict, "NOT_DRAFT"
	case errors.Is(err, domain.ErrDeleteNonDraft):
		status, code = http.StatusConflict, "DELETE_NON_DRAFT"
	case errors.Is(err, domain.ErrCorrectDraft):
		status, code = http.StatusConflict, "CORRECT_DRAFT"
	case errors.Is(err, domain.ErrIllegalTransition):
		status, code = http.StatusConflict, "ILLEGAL_TRANSITION"
	case errors.Is(err, domain.ErrRecipientFinished):
		status, code = http.StatusConflict, "RECIPIENT_FINISHED"
	case errors.Is(err, domain.ErrViewerCannotSign):
		status, code = http.StatusForbidden, "VIEWER_CANNOT_SIGN"
	case errors.Is(err, domain.ErrFieldsUnfilled):
		status, code = http.StatusBadRequest, "FIELDS_UNFILLED"
	case errors.Is(err, domain.ErrSigningOrderBlocks):
		status, code = http.StatusConflict, "SIGNING_ORDER_BLOCKS"
	case errors.Is(err, domain.ErrNotCompleted):
		status, code = http.StatusConflict, "NOT_COMPLETED"
	case errors.Is(err, domain.ErrReminderNotAllowed):
		status, code = http.StatusConflict, "REMINDER_NOT_ALLOWED"
	case errors.Is(err, domain.ErrNotExpirable):
		status, code = http.StatusConflict, "NOT_EXPIRABLE"
	case errors.Is(err, domain.ErrConflict):
		status, code = http.StatusConflict, "CONFLICT"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrForbidden):
		status, code = http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, domain.ErrUnauthorized):
		status, code = http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, domain.ErrRateLimited):
		status, code = http.StatusTooManyRequests, "RATE_LIMITED"
	}
	writeErrorCode(c, status, code, err.Error())
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{
		Code:    code,
		Message: message,
	})
}
