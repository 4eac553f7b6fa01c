package domain

import "errors"

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrRateLimited     = errors.New("rate limited")

	// Lifecycle guard violations. Each carries the human-readable reason
	// the caller sees, so handlers can surface them verbatim.
	ErrAlreadySent        = errors.New("document has already been sent")
	ErrNoRecipients       = errors.New("document has no recipients")
	ErrVoidCompleted      = errors.New("cannot void a completed document")
	ErrAlreadyVoided      = errors.New("document is already voided")
	ErrNotDraft           = errors.New("document is not a draft")
	ErrDeleteNonDraft     = errors.New("document must be voided, not deleted")
	ErrCorrectDraft       = errors.New("draft documents are edited directly, not corrected")
	ErrIllegalTransition  = errors.New("illegal status transition")
	ErrRecipientFinished  = errors.New("recipient has already signed or declined")
	ErrViewerCannotSign   = errors.New("viewer recipients cannot sign or decline")
	ErrFieldsUnfilled     = errors.New("required fields are not filled")
	ErrSigningOrderBlocks = errors.New("an earlier recipient has not signed yet")
	ErrNotCompleted       = errors.New("document is not completed")
	ErrReminderNotAllowed = errors.New("document status does not allow reminders")
	ErrNotExpirable       = errors.New("document expiration date has not passed")
)
