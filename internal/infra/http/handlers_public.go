package http

import (
	"net/http"

	"signflow/internal/domain"
	"signflow/internal/usecase"

	"github.com/gin-gonic/gin"
)

const (
	purposeSign              = "sign"
	purposeVerifyCertificate = "verify:certificate"
	purposeVerifySignature   = "verify:signature"
)

// signingContextResponse is what a recipient sees when opening their
// signing link: the document, their own identity, and only the fields
// assigned to them.
type signingContextResponse struct {
	Document  documentResponse  `json:"document"`
	Recipient recipientResponse `json:"recipient"`
	Fields    []fieldResponse   `json:"fields"`
}

func (s *Server) handleViewSigning(c *gin.Context) {
	if !s.enforceRateLimit(c, purposeSign) {
		return
	}
	doc, recipient, err := s.signing.View(c.Request.Context(), c.Param("token"), actionFromRequest(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, signingContext(doc, recipient))
}

// signingContext narrows the aggregate to the recipient's own view: the
// token holder never sees other recipients' signing URLs or fields.
func signingContext(doc domain.Document, recipient domain.Recipient) signingContextResponse {
	docResp := documentToResponse(doc)
	docResp.Fields = nil
	for i := range docResp.Recipients {
		docResp.Recipients[i].SigningURL = ""
	}

	var fields []fieldResponse
	for _, f := range doc.Fields {
		if f.RecipientID != recipient.ID {
			continue
		}
		fields = append(fields, fieldResponse{
			ID:       f.ID,
			Type:     string(f.Type),
			Page:     f.Page,
			X:        f.X,
			Y:        f.Y,
			Width:    f.Width,
			Height:   f.Height,
			Required: f.Required,
			Value:    f.Value,
			FilledAt: f.FilledAt,
		})
	}
	return signingContextResponse{
		Document: docResp,
		Recipient: recipientResponse{
			ID:           recipient.ID,
			Name:         recipient.Name,
			Email:        recipient.Email,
			Role:         string(recipient.Role),
			SigningOrder: recipient.SigningOrder,
			Status:       string(recipient.Status),
			SignedAt:     recipient.SignedAt,
		},
		Fields: fields,
	}
}

type fieldValueRequest struct {
	FieldID string `json:"field_id"`
	Value   string `json:"value"`
}

type signRequest struct {
	Values            []fieldValueRequest `json:"values"`
	SignatureImageKey string              `json:"signature_image_key,omitempty"`
}

func (s *Server) handleSubmitSignature(c *gin.Context) {
	if !s.enforceRateLimit(c, purposeSign) {
		return
	}
	var req signRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	input := usecase.SignInput{
		Token:             c.Param("token"),
		SignatureImageKey: req.SignatureImageKey,
		Action:            actionFromRequest(c),
	}
	for _, v := range req.Values {
		input.Values = append(input.Values, usecase.FieldValue{FieldID: v.FieldID, Value: v.Value})
	}
	doc, recipient, err := s.signing.Sign(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, signingContext(doc, recipient))
}

type declineRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleDeclineSigning(c *gin.Context) {
	if !s.enforceRateLimit(c, purposeSign) {
		return
	}
	var req declineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	doc, err := s.signing.Decline(c.Request.Context(), usecase.DeclineInput{
		Token:  c.Param("token"),
		Reason: req.Reason,
		Action: actionFromRequest(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(doc.Status)})
}

func (s *Server) handleVerifyCertificate(c *gin.Context) {
	if !s.enforceRateLimit(c, purposeVerifyCertificate) {
		return
	}
	cert, err := s.certs.VerifyByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, certificateToResponse(cert))
}

func (s *Server) handleVerifySignature(c *gin.Context) {
	if !s.enforceRateLimit(c, purposeVerifySignature) {
		return
	}
	result := s.verifier.VerifyByToken(c.Request.Context(), c.Param("token"))
	c.JSON(http.StatusOK, gin.H{
		"verified":  result.Verified,
		"algorithm": result.Algorithm,
	})
}
