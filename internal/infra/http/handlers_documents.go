package http

import (
	"net/http"
	"time"

	"signflow/internal/domain"
	"signflow/internal/usecase"

	"github.com/gin-gonic/gin"
)

type recipientRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         string `json:"role,omitempty"`
	SigningOrder int    `json:"signing_order,omitempty"`
}

type fieldRequest struct {
	RecipientEmail string  `json:"recipient_email,omitempty"`
	Type           string  `json:"type"`
	Page           int     `json:"page"`
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	Width          float64 `json:"width"`
	Height         float64 `json:"height"`
	Required       bool    `json:"required"`
}

type createDocumentRequest struct {
	Title          string             `json:"title"`
	Description    string             `json:"description,omitempty"`
	FileKey        string             `json:"file_key"`
	StorageTag     string             `json:"storage_tag,omitempty"`
	PageCount      int                `json:"page_count,omitempty"`
	ExpirationDate *time.Time         `json:"expiration_date,omitempty"`
	Recipients     []recipientRequest `json:"recipients"`
	Fields         []fieldRequest     `json:"fields,omitempty"`
}

type recipientResponse struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Role          string     `json:"role"`
	SigningOrder  int        `json:"signing_order"`
	Status        string     `json:"status"`
	SigningURL    string     `json:"signing_url,omitempty"`
	SignedAt      *time.Time `json:"signed_at,omitempty"`
	DeclineReason string     `json:"decline_reason,omitempty"`
}

type fieldResponse struct {
	ID          string     `json:"id"`
	RecipientID string     `json:"recipient_id,omitempty"`
	Type        string     `json:"type"`
	Page        int        `json:"page"`
	X           float64    `json:"x"`
	Y           float64    `json:"y"`
	Width       float64    `json:"width"`
	Height      float64    `json:"height"`
	Required    bool       `json:"required"`
	Value       string     `json:"value,omitempty"`
	FilledAt    *time.Time `json:"filled_at,omitempty"`
}

type documentResponse struct {
	ID             string              `json:"id"`
	TeamID         string              `json:"team_id"`
	Title          string              `json:"title"`
	Description    string              `json:"description,omitempty"`
	FileKey        string              `json:"file_key"`
	PageCount      int                 `json:"page_count,omitempty"`
	Status         string              `json:"status"`
	SentAt         *time.Time          `json:"sent_at,omitempty"`
	CompletedAt    *time.Time          `json:"completed_at,omitempty"`
	DeclinedAt     *time.Time          `json:"declined_at,omitempty"`
	VoidedAt       *time.Time          `json:"voided_at,omitempty"`
	VoidReason     string              `json:"void_reason,omitempty"`
	ExpirationDate *time.Time          `json:"expiration_date,omitempty"`
	Recipients     []recipientResponse `json:"recipients"`
	Fields         []fieldResponse     `json:"fields,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
}

type deliveryResponse struct {
	Delivered []string `json:"delivered"`
	Failed    []string `json:"failed,omitempty"`
}

func documentToResponse(doc domain.Document) documentResponse {
	out := documentResponse{
		ID:             doc.ID,
		TeamID:         doc.TeamID,
		Title:          doc.Title,
		Description:    doc.Description,
		FileKey:        doc.FileKey,
		PageCount:      doc.PageCount,
		Status:         string(doc.Status),
		SentAt:         doc.SentAt,
		CompletedAt:    doc.CompletedAt,
		DeclinedAt:     doc.DeclinedAt,
		VoidedAt:       doc.VoidedAt,
		VoidReason:     doc.VoidReason,
		ExpirationDate: doc.ExpirationDate,
		CreatedAt:      doc.CreatedAt,
	}
	out.Recipients = make([]recipientResponse, 0, len(doc.Recipients))
	for _, r := range doc.Recipients {
		out.Recipients = append(out.Recipients, recipientResponse{
			ID:            r.ID,
			Name:          r.Name,
			Email:         r.Email,
			Role:          string(r.Role),
			SigningOrder:  r.SigningOrder,
			Status:        string(r.Status),
			SigningURL:    r.SigningURL,
			SignedAt:      r.SignedAt,
			DeclineReason: r.DeclineReason,
		})
	}
	for _, f := range doc.Fields {
		out.Fields = append(out.Fields, fieldResponse{
			ID:          f.ID,
			RecipientID: f.RecipientID,
			Type:        string(f.Type),
			Page:        f.Page,
			X:           f.X,
			Y:           f.Y,
			Width:       f.Width,
			Height:      f.Height,
			Required:    f.Required,
			Value:       f.Value,
			FilledAt:    f.FilledAt,
		})
	}
	return out
}

func actionFromRequest(c *gin.Context) usecase.ActionContext {
	return usecase.ActionContext{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Referer:   c.GetHeader("Referer"),
		SessionID: c.GetHeader("X-Session-ID"),
	}
}

func fieldInputs(reqs []fieldRequest) []usecase.FieldInput {
	out := make([]usecase.FieldInput, 0, len(reqs))
	for _, f := range reqs {
		out = append(out, usecase.FieldInput{
			RecipientEmail: f.RecipientEmail,
			Type:           domain.FieldType(f.Type),
			Page:           f.Page,
			X:              f.X,
			Y:              f.Y,
			Width:          f.Width,
			Height:         f.Height,
			Required:       f.Required,
		})
	}
	return out
}

func (s *Server) handleCreateDocument(c *gin.Context) {
	principal, ok := s.requireAuth(c, domain.PermDocWrite, "")
	if !ok {
		return
	}
	var req createDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	input := usecase.CreateDocumentInput{
		TeamID:         principal.TeamID,
		CreatedBy:      principal.Subject,
		Title:          req.Title,
		Description:    req.Description,
		FileKey:        req.FileKey,
		StorageTag:     req.StorageTag,
		PageCount:      req.PageCount,
		ExpirationDate: req.ExpirationDate,
		Fields:         fieldInputs(req.Fields),
		Action:         actionFromRequest(c),
	}
	for _, r := range req.Recipients {
		input.Recipients = append(input.Recipients, usecase.RecipientInput{
			Name:         r.Name,
			Email:        r.Email,
			Role:         domain.RecipientRole(r.Role),
			SigningOrder: r.SigningOrder,
		})
	}
	doc, err := s.documents.Create(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, documentToResponse(doc))
}

func (s *Server) handleGetDocument(c *gin.Context) {
	principal, ok := s.requireAuth(c, domain.PermDocRead, "")
	if !ok {
		return
	}
	doc, err := s.documents.Get(c.Request.Context(), principal.TeamID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, documentToResponse(doc))
}

type replaceFieldsRequest struct {
	Fields []fieldRequest `json:"fields"`
}

func (s *Server) handleReplaceFields(c *gin.Context) {
	principal, ok := s.requireAuth(c, domain.PermDocWrite, "")
	if !ok {
		return
	}
	var req replaceFieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	doc, err := s.documents.ReplaceFields(c.Request.Context(), principal.TeamID, c.Param("id"), fieldInputs(req.Fields))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, documentToResponse(doc))
}

func (s *Server) handleSendDocument(c *gin.Context) {
	principal, ok := s.requireAuth(c, domain.PermDocSend, "")
	if !ok {
		return
	}
	doc, delivery, err := s.documents.Send(c.Request.Context(), usecase.SendDocumentInput{
		TeamID: principal.TeamID,
		DocID:  c.Param("id"),
		Action: actionFromRequest(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"document": documentToResponse(doc),
		"delivery": deliveryResponse(delivery),
	})
}

type remindRequest struct {
	RecipientID string `json:"recipient_id,omitempty"`
}

func (s *Server) handleRemind(c *gin.Context) {
	principal, ok := s.requireAuth(c, domain.PermDocSend, "")
	if !ok {
		return
	}
	var req remindRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
			return
		}
	}
	delivery, err := s.documents.Remind(c.Request.Context(), usecase.RemindInput{
		TeamID:      principal.TeamID,
		DocID:       c.Param("id"),
		RecipientID: req.RecipientID,
		Action:      actionFromRequest(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, deliveryResponse(delivery))
}

type voidRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleVoidDocument(c *gin.Context) {
	principal, ok := s.requireAuth(c, domain.PermDocVoid, "")
	if !ok {
		return
	}
	var req voidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	doc, err := s.documents.Void(c.Request.Context(), usecase.VoidInput{
		TeamID: principal.TeamID,
		DocID:  c.Param("id"),
		Reason: req.Reason,
		Action: actionFromRequest(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, documentToResponse(doc))
}

func (s *Server) handleCorrectDocument(c *gin.Context) {
	principal, ok := s.requireAuth(c, domain.PermDocVoid, "")
	if !ok {
		return
	}
	successor, err := s.corrections.Correct(c.Request.Context(), usecase.CorrectInput{
		TeamID: principal.TeamID,
		DocID:  c.Param("id"),
		Action: actionFromRequest(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, documentToResponse(successor))
}

func (s *Server) handleExpireDocument(c *gin.Context) {
	principal, ok := s.requireAuth(c, domain.PermDocAdmin, "")
	if !ok {
		return
	}
	doc, err := s.documents.Expire(c.Request.Context(), principal.TeamID, c.Param("id"), actionFromRequest(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, documentToResponse(doc))
}

func (s *Server) handleDeleteDocument(c *gin.Context) {
	principal, ok := s.requireAuth(c, domain.PermDocWrite, "")
	if !ok {
		return
	}
	if err := s.documents.Delete(c.Request.Context(), principal.TeamID, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type certificateResponse struct {
	ID          string              `json:"id"`
	DocumentID  string              `json:"document_id"`
	Title       string              `json:"title"`
	CompletedAt time.Time           `json:"completed_at"`
	Recipients  []recipientResponse `json:"recipients"`
}

func certificateToResponse(cert domain.Certificate) certificateResponse {
	out := certificateResponse{
		ID:          cert.ID,
		DocumentID:  cert.DocumentID,
		Title:       cert.Title,
		CompletedAt: cert.CompletedAt,
	}
	for _, r := range cert.Recipients {
		out.Recipients = append(out.Recipients, recipientResponse{
			ID:           r.ID,
			Name:         r.Name,
			Email:        r.Email,
			Role:         string(r.Role),
			SigningOrder: r.SigningOrder,
			Status:       string(r.Status),
			SignedAt:     r.SignedAt,
		})
	}
	return out
}

func (s *Server) handleGetCertificate(c *gin.Context) {
	principal, ok := s.requireAuth(c, domain.PermDocRead, "")
	if !ok {
		return
	}
	cert, err := s.certs.Get(c.Request.Context(), principal.TeamID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, certificateToResponse(cert))
}

func (s *Server) handleDownloadDocument(c *gin.Context) {
	principal, ok := s.requireAuth(c, domain.PermDocRead, "")
	if !ok {
		return
	}
	data, doc, err := s.documents.Download(c.Request.Context(), principal.TeamID, c.Param("id"), actionFromRequest(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+doc.Title+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", data)
}

type auditEntryResponse struct {
	ID          string         `json:"id"`
	DocumentID  string         `json:"document_id"`
	RecipientID string         `json:"recipient_id,omitempty"`
	Event       string         `json:"event"`
	IPAddress   string         `json:"ip_address,omitempty"`
	Browser     string         `json:"browser,omitempty"`
	OS          string         `json:"os,omitempty"`
	Device      string         `json:"device,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

func auditEntriesToResponse(entries []domain.AuditEntry) []auditEntryResponse {
	out := make([]auditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditEntryResponse{
			ID:          e.ID,
			DocumentID:  e.DocumentID,
			RecipientID: e.RecipientID,
			Event:       string(e.Event),
			IPAddress:   e.IPAddress,
			Browser:     e.Browser,
			OS:          e.OS,
			Device:      e.Device,
			Metadata:    e.Metadata,
			CreatedAt:   e.CreatedAt,
		})
	}
	return out
}

func sinceParam(c *gin.Context) (time.Time, bool) {
	raw := c.Query("since")
	if raw == "" {
		return time.Time{}, true
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "since must be RFC3339")
		return time.Time{}, false
	}
	return parsed, true
}

func (s *Server) handleDocumentActivity(c *gin.Context) {
	principal, ok := s.requireAuth(c, domain.PermDocRead, "")
	if !ok {
		return
	}
	since, ok := sinceParam(c)
	if !ok {
		return
	}
	activity, err := s.activity.ForDocument(c.Request.Context(), principal.TeamID, c.Param("id"), since)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"document_id": activity.DocumentID,
		"status":      string(activity.Status),
		"entries":     auditEntriesToResponse(activity.Entries),
	})
}

func (s *Server) handleTeamActivity(c *gin.Context) {
	principal, ok := s.requireAuth(c, domain.PermDocRead, "")
	if !ok {
		return
	}
	since, ok := sinceParam(c)
	if !ok {
		return
	}
	// Admin principals carry no team of their own and name one instead.
	teamID := principal.TeamID
	if teamID == "" {
		teamID = c.Query("team_id")
	}
	if teamID == "" {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "team_id is required")
		return
	}
	entries, err := s.activity.ForTeam(c.Request.Context(), teamID, since)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": auditEntriesToResponse(entries)})
}
