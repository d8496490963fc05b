package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/service"
	appErrors "github.com/LEXHUTCHZZ/ISMIS0.2-sub000/pkg/errors"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/pkg/response"
)

type transcriptService interface {
	Generate(ctx context.Context, studentID string, req service.TranscriptRequest) (*service.TranscriptResult, error)
	Open(token string) (*service.TranscriptFile, error)
}

// TranscriptHandler renders transcripts and serves them through signed links.
type TranscriptHandler struct {
	transcripts transcriptService
}

// NewTranscriptHandler constructs TranscriptHandler.
func NewTranscriptHandler(transcripts transcriptService) *TranscriptHandler {
	return &TranscriptHandler{transcripts: transcripts}
}

// Generate godoc
// @Summary Render transcript
// @Description Renders a CSV or PDF transcript and returns a signed download link.
// @Tags Transcripts
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.TranscriptRequest false "Format, csv or pdf"
// @Success 201 {object} response.Envelope
// @Router /students/{id}/transcript [post]
func (h *TranscriptHandler) Generate(c *gin.Context) {
	var req service.TranscriptRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	if req.Format == "" {
		req.Format = c.Query("format")
	}
	result, err := h.transcripts.Generate(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Download godoc
// @Summary Download transcript via signed token
// @Tags Transcripts
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Router /exports/{token} [get]
func (h *TranscriptHandler) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	file, err := h.transcripts.Open(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Body.Close() //nolint:errcheck
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, file.Size, file.ContentType, file.Body, nil)
}
