package handler

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"docuchat/internal/app"
	"docuchat/internal/pkg/pdfextract"
	"docuchat/internal/transport/http/response"
)

const maxPDFSize = 10 << 20 // 10 MB

type LibraryHandler struct {
	libraryService *app.LibraryService
}

type CreateFolderRequest struct {
	Name string `json:"name" binding:"required,max=128"`
}

type GrantFolderRequest struct {
	UserID uint `json:"user_id" binding:"required,gt=0"`
}

type CreateDocumentRequest struct {
	FolderID uint   `json:"folder_id" binding:"required,gt=0"`
	Name     string `json:"name" binding:"max=255"`
	Content  string `json:"content" binding:"required"`
}

func NewLibraryHandler(libraryService *app.LibraryService) *LibraryHandler {
	return &LibraryHandler{libraryService: libraryService}
}

func (h *LibraryHandler) CreateFolder(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req CreateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	folder, err := h.libraryService.CreateFolder(userID, req.Name)
	if err != nil {
		writeLibraryError(c, err, "create folder failed")
		return
	}

	response.OK(c, folder)
}

func (h *LibraryHandler) ListFolders(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	folders, err := h.libraryService.ListFolders(userID)
	if err != nil {
		writeLibraryError(c, err, "list folders failed")
		return
	}

	response.OK(c, folders)
}

func (h *LibraryHandler) GrantFolder(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	folderID, err := parseUintParam(c, "id")
	if err != nil || folderID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid folder id")
		return
	}

	var req GrantFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	if err := h.libraryService.GrantFolder(userID, folderID, req.UserID); err != nil {
		writeLibraryError(c, err, "grant folder failed")
		return
	}

	response.OK(c, gin.H{"folder_id": folderID, "user_id": req.UserID})
}

func (h *LibraryHandler) CreateDocument(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.libraryService.RegisterDocument(c.Request.Context(), app.RegisterDocumentInput{
		UserID:   userID,
		FolderID: req.FolderID,
		Name:     req.Name,
		Content:  req.Content,
	})
	if err != nil {
		writeLibraryError(c, err, "register document failed")
		return
	}

	response.OK(c, result)
}

// UploadPDF accepts a multipart form with "file" (PDF), "folder_id" and
// optional "name", extracts text and registers the document.
func (h *LibraryHandler) UploadPDF(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	if file.Size > maxPDFSize {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file too large (max 10MB)")
		return
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext != ".pdf" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "only PDF files are allowed")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}
	defer f.Close()

	text, err := pdfextract.ExtractText(f)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "failed to extract text from PDF: "+err.Error())
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "PDF contains no extractable text")
		return
	}

	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		name = strings.TrimSuffix(file.Filename, filepath.Ext(file.Filename))
	}

	result, err := h.libraryService.RegisterDocument(c.Request.Context(), app.RegisterDocumentInput{
		UserID:   userID,
		FolderID: parseUintForm(c, "folder_id"),
		Name:     name,
		Content:  text,
	})
	if err != nil {
		writeLibraryError(c, err, "register document failed")
		return
	}

	response.OK(c, result)
}

func (h *LibraryHandler) ListDocuments(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	docs, err := h.libraryService.ListDocuments(userID, parseUintList(c.Query("folder_ids")))
	if err != nil {
		writeLibraryError(c, err, "list documents failed")
		return
	}

	response.OK(c, docs)
}

func (h *LibraryHandler) DeleteDocument(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	docID, err := parseUintParam(c, "id")
	if err != nil || docID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return
	}

	if err := h.libraryService.DeleteDocument(userID, docID); err != nil {
		writeLibraryError(c, err, "delete document failed")
		return
	}

	response.OK(c, gin.H{"deleted_document_id": docID})
}

func writeLibraryError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrUnauthorized):
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, err.Error())
	case errors.Is(err, app.ErrFolderNotFound):
		response.Error(c, http.StatusNotFound, response.CodeFolderNotFound, err.Error())
	case errors.Is(err, app.ErrDocumentNotFound):
		response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	u, err := strconv.ParseUint(c.Param(key), 10, 64)
	return uint(u), err
}

func parseUintForm(c *gin.Context, key string) uint {
	s := c.PostForm(key)
	if s == "" {
		return 0
	}
	u, _ := strconv.ParseUint(s, 10, 64)
	return uint(u)
}

// parseUintList splits a comma-separated query value like "1,2,3".
func parseUintList(raw string) []uint {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]uint, 0, len(parts))
	for _, part := range parts {
		u, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil || u == 0 {
			continue
		}
		ids = append(ids, uint(u))
	}
	return ids
}
