package server

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"certidocs-backend/internal/common"
	"certidocs-backend/internal/documents"
	"certidocs-backend/internal/repository"
	"certidocs-backend/internal/schema"
)

func registerRoutes(r *gin.Engine, svcs Services) {
	api := r.Group("/api/v1")

	api.POST("/documents", uploadDocument(svcs.Documents))
	api.GET("/documents", listDocuments(svcs.Documents))
	api.GET("/documents/export", exportDocuments(svcs))
	api.GET("/documents/:id", getDocument(svcs.Documents))
	api.GET("/documents/:id/status", documentStatus(svcs.Documents))
	api.GET("/documents/metrics", documentMetrics(svcs.Documents))

	api.POST("/preferences", setPreferences(svcs))
	api.GET("/preferences", getPreferences(svcs))

	api.GET("/templates", listTemplates(svcs))
	api.GET("/templates/schemas/:useCase", getPredefinedSchema(svcs))
}

// userIDParam resolves the user from the user_id query or form value.
func userIDParam(c *gin.Context) (uuid.UUID, bool) {
	raw := c.Query("user_id")
	if raw == "" {
		raw = c.PostForm("user_id")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(c, common.NewAppError("INVALID_INPUT", "user_id must be a valid UUID", common.ErrInvalidInput))
		return uuid.Nil, false
	}
	return id, true
}

func uploadDocument(svc *documents.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDParam(c)
		if !ok {
			return
		}
		fileHeader, err := c.FormFile("file")
		if err != nil {
			writeError(c, common.NewAppError("INVALID_INPUT", "multipart field 'file' is required", common.ErrInvalidInput))
			return
		}
		f, err := fileHeader.Open()
		if err != nil {
			writeError(c, common.WrapError(err, "open uploaded file"))
			return
		}
		defer f.Close()
		content, err := io.ReadAll(f)
		if err != nil {
			writeError(c, common.WrapError(err, "read uploaded file"))
			return
		}

		mimeType := fileHeader.Header.Get("Content-Type")
		doc, err := svc.Upload(c.Request.Context(), documents.UploadInput{
			UserID:   userID,
			Filename: fileHeader.Filename,
			MimeType: mimeType,
			Content:  content,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, doc)
	}
}

func listDocuments(svc *documents.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDParam(c)
		if !ok {
			return
		}
		filter := filterFromQuery(c)
		docs, total, err := svc.List(c.Request.Context(), userID, filter)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"documents": docs, "total": total})
	}
}

func getDocument(svc *documents.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDParam(c)
		if !ok {
			return
		}
		docID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			writeError(c, common.NewAppError("INVALID_INPUT", "document id must be a valid UUID", common.ErrInvalidInput))
			return
		}
		res, err := svc.Get(c.Request.Context(), userID, docID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func documentStatus(svc *documents.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDParam(c)
		if !ok {
			return
		}
		docID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			writeError(c, common.NewAppError("INVALID_INPUT", "document id must be a valid UUID", common.ErrInvalidInput))
			return
		}
		status, err := svc.Status(c.Request.Context(), userID, docID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": status})
	}
}

func documentMetrics(svc *documents.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDParam(c)
		if !ok {
			return
		}
		m, err := svc.Metrics(c.Request.Context(), userID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, m)
	}
}

func exportDocuments(svcs Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDParam(c)
		if !ok {
			return
		}
		data, err := svcs.Export.ExportDocumentsXLSX(c.Request.Context(), userID, filterFromQuery(c))
		if err != nil {
			writeError(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="documents.xlsx"`)
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
	}
}

type preferencesRequest struct {
	UseCase      string         `json:"use_case" binding:"required"`
	CustomFields []schema.Field `json:"custom_fields"`
}

func setPreferences(svcs Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDParam(c)
		if !ok {
			return
		}
		var req preferencesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, common.NewAppError("INVALID_INPUT", "invalid request body: "+err.Error(), common.ErrInvalidInput))
			return
		}
		prefs, err := svcs.Preferences.SetPreferences(c.Request.Context(), userID, req.UseCase, req.CustomFields)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, prefs)
	}
}

func getPreferences(svcs Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDParam(c)
		if !ok {
			return
		}
		prefs, err := svcs.Preferences.GetPreferences(c.Request.Context(), userID)
		if err != nil {
			writeError(c, err)
			return
		}
		if prefs == nil {
			writeError(c, common.ErrNotFound)
			return
		}
		c.JSON(http.StatusOK, prefs)
	}
}

func listTemplates(svcs Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDParam(c)
		if !ok {
			return
		}
		tpls, err := svcs.Templates.ListUserTemplates(c.Request.Context(), userID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"templates": tpls})
	}
}

func getPredefinedSchema(svcs Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		def := svcs.Templates.GetPredefinedSchema(c.Param("useCase"))
		c.JSON(http.StatusOK, def)
	}
}

func filterFromQuery(c *gin.Context) repository.DocumentFilter {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	return repository.DocumentFilter{
		Type:   c.Query("type"),
		Status: c.Query("status"),
		Search: c.Query("search"),
		Limit:  limit,
		Offset: offset,
	}
}
