package server

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/usagehub/internal/accountctx"
	datasetdomain "github.com/smallbiznis/usagehub/internal/dataset/domain"
	factdomain "github.com/smallbiznis/usagehub/internal/fact/domain"
	ingestdomain "github.com/smallbiznis/usagehub/internal/ingest/domain"
	"go.uber.org/zap"
)

// maxUploadBytes bounds a single dataset upload.
const maxUploadBytes = 256 << 20

// UploadDataset stores the file blob and registers a queued dataset.
func (s *Server) UploadDataset(c *gin.Context) {
	accountID, ok := accountctx.AccountIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing account"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'file' is required"})
		return
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return
	}

	path, err := s.blob.Upload(c.Request.Context(), fileHeader.Filename, data)
	if err != nil {
		s.log.Error("blob upload failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return
	}

	ds, err := s.datasets.Create(c.Request.Context(), datasetdomain.CreateRequest{
		AccountID:        accountID,
		OriginalFilename: fileHeader.Filename,
		StoragePath:      path,
	})
	if err != nil {
		s.log.Error("dataset create failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "dataset create failed"})
		return
	}

	c.JSON(http.StatusCreated, ds)
}

// RunDataset triggers a synchronous ingestion run. The result is always a
// structured payload; run failures surface as a failed dataset, not a 5xx.
func (s *Server) RunDataset(c *gin.Context) {
	accountID, ok := accountctx.AccountIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing account"})
		return
	}

	datasetID, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid dataset id"})
		return
	}

	result := s.ingest.Run(c.Request.Context(), ingestdomain.RunRequest{
		DatasetID: datasetID,
		AccountID: accountID,
	})
	c.JSON(http.StatusOK, result)
}

func (s *Server) GetDataset(c *gin.Context) {
	accountID, ok := accountctx.AccountIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing account"})
		return
	}

	datasetID, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid dataset id"})
		return
	}

	ds, err := s.datasets.Get(c.Request.Context(), datasetID)
	if err != nil {
		s.log.Error("dataset load failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "dataset load failed"})
		return
	}
	if ds == nil || ds.AccountID != accountID {
		c.JSON(http.StatusNotFound, gin.H{"error": "dataset not found"})
		return
	}

	c.JSON(http.StatusOK, ds)
}

func (s *Server) ListDatasets(c *gin.Context) {
	accountID, ok := accountctx.AccountIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing account"})
		return
	}

	page, pageSize := paginationParams(c)
	resp, err := s.datasets.List(c.Request.Context(), datasetdomain.ListRequest{
		AccountID: accountID,
		Status:    datasetdomain.DatasetStatus(strings.TrimSpace(c.Query("status"))),
		Page:      page,
		PageSize:  pageSize,
		SortBy:    c.Query("sort_by"),
		OrderBy:   c.Query("order_by"),
	})
	if err != nil {
		s.log.Error("dataset list failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "dataset list failed"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) ListDatasetFacts(c *gin.Context) {
	accountID, ok := accountctx.AccountIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing account"})
		return
	}

	datasetID, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid dataset id"})
		return
	}

	page, pageSize := paginationParams(c)
	resp, err := s.facts.ListByDataset(c.Request.Context(), factdomain.ListRequest{
		AccountID: accountID,
		DatasetID: datasetID,
		Page:      page,
		PageSize:  pageSize,
	})
	if err != nil {
		s.log.Error("fact list failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fact list failed"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func paginationParams(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "0"))
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "50"))
	return page, pageSize
}
