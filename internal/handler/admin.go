package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ipsentry/ipsentry/internal/model"
	"github.com/ipsentry/ipsentry/internal/pkg/apperrors"
	"github.com/ipsentry/ipsentry/internal/service"
)

type LogReader interface {
	ListRecent(ctx context.Context, limit int) ([]*model.RequestLog, error)
}

type FlagReader interface {
	ListRecent(ctx context.Context, limit int) ([]*model.SuspiciousIP, error)
}

type BlockReader interface {
	ListRecent(ctx context.Context, limit int) ([]*model.BlockedIP, error)
}

// AdminHandler exposes the blocklist upsert and read-only views over
// the three tables.
type AdminHandler struct {
	blocklist *service.BlocklistService
	logs      LogReader
	flags     FlagReader
	blocks    BlockReader
}

func NewAdminHandler(blocklist *service.BlocklistService, logs LogReader, flags FlagReader, blocks BlockReader) *AdminHandler {
	return &AdminHandler{
		blocklist: blocklist,
		logs:      logs,
		flags:     flags,
		blocks:    blocks,
	}
}

type BlockRequest struct {
	IP     string `json:"ip" binding:"required"`
	Reason string `json:"reason"`
	Days   int    `json:"days"`
}

// UpsertBlock creates or updates the block entry for an address.
// 201 on create, 200 on update.
func (h *AdminHandler) UpsertBlock(c *gin.Context) {
	var req BlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest("invalid request body: " + err.Error()))
		return
	}

	entry, created, err := h.blocklist.Block(c.Request.Context(), req.IP, req.Reason, req.Days)
	if err != nil {
		c.Error(err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"entry": entry, "created": created})
}

func (h *AdminHandler) ListBlocks(c *gin.Context) {
	entries, err := h.blocks.ListRecent(c.Request.Context(), queryLimit(c))
	if err != nil {
		c.Error(apperrors.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"blocks": entries})
}

func (h *AdminHandler) ListLogs(c *gin.Context) {
	entries, err := h.logs.ListRecent(c.Request.Context(), queryLimit(c))
	if err != nil {
		c.Error(apperrors.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": entries})
}

func (h *AdminHandler) ListFlags(c *gin.Context) {
	entries, err := h.flags.ListRecent(c.Request.Context(), queryLimit(c))
	if err != nil {
		c.Error(apperrors.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"flags": entries})
}

func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 {
		return 100
	}
	return limit
}
