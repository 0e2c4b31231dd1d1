package handlers

import (
	"net/http"

	"trainbackend/internal/http/middleware"
	"trainbackend/internal/offline"
	"trainbackend/internal/services"

	"github.com/gin-gonic/gin"
)

func syncService(c *gin.Context) services.SyncService {
	return services.SyncService{
		Cache:     offline.Shared(),
		RequestID: middleware.GetRequestID(c),
	}
}

// POST /api/sync triggers one reconciliation pass.
func TriggerSync(c *gin.Context) {
	report, err := syncService(c).SyncAll()
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":   "sync complete",
		"succeeded": report.Succeeded,
		"failed":    report.Failed,
		"skipped":   report.Skipped,
	})
}

// GET /api/sync/failed lists operations waiting for manual retry.
func ListFailedSyncOps(c *gin.Context) {
	ops, err := syncService(c).FailedOperations()
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"operations": ops, "count": len(ops)})
}

// POST /api/sync/failed/:id/retry re-queues one failed operation.
func RetrySyncOp(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := syncService(c).RetryOperation(id); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "operation re-queued"})
}
