// internal/api/sync_handlers.go
// Pull/push endpoints wrapping syncengine.Engine directly: the wire
// types are the engine's own FatLog/SyncRequest/SyncRequestResponse,
// now JSON-capable, so no separate DTO layer is needed here.

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tournament-engine/internal/syncengine"
)

// HandleSyncPull serves GET /tournament/{tid}/sync, returning every log
// entry (and the entity snapshots it references) since the client's
// last known version.
func HandleSyncPull(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		tid, err := uuid.Parse(c.Param("tid"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tournament id"})
			return
		}

		var since *uuid.UUID
		if raw := c.Query("since"); raw != "" {
			parsed, err := uuid.Parse(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since version"})
				return
			}
			since = &parsed
		}

		fat, err := d.Sync.Pull(c.Request.Context(), tid, since)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, fat)
	}
}

// HandleSyncPush serves POST /tournament/{tid}/sync: the client submits
// its own FatLog tail plus the last common ancestor it synced from,
// and the engine fast-forwards, merges, or rejects.
func HandleSyncPush(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		tid, err := uuid.Parse(c.Param("tid"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tournament id"})
			return
		}

		var req syncengine.SyncRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
			return
		}

		resp, err := d.Sync.Push(c.Request.Context(), tid, req, d.Config.Sync.DefaultMergePolicy)
		if err != nil {
			writeError(c, err)
			return
		}

		if resp.Outcome == syncengine.OutcomeSuccess && resp.MergedGroup != nil && d.Views != nil {
			notifyViews(c.Request.Context(), d, resp.MergedGroup)
		}

		c.JSON(http.StatusOK, resp)
	}
}
