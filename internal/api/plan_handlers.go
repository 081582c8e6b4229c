// internal/api/plan_handlers.go
// Organizer-facing plan execution: running a plan node turns the
// draw/break engines' output into one EntityGroup committed through
// the same save-and-log pipe as every other mutation, so clients learn
// about a new draw or break the same way they learn about any edit.

package api

import (
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tournament-engine/internal/plan"
	"tournament-engine/internal/utils"
)

// HandleExecutePlanNode serves POST /tournament/{tid}/plan/{nid}/execute.
func HandleExecutePlanNode(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		tid, err := uuid.Parse(c.Param("tid"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tournament id"})
			return
		}
		nid, err := uuid.Parse(c.Param("nid"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plan node id"})
			return
		}

		executor := plan.NewExecutor(d.Store, int64(utils.RandomInt(math.MaxInt32)))
		executor.Options.HardClashThreshold = d.Config.Draw.DefaultHardClashThreshold
		group, err := executor.ExecutePlanNode(ctx, nid)
		if err != nil {
			writeError(c, err)
			return
		}

		if scope, ok := group.TournamentID(); ok && scope != tid {
			c.JSON(http.StatusBadRequest, gin.H{"error": "plan node belongs to a different tournament"})
			return
		}

		if err := group.SaveAllAndLog(ctx, d.Store, d.Log, time.Now().UTC()); err != nil {
			writeError(c, err)
			return
		}
		notifyViews(ctx, d, group)

		c.JSON(http.StatusOK, gin.H{"status": "ok", "plan_node_id": nid.String()})
	}
}

// HandleReindexRounds serves POST /tournament/{tid}/rounds/reindex,
// renumbering every round from the plan DAG after edges changed.
func HandleReindexRounds(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		tid, err := uuid.Parse(c.Param("tid"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tournament id"})
			return
		}

		executor := plan.NewExecutor(d.Store, 0)
		group, err := executor.ReindexRounds(ctx, tid)
		if err != nil {
			writeError(c, err)
			return
		}
		if group.IsEmpty() {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "changed": 0})
			return
		}

		if err := group.SaveAllAndLog(ctx, d.Store, d.Log, time.Now().UTC()); err != nil {
			writeError(c, err)
			return
		}
		notifyViews(ctx, d, group)

		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
