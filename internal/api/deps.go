// internal/api/deps.go
// Dependencies shared by every handler in this package, and the
// error-to-status mapping that replaces the teacher's service-layer
// sentinel-error checks now that persistence and reconciliation are
// entities.Store/syncengine.Engine calls directly.

package api

import (
	"database/sql"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"tournament-engine/internal/changelog"
	"tournament-engine/internal/config"
	"tournament-engine/internal/entities"
	"tournament-engine/internal/syncengine"
	"tournament-engine/internal/viewcache"
	"tournament-engine/internal/websocket"
)

// Deps bundles everything a handler constructor needs, mirroring the
// teacher's services.Container but built directly on the engine
// packages instead of a service layer.
type Deps struct {
	Store entities.Store
	Log   changelog.LogStore
	Sync  *syncengine.Engine
	Views *viewcache.Cache
	Hub   *websocket.Hub

	// MySQL is the raw connection organizer-account auth reads/writes
	// through, the one piece of API-facing state that never became an
	// entities.Entity (organizer accounts sit outside the tournament
	// sync domain entirely).
	MySQL *sql.DB
	Redis *redis.Client
	Mongo *mongo.Database

	Config *config.Config
	Logger *log.Logger
}

// writeError maps the engine's typed entities.Error (or a plain error)
// onto an HTTP status, the way the teacher's handlers mapped
// service-layer sentinel errors.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := err.Error()

	if te, ok := err.(*entities.Error); ok {
		message = te.Message
		switch te.Kind {
		case entities.KindNotFound:
			status = http.StatusNotFound
		case entities.KindIntegrityViolation, entities.KindBallotParse,
			entities.KindScheduleInfeasible, entities.KindReconciliationReject:
			status = http.StatusBadRequest
		case entities.KindAuth:
			status = http.StatusUnauthorized
		case entities.KindTransient:
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, gin.H{"error": message})
}
