// internal/api/routes.go
// Route registration: organizer auth, participant-facing reads, debate
// timing/state, feedback, sync protocol, and the websocket upgrade,
// wired onto Gin groups the way the teacher's routes.go grouped
// public/authenticated/admin surfaces.

package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"tournament-engine/internal/middleware"
	"tournament-engine/internal/websocket"
)

// RegisterRoutes wires every handler in this package onto router using
// d for dependencies.
func RegisterRoutes(router *gin.Engine, d *Deps) {
	router.Use(cors.New(cors.Config{
		AllowOrigins:     d.Config.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(d.Logger))
	if d.Config.Features.MaintenanceMode {
		router.Use(middleware.MaintenanceMode())
	}
	router.Use(middleware.RateLimiter(d.Redis))

	router.GET("/health", HealthCheck(d.Config))

	auth := router.Group("/auth")
	{
		auth.POST("/register", HandleOrganizerRegister(d))
		auth.POST("/login", HandleOrganizerLogin(d))
		auth.POST("/refresh", HandleRefreshToken(d))
		auth.POST("/claim", HandleClaimParticipant(d))
	}

	organizer := router.Group("/")
	organizer.Use(middleware.RequireOrganizerAuth(d.Config.Auth.JWTSecret))
	{
		organizer.GET("/tournament/:tid/sync", HandleSyncPull(d))
		organizer.POST("/tournament/:tid/sync", HandleSyncPush(d))

		organizer.POST("/tournament/:tid/rounds/reindex", HandleReindexRounds(d))
		organizer.POST("/tournament/:tid/plan/:nid/execute", HandleExecutePlanNode(d))
		organizer.POST("/participant/:pid/key", HandleIssueParticipantKey(d))
	}

	participant := router.Group("/")
	participant.Use(middleware.RequireParticipantKey(d.Store))
	{
		participant.GET("/participant/:pid", HandleGetParticipant(d))
		participant.GET("/tournament/:tid/participants", HandleListTournamentParticipants(d))

		participant.GET("/debate/:did/participants", HandleGetDebateParticipants(d))
		participant.GET("/debate/:did/timing", HandleGetDebateTiming(d))
		participant.PATCH("/debate/:did/timing", HandlePatchDebateTiming(d))
		participant.POST("/debate/:did/state", HandlePostDebateState(d))

		participant.GET("/feedback/debate/:did/for/:target/from/:source", HandleGetFeedbackObligation(d))
		participant.POST("/feedback/debate/:did/for/:target/from/:source", HandlePostFeedbackSubmission(d))

		participant.GET("/ws", websocket.HandleConnection(d.Hub))
	}
}
