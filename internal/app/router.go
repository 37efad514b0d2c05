package app

import (
	"github.com/gin-gonic/gin"

	"github.com/tribu-research/challenge-backend/internal/assignments"
	"github.com/tribu-research/challenge-backend/internal/challenge"
	"github.com/tribu-research/challenge-backend/internal/middleware"
	"github.com/tribu-research/challenge-backend/internal/presentations"
	"github.com/tribu-research/challenge-backend/internal/realtime"
	"github.com/tribu-research/challenge-backend/internal/reports"
	"github.com/tribu-research/challenge-backend/internal/scheduler"
	"github.com/tribu-research/challenge-backend/internal/videos"
	"github.com/tribu-research/challenge-backend/internal/votes"
	"github.com/tribu-research/challenge-backend/internal/winners"
	"github.com/tribu-research/challenge-backend/pkg/response"
)

// Router builds the HTTP surface.
func (a *App) Router() *gin.Engine {
	assignmentHandler := assignments.NewHandler(a.Assignments)
	presentationHandler := presentations.NewHandler(a.Presentations, a.CurrentWeek, a.Assignments)
	videoHandler := videos.NewHandler(a.Videos)
	voteHandler := votes.NewHandler(a.Ledger)
	winnerHandler := winners.NewHandler(a.Winners)
	challengeHandler := challenge.NewHandler(a.stores.Challenge)
	jobHandler := scheduler.NewHandler(a.Scheduler)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(a.Config.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(a.Logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Public reads
	router.GET("/presentations/current-week", presentationHandler.CurrentWeek)
	router.GET("/presentations/upcoming", presentationHandler.Upcoming)
	router.GET("/presentations/:id", presentationHandler.GetByID)
	router.GET("/presentations/:id/votes", voteHandler.Count)
	router.GET("/winners", winnerHandler.List)
	router.GET("/challenge/status", challengeHandler.Status)
	router.GET("/videos", videoHandler.CurrentMonth)
	router.GET("/videos/voting", videoHandler.Voting)
	router.GET("/videos/:id", videoHandler.GetByID)
	router.GET("/videos/:id/votes", voteHandler.Count)

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(a.JWT))
	{
		api.POST("/assignments", assignmentHandler.Register)
		api.GET("/assignments/:id", assignmentHandler.GetByID)
		api.PATCH("/assignments/:id/status", assignmentHandler.UpdateStatus)

		api.POST("/presentations", middleware.RequireAdmin(), presentationHandler.Create)
		api.POST("/presentations/:id/votes", voteHandler.VotePresentation)

		api.POST("/videos", videoHandler.Upload)
		api.POST("/videos/:id/votes", voteHandler.VoteVideo)

		api.GET("/admin/jobs", middleware.RequireAdmin(), jobHandler.List)
		api.POST("/admin/jobs/:name/run", middleware.RequireAdmin(), jobHandler.Run)

		if a.Archiver != nil {
			reportHandler := reports.NewHandler(a.Archiver)
			api.GET("/winners/reports/:year/:month", middleware.RequireAdmin(), reportHandler.Link)
			api.POST("/winners/reports/:year/:month", middleware.RequireAdmin(), reportHandler.Archive)
		}

		// WebSocket (token in query; no Authorization header required)
		api.GET("/ws", realtime.ServeWs(a.Hub, a.Logger.Named("ws")))
	}
	return router
}
