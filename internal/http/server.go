// README: API gateway; registers HTTP routes and delegates to module services.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lifelink/internal/http/handlers"
	"lifelink/internal/http/middleware"
	"lifelink/internal/infra"
	"lifelink/internal/metrics"
	"lifelink/internal/modules/donor"
	"lifelink/internal/modules/medical"
	"lifelink/internal/modules/notification"
	"lifelink/internal/modules/request"
	"lifelink/internal/service"
)

type ServerDeps struct {
	Desk          *service.Desk
	Donors        *donor.Service
	Requests      *request.Service
	Notifications *notification.Service
	Vault         *medical.Service
	Verifier      infra.TokenVerifier
	Metrics       *metrics.Recorder
	Log           *zap.Logger
}

type Server struct {
	deps ServerDeps
}

func NewServer(deps ServerDeps) *Server {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	return &Server{deps: deps}
}

func (s *Server) Routes() http.Handler {
	r := gin.New()
	r.Use(middleware.Recovery(s.deps.Log), middleware.Logging(s.deps.Log, s.deps.Metrics))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()))

	api := r.Group("/api", middleware.Auth(s.deps.Verifier))

	donorHandler := handlers.NewDonorHandler(s.deps.Donors, s.deps.Notifications)
	api.POST("/donors", donorHandler.Register)
	api.GET("/donors", donorHandler.Search)
	api.GET("/donors/:id", donorHandler.Get)
	api.PATCH("/donors/:id", donorHandler.Update)
	api.POST("/donors/:id/availability", donorHandler.SetAvailability)
	api.GET("/donors/:id/eligibility", donorHandler.Eligibility)
	api.GET("/donors/:id/notifications", donorHandler.Notifications)

	hospitalHandler := handlers.NewHospitalHandler(s.deps.Donors)
	api.POST("/hospitals", hospitalHandler.Register)
	api.GET("/hospitals", hospitalHandler.List)

	requestHandler := handlers.NewRequestHandler(s.deps.Desk, s.deps.Requests)
	api.POST("/requests", requestHandler.Submit)
	api.GET("/requests", requestHandler.List)
	api.GET("/requests/:id", requestHandler.Get)
	api.POST("/requests/:id/cancel", requestHandler.Cancel)
	api.POST("/requests/:id/complete", requestHandler.Complete)
	api.POST("/requests/:id/tracking", requestHandler.Track)

	notificationHandler := handlers.NewNotificationHandler(s.deps.Notifications)
	api.GET("/notifications", notificationHandler.List)
	api.POST("/notifications/:id/respond", notificationHandler.Respond)
	api.POST("/notifications/:id/read", notificationHandler.MarkRead)

	medicalHandler := handlers.NewMedicalHandler(s.deps.Vault)
	api.GET("/medical-history", medicalHandler.List)

	insightHandler := handlers.NewInsightHandler(s.deps.Desk)
	api.GET("/insights/shortage", insightHandler.Shortage)

	return r
}
