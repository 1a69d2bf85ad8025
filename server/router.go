package server

import (
	"net/http"
	"time"

	"github.com/a-runebou/DD2480-CI-V/model"
	"github.com/gin-contrib/cache"
	"github.com/gin-contrib/cache/persistence"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/swaggo/gin-swagger/swaggerFiles"
)

// JobSubmitter queues a job without waiting for it to run.
type JobSubmitter interface {
	Submit(job model.Job) error
}

type Server struct {
	Builds     *BuildStore
	Dispatcher JobSubmitter
	// StaleAfter is how long a build may stay pending before
	// CheckStaleBuilds marks it as errored. Zero disables the check.
	StaleAfter time.Duration
	// CacheDuration is how long build listings are cached. Zero disables caching.
	CacheDuration time.Duration
	Log           *logrus.Logger
	cacheStore    *persistence.InMemoryStore
}

func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Next()
	}
}

func (s *Server) logger() *logrus.Logger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}

func (s *Server) NewRouter() *gin.Engine {
	router := gin.Default()

	s.cacheStore = persistence.NewInMemoryStore(time.Second)

	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusTemporaryRedirect, "/api/swagger/index.html")
	})

	// GitHub webhooks are commonly configured against the bare path.
	router.POST("/webhook", s.apiV1Webhook)

	api := router.Group("/api")
	api.Use(CORS())

	openapiURL := ginSwagger.URL("/api/swagger/doc.json")
	api.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, openapiURL))

	apiV1 := api.Group("/v1")
	apiV1.POST("/webhook", s.apiV1Webhook)

	buildsV1 := apiV1.Group("/builds")
	buildsV1.GET("", s.cached(s.apiV1ListBuilds))
	buildsV1.GET("/:sha", s.apiV1GetBuild)
	buildsV1.DELETE("/:sha", s.apiV1DeleteBuild)

	return router
}

func (s *Server) cached(handler gin.HandlerFunc) gin.HandlerFunc {
	if s.CacheDuration <= 0 {
		return handler
	}
	return cache.CachePage(s.cacheStore, s.CacheDuration, handler)
}
