package server

import (
	"errors"
	"net/http"

	"github.com/a-runebou/DD2480-CI-V/model"
	"github.com/gin-gonic/gin"
)

const EVENT_HEADER = "X-GitHub-Event"

// @Summary Receives GitHub webhooks and queues a CI run for branch pushes.
// @Description Ping events are answered, other non-push events as well as tag and branch deletion pushes are acknowledged and ignored.
// @Accept json
// @Produce json
// @Param X-GitHub-Event header string true "GitHub event name"
// @Param event body model.PushEvent true "The push event payload"
// @Success 200 "pong"
// @Success 202 {object} model.Job
// @Failure 400
// @Failure 503 Queue is full or the server is shutting down
// @Router /v1/webhook [post]
// @Tags V1
func (s *Server) apiV1Webhook(c *gin.Context) {
	event := c.GetHeader(EVENT_HEADER)
	switch event {
	case "":
		c.AbortWithError(http.StatusBadRequest, errors.New("Missing "+EVENT_HEADER+" header"))
		return
	case "ping":
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
		return
	case "push":
	default:
		c.JSON(http.StatusAccepted, gin.H{"message": "ignored", "reason": "event " + event})
		return
	}

	var push model.PushEvent
	if err := c.BindJSON(&push); err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	job, err := push.Job()
	if errors.Is(err, model.ErrNotABranch) || errors.Is(err, model.ErrBranchDeleted) {
		c.JSON(http.StatusAccepted, gin.H{"message": "ignored", "reason": err.Error()})
		return
	}
	if err != nil {
		c.AbortWithError(http.StatusBadRequest, errors.New("Invalid push event: "+err.Error()))
		return
	}

	if err := s.Dispatcher.Submit(job); err != nil {
		s.logger().Printf("Error: Failed to queue %s: %s", job, err)
		c.AbortWithError(http.StatusServiceUnavailable, errors.New("Failed to queue job: "+err.Error()))
		return
	}

	s.logger().Printf("Queued %s", job)
	c.JSON(http.StatusAccepted, job)
}
