package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// @Summary Lists builds, newest first.
// @Produce json
// @Success 200 {array} model.Build
// @Failure 400
// @Param branch query string false "Only builds of this branch"
// @Param limit query int false "Maximum amount of builds, default 50, 0 for all"
// @Router /v1/builds [get]
// @Tags V1
func (s *Server) apiV1ListBuilds(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 0 {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	builds, err := s.Builds.List(c.Request.Context(), c.Query("branch"), limit)
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, errors.New("Failed to get builds from database: "+err.Error()))
		return
	}

	c.JSON(http.StatusOK, builds)
}

// @Summary Returns the build of a commit.
// @Produce json
// @Success 200 {object} model.Build
// @Failure 404
// @Param sha path string true "Commit sha"
// @Router /v1/builds/{sha} [get]
// @Tags V1
func (s *Server) apiV1GetBuild(c *gin.Context) {
	build, err := s.Builds.Get(c.Request.Context(), c.Param("sha"))
	if errors.Is(err, ErrBuildNotFound) {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, errors.New("Failed to get build from database: "+err.Error()))
		return
	}

	c.JSON(http.StatusOK, build)
}

// @Summary Deletes the build of a commit.
// @Success 204
// @Failure 404
// @Param sha path string true "Commit sha"
// @Router /v1/builds/{sha} [delete]
// @Tags V1
func (s *Server) apiV1DeleteBuild(c *gin.Context) {
	err := s.Builds.Delete(c.Request.Context(), c.Param("sha"))
	if errors.Is(err, ErrBuildNotFound) {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, errors.New("Failed to delete build from database: "+err.Error()))
		return
	}

	c.Status(http.StatusNoContent)
}
