package server

import (
	"context"
)

// CheckStaleBuilds is run periodically to close records of runs that will
// never report back.
func (s *Server) CheckStaleBuilds() {
	if s.StaleAfter <= 0 {
		return
	}

	marked, err := s.Builds.MarkStaleBuilds(context.Background(), s.StaleAfter)
	if err != nil {
		s.logger().Println("Error: Failed to mark stale builds,", err.Error())
		return
	}
	if marked > 0 {
		s.logger().Printf("Marked %d stale builds as errored", marked)
	}
}
