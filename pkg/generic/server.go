package generic

import "github.com/gin-gonic/gin"

// Server is the gin engine plus where it listens. An empty Port disables the
// HTTP surface.
type Server struct {
	Router  *gin.Engine
	Port    string
	Methods []string
}

func (s *Server) Enabled() bool {
	return s.Port != ""
}
