package sounds

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Server is the HTTP endpoint signed sound URLs resolve against. The voice
// transport fetches sounds through it like any other direct media URL.
type Server struct {
	dir    string
	signer *Signer
	log    zerolog.Logger
}

func NewServer(dir string, signer *Signer, log zerolog.Logger) *Server {
	return &Server{dir: dir, signer: signer, log: log}
}

// Router builds the gin handler; split out so tests can drive it directly.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/sounds/:file", func(c *gin.Context) {
		file := c.Param("file")
		// The table stores bare file names; reject anything path-like.
		if strings.Contains(file, "/") || strings.Contains(file, "\\") || file != filepath.Base(file) {
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}
		if !s.signer.Verify(file, c.Query("exp"), c.Query("sig")) {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.File(filepath.Join(s.dir, file))
	})

	return r
}

// Run serves until ctx is cancelled; run in a goroutine.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Router()}

	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutting down sound server")
		_ = srv.Shutdown(context.Background())
	}()

	s.log.Info().Str("addr", addr).Msg("sound server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
