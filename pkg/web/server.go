package web

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"
	"solarbridge/cmd/solarbridge/config"
	"solarbridge/cmd/solarbridge/options"
	"solarbridge/pkg/bridge"
	"solarbridge/pkg/control"
	"solarbridge/pkg/generic"
)

type Server struct {
	*generic.Server
	*config.Config
}

func NewServer(router *gin.Engine, o *options.Options, config *config.Config) (*Server, error) {
	allowMethods := []string{http.MethodGet, http.MethodPut}

	s := &generic.Server{
		Router:  router,
		Port:    o.Port,
		Methods: allowMethods,
	}

	server := &Server{
		Server: s,
		Config: config,
	}

	server.InstallHandlers()

	return server, nil
}

func (s *Server) InstallHandlers() {
	if s.Config.Metrics != nil {
		s.Router.GET("/metrics", gin.WrapH(s.Config.Metrics.Handler()))
	}
	v1 := s.Router.Group("/api/v1")
	if s.Config.Bridge != nil {
		bridge.InstallHandler(v1, s.Config.Bridge)
	}
	if s.Config.Output != nil {
		control.InstallHandler(v1, s.Config.Output)
	}
}

// Serve starts listening unless the port is empty. The returned func shuts
// the bridge resources down in either case.
func (s *Server) Serve() (func(ctx context.Context), error) {
	var srv *http.Server
	if s.Enabled() {
		srv = &http.Server{
			Addr:    fmt.Sprintf(":%s", s.Port),
			Handler: s.Router,
		}
		if len(s.Config.CertFile) != 0 && len(s.Config.KeyFile) != 0 {
			x509KeyPair, err := tls.LoadX509KeyPair(s.Config.CertFile, s.Config.KeyFile)
			if err != nil {
				return nil, err
			}
			srv.TLSConfig = &tls.Config{
				Certificates: []tls.Certificate{x509KeyPair},
			}
			go func() {
				klog.Error(srv.ListenAndServeTLS("", ""))
			}()
		} else {
			go func() {
				klog.Error(srv.ListenAndServe())
			}()
		}
	}

	return func(ctx context.Context) {
		if srv != nil {
			srv.SetKeepAlivesEnabled(false)
		}
		if err := s.Config.Shutdown(ctx); err != nil {
			klog.Error(err)
		}
		if srv != nil {
			if err := srv.Shutdown(ctx); err != nil {
				klog.Error(err)
			}
		}
	}, nil
}
