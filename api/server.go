package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"allrentr/config"
	"allrentr/models"
	"allrentr/services"
	"allrentr/storage"
	"allrentr/utils"
)

const (
	requestIDHeader      = "X-Request-ID"
	catalogueLoadTimeout = 30 * time.Second
)

// Server exposes listings, nearby resolution and clusters over HTTP.
type Server struct {
	reader        storage.ListingReader
	resolver      *services.ProximityResolver
	cleaner       *services.Cleaner
	options       *config.FilterOptions
	defaultRadius float64
	logger        *utils.Logger

	loads  singleflight.Group
	engine *gin.Engine
}

// NewServer wires the routes. defaultRadius is used when a nearby request
// omits radius.
func NewServer(reader storage.ListingReader, resolver *services.ProximityResolver, options *config.FilterOptions,
	defaultRadius float64, logger *utils.Logger) *Server {
	s := &Server{
		reader:        reader,
		resolver:      resolver,
		cleaner:       services.NewCleaner(logger),
		options:       options,
		defaultRadius: defaultRadius,
		logger:        logger,
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestID(), s.accessLog(), cors())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.GET("/filters", s.handleFilters)
	api.GET("/listings", s.handleListings)
	api.GET("/listings/nearby", s.handleNearby)
	api.GET("/clusters", s.handleClusters)
	api.GET("/clusters/geojson", s.handleGeoJSON)
	api.GET("/clusters/:mode/:key", s.handleClusterItems)

	s.engine = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("[api] Listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("[api] Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// loadListings fetches and cleans the approved catalogue. Concurrent
// requests share one store round trip; the shared load is detached from any
// single request so one client going away does not fail the others.
func (s *Server) loadListings(ctx context.Context) ([]*models.Listing, error) {
	ch := s.loads.DoChan("approved", func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), catalogueLoadTimeout)
		defer cancel()

		listings, err := s.reader.FetchApproved(loadCtx)
		if err != nil {
			return nil, err
		}
		return s.cleaner.Clean(listings), nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			s.logger.Debug("[api] Shared catalogue load")
		}
		return res.Val.([]*models.Listing), nil
	}
}

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("[api] %s %s %d %v (%s)", c.Request.Method, c.Request.URL.Path,
			c.Writer.Status(), time.Since(start).Round(time.Millisecond), c.GetString("request_id"))
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, "+requestIDHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
