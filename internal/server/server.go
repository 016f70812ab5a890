package server

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/lifemoments/lifemoments/internal/ai"
	"github.com/lifemoments/lifemoments/internal/database"
	"github.com/lifemoments/lifemoments/internal/model"
	"github.com/lifemoments/lifemoments/internal/server/middlewares"
	"github.com/lifemoments/lifemoments/internal/server/service"
	"github.com/lifemoments/lifemoments/internal/server/session"
	"github.com/lifemoments/lifemoments/internal/storage"
	"golang.org/x/time/rate"
)

// A Controller is used to init the server package.
type Controller struct {
	Version        string
	Database       database.Client
	Store          storage.Store
	AI             ai.Client
	NoRegistration bool
	CronSecret     string
	// Session params
	AccessTokenExpirationTime  time.Duration
	RefreshTokenExpirationTime time.Duration
	// Requests per second granted to each signed-in session.
	RateLimit float64
}

// EchoEngine instantiates the wep server.
func EchoEngine(ctrl Controller) *echo.Echo {
	engine := echo.New()
	engine.Use(middleware.Recover())
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig))
	engine.Use(middleware.Gzip())

	engine.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "[${status}] ${method} ${uri} (${bytes_in}) ${latency_human}\n",
	}))
	engine.Binder = middlewares.NewBinder()
	// Error handler
	engine.HTTPErrorHandler = middlewares.HTTPErrorHandler

	engine.Pre(middleware.Rewrite(map[string]string{
		"/": "/version",
	}))

	////////////
	// Router //
	////////////

	sessions := session.NewManager(
		ctrl.Database,
		ctrl.AccessTokenExpirationTime,
		ctrl.RefreshTokenExpirationTime,
	)

	router := engine.Group("")
	restricted := router.Group("")
	restricted.Use(middlewares.Session(sessions))
	if ctrl.RateLimit > 0 {
		// Server-side limiter keyed by the session credential, shared by
		// every surface of the process.
		restricted.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Store: middleware.NewRateLimiterMemoryStore(rate.Limit(ctrl.RateLimit)),
			IdentifierExtractor: func(c echo.Context) (string, error) {
				return c.Request().Header.Get(echo.HeaderAuthorization), nil
			},
		}))
	}

	// generic handlers
	//
	router.GET("/version", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"version": ctrl.Version,
		})
	})

	//
	// auth handlers
	//
	auth := &auth{
		db:       ctrl.Database,
		sessions: sessions,
	}
	if !ctrl.NoRegistration {
		router.POST("/auth", auth.Register)
	}
	router.POST("/auth/sign_in", auth.Login)

	//
	// session handlers
	//
	session := &sess{
		db: ctrl.Database,
		m:  sessions,
	}
	router.POST("/session/refresh", session.Refresh)
	restricted.DELETE("/session", session.Delete)
	restricted.GET("/api/sessions", session.List)
	restricted.DELETE("/api/sessions", session.DeleteAll)

	//
	// entry handlers
	//
	entry := &entry{
		db:    ctrl.Database,
		store: ctrl.Store,
		ai:    ctrl.AI,
	}
	restricted.POST("/api/entries", entry.Create)
	restricted.GET("/api/entries", entry.List)
	restricted.GET("/api/entries/:id", entry.Show)
	restricted.PATCH("/api/entries/:id", entry.Update)
	restricted.DELETE("/api/entries/:id", entry.Delete)
	restricted.POST("/api/summarize", entry.Summarize)
	router.GET("/p/entries/:id", entry.PublicShow)

	//
	// capture handlers
	//
	capture := &capture{
		db:    ctrl.Database,
		store: ctrl.Store,
		ai:    ctrl.AI,
	}
	restricted.POST("/api/audio", capture.Create)
	restricted.GET("/api/media/:id/url", capture.MediaURL)

	record := &record{
		db:       ctrl.Database,
		store:    ctrl.Store,
		ai:       ctrl.AI,
		sessions: service.NewRecorderRegistry(),
	}
	restricted.POST("/api/record", record.Open)
	restricted.POST("/api/record/:id/chunk", record.Chunk)
	restricted.POST("/api/record/:id/finish", record.Finish)
	restricted.DELETE("/api/record/:id", record.Cancel)

	//
	// share handlers
	//
	share := &share{
		db: ctrl.Database,
	}
	restricted.POST("/api/share", share.Create)
	restricted.GET("/api/share", share.List)
	restricted.DELETE("/api/share/:id", share.Revoke)
	router.GET("/share/:token", share.Resolve)

	//
	// export and scheduled-delivery handlers
	//
	export := &export{
		db: ctrl.Database,
	}
	restricted.GET("/api/export/pdf", export.PDF)

	cron := &cron{
		db:     ctrl.Database,
		secret: ctrl.CronSecret,
	}
	router.GET("/api/cron/run", cron.Run)

	return engine
}

// PrintRoutes prints the Echo engin exposed routes.
func PrintRoutes(e *echo.Echo) {
	ignored := map[string]bool{
		"":   true,
		".":  true,
		"/*": true,
	}

	routes := e.Routes()
	sort.Slice(routes, func(i int, j int) bool {
		return routes[i].Path < routes[j].Path
	})

	fmt.Println("Routes:")
	for _, route := range routes {
		if ignored[route.Path] {
			continue
		}
		fmt.Printf("%6s %s\n", route.Method, route.Path)
	}
}

func currentUser(c echo.Context) *model.User {
	user, ok := c.Get(middlewares.CurrentUserContextKey).(*model.User)
	if ok {
		return user
	}
	return nil
}

func currentSession(c echo.Context) *model.Session {
	session, ok := c.Get(middlewares.CurrentSessionContextKey).(*model.Session)
	if ok {
		return session
	}
	return nil
}
