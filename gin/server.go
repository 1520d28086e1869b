package gin

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Server routes registered handlers through a gin engine. Path parameters are
// exposed to the handlers through the request context, under the key "params",
// as a map[string]string.
type Server struct {
	router *gin.Engine
}

func NewServer() *Server {
	router := gin.Default()

	// CORS
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, PUT, POST, DELETE")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Accept-Language, Authorization, Content-Type")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
		}
		c.Next()
	})

	// Unknown route
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Page not found"})
	})

	// Ping
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, map[string]string{"data": "ok"})
	})

	return &Server{router: router}
}

func (s *Server) RegisterHandler(path, method string, f http.Handler) {
	s.router.Handle(method, path, func(c *gin.Context) {
		params := make(map[string]string)
		for _, p := range c.Params {
			params[p.Key] = p.Value
		}

		ctx := context.WithValue(c.Request.Context(), "params", params)
		f.ServeHTTP(c.Writer, c.Request.WithContext(ctx))
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}
