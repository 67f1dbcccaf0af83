package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/message"

	"github.com/tgienger/worksphere/internal/api"
	"github.com/tgienger/worksphere/internal/i18n"
	"github.com/tgienger/worksphere/internal/models"
)

const (
	ctxPrinter = "printer"
	ctxUser    = "user"
)

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"caller", c.GetHeader(api.HeaderCallerID),
			"duration", time.Since(start),
		)
	}
}

// localize picks the message printer from Accept-Language
func (s *Server) localize() gin.HandlerFunc {
	return func(c *gin.Context) {
		tag := s.language
		if header := c.GetHeader("Accept-Language"); header != "" {
			tag = i18n.MatchAcceptLanguage(header)
		}
		c.Set(ctxPrinter, i18n.PrinterFor(tag))
		c.Next()
	}
}

// identify resolves the x-user-id header to a known user or aborts with 401
func (s *Server) identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(api.HeaderCallerID)
		if id == "" {
			abortWith(c, http.StatusUnauthorized, printer(c).Sprintf(i18n.MsgMissingIdentity))
			return
		}
		user, err := s.db.GetUser(id)
		if err != nil {
			s.logger.Warn("unknown caller", "caller", id, "error", err)
			abortWith(c, http.StatusUnauthorized, printer(c).Sprintf(i18n.MsgUnknownCaller))
			return
		}
		c.Set(ctxUser, *user)
		c.Next()
	}
}

func printer(c *gin.Context) *message.Printer {
	if p, ok := c.Get(ctxPrinter); ok {
		return p.(*message.Printer)
	}
	return i18n.NewPrinter("en")
}

func caller(c *gin.Context) models.User {
	u, _ := c.Get(ctxUser)
	user, _ := u.(models.User)
	return user
}

func abortWith(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"message": msg})
}
