package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tgienger/worksphere/internal/db"
	"github.com/tgienger/worksphere/internal/i18n"
)

// respondError maps a db error onto a status code and localized message.
// notFound is the message key used for db.ErrNotFound.
func (s *Server) respondError(c *gin.Context, err error, notFound string) {
	p := printer(c)
	var fe *db.FieldError
	hasField := errors.As(err, &fe) && fe.Field != ""

	switch {
	case errors.Is(err, db.ErrNotFound):
		abortWith(c, http.StatusNotFound, p.Sprintf(notFound))
	case errors.Is(err, db.ErrVersionConflict):
		abortWith(c, http.StatusConflict, p.Sprintf(i18n.MsgConflict))
	case errors.Is(err, db.ErrLocked):
		abortWith(c, http.StatusLocked, p.Sprintf(i18n.MsgTaskLocked))
	case errors.Is(err, db.ErrForbidden):
		if hasField {
			abortWith(c, http.StatusForbidden, p.Sprintf(i18n.MsgForbiddenField, fe.Field))
			return
		}
		abortWith(c, http.StatusForbidden, p.Sprintf(i18n.MsgForbidden))
	case errors.Is(err, db.ErrInvalidField):
		body := gin.H{"message": p.Sprintf(i18n.MsgInvalidRequest)}
		if hasField {
			body["field"] = fe.Field
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, body)
	default:
		s.logger.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		abortWith(c, http.StatusInternalServerError, p.Sprintf(i18n.MsgInternalError))
	}
}

func (s *Server) badRequest(c *gin.Context) {
	abortWith(c, http.StatusBadRequest, printer(c).Sprintf(i18n.MsgInvalidRequest))
}
