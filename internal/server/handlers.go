package server

import (
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tgienger/worksphere/internal/i18n"
	"github.com/tgienger/worksphere/internal/models"
)

const rowVersionField = "row_version"

type reorderRequest struct {
	Direction models.Direction `json:"direction"`
}

type commentRequest struct {
	Content string `json:"content"`
}

type lockRequest struct {
	Locked bool `json:"locked"`
}

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.db.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleListProjects(c *gin.Context) {
	projects, err := s.db.ListProjects()
	if err != nil {
		s.respondError(c, err, i18n.MsgProjectNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": projects})
}

func (s *Server) handleListTasks(c *gin.Context) {
	if !s.requireProject(c) {
		return
	}
	tasks, err := s.db.ListProjectTasks(c.Param("id"), caller(c))
	if err != nil {
		s.respondError(c, err, i18n.MsgProjectNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": tasks})
}

func (s *Server) handleRecycleBin(c *gin.Context) {
	if !s.requireProject(c) {
		return
	}
	tasks, err := s.db.ListDeletedTasks(c.Param("id"))
	if err != nil {
		s.respondError(c, err, i18n.MsgProjectNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": tasks})
}

// requireProject answers 404 when the :id project does not exist
func (s *Server) requireProject(c *gin.Context) bool {
	if _, err := s.db.GetProject(c.Param("id")); err != nil {
		s.respondError(c, err, i18n.MsgProjectNotFound)
		return false
	}
	return true
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var in models.NewTask
	if err := c.ShouldBindJSON(&in); err != nil {
		s.badRequest(c)
		return
	}
	task, err := s.db.CreateTask(in, caller(c))
	if err != nil {
		s.respondError(c, err, i18n.MsgTaskNotFound)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": task})
}

func (s *Server) handleGetTask(c *gin.Context) {
	task, err := s.db.GetTask(c.Param("id"), caller(c))
	if err != nil {
		s.respondError(c, err, i18n.MsgTaskNotFound)
		return
	}
	c.JSON(http.StatusOK, task)
}

// handleUpdateTask applies a partial update. A row_version in the body makes
// the write conditional on it.
func (s *Server) handleUpdateTask(c *gin.Context) {
	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil {
		s.badRequest(c)
		return
	}

	var expected *int64
	if raw, ok := fields[rowVersionField]; ok {
		delete(fields, rowVersionField)
		v, ok := raw.(float64)
		if !ok || v != math.Trunc(v) {
			s.badRequest(c)
			return
		}
		version := int64(v)
		expected = &version
	}

	user := caller(c)
	version, err := s.db.UpdateTask(c.Param("id"), user, fields, expected)
	if err != nil {
		s.logger.WithCaller(user.ID).WithTask(c.Param("id")).Info("update rejected", "error", err)
		s.respondError(c, err, i18n.MsgTaskNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{rowVersionField: version})
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	if err := s.db.DeleteTask(c.Param("id"), caller(c)); err != nil {
		s.respondError(c, err, i18n.MsgTaskNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleRestoreTask(c *gin.Context) {
	if err := s.db.RestoreTask(c.Param("id"), caller(c)); err != nil {
		s.respondError(c, err, i18n.MsgTaskNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleReorderTask(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c)
		return
	}
	if err := s.db.ReorderTask(c.Param("id"), caller(c), req.Direction); err != nil {
		s.respondError(c, err, i18n.MsgTaskNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleLockTask(c *gin.Context) {
	var req lockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c)
		return
	}
	if err := s.db.SetTaskLock(c.Param("id"), caller(c), req.Locked); err != nil {
		s.respondError(c, err, i18n.MsgTaskNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleHistory(c *gin.Context) {
	items, err := s.db.ListHistory(c.Param("id"), caller(c))
	if err != nil {
		s.respondError(c, err, i18n.MsgTaskNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) handleCreateSubtask(c *gin.Context) {
	var in models.NewSubtask
	if err := c.ShouldBindJSON(&in); err != nil {
		s.badRequest(c)
		return
	}
	sub, err := s.db.CreateSubtask(c.Param("id"), caller(c), in)
	if err != nil {
		s.respondError(c, err, i18n.MsgTaskNotFound)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": sub})
}

func (s *Server) handleUpdateSubtask(c *gin.Context) {
	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil {
		s.badRequest(c)
		return
	}
	if err := s.db.UpdateSubtask(c.Param("id"), caller(c), fields); err != nil {
		s.respondError(c, err, i18n.MsgSubtaskNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleDeleteSubtask(c *gin.Context) {
	if err := s.db.DeleteSubtask(c.Param("id"), caller(c)); err != nil {
		s.respondError(c, err, i18n.MsgSubtaskNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleReorderSubtask(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c)
		return
	}
	if err := s.db.ReorderSubtask(c.Param("id"), caller(c), req.Direction); err != nil {
		s.respondError(c, err, i18n.MsgSubtaskNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleCreateComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c)
		return
	}
	comment, err := s.db.CreateComment(c.Param("id"), caller(c), req.Content)
	if err != nil {
		s.respondError(c, err, i18n.MsgTaskNotFound)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": comment})
}

func (s *Server) handleCreateTimeLog(c *gin.Context) {
	var in models.NewTimeLog
	if err := c.ShouldBindJSON(&in); err != nil {
		s.badRequest(c)
		return
	}
	log, err := s.db.CreateTimeLog(c.Param("id"), caller(c), in)
	if err != nil {
		s.respondError(c, err, i18n.MsgTaskNotFound)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": log})
}
