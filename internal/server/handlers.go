package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	apperr "github.com/digitaldrywood/acreditacion/internal/errors"
)

func (s *Server) routes(r *gin.Engine) {
	api := r.Group("/api")

	api.GET("/health", s.health)

	api.GET("/session", s.getSession)
	api.POST("/session/login", s.login)
	api.POST("/session/logout", s.logout)

	api.GET("/notice", s.getNotice)

	api.GET("/acreditacion", s.getForm)
	api.POST("/acreditacion/nombre", s.selectName)
	api.POST("/acreditacion/iglesia", s.selectChurch)
	api.PATCH("/acreditacion/form", s.editForm)
	api.POST("/acreditacion/guardar", s.saveForm)

	api.GET("/hospedadores", s.getHosts)

	api.GET("/servidumbre", s.getRoster)
	api.POST("/servidumbre/mas", s.moreRoster)
	api.POST("/servidumbre/recargar", s.reloadRoster)
	api.PUT("/servidumbre/:row/acredita", s.accreditStaff)
	api.PUT("/servidumbre/:row/observaciones", s.editStaffNotes)
}

type errorResponse struct {
	Message string `json:"message"`
}

// fail maps err to a status and the operator-facing message.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case apperr.Is(err, apperr.ErrNoSession):
		status = http.StatusUnauthorized
	case apperr.Is(err, apperr.ErrNoRecord),
		apperr.Is(err, apperr.ErrAccreditationRequired),
		apperr.Is(err, apperr.ErrInvalidValue):
		status = http.StatusBadRequest
	case apperr.Is(err, apperr.ErrAuthNotReady):
		status = http.StatusServiceUnavailable
	case apperr.Is(err, apperr.ErrRead), apperr.Is(err, apperr.ErrWrite):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}
	c.JSON(status, errorResponse{Message: apperr.UserMessage(err)})
}

func badRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, errorResponse{Message: apperr.UserMessage(apperr.ErrInvalidValue)})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type sessionResponse struct {
	Authenticated bool       `json:"authenticated"`
	Email         string     `json:"email,omitempty"`
	Name          string     `json:"name,omitempty"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
}

func (s *Server) currentSession() sessionResponse {
	sess, ok := s.deps.Sessions.Current()
	if !ok {
		return sessionResponse{}
	}
	return sessionResponse{
		Authenticated: true,
		Email:         sess.UserEmail,
		Name:          sess.UserName,
		ExpiresAt:     &sess.ExpiresAt,
	}
}

func (s *Server) getSession(c *gin.Context) {
	c.JSON(http.StatusOK, s.currentSession())
}

func (s *Server) login(c *gin.Context) {
	if _, err := s.deps.Sessions.Login(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.currentSession())
}

func (s *Server) logout(c *gin.Context) {
	if err := s.deps.Sessions.Logout(c.Request.Context()); err != nil {
		log.WithError(err).Warn("logout finished with errors")
	}
	c.JSON(http.StatusOK, sessionResponse{})
}

func (s *Server) getNotice(c *gin.Context) {
	msg, ok := s.deps.Notices.Current()
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (s *Server) getForm(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Editor.View())
}

type nameRequest struct {
	Name string `json:"nombre"`
}

func (s *Server) selectName(c *gin.Context) {
	var body nameRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c)
		return
	}
	s.deps.Editor.SelectName(body.Name)
	c.JSON(http.StatusOK, s.deps.Editor.View())
}

type churchRequest struct {
	Church string `json:"iglesia"`
}

func (s *Server) selectChurch(c *gin.Context) {
	var body churchRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c)
		return
	}
	s.deps.Editor.SelectChurch(body.Church)
	c.JSON(http.StatusOK, s.deps.Editor.View())
}

// formPatch carries only the fields being edited.
type formPatch struct {
	PickupAt   *string `json:"fechaHoraRetiro"`
	Accredited *string `json:"acreditaVisita"`
	Notes      *string `json:"observaciones"`
}

func (s *Server) editForm(c *gin.Context) {
	var body formPatch
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c)
		return
	}

	if body.Accredited != nil {
		if err := s.deps.Editor.SetAccredited(*body.Accredited); err != nil {
			fail(c, err)
			return
		}
	}
	if body.PickupAt != nil {
		s.deps.Editor.SetPickup(*body.PickupAt)
	}
	if body.Notes != nil {
		s.deps.Editor.SetNotes(*body.Notes)
	}
	c.JSON(http.StatusOK, s.deps.Editor.View())
}

func (s *Server) saveForm(c *gin.Context) {
	if err := s.deps.Editor.Save(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.deps.Editor.View())
}

func (s *Server) getHosts(c *gin.Context) {
	s.deps.Hosting.SetNameFilter(c.Query("nombre"))
	s.deps.Hosting.SetVenueFilter(c.Query("local"))
	c.JSON(http.StatusOK, s.deps.Hosting.View())
}

func (s *Server) getRoster(c *gin.Context) {
	s.deps.Roster.SetNameFilter(c.Query("nombre"))
	s.deps.Roster.SetSectionFilter(c.Query("seccion"))
	c.JSON(http.StatusOK, s.deps.Roster.View())
}

func (s *Server) moreRoster(c *gin.Context) {
	s.deps.Roster.ReachedBottom()
	c.JSON(http.StatusOK, s.deps.Roster.View())
}

func (s *Server) reloadRoster(c *gin.Context) {
	if err := s.deps.Roster.Reload(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.deps.Roster.View())
}

func rowParam(c *gin.Context) (int, bool) {
	row, err := strconv.Atoi(c.Param("row"))
	if err != nil || row < 2 {
		badRequest(c)
		return 0, false
	}
	return row, true
}

type accreditRequest struct {
	Accredited string `json:"acredita" binding:"required"`
}

func (s *Server) accreditStaff(c *gin.Context) {
	row, ok := rowParam(c)
	if !ok {
		return
	}
	var body accreditRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c)
		return
	}

	if err := s.deps.Roster.SetAccredited(c.Request.Context(), row, body.Accredited); err != nil {
		fail(c, err)
		return
	}
	entry, _ := s.deps.Roster.Entry(row)
	c.JSON(http.StatusOK, entry)
}

type notesRequest struct {
	Notes string `json:"observaciones"`
}

func (s *Server) editStaffNotes(c *gin.Context) {
	row, ok := rowParam(c)
	if !ok {
		return
	}
	var body notesRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c)
		return
	}

	if err := s.deps.Roster.EditNotes(row, body.Notes); err != nil {
		fail(c, err)
		return
	}
	entry, _ := s.deps.Roster.Entry(row)
	c.JSON(http.StatusAccepted, entry)
}
