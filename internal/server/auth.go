package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskboard/internal/pages"
	"taskboard/internal/service"
)

// credentials reads the username and password form keys.
// Empty values are allowed; only an absent key is rejected.
func credentials(c *gin.Context) (username, password string, ok bool) {
	username, hasUser := c.GetPostForm("username")
	password, hasPassword := c.GetPostForm("password")
	return username, password, hasUser && hasPassword
}

const (
	msgInvalidCredentials = "Invalid username or password"
	msgDuplicateUser      = "Username already exists"
)

// handleIndex renders the board for signed-in users.
func (s *Server) handleIndex(c *gin.Context) {
	username, err := s.sessions.Username(c)
	if err != nil {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	s.renderPage(c, pages.Index, pages.Data{Username: username})
}

func (s *Server) handleLoginPage(c *gin.Context) {
	s.renderPage(c, pages.Login, pages.Data{})
}

func (s *Server) handleRegisterPage(c *gin.Context) {
	s.renderPage(c, pages.Register, pages.Data{})
}

// handleLogin verifies the form credentials and starts a session.
func (s *Server) handleLogin(c *gin.Context) {
	username, password, ok := credentials(c)
	if !ok {
		c.String(http.StatusBadRequest, "username and password are required")
		return
	}

	username, err := s.auth.Login(c.Request.Context(), username, password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		c.String(http.StatusOK, msgInvalidCredentials)
		return
	}
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}

	if err := s.sessions.Issue(c, username); err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

// handleRegister creates an account; the user must log in afterwards.
func (s *Server) handleRegister(c *gin.Context) {
	username, password, ok := credentials(c)
	if !ok {
		c.String(http.StatusBadRequest, "username and password are required")
		return
	}

	err := s.auth.Register(c.Request.Context(), username, password)
	switch {
	case errors.Is(err, service.ErrDuplicateUser):
		c.String(http.StatusOK, msgDuplicateUser)
	case err != nil:
		s.respondError(c, http.StatusInternalServerError, err)
	default:
		c.Redirect(http.StatusFound, "/login")
	}
}

// handleLogout drops the session identity; repeated calls are harmless.
func (s *Server) handleLogout(c *gin.Context) {
	s.sessions.Clear(c)
	c.Redirect(http.StatusFound, "/login")
}

func (s *Server) renderPage(c *gin.Context, name string, data pages.Data) {
	body := s.pages.Render(c.Request.Context(), name, data)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(body))
}
