package spacetravelling

import (
	"errors"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"

	"github.com/eringen/spacetravelling/prismic"
)

const (
	previewSession = "preview_session"
	previewRefKey  = "ref"
)

// PreviewRef returns the revision ref stored in the preview cookie, or "" when
// preview mode is off.
func PreviewRef(c echo.Context) string {
	sess, err := session.Get(previewSession, c)
	if err != nil {
		return ""
	}
	ref, _ := sess.Values[previewRefKey].(string)
	return ref
}

// writableSession returns the preview session for writing. A cookie that no
// longer verifies (rotated secret, tampering) still yields a fresh session,
// which is then overwritten; only a missing session is an error.
func writableSession(c echo.Context) (*sessions.Session, error) {
	sess, err := session.Get(previewSession, c)
	if sess == nil {
		if err == nil {
			err = errors.New("preview session unavailable")
		}
		return nil, err
	}
	if err != nil {
		c.Logger().Debugf("discarding unreadable preview cookie: %v", err)
	}
	return sess, nil
}

func setPreviewRef(c echo.Context, ref string) error {
	sess, err := writableSession(c)
	if err != nil {
		return err
	}
	sess.Values[previewRefKey] = ref
	return sess.Save(c.Request(), c.Response())
}

func clearPreviewRef(c echo.Context) error {
	sess, err := writableSession(c)
	if err != nil {
		return err
	}
	delete(sess.Values, previewRefKey)
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}

// previewTarget maps a resolved document to the path it is rendered at.
func (a *App) previewTarget(doc prismic.Document) string {
	if (doc.Type == "post" || doc.Type == a.Config.DocumentType) && doc.UID != "" {
		return postPath(doc.UID)
	}
	return "/"
}

type messageResponse struct {
	Message string `json:"message"`
}

func (a *App) handlePreview(c echo.Context) error {
	ip := c.RealIP()
	if !a.previewLimiter.Check(ip) {
		return c.JSON(http.StatusTooManyRequests, messageResponse{Message: "Too many attempts"})
	}

	token := c.QueryParam("token")
	documentID := c.QueryParam("documentId")
	doc, err := a.Source.ResolvePreview(c.Request().Context(), token, documentID)
	if err != nil {
		if errors.Is(err, prismic.ErrNotFound) || prismic.IsClientError(err) {
			a.previewLimiter.Record(ip)
			c.Logger().Warnf("preview rejected for document %q: %v", documentID, err)
			return c.JSON(http.StatusUnauthorized, messageResponse{Message: "Invalid token"})
		}
		return err
	}

	if err := setPreviewRef(c, token); err != nil {
		return err
	}
	return Render(c, a.Views.PreviewRedirect(a.previewTarget(doc)))
}

func handleExitPreview(c echo.Context) error {
	if err := clearPreviewRef(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusTemporaryRedirect, "/")
}
