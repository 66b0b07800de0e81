package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"taskdesk/internal/authz"
	"taskdesk/internal/repositories"
	"taskdesk/internal/services"
	"taskdesk/internal/taskengine"
)

type errorResponse struct {
	Error string `json:"error"`
}

func actorFromCtx(c *gin.Context) (authz.Actor, bool) {
	v, ok := c.Get(authz.ActorContextKey)
	if !ok {
		return authz.Actor{}, false
	}
	a, ok := v.(authz.Actor)
	return a, ok
}

// mustActor пишет 401 и возвращает false, если в контексте нет пользователя.
func mustActor(c *gin.Context, area string) (authz.Actor, bool) {
	a, ok := actorFromCtx(c)
	if !ok {
		log.Printf("[%s][auth][err] no actor in context", area)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
	return a, ok
}

func parseIDParam(c *gin.Context, name, area, op string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		log.Printf("[%s][%s][err] invalid %s=%q", area, op, name, c.Param(name))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, taskengine.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, taskengine.ErrPhotoRequired):
		return http.StatusUnprocessableEntity
	case errors.Is(err, taskengine.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, taskengine.ErrInvalidRecurrence),
		errors.Is(err, taskengine.ErrInvalidTask),
		errors.Is(err, services.ErrInvalidUser):
		return http.StatusBadRequest
	case errors.Is(err, taskengine.ErrTooManyPhotos),
		errors.Is(err, repositories.ErrDuplicateEmail):
		return http.StatusConflict
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeError логирует ошибку с тегами area/op и отвечает соответствующим статусом.
// Внутренние ошибки наружу не уходят.
func writeError(c *gin.Context, area, op string, err error) {
	code := statusOf(err)
	log.Printf("[%s][%s][err] status=%d: %v", area, op, code, err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.JSON(code, gin.H{"error": msg})
}

// Clock gives handlers "today" in the business time zone.
type Clock struct {
	Location *time.Location
	Now      func() time.Time
}

func NewClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return Clock{Location: loc, Now: time.Now}
}

func (k Clock) Today() time.Time {
	now := time.Now
	if k.Now != nil {
		now = k.Now
	}
	loc := k.Location
	if loc == nil {
		loc = time.UTC
	}
	return now().In(loc)
}

// dateFromQuery reads ?date=YYYY-MM-DD; without it the clock decides.
func dateFromQuery(c *gin.Context, clock Clock) (time.Time, error) {
	v := c.Query("date")
	if v == "" {
		return clock.Today(), nil
	}
	loc := clock.Location
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation("2006-01-02", v, loc)
}
