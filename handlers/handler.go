package handlers

import (
	"net/http"
	"sync"

	"homecook-api/auth"
	"homecook-api/catalog"
	"homecook-api/middleware"
	"homecook-api/session"
	"homecook-api/store"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/sirupsen/logrus"
)

type Deps struct {
	Auth     *auth.Service
	Profiles *store.ProfileStore
	Spots    *store.SpotRepository
	Orders   *store.OrderStore
	Catalog  *catalog.Sync
	Sessions *session.Registry
	Logger   logrus.FieldLogger
}

// Handler serves the HTTP API
type Handler struct {
	auth     *auth.Service
	profiles *store.ProfileStore
	spots    *store.SpotRepository
	orders   *store.OrderStore
	catalog  *catalog.Sync
	sessions *session.Registry
	log      logrus.FieldLogger
}

var registerValidators sync.Once

func New(d Deps) *Handler {
	log := d.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	registerValidators.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
				log.WithError(err).Error("Registering notblank validator failed")
			}
		}
	})
	return &Handler{
		auth:     d.Auth,
		profiles: d.Profiles,
		spots:    d.Spots,
		orders:   d.Orders,
		catalog:  d.Catalog,
		sessions: d.Sessions,
		log:      log,
	}
}

// session returns the caller's in-memory session
func (h *Handler) session(c *gin.Context) *session.Session {
	return h.sessions.Get(middleware.GetUserID(c), middleware.GetRole(c))
}

func (h *Handler) internalError(c *gin.Context, msg string, err error) {
	h.log.WithError(err).WithField("path", c.FullPath()).Error(msg)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}
