package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sadikovi/pulsar/cache"
	"github.com/sadikovi/pulsar/engine"
	"github.com/sadikovi/pulsar/metrics"
	"github.com/sadikovi/pulsar/models"
	"github.com/sadikovi/pulsar/pricing"
	"github.com/sadikovi/pulsar/services"
	"github.com/sadikovi/pulsar/storage"
	"github.com/sadikovi/pulsar/utils"
)

// Handlers own the HTTP surface. Catalog and bundle reads go through the
// byte cache; session routes go through the manager, which serializes all
// engine access per session.
type Handlers struct {
	store    storage.BundleStore
	cache    cache.Store
	cacheTTL time.Duration
	sessions *SessionManager
	policy   *engine.Policy
	logger   *utils.Logger
}

// NewHandlers wires the handler set. A nil policy means the default
// threshold table.
func NewHandlers(store storage.BundleStore, c cache.Store, cacheTTL time.Duration,
	sessions *SessionManager, policy *engine.Policy, logger *utils.Logger) *Handlers {
	return &Handlers{
		store:    store,
		cache:    c,
		cacheTTL: cacheTTL,
		sessions: sessions,
		policy:   policy,
		logger:   logger,
	}
}

// viewState is the navigation payload returned by every route that moves
// the visible slice.
type viewState struct {
	Graph      *models.VisibleGraph `json:"graph"`
	Depth      int                  `json:"depth"`
	Selected   string               `json:"selected,omitempty"`
	CanZoomOut bool                 `json:"can_zoom_out"`
}

func view(sess *engine.Session) viewState {
	selected, _ := sess.Selected()
	return viewState{
		Graph:      sess.Graph(),
		Depth:      sess.Depth(),
		Selected:   selected,
		CanZoomOut: sess.CanZoomOut(),
	}
}

// sessionState is the full session payload: identity, classification
// totals, and the current view.
type sessionState struct {
	Session        string    `json:"session"`
	Dataset        string    `json:"dataset"`
	ReferencePrice float64   `json:"reference_price"`
	Classified     int       `json:"classified"`
	Excluded       int       `json:"excluded"`
	View           viewState `json:"view"`
}

func (h *Handlers) Health(c *gin.Context) {
	respondOK(c, http.StatusOK, gin.H{"healthy": true})
}

// ListDatasets serves the catalog, cached briefly so browsing does not
// re-scan the store on every page load.
func (h *Handlers) ListDatasets(c *gin.Context) {
	ctx := c.Request.Context()

	if raw, ok := h.cache.Get(ctx, "datasets"); ok {
		var datasets []models.Dataset
		if err := json.Unmarshal(raw, &datasets); err == nil {
			metrics.CacheHitsTotal.Inc()
			respondOK(c, http.StatusOK, gin.H{"datasets": datasets})
			return
		}
		h.cache.Delete(ctx, "datasets")
	}
	metrics.CacheMissesTotal.Inc()

	datasets, err := h.store.ListDatasets(ctx)
	if err != nil {
		h.logger.Error("[api] Listing datasets failed: %v", err)
		respondError(c, http.StatusInternalServerError, "storage_error", "could not list datasets")
		return
	}
	if raw, err := json.Marshal(datasets); err == nil {
		h.cache.Set(ctx, "datasets", raw, h.cacheTTL)
	}
	respondOK(c, http.StatusOK, gin.H{"datasets": datasets})
}

type createSessionRequest struct {
	Dataset        string              `json:"dataset" binding:"required"`
	ReferencePrice float64             `json:"reference_price"`
	Filter         *models.OfferFilter `json:"filter"`
}

// CreateSession loads the bundle, applies the optional offer filter, and
// builds the engine over it. The reference price defaults to the estimator
// midpoint of the filtered offers.
func (h *Handlers) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	bundle, err := h.loadBundle(c, req.Dataset)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(c, http.StatusNotFound, "dataset_not_found", err.Error())
			return
		}
		h.logger.Error("[api] Loading dataset %q failed: %v", req.Dataset, err)
		respondError(c, http.StatusInternalServerError, "storage_error", "could not load dataset")
		return
	}

	offers := bundle.Offers
	if req.Filter != nil {
		offers = services.Filter(offers, *req.Filter)
	}
	reference := req.ReferencePrice
	if reference <= 0 {
		reference = pricing.NewPassthrough(offers).MidPoint()
	}

	start := time.Now()
	sess, err := engine.NewSession(bundle.Records, offers, engine.Options{
		ReferencePrice: reference,
		Policy:         h.policy,
	})
	if err != nil {
		if errors.Is(err, engine.ErrBadReference) {
			respondError(c, http.StatusBadRequest, "bad_reference",
				"no usable reference price; pass reference_price explicitly")
			return
		}
		respondError(c, http.StatusUnprocessableEntity, "invalid_dataset", err.Error())
		return
	}
	metrics.BuildDurationMs.Observe(float64(time.Since(start).Milliseconds()))
	metrics.ExcludedOffersTotal.Add(float64(sess.Excluded()))

	id := h.sessions.Put(sess, bundle.Dataset.ID)
	h.logger.Info("[api] Session %s opened on %q: %d classified, %d excluded",
		id, bundle.Dataset.ID, sess.Classified(), sess.Excluded())

	respondOK(c, http.StatusCreated, sessionState{
		Session:        id,
		Dataset:        bundle.Dataset.ID,
		ReferencePrice: sess.Reference(),
		Classified:     sess.Classified(),
		Excluded:       sess.Excluded(),
		View:           view(sess),
	})
}

// loadBundle reads a dataset through the byte cache.
func (h *Handlers) loadBundle(c *gin.Context, id string) (*models.Bundle, error) {
	ctx := c.Request.Context()
	key := "bundle:" + id

	if raw, ok := h.cache.Get(ctx, key); ok {
		var bundle models.Bundle
		if err := json.Unmarshal(raw, &bundle); err == nil {
			metrics.CacheHitsTotal.Inc()
			return &bundle, nil
		}
		h.cache.Delete(ctx, key)
	}
	metrics.CacheMissesTotal.Inc()

	bundle, err := h.store.LoadBundle(ctx, id)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(bundle); err == nil {
		h.cache.Set(ctx, key, raw, h.cacheTTL)
	}
	return bundle, nil
}

// withSession resolves the session id and runs fn under the session lock.
func (h *Handlers) withSession(c *gin.Context, fn func(*engine.Session)) {
	id := c.Param("id")
	err := h.sessions.With(id, func(sess *engine.Session) error {
		fn(sess)
		return nil
	})
	if err != nil {
		respondError(c, http.StatusNotFound, "session_not_found", "no session "+id)
	}
}

func (h *Handlers) Graph(c *gin.Context) {
	h.withSession(c, func(sess *engine.Session) {
		respondOK(c, http.StatusOK, view(sess))
	})
}

type nodeRequest struct {
	Node string `json:"node" binding:"required"`
}

func (h *Handlers) ZoomIn(c *gin.Context) {
	var req nodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	h.withSession(c, func(sess *engine.Session) {
		if _, ok := sess.ZoomIn(req.Node); !ok {
			respondError(c, http.StatusConflict, "zoom_in_rejected",
				"node "+req.Node+" is not zoomable from the current slice")
			return
		}
		respondOK(c, http.StatusOK, view(sess))
	})
}

type zoomOutRequest struct {
	Steps int `json:"steps"`
}

// ZoomOut never fails: steps clamp to the stack depth and an empty stack is
// a no-op.
func (h *Handlers) ZoomOut(c *gin.Context) {
	req := zoomOutRequest{Steps: 1}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
	}
	if req.Steps <= 0 {
		req.Steps = 1
	}
	h.withSession(c, func(sess *engine.Session) {
		sess.ZoomOut(req.Steps)
		respondOK(c, http.StatusOK, view(sess))
	})
}

func (h *Handlers) Drilldown(c *gin.Context) {
	var req nodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	h.withSession(c, func(sess *engine.Session) {
		if _, ok := sess.Drilldown(req.Node); !ok {
			respondError(c, http.StatusConflict, "drilldown_rejected",
				"node "+req.Node+" is not expandable from the current slice")
			return
		}
		respondOK(c, http.StatusOK, view(sess))
	})
}

func (h *Handlers) Rollup(c *gin.Context) {
	var req nodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	h.withSession(c, func(sess *engine.Session) {
		if _, ok := sess.Rollup(req.Node); !ok {
			respondError(c, http.StatusConflict, "rollup_rejected",
				"node "+req.Node+" is not collapsible from the current slice")
			return
		}
		respondOK(c, http.StatusOK, view(sess))
	})
}

func (h *Handlers) Select(c *gin.Context) {
	var req nodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	h.withSession(c, func(sess *engine.Session) {
		if !sess.Select(req.Node) {
			respondError(c, http.StatusConflict, "select_rejected",
				"node "+req.Node+" is not visible")
			return
		}
		respondOK(c, http.StatusOK, view(sess))
	})
}

func (h *Handlers) Deselect(c *gin.Context) {
	h.withSession(c, func(sess *engine.Session) {
		sess.Deselect()
		respondOK(c, http.StatusOK, view(sess))
	})
}

func (h *Handlers) Stack(c *gin.Context) {
	h.withSession(c, func(sess *engine.Session) {
		respondOK(c, http.StatusOK, gin.H{
			"breadcrumbs": sess.Breadcrumbs(),
			"depth":       sess.Depth(),
		})
	})
}

func (h *Handlers) Reset(c *gin.Context) {
	h.withSession(c, func(sess *engine.Session) {
		sess.Reset()
		respondOK(c, http.StatusOK, view(sess))
	})
}

type repriceRequest struct {
	ReferencePrice float64 `json:"reference_price" binding:"required"`
}

// Reprice starts a new search on the same dataset: everything is
// reclassified against the new reference and navigation resets to the root.
func (h *Handlers) Reprice(c *gin.Context) {
	var req repriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	id := c.Param("id")
	h.withSession(c, func(sess *engine.Session) {
		if err := sess.Reprice(req.ReferencePrice); err != nil {
			respondError(c, http.StatusBadRequest, "bad_reference", err.Error())
			return
		}
		metrics.ExcludedOffersTotal.Add(float64(sess.Excluded()))
		dataset, _ := h.sessions.Dataset(id)
		respondOK(c, http.StatusOK, sessionState{
			Session:        id,
			Dataset:        dataset,
			ReferencePrice: sess.Reference(),
			Classified:     sess.Classified(),
			Excluded:       sess.Excluded(),
			View:           view(sess),
		})
	})
}

func (h *Handlers) DeleteSession(c *gin.Context) {
	id := c.Param("id")
	if !h.sessions.Delete(id) {
		respondError(c, http.StatusNotFound, "session_not_found", "no session "+id)
		return
	}
	h.logger.Info("[api] Session %s closed", id)
	respondOK(c, http.StatusOK, gin.H{"deleted": id})
}
