package router

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/digipin/internal/core/model"
	mylog "github.com/mohammed-shakir/digipin/internal/logger"
	"github.com/mohammed-shakir/digipin/internal/registry"
	"github.com/mohammed-shakir/digipin/pkg/digipin"
)

func (a *API) putLocation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	r = r.WithContext(mylog.WithOp(r.Context(), "location_put"))

	var in model.LocationInput
	if err := decodeBody(w, r, &in); err != nil {
		writeError(a.log, w, r, err)
		return
	}
	loc, err := a.reg.Upsert(r.Context(), id, in)
	if err != nil {
		writeError(a.log, w, r, err)
		return
	}
	a.log.DebugContext(mylog.WithCode(r.Context(), loc.Code), "location stored", "id", loc.ID, "version", loc.Version)
	writeJSON(w, http.StatusOK, loc)
}

func (a *API) getLocation(w http.ResponseWriter, r *http.Request) {
	r = r.WithContext(mylog.WithOp(r.Context(), "location_get"))
	loc, err := a.reg.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(a.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

func (a *API) deleteLocation(w http.ResponseWriter, r *http.Request) {
	r = r.WithContext(mylog.WithOp(r.Context(), "location_delete"))
	if err := a.reg.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(a.log, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) nearby(w http.ResponseWriter, r *http.Request) {
	r = r.WithContext(mylog.WithOp(r.Context(), "location_nearby"))
	hits, err := func() ([]registry.Hit, error) {
		lat, err := floatParam(r, "lat")
		if err != nil {
			return nil, err
		}
		lon, err := floatParam(r, "lon")
		if err != nil {
			return nil, err
		}
		radius, err := intParam(r, "radius", 1)
		if err != nil {
			return nil, err
		}
		if radius > a.cfg.MaxRadius {
			return nil, &digipin.DomainError{Param: "radius", Value: radius, Want: fmt.Sprintf("at most %d", a.cfg.MaxRadius)}
		}
		limit, err := intParam(r, "limit", 0)
		if err != nil {
			return nil, err
		}
		precision, err := intParam(r, "precision", 0)
		if err != nil {
			return nil, err
		}
		if precision == 0 {
			return a.reg.Nearby(r.Context(), lat, lon, radius, limit)
		}
		return a.reg.NearbyAt(r.Context(), lat, lon, precision, radius, limit)
	}()
	if err != nil {
		writeError(a.log, w, r, err)
		return
	}
	if hits == nil {
		hits = []registry.Hit{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(hits), "hits": hits})
}

func (a *API) region(w http.ResponseWriter, r *http.Request) {
	r = r.WithContext(mylog.WithOp(r.Context(), "location_region"))
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		writeError(a.log, w, r, err)
		return
	}
	locs, err := a.reg.Region(r.Context(), chi.URLParam(r, "prefix"), limit)
	if err != nil {
		writeError(a.log, w, r, err)
		return
	}
	if locs == nil {
		locs = []model.Location{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(locs), "locations": locs})
}
