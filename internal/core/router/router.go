// Package router exposes the DIGIPIN codec and the location registry over
// HTTP.
package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/digipin/internal/cache/keys"
	"github.com/mohammed-shakir/digipin/internal/cache/querycache"
	"github.com/mohammed-shakir/digipin/internal/core/config"
	"github.com/mohammed-shakir/digipin/internal/core/model"
	"github.com/mohammed-shakir/digipin/internal/core/observability"
	"github.com/mohammed-shakir/digipin/internal/interop"
	mylog "github.com/mohammed-shakir/digipin/internal/logger"
	"github.com/mohammed-shakir/digipin/internal/mapper"
	"github.com/mohammed-shakir/digipin/internal/registry"
	"github.com/mohammed-shakir/digipin/pkg/digipin"
)

const maxBodyBytes = 4 << 20

type API struct {
	log    *slog.Logger
	cfg    config.Config
	mapper mapper.Interface
	reg    *registry.Service
	cache  *querycache.Cache
}

func New(logger *slog.Logger, cfg config.Config, m mapper.Interface, reg *registry.Service, qc *querycache.Cache) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{log: logger, cfg: cfg, mapper: m, reg: reg, cache: qc}
}

// Mount registers the /v1 routes on r.
func (a *API) Mount(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/encode", a.encode)
		r.Get("/decode/{code}", a.decode)
		r.Get("/bounds/{code}", a.bounds)
		r.Get("/validate/{code}", a.validate)
		r.Get("/parent/{code}", a.parent)
		r.Get("/children/{code}", a.children)
		r.Get("/neighbors/{code}", a.neighbors)
		r.Get("/disk/{code}", a.disk)
		r.Get("/ring/{code}", a.ring)
		r.Get("/precision/{level}", a.precision)
		r.Get("/cover", a.cover)
		r.Post("/polyfill", a.polyfill)
		r.Post("/batch/encode", a.batchEncode)
		r.Post("/batch/decode", a.batchDecode)
		r.Get("/interop/{code}", a.interop)
		r.Get("/from/geohash/{hash}", a.fromGeohash)
		r.Get("/from/h3/{cell}", a.fromH3)

		if a.reg != nil {
			r.Get("/locations/nearby", a.nearby)
			r.Get("/locations/region/{prefix}", a.region)
			r.Put("/locations/{id}", a.putLocation)
			r.Get("/locations/{id}", a.getLocation)
			r.Delete("/locations/{id}", a.deleteLocation)
		}
	})
}

// codec runs one codec operation, records it and writes the result.
func (a *API) codec(w http.ResponseWriter, r *http.Request, op string, fn func() (any, error)) {
	ctx := mylog.WithOp(r.Context(), op)
	r = r.WithContext(ctx)
	v, err := fn()
	observability.ObserveCodecOp(op, err)
	if err != nil {
		writeError(a.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return err
		}
		return badf("decode body: %v", err)
	}
	return nil
}

type cellResponse struct {
	Code   string              `json:"code"`
	Lat    float64             `json:"lat"`
	Lon    float64             `json:"lon"`
	Bounds digipin.BoundingBox `json:"bounds"`
}

func (a *API) encode(w http.ResponseWriter, r *http.Request) {
	a.codec(w, r, "encode", func() (any, error) {
		lat, err := floatParam(r, "lat")
		if err != nil {
			return nil, err
		}
		lon, err := floatParam(r, "lon")
		if err != nil {
			return nil, err
		}
		p, err := intParam(r, "precision", a.cfg.DefaultPrecision)
		if err != nil {
			return nil, err
		}
		c, err := digipin.EncodeWithBounds(lat, lon, p)
		if err != nil {
			return nil, err
		}
		return cellResponse{Code: c.Code, Lat: lat, Lon: lon, Bounds: c.Bounds}, nil
	})
}

func (a *API) decode(w http.ResponseWriter, r *http.Request) {
	a.codec(w, r, "decode", func() (any, error) {
		c, err := digipin.DecodeWithBounds(chi.URLParam(r, "code"))
		if err != nil {
			return nil, err
		}
		return cellResponse{Code: c.Code, Lat: c.Lat, Lon: c.Lon, Bounds: c.Bounds}, nil
	})
}

func (a *API) bounds(w http.ResponseWriter, r *http.Request) {
	a.codec(w, r, "bounds", func() (any, error) {
		return digipin.Bounds(chi.URLParam(r, "code"))
	})
}

func (a *API) validate(w http.ResponseWriter, r *http.Request) {
	a.codec(w, r, "validate", func() (any, error) {
		code := chi.URLParam(r, "code")
		return map[string]any{
			"code":   code,
			"strict": boolParam(r, "strict"),
			"valid":  digipin.IsValid(code, boolParam(r, "strict")),
		}, nil
	})
}

func (a *API) parent(w http.ResponseWriter, r *http.Request) {
	a.codec(w, r, "parent", func() (any, error) {
		code := chi.URLParam(r, "code")
		level, err := intParam(r, "level", 0)
		if err != nil {
			return nil, err
		}
		if level == 0 {
			level = max(len(strings.TrimSpace(code))-1, digipin.MinPrecision)
		}
		p, err := digipin.Parent(code, level)
		if err != nil {
			return nil, err
		}
		return map[string]any{"code": strings.ToUpper(code), "parent": p, "level": level}, nil
	})
}

func (a *API) children(w http.ResponseWriter, r *http.Request) {
	a.codec(w, r, "children", func() (any, error) {
		code, err := digipin.Normalize(chi.URLParam(r, "code"))
		if err != nil {
			return nil, err
		}
		level, err := intParam(r, "level", len(code)+1)
		if err != nil {
			return nil, err
		}
		kids, err := a.mapper.ToChildren(code, level)
		if err != nil {
			return nil, err
		}
		return map[string]any{"code": code, "level": level, "children": kids}, nil
	})
}

func (a *API) neighbors(w http.ResponseWriter, r *http.Request) {
	a.codec(w, r, "neighbors", func() (any, error) {
		code, err := digipin.Normalize(chi.URLParam(r, "code"))
		if err != nil {
			return nil, err
		}
		dirRaw := r.URL.Query().Get("direction")
		if dirRaw == "" {
			dirRaw = string(digipin.DirectionAll)
		}
		dir, err := digipin.ParseDirection(dirRaw)
		if err != nil {
			return nil, err
		}
		key := keys.QueryKey("neighbors", code, string(dir))
		cells, err := a.cache.Do("neighbors", key, func() ([]string, error) {
			return digipin.Neighbors(code, dir)
		})
		if err != nil {
			return nil, err
		}
		return map[string]any{"code": code, "direction": dir, "neighbors": cells}, nil
	})
}

func (a *API) disk(w http.ResponseWriter, r *http.Request) {
	a.area(w, r, "disk", 1, digipin.Disk)
}

func (a *API) ring(w http.ResponseWriter, r *http.Request) {
	a.area(w, r, "ring", 1, digipin.Ring)
}

func (a *API) area(w http.ResponseWriter, r *http.Request, op string, def int, fn func(string, int) ([]string, error)) {
	a.codec(w, r, op, func() (any, error) {
		code, err := digipin.Normalize(chi.URLParam(r, "code"))
		if err != nil {
			return nil, err
		}
		radius, err := intParam(r, "radius", def)
		if err != nil {
			return nil, err
		}
		if radius > a.cfg.MaxRadius {
			return nil, &digipin.DomainError{Param: "radius", Value: radius, Want: fmt.Sprintf("at most %d", a.cfg.MaxRadius)}
		}
		key := keys.QueryKey(op, code, strconv.Itoa(radius))
		cells, err := a.cache.Do(op, key, func() ([]string, error) { return fn(code, radius) })
		if err != nil {
			return nil, err
		}
		return map[string]any{"code": code, "radius": radius, "cells": cells}, nil
	})
}

func (a *API) precision(w http.ResponseWriter, r *http.Request) {
	a.codec(w, r, "precision", func() (any, error) {
		raw := chi.URLParam(r, "level")
		level, err := strconv.Atoi(raw)
		if err != nil {
			return nil, badf("level: not an integer: %q", raw)
		}
		return digipin.PrecisionInfo(level)
	})
}

type areaResponse struct {
	Precision int                 `json:"precision"`
	Count     int                 `json:"count"`
	Cells     model.Cells         `json:"cells"`
	Bounds    digipin.BoundingBox `json:"bounds"`
}

func newAreaResponse(p int, cells model.Cells) (areaResponse, error) {
	b, err := digipin.PolygonBoundary(cells)
	if err != nil {
		return areaResponse{}, err
	}
	if cells == nil {
		cells = model.Cells{}
	}
	return areaResponse{Precision: p, Count: len(cells), Cells: cells, Bounds: b}, nil
}

func (a *API) cover(w http.ResponseWriter, r *http.Request) {
	a.codec(w, r, "cover", func() (any, error) {
		raw := strings.TrimSpace(r.URL.Query().Get("bbox"))
		if raw == "" {
			return nil, badf("missing required parameter: bbox")
		}
		bb, err := parseBBOX(raw)
		if err != nil {
			return nil, badf("invalid bbox: %v", err)
		}
		p, err := intParam(r, "precision", 6)
		if err != nil {
			return nil, err
		}
		key := keys.QueryKey("cover", strconv.Itoa(p), bb.String())
		cells, err := a.cache.Do("cover", key, func() ([]string, error) {
			return a.mapper.CellsForBBox(bb, p)
		})
		if err != nil {
			if digipin.ErrorKind(err) == "" {
				return nil, badRequest{err: err}
			}
			return nil, err
		}
		return newAreaResponse(p, cells)
	})
}

func (a *API) polyfill(w http.ResponseWriter, r *http.Request) {
	a.codec(w, r, "polyfill", func() (any, error) {
		p, err := intParam(r, "precision", 6)
		if err != nil {
			return nil, err
		}
		raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			return nil, err
		}
		poly, err := parsePolygon(raw)
		if err != nil {
			return nil, badRequest{err: err}
		}
		key := keys.QueryKey("polyfill", strconv.Itoa(p), poly.GeoJSON)
		cells, err := a.cache.Do("polyfill", key, func() ([]string, error) {
			return a.mapper.CellsForPolygon(poly, p)
		})
		if err != nil {
			if digipin.ErrorKind(err) == "" {
				return nil, badRequest{err: err}
			}
			return nil, err
		}
		return newAreaResponse(p, cells)
	})
}

func (a *API) checkBatch(n int) error {
	if n > a.cfg.MaxBatch {
		return &digipin.DomainError{Param: "batch size", Value: n, Want: fmt.Sprintf("at most %d", a.cfg.MaxBatch)}
	}
	return nil
}

func (a *API) batchEncode(w http.ResponseWriter, r *http.Request) {
	a.codec(w, r, "batch_encode", func() (any, error) {
		var req struct {
			Precision   int                  `json:"precision"`
			Coordinates []digipin.Coordinate `json:"coordinates"`
		}
		if err := decodeBody(w, r, &req); err != nil {
			return nil, err
		}
		if err := a.checkBatch(len(req.Coordinates)); err != nil {
			return nil, err
		}
		if req.Precision == 0 {
			req.Precision = a.cfg.DefaultPrecision
		}
		codes, err := digipin.BatchEncode(req.Coordinates, req.Precision)
		if err != nil {
			return nil, err
		}
		return map[string]any{"precision": req.Precision, "codes": codes}, nil
	})
}

func (a *API) batchDecode(w http.ResponseWriter, r *http.Request) {
	a.codec(w, r, "batch_decode", func() (any, error) {
		var req struct {
			Codes []string `json:"codes"`
		}
		if err := decodeBody(w, r, &req); err != nil {
			return nil, err
		}
		if err := a.checkBatch(len(req.Codes)); err != nil {
			return nil, err
		}
		coords, err := digipin.BatchDecode(req.Codes)
		if err != nil {
			return nil, err
		}
		return map[string]any{"coordinates": coords}, nil
	})
}

func (a *API) interop(w http.ResponseWriter, r *http.Request) {
	a.codec(w, r, "interop", func() (any, error) {
		res, err := intParam(r, "h3res", -1)
		if err != nil {
			return nil, err
		}
		return interop.Lookup(chi.URLParam(r, "code"), res)
	})
}

func (a *API) fromGeohash(w http.ResponseWriter, r *http.Request) {
	a.codec(w, r, "from_geohash", func() (any, error) {
		p, err := intParam(r, "precision", a.cfg.DefaultPrecision)
		if err != nil {
			return nil, err
		}
		code, err := interop.FromGeohash(chi.URLParam(r, "hash"), p)
		if err != nil {
			if digipin.ErrorKind(err) == "" {
				return nil, badRequest{err: err}
			}
			return nil, err
		}
		return map[string]any{"geohash": chi.URLParam(r, "hash"), "code": code}, nil
	})
}

func (a *API) fromH3(w http.ResponseWriter, r *http.Request) {
	a.codec(w, r, "from_h3", func() (any, error) {
		p, err := intParam(r, "precision", a.cfg.DefaultPrecision)
		if err != nil {
			return nil, err
		}
		code, err := interop.FromH3(chi.URLParam(r, "cell"), p)
		if err != nil {
			if digipin.ErrorKind(err) == "" {
				return nil, badRequest{err: err}
			}
			return nil, err
		}
		return map[string]any{"h3": chi.URLParam(r, "cell"), "code": code}, nil
	})
}
