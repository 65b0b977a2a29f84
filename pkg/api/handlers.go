package api

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ssargent/mnistidx/pkg/codec"
	"github.com/ssargent/mnistidx/pkg/dataset"
	"github.com/ssargent/mnistidx/pkg/storage"
)

const (
	defaultPageSize = 20
	maxPageSize     = 500
	maxImageScale   = 16
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	split, ok := s.split(w, r)
	if !ok {
		return
	}

	start := time.Now()
	m, err := s.store.Manifest(split)
	s.metrics.RecordStoreOperation("manifest", err == nil || errors.Is(err, storage.ErrNotFound), time.Since(start))
	if err != nil {
		s.storeError(w, err)
		return
	}
	sendSuccess(w, m)
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	split, ok := s.split(w, r)
	if !ok {
		return
	}

	from, err := queryUint32(r, "from", 0)
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	limit, err := queryUint32(r, "limit", defaultPageSize)
	if err != nil || limit == 0 || limit > maxPageSize {
		sendError(w, fmt.Sprintf("limit must be between 1 and %d", maxPageSize), http.StatusBadRequest)
		return
	}

	start := time.Now()
	page := RecordListResponse{Split: split.String(), From: from, Records: []RecordResponse{}}
	// One extra record tells whether another page follows.
	err = s.store.Scan(split, from, int(limit)+1, func(rec codec.Record) error {
		if len(page.Records) == int(limit) {
			next := rec.Index()
			page.Next = &next
			return nil
		}
		page.Records = append(page.Records, s.recordResponse(split, rec))
		return nil
	})
	s.metrics.RecordStoreOperation("scan", err == nil, time.Since(start))
	if err != nil {
		s.storeError(w, err)
		return
	}
	sendSuccess(w, page)
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	split, rec, ok := s.record(w, r)
	if !ok {
		return
	}
	sendSuccess(w, s.recordResponse(split, rec))
}

func (s *Server) handleRecordImage(w http.ResponseWriter, r *http.Request) {
	_, rec, ok := s.record(w, r)
	if !ok {
		return
	}

	scale, err := queryUint32(r, "scale", 1)
	if err != nil || scale == 0 || scale > maxImageScale {
		sendError(w, fmt.Sprintf("scale must be between 1 and %d", maxImageScale), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if err := png.Encode(w, upscale(rec.Image(), int(scale))); err != nil {
		s.logger.Warn("png encode failed", "index", rec.Index(), "error", err)
		return
	}
	s.metrics.RecordImageRendered()
}

// record resolves the split and index URL parameters to a stored record,
// writing the error response itself when it fails.
func (s *Server) record(w http.ResponseWriter, r *http.Request) (dataset.Split, codec.Record, bool) {
	split, ok := s.split(w, r)
	if !ok {
		return 0, codec.Record{}, false
	}

	index, err := strconv.ParseUint(chi.URLParam(r, "index"), 10, 32)
	if err != nil {
		sendError(w, "index must be a non-negative integer", http.StatusBadRequest)
		return 0, codec.Record{}, false
	}

	start := time.Now()
	rec, err := s.store.Get(split, uint32(index))
	s.metrics.RecordStoreOperation("get", err == nil || errors.Is(err, storage.ErrNotFound), time.Since(start))
	if err != nil {
		s.storeError(w, err)
		return 0, codec.Record{}, false
	}
	return split, rec, true
}

func (s *Server) split(w http.ResponseWriter, r *http.Request) (dataset.Split, bool) {
	split, err := dataset.ParseSplit(chi.URLParam(r, "split"))
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return 0, false
	}
	return split, true
}

func (s *Server) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		sendError(w, err.Error(), http.StatusNotFound)
		return
	}
	s.logger.Error("record store failed", "error", err)
	sendError(w, "Failed to read record store", http.StatusInternalServerError)
}

func (s *Server) recordResponse(split dataset.Split, rec codec.Record) RecordResponse {
	return RecordResponse{
		Index:  rec.Index(),
		Label:  rec.Label(),
		Rows:   rec.Rows(),
		Cols:   rec.Cols(),
		Pixels: rec.Pixels(),
		Image:  fmt.Sprintf("/api/v1/splits/%s/records/%d/image.png", split, rec.Index()),
	}
}

func queryUint32(r *http.Request, name string, def uint32) (uint32, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return uint32(v), nil
}

// upscale enlarges img by an integer factor with nearest-neighbour sampling.
func upscale(img *image.Gray, factor int) *image.Gray {
	if factor == 1 {
		return img
	}
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	for y := 0; y < out.Rect.Dy(); y++ {
		for x := 0; x < out.Rect.Dx(); x++ {
			out.Pix[y*out.Stride+x] = img.Pix[(y/factor)*img.Stride+x/factor]
		}
	}
	return out
}
