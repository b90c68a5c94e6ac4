// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/dustin/go-humanize"

	"github.com/tomtom215/trackgraph/internal/logging"
)

// multipartMemory is how much of a form is buffered before spilling to disk.
const multipartMemory = 32 << 20

// DatasetInfo handles GET /api/v1/history.
func (h *Handler) DatasetInfo(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, h.svc.DatasetInfo())
}

// UploadHistory handles POST /api/v1/history/upload with a multipart
// "file" field holding a CSV or JSON export.
func (h *Handler) UploadHistory(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if tooLarge(err) {
			rw.PayloadTooLarge(msgUploadTooBig + " Limit is " + humanize.IBytes(uint64(h.maxUploadBytes)) + ".")
			return
		}
		rw.BadRequest(msgUploadMissing)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil || header.Filename == "" {
		rw.BadRequest(msgUploadMissing)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		if tooLarge(err) {
			rw.PayloadTooLarge(msgUploadTooBig)
			return
		}
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Failed to read uploaded file")
		rw.BadRequest(msgUploadMissing)
		return
	}
	if len(data) == 0 {
		rw.BadRequest(msgUploadEmpty)
		return
	}

	res, err := h.svc.UploadHistory(r.Context(), header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		rw.ServiceError(err)
		return
	}
	rw.Success(res)
}

// UseDefaultHistory handles POST /api/v1/history/default.
func (h *Handler) UseDefaultHistory(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.UseDefaultHistory(r.Context())
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, res)
}

func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
