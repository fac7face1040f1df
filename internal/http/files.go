package http

import (
	"io"
	stdhttp "net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"traderesearch/app/internal/storage"
)

// filesHandler serves attachment blobs addressed by signed URLs. The
// signature is the entire access check: no session is consulted, so the URL
// works inside an iframe or a download manager until it expires.
func (s *Server) filesHandler(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	key := r.PathValue("key")
	query := r.URL.Query()

	expires, err := strconv.ParseInt(query.Get("exp"), 10, 64)
	if err != nil {
		stdhttp.Error(w, "invalid signature", stdhttp.StatusForbidden)
		return
	}

	if err := s.blobs.Verify(key, expires, query.Get("sig")); err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{
				"key":   key,
				"error": err.Error(),
			}).Warn("rejected blob request")
		}
		stdhttp.Error(w, "invalid signature", stdhttp.StatusForbidden)
		return
	}

	reader, size, err := s.blobs.Open(key)
	if err != nil {
		if eris.Is(err, storage.ErrBlobNotFound) {
			stdhttp.Error(w, "not found", stdhttp.StatusNotFound)
			return
		}

		s.recordError(r.Context(), err, "opening blob", logrus.Fields{"key": key})
		stdhttp.Error(w, "internal server error", stdhttp.StatusInternalServerError)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", blobContentType(key))
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.Header().Set("Cache-Control", "private, no-store")

	if _, err := io.Copy(w, reader); err != nil {
		s.recordError(r.Context(), err, "streaming blob", logrus.Fields{"key": key})
	}
}

func blobContentType(key string) string {
	if strings.EqualFold(filepath.Ext(key), ".pdf") {
		return "application/pdf"
	}
	return "application/octet-stream"
}
