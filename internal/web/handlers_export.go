package web

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/lakshya1112/Buyer-lead-app/internal/core"
)

// handleExport downloads every lead matching the list filters, ignoring
// pagination. The file is built in memory first so a failed query still
// gets a proper error status.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	format, err := parseFormat(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var buf bytes.Buffer
	n, err := s.service.Export(r.Context(), filter, format, &buf)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	setDownloadHeaders(w, format, "leads_"+time.Now().UTC().Format("20060102_150405"))
	w.Header().Set("X-Export-Count", strconv.Itoa(n))
	_, _ = buf.WriteTo(w)
}

func setDownloadHeaders(w http.ResponseWriter, format core.TableFormat, basename string) {
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, basename, format))
}
