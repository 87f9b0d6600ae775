package adapthttp

import "net/http"

// page serves an informational screen. The navigation reflects the viewer's
// session; the content does not depend on it.
func (s *Server) page(view, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, view, http.StatusOK, pageData{Title: title, Session: s.viewer(r)})
	}
}
