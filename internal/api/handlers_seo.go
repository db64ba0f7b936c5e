package api

import (
	"net/http"

	"github.com/dgallion1/jobtrail/internal/sitemap"
)

func (s *Server) handleSitemap(w http.ResponseWriter, r *http.Request) {
	if s.cfg.SiteBaseURL == "" {
		http.NotFound(w, r)
		return
	}
	body := sitemap.Build(s.cfg.SiteBaseURL, sitemap.Routes(s.cfg.SitemapRoutes), s.started)
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write([]byte(body))
}

func (s *Server) handleRobots(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write([]byte(sitemap.Robots(s.cfg.SiteBaseURL, s.cfg.SiteBaseURL != "")))
}
