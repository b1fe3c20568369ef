package server

import (
	"github.com/gofiber/fiber/v2"
)

// MetaResponse represents the server metadata response.
type MetaResponse struct {
	Version            string `json:"version"`
	HTTPServerTimeout  string `json:"http_server_timeout"`
	AlertsEnabled      bool   `json:"alerts_enabled"`
	DispatchInterval   string `json:"dispatch_interval"`
	SeverityThreshold  int    `json:"severity_threshold"`
	DispatchBatchLimit int    `json:"dispatch_batch_limit"`
}

// handleGetMeta returns server metadata including version and alerting
// configuration.
// URL: GET /api/v1/meta
func (s *Server) handleGetMeta(c *fiber.Ctx) error {
	meta := MetaResponse{
		Version:            s.version,
		HTTPServerTimeout:  s.config.Server.HTTPServerTimeout.String(),
		AlertsEnabled:      s.config.Alerts.Enabled,
		DispatchInterval:   s.config.Alerts.DispatchInterval.String(),
		SeverityThreshold:  s.config.Alerts.SeverityThreshold,
		DispatchBatchLimit: s.config.Alerts.BatchLimit,
	}
	return SendSuccess(c, fiber.StatusOK, meta)
}
