package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"go-offline-cache/internal/fetch"
	"go-offline-cache/internal/models"
	"go-offline-cache/internal/offline"
	"go-offline-cache/internal/utils"
)

// handleStatus reports the controlling generation and recent notifications
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	notifications := s.hub.Recent()
	if notifications == nil {
		notifications = []models.Notification{}
	}
	s.writeResponse(w, &StatusResponse{
		Success:       true,
		Status:        s.registration.Status(),
		Notifications: notifications,
	})
}

// handleNamespaces lists the cache namespaces
func (s *Server) handleNamespaces(w http.ResponseWriter, r *http.Request) {
	names, err := s.storage.Keys()
	if err != nil {
		s.writeErrorResponse(w, fmt.Sprintf("Storage error: %v", err), http.StatusInternalServerError)
		return
	}
	if names == nil {
		names = []string{}
	}
	s.writeResponse(w, &NamespacesResponse{Success: true, Namespaces: names})
}

// handleUpdate runs an update check now
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	changed, err := s.updater.Check(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, offline.ErrInstallFailed) {
			status = http.StatusBadGateway
		}
		s.writeErrorResponse(w, fmt.Sprintf("Update failed: %v", err), status)
		return
	}
	s.writeResponse(w, &UpdateResponse{
		Success:   true,
		Changed:   changed,
		Namespace: s.registration.Status().Namespace,
	})
}

// handleSync delivers a background-sync trigger
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var req SyncRequest
	if err := s.parseRequest(r, &req); err != nil {
		s.writeErrorResponse(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Tag == "" {
		s.writeErrorResponse(w, "Missing required field: tag", http.StatusBadRequest)
		return
	}
	s.dispatch(w, r, models.Event{Kind: models.EventSync, Tag: req.Tag})
}

// handlePush delivers a push message; the raw body is the payload
func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	payload, err := s.readBody(r)
	if err != nil {
		s.writeErrorResponse(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if len(payload) == 0 {
		payload = nil
	}
	s.dispatch(w, r, models.Event{Kind: models.EventPush, Payload: payload})
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, ev models.Event) {
	if _, err := s.registration.Dispatch(r.Context(), ev); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, offline.ErrNoController) {
			status = http.StatusServiceUnavailable
		}
		s.writeErrorResponse(w, fmt.Sprintf("Event %s failed: %v", ev.Kind, err), status)
		return
	}
	s.writeResponse(w, &EventResponse{Success: true, Event: string(ev.Kind)})
}

// handleEvents upgrades to the page events stream
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	// The stream outlives the server's per-request deadlines
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	s.hub.ServeHTTP(w, r)
}

// handleProxy serves a page request through the controlling cache generation
func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodConnect {
		s.writeErrorResponse(w, "CONNECT is not supported", http.StatusMethodNotAllowed)
		return
	}

	req, err := utils.ParseRequest(r, s.origin, s.maxBodyBytes)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, utils.ErrRequestTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		s.writeErrorResponse(w, err.Error(), status)
		return
	}

	if !s.allowedTarget(req.URL) {
		s.logger.Debug("Rejected proxy target", zap.String("url", req.URL))
		s.writeErrorResponse(w, "Host not allowed", http.StatusForbidden)
		return
	}

	resp, err := s.registration.HandleFetch(r.Context(), req)
	if err != nil {
		s.logger.Debug("Fetch failed", zap.String("method", req.Method), zap.String("url", req.URL), zap.Error(err))
		switch {
		case errors.Is(err, fetch.ErrBodyTooLarge):
			s.writeErrorResponse(w, "Upstream response too large", http.StatusBadGateway)
		case errors.Is(err, offline.ErrNoResponse):
			s.writeErrorResponse(w, "Network unavailable and no cached response", http.StatusGatewayTimeout)
		default:
			s.writeErrorResponse(w, fmt.Sprintf("Fetch failed: %v", err), http.StatusBadGateway)
		}
		return
	}

	if err := utils.WriteResponse(w, resp, s.registration.Status().Namespace); err != nil {
		s.logger.Error("Failed to write proxied response", zap.String("url", req.URL), zap.Error(err))
	}
}
