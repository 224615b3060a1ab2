package kiosk

import (
	"encoding/json"
	"net/http"

	"github.com/harrylevesque/handauth/internal/client"
	"github.com/harrylevesque/handauth/internal/result"
	"github.com/harrylevesque/handauth/internal/validate"
	"github.com/harrylevesque/handauth/internal/workflow"
)

// Status describes the camera for GET /camera/status.
type Status struct {
	Active         bool   `json:"active"`
	CaptureSession string `json:"capture_session,omitempty"`
	HasFrame       bool   `json:"has_frame"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(indexHTML); err != nil {
		s.logger.Debug("index write failed", "error", err)
	}
}

func (s *Server) handleCameraStart(w http.ResponseWriter, r *http.Request) {
	s.writeResult(w, http.StatusOK, s.camera.StartCamera(r.Context()))
}

func (s *Server) handleCameraCapture(w http.ResponseWriter, r *http.Request) {
	s.writeResult(w, http.StatusOK, s.camera.CaptureFrame())
}

func (s *Server) handleCameraStop(w http.ResponseWriter, r *http.Request) {
	s.camera.StopCamera()
	s.writeResult(w, http.StatusOK, result.OK("Camera stopped"))
}

func (s *Server) handleCameraFrame(w http.ResponseWriter, r *http.Request) {
	img := s.camera.CapturedImage()
	if img == "" {
		s.writeResult(w, http.StatusNotFound, result.Fail("No frame captured"))
		return
	}
	s.writeResult(w, http.StatusOK, result.Result{Success: true, Message: "Frame captured", Image: img})
}

func (s *Server) handleCameraStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, Status{
		Active:         s.camera.IsActive(),
		CaptureSession: s.camera.SessionID(),
		HasFrame:       s.camera.CapturedImage() != "",
	})
}

// handleSubmit forwards a register or login. A request without an image
// uses the kiosk camera.
func (s *Server) handleSubmit(action workflow.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req client.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeResult(w, http.StatusBadRequest, result.Fail("Invalid request body"))
			return
		}
		log := s.logger.With("request_id", RequestID(r.Context()), "action", string(action))

		if req.Image == "" {
			var res result.Result
			if action == workflow.ActionRegister {
				res = s.controller.Register(r.Context(), req.Username)
			} else {
				res = s.controller.Login(r.Context(), req.Username)
			}
			log.Info("submitted from kiosk camera", "success", res.Success)
			s.writeResult(w, http.StatusOK, res)
			return
		}

		if v := validate.Username(req.Username); !v.Valid {
			s.writeResult(w, http.StatusOK, result.Fail(v.Message))
			return
		}
		if v := validate.DataURI(req.Image); !v.Valid {
			s.writeResult(w, http.StatusOK, result.Fail(v.Message))
			return
		}

		var resp client.Response
		if action == workflow.ActionRegister {
			resp = s.api.Register(r.Context(), req.Username, req.Image)
		} else {
			resp = s.api.Login(r.Context(), req.Username, req.Image)
		}
		log.Info("submitted browser frame", "success", resp.Success)
		if len(resp.Raw) > 0 {
			s.writeRaw(w, http.StatusOK, resp.Raw)
			return
		}
		s.writeResult(w, http.StatusOK, resp.Result)
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if res := s.controller.Logout(r.Context()); !res.Success {
		s.logger.Warn("upstream logout failed", "request_id", RequestID(r.Context()), "reason", res.Message)
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) writeResult(w http.ResponseWriter, status int, res result.Result) {
	s.writeJSON(w, status, res)
}

// writeRaw relays the server's body so fields beyond success and message
// reach the page.
func (s *Server) writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		s.logger.Warn("response write failed", "error", err)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("response encode failed", "error", err)
	}
}
