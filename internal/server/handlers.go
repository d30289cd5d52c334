// Copyright (C) 2025 Dyne.org foundation
// designed, written and maintained by Denis Roio <jaromil@dyne.org>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"taskgate/internal/dispatch"
	apperrors "taskgate/internal/errors"
)

// TaskRequest is the body of POST /run.
type TaskRequest struct {
	Task string `json:"task"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

type operationInfo struct {
	ID          string                 `json:"id"`
	Description string                 `json:"description"`
	Triggers    []string               `json:"triggers"`
	Parameters  map[string]interface{} `json:"parameters"`
	Defaults    map[string]interface{} `json:"defaults,omitempty"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req TaskRequest
	if status, err := s.decodeBody(w, r, &req); err != nil {
		writeDetail(w, status, err.Error())
		return
	}
	if strings.TrimSpace(req.Task) == "" {
		writeDetail(w, http.StatusBadRequest, "task is required")
		return
	}

	outcome, err := s.dispatcher.Handle(r.Context(), req.Task)
	s.respond(w, r, outcome, err)
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	args := map[string]interface{}{}
	if r.ContentLength != 0 {
		if status, err := s.decodeBody(w, r, &args); err != nil {
			writeDetail(w, status, err.Error())
			return
		}
	}

	outcome, err := s.dispatcher.Invoke(r.Context(), r.PathValue("id"), args)
	s.respond(w, r, outcome, err)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"operations": len(s.dispatcher.Registry().IDs()),
	})
}

func (s *Server) handleOperations(w http.ResponseWriter, r *http.Request) {
	registry := s.dispatcher.Registry()
	ops := registry.Operations()
	infos := make([]operationInfo, 0, len(ops))
	for _, op := range ops {
		infos = append(infos, operationInfo{
			ID:          op.ID(),
			Description: op.Description(),
			Triggers:    registry.TriggersFor(op.ID()),
			Parameters:  op.Parameters(),
			Defaults:    op.Defaults(),
		})
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, outcome *dispatch.Outcome, err error) {
	logger := zerolog.Ctx(r.Context())
	if err != nil {
		status := statusFor(err)
		event := logger.Warn()
		if status >= http.StatusInternalServerError {
			event = logger.Error()
		}
		event.Err(err).Str("code", string(apperrors.CodeOf(err))).Int("status", status).Msg("task failed")
		writeDetail(w, status, detailFor(err, status))
		return
	}

	logger.Info().
		Str("operation", outcome.OperationID).
		Str("route", string(outcome.Route)).
		Str("trigger", outcome.Trigger).
		Str("result", outcome.Result.Status).
		Dur("elapsed", outcome.Duration).
		Msg("task handled")
	writeJSON(w, http.StatusOK, outcome.Result)
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, out interface{}) (int, error) {
	body := http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	decoder := json.NewDecoder(body)
	if err := decoder.Decode(out); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return http.StatusRequestEntityTooLarge, errors.New("request body too large")
		case errors.Is(err, io.EOF):
			return http.StatusBadRequest, errors.New("request body is empty")
		default:
			return http.StatusBadRequest, errors.New("invalid JSON body")
		}
	}
	if decoder.More() {
		return http.StatusBadRequest, errors.New("invalid JSON body")
	}
	return 0, nil
}

func statusFor(err error) int {
	switch apperrors.CodeOf(err) {
	case apperrors.CodePathViolation:
		return http.StatusForbidden
	case apperrors.CodeUpstream:
		return http.StatusBadGateway
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeInvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// detailFor hides internal error chains behind a generic message.
func detailFor(err error, status int) string {
	if status == http.StatusInternalServerError {
		var coded *apperrors.Error
		if errors.As(err, &coded) && coded.Message != "" {
			return coded.Message
		}
		return "internal server error"
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		status = http.StatusInternalServerError
		data, _ = json.Marshal(errorResponse{Detail: "failed to encode response"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
