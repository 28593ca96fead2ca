package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/avolkov/duochat/internal/common"
	"github.com/avolkov/duochat/internal/server/repositories/users"
)

// writeError emits the `{"error": "..."}` body. The message is passed
// through to the client for verbatim display.
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError maps service sentinels onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, users.ErrEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, common.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, common.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) createAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	u, err := s.identity.CreateAccount(r.Context(), req.DisplayName, req.Email, req.Password, req.Avatar)
	if err != nil {
		s.logger.Error(r.Context(), "account creation failed", "error", err.Error())
		writeServiceError(w, err)
		return
	}

	s.logger.Info(r.Context(), "account created", "user_id", u.ID)
	writeJSON(w, http.StatusCreated, accountResponse{ID: u.ID})
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	userID, token, err := s.identity.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{UserID: userID, AccessToken: token})
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	records, err := s.identity.ListRecords(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	payload := make([]userPayload, 0, len(records))
	for _, u := range records {
		payload = append(payload, toUserPayload(u))
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	u, err := s.identity.GetRecord(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserPayload(u))
}

func (s *Server) putPushToken(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id != UserIDFromContext(r.Context()) {
		writeError(w, http.StatusForbidden, "cannot modify another user's push token")
		return
	}

	var req pushTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "empty push token")
		return
	}

	if err := s.identity.SetPushToken(r.Context(), id, req.Token); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deletePushToken(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id != UserIDFromContext(r.Context()) {
		writeError(w, http.StatusForbidden, "cannot modify another user's push token")
		return
	}

	if err := s.identity.ClearPushToken(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	senderID := UserIDFromContext(r.Context())

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	msg, err := s.chat.Append(r.Context(), key, senderID, req.ReceiverID, req.Body)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toMessagePayload(msg))
}

func (s *Server) avatarUploadURL(w http.ResponseWriter, r *http.Request) {
	key, url, err := s.avatars.PresignedPutURL(r.Context())
	if err != nil {
		s.logger.Error(r.Context(), "presign put failed", "error", err.Error())
		writeServiceError(w, err)
		return
	}

	// Record the key so the profile points at the freshest original.
	userID := UserIDFromContext(r.Context())
	if err := s.identity.SetAvatarKey(r.Context(), userID, key); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadURLResponse{Key: key, URL: url})
}

func (s *Server) avatarGetURL(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "missing key")
		return
	}

	url, err := s.avatars.PresignedGetURL(r.Context(), key)
	if err != nil {
		s.logger.Error(r.Context(), "presign get failed", "error", err.Error())
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, getURLResponse{URL: url})
}
