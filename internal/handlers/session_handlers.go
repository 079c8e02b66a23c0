package handlers

import (
	"net/http"
	"strings"
	"time"

	"dayplanner/internal/handlers/dto"
	"dayplanner/internal/logger"
	"dayplanner/internal/middleware"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SessionHandler struct {
	Sessions SessionService
	Planners Planners
}

func NewSessionHandler(sessions SessionService, planners Planners) SessionHandler {
	return SessionHandler{
		Sessions: sessions,
		Planners: planners,
	}
}

func (s *SessionHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	if !checkContentType(r, "application/json") {
		responseWithError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}

	var request dto.SignUpRequest
	if err := decodeAndValidate(r, &request); err != nil {
		logger.Warn("HTTP: bad request body",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	acc, err := s.Sessions.SignUp(r.Context(), request.DisplayName, request.Email, request.Password)
	if err != nil {
		respondWithServiceError(w, err, "sign up")
		return
	}

	logger.Info("HTTP_OUT: account created",
		zap.String("owner_id", acc.ID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	// The account stays anonymous until the sign-in step.
	responseWithJSON(w, http.StatusCreated,
		toPayload("owner_id", acc.ID),
		toPayload("email", acc.Email))
}

func (s *SessionHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var request dto.SignInRequest
	if err := decodeAndValidate(r, &request); err != nil {
		responseWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := s.Sessions.SignInWithPassword(r.Context(), request.Email, request.Password)
	if err != nil {
		respondWithServiceError(w, err, "sign in")
		return
	}

	logger.Info("HTTP_OUT: signed in",
		zap.String("owner_id", sess.OwnerID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithRawJSON(w, http.StatusOK, sess)
}

func (s *SessionHandler) SendSignInLink(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var request dto.EmailRequest
	if err := decodeAndValidate(r, &request); err != nil {
		responseWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.Sessions.SendSignInLink(r.Context(), request.Email); err != nil {
		respondWithServiceError(w, err, "send sign-in link")
		return
	}

	logger.Info("HTTP_OUT: sign-in link requested",
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusAccepted))

	responseWithJSON(w, http.StatusAccepted, toPayload("status", "sent"))
}

func (s *SessionHandler) RedeemSignInLink(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var request dto.RedeemRequest
	if err := decodeAndValidate(r, &request); err != nil {
		responseWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := s.Sessions.RedeemSignInLink(r.Context(), request.Token)
	if err != nil {
		respondWithServiceError(w, err, "redeem sign-in link")
		return
	}

	logger.Info("HTTP_OUT: sign-in link redeemed",
		zap.String("owner_id", sess.OwnerID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithRawJSON(w, http.StatusOK, sess)
}

func (s *SessionHandler) Verify(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var request dto.RedeemRequest
	if err := decodeAndValidate(r, &request); err != nil {
		responseWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.Sessions.VerifyAccount(r.Context(), request.Token); err != nil {
		respondWithServiceError(w, err, "verify account")
		return
	}

	logger.Info("HTTP_OUT: account verified",
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, toPayload("status", "verified"))
}

func (s *SessionHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var request dto.EmailRequest
	if err := decodeAndValidate(r, &request); err != nil {
		responseWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.Sessions.RequestPasswordReset(r.Context(), request.Email); err != nil {
		respondWithServiceError(w, err, "request password reset")
		return
	}

	logger.Info("HTTP_OUT: password reset requested",
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusAccepted))

	responseWithJSON(w, http.StatusAccepted, toPayload("status", "sent"))
}

func (s *SessionHandler) RedeemPasswordReset(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var request dto.RedeemRequest
	if err := decodeAndValidate(r, &request); err != nil {
		responseWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := s.Sessions.RedeemPasswordReset(r.Context(), request.Token)
	if err != nil {
		respondWithServiceError(w, err, "redeem password reset")
		return
	}

	logger.Info("HTTP_OUT: recovery session issued",
		zap.String("owner_id", sess.OwnerID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithRawJSON(w, http.StatusOK, sess)
}

func (s *SessionHandler) CompletePasswordReset(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	token, ok := bearerToken(r)
	if !ok {
		responseWithError(w, http.StatusUnauthorized, "missing recovery token")
		return
	}

	var request dto.CompleteResetRequest
	if err := decodeAndValidate(r, &request); err != nil {
		responseWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.Sessions.CompletePasswordReset(r.Context(), token, request.Password, request.Confirm); err != nil {
		respondWithServiceError(w, err, "complete password reset")
		return
	}

	logger.Info("HTTP_OUT: password reset completed",
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, toPayload("status", "password updated"))
}

// SignOut drops the session and the owner's loaded planner, so the next
// sign-in starts from a fresh load.
func (s *SessionHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	ownerID := middleware.GetOwnerID(r.Context())
	if ownerID == uuid.Nil {
		responseWithError(w, http.StatusUnauthorized, "not signed in")
		return
	}

	s.Sessions.SignOut(ownerID, middleware.GetOwnerEmail(r.Context()))
	s.Planners.Drop(ownerID)

	logger.Info("HTTP_OUT: signed out",
		zap.String("owner_id", ownerID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusNoContent))

	w.WriteHeader(http.StatusNoContent)
}

func (s *SessionHandler) Me(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	token, ok := bearerToken(r)
	if !ok {
		responseWithError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}

	acc, err := s.Sessions.GetCurrentUser(r.Context(), token)
	if err != nil {
		respondWithServiceError(w, err, "current user")
		return
	}

	responseWithJSON(w, http.StatusOK,
		toPayload("owner_id", acc.ID),
		toPayload("email", acc.Email),
		toPayload("display_name", acc.DisplayName),
		toPayload("verified", acc.Verified))
}

func bearerToken(r *http.Request) (string, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return token, ok && token != ""
}
