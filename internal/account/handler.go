package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"notesync/internal/account/model"
	"notesync/internal/account/service"
	"notesync/pkg/logger"
)

const maxCredentialsBody = 64 << 10

type AccountHandler struct {
	Service *service.AccountService
}

func NewAccountHandler(service *service.AccountService) *AccountHandler {
	return &AccountHandler{Service: service}
}

func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	creds, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	err := h.Service.Register(r.Context(), creds)
	var ve *service.ValidationError
	switch {
	case err == nil:
	case errors.As(err, &ve):
		http.Error(w, ve.Message, http.StatusBadRequest)
		return
	case errors.Is(err, service.ErrUserExists):
		http.Error(w, "User already exists", http.StatusConflict)
		return
	default:
		logger.Sugar.Errorf("Handler: Failed to register %s: %v", creds.Username, err)
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	logger.Sugar.Infof("Registered user %s", creds.Username)
	w.WriteHeader(http.StatusCreated)
	fmt.Fprintln(w, "User registered successfully")
}

func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	creds, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	token, err := h.Service.Login(r.Context(), creds)
	if errors.Is(err, service.ErrInvalidCredentials) {
		http.Error(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to log in %s: %v", creds.Username, err)
		http.Error(w, "Could not generate token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(model.TokenResponse{Token: token})
}

func decodeCredentials(w http.ResponseWriter, r *http.Request) (model.Credentials, bool) {
	var creds model.Credentials
	r.Body = http.MaxBytesReader(w, r.Body, maxCredentialsBody)
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return creds, false
	}
	return creds, true
}
