package devbackend

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"session-issuance-console/internal/devotp"
)

const (
	maxRequestBytes = 64 << 10
	devOTPNote      = "DEV MODE ONLY"
)

// errorDetails maps sentinel errors to the status and detail the real backend answers with.
var errorDetails = []struct {
	err    error
	status int
	detail string
}{
	{ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
	{ErrPhoneRequired, http.StatusBadRequest, "phone_number is required"},
	{ErrUnknownCountry, http.StatusBadRequest, "Country not found"},
	{ErrDuplicatePhone, http.StatusConflict, "Account with this phone number already exists"},
	{ErrSessionDataRequired, http.StatusUnprocessableEntity, "session_data is required"},
}

type server struct {
	backend *Backend
	otps    devotp.Store
}

// NewRouter returns the HTTP handler of the dev backend. otps must be the store passed to New;
// it backs GET /dev/otp.
func NewRouter(b *Backend, otps devotp.Store) *mux.Router {
	s := &server{backend: b, otps: otps}
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	r.HandleFunc("/dev/otp", s.devOTP).Methods(http.MethodGet)
	r.HandleFunc("/admin/login", s.login).Methods(http.MethodPost)

	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(s.requireOperator)
	admin.HandleFunc("/session/start", s.startSession).Methods(http.MethodPost)
	admin.HandleFunc("/session/verify-otp", s.verifyOtp).Methods(http.MethodPost)
	admin.HandleFunc("/session/verify-2fa", s.verifyTwoFactor).Methods(http.MethodPost)
	admin.HandleFunc("/countries", s.listCountries).Methods(http.MethodGet)
	admin.HandleFunc("/accounts", s.createAccount).Methods(http.MethodPost)
	return r
}

func (s *server) requireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearer(r.Header.Get("Authorization"))
		if token == "" || s.backend.Authorize(token) != nil {
			writeDetail(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *server) login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Password string `json:"password"`
	}
	if !decode(w, r, &in) {
		return
	}
	token, err := s.backend.Login(in.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token, "token_type": "bearer"})
}

func (s *server) startSession(w http.ResponseWriter, r *http.Request) {
	var in struct {
		PhoneNumber string `json:"phone_number"`
	}
	if !decode(w, r, &in) {
		return
	}
	id, err := s.backend.StartSession(r.Context(), in.PhoneNumber)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "session_id": id, "message": "OTP sent"})
}

func (s *server) verifyOtp(w http.ResponseWriter, r *http.Request) {
	var in struct {
		SessionID   string `json:"session_id"`
		PhoneNumber string `json:"phone_number"`
		OtpCode     string `json:"otp_code"`
	}
	if !decode(w, r, &in) {
		return
	}
	out, err := s.backend.VerifyOtp(r.Context(), in.SessionID, in.PhoneNumber, in.OtpCode)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, verifyBody(out))
}

func (s *server) verifyTwoFactor(w http.ResponseWriter, r *http.Request) {
	var in struct {
		SessionID string `json:"session_id"`
		Password  string `json:"password"`
	}
	if !decode(w, r, &in) {
		return
	}
	out, err := s.backend.VerifyTwoFactor(r.Context(), in.SessionID, in.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, verifyBody(out))
}

func (s *server) listCountries(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.backend.Countries())
}

func (s *server) createAccount(w http.ResponseWriter, r *http.Request) {
	var in struct {
		CountryID     int64   `json:"country_id"`
		PhoneNumber   string  `json:"phone_number"`
		SessionData   string  `json:"session_data"`
		Type          string  `json:"type"`
		TwoFAPassword *string `json:"twofa_password"`
		SaleStatus    string  `json:"sale_status"`
	}
	if !decode(w, r, &in) {
		return
	}
	req := NewAccount{
		CountryID:   in.CountryID,
		PhoneNumber: in.PhoneNumber,
		SessionData: in.SessionData,
		Type:        in.Type,
		SaleStatus:  in.SaleStatus,
	}
	if in.TwoFAPassword != nil {
		req.TwoFAPassword = *in.TwoFAPassword
	}
	acc, err := s.backend.CreateAccount(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Account added successfully", "account": acc})
}

func (s *server) devOTP(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		writeDetail(w, http.StatusBadRequest, "session_id is required")
		return
	}
	otp, ok := s.otps.Get(r.Context(), sessionID)
	if !ok {
		writeDetail(w, http.StatusNotFound, "OTP not found or expired")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"otp": otp, "note": devOTPNote})
}

func verifyBody(out VerifyOutcome) map[string]any {
	body := map[string]any{"success": out.Success, "message": out.Message}
	if out.Needs2FA {
		body["needs_2fa"] = true
	}
	if out.SessionString != "" {
		body["session_string"] = out.SessionString
	}
	return body
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	if err := dec.Decode(v); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func bearer(header string) string {
	const prefix = "bearer "
	v := strings.TrimSpace(header)
	if len(v) < len(prefix) || !strings.EqualFold(v[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(v[len(prefix):])
}

func writeError(w http.ResponseWriter, err error) {
	for _, d := range errorDetails {
		if errors.Is(err, d.err) {
			writeDetail(w, d.status, d.detail)
			return
		}
	}
	slog.Error("request failed", "component", "devbackend", "error", err)
	writeDetail(w, http.StatusInternalServerError, "Internal server error")
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write response", "component", "devbackend", "error", err)
	}
}
