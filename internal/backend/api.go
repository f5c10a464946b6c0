package backend

import (
	"context"
	"net/http"
	"strconv"

	goerrors "github.com/goliatone/go-errors"

	countrydomain "session-issuance-console/internal/country/domain"
	inventorydomain "session-issuance-console/internal/inventory/domain"
	issuancedomain "session-issuance-console/internal/issuance/domain"
)

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token       string `json:"token"`
	AccessToken string `json:"access_token"`
}

type startSessionRequest struct {
	PhoneNumber string `json:"phone_number"`
}

type startSessionResponse struct {
	Success       *bool  `json:"success"`
	SessionID     string `json:"session_id"`
	PhoneCodeHash string `json:"phone_code_hash"`
	Message       string `json:"message"`
}

type verifyOtpRequest struct {
	SessionID   string `json:"session_id"`
	PhoneNumber string `json:"phone_number"`
	OtpCode     string `json:"otp_code"`
}

type verifyResponse struct {
	Success       *bool  `json:"success"`
	Needs2FA      bool   `json:"needs_2fa"`
	SessionString string `json:"session_string"`
	Message       string `json:"message"`
}

type verifyTwoFactorRequest struct {
	SessionID string `json:"session_id"`
	Password  string `json:"password"`
}

type countryJSON struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	PhoneCode    string   `json:"phone_code"`
	CallingCodes []string `json:"calling_codes"`
}

type createAccountRequest struct {
	CountryID     int64   `json:"country_id"`
	PhoneNumber   string  `json:"phone_number"`
	SessionData   string  `json:"session_data"`
	Type          string  `json:"type"`
	TwoFAPassword *string `json:"twofa_password"`
	SaleStatus    string  `json:"sale_status"`
}

type createAccountResponse struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	ID      int64  `json:"id"`
	Account *struct {
		ID int64 `json:"id"`
	} `json:"account"`
}

// Login exchanges the operator password for a token (POST /admin/login).
func (c *Client) Login(ctx context.Context, password string) (string, error) {
	var out loginResponse
	err := c.do(ctx, call{
		op: "login", method: http.MethodPost, path: "/admin/login",
		body: loginRequest{Password: password}, fallback: "Login failed",
	}, &out)
	if err != nil {
		return "", err
	}
	token := orFallback(out.Token, out.AccessToken)
	if token == "" {
		return "", backendError("Backend returned no token", goerrors.CategoryExternal, http.StatusOK, map[string]any{"operation": "login"})
	}
	return token, nil
}

// DispatchOtp asks the backend to send an OTP to phone and returns the backend session id.
func (c *Client) DispatchOtp(ctx context.Context, phone string) (string, error) {
	const fallback = "Failed to send OTP"
	var out startSessionResponse
	err := c.do(ctx, call{
		op: "dispatch_otp", method: http.MethodPost, path: "/admin/session/start",
		body: startSessionRequest{PhoneNumber: phone}, auth: true, fallback: fallback,
	}, &out)
	if err != nil {
		return "", err
	}
	if rejected(out.Success) {
		return "", rejection(orFallback(out.Message, fallback), map[string]any{"operation": "dispatch_otp"})
	}
	if out.SessionID == "" {
		return "", backendError("Backend returned no session id", goerrors.CategoryExternal, http.StatusOK, map[string]any{"operation": "dispatch_otp"})
	}
	return out.SessionID, nil
}

// VerifyOtp submits the OTP for sessionID.
func (c *Client) VerifyOtp(ctx context.Context, sessionID, phone, code string) (issuancedomain.OtpResult, error) {
	const fallback = "Invalid OTP"
	var out verifyResponse
	err := c.do(ctx, call{
		op: "verify_otp", method: http.MethodPost, path: "/admin/session/verify-otp",
		body: verifyOtpRequest{SessionID: sessionID, PhoneNumber: phone, OtpCode: code}, auth: true, fallback: fallback,
	}, &out)
	if err != nil {
		return issuancedomain.OtpResult{}, err
	}
	if rejected(out.Success) {
		return issuancedomain.OtpResult{}, rejection(orFallback(out.Message, fallback), map[string]any{"operation": "verify_otp"})
	}
	if out.Needs2FA {
		return issuancedomain.OtpResult{TwoFactorRequired: true}, nil
	}
	if out.SessionString == "" {
		return issuancedomain.OtpResult{}, backendError("Backend returned no session string", goerrors.CategoryExternal, http.StatusOK, map[string]any{"operation": "verify_otp"})
	}
	return issuancedomain.OtpResult{Credential: out.SessionString}, nil
}

// VerifyTwoFactor submits the 2FA password for sessionID and returns the session credential.
func (c *Client) VerifyTwoFactor(ctx context.Context, sessionID, secret string) (string, error) {
	const fallback = "Invalid 2FA password"
	var out verifyResponse
	err := c.do(ctx, call{
		op: "verify_two_factor", method: http.MethodPost, path: "/admin/session/verify-2fa",
		body: verifyTwoFactorRequest{SessionID: sessionID, Password: secret}, auth: true, fallback: fallback,
	}, &out)
	if err != nil {
		return "", err
	}
	if rejected(out.Success) {
		return "", rejection(orFallback(out.Message, fallback), map[string]any{"operation": "verify_two_factor"})
	}
	if out.SessionString == "" {
		return "", backendError("Backend returned no session string", goerrors.CategoryExternal, http.StatusOK, map[string]any{"operation": "verify_two_factor"})
	}
	return out.SessionString, nil
}

// CreateInventoryAccount creates the account and returns its id.
func (c *Client) CreateInventoryAccount(ctx context.Context, req inventorydomain.CreateRequest) (int64, error) {
	const fallback = "Failed to add account"
	body := createAccountRequest{
		CountryID:   req.CountryID,
		PhoneNumber: req.PhoneNumber,
		SessionData: req.SessionCredential,
		Type:        orFallback(req.Type, inventorydomain.DefaultAccountType),
		SaleStatus:  string(req.SaleStatus),
	}
	if req.TwoFactorSecret != "" {
		secret := req.TwoFactorSecret
		body.TwoFAPassword = &secret
	}
	if body.SaleStatus == "" {
		body.SaleStatus = string(inventorydomain.SaleStatusAvailable)
	}
	var out createAccountResponse
	err := c.do(ctx, call{
		op: "create_account", method: http.MethodPost, path: "/admin/accounts",
		body: body, auth: true, fallback: fallback,
	}, &out)
	if err != nil {
		return 0, err
	}
	if rejected(out.Success) {
		return 0, backendError(orFallback(out.Message, fallback), goerrors.CategoryConflict, http.StatusOK, map[string]any{"operation": "create_account"})
	}
	id := out.ID
	if out.Account != nil && out.Account.ID != 0 {
		id = out.Account.ID
	}
	if id == 0 {
		return 0, backendError("Backend returned no account id", goerrors.CategoryExternal, http.StatusOK, map[string]any{"operation": "create_account"})
	}
	return id, nil
}

// ListCountries returns the country catalog. A record's prefixes come from phone_code and
// calling_codes when the backend provides them.
func (c *Client) ListCountries(ctx context.Context) ([]countrydomain.Record, error) {
	var out []countryJSON
	err := c.do(ctx, call{
		op: "list_countries", method: http.MethodGet, path: "/admin/countries",
		auth: true, fallback: "Failed to load countries",
	}, &out)
	if err != nil {
		return nil, err
	}
	records := make([]countrydomain.Record, 0, len(out))
	for _, cj := range out {
		rec := countrydomain.Record{ID: cj.ID, DisplayName: cj.Name}
		if cj.PhoneCode != "" {
			rec.CallingCodePrefixes = append(rec.CallingCodePrefixes, cj.PhoneCode)
		}
		rec.CallingCodePrefixes = append(rec.CallingCodePrefixes, cj.CallingCodes...)
		records = append(records, rec)
	}
	return records, nil
}

// Ping checks that the backend answers HTTP at all; any status counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return backendWrapError(err, goerrors.CategoryExternal, "Network error. Could not reach backend.", 0, map[string]any{"operation": "ping"})
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return backendError("Backend unhealthy: status "+strconv.Itoa(resp.StatusCode), goerrors.CategoryExternal, resp.StatusCode, map[string]any{"operation": "ping"})
	}
	return nil
}
