package domain

// OtpResult is the backend's answer to a successful OTP check. Credential is empty when
// TwoFactorRequired is set.
type OtpResult struct {
	Credential        string
	TwoFactorRequired bool
}
