package devotp

import "testing"

func TestGenerateOTP_ReturnsSixDigits(t *testing.T) {
	otp, err := GenerateOTP()
	if err != nil {
		t.Fatalf("GenerateOTP: %v", err)
	}
	if len(otp) != 6 {
		t.Errorf("OTP length = %d, want 6", len(otp))
	}
	for _, c := range otp {
		if c < '0' || c > '9' {
			t.Errorf("OTP contains non-digit: %c", c)
		}
	}
}

func TestHashOTP(t *testing.T) {
	if HashOTP("123456") != HashOTP("123456") {
		t.Error("HashOTP should be deterministic")
	}
	if HashOTP("123456") == HashOTP("654321") {
		t.Error("different OTPs should hash differently")
	}
	if got := len(HashOTP("123456")); got != 64 {
		t.Errorf("hash length = %d, want 64", got)
	}
}

func TestOTPEqual(t *testing.T) {
	stored := HashOTP("123456")
	tests := []struct {
		provided string
		want     bool
	}{
		{"123456", true},
		{"123457", false},
		{"", false},
		{"1234567", false},
	}
	for _, tt := range tests {
		if got := OTPEqual(tt.provided, stored); got != tt.want {
			t.Errorf("OTPEqual(%q) = %v, want %v", tt.provided, got, tt.want)
		}
	}
}
