package codes

import (
	"strings"
	"testing"
)

func TestGenerateLinkingCode_Shape(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateLinkingCode()
		if err != nil {
			t.Fatalf("GenerateLinkingCode: %v", err)
		}
		if !LooksLikeLinkingCode(code) {
			t.Fatalf("code %q does not look like a linking code", code)
		}
		for _, c := range code[len(LinkingCodePrefix):] {
			if !strings.ContainsRune("0123456789ABCDEF", c) {
				t.Fatalf("code %q contains non upper-hex %q", code, c)
			}
		}
	}
}

func TestNormalizeLinkingCode(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"lnk-abc123", "LNK-ABC123"},
		{"  LNK-ABC123\n", "LNK-ABC123"},
		{"Lnk-aBc123 ", "LNK-ABC123"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeLinkingCode(tt.in); got != tt.want {
			t.Errorf("NormalizeLinkingCode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLooksLikeLinkingCode(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"LNK-ABC123", true},
		{"LNK-ABC12", false},
		{"LNK-ABC1234", false},
		{"ABC-ABC123", false},
		{"hello there", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := LooksLikeLinkingCode(tt.in); got != tt.want {
			t.Errorf("LooksLikeLinkingCode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestGenerateOTP_ReturnsSixDigits(t *testing.T) {
	for i := 0; i < 200; i++ {
		otp, err := GenerateOTP()
		if err != nil {
			t.Fatalf("GenerateOTP: %v", err)
		}
		if len(otp) != 6 {
			t.Fatalf("OTP %q length = %d, want 6", otp, len(otp))
		}
		for _, c := range otp {
			if c < '0' || c > '9' {
				t.Fatalf("OTP contains non-digit: %c", c)
			}
		}
	}
}

func TestGenerateOTP_NotConstant(t *testing.T) {
	first, _ := GenerateOTP()
	for i := 0; i < 20; i++ {
		otp, err := GenerateOTP()
		if err != nil {
			t.Fatalf("GenerateOTP: %v", err)
		}
		if otp != first {
			return
		}
	}
	t.Fatalf("GenerateOTP returned %q 21 times in a row", first)
}

func TestHashOTP_Consistent(t *testing.T) {
	hash1 := HashOTP("042613")
	hash2 := HashOTP("042613")
	if hash1 != hash2 {
		t.Errorf("HashOTP not consistent: hash1 = %q, hash2 = %q", hash1, hash2)
	}
	if len(hash1) != 64 {
		t.Errorf("hash length = %d, want 64 (SHA-256 hex)", len(hash1))
	}
	if HashOTP("042613") == HashOTP("42613") {
		t.Error("zero-padded and unpadded codes must hash differently")
	}
}

func TestOTPEqual(t *testing.T) {
	stored := HashOTP("042613")
	if !OTPEqual("042613", stored) {
		t.Error("OTPEqual should match the same code")
	}
	if OTPEqual("042614", stored) {
		t.Error("OTPEqual should not match a different code")
	}
	if OTPEqual("", stored) {
		t.Error("OTPEqual should not match an empty code")
	}
}
