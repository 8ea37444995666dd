package utils

import (
	"net/http"
	"testing"
)

func TestHeaderRedactor_RedactHeaderValue(t *testing.T) {
	hr := NewHeaderRedactor()

	tests := []struct {
		name   string
		header string
		value  string
		want   string
	}{
		{"普通头部不脱敏", "User-Agent", "sitecheck/1.0", "sitecheck/1.0"},
		{"Bearer令牌", "Authorization", "Bearer abcdefghijkl", "Bearer ***"},
		{"Basic凭据", "Authorization", "Basic dXNlcjpwYXNz", "Basic ***"},
		{"长API Key", "X-API-Key", "1234567890abcdef", "1234***cdef"},
		{"短密钥", "X-Secret", "abc", "***"},
		{"Cookie", "Cookie", "session=0123456789", "sess***6789"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hr.RedactHeaderValue(tt.header, tt.value); got != tt.want {
				t.Errorf("RedactHeaderValue() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHeaderRedactor_RedactToString(t *testing.T) {
	hr := NewHeaderRedactor()
	headers := http.Header{
		"User-Agent": {"sitecheck/1.0"},
		"X-Token":    {"abc"},
		"Accept":     {"*/*"},
	}

	want := "Accept: */*, User-Agent: sitecheck/1.0, X-Token: ***"
	if got := hr.RedactToString(headers); got != want {
		t.Errorf("RedactToString() = %q, want %q", got, want)
	}
}
