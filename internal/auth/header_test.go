package auth

import "testing"

func TestClassifyAuthorization(t *testing.T) {
	cases := []struct {
		name    string
		header  string
		scheme  Scheme
		payload string
	}{
		{"empty", "", SchemeNone, ""},
		{"whitespace", "   ", SchemeNone, ""},
		{"bearer", "Bearer abc.def.ghi", SchemeBearer, "abc.def.ghi"},
		{"bearer extra spaces", "Bearer    token   ", SchemeBearer, "token"},
		{"basic", "Basic dXNlcjpwYXNz", SchemeBasic, "dXNlcjpwYXNz"},
		{"lowercase bearer is not recognized", "bearer token", SchemeNone, ""},
		{"unknown scheme", "Digest nonce=abc", SchemeNone, ""},
		{"garbage", "!!!", SchemeNone, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			scheme, payload := ClassifyAuthorization(tc.header)
			if scheme != tc.scheme {
				t.Fatalf("scheme = %v, want %v", scheme, tc.scheme)
			}
			if payload != tc.payload {
				t.Fatalf("payload = %q, want %q", payload, tc.payload)
			}
		})
	}
}
