package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                                 "/",
		"/metrics":                         "/metrics",
		"/v1/whitelists":                   "/v1/whitelists",
		"/v1/whitelists/abc":               "/v1/whitelists/:id",
		"/v1/whitelists/abc/users":         "/v1/whitelists/:id/users",
		"/v1/whitelists/abc/charge-points": "/v1/whitelists/:id/charge-points",
		"/v1/employees/a@b.org/allowed-charge-points": "/v1/employees/:email/allowed-charge-points",
		"/v1/charge-points/allowed":                   "/v1/charge-points/allowed",
		"/v1/charge-points/allowed?limit=10":          "/v1/charge-points/allowed",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
