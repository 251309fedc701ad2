package auth

import "strings"

// Scheme classifies the Authorization header of a request.
type Scheme int

const (
	SchemeNone Scheme = iota
	SchemeBasic
	SchemeBearer
)

func (s Scheme) String() string {
	switch s {
	case SchemeBasic:
		return "basic"
	case SchemeBearer:
		return "bearer"
	default:
		return "none"
	}
}

const (
	basicPrefix  = "Basic"
	bearerPrefix = "Bearer"
)

// ClassifyAuthorization inspects a raw Authorization header and returns the
// detected scheme together with the trimmed opaque payload. The prefix match
// is case-sensitive. It is total: an absent, empty or unrecognized header
// classifies as SchemeNone rather than an error.
func ClassifyAuthorization(header string) (Scheme, string) {
	header = strings.TrimSpace(header)
	switch {
	case header == "":
		return SchemeNone, ""
	case strings.HasPrefix(header, bearerPrefix):
		return SchemeBearer, strings.TrimSpace(header[len(bearerPrefix):])
	case strings.HasPrefix(header, basicPrefix):
		return SchemeBasic, strings.TrimSpace(header[len(basicPrefix):])
	default:
		return SchemeNone, ""
	}
}
