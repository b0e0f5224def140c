package config

import (
	"strings"
)

var _ CorsConfig = mainConfig{}

type AllowedOrigins map[string]struct{}
type nullValue = struct{}

func (a AllowedOrigins) IsAllowedOrigin(origin string) bool {
	_, ok := a[origin]
	return ok
}

func (a AllowedOrigins) String() string {
	var origins []string
	for k := range a {
		origins = append(origins, k)
	}
	return strings.Join(origins, ", ")
}

// GetAllowedOrigins only ever contains the frontend origin. Credentialed
// requests from anywhere else get no CORS headers.
func (c mainConfig) GetAllowedOrigins() AllowedOrigins {
	return AllowedOrigins{c.frontendOrigin: nullValue{}}
}

func (mainConfig) GetAllowedMethods() string {
	return "GET, POST, OPTIONS"
}

func (mainConfig) GetAllowedHeaders() string {
	return "Content-Type, Authorization"
}
