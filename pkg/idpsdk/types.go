package idpsdk

import (
	"github.com/aussiebroadwan/idp/pkg/jwtx"
	"github.com/aussiebroadwan/idp/pkg/oauth2x"
)

// TokenResponse is the token endpoint response body. The server and the
// client share one definition.
type TokenResponse = oauth2x.TokenResponse

// IntrospectionResponse is the RFC 7662 introspection response body.
type IntrospectionResponse = oauth2x.IntrospectionResponse

// JWKSResponse contains the JSON Web Key Set published by the server.
type JWKSResponse jwtx.JWKS

// HealthResponse represents the response structure for health check endpoints.
type HealthResponse struct {
	// Status is "ok" when every check passes, "degraded" otherwise.
	Status string `json:"status"`

	// Uptime is how long the service has been running.
	Uptime string `json:"uptime"`

	// Version is the build version of the service.
	Version string `json:"version"`

	// Checks reports per-dependency status. Only set on /readyz.
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks represents the status of critical service dependencies.
type HealthChecks struct {
	Database string `json:"database,omitempty"`
	Signer   string `json:"signer,omitempty"`
}

// DiscoveryDocument is the OpenID Connect discovery metadata served at
// /.well-known/openid-configuration.
type DiscoveryDocument struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	RevocationEndpoint                string   `json:"revocation_endpoint"`
	IntrospectionEndpoint             string   `json:"introspection_endpoint"`
	JWKSURI                           string   `json:"jwks_uri"`
	ScopesSupported                   []string `json:"scopes_supported,omitempty"`
	ResponseTypesSupported            []string `json:"response_types_supported"`
	ResponseModesSupported            []string `json:"response_modes_supported"`
	GrantTypesSupported               []string `json:"grant_types_supported"`
	SubjectTypesSupported             []string `json:"subject_types_supported"`
	IDTokenSigningAlgValuesSupported  []string `json:"id_token_signing_alg_values_supported"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported"`
	CodeChallengeMethodsSupported     []string `json:"code_challenge_methods_supported"`
}
