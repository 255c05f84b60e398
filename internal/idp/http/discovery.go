package http

import (
	"net/http"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/pkg/httpx"
	"github.com/aussiebroadwan/idp/pkg/idpsdk"
)

// DiscoveryHandler serves the OpenID Connect discovery document.
//
//	@Summary		OpenID Connect Discovery
//	@Description	Returns the provider metadata: endpoint locations and the supported response types,
//	@Description	grant types, signing algorithms and proof-key methods.
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	idpsdk.DiscoveryDocument	"The provider metadata"
//	@Router			/.well-known/openid-configuration [get].
func DiscoveryHandler(issuer, algorithm string, extraGrantTypes []string) http.HandlerFunc {
	grantTypes := []string{
		domain.GrantTypeAuthorizationCode,
		domain.GrantTypeClientCredentials,
		domain.GrantTypePassword,
		domain.GrantTypeRefreshToken,
	}
	grantTypes = append(grantTypes, extraGrantTypes...)

	doc := idpsdk.DiscoveryDocument{
		Issuer:                issuer,
		AuthorizationEndpoint: issuer + "/connect/authorize",
		TokenEndpoint:         issuer + "/connect/token",
		RevocationEndpoint:    issuer + "/connect/revocation",
		IntrospectionEndpoint: issuer + "/connect/introspect",
		JWKSURI:               issuer + "/.well-known/jwks.json",
		ResponseTypesSupported: []string{
			domain.ResponseTypeCode,
			domain.ResponseTypeToken,
			domain.ResponseTypeIDToken,
			domain.ResponseTypeIDTokenToken,
			domain.ResponseTypeCodeIDToken,
			domain.ResponseTypeCodeToken,
			domain.ResponseTypeCodeIDTokenToken,
		},
		ResponseModesSupported: []string{
			domain.ResponseModeQuery,
			domain.ResponseModeFragment,
			domain.ResponseModeFormPost,
		},
		GrantTypesSupported:              grantTypes,
		SubjectTypesSupported:            []string{"public"},
		IDTokenSigningAlgValuesSupported: []string{algorithm},
		TokenEndpointAuthMethodsSupported: []string{
			"client_secret_basic",
			"client_secret_post",
			"private_key_jwt",
		},
		CodeChallengeMethodsSupported: []string{
			domain.CodeChallengeMethodPlain,
			domain.CodeChallengeMethodS256,
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, doc)
	}
}
