package domain

// Grant types we dispatch on at the token endpoint. Custom grant types are
// arbitrary strings registered at runtime; these are the built-in four.
const (
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypeClientCredentials = "client_credentials"
	GrantTypePassword          = "password"
	GrantTypeRefreshToken      = "refresh_token"
)

// Response types supported at the authorize endpoint.
const (
	ResponseTypeCode             = "code"
	ResponseTypeToken            = "token"
	ResponseTypeIDToken          = "id_token"
	ResponseTypeIDTokenToken     = "id_token token"
	ResponseTypeCodeIDToken      = "code id_token"
	ResponseTypeCodeToken        = "code token"
	ResponseTypeCodeIDTokenToken = "code id_token token"
)

// Response modes.
const (
	ResponseModeQuery    = "query"
	ResponseModeFragment = "fragment"
	ResponseModeFormPost = "form_post"
)

// PKCE code challenge methods.
const (
	CodeChallengeMethodPlain = "plain"
	CodeChallengeMethodS256  = "S256"
)

// Token types and revocation/introspection hints.
const (
	TokenTypeIdentity = "id_token"
	TokenTypeAccess   = "access_token"

	TokenTypeHintAccessToken  = "access_token"
	TokenTypeHintRefreshToken = "refresh_token"
)

// Requested token_type values at the token endpoint.
const (
	RequestedTokenTypeBearer = "bearer"
	RequestedTokenTypePoP    = "pop"
)

// Well-known scopes with protocol meaning.
const (
	ScopeOpenID        = "openid"
	ScopeOfflineAccess = "offline_access"
)

// ClientAssertionTypeJWTBearer is the only supported client_assertion_type.
const ClientAssertionTypeJWTBearer = "urn:ietf:params:oauth:client-assertion-type:jwt-bearer"

// Claim types used when assembling token claim sets.
const (
	ClaimSubject               = "sub"
	ClaimName                  = "name"
	ClaimAuthenticationMethod  = "amr"
	ClaimAuthenticationTime    = "auth_time"
	ClaimAuthenticationContext = "acr"
	ClaimIdentityProvider      = "idp"
	ClaimAudience              = "aud"
	ClaimIssuer                = "iss"
	ClaimExpiration            = "exp"
	ClaimIssuedAt              = "iat"
	ClaimNotBefore             = "nbf"
	ClaimNonce                 = "nonce"
	ClaimAccessTokenHash       = "at_hash"
	ClaimAuthorizationCodeHash = "c_hash"
	ClaimClientID              = "client_id"
	ClaimScope                 = "scope"
	ClaimJwtID                 = "jti"
	ClaimSessionID             = "sid"
)

// ProtocolClaims are claim types owned by the token pipeline. They are
// stripped from profile-sourced claims before merging so a user store can
// never override protocol semantics.
var ProtocolClaims = []string{
	ClaimAuthenticationMethod,
	ClaimAuthenticationTime,
	ClaimAuthenticationContext,
	ClaimAccessTokenHash,
	ClaimAuthorizationCodeHash,
	ClaimAudience,
	ClaimExpiration,
	ClaimIssuedAt,
	ClaimIssuer,
	ClaimNotBefore,
	ClaimNonce,
	ClaimIdentityProvider,
	ClaimClientID,
	ClaimScope,
	ClaimJwtID,
}

// Input length restrictions applied before any store lookup. Values over
// these limits are rejected as malformed rather than truncated.
const (
	MaxClientIDLength          = 100
	MaxScopeLength             = 300
	MaxRedirectURILength       = 400
	MaxNonceLength             = 300
	MaxStateLength             = 512
	MaxLoginHintLength         = 100
	MaxAcrValuesLength         = 300
	MaxGrantTypeLength         = 100
	MaxUsernameLength          = 100
	MaxPasswordLength          = 100
	MaxAuthorizationCodeLength = 100
	MaxRefreshTokenLength      = 128
	MaxTokenHandleLength       = 128
	MaxClientSecretLength      = 100
	MaxClientAssertionLength   = 4096
	MaxProofKeyLength          = 2048

	MinCodeVerifierLength = 43
	MaxCodeVerifierLength = 128
)

// ACR value prefixes with well-known meaning. Values carrying these prefixes
// are extracted during password-grant validation; the remainder is passed
// through as the acr claim.
const (
	ACRHomeRealmPrefix = "idp:"
	ACRTenantPrefix    = "tenant:"
)

// AllowedProofKeyAlgorithms is the allow-list for token_type=pop requests.
var AllowedProofKeyAlgorithms = []string{"RS256", "RS384", "RS512"}

// LocalIdentityProvider marks subjects authenticated against the local user
// service rather than a federated provider.
const LocalIdentityProvider = "idsrv"

// AuthenticationMethodPassword is the amr value for password authentication.
const AuthenticationMethodPassword = "password"
