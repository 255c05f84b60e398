package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/idp/internal/idp/service"
	"github.com/aussiebroadwan/idp/internal/idp/store"
	"github.com/aussiebroadwan/idp/internal/idp/users"
	"github.com/aussiebroadwan/idp/internal/idp/validation"
	"github.com/aussiebroadwan/idp/pkg/httpx"
	"github.com/aussiebroadwan/idp/pkg/jwtx"
	"github.com/aussiebroadwan/idp/pkg/slogx"

	_ "github.com/aussiebroadwan/idp/api/idp" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	verifier     jwtx.Verifier
	issuer       string
	algorithm    string
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store store.Store
	Users users.Service

	ClientAuth *validation.ClientAuthenticator
	ScopeAuth  *validation.ScopeAuthenticator

	AuthorizeValidator     *validation.AuthorizeRequestValidator
	TokenValidator         *validation.TokenRequestValidator
	RevocationValidator    *validation.RevocationRequestValidator
	IntrospectionValidator *validation.IntrospectionRequestValidator

	AuthorizeResponses *service.AuthorizeResponseGenerator
	TokenResponses     *service.TokenResponseGenerator
	Revocations        *service.RevocationService
	Introspections     *service.IntrospectionService

	// ExtraGrantTypes lists registered custom grant types for the discovery
	// document.
	ExtraGrantTypes []string
}

func NewRouter(
	keys *jwtx.KeySet,
	verifier jwtx.Verifier,
	issuer, algorithm, buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		verifier:     verifier,
		issuer:       issuer,
		algorithm:    algorithm,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerConnect()
	r.registerWellKnown()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Identity Provider API
//	@version		0.1.0
//	@description	OpenID Connect / OAuth2 identity provider: authorization, token issuance,
//	@description	revocation and introspection with JWT and reference access tokens.
//	@description
//	@description				Tokens are signed with the configured algorithm and can be verified against the JWKS endpoint.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/idp
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerConnect() {
	authorizeHandler := &AuthorizeHandler{
		Validator: r.AuthorizeValidator,
		Responses: r.AuthorizeResponses,
		Users:     r.Users,
		Verifier:  r.verifier,
	}

	// GET /connect/authorize - lenient rate limit (session-bearing browsers)
	r.Mux.Handle("GET /connect/authorize",
		httpx.Chain(http.HandlerFunc(authorizeHandler.HandleGet),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	// POST /connect/authorize - strict rate limit (authentication attempts)
	// Note: Rate limited by IP + username form field to prevent brute force
	r.Mux.Handle("POST /connect/authorize",
		httpx.Chain(http.HandlerFunc(authorizeHandler.HandlePost),
			httpx.RateLimitByIPAndFormField(httpx.StrictLimit, "username"),
		),
	)

	// POST /connect/token - strict rate limit by IP (covers all grant types)
	tokenHandler := &TokenHandler{
		ClientAuth: r.ClientAuth,
		Validator:  r.TokenValidator,
		Responses:  r.TokenResponses,
	}
	r.Mux.Handle("POST /connect/token",
		httpx.Chain(tokenHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /connect/revocation - moderate rate limit
	revocationHandler := &RevocationHandler{
		ClientAuth:  r.ClientAuth,
		Validator:   r.RevocationValidator,
		Revocations: r.Revocations,
	}
	r.Mux.Handle("POST /connect/revocation",
		httpx.Chain(revocationHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /connect/introspect - moderate rate limit; the handler does its
	// own scope-owner authentication.
	introspectionHandler := &IntrospectionHandler{
		ScopeAuth:      r.ScopeAuth,
		Validator:      r.IntrospectionValidator,
		Introspections: r.Introspections,
	}
	r.Mux.Handle("POST /connect/introspect",
		httpx.Chain(introspectionHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerWellKnown() {
	// Public discovery endpoints with high limits
	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /.well-known/openid-configuration",
		httpx.Chain(DiscoveryHandler(r.issuer, r.algorithm, r.ExtraGrantTypes),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
