package app

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/internal/idp/store"
	"github.com/aussiebroadwan/idp/internal/idp/users"
)

// Seed describes clients, scopes and local users loaded at startup from
// IDP_SEED_FILE. Client and scope administration happens outside this
// service; the seed file covers dev instances and end-to-end tests, where
// there is no external provisioning to lean on.
type Seed struct {
	Clients []SeedClient `json:"clients"`
	Scopes  []SeedScope  `json:"scopes"`
	Users   []SeedUser   `json:"users"`
}

type SeedClient struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Enabled *bool  `json:"enabled,omitempty"`

	Flow string `json:"flow"`

	// Secrets are plaintext here and hashed before they reach the store.
	Secrets []string `json:"secrets,omitempty"`

	RedirectURIs  []string `json:"redirect_uris,omitempty"`
	AllowedScopes []string `json:"allowed_scopes,omitempty"`

	AllowedCustomGrantTypes []string `json:"allowed_custom_grant_types,omitempty"`

	AccessTokenType  string `json:"access_token_type,omitempty"`
	EnableLocalLogin bool   `json:"enable_local_login,omitempty"`

	AccessTokenLifetimeSeconds int `json:"access_token_lifetime_seconds,omitempty"`
}

type SeedScope struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Enabled *bool  `json:"enabled,omitempty"`

	Required bool     `json:"required,omitempty"`
	Claims   []string `json:"claims,omitempty"`

	// Secrets authenticate the scope owner at the introspection endpoint.
	// Plaintext here, hashed before storage.
	Secrets []string `json:"secrets,omitempty"`
}

type SeedUser struct {
	SubjectID string            `json:"subject_id"`
	Username  string            `json:"username"`
	Password  string            `json:"password"`
	Name      string            `json:"name,omitempty"`
	Claims    map[string]string `json:"claims,omitempty"`
}

// LoadSeed reads and parses a seed file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed Seed
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return &seed, nil
}

// Apply writes the seed into the store and user service. Existing clients
// and scopes are left alone so a restart against a persistent database does
// not clobber anything provisioned since.
func (s *Seed) Apply(ctx context.Context, st store.Store, userSvc users.Service) error {
	for _, sc := range s.Scopes {
		if _, err := st.Scopes().GetScopeByName(ctx, sc.Name); err == nil {
			continue
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if err := st.Scopes().CreateScope(ctx, sc.toDomain()); err != nil {
			return fmt.Errorf("failed to seed scope %q: %w", sc.Name, err)
		}
	}

	for _, c := range s.Clients {
		if _, err := st.Clients().GetClientByID(ctx, c.ID); err == nil {
			continue
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		client, err := c.toDomain()
		if err != nil {
			return err
		}
		if err := st.Clients().CreateClient(ctx, client); err != nil {
			return fmt.Errorf("failed to seed client %q: %w", c.ID, err)
		}
	}

	inmem, ok := userSvc.(*users.InMemoryService)
	if !ok {
		if len(s.Users) > 0 {
			return fmt.Errorf("seed file declares users but the user service is not seedable")
		}
		return nil
	}
	for _, u := range s.Users {
		claims := make([]domain.Claim, 0, len(u.Claims))
		for claimType, value := range u.Claims {
			claims = append(claims, domain.Claim{Type: claimType, Value: value})
		}
		err := inmem.Add(users.User{
			SubjectID: u.SubjectID,
			Username:  u.Username,
			Password:  u.Password,
			Name:      u.Name,
			Active:    true,
			Claims:    claims,
		})
		if err != nil {
			return fmt.Errorf("failed to seed user %q: %w", u.Username, err)
		}
	}
	return nil
}

func (c *SeedClient) toDomain() (domain.Client, error) {
	flow := domain.Flow(c.Flow)
	switch flow {
	case domain.FlowAuthorizationCode, domain.FlowAuthorizationCodeWithProofKey,
		domain.FlowImplicit, domain.FlowHybrid, domain.FlowHybridWithProofKey,
		domain.FlowClientCredentials, domain.FlowResourceOwner, domain.FlowCustom:
	default:
		return domain.Client{}, fmt.Errorf("seed client %q has unknown flow %q", c.ID, c.Flow)
	}

	tokenType := domain.AccessTokenType(c.AccessTokenType)
	if tokenType == "" {
		tokenType = domain.AccessTokenTypeJWT
	}

	client := domain.Client{
		ID:                      c.ID,
		Name:                    c.Name,
		Enabled:                 c.Enabled == nil || *c.Enabled,
		Flow:                    flow,
		Secrets:                 hashSeedSecrets(c.Secrets),
		RedirectURIs:            c.RedirectURIs,
		AllowedScopes:           c.AllowedScopes,
		AllowedCustomGrantTypes: c.AllowedCustomGrantTypes,
		AccessTokenType:         tokenType,
		EnableLocalLogin:        c.EnableLocalLogin,
	}
	if c.AccessTokenLifetimeSeconds > 0 {
		client.AccessTokenLifetime = time.Duration(c.AccessTokenLifetimeSeconds) * time.Second
	}
	return client, nil
}

func (sc *SeedScope) toDomain() domain.Scope {
	scopeType := domain.ScopeType(sc.Type)
	if scopeType == "" {
		scopeType = domain.ScopeTypeResource
	}

	claims := make([]domain.ScopeClaim, 0, len(sc.Claims))
	for _, name := range sc.Claims {
		claims = append(claims, domain.ScopeClaim{Name: name})
	}

	return domain.Scope{
		Name:     sc.Name,
		Type:     scopeType,
		Enabled:  sc.Enabled == nil || *sc.Enabled,
		Required: sc.Required,
		Claims:   claims,
		Secrets:  hashSeedSecrets(sc.Secrets),
	}
}

// hashSeedSecrets stores the SHA-256 digest of each plaintext, matching what
// the hashed secret validator expects.
func hashSeedSecrets(plaintexts []string) []domain.Secret {
	secrets := make([]domain.Secret, 0, len(plaintexts))
	for _, p := range plaintexts {
		sum := sha256.Sum256([]byte(p))
		secrets = append(secrets, domain.Secret{
			Type:  domain.SecretTypeSharedSecret,
			Value: base64.StdEncoding.EncodeToString(sum[:]),
		})
	}
	return secrets
}
