package social

import (
	"context"
	"fmt"
	"time"

	auth "authcore"
)

// AssertionResolver reconciles a verified provider assertion into the
// identity store and returns the resulting token pair. The auth
// registry implements it.
type AssertionResolver interface {
	ResolveFederated(ctx context.Context, provider, email, fullName, avatarURL string) (*auth.TokenPair, error)
}

// Authenticator orchestrates the redirect flow for the configured
// providers: begin issues the consent URL with a signed state, complete
// exchanges the callback code, fetches the profile, and hands it to the
// resolver.
type Authenticator struct {
	providers map[string]Provider
	states    *StateManager
	resolver  AssertionResolver
	logger    auth.Logger
}

// AuthenticatorConfig configures the social authenticator.
type AuthenticatorConfig struct {
	StateKey []byte
	StateTTL time.Duration
}

type AuthenticatorOption func(*Authenticator)

func NewAuthenticator(resolver AssertionResolver, cfg AuthenticatorConfig, opts ...AuthenticatorOption) *Authenticator {
	sa := &Authenticator{
		providers: make(map[string]Provider),
		states:    NewStateManager(cfg.StateKey, cfg.StateTTL),
		resolver:  resolver,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sa)
		}
	}

	return sa
}

// WithProvider registers a social provider.
func WithProvider(provider Provider) AuthenticatorOption {
	return func(sa *Authenticator) {
		if provider != nil {
			sa.providers[provider.Name()] = provider
		}
	}
}

// WithLogger sets the logger used for provider-side failure detail.
func WithLogger(logger auth.Logger) AuthenticatorOption {
	return func(sa *Authenticator) {
		sa.logger = logger
	}
}

// AuthRedirect contains the authorization URL for redirecting users.
type AuthRedirect struct {
	URL      string
	State    string
	Provider string
}

// BeginAuth starts the OAuth flow for a provider.
func (sa *Authenticator) BeginAuth(ctx context.Context, providerName string) (*AuthRedirect, error) {
	provider, ok := sa.providers[providerName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, providerName)
	}

	state, err := sa.states.Issue()
	if err != nil {
		return nil, fmt.Errorf("failed to issue state: %w", err)
	}

	return &AuthRedirect{
		URL:      provider.AuthCodeURL(state),
		State:    state,
		Provider: providerName,
	}, nil
}

// CompleteAuth finishes the flow after the provider callback and
// terminates with the same token pair contract as local login.
func (sa *Authenticator) CompleteAuth(ctx context.Context, providerName, code, state string) (*auth.TokenPair, error) {
	if err := sa.states.Verify(state); err != nil {
		return nil, err
	}

	provider, ok := sa.providers[providerName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, providerName)
	}

	token, err := provider.Exchange(ctx, code)
	if err != nil {
		sa.logError("token exchange failed", providerName, err)
		return nil, ErrTokenExchangeFailed
	}

	profile, err := provider.UserInfo(ctx, token)
	if err != nil {
		sa.logError("user info fetch failed", providerName, err)
		return nil, ErrUserInfoFailed
	}

	if profile.Email == "" {
		return nil, ErrMissingEmail
	}

	return sa.resolver.ResolveFederated(ctx, providerName, profile.Email, profile.Name, profile.AvatarURL)
}

func (sa *Authenticator) logError(msg, provider string, err error) {
	if sa.logger != nil {
		sa.logger.Error(msg+" for %s: %v", provider, err)
	}
}
