package connector

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// TokenSource supplies a bearer token. Implementations may resolve it with a
// remote exchange; failures there surface on first use, not at construction.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a token fixed at construction.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	token := strings.TrimSpace(string(t))
	if token == "" {
		return "", Configf("static token is empty")
	}
	return token, nil
}

// ClientCredentials exchanges a client id/secret pair for an access token
// using the OAuth2 client-credentials grant. The exchange happens lazily on
// first use under the caller's context and the token is cached until it
// expires; refresh beyond that is out of scope here.
type ClientCredentials struct {
	conf *clientcredentials.Config

	mu    sync.Mutex
	token *oauth2.Token
}

func NewClientCredentials(tokenURL, clientID, clientSecret string) (*ClientCredentials, error) {
	if strings.TrimSpace(tokenURL) == "" {
		return nil, Configf("token url is required for client credentials")
	}
	if strings.TrimSpace(clientID) == "" || strings.TrimSpace(clientSecret) == "" {
		return nil, Configf("client id and client secret are both required")
	}
	return &ClientCredentials{
		conf: &clientcredentials.Config{
			ClientID:     strings.TrimSpace(clientID),
			ClientSecret: strings.TrimSpace(clientSecret),
			TokenURL:     strings.TrimSpace(tokenURL),
		},
	}, nil
}

func (c *ClientCredentials) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token.Valid() {
		return c.token.AccessToken, nil
	}

	token, err := c.conf.Token(ctx)
	if err != nil {
		return "", Transportf("client credentials exchange: %v", err)
	}
	c.token = token
	return token.AccessToken, nil
}
