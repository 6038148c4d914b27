package auth

import (
	"context"
	"net/http"

	"github.com/congo-pay/fraudguard/internal/apiclient"
)

const (
	loginPath    = "/api/auth/login"
	registerPath = "/api/auth/register"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Gateway calls the remote authentication service. It holds no session
// state; errors are the *failure.Error values produced by apiclient.
type Gateway struct {
	api *apiclient.Client
}

// NewGateway builds an auth gateway on top of api.
func NewGateway(api *apiclient.Client) *Gateway {
	return &Gateway{api: api}
}

// Login exchanges credentials for a bearer token.
func (g *Gateway) Login(ctx context.Context, email, password string) (string, error) {
	var resp tokenResponse
	err := g.api.Do(ctx, apiclient.Call{
		Method: http.MethodPost,
		Path:   loginPath,
		Body:   loginRequest{Email: email, Password: password},
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Token, nil
}

// Register creates an account and returns its bearer token.
func (g *Gateway) Register(ctx context.Context, name, email, password string) (string, error) {
	var resp tokenResponse
	err := g.api.Do(ctx, apiclient.Call{
		Method: http.MethodPost,
		Path:   registerPath,
		Body:   registerRequest{Name: name, Email: email, Password: password},
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Token, nil
}
