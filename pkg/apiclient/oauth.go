package apiclient

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// OAuthConfig 服务间调用使用的 client credentials
type OAuthConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// NewOAuthHTTPClient 返回自动获取并刷新访问令牌的 HTTP 客户端，Alloy 与 Steamfitter 共用
func NewOAuthHTTPClient(ctx context.Context, cfg OAuthConfig) *http.Client {
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
	}
	return oauth2.NewClient(ctx, cc.TokenSource(ctx))
}

// tokenError 签发方拒绝凭据时按 401 处理，调用方据此提示重新认证
func tokenError(service, op string, err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) || re.Response == nil {
		return nil
	}
	switch re.Response.StatusCode {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		msg := re.ErrorCode
		if msg == "" {
			msg = "token request rejected"
		}
		return &APIError{Service: service, Op: op, StatusCode: http.StatusUnauthorized, Message: msg}
	}
	return nil
}
