package domain

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"

	appError "catalog/internal/shared/error"
	logger "catalog/internal/shared/log"
)

const (
	TokenRequestType = "TOKEN"

	EffectAllow = "Allow"
	EffectDeny  = "Deny"

	policyVersion = "2012-10-17"
	invokeAction  = "execute-api:Invoke"
)

// DenyMode selects how a credential mismatch is reported.
type DenyMode string

const (
	// DenyWithForbidden returns ErrForbidden.
	DenyWithForbidden DenyMode = "forbidden"
	// DenyWithPolicy returns a policy whose statement has Effect Deny.
	DenyWithPolicy DenyMode = "policy"
)

func ParseDenyMode(s string) (DenyMode, error) {
	switch DenyMode(s) {
	case DenyWithForbidden, DenyWithPolicy:
		return DenyMode(s), nil
	case "":
		return DenyWithPolicy, nil
	default:
		return "", fmt.Errorf("unknown deny mode %q", s)
	}
}

type AuthorizerRequest struct {
	Type               string `json:"type"`
	AuthorizationToken string `json:"authorizationToken"`
	MethodArn          string `json:"methodArn"`
}

type PolicyStatement struct {
	Action   string `json:"Action"`
	Effect   string `json:"Effect"`
	Resource string `json:"Resource"`
}

type PolicyDocument struct {
	Version   string            `json:"Version"`
	Statement []PolicyStatement `json:"Statement"`
}

type AuthorizerResponse struct {
	PrincipalID    string         `json:"principalId"`
	PolicyDocument PolicyDocument `json:"policyDocument"`
}

// Effect returns the effect of the first statement.
func (r *AuthorizerResponse) Effect() string {
	if r == nil || len(r.PolicyDocument.Statement) == 0 {
		return EffectDeny
	}
	return r.PolicyDocument.Statement[0].Effect
}

// AuthorizerConfig is fixed at construction. Credentials maps a username
// to its expected password.
type AuthorizerConfig struct {
	Credentials map[string]string
	DenyMode    DenyMode
}

// Authorizer checks basic credentials carried in a token request.
type Authorizer struct {
	credentials map[string]string
	denyMode    DenyMode
}

func NewAuthorizer(cfg AuthorizerConfig) *Authorizer {
	creds := make(map[string]string, len(cfg.Credentials))
	for user, secret := range cfg.Credentials {
		creds[user] = secret
	}
	mode := cfg.DenyMode
	if mode == "" {
		mode = DenyWithPolicy
	}
	return &Authorizer{credentials: creds, denyMode: mode}
}

// Authorize decodes "<scheme> <base64(user:password)>" and returns a policy
// for req.MethodArn. Malformed requests yield ErrUnauthorized; a mismatch
// yields ErrForbidden or a Deny policy depending on the deny mode.
func (a *Authorizer) Authorize(ctx context.Context, req AuthorizerRequest) (*AuthorizerResponse, error) {
	if req.Type != TokenRequestType {
		return nil, appError.ErrUnauthorized
	}
	if req.AuthorizationToken == "" {
		return nil, appError.ErrUnauthorized
	}

	username, password, err := decodeBasicToken(req.AuthorizationToken)
	if err != nil {
		logger.Warnf(ctx, "Rejected authorization token: %v", err)
		return nil, appError.ErrUnauthorized
	}

	effect := EffectDeny
	if expected, ok := a.credentials[username]; ok && expected != "" &&
		subtle.ConstantTimeCompare([]byte(expected), []byte(password)) == 1 {
		effect = EffectAllow
	}
	logger.Infof(ctx, "Authorization for %q: %s", username, effect)

	if effect == EffectDeny && a.denyMode == DenyWithForbidden {
		return nil, appError.ErrForbidden
	}
	return &AuthorizerResponse{
		PrincipalID: username,
		PolicyDocument: PolicyDocument{
			Version: policyVersion,
			Statement: []PolicyStatement{{
				Action:   invokeAction,
				Effect:   effect,
				Resource: req.MethodArn,
			}},
		},
	}, nil
}

func decodeBasicToken(token string) (string, string, error) {
	parts := strings.Split(token, " ")
	if len(parts) < 2 || parts[1] == "" {
		return "", "", fmt.Errorf("missing encoded credentials")
	}
	raw, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", "", fmt.Errorf("decode credentials: %w", err)
	}
	if !utf8.Valid(raw) {
		return "", "", fmt.Errorf("credentials are not valid UTF-8")
	}
	username, password, found := strings.Cut(string(raw), ":")
	if !found {
		return "", "", fmt.Errorf("credentials lack a ':' separator")
	}
	return username, password, nil
}
