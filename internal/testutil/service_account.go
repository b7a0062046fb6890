package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

const jwtBearerGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

// ServiceAccount is a generated service account key for tests.
type ServiceAccount struct {
	Email      string
	KeyID      string
	ProjectID  string
	TokenURI   string
	PrivateKey *rsa.PrivateKey
}

// NewServiceAccount generates an RSA key and a service account whose
// token_uri points at tokenURI.
func NewServiceAccount(tb testing.TB, tokenURI string) *ServiceAccount {
	tb.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		tb.Fatalf("failed to generate service account key: %v", err)
	}

	return &ServiceAccount{
		Email:      "tester@test-project.iam.gserviceaccount.com",
		KeyID:      "test-key-1",
		ProjectID:  "test-project",
		TokenURI:   tokenURI,
		PrivateKey: privateKey,
	}
}

// JSON returns the key in the format produced by the Cloud Console.
func (sa *ServiceAccount) JSON(tb testing.TB) []byte {
	tb.Helper()

	keyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(sa.PrivateKey),
	})

	data, err := json.Marshal(map[string]string{
		"type":           "service_account",
		"project_id":     sa.ProjectID,
		"private_key_id": sa.KeyID,
		"private_key":    string(keyPEM),
		"client_email":   sa.Email,
		"client_id":      "1234567890",
		"auth_uri":       "https://accounts.google.com/o/oauth2/auth",
		"token_uri":      sa.TokenURI,
	})
	if err != nil {
		tb.Fatalf("failed to encode service account: %v", err)
	}
	return data
}

// WriteKeyFile writes the key JSON into dir and returns its path.
func (sa *ServiceAccount) WriteKeyFile(tb testing.TB, dir string) string {
	tb.Helper()

	path := filepath.Join(dir, "service-account.json")
	if err := os.WriteFile(path, sa.JSON(tb), 0o600); err != nil {
		tb.Fatalf("failed to write service account key: %v", err)
	}
	return path
}

// JWKS returns the public half of the key as a JSON Web Key Set, the format
// Google publishes service account keys in.
func (sa *ServiceAccount) JWKS(tb testing.TB) []byte {
	tb.Helper()

	pub := sa.PrivateKey.PublicKey
	jwks := map[string]any{
		"keys": []map[string]any{
			{
				"kty": "RSA",
				"kid": sa.KeyID,
				"use": "sig",
				"alg": "RS256",
				"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			},
		},
	}

	data, err := json.Marshal(jwks)
	if err != nil {
		tb.Fatalf("failed to encode JWKS: %v", err)
	}
	return data
}

// TokenEndpoint records the scopes of verified assertions.
type TokenEndpoint struct {
	mu     sync.Mutex
	scopes [][]string
}

// Scopes returns the scope lists received, one entry per token request.
func (e *TokenEndpoint) Scopes() [][]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([][]string(nil), e.scopes...)
}

// Calls returns the number of successfully verified token requests.
func (e *TokenEndpoint) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.scopes)
}

// ServiceAccountTokenHandler emulates the Google token endpoint for the JWT
// bearer grant: it verifies the signed assertion against the account's JWKS
// and answers with accessToken. Invalid assertions get a 400 response.
func ServiceAccountTokenHandler(tb testing.TB, sa *ServiceAccount, accessToken string) (RoundTripFunc, *TokenEndpoint) {
	tb.Helper()

	jwks, err := keyfunc.NewJSON(sa.JWKS(tb))
	if err != nil {
		tb.Fatalf("failed to load JWKS: %v", err)
	}

	endpoint := &TokenEndpoint{}

	handler := func(req *http.Request) (*http.Response, error) {
		if err := req.ParseForm(); err != nil {
			return JSONResponse(req, http.StatusBadRequest, `{"error":"invalid_request"}`), nil
		}
		if req.PostForm.Get("grant_type") != jwtBearerGrantType {
			return JSONResponse(req, http.StatusBadRequest, `{"error":"unsupported_grant_type"}`), nil
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(req.PostForm.Get("assertion"), claims, jwks.Keyfunc,
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Name}))
		if err != nil || !token.Valid {
			return JSONResponse(req, http.StatusBadRequest, `{"error":"invalid_grant"}`), nil
		}

		if iss, _ := claims["iss"].(string); iss != sa.Email {
			return JSONResponse(req, http.StatusBadRequest, `{"error":"invalid_grant","error_description":"bad issuer"}`), nil
		}

		scope, _ := claims["scope"].(string)
		endpoint.mu.Lock()
		endpoint.scopes = append(endpoint.scopes, strings.Fields(scope))
		endpoint.mu.Unlock()

		body := fmt.Sprintf(`{"access_token":%q,"token_type":"Bearer","expires_in":3600}`, accessToken)
		return JSONResponse(req, http.StatusOK, body), nil
	}

	return handler, endpoint
}
