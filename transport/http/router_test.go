package http

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/pqauth/adapters/audit"
	"github.com/layer-3/pqauth/adapters/challenge"
	"github.com/layer-3/pqauth/adapters/kem"
	"github.com/layer-3/pqauth/adapters/registry"
	"github.com/layer-3/pqauth/adapters/signature"
	"github.com/layer-3/pqauth/adapters/store"
	"github.com/layer-3/pqauth/adapters/tokenizer"
	"github.com/layer-3/pqauth/core"
	"github.com/layer-3/pqauth/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestService(t *testing.T) *service.AuthService {
	t.Helper()

	authority, err := tokenizer.NewCustodian("pqauth-test", time.Hour)
	require.NoError(t, err)

	svc, err := service.NewAuthService(service.Dependencies{
		Registry:    registry.NewMemoryRegistry(),
		Challenges:  service.NewChallengeIssuer(challenge.NewMemoryStore(time.Minute), 5*time.Minute, nil),
		Verifier:    signature.NewEd25519Verifier(),
		KEM:         kem.NewMLKEM(),
		Authority:   authority,
		Audit:       audit.NewMemoryRecorder(nil, nil),
		Revocations: store.NewMemoryStore(),
	})
	require.NoError(t, err)
	return svc
}

func newTestRouter(t *testing.T, opts ...RouterOption) *gin.Engine {
	t.Helper()
	return SetupRouter(newTestService(t), nil, opts...)
}

func do(t *testing.T, router *gin.Engine, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

type testUser struct {
	id   string
	priv ed25519.PrivateKey
}

func newTestUser(t *testing.T) testUser {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return testUser{id: core.EncodeDigitalID(pub), priv: priv}
}

func (u testUser) sign(t *testing.T, nonce string) string {
	t.Helper()

	value, err := base64.StdEncoding.DecodeString(nonce)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(ed25519.Sign(u.priv, value))
}

func login(t *testing.T, router *gin.Engine, u testUser) TokenResponse {
	t.Helper()

	w := do(t, router, http.MethodGet, "/auth/challenge", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	ch := decode[ChallengeResponse](t, w)

	w = do(t, router, http.MethodPost, "/auth/login", LoginRequest{
		DigitalID: u.id,
		Nonce:     ch.Nonce,
		Signature: u.sign(t, ch.Nonce),
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[TokenResponse](t, w)
}

func TestRouter_FullFlow(t *testing.T) {
	router := newTestRouter(t)
	alice := newTestUser(t)

	w := do(t, router, http.MethodPost, "/auth/register", RegisterRequest{DigitalID: alice.id}, "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, alice.id, decode[IdentityResponse](t, w).DigitalID)

	tok := login(t, router, alice)
	assert.Equal(t, "Bearer", tok.TokenType)
	assert.NotEmpty(t, tok.Token)

	w = do(t, router, http.MethodGet, "/api/me", nil, tok.Token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, alice.id, decode[IdentityResponse](t, w).DigitalID)

	w = do(t, router, http.MethodGet, "/api/authorize", nil, tok.Token)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, true, body["authorized"])
	assert.Equal(t, alice.id, body["digital_id"])

	w = do(t, router, http.MethodPost, "/auth/logout", nil, tok.Token)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, http.MethodGet, "/api/me", nil, tok.Token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_RegisterErrors(t *testing.T) {
	router := newTestRouter(t)
	alice := newTestUser(t)

	w := do(t, router, http.MethodPost, "/auth/register", RegisterRequest{DigitalID: alice.id}, "")
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, router, http.MethodPost, "/auth/register", RegisterRequest{DigitalID: alice.id}, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, router, http.MethodPost, "/auth/register", RegisterRequest{DigitalID: "AAAA"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodPost, "/auth/register", map[string]string{}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_AuthFailuresAreUniform(t *testing.T) {
	router := newTestRouter(t)
	alice := newTestUser(t)
	stranger := newTestUser(t)

	w := do(t, router, http.MethodPost, "/auth/register", RegisterRequest{DigitalID: alice.id}, "")
	require.Equal(t, http.StatusCreated, w.Code)

	attempt := func(id string, signer testUser) *httptest.ResponseRecorder {
		w := do(t, router, http.MethodGet, "/auth/challenge", nil, "")
		ch := decode[ChallengeResponse](t, w)
		return do(t, router, http.MethodPost, "/auth/login", LoginRequest{
			DigitalID: id,
			Nonce:     ch.Nonce,
			Signature: signer.sign(t, ch.Nonce),
		}, "")
	}

	unknown := attempt(stranger.id, stranger)
	badSig := attempt(alice.id, stranger)

	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, http.StatusUnauthorized, badSig.Code)
	assert.Equal(t, unknown.Body.String(), badSig.Body.String())
	assert.JSONEq(t, `{"error":"unauthorized"}`, unknown.Body.String())
}

func TestRouter_ReplayedNonceIsUnauthorized(t *testing.T) {
	router := newTestRouter(t)
	alice := newTestUser(t)
	do(t, router, http.MethodPost, "/auth/register", RegisterRequest{DigitalID: alice.id}, "")

	ch := decode[ChallengeResponse](t, do(t, router, http.MethodGet, "/auth/challenge", nil, ""))
	req := LoginRequest{DigitalID: alice.id, Nonce: ch.Nonce, Signature: alice.sign(t, ch.Nonce)}

	assert.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/auth/login", req, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, router, http.MethodPost, "/auth/login", req, "").Code)
}

func TestRouter_MalformedLoginIsBadRequest(t *testing.T) {
	router := newTestRouter(t)
	alice := newTestUser(t)
	do(t, router, http.MethodPost, "/auth/register", RegisterRequest{DigitalID: alice.id}, "")

	ch := decode[ChallengeResponse](t, do(t, router, http.MethodGet, "/auth/challenge", nil, ""))

	w := do(t, router, http.MethodPost, "/auth/login", LoginRequest{
		DigitalID: alice.id,
		Nonce:     ch.Nonce,
		Signature: "not base64!",
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodPost, "/auth/login", LoginRequest{
		DigitalID: "not a digital id",
		Nonce:     ch.Nonce,
		Signature: alice.sign(t, ch.Nonce),
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_ProtectedRoutesRequireBearer(t *testing.T) {
	router := newTestRouter(t)

	for _, token := range []string{"", "garbage"} {
		w := do(t, router, http.MethodGet, "/api/me", nil, token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"error":"unauthorized"}`, w.Body.String())
	}

	w := do(t, router, http.MethodPost, "/auth/logout", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_Key(t *testing.T) {
	router := newTestRouter(t)

	w := do(t, router, http.MethodGet, "/auth/key", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	key := decode[KeyResponse](t, w)
	assert.Equal(t, "EdDSA", key.Alg)
	raw, err := base64.StdEncoding.DecodeString(key.PublicKey)
	require.NoError(t, err)
	assert.Len(t, raw, ed25519.PublicKeySize)
}

func TestRouter_DebugSign(t *testing.T) {
	w := do(t, newTestRouter(t), http.MethodGet, "/debug/sign?nonce=x", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	svc := newTestService(t)
	demo, err := service.NewDemoIdentity()
	require.NoError(t, err)
	_, err = svc.Register(t.Context(), demo.ID)
	require.NoError(t, err)

	router := SetupRouter(svc, nil, WithDemoSigner(demo))

	ch := decode[ChallengeResponse](t, do(t, router, http.MethodGet, "/auth/challenge", nil, ""))

	req := httptest.NewRequest(http.MethodGet, "/debug/sign?nonce="+url.QueryEscape(ch.Nonce), nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	sig := decode[map[string]string](t, w)["signature"]

	w = do(t, router, http.MethodPost, "/auth/login", LoginRequest{
		DigitalID: demo.ID,
		Nonce:     ch.Nonce,
		Signature: sig,
	}, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, http.MethodGet, "/debug/sign", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
