package middleware

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eldtechnologies/messenger/internal/crypto"
	"github.com/eldtechnologies/messenger/internal/models"
	"github.com/eldtechnologies/messenger/internal/store"
)

const testNonce = "0123456789abcdef01234567"

type signer struct {
	priv     ed25519.PrivateKey
	identity models.Address
}

func newSigner(t *testing.T) signer {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	identity, err := models.AddressFromBytes(pub)
	require.NoError(t, err)
	return signer{priv: priv, identity: identity}
}

func (s signer) sign(r *http.Request, body []byte, nonce string, ts int64) {
	payload := crypto.SignaturePayload(r.Method, r.URL.Path, sha256Hex(body), nonce, ts)
	r.Header.Set(HeaderSigner, s.identity.String())
	r.Header.Set(HeaderNonce, nonce)
	r.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
	r.Header.Set(HeaderSignature, base64.StdEncoding.EncodeToString(ed25519.Sign(s.priv, payload)))
}

// echoIdentity writes the credential identity found in the request context.
var echoIdentity = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	cred, ok := CredentialFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusTeapot)
		return
	}
	w.Write([]byte(cred.Identity().String()))
})

func newAuth() *AuthMiddleware {
	return NewAuthMiddleware(store.NewMemoryNonceStore(), zerolog.Nop())
}

func TestRequireAuthAcceptsSignedRequest(t *testing.T) {
	s := newSigner(t)
	body := []byte(`{"ciphertext":"aGk="}`)
	req := httptest.NewRequest(http.MethodPost, "/messages", bytes.NewReader(body))
	s.sign(req, body, testNonce, time.Now().UnixMilli())

	rec := httptest.NewRecorder()
	newAuth().RequireAuth(echoIdentity).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, s.identity.String(), rec.Body.String())
}

func TestRequireAuthRejectsReplay(t *testing.T) {
	s := newSigner(t)
	auth := newAuth()
	ts := time.Now().UnixMilli()

	for i, want := range []int{http.StatusOK, http.StatusUnauthorized} {
		req := httptest.NewRequest(http.MethodPost, "/registry", nil)
		s.sign(req, nil, testNonce, ts)
		rec := httptest.NewRecorder()
		auth.RequireAuth(echoIdentity).ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, "attempt %d", i)
	}
}

func TestRequireAuthRejectsTamperedRequest(t *testing.T) {
	s := newSigner(t)
	ts := time.Now().UnixMilli()

	cases := map[string]func() *http.Request{
		"body": func() *http.Request {
			req := httptest.NewRequest(http.MethodPost, "/messages", bytes.NewReader([]byte("changed")))
			s.sign(req, []byte("original"), testNonce, ts)
			return req
		},
		"path": func() *http.Request {
			req := httptest.NewRequest(http.MethodDelete, "/registry/other", nil)
			signed := httptest.NewRequest(http.MethodDelete, "/registry/mine", nil)
			s.sign(signed, nil, testNonce, ts)
			req.Header = signed.Header
			return req
		},
		"signer": func() *http.Request {
			req := httptest.NewRequest(http.MethodPost, "/config", nil)
			s.sign(req, nil, testNonce, ts)
			req.Header.Set(HeaderSigner, newSigner(t).identity.String())
			return req
		},
		"missing headers": func() *http.Request {
			return httptest.NewRequest(http.MethodPost, "/config", nil)
		},
		"short nonce": func() *http.Request {
			req := httptest.NewRequest(http.MethodPost, "/config", nil)
			s.sign(req, nil, "short", ts)
			return req
		},
		"expired": func() *http.Request {
			req := httptest.NewRequest(http.MethodPost, "/config", nil)
			s.sign(req, nil, testNonce, time.Now().Add(-time.Minute).UnixMilli())
			return req
		},
		"future": func() *http.Request {
			req := httptest.NewRequest(http.MethodPost, "/config", nil)
			s.sign(req, nil, testNonce, time.Now().Add(time.Minute).UnixMilli())
			return req
		},
	}

	for name, build := range cases {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newAuth().RequireAuth(echoIdentity).ServeHTTP(rec, build())
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestCredentialFromContextWithoutAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/config", nil)
	_, ok := CredentialFromContext(req.Context())
	assert.False(t, ok)
}

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"/registry/abc":         "/registry/:identity",
		"/registry/abc/key":     "/registry/:identity/key",
		"/registry/abc/min-fee": "/registry/:identity/min-fee",
		"/registry":             "/registry",
		"/accounts/xyz":         "/accounts/:address",
		"/messages":             "/messages",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizePath(in), in)
	}
}

func TestValidateRequest(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest(http.MethodPost, "/messages", bytes.NewReader([]byte("x")))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	ValidateRequest(ok).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/registry/..%2fetc", nil)
	rec = httptest.NewRecorder()
	ValidateRequest(ok).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/messages", bytes.NewReader([]byte("{}")))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	ValidateRequest(ok).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIsWhitelisted(t *testing.T) {
	rl := NewRateLimiter(nil, zerolog.Nop(), RateLimiterConfig{
		Whitelist: []string{"10.0.0.0/8", "192.168.1.7", "bogus/99"},
	})
	assert.True(t, rl.isWhitelisted("10.1.2.3"))
	assert.True(t, rl.isWhitelisted("192.168.1.7"))
	assert.False(t, rl.isWhitelisted("192.168.1.8"))
	assert.False(t, rl.isWhitelisted("not-an-ip"))
}

func TestSignerKeyIgnoresClaimedSigner(t *testing.T) {
	victim := newSigner(t)

	// Unsigned request from another IP claiming the victim's identity.
	spoofed := httptest.NewRequest(http.MethodPost, "/registry", nil)
	spoofed.RemoteAddr = "6.6.6.6:4000"
	spoofed.Header.Set(HeaderSigner, victim.identity.String())
	assert.Equal(t, "ratelimit:ip:6.6.6.6", signerKey(spoofed))

	var verifiedKey string
	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		verifiedKey = signerKey(r)
	})
	req := httptest.NewRequest(http.MethodPost, "/registry", nil)
	req.RemoteAddr = "1.2.3.4:5000"
	victim.sign(req, nil, testNonce, time.Now().UnixMilli())

	rec := httptest.NewRecorder()
	newAuth().RequireAuth(capture).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ratelimit:signer:"+victim.identity.String(), verifiedKey)
	assert.NotEqual(t, signerKey(spoofed), verifiedKey)
}

func TestSpoofedSignerNeverReachesLimiter(t *testing.T) {
	victim := newSigner(t)
	limited := 0
	limiter := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limited++
	})
	auth := newAuth()

	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodPost, "/registry", nil)
		req.RemoteAddr = "6.6.6.6:4000"
		req.Header.Set(HeaderSigner, victim.identity.String())
		rec := httptest.NewRecorder()
		auth.RequireAuth(limiter).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	assert.Zero(t, limited)
}
