package speech

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAccount(t *testing.T) (*ServiceAccount, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	keyPEM := string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))

	return &ServiceAccount{
		ClientEmail: "tts@bedtime.iam.gserviceaccount.com",
		PrivateKey:  keyPEM,
		ProjectID:   "bedtime-prod",
	}, key
}

func TestNormalizePEM(t *testing.T) {
	body := "MIIBVQIBADANBgkqhkiG9w0BAQEFAASCAT8wggE7AgEAAkEA"
	want := pemHeader + "\n" + body + "\n" + pemFooter + "\n"

	assert.Equal(t, want, NormalizePEM(body))
	assert.Equal(t, want, NormalizePEM(pemHeader+`\n`+body+`\n`+pemFooter+`\n`))
	assert.Equal(t, want, NormalizePEM(pemHeader+"\r\n"+body+"\r\n"+pemFooter))
}

func TestLoadServiceAccount(t *testing.T) {
	account, _ := testAccount(t)
	raw, err := json.Marshal(map[string]string{
		"client_email": account.ClientEmail,
		"private_key":  strings.ReplaceAll(account.PrivateKey, "\n", `\n`),
		"project_id":   account.ProjectID,
	})
	require.NoError(t, err)

	fromRaw, err := LoadServiceAccount(string(raw), "")
	require.NoError(t, err)
	assert.Equal(t, account.ClientEmail, fromRaw.ClientEmail)
	assert.Equal(t, account.PrivateKey, fromRaw.PrivateKey)

	fromB64, err := LoadServiceAccount("", base64.StdEncoding.EncodeToString(raw))
	require.NoError(t, err)
	assert.Equal(t, fromRaw, fromB64)

	_, err = LoadServiceAccount("", "")
	assert.Error(t, err)
	_, err = LoadServiceAccount(`{"client_email":""}`, "")
	assert.Error(t, err)
}

func TestGoogleBackend_SynthesizeWithCachedToken(t *testing.T) {
	account, key := testAccount(t)
	var tokenCalls atomic.Int32

	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, jwtBearerGrant, r.PostForm.Get("grant_type"))

		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(r.PostForm.Get("assertion"), claims, func(*jwt.Token) (any, error) {
			return &key.PublicKey, nil
		}, jwt.WithValidMethods([]string{"RS256"}))
		assert.NoError(t, err)
		assert.Equal(t, account.ClientEmail, claims["iss"])
		assert.Equal(t, cloudPlatformScope, claims["scope"])

		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "ya29.token", "expires_in": 3600})
	}))
	defer tokenServer.Close()

	ttsServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/text:synthesize", r.URL.Path)
		assert.Equal(t, "Bearer ya29.token", r.Header.Get("Authorization"))
		assert.Equal(t, "bedtime-prod", r.Header.Get("X-Goog-User-Project"))

		var body synthesizeRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Goodnight, little one", body.Input.Text)
		assert.Equal(t, "en-US-Neural2-C", body.Voice.Name)
		assert.Equal(t, "MP3", body.AudioConfig.AudioEncoding)
		assert.InDelta(t, -2.0, body.AudioConfig.Pitch, 1e-9)

		_ = json.NewEncoder(w).Encode(map[string]string{
			"audioContent": base64.StdEncoding.EncodeToString([]byte("ID3-mp3")),
		})
	}))
	defer ttsServer.Close()

	backend, err := NewGoogleBackend(account, "", tokenServer.URL, ttsServer.URL)
	require.NoError(t, err)

	params := Params{Text: "Goodnight, little one", LanguageCode: "en-US", Voice: VoiceEnglish, SpeakingRate: 0.95, Pitch: DefaultPitch}
	for i := 0; i < 2; i++ {
		audio, err := backend.Synthesize(context.Background(), params)
		require.NoError(t, err)
		assert.Equal(t, []byte("ID3-mp3"), audio)
	}
	assert.Equal(t, int32(1), tokenCalls.Load())

	// Expired tokens are exchanged again
	backend.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = backend.Synthesize(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, int32(2), tokenCalls.Load())
}

func TestGoogleBackend_TokenFailure(t *testing.T) {
	account, _ := testAccount(t)
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer tokenServer.Close()

	backend, err := NewGoogleBackend(account, "", tokenServer.URL, "http://127.0.0.1:1")
	require.NoError(t, err)

	_, err = backend.Synthesize(context.Background(), Params{Text: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OAuth token error")
}

func TestNewGoogleBackend_BadKey(t *testing.T) {
	_, err := NewGoogleBackend(&ServiceAccount{ClientEmail: "a", PrivateKey: NormalizePEM("garbage")}, "", "", "")
	require.Error(t, err)
}
