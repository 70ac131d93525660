package speech

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/Egham-7/bedtime-stories/internal/services"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultTokenURL     = "https://oauth2.googleapis.com/token"
	DefaultGoogleTTSURL = "https://texttospeech.googleapis.com"

	cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"
	jwtBearerGrant     = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	assertionLifetime  = time.Hour
	tokenRefreshMargin = time.Minute
)

// GoogleBackend calls Cloud Text-to-Speech over REST with a service-account token
type GoogleBackend struct {
	account   *ServiceAccount
	key       *rsa.PrivateKey
	projectID string
	tokenURL  string
	client    *services.Client
	now       func() time.Time

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type synthesizeRequest struct {
	Input       synthesisInput `json:"input"`
	Voice       voiceSelection `json:"voice"`
	AudioConfig audioConfig    `json:"audioConfig"`
}

type synthesisInput struct {
	Text string `json:"text"`
}

type voiceSelection struct {
	LanguageCode string `json:"languageCode"`
	Name         string `json:"name,omitempty"`
}

type audioConfig struct {
	AudioEncoding string  `json:"audioEncoding"`
	SpeakingRate  float64 `json:"speakingRate"`
	Pitch         float64 `json:"pitch"`
}

type synthesizeResponse struct {
	AudioContent string `json:"audioContent"`
}

// NewGoogleBackend parses the account key; tokenURL and baseURL may be empty for the public endpoints
func NewGoogleBackend(account *ServiceAccount, projectID, tokenURL, baseURL string) (*GoogleBackend, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(account.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("invalid service account private key: %w", err)
	}

	if tokenURL == "" {
		tokenURL = account.TokenURI
	}
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	if baseURL == "" {
		baseURL = DefaultGoogleTTSURL
	}
	if projectID == "" {
		projectID = account.ProjectID
	}

	return &GoogleBackend{
		account:   account,
		key:       key,
		projectID: projectID,
		tokenURL:  tokenURL,
		client:    services.NewClient(baseURL),
		now:       time.Now,
	}, nil
}

func (g *GoogleBackend) Name() string { return "google" }

// token returns a cached access token, exchanging a fresh assertion when it is close to expiry
func (g *GoogleBackend) token(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if g.accessToken != "" && now.Before(g.expiresAt.Add(-tokenRefreshMargin)) {
		return g.accessToken, nil
	}

	assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":   g.account.ClientEmail,
		"scope": cloudPlatformScope,
		"aud":   g.tokenURL,
		"iat":   now.Unix(),
		"exp":   now.Add(assertionLifetime).Unix(),
	}).SignedString(g.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token assertion: %w", err)
	}

	var resp tokenResponse
	form := url.Values{"grant_type": {jwtBearerGrant}, "assertion": {assertion}}
	if err := g.client.PostForm(ctx, g.tokenURL, form, &resp, nil); err != nil {
		return "", fmt.Errorf("OAuth token error: %w", err)
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("OAuth token response had no access_token")
	}

	lifetime := time.Duration(resp.ExpiresIn) * time.Second
	if lifetime <= 0 {
		lifetime = assertionLifetime
	}
	g.accessToken = resp.AccessToken
	g.expiresAt = now.Add(lifetime)
	fiberlog.Debugf("Obtained Google access token for %s, valid for %v", g.account.ClientEmail, lifetime)

	return g.accessToken, nil
}

func (g *GoogleBackend) Synthesize(ctx context.Context, params Params) ([]byte, error) {
	accessToken, err := g.token(ctx)
	if err != nil {
		return nil, err
	}

	headers := map[string]string{"Authorization": "Bearer " + accessToken}
	if g.projectID != "" {
		headers["X-Goog-User-Project"] = g.projectID
	}

	var resp synthesizeResponse
	err = g.client.PostJSON(ctx, "/v1/text:synthesize", synthesizeRequest{
		Input: synthesisInput{Text: params.Text},
		Voice: voiceSelection{LanguageCode: params.LanguageCode, Name: params.Voice},
		AudioConfig: audioConfig{
			AudioEncoding: "MP3",
			SpeakingRate:  params.SpeakingRate,
			Pitch:         params.Pitch,
		},
	}, &resp, &services.RequestOptions{Headers: headers, Retries: 1})
	if err != nil {
		return nil, fmt.Errorf("TTS error: %w", err)
	}

	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("TTS returned invalid audio content: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("TTS returned no audio content")
	}
	return audio, nil
}
