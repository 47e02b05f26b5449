package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	sharedauth "jobfit-backend/internal/shared/auth"
	"jobfit-backend/internal/shared/server/middleware"
	"jobfit-backend/internal/shared/server/respond"
	"jobfit-backend/internal/shared/telemetry"
	"jobfit-backend/internal/users"
)

// stateCookie carries "<state>.<pkce verifier>" between start and callback,
// so any instance can finish a login another instance began.
const stateCookie = "google_oauth_state"

var userInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

var errUnverifiedEmail = errors.New("google account has no verified email")

// GoogleConfig holds the OAuth client settings.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	UIRedirect   string
}

// GoogleService signs users in with Google and issues a session.
type GoogleService struct {
	oauthConfig *oauth2.Config
	uiRedirect  string
	stateTTL    time.Duration
	users       *users.Service
	signer      *sharedauth.Signer
}

func NewGoogleService(cfg GoogleConfig, usersSvc *users.Service, signer *sharedauth.Signer) *GoogleService {
	return &GoogleService{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		uiRedirect: cfg.UIRedirect,
		stateTTL:   10 * time.Minute,
		users:      usersSvc,
		signer:     signer,
	}
}

func (s *GoogleService) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/google/start", s.start)
	rg.GET("/google/callback", s.callback)
}

func (s *GoogleService) configured() bool {
	return s.oauthConfig.ClientID != "" && s.oauthConfig.ClientSecret != "" && s.oauthConfig.RedirectURL != ""
}

func (s *GoogleService) start(c *gin.Context) {
	if !s.configured() {
		respond.Error(c, http.StatusInternalServerError, "auth_not_configured", "Google auth not configured", nil)
		return
	}

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	middleware.SetCookie(c, stateCookie, state+"."+verifier, s.stateTTL)

	c.Redirect(http.StatusFound, s.oauthConfig.AuthCodeURL(state,
		oauth2.AccessTypeOnline,
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	))
}

func (s *GoogleService) callback(c *gin.Context) {
	if errParam := c.Query("error"); errParam != "" {
		respond.Error(c, http.StatusBadRequest, "auth_denied", "Google sign-in was cancelled", gin.H{"reason": errParam})
		return
	}
	state, code := c.Query("state"), c.Query("code")
	if state == "" || code == "" {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "missing state or code", nil)
		return
	}

	verifier, ok := s.takeVerifier(c, state)
	if !ok {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "invalid or expired state", nil)
		return
	}

	ctx := c.Request.Context()
	token, err := s.oauthConfig.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		telemetry.Warn("auth.google_exchange_failed", map[string]any{"error": err})
		respond.Error(c, http.StatusBadRequest, "invalid_request", "failed to exchange code", nil)
		return
	}

	info, err := s.fetchProfile(ctx, token)
	if err != nil {
		telemetry.Warn("auth.google_userinfo_failed", map[string]any{"error": err})
		msg := "failed to fetch user profile"
		if errors.Is(err, errUnverifiedEmail) {
			msg = "Google account has no verified email"
		}
		respond.Error(c, http.StatusBadGateway, "auth_failed", msg, nil)
		return
	}

	user, err := s.users.UpsertFromOAuth(ctx, info.Email, info.Name, info.Picture)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to sign in", nil)
		return
	}
	if user.Status == users.StatusRejected {
		respond.Error(c, http.StatusForbidden, "account_rejected", "Your account has been rejected", nil)
		return
	}

	session, err := s.signer.Sign(user.ID, sharedauth.RoleUser, user.Email, user.Name)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to issue token", nil)
		return
	}
	target, err := appendToken(s.uiRedirect, session)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to redirect", nil)
		return
	}

	middleware.SetCookie(c, middleware.SessionCookie, session, s.signer.TTL())
	telemetry.Info("auth.google_login", map[string]any{"user_id": user.ID, "status": string(user.Status)})
	c.Redirect(http.StatusFound, target)
}

// takeVerifier checks state against the cookie set by start and clears it.
func (s *GoogleService) takeVerifier(c *gin.Context, state string) (string, bool) {
	raw, err := c.Cookie(stateCookie)
	middleware.ClearCookie(c, stateCookie)
	if err != nil {
		return "", false
	}
	want, verifier, found := strings.Cut(raw, ".")
	if !found || verifier == "" {
		return "", false
	}
	if subtle.ConstantTimeCompare([]byte(want), []byte(state)) != 1 {
		return "", false
	}
	return verifier, true
}

type googleProfile struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (s *GoogleService) fetchProfile(ctx context.Context, token *oauth2.Token) (googleProfile, error) {
	resp, err := s.oauthConfig.Client(ctx, token).Get(userInfoURL)
	if err != nil {
		return googleProfile{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return googleProfile{}, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var p googleProfile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return googleProfile{}, fmt.Errorf("decode userinfo: %w", err)
	}
	if strings.TrimSpace(p.Email) == "" || !p.VerifiedEmail {
		return googleProfile{}, errUnverifiedEmail
	}
	return p, nil
}

func appendToken(rawURL, token string) (string, error) {
	if rawURL == "" {
		return "", errors.New("redirect url required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
