package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"adsboard/internal/config"
	"adsboard/internal/model"
	"adsboard/internal/repository"
)

var (
	// ErrInvalidAccessToken is returned for unparsable or badly signed access tokens.
	ErrInvalidAccessToken = errors.New("invalid access token")
	// ErrAccessTokenExpired is returned for well-formed tokens past their exp claim.
	ErrAccessTokenExpired = errors.New("access token expired")
)

// AuthService issues access tokens and rotates refresh tokens with reuse detection.
type AuthService struct {
	refreshTokenRepo repository.RefreshTokenRepository
	cfg              config.AuthConfig
	log              *zap.Logger
	now              func() time.Time
}

func NewAuthService(refreshTokenRepo repository.RefreshTokenRepository, cfg config.AuthConfig, log *zap.Logger) *AuthService {
	return &AuthService{
		refreshTokenRepo: refreshTokenRepo,
		cfg:              cfg,
		log:              log.Named("auth"),
		now:              time.Now,
	}
}

// GenerateTokenPair opens a new session for userID.
func (s *AuthService) GenerateTokenPair(ctx context.Context, userID int64, userAgent, clientIP string) (*model.TokenPair, error) {
	pair, token, err := s.issue(userID, userAgent, clientIP)
	if err != nil {
		return nil, err
	}
	if err := s.refreshTokenRepo.Create(ctx, token); err != nil {
		return nil, err
	}
	return pair, nil
}

// RefreshTokens exchanges a refresh token for a new pair. Presenting a
// revoked token ends every session of its user.
func (s *AuthService) RefreshTokens(ctx context.Context, refreshTokenRaw, userAgent, clientIP string) (*model.TokenPair, int64, error) {
	current, err := s.refreshTokenRepo.FindByTokenHash(ctx, hashToken(refreshTokenRaw))
	if err != nil {
		if errors.Is(err, model.ErrRefreshTokenNotFound) {
			return nil, 0, err
		}
		return nil, 0, fmt.Errorf("failed to load refresh token: %w", err)
	}

	if err := current.CheckUsable(s.now()); err != nil {
		if errors.Is(err, model.ErrRefreshTokenReused) {
			s.revokeFamily(ctx, current)
		}
		return nil, 0, err
	}

	pair, next, err := s.issue(current.UserID, userAgent, clientIP)
	if err != nil {
		return nil, 0, err
	}
	if err := s.refreshTokenRepo.Rotate(ctx, current.ID, next); err != nil {
		if errors.Is(err, model.ErrRefreshTokenReused) {
			s.revokeFamily(ctx, current)
		}
		return nil, 0, err
	}
	return pair, current.UserID, nil
}

// RevokeRefreshToken ends the session behind refreshTokenRaw.
func (s *AuthService) RevokeRefreshToken(ctx context.Context, refreshTokenRaw string) error {
	token, err := s.refreshTokenRepo.FindByTokenHash(ctx, hashToken(refreshTokenRaw))
	if err != nil {
		return err
	}
	return s.refreshTokenRepo.Revoke(ctx, token.ID)
}

// RevokeAllUserTokens ends every session of userID.
func (s *AuthService) RevokeAllUserTokens(ctx context.Context, userID int64) error {
	n, err := s.refreshTokenRepo.RevokeAllForUser(ctx, userID)
	if err != nil {
		return err
	}
	s.log.Info("sessions revoked", zap.Int64("user_id", userID), zap.Int64("sessions", n))
	return nil
}

// PruneSessions deletes refresh tokens dead for longer than the retention window.
func (s *AuthService) PruneSessions(ctx context.Context) (int64, error) {
	return s.refreshTokenRepo.Prune(ctx, s.now().Add(-s.cfg.RefreshTokenRetention))
}

func (s *AuthService) revokeFamily(ctx context.Context, token *model.RefreshToken) {
	n, err := s.refreshTokenRepo.RevokeAllForUser(context.WithoutCancel(ctx), token.UserID)
	if err != nil {
		s.log.Error("failed to revoke sessions after token reuse", zap.Int64("user_id", token.UserID), zap.Error(err))
		return
	}
	s.log.Warn("refresh token reuse detected",
		zap.Int64("user_id", token.UserID),
		zap.String("token_id", token.ID),
		zap.Int64("sessions_revoked", n))
}

func (s *AuthService) issue(userID int64, userAgent, clientIP string) (*model.TokenPair, *model.RefreshToken, error) {
	accessToken, err := s.generateAccessToken(userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	raw := uuid.NewString()
	token := &model.RefreshToken{
		UserID:    userID,
		TokenHash: hashToken(raw),
		ExpiresAt: s.now().Add(time.Duration(s.cfg.RefreshTokenMaxAge) * time.Second),
		UserAgent: optional(userAgent),
		ClientIP:  optional(clientIP),
	}
	return &model.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: raw,
		ExpiresIn:    s.cfg.AccessTokenMaxAge,
	}, token, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ParseAccessToken verifies an HS256 access token and returns its user id.
func (s *AuthService) ParseAccessToken(tokenString string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if errors.Is(err, jwt.ErrTokenExpired) {
		return 0, ErrAccessTokenExpired
	}
	if err != nil || !token.Valid {
		return 0, ErrInvalidAccessToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrInvalidAccessToken
	}
	// JSON numbers decode as float64
	userID, ok := claims["user_id"].(float64)
	if !ok {
		return 0, ErrInvalidAccessToken
	}
	return int64(userID), nil
}

func (s *AuthService) generateAccessToken(userID int64) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     now.Add(time.Duration(s.cfg.AccessTokenMaxAge) * time.Second).Unix(),
		"iat":     now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
