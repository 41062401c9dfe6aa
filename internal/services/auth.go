package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bsrBe/Vent/internal/apperrors"
	"github.com/bsrBe/Vent/internal/audit"
	"github.com/bsrBe/Vent/internal/metrics"
	"github.com/bsrBe/Vent/internal/models"
	"github.com/bsrBe/Vent/internal/repository"
	"github.com/bsrBe/Vent/pkg/utils"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuthStore is the persistence the auth flows need.
type AuthStore interface {
	repository.UserStore
	repository.TokenStore
	repository.TxRunner
}

type AuthConfig struct {
	ResetTokenTTL time.Duration
	FrontendURL   string
}

// AuthService owns credentials, the refresh-token ledger and password resets.
type AuthService struct {
	store  AuthStore
	issuer *TokenIssuer
	mailer Mailer
	audit  audit.Recorder
	log    logrus.FieldLogger
	cfg    AuthConfig
	now    func() time.Time
}

func NewAuthService(store AuthStore, issuer *TokenIssuer, mailer Mailer, recorder audit.Recorder, log logrus.FieldLogger, cfg AuthConfig) *AuthService {
	return &AuthService{
		store:  store,
		issuer: issuer,
		mailer: mailer,
		audit:  recorder,
		log:    log,
		cfg:    cfg,
		now:    time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

type RegisterInput struct {
	Name     string `json:"name" validate:"notblank,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// Register creates the user and opens a session.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, TokenPair, error) {
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, TokenPair{}, apperrors.Internal(err)
	}

	user := &models.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: hash,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, TokenPair{}, apperrors.ErrDuplicateEmail
		}
		return nil, TokenPair{}, fmt.Errorf("create user: %w", err)
	}

	pair, err := s.issueSession(ctx, user.ID)
	if err != nil {
		return nil, TokenPair{}, err
	}

	s.audit.Record(ctx, user.ID.Hex(), audit.EventRegister)
	s.log.WithField("user_id", user.ID.Hex()).Info("user registered")
	return user, pair, nil
}

// Login verifies the credentials. Unknown email and wrong password fail identically.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, TokenPair, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, TokenPair{}, fmt.Errorf("find user: %w", err)
	}

	ok := false
	if user != nil {
		ok, err = utils.VerifyPassword(password, user.PasswordHash)
		if err != nil {
			s.log.WithError(err).WithField("user_id", user.ID.Hex()).Warn("stored password hash is unreadable")
		}
	}
	if !ok {
		metrics.RecordAuthEvent(audit.EventLogin, false)
		uid := ""
		if user != nil {
			uid = user.ID.Hex()
		}
		s.audit.Record(ctx, uid, audit.EventLoginFailed)
		return nil, TokenPair{}, apperrors.ErrInvalidCredentials
	}

	pair, err := s.issueSession(ctx, user.ID)
	if err != nil {
		return nil, TokenPair{}, err
	}

	metrics.RecordAuthEvent(audit.EventLogin, true)
	s.audit.Record(ctx, user.ID.Hex(), audit.EventLogin)
	return user, pair, nil
}

// Refresh exchanges a refresh token for a new pair. Tokens are single use: the presented row
// is deleted on every outcome except an infrastructure error.
func (s *AuthService) Refresh(ctx context.Context, token string) (TokenPair, error) {
	pair, err := s.refresh(ctx, token)
	metrics.RecordAuthEvent(audit.EventRefresh, err == nil)
	return pair, err
}

func (s *AuthService) refresh(ctx context.Context, token string) (TokenPair, error) {
	if strings.TrimSpace(token) == "" {
		return TokenPair{}, apperrors.Validation("Refresh token is required")
	}

	row, err := s.store.GetRefreshToken(ctx, token)
	if errors.Is(err, repository.ErrNotFound) {
		return TokenPair{}, apperrors.ErrInvalidOrExpiredToken
	}
	if err != nil {
		return TokenPair{}, fmt.Errorf("find refresh token: %w", err)
	}

	if row.Expired(s.now()) {
		s.discard(ctx, token)
		return TokenPair{}, apperrors.ErrInvalidOrExpiredToken
	}

	claims, err := s.issuer.Verify(token, RefreshTokenType)
	if err != nil || claims.Subject != row.User.Hex() {
		s.discard(ctx, token)
		return TokenPair{}, apperrors.ErrInvalidOrExpiredToken.Wrap(err)
	}

	if _, err := s.store.GetUserByID(ctx, row.User); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.discard(ctx, token)
			return TokenPair{}, apperrors.ErrUserGone
		}
		return TokenPair{}, fmt.Errorf("find token owner: %w", err)
	}

	pair, err := s.issuer.Mint(row.User.Hex())
	if err != nil {
		return TokenPair{}, apperrors.Internal(err)
	}

	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		removed, err := s.store.DeleteRefreshToken(ctx, token)
		if err != nil {
			return err
		}
		if !removed {
			// consumed by a concurrent refresh
			return apperrors.ErrInvalidOrExpiredToken
		}
		return s.store.SaveRefreshToken(ctx, &models.RefreshToken{
			Token:     pair.RefreshToken,
			User:      row.User,
			ExpiresAt: pair.RefreshExpiresAt,
			CreatedAt: s.now().UTC(),
		})
	})
	if err != nil {
		return TokenPair{}, err
	}

	s.audit.Record(ctx, row.User.Hex(), audit.EventRefresh)
	return pair, nil
}

// discard removes an unusable ledger row. Failures are logged; the caller's error wins.
func (s *AuthService) discard(ctx context.Context, token string) {
	if _, err := s.store.DeleteRefreshToken(ctx, token); err != nil {
		s.log.WithError(err).Warn("failed to delete invalid refresh token")
	}
}

// Logout revokes one refresh token. Unknown tokens are not an error.
func (s *AuthService) Logout(ctx context.Context, userID primitive.ObjectID, token string) error {
	if token == "" {
		return nil
	}
	row, err := s.store.GetRefreshToken(ctx, token)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get refresh token: %w", err)
	}
	// another user's token is left alone; the caller still gets a success
	if row.User != userID {
		return nil
	}
	if _, err := s.store.DeleteRefreshToken(ctx, token); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	metrics.RecordAuthEvent(audit.EventLogout, true)
	s.audit.Record(ctx, userID.Hex(), audit.EventLogout)
	return nil
}

// ForgotPassword emails a reset link. The outcome is indistinguishable for unknown emails.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}

	token, err := utils.RandomToken(32)
	if err != nil {
		return apperrors.Internal(err)
	}
	expires := s.now().Add(s.cfg.ResetTokenTTL).UTC()
	if err := s.store.SetResetToken(ctx, user.ID, utils.HashToken(token), expires); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	resetURL := strings.TrimRight(s.cfg.FrontendURL, "/") + "/reset-password/" + token
	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.Name, resetURL); err != nil {
		if clearErr := s.store.ClearResetToken(ctx, user.ID); clearErr != nil {
			s.log.WithError(clearErr).WithField("user_id", user.ID.Hex()).Error("failed to roll back reset token")
		}
		s.log.WithError(err).WithField("user_id", user.ID.Hex()).Error("password reset email failed")
		return apperrors.ErrEmailDeliveryFailed.Wrap(err)
	}

	s.audit.Record(ctx, user.ID.Hex(), audit.EventPasswordForgot)
	return nil
}

// ResetPassword consumes a reset token, revokes every session and opens a new one.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) (*models.User, TokenPair, error) {
	user, err := s.store.GetUserByResetToken(ctx, utils.HashToken(token), s.now())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, TokenPair{}, apperrors.ErrInvalidOrExpiredResetToken
	}
	if err != nil {
		return nil, TokenPair{}, fmt.Errorf("find reset token: %w", err)
	}

	pair, err := s.replacePassword(ctx, user, newPassword)
	if err != nil {
		return nil, TokenPair{}, err
	}

	metrics.RecordAuthEvent(audit.EventPasswordReset, true)
	s.audit.Record(ctx, user.ID.Hex(), audit.EventPasswordReset)
	return user, pair, nil
}

// ChangePassword requires the current password, then behaves like a reset.
func (s *AuthService) ChangePassword(ctx context.Context, userID primitive.ObjectID, current, next string) (TokenPair, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return TokenPair{}, apperrors.ErrUserGone
	}
	if err != nil {
		return TokenPair{}, fmt.Errorf("find user: %w", err)
	}

	ok, err := utils.VerifyPassword(current, user.PasswordHash)
	if err != nil || !ok {
		return TokenPair{}, apperrors.New(apperrors.KindAuthentication, apperrors.CodeInvalidCredentials, "Your current password is wrong")
	}

	pair, err := s.replacePassword(ctx, user, next)
	if err != nil {
		return TokenPair{}, err
	}

	metrics.RecordAuthEvent(audit.EventPasswordChange, true)
	s.audit.Record(ctx, user.ID.Hex(), audit.EventPasswordChange)
	return pair, nil
}

func (s *AuthService) replacePassword(ctx context.Context, user *models.User, password string) (TokenPair, error) {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return TokenPair{}, apperrors.Internal(err)
	}

	changedAt := s.now().UTC()
	if err := s.store.SetPassword(ctx, user.ID, hash, changedAt); err != nil {
		return TokenPair{}, fmt.Errorf("set password: %w", err)
	}
	user.PasswordHash = hash
	user.PasswordChangedAt = &changedAt
	user.PasswordResetToken = ""
	user.PasswordResetExpires = nil

	revoked, err := s.store.DeleteUserRefreshTokens(ctx, user.ID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("revoke sessions: %w", err)
	}
	s.log.WithFields(logrus.Fields{"user_id": user.ID.Hex(), "revoked": revoked}).Info("password replaced, sessions revoked")

	return s.issueSession(ctx, user.ID)
}

// issueSession mints a pair and records the refresh token in the ledger.
func (s *AuthService) issueSession(ctx context.Context, userID primitive.ObjectID) (TokenPair, error) {
	pair, err := s.issuer.Mint(userID.Hex())
	if err != nil {
		return TokenPair{}, apperrors.Internal(err)
	}
	err = s.store.SaveRefreshToken(ctx, &models.RefreshToken{
		Token:     pair.RefreshToken,
		User:      userID,
		ExpiresAt: pair.RefreshExpiresAt,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return TokenPair{}, fmt.Errorf("save refresh token: %w", err)
	}
	return pair, nil
}

// Authenticate resolves the user behind an access token. Nothing is cached between calls.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, apperrors.ErrUnauthenticated
	}

	claims, err := s.issuer.Verify(accessToken, AccessTokenType)
	switch {
	case errors.Is(err, ErrTokenExpired):
		return nil, apperrors.ErrExpired
	case errors.Is(err, ErrTokenWrongType):
		return nil, apperrors.ErrWrongTokenType
	case err != nil:
		return nil, apperrors.ErrInvalidToken.Wrap(err)
	}

	userID, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return nil, apperrors.ErrInvalidToken.Wrap(err)
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ErrUserGone
	}
	if err != nil {
		return nil, fmt.Errorf("resolve token owner: %w", err)
	}

	if claims.IssuedAt != nil && user.ChangedPasswordAfter(claims.IssuedAt.Time) {
		return nil, apperrors.New(apperrors.KindAuthentication, apperrors.CodeInvalidToken, "User recently changed password. Please log in again")
	}
	return user, nil
}
