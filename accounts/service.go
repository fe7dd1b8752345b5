// Package accounts handles sign-up, sign-in and account management.
package accounts

import (
	"context"
	"errors"
	"strings"

	"github.com/game-store-project/game-store/apperr"
	"github.com/game-store-project/game-store/models"
	"github.com/game-store-project/game-store/monitoring"
	"github.com/game-store-project/game-store/utils"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 10

var (
	errUsernameInUse      = apperr.Conflict("Username in use")
	errEmailInUse         = apperr.Conflict("Email in use")
	errInvalidCredentials = apperr.New(apperr.ErrUnauthorized, "Invalid credentials")
	errWrongPassword      = apperr.New(apperr.ErrUnauthorized, "Password is wrong")
	errPasswordRequired   = apperr.New(apperr.ErrInvalid, "Password is required")
	errNotAllowed         = apperr.New(apperr.ErrForbidden, "Not allowed")
	errAdminDelete        = apperr.New(apperr.ErrForbidden, "Admin's can't delete your account")
)

type TokenIssuer interface {
	Issue(userID uuid.UUID) (string, error)
}

// FeedInvalidator drops cached ranking feeds. Deleting an account removes
// its purchases, which the feeds count.
type FeedInvalidator interface {
	InvalidateFeeds(ctx context.Context)
}

type Service struct {
	store  Store
	tokens TokenIssuer
	feeds  FeedInvalidator
}

type Option func(*Service)

func WithFeedInvalidator(f FeedInvalidator) Option {
	return func(s *Service) { s.feeds = f }
}

func NewService(store Store, tokens TokenIssuer, opts ...Option) *Service {
	s := &Service{store: store, tokens: tokens}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignUp creates a regular account.
func (s *Service) SignUp(ctx context.Context, in models.SignUpInput) (models.User, error) {
	if err := s.ensureFree(ctx, in.Username, in.Email, uuid.Nil); err != nil {
		return models.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return models.User{}, apperr.Internal(err)
	}

	user := models.User{
		Username: in.Username,
		Email:    strings.ToLower(in.Email),
		Password: string(hash),
	}
	if err := s.store.Create(ctx, &user); err != nil {
		return models.User{}, err
	}
	utils.Log.WithField("user_id", user.ID).Info("Account created")
	return user, nil
}

// SignIn checks the credentials and returns a bearer token.
func (s *Service) SignIn(ctx context.Context, in models.SignInInput) (string, models.User, error) {
	user, err := s.store.FindByEmail(ctx, in.Email)
	if errors.Is(err, apperr.ErrNotFound) {
		monitoring.AuthenticationAttempts.WithLabelValues("failure").Inc()
		return "", models.User{}, errInvalidCredentials
	}
	if err != nil {
		return "", models.User{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)) != nil {
		monitoring.AuthenticationAttempts.WithLabelValues("failure").Inc()
		utils.LogWarn("Failed sign in", map[string]interface{}{"user_id": user.ID})
		return "", models.User{}, errInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", models.User{}, err
	}
	monitoring.AuthenticationAttempts.WithLabelValues("success").Inc()
	return token, user, nil
}

func (s *Service) FindByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	return s.store.FindByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]models.User, error) {
	return s.store.List(ctx)
}

// SetAdmin grants or revokes admin rights. Admins cannot change their own.
func (s *Service) SetAdmin(ctx context.Context, actorID, targetID uuid.UUID, isAdmin bool) (models.User, error) {
	if actorID == targetID {
		return models.User{}, errNotAllowed
	}
	if err := s.store.Update(ctx, targetID, map[string]interface{}{"is_admin": isAdmin}); err != nil {
		return models.User{}, err
	}
	utils.LogInfo("Admin rights changed", map[string]interface{}{
		"actor_id":  actorID,
		"target_id": targetID,
		"is_admin":  isAdmin,
	})
	return s.store.FindByID(ctx, targetID)
}

// UpdateAccount edits the signed-in user's own account.
func (s *Service) UpdateAccount(ctx context.Context, id uuid.UUID, in models.UpdateAccountInput) (models.User, error) {
	user, err := s.store.FindByID(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	if err := s.ensureFree(ctx, in.Username, in.Email, id); err != nil {
		return models.User{}, err
	}

	if (in.Email != "" || in.NewPassword != "") && in.Password == "" {
		return models.User{}, errPasswordRequired
	}
	if in.Password != "" {
		if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)) != nil {
			return models.User{}, errWrongPassword
		}
	}

	fields := map[string]interface{}{}
	if in.Username != "" {
		fields["username"] = in.Username
	}
	if in.Email != "" {
		fields["email"] = strings.ToLower(in.Email)
	}
	if in.NewPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcryptCost)
		if err != nil {
			return models.User{}, apperr.Internal(err)
		}
		fields["password"] = string(hash)
	}
	if len(fields) == 0 {
		return user, nil
	}

	if err := s.store.Update(ctx, id, fields); err != nil {
		return models.User{}, err
	}
	return s.store.FindByID(ctx, id)
}

// DeleteAccount removes a non-admin account after checking its password.
func (s *Service) DeleteAccount(ctx context.Context, id uuid.UUID, password string) error {
	user, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if user.IsAdmin {
		return errAdminDelete
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return errWrongPassword
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	if s.feeds != nil {
		s.feeds.InvalidateFeeds(ctx)
	}
	utils.Log.WithField("user_id", id).Info("Account deleted")
	return nil
}

func (s *Service) ensureFree(ctx context.Context, username, email string, except uuid.UUID) error {
	if username != "" {
		taken, err := s.store.UsernameTaken(ctx, username, except)
		if err != nil {
			return err
		}
		if taken {
			return errUsernameInUse
		}
	}
	if email != "" {
		taken, err := s.store.EmailTaken(ctx, email, except)
		if err != nil {
			return err
		}
		if taken {
			return errEmailInUse
		}
	}
	return nil
}
