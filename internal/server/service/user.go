package service

import (
	"net/http"
	"time"

	"github.com/lifemoments/lifemoments/internal/database"
	"github.com/lifemoments/lifemoments/internal/lmerror"
	"github.com/lifemoments/lifemoments/internal/model"
	"github.com/lifemoments/lifemoments/internal/server/session"
	argon2 "github.com/mdouchement/simple-argon2"
	"github.com/pkg/errors"
)

type (
	// A UserService handles registration and sign-in.
	UserService interface {
		Register(params RegisterParams) (Render, error)
		Login(params LoginParams) (Render, error)
	}

	// RegisterParams are used to register a user.
	RegisterParams struct {
		Params
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	// LoginParams are used to login a user.
	LoginParams struct {
		Params
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	userService struct {
		db       database.Client
		sessions session.Manager
	}
)

// NewUser returns a new UserService.
func NewUser(db database.Client, sessions session.Manager) UserService {
	return &userService{
		db:       db,
		sessions: sessions,
	}
}

// Register creates the account and signs it in.
func (s *userService) Register(params RegisterParams) (Render, error) {
	// Check if the email is free to use.
	u, err := s.db.FindUserByMail(params.Email)
	if err != nil && !s.db.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not get access to database")
	}
	if u != nil {
		return nil, lmerror.NewWithTagCode(http.StatusUnauthorized, "", "This email is already registered.")
	}

	user := model.NewUser(params.Email)
	user.Password, err = argon2.GenerateFromPasswordString(params.Password, argon2.Default)
	if err != nil {
		return nil, errors.Wrap(err, "could not store user password safe")
	}
	user.PasswordUpdatedAt = time.Now().Unix()

	if err = s.db.Save(user); err != nil {
		return nil, errors.Wrap(err, "could not persist user")
	}

	return s.signIn(user, params.Params)
}

// Login authenticates a user and opens a session.
func (s *userService) Login(params LoginParams) (Render, error) {
	user, err := s.db.FindUserByMail(params.Email)
	if err != nil {
		if s.db.IsNotFound(err) {
			return nil, lmerror.Unauthorized("Invalid email or password.")
		}
		return nil, errors.Wrap(err, "could not get access to database")
	}

	err = argon2.CompareHashAndPasswordString(user.Password, params.Password)
	if err != nil {
		if err == argon2.ErrMismatchedHashAndPassword {
			return nil, lmerror.Unauthorized("Invalid email or password.")
		}
		return nil, errors.Wrap(err, "could not validate password")
	}

	return s.signIn(user, params.Params)
}

func (s *userService) signIn(user *model.User, params Params) (Render, error) {
	session := s.sessions.Generate()
	session.UserID = user.ID
	session.UserAgent = params.UserAgent

	if err := s.db.Save(session); err != nil {
		return nil, errors.Wrap(err, "could not persist session")
	}

	return M{
		"user": M{
			"id":    user.ID,
			"email": user.Email,
		},
		"session": M{
			"access_token":       session.AccessToken,
			"refresh_token":      session.RefreshToken,
			"access_expiration":  s.sessions.AccessTokenExpireAt(session).UTC(),
			"refresh_expiration": session.ExpireAt.UTC(),
		},
	}, nil
}
