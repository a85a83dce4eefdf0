package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/avvvet/arenax-services/internal/arenasvc/models"
	"github.com/avvvet/arenax-services/internal/arenasvc/store"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// TokenTTL is how long an admin token stays valid.
const TokenTTL = 7 * 24 * time.Hour

const minPasswordLen = 6

type AuthService struct {
	admins    store.AdminStore
	tokenAuth *jwtauth.JWTAuth
	now       func() time.Time
}

func NewAuthService(admins store.AdminStore, tokenAuth *jwtauth.JWTAuth) *AuthService {
	return &AuthService{admins: admins, tokenAuth: tokenAuth, now: time.Now}
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type Session struct {
	Token string        `json:"token"`
	Admin *models.Admin `json:"admin"`
}

// RegistrationOpen reports whether an admin may be created without a token.
func (s *AuthService) RegistrationOpen(ctx context.Context) (bool, error) {
	n, err := s.admins.Count(ctx)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// Register creates an admin. Once one exists, only an authenticated admin may add more.
func (s *AuthService) Register(ctx context.Context, c Credentials, authenticated bool) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(c.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, validationf("a valid email is required")
	}
	if len(c.Password) < minPasswordLen {
		return nil, validationf("password must be at least %d characters", minPasswordLen)
	}

	if !authenticated {
		open, err := s.RegistrationOpen(ctx)
		if err != nil {
			return nil, err
		}
		if !open {
			return nil, authf("registration is closed")
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(c.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	a := &models.Admin{
		ID:           primitive.NewObjectID(),
		Email:        email,
		Name:         strings.TrimSpace(c.Name),
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	}
	err = s.admins.Create(ctx, a)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, conflictf("Admin already exists")
	}
	if err != nil {
		return nil, err
	}

	log.Infof("admin %s registered", a.Email)
	return s.session(a)
}

func (s *AuthService) Login(ctx context.Context, c Credentials) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(c.Email))

	a, err := s.admins.GetByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, authf("Invalid credentials")
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(c.Password)); err != nil {
		log.Infof("failed login for %s", email)
		return nil, authf("Invalid credentials")
	}

	return s.session(a)
}

func (s *AuthService) session(a *models.Admin) (*Session, error) {
	token, err := s.IssueToken(a)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, Admin: a}, nil
}

// IssueToken signs an HS256 token carrying the admin id and email.
func (s *AuthService) IssueToken(a *models.Admin) (string, error) {
	claims := map[string]interface{}{
		"id":    a.ID.Hex(),
		"email": a.Email,
	}
	jwtauth.SetIssuedAt(claims, s.now())
	jwtauth.SetExpiry(claims, s.now().Add(TokenTTL))

	_, token, err := s.tokenAuth.Encode(claims)
	if err != nil {
		return "", err
	}
	return token, nil
}
