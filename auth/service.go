// Package auth is the authentication provider: account registration,
// password sign-in, bearer tokens and sign-out revocation.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"homecook-api/models"
	"homecook-api/observable"
	"homecook-api/store"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidRole        = errors.New("role must be customer or cook")
	ErrMissingCookFields  = errors.New("cooks must provide cooker name and cuisine")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrTokenRevoked       = errors.New("token has been signed out")
)

const MinPasswordLength = 6

type Claims struct {
	UserID uint            `json:"user_id"`
	Email  string          `json:"email"`
	Role   models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// EventKind says whether a user signed in or out
type EventKind string

const (
	EventSignedIn  EventKind = "signed_in"
	EventSignedOut EventKind = "signed_out"
)

// Event is a session change. Observers use it to build or tear down
// per-user state.
type Event struct {
	Kind   EventKind
	UserID uint
	Role   models.UserRole
}

// Session is the result of a successful register or sign-in
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// RegisterInput carries the account and the profile fields of its role
type RegisterInput struct {
	Email      string
	Password   string
	Role       models.UserRole
	Name       string
	Phone      string
	Address    string
	CookerName string
	Cuisine    string
}

type Options struct {
	Secret     []byte
	TokenTTL   time.Duration
	BcryptCost int
	Logger     logrus.FieldLogger
}

type Service struct {
	db       *gorm.DB
	profiles *store.ProfileStore
	secret   []byte
	ttl      time.Duration
	cost     int
	log      logrus.FieldLogger
	events   *observable.Value[Event]

	mu      sync.Mutex
	revoked map[string]time.Time // token ID -> expiry
}

func NewService(db *gorm.DB, profiles *store.ProfileStore, opts Options) *Service {
	if opts.TokenTTL == 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Service{
		db:       db,
		profiles: profiles,
		secret:   opts.Secret,
		ttl:      opts.TokenTTL,
		cost:     opts.BcryptCost,
		log:      opts.Logger,
		events:   observable.NewValue(Event{}),
		revoked:  make(map[string]time.Time),
	}
}

// Subscribe observes sign-in and sign-out events
func (s *Service) Subscribe(fn func(Event)) (unsubscribe func()) {
	return s.events.Subscribe(fn)
}

// Register creates the account and its profile in the role's partition,
// then signs the user in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Email = normalizeEmail(in.Email)
	if !in.Role.Valid() {
		return nil, ErrInvalidRole
	}
	if len(in.Password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}
	if in.Role == models.RoleCook && (strings.TrimSpace(in.CookerName) == "" || strings.TrimSpace(in.Cuisine) == "") {
		return nil, ErrMissingCookFields
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{Email: in.Email, PasswordHash: string(hash), Role: in.Role}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", in.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrEmailTaken
		}
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		if in.Role == models.RoleCook {
			return s.profiles.CreateCook(ctx, tx, &models.CookProfile{
				UserID:     user.ID,
				Email:      in.Email,
				CookerName: strings.TrimSpace(in.CookerName),
				Cuisine:    strings.TrimSpace(in.Cuisine),
				Address:    in.Address,
				Phone:      in.Phone,
			})
		}
		return s.profiles.CreateCustomer(ctx, tx, &models.CustomerProfile{
			UserID:  user.ID,
			Email:   in.Email,
			Name:    in.Name,
			Address: in.Address,
			Phone:   in.Phone,
		})
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("register %s: %w", in.Email, err)
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("Account registered")
	return s.startSession(user)
}

func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.startSession(&user)
}

// SignOut revokes the token the claims came from and ends the session
func (s *Service) SignOut(claims *Claims) {
	s.mu.Lock()
	now := time.Now()
	for id, exp := range s.revoked {
		if exp.Before(now) {
			delete(s.revoked, id)
		}
	}
	exp := now.Add(s.ttl)
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	s.revoked[claims.ID] = exp
	s.mu.Unlock()

	s.log.WithField("user_id", claims.UserID).Info("Signed out")
	s.events.Set(Event{Kind: EventSignedOut, UserID: claims.UserID, Role: claims.Role})
}

// Verify parses a bearer token and rejects expired or signed-out ones
func (s *Service) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	s.mu.Lock()
	_, revoked := s.revoked[claims.ID]
	s.mu.Unlock()
	if revoked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

func (s *Service) User(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %d: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("user %d: %w", id, err)
	}
	return &user, nil
}

func (s *Service) startSession(user *models.User) (*Session, error) {
	now := time.Now()
	exp := now.Add(s.ttl)
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   fmt.Sprint(user.ID),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	s.events.Set(Event{Kind: EventSignedIn, UserID: user.ID, Role: user.Role})
	return &Session{Token: token, ExpiresAt: exp, User: user}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
