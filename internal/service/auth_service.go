package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/diario/internal/db"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const defaultTokenTTL = 24 * time.Hour

// ErrInvalidCredentials 用户名或密码错误。
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService 校验账号密码并签发/解析访问令牌。
type AuthService struct {
	db       *gorm.DB
	secret   []byte
	tokenTTL time.Duration
}

// NewAuthService creates an AuthService signing HS256 tokens with secret.
func NewAuthService(gdb *gorm.DB, secret string) *AuthService {
	return &AuthService{db: gdb, secret: []byte(secret), tokenTTL: defaultTokenTTL}
}

// WithTokenTTL overrides the token lifetime.
func (s *AuthService) WithTokenTTL(ttl time.Duration) *AuthService {
	if ttl > 0 {
		s.tokenTTL = ttl
	}
	return s
}

// Authenticate 校验用户名与 bcrypt 密码。
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*db.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	var user db.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, "load user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// IssueToken 生成携带用户 id 与角色的 JWT。
func (s *AuthService) IssueToken(user *db.User, now time.Time) (string, error) {
	if user == nil {
		return "", ErrUnauthenticated
	}
	claims := jwt.MapClaims{
		"sub":  strconv.FormatUint(uint64(user.ID), 10),
		"role": user.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(s.tokenTTL).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return signed, nil
}

// ParseToken 校验签名，并以 now 判断是否过期，返回用户 id。
func (s *AuthService) ParseToken(tokenString string, now time.Time) (uint, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil || !token.Valid {
		return 0, ErrUnauthenticated
	}

	subject, err := token.Claims.GetSubject()
	if err != nil {
		return 0, ErrUnauthenticated
	}
	id, err := strconv.ParseUint(subject, 10, 32)
	if err != nil || id == 0 {
		return 0, ErrUnauthenticated
	}
	return uint(id), nil
}

// LoadUser fetches a user by id.
func (s *AuthService) LoadUser(ctx context.Context, id uint) (*db.User, error) {
	var user db.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, errors.Wrap(err, "load user")
	}
	return &user, nil
}
