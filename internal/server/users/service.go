// Package users implements the account side of the auth stub: sign-up with
// an optional e-mailed code, password login, token refresh and logout.
package users

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/dmitrijs2005/vutto/internal/common"
	"github.com/dmitrijs2005/vutto/internal/logging"
	"github.com/dmitrijs2005/vutto/internal/server/auth"
	"github.com/dmitrijs2005/vutto/internal/server/config"
	"github.com/dmitrijs2005/vutto/internal/server/revocations"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLen = 6
	// bcrypt ignores anything past 72 bytes.
	maxPasswordLen = 72
	codeIssuer     = "vutto"
)

var codeOpts = totp.ValidateOpts{
	Period:    30,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// ValidationError carries a message meant for the user.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Unwrap() error { return common.ErrorValidation }

// SignUp is what a client posts to the register endpoint. A non-empty Code
// turns the call into a verification.
type SignUp struct {
	Email     string
	Password  string
	Role      string
	FirstName string
	LastName  string
	Code      string
}

// Issued is a user together with a freshly signed token.
type Issued struct {
	User  *User
	Token string
}

// SignUpResult is either an issued session or a pending verification for
// Email.
type SignUpResult struct {
	*Issued
	Pending bool
	Email   string
}

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithHashCost sets the bcrypt cost. Tests use bcrypt.MinCost.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.hashCost = cost }
}

type Service struct {
	repo                Repository
	revoked             revocations.Repository
	log                 logging.Logger
	jwtSecret           []byte
	tokenTTL            time.Duration
	rotateWindow        time.Duration
	codeTTL             time.Duration
	requireVerification bool
	hashCost            int
	now                 func() time.Time
}

func NewService(repo Repository, revoked revocations.Repository, cfg *config.Config, log logging.Logger, opts ...Option) *Service {
	s := &Service{
		repo:                repo,
		revoked:             revoked,
		log:                 log,
		jwtSecret:           []byte(cfg.SecretKey),
		tokenTTL:            cfg.TokenTTL,
		rotateWindow:        cfg.RotateWindow,
		codeTTL:             cfg.CodeTTL,
		requireVerification: cfg.RequireVerification,
		hashCost:            bcrypt.DefaultCost,
		now:                 time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validate(in *SignUp) error {
	if in.Email == "" {
		return &ValidationError{Msg: "Email is required"}
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return &ValidationError{Msg: "Email is invalid"}
	}
	if in.Role != RoleSeller && in.Role != RoleCustomer {
		return &ValidationError{Msg: "Please select a role (Seller or Customer)"}
	}
	if len([]rune(in.Password)) < minPasswordLen {
		return &ValidationError{Msg: "Password must be at least 6 characters long"}
	}
	if len(in.Password) > maxPasswordLen {
		return &ValidationError{Msg: "Password is too long"}
	}
	return nil
}

// Register creates an account, or confirms one when in.Code is set.
//
// Without verification the account is live at once and a token is issued.
// With verification a code is generated and logged (standing in for the
// e-mail), and the result is Pending. Posting again without a code for a
// still unverified account replaces its details and issues a new code.
func (s *Service) Register(ctx context.Context, in SignUp) (*SignUpResult, error) {
	in.Email = normalizeEmail(in.Email)
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))
	if err := validate(&in); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByEmail(ctx, in.Email)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		existing = nil
	case err != nil:
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	case existing.Verified:
		return nil, common.ErrorAlreadyExists
	}

	if in.Code != "" {
		return s.confirm(ctx, existing, in)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	user := existing
	if user == nil {
		user = &User{Email: in.Email, CreatedAt: s.now()}
	}
	user.PasswordHash = hash
	user.Role = in.Role
	user.FirstName = strings.TrimSpace(in.FirstName)
	user.LastName = strings.TrimSpace(in.LastName)
	user.Verified = !s.requireVerification

	var code string
	if s.requireVerification {
		code, err = s.newCode(user)
		if err != nil {
			return nil, err
		}
	}

	if existing == nil {
		user, err = s.repo.Create(ctx, user)
	} else {
		err = s.repo.Update(ctx, user)
	}
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	if !s.requireVerification {
		issued, err := s.issue(user)
		if err != nil {
			return nil, err
		}
		return &SignUpResult{Issued: issued}, nil
	}

	s.log.Info(ctx, "verification code issued", "email", user.Email, "code", code, "valid_for", s.codeTTL)
	return &SignUpResult{Pending: true, Email: user.Email}, nil
}

func (s *Service) newCode(user *User) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      codeIssuer,
		AccountName: user.Email,
		Period:      codeOpts.Period,
		Digits:      codeOpts.Digits,
		Algorithm:   codeOpts.Algorithm,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	issuedAt := s.now()
	code, err := totp.GenerateCodeCustom(key.Secret(), issuedAt, codeOpts)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	user.CodeSecret = key.Secret()
	user.CodeIssuedAt = issuedAt
	return code, nil
}

// codeValid checks code against the one issued to user. Codes are pinned
// to their issue time and live for codeTTL from then.
func (s *Service) codeValid(user *User, code string) bool {
	if user.CodeSecret == "" || s.now().Sub(user.CodeIssuedAt) >= s.codeTTL {
		return false
	}
	ok, err := totp.ValidateCustom(code, user.CodeSecret, user.CodeIssuedAt, codeOpts)
	return err == nil && ok
}

func (s *Service) confirm(ctx context.Context, user *User, in SignUp) (*SignUpResult, error) {
	if user == nil || !s.codeValid(user, in.Code) {
		return nil, common.ErrorInvalidCode
	}
	if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(in.Password)) != nil {
		return nil, common.ErrorInvalidCode
	}

	user.Verified = true
	user.CodeSecret = ""
	user.CodeIssuedAt = time.Time{}
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	issued, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	return &SignUpResult{Issued: issued}, nil
}

func (s *Service) issue(user *User) (*Issued, error) {
	token, _, err := auth.GenerateToken(user.ID, s.jwtSecret, s.tokenTTL, s.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return &Issued{User: user, Token: token}, nil
}

// Login checks the password and issues a token. Unknown e-mail and wrong
// password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*Issued, error) {
	user, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorInvalidLoginPassword
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)) != nil {
		return nil, common.ErrorInvalidLoginPassword
	}
	if !user.Verified {
		return nil, common.ErrorNotVerified
	}

	return s.issue(user)
}

// Authenticate resolves a bearer token to its user. Any failure, including
// a revoked token or a deleted user, is common.ErrorUnauthorized.
func (s *Service) Authenticate(ctx context.Context, token string) (*User, *auth.Claims, error) {
	claims, err := auth.ParseToken(token, s.jwtSecret, s.now())
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", common.ErrorUnauthorized, err)
	}

	revoked, err := s.revoked.IsRevoked(ctx, claims.ID, s.now())
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	if revoked {
		return nil, nil, fmt.Errorf("%w: token revoked", common.ErrorUnauthorized)
	}

	user, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", common.ErrorUnauthorized, err)
	}
	return user, claims, nil
}

// Refresh returns a new token for user when the presented one expires
// within the rotate window, and "" otherwise. The old token stays valid
// until it expires.
func (s *Service) Refresh(ctx context.Context, user *User, claims *auth.Claims) (string, error) {
	if claims.ExpiresAt == nil || claims.ExpiresAt.Sub(s.now()) > s.rotateWindow {
		return "", nil
	}
	issued, err := s.issue(user)
	if err != nil {
		return "", err
	}
	s.log.Debug(ctx, "token rotated", "user_id", user.ID)
	return issued.Token, nil
}

// Logout revokes the presented token.
func (s *Service) Logout(ctx context.Context, claims *auth.Claims) error {
	if err := s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return nil
}
