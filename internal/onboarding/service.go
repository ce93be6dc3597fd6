// AngelaMos | 2026
// service.go

package onboarding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/angelamos/scribe/internal/auth"
	"github.com/angelamos/scribe/internal/challenge"
	"github.com/angelamos/scribe/internal/core"
	"github.com/angelamos/scribe/internal/plan"
	"github.com/angelamos/scribe/internal/user"
)

var (
	ErrInvalidMobile = errors.New("invalid mobile number")
	ErrUserBlocked   = errors.New("user blocked")
)

var mobilePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

type UserStore interface {
	GetByMobile(ctx context.Context, mobile string) (*user.User, error)
	MarkMobileVerified(ctx context.Context, id string, at time.Time) error
}

// Registrar creates a mobile user together with its default plan binding.
type Registrar interface {
	Register(ctx context.Context, mobile string) (*user.User, error)
}

type Challenges interface {
	Issue(ctx context.Context, p challenge.IssueParams) (*challenge.Issued, error)
	Validate(ctx context.Context, userID, code string) (*challenge.Challenge, error)
	Deactivate(ctx context.Context, c *challenge.Challenge) error
}

type TokenIssuer interface {
	IssueTokens(
		ctx context.Context,
		user *auth.UserInfo,
		userAgent, ipAddress string,
	) (*auth.AuthResponse, error)
}

type Service struct {
	users      UserStore
	registrar  Registrar
	challenges Challenges
	tokens     TokenIssuer
	clock      core.Clock
	logger     *slog.Logger
}

func NewService(
	users UserStore,
	registrar Registrar,
	challenges Challenges,
	tokens TokenIssuer,
	clock core.Clock,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:      users,
		registrar:  registrar,
		challenges: challenges,
		tokens:     tokens,
		clock:      clock,
		logger:     logger,
	}
}

// SignUpOrChallenge creates the user on first contact and issues a code.
// The code is only echoed back for a brand-new account; returning users
// receive it by SMS.
func (s *Service) SignUpOrChallenge(
	ctx context.Context,
	mobile string,
) (*ChallengeResult, error) {
	mobile, err := NormalizeMobile(mobile)
	if err != nil {
		return nil, err
	}

	u, created, err := s.findOrCreate(ctx, mobile)
	if err != nil {
		return nil, err
	}

	if !u.CanSignIn() {
		return nil, ErrUserBlocked
	}

	issued, err := s.challenges.Issue(ctx, challenge.IssueParams{
		UserID:      u.ID,
		Purpose:     challenge.PurposeMobileVerification,
		Destination: mobile,
	})
	if err != nil {
		return nil, err
	}

	result := &ChallengeResult{
		UserID:    u.ID,
		ExpiresAt: issued.Challenge.ExpiresAt,
		Created:   created,
	}
	if firstContact(u, created, issued) {
		result.Code = issued.Code
	}

	return result, nil
}

// firstContact also covers an account whose registration committed but
// whose first code was never issued: it has no challenge history and an
// unverified number, so it is still in its sign-up flow.
func firstContact(u *user.User, created bool, issued *challenge.Issued) bool {
	if created {
		return true
	}
	return issued.First && u.MobileVerifiedAt == nil
}

func (s *Service) findOrCreate(
	ctx context.Context,
	mobile string,
) (*user.User, bool, error) {
	u, err := s.users.GetByMobile(ctx, mobile)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return nil, false, fmt.Errorf("find user: %w", err)
	}

	u, err = s.registrar.Register(ctx, mobile)
	if err == nil {
		s.logger.InfoContext(ctx, "mobile user registered", "user_id", u.ID)
		return u, true, nil
	}

	// A concurrent sign-up for the same number won the insert.
	if errors.Is(err, user.ErrMobileTaken) {
		u, err = s.users.GetByMobile(ctx, mobile)
		if err != nil {
			return nil, false, fmt.Errorf("find user: %w", err)
		}
		return u, false, nil
	}

	return nil, false, fmt.Errorf("register user: %w", err)
}

// Verify consumes a valid code, marks the number verified and opens a
// session.
func (s *Service) Verify(
	ctx context.Context,
	req VerifyRequest,
	userAgent, ipAddress string,
) (*auth.AuthResponse, error) {
	mobile, err := NormalizeMobile(req.Mobile)
	if err != nil {
		return nil, err
	}

	u, err := s.users.GetByMobile(ctx, mobile)
	if errors.Is(err, core.ErrNotFound) {
		return nil, challenge.ErrInvalidOrExpired
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !u.CanSignIn() {
		return nil, ErrUserBlocked
	}

	c, err := s.challenges.Validate(ctx, u.ID, req.Code)
	if err != nil {
		return nil, err
	}

	// A concurrent verify with the same code may have consumed it first.
	if err := s.challenges.Deactivate(ctx, c); err != nil {
		if errors.Is(err, challenge.ErrInvalidOrExpired) {
			return nil, challenge.ErrInvalidOrExpired
		}
		return nil, fmt.Errorf("consume challenge: %w", err)
	}

	now := s.clock.Now()
	if err := s.users.MarkMobileVerified(ctx, u.ID, now); err != nil {
		return nil, fmt.Errorf("mark verified: %w", err)
	}
	if u.MobileVerifiedAt == nil {
		u.MobileVerifiedAt = &now
	}

	return s.tokens.IssueTokens(ctx, user.ToUserInfo(u), userAgent, ipAddress)
}

// NormalizeMobile strips formatting characters and checks the digits.
func NormalizeMobile(mobile string) (string, error) {
	cleaned := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(mobile)
	if !mobilePattern.MatchString(cleaned) {
		return "", ErrInvalidMobile
	}
	return cleaned, nil
}

// TxRegistrar writes the user and its default plan binding in one
// transaction so a user never exists without a plan.
type TxRegistrar struct {
	db *sqlx.DB
}

func NewTxRegistrar(db *sqlx.DB) *TxRegistrar {
	return &TxRegistrar{db: db}
}

func (r *TxRegistrar) Register(ctx context.Context, mobile string) (*user.User, error) {
	var created *user.User

	err := core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		plans := plan.NewRepository(tx)

		defaultPlan, err := plans.GetDefault(ctx)
		if err != nil {
			return err
		}

		u := &user.User{
			ID:     uuid.New().String(),
			Mobile: &mobile,
			Role:   user.RoleUser,
			Source: user.SourceMobile,
		}
		if err := user.NewRepository(tx).Create(ctx, u); err != nil {
			return err
		}

		if _, err := plan.BindUser(ctx, plans, u.ID, defaultPlan); err != nil {
			return err
		}

		created = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}
