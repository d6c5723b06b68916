// Package registration drives the two-step sign-up protocol: submit the
// account details, then confirm the e-mailed one-time code. The pending
// attempt, password included, lives only in memory.
package registration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/vutto/internal/client/client"
	"github.com/dmitrijs2005/vutto/internal/client/models"
	"github.com/dmitrijs2005/vutto/internal/client/session"
	"github.com/dmitrijs2005/vutto/internal/common"
	"github.com/dmitrijs2005/vutto/internal/logging"
)

// DefaultCodeTTL is how long a code is valid and how long resend is locked.
const DefaultCodeTTL = 10 * time.Minute

const minPasswordLen = 6

// Step is the position of the flow: Collecting, PendingVerification or
// Complete.
type Step int

const (
	Collecting Step = iota
	PendingVerification
	Complete
)

func (s Step) String() string {
	switch s {
	case Collecting:
		return "collecting"
	case PendingVerification:
		return "pending verification"
	case Complete:
		return "complete"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

var (
	ErrValidation = errors.New("invalid input")
	ErrBusy       = errors.New("a request is already in flight")
	ErrWrongStep  = errors.New("operation not valid in the current step")
	ErrTooEarly   = errors.New("resend is not available yet")
	ErrStale      = errors.New("registration was abandoned")
)

// Installer installs a credential into the session. *session.Controller
// implements it.
type Installer interface {
	Adopt(ctx context.Context, s *client.Session, rememberMe bool) session.Result
}

// Submission is what the sign-up form collects.
type Submission struct {
	Email     string
	Password  string
	Confirm   string
	Role      models.Role
	FirstName string
	LastName  string
}

// Attempt describes the pending registration. The password is never
// exposed.
type Attempt struct {
	Email         string
	Role          models.Role
	FirstName     string
	LastName      string
	PendingSince  time.Time
	CodeExpiresAt time.Time
}

type attempt struct {
	Attempt
	password []byte
}

// Options tunes a Flow. Zero values fall back to a 10 minute CodeTTL,
// time.Now and a discarding logger.
type Options struct {
	CodeTTL time.Duration
	Now     func() time.Time
	Logger  logging.Logger
}

// Flow is the registration state machine. At most one gateway request is in
// flight at a time; a response that arrives after Abandon is discarded.
type Flow struct {
	gw       client.Client
	sessions Installer
	codeTTL  time.Duration
	now      func() time.Time
	log      logging.Logger

	mu      sync.Mutex
	step    Step
	attempt *attempt
	code    string
	gen     uint64
	busy    bool
}

// New returns a flow in the Collecting step. Sessions produced by the
// gateway are handed to sessions.
func New(gw client.Client, sessions Installer, opts Options) *Flow {
	f := &Flow{
		gw:       gw,
		sessions: sessions,
		codeTTL:  opts.CodeTTL,
		now:      opts.Now,
		log:      opts.Logger,
	}
	if f.codeTTL <= 0 {
		f.codeTTL = DefaultCodeTTL
	}
	if f.now == nil {
		f.now = time.Now
	}
	if f.log == nil {
		f.log = logging.Discard()
	}
	return f
}

func invalid(msg string) session.Result {
	return session.Result{Error: msg, Err: fmt.Errorf("%w: %s", ErrValidation, msg)}
}

func refused(err error, msg string) session.Result {
	return session.Result{Error: msg, Err: err}
}

func validate(s Submission) (session.Result, bool) {
	switch {
	case strings.TrimSpace(s.Email) == "":
		return invalid("Email is required"), false
	case !s.Role.Valid():
		return invalid("Please select a role (Seller or Customer)"), false
	case utf8.RuneCountInString(s.Password) < minPasswordLen:
		return invalid("Password must be at least 6 characters long"), false
	case s.Password != s.Confirm:
		return invalid("Passwords do not match"), false
	}
	return session.Result{}, true
}

// ValidCode reports whether code is exactly six ASCII digits.
func ValidCode(code string) bool {
	if len(code) != common.OTPDigits {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

// begin marks a request in flight and returns its generation. Callers hold mu.
func (f *Flow) begin() uint64 {
	f.busy = true
	return f.gen
}

// finish reacquires mu after a gateway call and reports whether the answer
// still applies. The caller must unlock mu.
func (f *Flow) finish(gen uint64) bool {
	f.mu.Lock()
	f.busy = false
	return gen == f.gen
}

// Submit validates s locally and registers it. The server either signs the
// user in right away or asks for a code, in which case the flow moves to
// PendingVerification and the countdown starts.
func (f *Flow) Submit(ctx context.Context, s Submission) session.Result {
	f.mu.Lock()
	if f.busy {
		f.mu.Unlock()
		return refused(ErrBusy, "Please wait for the current request to finish")
	}
	if f.step == PendingVerification {
		f.mu.Unlock()
		return refused(ErrWrongStep, "A verification is already pending; cancel it first")
	}
	s.Email = strings.TrimSpace(s.Email)
	if res, ok := validate(s); !ok {
		f.mu.Unlock()
		return res
	}
	gen := f.begin()
	f.mu.Unlock()

	reg, err := f.gw.Register(ctx, client.RegisterRequest{
		Email:     s.Email,
		Password:  s.Password,
		FirstName: s.FirstName,
		LastName:  s.LastName,
		Role:      s.Role,
	})

	current := f.finish(gen)
	defer f.mu.Unlock()
	if !current {
		f.log.Debug(ctx, "discarding registration response", "email", s.Email)
		return refused(ErrStale, "Registration was cancelled")
	}
	if err != nil {
		f.log.Info(ctx, "registration failed", "email", s.Email, "error", err)
		return refused(err, client.Describe(err, "Registration failed"))
	}

	if !reg.VerificationRequired {
		res := f.sessions.Adopt(ctx, reg.Session, false)
		if res.Success {
			f.step = Complete
			f.code = ""
			f.log.Info(ctx, "registered", "email", s.Email)
		}
		return res
	}

	email := reg.Email
	if email == "" {
		email = s.Email
	}
	now := f.now()
	f.attempt = &attempt{
		Attempt: Attempt{
			Email:         email,
			Role:          s.Role,
			FirstName:     s.FirstName,
			LastName:      s.LastName,
			PendingSince:  now,
			CodeExpiresAt: now.Add(f.codeTTL),
		},
		password: []byte(s.Password),
	}
	f.step = PendingVerification
	f.code = ""
	f.log.Info(ctx, "verification code requested", "email", email)

	return session.Result{Success: true, RequiresVerification: true, Message: reg.Message, Email: email}
}

// Verify confirms the pending registration with code. On failure the flow
// stays pending with the countdown and the entered code untouched.
func (f *Flow) Verify(ctx context.Context, code string) session.Result {
	f.mu.Lock()
	if f.busy {
		f.mu.Unlock()
		return refused(ErrBusy, "Please wait for the current request to finish")
	}
	if f.step != PendingVerification {
		f.mu.Unlock()
		return refused(ErrWrongStep, "There is no registration waiting for a code")
	}
	code = strings.TrimSpace(code)
	f.code = code
	if !ValidCode(code) {
		f.mu.Unlock()
		return invalid("Please enter the complete 6-digit OTP")
	}
	a := *f.attempt
	password := string(a.password)
	gen := f.begin()
	f.mu.Unlock()

	s, err := f.gw.Verify(ctx, a.Email, code, password, a.Role)

	current := f.finish(gen)
	defer f.mu.Unlock()
	if !current {
		return refused(ErrStale, "Registration was cancelled")
	}
	if err != nil {
		f.log.Info(ctx, "verification failed", "email", a.Email, "error", err)
		return refused(err, client.Describe(err, "OTP verification failed"))
	}

	res := f.sessions.Adopt(ctx, s, false)
	if !res.Success {
		return res
	}
	f.drop()
	f.step = Complete
	f.log.Info(ctx, "registration verified", "email", a.Email)
	return res
}

// Resend asks for a new code once the countdown has run out. Success
// restarts the countdown and clears the entered code; failure changes
// nothing.
func (f *Flow) Resend(ctx context.Context) session.Result {
	f.mu.Lock()
	if f.busy {
		f.mu.Unlock()
		return refused(ErrBusy, "Please wait for the current request to finish")
	}
	if f.step != PendingVerification {
		f.mu.Unlock()
		return refused(ErrWrongStep, "There is no registration waiting for a code")
	}
	if left := f.remaining(); left > 0 {
		f.mu.Unlock()
		return refused(ErrTooEarly, "You can request a new code in "+FormatRemaining(left))
	}
	a := *f.attempt
	password := string(a.password)
	gen := f.begin()
	f.mu.Unlock()

	err := f.gw.ResendVerification(ctx, a.Email, password, a.Role)

	current := f.finish(gen)
	defer f.mu.Unlock()
	if !current {
		return refused(ErrStale, "Registration was cancelled")
	}
	if err != nil {
		f.log.Info(ctx, "resend failed", "email", a.Email, "error", err)
		return refused(err, client.Describe(err, "Failed to resend OTP"))
	}

	now := f.now()
	f.attempt.PendingSince = now
	f.attempt.CodeExpiresAt = now.Add(f.codeTTL)
	f.code = ""
	f.log.Info(ctx, "verification code re-sent", "email", a.Email)
	return session.Result{Success: true, Email: a.Email}
}

// Abandon discards the pending attempt and its password and returns to
// Collecting. A request still in flight completes on the wire but its answer
// is ignored.
func (f *Flow) Abandon() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drop()
	f.step = Collecting
	f.gen++
}

// drop destroys the attempt. Callers hold mu.
func (f *Flow) drop() {
	if f.attempt != nil {
		common.WipeByteArray(f.attempt.password)
		f.attempt = nil
	}
	f.code = ""
}

// Enter records a partially typed code; it is ignored outside
// PendingVerification.
func (f *Flow) Enter(code string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step == PendingVerification {
		f.code = code
	}
}

// EnteredCode returns the code recorded by Enter. Resend clears it.
func (f *Flow) EnteredCode() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.code
}

// State returns the current step.
func (f *Flow) State() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// Attempt returns the pending attempt without its password.
func (f *Flow) Attempt() (Attempt, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attempt == nil {
		return Attempt{}, false
	}
	return f.attempt.Attempt, true
}

// Busy reports whether a request is in flight.
func (f *Flow) Busy() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busy
}

// Remaining is the countdown until the code expires and resend unlocks.
func (f *Flow) Remaining() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.remaining()
}

func (f *Flow) remaining() time.Duration {
	if f.attempt == nil {
		return 0
	}
	if d := f.attempt.CodeExpiresAt.Sub(f.now()); d > 0 {
		return d
	}
	return 0
}

// CanResend reports whether a code was sent and its countdown has run out.
func (f *Flow) CanResend() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step == PendingVerification && f.remaining() == 0
}

// FormatRemaining renders d as m:ss, rounding partial seconds up.
func FormatRemaining(d time.Duration) string {
	if d <= 0 {
		return "0:00"
	}
	secs := int((d + time.Second - 1) / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
