package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nostrid/nip05-registry/internal/common/clock"
	"github.com/nostrid/nip05-registry/internal/common/constants"
	"github.com/nostrid/nip05-registry/internal/common/logger"
	"github.com/nostrid/nip05-registry/internal/observability/metrics"
	"github.com/nostrid/nip05-registry/internal/signer"
)

type State string

const (
	StateAnonymous     State = "ANONYMOUS"
	StateAuthenticated State = "AUTHENTICATED"
	StateExpired       State = "EXPIRED"
)

type Session struct {
	State     State
	PublicKey string
	Expiry    time.Time
}

type Config struct {
	TTL              time.Duration
	LoginTimeout     time.Duration
	LockoutThreshold int
	LockoutDuration  time.Duration
	ActionLimit      int
	ActionWindow     time.Duration
}

func DefaultConfig() Config {
	return Config{
		TTL:              constants.SessionTTL,
		LoginTimeout:     constants.LoginTimeout,
		LockoutThreshold: constants.LockoutThreshold,
		LockoutDuration:  constants.LockoutDuration,
		ActionLimit:      constants.ActionWindowLimit,
		ActionWindow:     constants.ActionWindow,
	}
}

const (
	sessionKey      = "session"
	failuresKey     = "login:failures"
	lockoutUntilKey = "login:lockout_until"
	tokenKeyPrefix  = "token:"
	actionKeyPrefix = "actions:"
)

type sessionRecord struct {
	PublicKey string `json:"publicKey"`
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

// Manager holds one user's session over two Store namespaces: the
// ephemeral one carries the live record, the durable one mirrors the
// active token id plus the lockout and rate-limit counters.
type Manager struct {
	ephemeral Store
	durable   Store
	tokens    *TokenSource
	signer    signer.Signer
	clock     clock.Clock
	log       *logger.Logger
	cfg       Config
}

func NewManager(ephemeral, durable Store, tokens *TokenSource, sgn signer.Signer, clk clock.Clock, log *logger.Logger, cfg Config) *Manager {
	return &Manager{
		ephemeral: ephemeral,
		durable:   durable,
		tokens:    tokens,
		signer:    sgn,
		clock:     clk,
		log:       log,
		cfg:       cfg,
	}
}

// Login asks the signer for its public key, bounded by the configured
// timeout, and starts a fresh session. Attempts during a lockout are
// rejected before the signer is touched.
func (m *Manager) Login(ctx context.Context) (Session, error) {
	if remaining, locked := m.lockoutRemaining(); locked {
		return Session{}, ErrLockedOut.WithMessage(fmt.Sprintf(
			"too many failed login attempts, retry in %d seconds",
			int(remaining.Seconds())+1,
		))
	}

	publicKey, err := m.fetchPublicKey(ctx)
	if err != nil {
		m.recordLoginFailure(ctx)
		return Session{}, err
	}

	m.durable.Remove(failuresKey)

	expiry := m.clock.Now().Add(m.cfg.TTL)
	token, jti, err := m.tokens.Issue(publicKey, expiry)
	if err != nil {
		return Session{}, err
	}

	m.saveRecord(sessionRecord{
		PublicKey: publicKey,
		Token:     token,
		ExpiresAt: expiry.Unix(),
	})
	m.durable.Set(tokenKeyPrefix+publicKey, jti)

	m.log.WithFields(ctx, logger.Fields{
		"action": "session_started",
	}).Info("session started")
	metrics.SessionsStartedTotal.Inc()

	return Session{
		State:     StateAuthenticated,
		PublicKey: publicKey,
		Expiry:    expiry,
	}, nil
}

func (m *Manager) fetchPublicKey(ctx context.Context) (string, error) {
	type keyResult struct {
		publicKey string
		err       error
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, m.cfg.LoginTimeout)
	defer cancel()

	results := make(chan keyResult, 1)
	go func() {
		pk, err := m.signer.PublicKey(timeoutCtx)
		results <- keyResult{pk, err}
	}()

	select {
	case res := <-results:
		if res.err != nil {
			return "", res.err
		}
		return res.publicKey, nil
	case <-timeoutCtx.Done():
		return "", ErrLoginTimeout
	}
}

func (m *Manager) recordLoginFailure(ctx context.Context) {
	failures := m.readInt(failuresKey) + 1
	if failures >= m.cfg.LockoutThreshold {
		until := m.clock.Now().Add(m.cfg.LockoutDuration)
		m.durable.Set(lockoutUntilKey, strconv.FormatInt(until.Unix(), 10))
		m.durable.Remove(failuresKey)
		m.log.WithFields(ctx, logger.Fields{
			"failures": failures,
			"action":   "login_lockout",
		}).Warn("login locked out")
		metrics.LoginLockoutsTotal.Inc()
		return
	}
	m.durable.Set(failuresKey, strconv.Itoa(failures))
}

func (m *Manager) lockoutRemaining() (time.Duration, bool) {
	raw, ok := m.durable.Get(lockoutUntilKey)
	if !ok {
		return 0, false
	}
	unix, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		m.durable.Remove(lockoutUntilKey)
		return 0, false
	}
	until := time.Unix(unix, 0)
	if !m.clock.Now().Before(until) {
		m.durable.Remove(lockoutUntilKey)
		return 0, false
	}
	return m.clock.Until(until), true
}

// Check classifies the current session. A durable token id that no
// longer matches the record means a newer login took over; the stale
// session is expired and the conflict reported.
func (m *Manager) Check(ctx context.Context) (Session, error) {
	record, ok := m.loadRecord()
	if !ok {
		return Session{State: StateAnonymous}, nil
	}

	expiry := time.Unix(record.ExpiresAt, 0)
	if !m.clock.Now().Before(expiry) {
		m.expire(ctx, record, "timeout")
		return Session{State: StateExpired, PublicKey: record.PublicKey}, nil
	}

	publicKey, jti, err := m.tokens.Verify(record.Token)
	if err != nil {
		m.expire(ctx, record, "invalid_token")
		return Session{State: StateExpired, PublicKey: record.PublicKey}, nil
	}

	activeJti, ok := m.durable.Get(tokenKeyPrefix + publicKey)
	if !ok || activeJti != jti {
		m.expire(ctx, record, "conflict")
		return Session{State: StateExpired, PublicKey: publicKey}, ErrSessionConflict
	}

	return Session{
		State:     StateAuthenticated,
		PublicKey: publicKey,
		Expiry:    expiry,
	}, nil
}

// RequireAuth gates a protected action on an authenticated session.
func (m *Manager) RequireAuth(ctx context.Context) (string, error) {
	session, err := m.Check(ctx)
	if err != nil {
		return "", err
	}
	if session.State != StateAuthenticated {
		return "", ErrSessionExpired
	}
	return session.PublicKey, nil
}

// Refresh slides the expiry forward from now, keeping the session id
// stable so the durable mirror stays valid.
func (m *Manager) Refresh(ctx context.Context) (Session, error) {
	session, err := m.Check(ctx)
	if err != nil {
		return Session{}, err
	}
	if session.State != StateAuthenticated {
		return Session{}, ErrSessionExpired
	}

	record, ok := m.loadRecord()
	if !ok {
		return Session{}, ErrSessionExpired
	}
	_, jti, err := m.tokens.Verify(record.Token)
	if err != nil {
		return Session{}, ErrSessionExpired
	}

	expiry := m.clock.Now().Add(m.cfg.TTL)
	token, err := m.tokens.IssueWithID(session.PublicKey, jti, expiry)
	if err != nil {
		return Session{}, err
	}

	m.saveRecord(sessionRecord{
		PublicKey: session.PublicKey,
		Token:     token,
		ExpiresAt: expiry.Unix(),
	})

	session.Expiry = expiry
	return session, nil
}

// Logout clears both namespaces and is terminal to ANONYMOUS.
func (m *Manager) Logout(ctx context.Context) {
	if record, ok := m.loadRecord(); ok {
		m.durable.Remove(tokenKeyPrefix + record.PublicKey)
	}
	m.ephemeral.Remove(sessionKey)
	m.log.WithFields(ctx, logger.Fields{
		"action": "session_logout",
	}).Info("session ended")
}

// AllowAction admits at most the configured number of actions per kind
// within a sliding window. Rejections carry the remaining cooldown.
func (m *Manager) AllowAction(ctx context.Context, kind string) error {
	key := actionKeyPrefix + kind
	now := m.clock.Now()
	cutoff := now.Add(-m.cfg.ActionWindow)

	var stamps []int64
	if raw, ok := m.durable.Get(key); ok {
		_ = json.Unmarshal([]byte(raw), &stamps)
	}

	recent := stamps[:0]
	for _, stamp := range stamps {
		if time.UnixMilli(stamp).After(cutoff) {
			recent = append(recent, stamp)
		}
	}

	if len(recent) >= m.cfg.ActionLimit {
		oldest := time.UnixMilli(recent[0])
		cooldown := oldest.Add(m.cfg.ActionWindow).Sub(now)
		m.log.WithFields(ctx, logger.Fields{
			"kind":   kind,
			"action": "action_rate_limited",
		}).Warn("action rate limit exceeded")
		return ErrRateLimitExceeded.WithMessage(fmt.Sprintf(
			"action rate limit exceeded, retry in %d seconds",
			int(cooldown.Seconds())+1,
		))
	}

	recent = append(recent, now.UnixMilli())
	if raw, err := json.Marshal(recent); err == nil {
		m.durable.Set(key, string(raw))
	}
	return nil
}

// Watch re-checks the session on every tick until ctx is done, invoking
// onChange on state transitions.
func (m *Manager) Watch(ctx context.Context, interval time.Duration, onChange func(Session)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := StateAnonymous
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			session, _ := m.Check(ctx)
			if session.State != last {
				last = session.State
				if onChange != nil {
					onChange(session)
				}
			}
		}
	}
}

// expire clears only the ephemeral record. The durable token mirror is
// left alone: on a conflict it belongs to the newer session.
func (m *Manager) expire(ctx context.Context, record sessionRecord, reason string) {
	m.ephemeral.Remove(sessionKey)
	m.log.WithFields(ctx, logger.Fields{
		"reason": reason,
		"action": "session_expired",
	}).Info("session expired")
	metrics.SessionsExpiredTotal.WithLabelValues(reason).Inc()
}

func (m *Manager) loadRecord() (sessionRecord, bool) {
	raw, ok := m.ephemeral.Get(sessionKey)
	if !ok {
		return sessionRecord{}, false
	}
	var record sessionRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		m.ephemeral.Remove(sessionKey)
		return sessionRecord{}, false
	}
	return record, true
}

func (m *Manager) saveRecord(record sessionRecord) {
	raw, err := json.Marshal(record)
	if err != nil {
		return
	}
	m.ephemeral.Set(sessionKey, string(raw))
}

func (m *Manager) readInt(key string) int {
	raw, ok := m.durable.Get(key)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
