package messaging

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chatrelay/backend/internal/domain/messaging"
)

// DefaultIdleWindow is how long a session stays eligible for reuse after
// its last message
const DefaultIdleWindow = 5 * time.Minute

// SessionResolver decides which session an inbound message belongs to.
// Consecutive messages from the same remote number on the same channel and
// communication type land on one session as long as the gap between them
// stays within the idle window; otherwise a new session is started.
type SessionResolver struct {
	sessionRepo messaging.SessionRepository
	idleWindow  time.Duration
	logger      *zap.Logger
}

// NewSessionResolver creates a new SessionResolver. A non-positive
// idleWindow falls back to DefaultIdleWindow.
func NewSessionResolver(sessionRepo messaging.SessionRepository, idleWindow time.Duration, logger *zap.Logger) *SessionResolver {
	if idleWindow <= 0 {
		idleWindow = DefaultIdleWindow
	}
	return &SessionResolver{
		sessionRepo: sessionRepo,
		idleWindow:  idleWindow,
		logger:      logger,
	}
}

// IdleWindow returns the configured idle window
func (r *SessionResolver) IdleWindow() time.Duration {
	return r.idleWindow
}

// Resolve returns the session an inbound message at the given instant
// belongs to, creating and persisting a new one when no active session is
// fresh enough. The second return value reports whether a session was
// created.
//
// Without a remote number there is nothing to correlate on, so the lookup
// falls back to the freshest active session for the channel and type; when
// none is fresh enough an unbound session is started.
func (r *SessionResolver) Resolve(ctx context.Context, channelID uuid.UUID, sessionType messaging.CommunicationType, remoteNumber string, at time.Time) (*messaging.Session, bool, error) {
	var sessions []messaging.Session
	var err error
	if remoteNumber != "" {
		sessions, err = r.sessionRepo.FindActiveByRemoteNumber(ctx, channelID, sessionType, remoteNumber)
	} else {
		sessions, err = r.sessionRepo.FindActiveByChannel(ctx, channelID, sessionType)
	}
	if err != nil {
		return nil, false, err
	}
	// Candidates arrive most recent first; only the freshest one can
	// absorb the message.
	if len(sessions) > 0 && sessions[0].WithinIdleWindow(at, r.idleWindow) {
		session := sessions[0]
		return &session, false, nil
	}

	session, err := messaging.NewSession(channelID, sessionType, remoteNumber, "")
	if err != nil {
		return nil, false, err
	}
	if err := r.sessionRepo.Save(ctx, session); err != nil {
		return nil, false, err
	}

	r.logger.Info("started new session",
		zap.String("session_id", session.ID.String()),
		zap.String("channel_id", channelID.String()),
		zap.String("type", string(sessionType)),
		zap.String("remote_number", remoteNumber))

	return session, true, nil
}
