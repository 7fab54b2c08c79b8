package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chatrelay/backend/internal/domain/messaging"
)

func TestSessionResolverResolve(t *testing.T) {
	ctx := context.Background()
	channelID := uuid.New()
	remote := "+14155550123"
	now := time.Now()

	makeSession := func(lastMessageAt time.Time) messaging.Session {
		session, err := messaging.NewSession(channelID, messaging.CommunicationTypeSMS, remote, "")
		require.NoError(t, err)
		session.LastMessageAt = lastMessageAt
		session.ClearDomainEvents()
		return *session
	}

	t.Run("reuses the freshest active session within the idle window", func(t *testing.T) {
		sessionRepo := new(MockSessionRepository)
		resolver := NewSessionResolver(sessionRepo, 5*time.Minute, zap.NewNop())

		fresh := makeSession(now.Add(-2 * time.Minute))
		stale := makeSession(now.Add(-20 * time.Minute))
		sessionRepo.On("FindActiveByRemoteNumber", ctx, channelID, messaging.CommunicationTypeSMS, remote).
			Return([]messaging.Session{fresh, stale}, nil)

		session, created, err := resolver.Resolve(ctx, channelID, messaging.CommunicationTypeSMS, remote, now)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, fresh.ID, session.ID)
		sessionRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("a gap on the window boundary still reuses", func(t *testing.T) {
		sessionRepo := new(MockSessionRepository)
		resolver := NewSessionResolver(sessionRepo, 5*time.Minute, zap.NewNop())

		boundary := makeSession(now.Add(-5 * time.Minute))
		sessionRepo.On("FindActiveByRemoteNumber", ctx, channelID, messaging.CommunicationTypeSMS, remote).
			Return([]messaging.Session{boundary}, nil)

		session, created, err := resolver.Resolve(ctx, channelID, messaging.CommunicationTypeSMS, remote, now)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, boundary.ID, session.ID)
	})

	t.Run("starts a new session when the freshest candidate lapsed", func(t *testing.T) {
		sessionRepo := new(MockSessionRepository)
		resolver := NewSessionResolver(sessionRepo, 5*time.Minute, zap.NewNop())

		lapsed := makeSession(now.Add(-6 * time.Minute))
		sessionRepo.On("FindActiveByRemoteNumber", ctx, channelID, messaging.CommunicationTypeSMS, remote).
			Return([]messaging.Session{lapsed}, nil)
		sessionRepo.On("Save", ctx, mock.AnythingOfType("*messaging.Session")).Return(nil)

		session, created, err := resolver.Resolve(ctx, channelID, messaging.CommunicationTypeSMS, remote, now)
		require.NoError(t, err)
		assert.True(t, created)
		assert.NotEqual(t, lapsed.ID, session.ID)
		assert.Equal(t, remote, session.RemoteNumber)
		sessionRepo.AssertExpectations(t)
	})

	t.Run("starts a new session when none exist", func(t *testing.T) {
		sessionRepo := new(MockSessionRepository)
		resolver := NewSessionResolver(sessionRepo, 5*time.Minute, zap.NewNop())

		sessionRepo.On("FindActiveByRemoteNumber", ctx, channelID, messaging.CommunicationTypeSMS, remote).
			Return([]messaging.Session{}, nil)
		sessionRepo.On("Save", ctx, mock.AnythingOfType("*messaging.Session")).Return(nil)

		session, created, err := resolver.Resolve(ctx, channelID, messaging.CommunicationTypeSMS, remote, now)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, messaging.SessionStatusActive, session.Status)
	})

	t.Run("no remote number reuses the freshest active session on the channel", func(t *testing.T) {
		sessionRepo := new(MockSessionRepository)
		resolver := NewSessionResolver(sessionRepo, 5*time.Minute, zap.NewNop())

		recent := makeSession(now.Add(-time.Minute))
		older := makeSession(now.Add(-3 * time.Minute))
		sessionRepo.On("FindActiveByChannel", ctx, channelID, messaging.CommunicationTypeSMS).
			Return([]messaging.Session{recent, older}, nil)

		session, created, err := resolver.Resolve(ctx, channelID, messaging.CommunicationTypeSMS, "", now)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, recent.ID, session.ID)
		sessionRepo.AssertNotCalled(t, "FindActiveByRemoteNumber", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		sessionRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("no remote number and no live session starts an unbound one", func(t *testing.T) {
		sessionRepo := new(MockSessionRepository)
		resolver := NewSessionResolver(sessionRepo, 5*time.Minute, zap.NewNop())

		sessionRepo.On("FindActiveByChannel", ctx, channelID, messaging.CommunicationTypeVoice).
			Return([]messaging.Session{}, nil)
		sessionRepo.On("Save", ctx, mock.AnythingOfType("*messaging.Session")).Return(nil)

		session, created, err := resolver.Resolve(ctx, channelID, messaging.CommunicationTypeVoice, "", now)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Empty(t, session.RemoteNumber)
	})

	t.Run("defaults a non-positive idle window", func(t *testing.T) {
		resolver := NewSessionResolver(new(MockSessionRepository), 0, zap.NewNop())
		assert.Equal(t, DefaultIdleWindow, resolver.IdleWindow())
	})
}
