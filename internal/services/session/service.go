package session

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/hemalab/hemassist/internal/config"
	"github.com/hemalab/hemassist/internal/infrastructure/redis"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

const (
	cookieLifetime  = 1 * time.Hour
	threadKeyPrefix = "thread:"
)

type SessionClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

// ThreadAPI is the slice of the remote assistant API the session service
// needs: one thread per chat session, created at session start.
type ThreadAPI interface {
	CreateThread(ctx context.Context, request openai.ThreadRequest) (openai.Thread, error)
}

// ThreadStore maps a session id to its remote thread id.
type ThreadStore interface {
	Set(ctx context.Context, sessionID, threadID string) error
	Get(ctx context.Context, sessionID string) (string, error)
	Delete(ctx context.Context, sessionID string) error
}

type RedisStore struct {
	redisService *redis.Service
}

type MemoryStore struct {
	mu      sync.RWMutex
	threads map[string]string
}

type Service struct {
	store ThreadStore
	api   ThreadAPI
}

func NewService(redisService *redis.Service, api ThreadAPI) *Service {
	var store ThreadStore
	if redisService != nil {
		// Test Redis connection
		ctx := context.Background()
		if err := redisService.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("Redis unreachable, keeping session threads in memory")
			store = newMemoryStore()
		} else {
			store = &RedisStore{redisService: redisService}
		}
	} else {
		store = newMemoryStore()
	}

	return &Service{store: store, api: api}
}

func newMemoryStore() *MemoryStore {
	return &MemoryStore{
		threads: make(map[string]string),
	}
}

// Redis Store implementation
func (rs *RedisStore) Set(ctx context.Context, sessionID, threadID string) error {
	return rs.redisService.Set(ctx, threadKeyPrefix+sessionID, threadID, cookieLifetime)
}

func (rs *RedisStore) Get(ctx context.Context, sessionID string) (string, error) {
	return rs.redisService.Get(ctx, threadKeyPrefix+sessionID)
}

func (rs *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return rs.redisService.Delete(ctx, threadKeyPrefix+sessionID)
}

// Memory Store implementation
func (ms *MemoryStore) Set(ctx context.Context, sessionID, threadID string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.threads[sessionID] = threadID
	return nil
}

func (ms *MemoryStore) Get(ctx context.Context, sessionID string) (string, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return ms.threads[sessionID], nil
}

func (ms *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.threads, sessionID)
	return nil
}

// CreateSession creates one remote conversation thread for a new chat
// session, stores its id for the session's lifetime, and sets the signed
// session cookie on the response. Returns the thread id.
func (s *Service) CreateSession(ctx context.Context, w http.ResponseWriter) (string, error) {
	thread, err := s.api.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", fmt.Errorf("create remote thread: %w", err)
	}

	sessionID := uuid.New().String()
	if err := s.store.Set(ctx, sessionID, thread.ID); err != nil {
		return "", fmt.Errorf("store session thread: %w", err)
	}

	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(cookieLifetime)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        sessionID,
		},
		SessionID: sessionID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(config.GetJWTSecret())
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}

	cookie := &http.Cookie{
		Name:     config.GetSessionCookieName(),
		Value:    signedToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Now().Add(cookieLifetime),
	}

	http.SetCookie(w, cookie)

	log.Info().
		Str("session_id", sessionID).
		Str("thread_id", thread.ID).
		Msg("Chat session started")

	return thread.ID, nil
}

// ResolveThread returns the remote thread id bound to the session cookie on
// r, or an empty string when no valid session exists.
func (s *Service) ResolveThread(ctx context.Context, r *http.Request) (string, error) {
	cookie, err := r.Cookie(config.GetSessionCookieName())
	if err != nil {
		if err == http.ErrNoCookie {
			return "", nil
		}
		return "", err
	}

	token, err := jwt.ParseWithClaims(cookie.Value, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return config.GetJWTSecret(), nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return "", nil
	}

	return s.store.Get(ctx, claims.SessionID)
}
