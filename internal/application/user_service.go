package application

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/adiwijaya/identity-service/internal/domain/entity"
	repo "github.com/adiwijaya/identity-service/internal/domain/repository"
	"github.com/adiwijaya/identity-service/pkg/helpers"
)

var (
	ErrMissingField       = errors.New("email and password are required")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
)

// Identity event types published to the event queue.
const (
	EventUserRegistered = "user.registered"
	EventProfileUpdated = "user.profile_updated"
)

// Event is the message shape consumed by the audit worker.
type Event struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	At     string `json:"at"`
}

const profileCacheTTL = 10 * time.Minute

func profileKey(userID string) string {
	return "user:profile:" + userID
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// Service orchestrates the identity operations against the document store.
// It holds no mutable state between requests; Redis, the event publisher and
// Elasticsearch are optional side channels and never gate a store write.
type Service struct {
	Store        repo.UserStore
	Logger       *logrus.Logger
	Redis        *redis.Client
	Pub          *helpers.RabbitPublisher
	ES           *elasticsearch.Client
	ESUsersIndex string
}

func NewService(store repo.UserStore, logger *logrus.Logger, rdb *redis.Client, pub *helpers.RabbitPublisher, es *elasticsearch.Client, esUsersIndex string) *Service {
	return &Service{
		Store:        store,
		Logger:       logger,
		Redis:        rdb,
		Pub:          pub,
		ES:           es,
		ESUsersIndex: esUsersIndex,
	}
}

// Credentials is the only thing register and login ever echo back.
type Credentials struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Register creates a new identity record. The email-uniqueness check and the
// insert are separate store calls; two concurrent registrations with the same
// email can race, matching the documented contract.
func (s *Service) Register(ctx context.Context, email, password string) (*Credentials, error) {
	if email == "" || password == "" {
		return nil, ErrMissingField
	}

	existing, err := s.Store.FindByField(ctx, "email", email)
	if err != nil {
		s.logError("email lookup failed", err, logrus.Fields{"email": email})
		return nil, err
	}
	if len(existing) > 0 {
		return nil, ErrEmailTaken
	}

	u, err := entity.NewUser(email, password)
	if err != nil {
		return nil, err
	}

	if err := s.Store.Insert(ctx, u); err != nil {
		s.logError("insert user failed", err, logrus.Fields{"user_id": u.ID})
		return nil, err
	}

	s.publishEvent(ctx, EventUserRegistered, u.ID, u.Email)
	_ = s.indexUser(ctx, u)

	return &Credentials{ID: u.ID, Email: u.Email}, nil
}

// Login verifies credentials by exact comparison against the stored record.
// Unknown email and wrong password produce the same error so responses never
// disclose whether an account exists.
func (s *Service) Login(ctx context.Context, email, password string) (*Credentials, error) {
	if email == "" || password == "" {
		return nil, ErrMissingField
	}

	matches, err := s.Store.FindByField(ctx, "email", email)
	if err != nil {
		s.logError("email lookup failed", err, logrus.Fields{"email": email})
		return nil, err
	}
	if len(matches) == 0 || matches[0].Password != password {
		return nil, ErrInvalidCredentials
	}

	u := matches[0]
	return &Credentials{ID: u.ID, Email: u.Email}, nil
}

// GetProfile returns the sanitized record at id. A missing record and a
// failing store read both surface as ErrUserNotFound; the cause is logged.
func (s *Service) GetProfile(ctx context.Context, userID string) (map[string]any, error) {
	if s.Redis != nil {
		var cached map[string]any
		if hit, err := helpers.RedisGetJSON(ctx, s.Redis, profileKey(userID), &cached); err == nil && hit {
			return cached, nil
		}
	}

	u, err := s.Store.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			s.logError("profile read failed", err, logrus.Fields{"user_id": userID})
		}
		return nil, ErrUserNotFound
	}

	profile := u.Profile()
	s.cacheProfile(ctx, userID, profile)
	return profile, nil
}

// Fields that can never change through profile update.
var immutableFields = map[string]struct{}{
	"id":         {},
	"email":      {},
	"password":   {},
	"created_at": {},
	"updated_at": {},
}

// UpdateProfile merges the caller-supplied fields onto the stored record and
// replaces it unconditionally (last writer wins). Immutable keys are silently
// dropped. Any store failure surfaces as ErrUserNotFound, matching the
// collapse documented for reads.
func (s *Service) UpdateProfile(ctx context.Context, userID string, updates map[string]any) (map[string]any, error) {
	u, err := s.Store.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			s.logError("profile read failed", err, logrus.Fields{"user_id": userID})
		}
		return nil, ErrUserNotFound
	}

	for k, v := range updates {
		if _, skip := immutableFields[k]; skip {
			continue
		}
		if k == "active" {
			if b, ok := v.(bool); ok {
				u.Active = b
			}
			continue
		}
		if u.Extra == nil {
			u.Extra = map[string]any{}
		}
		u.Extra[k] = v
	}
	u.Touch()

	if err := s.Store.Replace(ctx, u); err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			s.logError("profile replace failed", err, logrus.Fields{"user_id": userID})
		}
		return nil, ErrUserNotFound
	}

	profile := u.Profile()
	s.cacheProfile(ctx, userID, profile)
	s.publishEvent(ctx, EventProfileUpdated, u.ID, u.Email)
	_ = s.indexUser(ctx, u)

	return profile, nil
}

func (s *Service) cacheProfile(ctx context.Context, userID string, profile map[string]any) {
	if s.Redis == nil {
		return
	}
	if err := helpers.RedisSetJSON(ctx, s.Redis, profileKey(userID), profile, profileCacheTTL); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("user_id", userID).Warn("profile cache write failed")
	}
}

func (s *Service) publishEvent(ctx context.Context, eventType, userID, email string) {
	if s.Pub == nil {
		return
	}
	ev := Event{Type: eventType, UserID: userID, Email: email, At: nowRFC3339()}
	if err := s.Pub.PublishJSON(ctx, ev); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("event", eventType).Warn("event publish failed")
	}
}

func (s *Service) indexUser(ctx context.Context, u *entity.User) error {
	if s.ES == nil || s.ESUsersIndex == "" {
		return nil
	}
	b, _ := json.Marshal(u.Profile())
	req := esapi.IndexRequest{Index: s.ESUsersIndex, DocumentID: u.ID, Body: strings.NewReader(string(b)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Warn("es index failed")
		}
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && s.Logger != nil {
		s.Logger.WithField("status", res.Status()).WithField("user_id", u.ID).Warn("es index response error")
	}
	return nil
}

// SearchUsers performs a simple match query over indexed emails.
func (s *Service) SearchUsers(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if s.ES == nil || s.ESUsersIndex == "" {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"match": map[string]any{
				"email": q,
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(s.ES.Search.WithContext(c), s.ES.Search.WithIndex(s.ESUsersIndex), s.ES.Search.WithBody(strings.NewReader(string(b))))
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}

func (s *Service) logError(msg string, err error, fields logrus.Fields) {
	if s.Logger == nil {
		return
	}
	s.Logger.WithError(err).WithFields(fields).Error(msg)
}
