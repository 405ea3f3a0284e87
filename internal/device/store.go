package device

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/zentikhq/zentik-sync/internal/recovery"
	pkgerrors "github.com/zentikhq/zentik-sync/pkg/errors"
	"github.com/zentikhq/zentik-sync/pkg/logger"
)

// kv is the key-value surface the credential store needs; pkg/redis
// Client satisfies it.
type kv interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	DeviceKey(field string) string
}

// Credentials identify this device against the backend.
type Credentials struct {
	DeviceID string `json:"deviceId"`
	Token    string `json:"token"`
}

// Store keeps the device registration in the shared key-value store so
// companion processes authenticate with the same identity.
type Store struct {
	kv   kv
	logg *logger.Logger
}

// NewStore wires the credential store.
func NewStore(client kv, logg *logger.Logger) (*Store, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "key-value client required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &Store{kv: client, logg: logg}, nil
}

// Save persists the device credentials.
func (s *Store) Save(ctx context.Context, creds Credentials) error {
	if strings.TrimSpace(creds.DeviceID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "device id required")
	}
	if strings.TrimSpace(creds.Token) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "device token required")
	}

	payload, err := json.Marshal(creds)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode device credentials")
	}
	if err := s.kv.Set(ctx, s.kv.DeviceKey("credentials"), string(payload), 0); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store device credentials")
	}
	return nil
}

// Get returns the stored credentials, or found=false when the device
// has not registered yet.
func (s *Store) Get(ctx context.Context) (Credentials, bool, error) {
	raw, err := s.kv.Get(ctx, s.kv.DeviceKey("credentials"))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return Credentials{}, false, nil
		}
		return Credentials{}, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load device credentials")
	}

	var creds Credentials
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		return Credentials{}, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode device credentials")
	}
	return creds, true, nil
}

// Clear drops the stored credentials.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Del(ctx, s.kv.DeviceKey("credentials")); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear device credentials")
	}
	return nil
}

// BindBus drops credentials whenever the backend invalidates this
// device, so the next boot re-registers from scratch.
func (s *Store) BindBus(bus *recovery.Bus) *recovery.Subscription {
	if bus == nil {
		return nil
	}
	return bus.On(recovery.EventDeviceInvalidated, func(ctx context.Context, event recovery.Event) {
		if err := s.Clear(ctx); err != nil {
			s.logg.Error(ctx, "clearing invalidated device credentials", err)
			return
		}
		s.logg.Info(ctx, "device credentials cleared after invalidation")
	})
}
