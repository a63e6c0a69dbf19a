package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	valkey "github.com/valkey-io/valkey-go"

	"github.com/phantom-spire/iam/rbac"
)

// DecisionCache caches a user's effective permission set in Valkey
// (Redis-compatible) for the hot effective-permission read path. Entries
// carry a short TTL and are invalidated explicitly when that user's
// assignments change; role-graph edits are covered by the TTL alone, so a
// stale entry can outlive a role edit by at most one TTL window.
type DecisionCache struct {
	client valkey.Client
	prefix string
	ttl    time.Duration
}

// NewDecisionCache connects to Valkey at addr. prefix namespaces keys; an
// empty prefix defaults to "iam:".
func NewDecisionCache(addr, prefix string, ttl time.Duration) (*DecisionCache, error) {
	cli, err := valkey.NewClient(valkey.ClientOption{InitAddress: []string{addr}})
	if err != nil {
		return nil, err
	}
	if prefix == "" {
		prefix = "iam:"
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &DecisionCache{client: cli, prefix: prefix, ttl: ttl}, nil
}

func (c *DecisionCache) Close() { c.client.Close() }

// userKey hashes the user id so arbitrary external identifiers cannot produce
// unbounded or malformed key names.
func (c *DecisionCache) userKey(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return c.prefix + "perms:" + hex.EncodeToString(sum[:])
}

// GetUserPermissions returns the cached effective set, if present.
func (c *DecisionCache) GetUserPermissions(ctx context.Context, userID string) ([]rbac.Permission, bool) {
	raw, err := c.client.Do(ctx, c.client.B().Get().Key(c.userKey(userID)).Build()).AsBytes()
	if err != nil {
		return nil, false
	}
	var perms []rbac.Permission
	if err := json.Unmarshal(raw, &perms); err != nil {
		return nil, false
	}
	return perms, true
}

// SetUserPermissions stores the effective set with the cache TTL.
func (c *DecisionCache) SetUserPermissions(ctx context.Context, userID string, perms []rbac.Permission) error {
	jv, err := json.Marshal(perms)
	if err != nil {
		return err
	}
	return c.client.Do(ctx, c.client.B().Set().Key(c.userKey(userID)).Value(string(jv)).Ex(c.ttl).Build()).Error()
}

// Invalidate drops the cached set for one user.
func (c *DecisionCache) Invalidate(ctx context.Context, userID string) error {
	return c.client.Do(ctx, c.client.B().Del().Key(c.userKey(userID)).Build()).Error()
}
