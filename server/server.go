package server

import (
	"go.uber.org/zap"

	"github.com/phantom-spire/iam/rbac"
	"github.com/phantom-spire/iam/store"
)

// Server wires the authorization engine to its HTTP surface and optional
// collaborators. Store, Cache and Audit may be nil: the engine alone is a
// fully functional in-memory deployment; the rest is durability and speed.
type Server struct {
	Engine *rbac.Engine
	Store  *store.RBACStore
	Cache  *store.DecisionCache
	Audit  *store.BuntAuditLog
	Log    *zap.Logger
	JWTKey []byte
}

// NewServer creates a server around an engine. Collaborators are attached
// through the Set* methods before building the router.
func NewServer(engine *rbac.Engine) *Server {
	return &Server{Engine: engine, Log: zap.NewNop()}
}

func (s *Server) SetLogger(log *zap.Logger)         { s.Log = log }
func (s *Server) SetStore(st *store.RBACStore)      { s.Store = st }
func (s *Server) SetCache(c *store.DecisionCache)   { s.Cache = c }
func (s *Server) SetAuditLog(a *store.BuntAuditLog) { s.Audit = a }
func (s *Server) SetJWTKey(key []byte)              { s.JWTKey = key }
