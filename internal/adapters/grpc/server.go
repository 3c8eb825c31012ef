// internal/adapters/grpc/server.go
package grpc

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/domain"
	"github.com/mahabubulhasibshawon/coffeeshop-pos/pkg/auth"
)

var logger = loggo.GetLogger("pos.grpc")

// Authenticator resolves a bearer token. application.AuthService implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.User, *auth.Claims, error)
}

// Probe checks one dependency. Its Service name is what health clients ask for.
type Probe struct {
	Service string
	Check   func(ctx context.Context) error
}

// Server is the operations endpoint: health checking for load balancers and
// authenticated reflection for tooling.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	probes []Probe
	clock  clock.Clock

	mu       sync.Mutex
	failures map[string]string
}

func NewServer(authn Authenticator, probes []Probe, clk clock.Clock) *Server {
	if clk == nil {
		clk = clock.WallClock
	}
	s := &Server{
		grpc: grpc.NewServer(
			grpc.UnaryInterceptor(AuthInterceptor(authn)),
			grpc.StreamInterceptor(AuthStreamInterceptor(authn)),
		),
		health:   health.NewServer(),
		probes:   probes,
		clock:    clk,
		failures: make(map[string]string),
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	reflection.Register(s.grpc)
	return s
}

// CheckOnce runs every probe and publishes the results. The overall ""
// service is serving only while all probes pass.
func (s *Server) CheckOnce(ctx context.Context) bool {
	healthy := true
	for _, p := range s.probes {
		st := healthpb.HealthCheckResponse_SERVING
		err := p.Check(ctx)
		if err != nil {
			st = healthpb.HealthCheckResponse_NOT_SERVING
			healthy = false
		}
		s.record(p.Service, err)
		s.health.SetServingStatus(p.Service, st)
	}
	overall := healthpb.HealthCheckResponse_SERVING
	if !healthy {
		overall = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", overall)
	return healthy
}

// record logs a probe only when its state changes.
func (s *Server) record(service string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, failing := s.failures[service]
	switch {
	case err != nil && (!failing || prev != err.Error()):
		logger.Warningf("health probe %s failing: %v", service, err)
		s.failures[service] = err.Error()
	case err == nil && failing:
		logger.Infof("health probe %s recovered", service)
		delete(s.failures, service)
	}
}

// Run repeats the probes every interval until ctx is done.
func (s *Server) Run(ctx context.Context, interval time.Duration) {
	for {
		s.CheckOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(interval):
		}
	}
}

func (s *Server) Serve(lis net.Listener) error {
	logger.Infof("gRPC server listening on %s", lis.Addr())
	return s.grpc.Serve(lis)
}

// Shutdown reports NOT_SERVING to watchers and drains open calls.
func (s *Server) Shutdown() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}

const healthPrefix = "/grpc.health.v1.Health/"

func publicMethod(fullMethod string) bool {
	return strings.HasPrefix(fullMethod, healthPrefix)
}

type userKey struct{}

// UserFromContext returns the caller resolved by the interceptors.
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	u, ok := ctx.Value(userKey{}).(*domain.User)
	return u, ok
}

func authorize(ctx context.Context, authn Authenticator) (context.Context, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing metadata")
	}
	header := md.Get("authorization")
	if len(header) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing authorization")
	}
	token := strings.TrimSpace(strings.TrimPrefix(header[0], "Bearer "))
	user, _, err := authn.Authenticate(ctx, token)
	if err != nil {
		if errors.Is(err, errors.Unauthorized) {
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}
		logger.Errorf("authenticating gRPC call: %s", errors.ErrorStack(err))
		return nil, status.Error(codes.Internal, "authentication unavailable")
	}
	if !user.IsAdmin() {
		return nil, status.Error(codes.PermissionDenied, "Access denied. Insufficient permissions.")
	}
	return context.WithValue(ctx, userKey{}, user), nil
}

// AuthInterceptor lets health checks through and requires an admin bearer
// token in the "authorization" metadata for everything else.
func AuthInterceptor(authn Authenticator) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if publicMethod(info.FullMethod) {
			return handler(ctx, req)
		}
		ctx, err := authorize(ctx, authn)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

type authedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *authedStream) Context() context.Context { return s.ctx }

func AuthStreamInterceptor(authn Authenticator) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if publicMethod(info.FullMethod) {
			return handler(srv, ss)
		}
		ctx, err := authorize(ss.Context(), authn)
		if err != nil {
			return err
		}
		return handler(srv, &authedStream{ServerStream: ss, ctx: ctx})
	}
}
