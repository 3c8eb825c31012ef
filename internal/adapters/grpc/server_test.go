// internal/adapters/grpc/server_test.go
package grpc

import (
	"context"
	"net"
	"sync/atomic"
	"testing"

	"github.com/juju/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	rpb "google.golang.org/grpc/reflection/grpc_reflection_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/domain"
	"github.com/mahabubulhasibshawon/coffeeshop-pos/pkg/auth"
)

const bufSize = 1024 * 1024

type fakeAuthenticator struct {
	AuthenticateFunc func(ctx context.Context, token string) (*domain.User, *auth.Claims, error)
}

func (f *fakeAuthenticator) Authenticate(ctx context.Context, token string) (*domain.User, *auth.Claims, error) {
	return f.AuthenticateFunc(ctx, token)
}

// tokens maps fixed test tokens to users.
func tokens() *fakeAuthenticator {
	return &fakeAuthenticator{AuthenticateFunc: func(_ context.Context, token string) (*domain.User, *auth.Claims, error) {
		switch token {
		case "admin-token":
			return &domain.User{ID: 1, Role: domain.RoleAdmin, IsActive: true}, &auth.Claims{UserID: 1}, nil
		case "cashier-token":
			return &domain.User{ID: 2, Role: domain.RoleCashier, IsActive: true}, &auth.Claims{UserID: 2}, nil
		case "broken":
			return nil, nil, errors.New("redis: connection refused")
		}
		return nil, nil, errors.NewUnauthorized(nil, "Invalid token")
	}}
}

func setupTestServer(t *testing.T, probes []Probe) (*Server, *grpc.ClientConn) {
	lis := bufconn.Listen(bufSize)
	srv := NewServer(tokens(), probes, nil)
	go func() {
		if err := srv.Serve(lis); err != nil {
			t.Logf("server stopped: %v", err)
		}
	}()

	conn, err := grpc.DialContext(context.Background(), "bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.Dial()
	}), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("Failed to dial bufnet: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
		srv.Shutdown()
	})
	return srv, conn
}

func TestHealth(t *testing.T) {
	var redisDown atomic.Bool
	redisDown.Store(true)
	probes := []Probe{
		{Service: "postgres", Check: func(context.Context) error { return nil }},
		{Service: "redis", Check: func(context.Context) error {
			if redisDown.Load() {
				return errors.New("dial tcp 127.0.0.1:6379: connection refused")
			}
			return nil
		}},
	}
	srv, conn := setupTestServer(t, probes)
	client := healthpb.NewHealthClient(conn)
	ctx := context.Background()

	if srv.CheckOnce(ctx) {
		t.Fatal("CheckOnce() = true with redis down")
	}

	tests := []struct {
		service string
		want    healthpb.HealthCheckResponse_ServingStatus
	}{
		{"", healthpb.HealthCheckResponse_NOT_SERVING},
		{"postgres", healthpb.HealthCheckResponse_SERVING},
		{"redis", healthpb.HealthCheckResponse_NOT_SERVING},
	}
	for _, tt := range tests {
		t.Run("service="+tt.service, func(t *testing.T) {
			// health checks need no token
			resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: tt.service})
			if err != nil {
				t.Fatalf("Check(%q) error = %v", tt.service, err)
			}
			if resp.Status != tt.want {
				t.Errorf("Check(%q) = %v, want %v", tt.service, resp.Status, tt.want)
			}
		})
	}

	redisDown.Store(false)
	if !srv.CheckOnce(ctx) {
		t.Fatal("CheckOnce() = false after recovery")
	}
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil || resp.Status != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("Check() = %v, %v after recovery", resp, err)
	}

	_, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: "mongodb"})
	if status.Code(err) != codes.NotFound {
		t.Errorf("Check(unknown) code = %v, want NotFound", status.Code(err))
	}
}

func TestReflectionRequiresAdmin(t *testing.T) {
	_, conn := setupTestServer(t, nil)
	client := rpb.NewServerReflectionClient(conn)

	tests := []struct {
		name     string
		token    string
		wantCode codes.Code
	}{
		{"No token", "", codes.Unauthenticated},
		{"Invalid token", "garbage", codes.Unauthenticated},
		{"Cashier", "cashier-token", codes.PermissionDenied},
		{"Store down", "broken", codes.Internal},
		{"Admin", "admin-token", codes.OK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.token != "" {
				ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+tt.token)
			}
			stream, err := client.ServerReflectionInfo(ctx)
			if err != nil {
				t.Fatalf("ServerReflectionInfo() error = %v", err)
			}
			// a rejected stream surfaces its status on Recv
			_ = stream.Send(&rpb.ServerReflectionRequest{
				MessageRequest: &rpb.ServerReflectionRequest_ListServices{ListServices: "*"},
			})
			resp, err := stream.Recv()
			if got := status.Code(err); got != tt.wantCode {
				t.Fatalf("Recv() code = %v, want %v (%v)", got, tt.wantCode, err)
			}
			if tt.wantCode != codes.OK {
				return
			}
			found := false
			for _, s := range resp.GetListServicesResponse().GetService() {
				if s.Name == "grpc.health.v1.Health" {
					found = true
				}
			}
			if !found {
				t.Errorf("services = %v, want grpc.health.v1.Health", resp.GetListServicesResponse())
			}
			stream.CloseSend()
		})
	}
}

func TestAuthInterceptor_PassesUser(t *testing.T) {
	interceptor := AuthInterceptor(tokens())
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer admin-token"))

	var seen *domain.User
	_, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/pos.Admin/Reload"},
		func(ctx context.Context, req interface{}) (interface{}, error) {
			seen, _ = UserFromContext(ctx)
			return nil, nil
		})
	if err != nil {
		t.Fatalf("interceptor error = %v", err)
	}
	if seen == nil || seen.ID != 1 {
		t.Errorf("UserFromContext() = %+v, want admin", seen)
	}

	_, err = interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/pos.Admin/Reload"},
		func(ctx context.Context, req interface{}) (interface{}, error) {
			t.Error("handler called without metadata")
			return nil, nil
		})
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("code = %v, want Unauthenticated", status.Code(err))
	}
}
