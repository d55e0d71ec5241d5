package client

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/sanposhin/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// HealthPinger pings the server's gRPC health service.
type HealthPinger struct {
	conn   *grpc.ClientConn
	client healthpb.HealthClient
}

func NewHealthPinger(endpoint string) (*HealthPinger, error) {
	conn, err := grpc.NewClient(endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	return &HealthPinger{conn: conn, client: healthpb.NewHealthClient(conn)}, nil
}

// Ping succeeds only when the server reports SERVING.
func (p *HealthPinger) Ping(ctx context.Context) error {
	resp, err := p.client.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return mapError(err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("%w: server reports %s", common.ErrUnavailable, resp.GetStatus())
	}
	return nil
}

func (p *HealthPinger) Close() error {
	return p.conn.Close()
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return common.ErrorUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return fmt.Errorf("%w: %s", common.ErrUnavailable, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
