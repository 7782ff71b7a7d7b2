package rpc

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"batfit/internal/logging"
	"batfit/internal/service"
	"batfit/pkg/fitness/chromosome"
	"batfit/pkg/fitness/core"
)

// FitnessServer implements FitnessServiceServer over a service.Service
type FitnessServer struct {
	svc *service.Service
}

// NewFitnessServer creates a gRPC front for svc
func NewFitnessServer(svc *service.Service) *FitnessServer {
	return &FitnessServer{svc: svc}
}

// NewGRPCServer builds a grpc.Server with the fitness service registered
func NewGRPCServer(svc *service.Service, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(recoveryInterceptor, loggingInterceptor)}, opts...)
	s := grpc.NewServer(opts...)
	RegisterFitnessServiceServer(s, NewFitnessServer(svc))
	return s
}

func loggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	logging.Default().Debug("grpc %s %s err=%v", info.FullMethod, time.Since(start), err)
	return resp, err
}

// recoveryInterceptor turns a handler panic into codes.Internal so one request
// cannot take the server down
func recoveryInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.Default().Error("grpc %s: panic recovered: %v", info.FullMethod, r)
			resp, err = nil, status.Errorf(codes.Internal, "internal server error")
		}
	}()
	return handler(ctx, req)
}

// toStatus maps the fitness error taxonomy onto gRPC codes
func toStatus(err error) error {
	switch {
	case errors.Is(err, core.ErrConfiguration), errors.Is(err, core.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, core.ErrSequencing):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, core.ErrNotInitialized):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Errorf(codes.Internal, "fitness: %v", err)
	}
}

// LoadCache implements the cache load
func (s *FitnessServer) LoadCache(ctx context.Context, req *wrapperspb.BytesValue) (*wrapperspb.UInt64Value, error) {
	vectors, chromoLen, dim, err := DecodeLoad(req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	res, err := s.svc.LoadCache(vectors, chromoLen, dim)
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.UInt64(res.Generation), nil
}

// EvaluateBatch implements batch scoring
func (s *FitnessServer) EvaluateBatch(ctx context.Context, req *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	chunks, chromoLen, dim, numBats, err := DecodeBatch(req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	res, err := s.svc.Evaluate(ctx, chunks, chromoLen, dim, numBats)
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.Bytes(chromosome.EncodeScores(res.Scores)), nil
}

// GetInfo describes the method and its cache
func (s *FitnessServer) GetInfo(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	health := s.svc.Health()
	info, err := structpb.NewStruct(map[string]interface{}{
		"method":            health.Method,
		"hardware_numerics": health.Hardware,
		"max_genes":         health.Limits.MaxGenes,
		"max_dim":           health.Limits.MaxDim,
		"max_bats":          health.Limits.BatchLimit(),
		"loaded":            health.Cache.Loaded,
		"generation":        float64(health.Cache.Generation),
		"chromo_len":        health.Cache.ChromoLen,
		"dim":               health.Cache.Dim,
		"uptime":            health.Uptime,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build info: %v", err)
	}
	return info, nil
}
