package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	ServiceName = "batfit.v1.FitnessService"

	loadCacheMethod     = "/" + ServiceName + "/LoadCache"
	evaluateBatchMethod = "/" + ServiceName + "/EvaluateBatch"
	getInfoMethod       = "/" + ServiceName + "/GetInfo"
)

// FitnessServiceServer is the server API for the fitness service. Payloads use
// protobuf well-known types, so no generated stubs are needed.
type FitnessServiceServer interface {
	LoadCache(context.Context, *wrapperspb.BytesValue) (*wrapperspb.UInt64Value, error)
	EvaluateBatch(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	GetInfo(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// RegisterFitnessServiceServer attaches srv to s
func RegisterFitnessServiceServer(s grpc.ServiceRegistrar, srv FitnessServiceServer) {
	s.RegisterService(&FitnessService_ServiceDesc, srv)
}

func _FitnessService_LoadCache_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FitnessServiceServer).LoadCache(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: loadCacheMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(FitnessServiceServer).LoadCache(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _FitnessService_EvaluateBatch_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FitnessServiceServer).EvaluateBatch(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: evaluateBatchMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(FitnessServiceServer).EvaluateBatch(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _FitnessService_GetInfo_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FitnessServiceServer).GetInfo(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getInfoMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(FitnessServiceServer).GetInfo(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// FitnessService_ServiceDesc is the grpc.ServiceDesc for the fitness service
var FitnessService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FitnessServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "LoadCache", Handler: _FitnessService_LoadCache_Handler},
		{MethodName: "EvaluateBatch", Handler: _FitnessService_EvaluateBatch_Handler},
		{MethodName: "GetInfo", Handler: _FitnessService_GetInfo_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "batfit/v1/fitness.proto",
}
