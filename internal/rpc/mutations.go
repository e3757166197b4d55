// Package rpc describes the mutation service shared by the client and the
// development backend. Messages are google.protobuf.Struct values, so the
// service is declared by hand instead of generated from a .proto file.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "clipsync.mutations.v1.Mutations"

const (
	MethodInsertRow     = "/" + ServiceName + "/InsertRow"
	MethodDeleteRows    = "/" + ServiceName + "/DeleteRows"
	MethodPresignUpload = "/" + ServiceName + "/PresignUpload"
)

// MutationsServer is implemented by the backend.
type MutationsServer interface {
	InsertRow(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	DeleteRows(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	PresignUpload(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc is the grpc.ServiceDesc for the mutation service.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MutationsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "InsertRow", Handler: unaryHandler(MethodInsertRow, MutationsServer.InsertRow)},
		{MethodName: "DeleteRows", Handler: unaryHandler(MethodDeleteRows, MutationsServer.DeleteRows)},
		{MethodName: "PresignUpload", Handler: unaryHandler(MethodPresignUpload, MutationsServer.PresignUpload)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "clipsync/mutations/v1/mutations.proto",
}

// RegisterMutationsServer registers srv on s.
func RegisterMutationsServer(s grpc.ServiceRegistrar, srv MutationsServer) {
	s.RegisterService(&ServiceDesc, srv)
}

type method func(MutationsServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, m method) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return m(srv.(MutationsServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return m(srv.(MutationsServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// MutationsClient calls the mutation service over a client connection.
type MutationsClient struct {
	cc grpc.ClientConnInterface
}

func NewMutationsClient(cc grpc.ClientConnInterface) *MutationsClient {
	return &MutationsClient{cc: cc}
}

func (c *MutationsClient) InsertRow(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodInsertRow, in, opts...)
}

func (c *MutationsClient) DeleteRows(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodDeleteRows, in, opts...)
}

func (c *MutationsClient) PresignUpload(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodPresignUpload, in, opts...)
}

func (c *MutationsClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
