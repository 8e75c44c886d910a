package handler

import (
	"context"
	"fmt"
	"net"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"duelarena/internal/protocol"
)

const PresenceServiceName = "arena.relay.Presence"

// PeerSource supplies the current relay membership.
type PeerSource interface {
	Peers(ctx context.Context) ([]protocol.PeerRecord, error)
}

// PresenceService is the admin view of the relay.
type PresenceService interface {
	ListPeers(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	CountPeers(context.Context, *emptypb.Empty) (*wrapperspb.Int64Value, error)
}

type PresenceServer struct {
	src PeerSource
}

func NewPresenceServer(src PeerSource) *PresenceServer {
	return &PresenceServer{src: src}
}

func (s *PresenceServer) ListPeers(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	peers, err := s.src.Peers(ctx)
	if err != nil {
		return nil, status.Errorf(codes.Unavailable, "list peers: %v", err)
	}
	list := make([]any, 0, len(peers))
	for _, p := range peers {
		list = append(list, map[string]any{
			"id":    p.ID,
			"x":     p.X,
			"y":     p.Y,
			"angle": p.Angle,
		})
	}
	out, err := structpb.NewStruct(map[string]any{"peers": list})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode peers: %v", err)
	}
	return out, nil
}

// PeersFromStruct reads a ListPeers reply back into records. Entries without
// an id are skipped.
func PeersFromStruct(st *structpb.Struct) []protocol.PeerRecord {
	values := st.GetFields()["peers"].GetListValue().GetValues()
	out := make([]protocol.PeerRecord, 0, len(values))
	for _, v := range values {
		f := v.GetStructValue().GetFields()
		id := f["id"].GetStringValue()
		if id == "" {
			continue
		}
		out = append(out, protocol.PeerRecord{
			ID:    id,
			X:     f["x"].GetNumberValue(),
			Y:     f["y"].GetNumberValue(),
			Angle: f["angle"].GetNumberValue(),
		})
	}
	return out
}

func (s *PresenceServer) CountPeers(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.Int64Value, error) {
	peers, err := s.src.Peers(ctx)
	if err != nil {
		return nil, status.Errorf(codes.Unavailable, "count peers: %v", err)
	}
	return wrapperspb.Int64(int64(len(peers))), nil
}

func listPeersHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PresenceService).ListPeers(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + PresenceServiceName + "/ListPeers"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(PresenceService).ListPeers(ctx, req.(*emptypb.Empty))
	})
}

func countPeersHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PresenceService).CountPeers(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + PresenceServiceName + "/CountPeers"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(PresenceService).CountPeers(ctx, req.(*emptypb.Empty))
	})
}

// PresenceServiceDesc describes the service using protobuf well-known types,
// so no generated stubs are needed.
var PresenceServiceDesc = grpc.ServiceDesc{
	ServiceName: PresenceServiceName,
	HandlerType: (*PresenceService)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListPeers", Handler: listPeersHandler},
		{MethodName: "CountPeers", Handler: countPeersHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "arena/relay/presence.proto",
}

func RegisterPresenceServer(s grpc.ServiceRegistrar, srv PresenceService) {
	s.RegisterService(&PresenceServiceDesc, srv)
}

// PresenceClient calls the service over an existing connection.
type PresenceClient struct {
	cc grpc.ClientConnInterface
}

func NewPresenceClient(cc grpc.ClientConnInterface) *PresenceClient {
	return &PresenceClient{cc: cc}
}

func (c *PresenceClient) ListPeers(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	err := c.cc.Invoke(ctx, "/"+PresenceServiceName+"/ListPeers", &emptypb.Empty{}, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *PresenceClient) CountPeers(ctx context.Context, opts ...grpc.CallOption) (int64, error) {
	out := new(wrapperspb.Int64Value)
	err := c.cc.Invoke(ctx, "/"+PresenceServiceName+"/CountPeers", &emptypb.Empty{}, out, opts...)
	if err != nil {
		return 0, err
	}
	return out.GetValue(), nil
}

// NewServer returns a gRPC server with the presence service registered.
func NewServer(src PeerSource) *grpc.Server {
	s := grpc.NewServer()
	RegisterPresenceServer(s, NewPresenceServer(src))
	return s
}

// StartGRPC serves the presence service on port until the server stops.
func StartGRPC(s *grpc.Server, port int) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return err
	}
	logrus.WithField("component", "grpc").Infof("presence service listening on :%d", port)
	return s.Serve(lis)
}
