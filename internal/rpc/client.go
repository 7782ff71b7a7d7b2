package rpc

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"batfit/pkg/fitness/chromosome"
	"batfit/pkg/fitness/core"
)

// CallTimeout bounds calls made without a caller deadline
const CallTimeout = 30 * time.Second

// Client calls a remote fitness service
type Client struct {
	cc   grpc.ClientConnInterface
	conn *grpc.ClientConn
}

// Dial connects to addr without transport security
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to fitness server at %s: %w", addr, err)
	}
	return &Client{cc: conn, conn: conn}, nil
}

// NewClient wraps an existing connection
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Close closes the connection if the client owns it
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// fromStatus maps gRPC codes back onto the fitness error taxonomy
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.InvalidArgument:
		return core.Errorf(core.ErrConfiguration, "remote: %s", st.Message())
	case codes.FailedPrecondition:
		return core.Errorf(core.ErrSequencing, "remote: %s", st.Message())
	case codes.Unavailable:
		return core.Errorf(core.ErrNotInitialized, "remote: %s", st.Message())
	case codes.Canceled:
		return fmt.Errorf("remote: %s: %w", st.Message(), context.Canceled)
	case codes.DeadlineExceeded:
		return fmt.Errorf("remote: %s: %w", st.Message(), context.DeadlineExceeded)
	default:
		return err
	}
}

// LoadCache sends a dataset and returns the new cache generation
func (c *Client) LoadCache(ctx context.Context, vectors []float32, chromoLen, dim int) (uint64, error) {
	out := new(wrapperspb.UInt64Value)
	if err := c.cc.Invoke(ctx, loadCacheMethod, wrapperspb.Bytes(EncodeLoad(vectors, chromoLen, dim)), out); err != nil {
		return 0, fromStatus(err)
	}
	return out.GetValue(), nil
}

// EvaluateBatch scores a packed batch remotely
func (c *Client) EvaluateBatch(ctx context.Context, chunks []uint32, chromoLen, dim, numBats int) ([]float64, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, evaluateBatchMethod, wrapperspb.Bytes(EncodeBatch(chunks, chromoLen, dim, numBats)), out); err != nil {
		return nil, fromStatus(err)
	}
	return chromosome.DecodeScores(out.GetValue())
}

// GetInfo returns the server's method and cache description
func (c *Client) GetInfo(ctx context.Context) (map[string]interface{}, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getInfoMethod, &emptypb.Empty{}, out); err != nil {
		return nil, fromStatus(err)
	}
	return out.AsMap(), nil
}

// RemoteMethod implements FitnessMethod against a remote fitness server, so
// tools such as the testbench can drive a deployed instance.
type RemoteMethod struct {
	client      *Client
	initialized atomic.Bool
}

// NewRemoteMethod creates a method backed by client
func NewRemoteMethod(client *Client) *RemoteMethod {
	return &RemoteMethod{client: client}
}

func (m *RemoteMethod) Name() string { return "remote" }

func (m *RemoteMethod) IsAvailable() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := m.client.GetInfo(ctx)
	return err == nil
}

// Initialize checks that the server answers
func (m *RemoteMethod) Initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), CallTimeout)
	defer cancel()
	if _, err := m.client.GetInfo(ctx); err != nil {
		return fmt.Errorf("remote fitness server: %w", err)
	}
	m.initialized.Store(true)
	return nil
}

func (m *RemoteMethod) Shutdown() error {
	m.initialized.Store(false)
	return m.client.Close()
}

func (m *RemoteMethod) LoadCache(vectors []float32, chromoLen, dim int) (float32, error) {
	if !m.initialized.Load() {
		return 0, core.ErrNotInitialized
	}
	ctx, cancel := context.WithTimeout(context.Background(), CallTimeout)
	defer cancel()
	if _, err := m.client.LoadCache(ctx, vectors, chromoLen, dim); err != nil {
		return 0, err
	}
	return core.CompletionSignal, nil
}

func (m *RemoteMethod) EvaluateBatch(ctx context.Context, chunks []uint32, chromoLen, dim, numBats int) ([]float64, error) {
	if !m.initialized.Load() {
		return nil, core.ErrNotInitialized
	}
	return m.client.EvaluateBatch(ctx, chunks, chromoLen, dim, numBats)
}

func (m *RemoteMethod) CacheInfo() core.CacheInfo {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	info, err := m.client.GetInfo(ctx)
	if err != nil {
		return core.CacheInfo{}
	}
	loaded, _ := info["loaded"].(bool)
	generation, _ := info["generation"].(float64)
	chromoLen, _ := info["chromo_len"].(float64)
	dim, _ := info["dim"].(float64)
	return core.CacheInfo{
		Loaded:     loaded,
		Generation: uint64(generation),
		ChromoLen:  int(chromoLen),
		Dim:        int(dim),
	}
}

func (m *RemoteMethod) GetCapabilities() *core.Capabilities {
	caps := &core.Capabilities{Name: m.Name(), Workers: 1}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	info, err := m.client.GetInfo(ctx)
	if err != nil {
		caps.Reason = err.Error()
		return caps
	}
	caps.HardwareNumerics, _ = info["hardware_numerics"].(bool)
	maxGenes, _ := info["max_genes"].(float64)
	maxDim, _ := info["max_dim"].(float64)
	maxBats, _ := info["max_bats"].(float64)
	caps.Limits = core.Limits{MaxGenes: int(maxGenes), MaxDim: int(maxDim), MaxBats: int(maxBats)}
	if method, ok := info["method"].(string); ok {
		caps.Reduction = "as served by " + method
	}
	return caps
}
