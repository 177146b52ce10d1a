package receiver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"
	collogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/peer"
)

// ingest is the part shared by the gRPC and HTTP receivers.
type ingest struct {
	rec    Recorder
	logger *zap.Logger
	trace  Logger
	now    func() time.Time
}

type Option func(*ingest)

func WithLogger(l *zap.Logger) Option {
	return func(in *ingest) {
		if l != nil {
			in.logger = l
		}
	}
}

// WithTrace sets the raw trace logger, typically a FileLogger behind -debug.
func WithTrace(l Logger) Option {
	return func(in *ingest) {
		if l != nil {
			in.trace = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(in *ingest) { in.now = now }
}

func newIngest(rec Recorder, name string, opts []Option) ingest {
	in := ingest{
		rec:    rec,
		logger: zap.NewNop(),
		trace:  NopLogger{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&in)
	}
	in.logger = in.logger.Named(name)
	return in
}

func (in *ingest) accept(source string, req *collogspb.ExportLogsServiceRequest) int {
	recs, ignored := Extract(req, in.now())
	for _, rec := range recs {
		in.rec.Record(rec)
		in.trace.LogUsage(source, rec)
	}
	in.trace.LogIgnored(source, ignored)
	return len(recs)
}

// GRPCReceiver serves the OTLP LogsService.
type GRPCReceiver struct {
	collogspb.UnimplementedLogsServiceServer
	ingest

	bind     string
	port     int
	server   *grpc.Server
	listener net.Listener
}

func NewGRPCReceiver(bind string, port int, rec Recorder, opts ...Option) *GRPCReceiver {
	return &GRPCReceiver{
		ingest: newIngest(rec, "grpc", opts),
		bind:   bind,
		port:   port,
	}
}

// Start binds the listener and serves in the background. Serving stops when
// ctx is cancelled or Stop is called.
func (r *GRPCReceiver) Start(ctx context.Context) error {
	addr := net.JoinHostPort(r.bind, strconv.Itoa(r.port))
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return fmt.Errorf("port %d already in use", r.port)
		}
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	r.serve(lis)

	go func() {
		<-ctx.Done()
		r.Stop()
	}()
	return nil
}

func (r *GRPCReceiver) serve(lis net.Listener) {
	r.listener = lis
	r.server = grpc.NewServer()
	collogspb.RegisterLogsServiceServer(r.server, r)

	go func() {
		if err := r.server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			r.logger.Error("gRPC server stopped", zap.Error(err))
		}
	}()
	r.logger.Info("OTLP gRPC receiver listening", zap.String("addr", lis.Addr().String()))
}

func (r *GRPCReceiver) Stop() {
	if r.server != nil {
		r.server.GracefulStop()
	}
}

func (r *GRPCReceiver) Addr() net.Addr {
	if r.listener == nil {
		return nil
	}
	return r.listener.Addr()
}

func (r *GRPCReceiver) Export(ctx context.Context, req *collogspb.ExportLogsServiceRequest) (*collogspb.ExportLogsServiceResponse, error) {
	n := r.accept("grpc", req)
	if p, ok := peer.FromContext(ctx); ok {
		r.logger.Debug("export", zap.Stringer("peer", p.Addr), zap.Int("records", n))
	}
	return &collogspb.ExportLogsServiceResponse{}, nil
}
