package persona

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	nats "github.com/nats-io/nats.go"
	opentracing "github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	otlog "github.com/opentracing/opentracing-go/log"
	"github.com/tutumagi/soul/config"
	"github.com/tutumagi/soul/logger"
	"github.com/tutumagi/soul/metrics"
	"go.uber.org/zap"
)

const (
	kindDecision = "decision"
	kindSummary  = "summary"
	queueGroup   = "persona"
)

var (
	// ErrEmptyReply the service answered without the requested payload
	ErrEmptyReply = errors.New("persona: empty reply")
	// ErrRemote the service reported a failure
	ErrRemote = errors.New("persona: remote error")
)

type request struct {
	Kind    string            `json:"kind"`
	Trace   map[string]string `json:"trace,omitempty"`
	Context AgentContext      `json:"context"`
}

type reply struct {
	Decision *Decision `json:"decision,omitempty"`
	Summary  *Summary  `json:"summary,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// NatsClient sends persona requests as NATS request/reply messages.
type NatsClient struct {
	conn      *nats.Conn
	subject   string
	owned     bool
	reporters metrics.Reporters
}

// NewNatsClient connects to cfg.NatsURL
func NewNatsClient(cfg config.PersonaConfig, reporters ...metrics.Reporter) (*NatsClient, error) {
	conn, err := nats.Connect(cfg.NatsURL,
		nats.Name("soul-persona-client"),
		nats.MaxReconnects(cfg.MaxRetry),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("persona nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("persona nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			if err := nc.LastError(); err != nil {
				logger.Warn("persona nats connection closed", zap.Error(err))
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("persona: connect %s: %w", cfg.NatsURL, err)
	}
	c := NewNatsClientWithConn(conn, cfg.NatsSubject, reporters...)
	c.owned = true
	return c, nil
}

// NewNatsClientWithConn uses an existing connection, Close leaves it open.
func NewNatsClientWithConn(conn *nats.Conn, subject string, reporters ...metrics.Reporter) *NatsClient {
	return &NatsClient{conn: conn, subject: subject, reporters: reporters}
}

// Decide asks what the agent should do next
func (c *NatsClient) Decide(ctx context.Context, in AgentContext) (Decision, error) {
	var out reply
	if err := c.call(ctx, kindDecision, in, &out); err != nil {
		return Decision{}, err
	}
	if out.Decision == nil {
		return Decision{}, ErrEmptyReply
	}
	return out.Decision.Normalize(), nil
}

// Summarize asks for a summary of the agent's observations
func (c *NatsClient) Summarize(ctx context.Context, in AgentContext) (Summary, error) {
	var out reply
	if err := c.call(ctx, kindSummary, in, &out); err != nil {
		return Summary{}, err
	}
	if out.Summary == nil {
		return Summary{}, ErrEmptyReply
	}
	return *out.Summary, nil
}

func (c *NatsClient) call(ctx context.Context, kind string, in AgentContext, out *reply) (err error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "persona."+kind, opentracing.Tags{
		"span.kind":    "client",
		"peer.service": "persona",
		"agent":        in.FullName,
	})
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			ext.Error.Set(span, true)
			span.LogFields(otlog.Error(err))
		}
		span.Finish()
		c.reporters.Since(metrics.PersonaLatency, map[string]string{"kind": kind, "outcome": outcome}, start)
	}()

	req := request{Kind: kind, Context: in, Trace: map[string]string{}}
	_ = opentracing.GlobalTracer().Inject(span.Context(), opentracing.TextMap, opentracing.TextMapCarrier(req.Trace))

	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	msg, err := c.conn.RequestWithContext(ctx, c.subject, data)
	if err != nil {
		return fmt.Errorf("persona: %s request: %w", kind, err)
	}
	if err := json.Unmarshal(msg.Data, out); err != nil {
		return fmt.Errorf("persona: decode %s reply: %w", kind, err)
	}
	if out.Error != "" {
		return fmt.Errorf("%w: %s", ErrRemote, out.Error)
	}
	return nil
}

// Close the connection if the client opened it
func (c *NatsClient) Close() error {
	if c.owned {
		c.conn.Close()
	}
	return nil
}

// Serve answers persona requests on subject with backend. Several servers
// share the load through a queue group.
func Serve(conn *nats.Conn, subject string, backend Client) (*nats.Subscription, error) {
	return conn.QueueSubscribe(subject, queueGroup, func(msg *nats.Msg) {
		out := handle(msg.Data, backend)
		data, err := json.Marshal(out)
		if err != nil {
			logger.Error("encode persona reply failed", zap.Error(err))
			return
		}
		if err := msg.Respond(data); err != nil {
			logger.Warn("persona respond failed", zap.Error(err))
		}
	})
}

func handle(data []byte, backend Client) (out reply) {
	var req request
	if err := json.Unmarshal(data, &req); err != nil {
		out.Error = err.Error()
		return
	}

	ctx := context.Background()
	if parent, err := opentracing.GlobalTracer().Extract(opentracing.TextMap, opentracing.TextMapCarrier(req.Trace)); err == nil {
		span := opentracing.StartSpan("persona.serve."+req.Kind, ext.RPCServerOption(parent))
		defer span.Finish()
		ctx = opentracing.ContextWithSpan(ctx, span)
	}

	switch req.Kind {
	case kindDecision:
		d, err := backend.Decide(ctx, req.Context)
		if err != nil {
			out.Error = err.Error()
			return
		}
		out.Decision = &d
	case kindSummary:
		s, err := backend.Summarize(ctx, req.Context)
		if err != nil {
			out.Error = err.Error()
			return
		}
		out.Summary = &s
	default:
		out.Error = fmt.Sprintf("unknown request kind %q", req.Kind)
	}
	return
}
