package propagate

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/StricklySoft/faultline/pkg/audit"
	"github.com/StricklySoft/faultline/pkg/catalog"
	"github.com/StricklySoft/faultline/pkg/fault"
)

// tracerName is the OpenTelemetry instrumentation scope name for this package.
const tracerName = "github.com/StricklySoft/faultline/pkg/propagate"

// Classification names dispatch outcomes; they appear as span attributes and
// drive which composition path runs.
type Classification string

const (
	ClassReentry            Classification = "Reentry"
	ClassUserDefined        Classification = "UserDefined"
	ClassKnownHostFailure   Classification = "KnownHostFailure"
	ClassUnknownHostFailure Classification = "UnknownHostFailure"
)

// Dispatcher runs the propagation decision procedure. It holds the read-only
// catalog snapshot and configuration shared by concurrent frames; it never
// mutates them. Construct with [NewDispatcher] and the chainable With
// methods, then share freely.
type Dispatcher struct {
	catalog  *catalog.Snapshot
	cfg      Config
	recorder *audit.Recorder
	namer    catalog.ProcedureNamer
	debug    bool
	tracer   trace.Tracer
}

// NewDispatcher creates a dispatcher over a catalog snapshot. A nil cfg uses
// [DefaultConfig]. The configuration is validated; an invalid one returns an
// error.
func NewDispatcher(snap *catalog.Snapshot, cfg *Config) (*Dispatcher, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Dispatcher{
		catalog: snap,
		cfg:     *cfg,
		tracer:  otel.Tracer(tracerName),
	}, nil
}

// WithRecorder attaches an audit recorder. Without one, dispatch skips the
// audit update.
func (d *Dispatcher) WithRecorder(r *audit.Recorder) *Dispatcher {
	d.recorder = r
	return d
}

// WithProcedureNamer attaches a resolver for numeric procedure identifiers
// found in caller-supplied token sets.
func (d *Dispatcher) WithProcedureNamer(n catalog.ProcedureNamer) *Dispatcher {
	d.namer = n
	return d
}

// WithDebugDisplay controls whether developer messages are included on
// nodes this dispatcher builds. Feed it the DebugDisplay setting.
func (d *Dispatcher) WithDebugDisplay(enabled bool) *Dispatcher {
	d.debug = enabled
	return d
}

// Wrap turns signaled text into a failure tree. Text that carries the tree
// element marker and decodes cleanly is used as-is: a deeper frame already
// produced a structured failure. Anything else is an opaque message from a
// non-participating source; a new leaf is synthesized from the fallback
// UnknownError entry with the raw text bound to the child-message token.
//
// contextBefore, when non-nil, is inserted as the first child of the
// resulting root; contextAfter is appended as the last. The two slots let a
// frame preserve an already-built nested tree and attach fresh context
// without reordering.
func (d *Dispatcher) Wrap(raw string, contextBefore, contextAfter fault.Child) *fault.Node {
	var node *fault.Node
	if fault.IsEncoded(raw) {
		if decoded, err := fault.Decode(raw); err == nil {
			node = decoded
		}
	}
	if node == nil {
		tokens := catalog.NewTokenSet()
		tokens.Set(catalog.TokenChildMessage, raw)
		res := d.catalog.Lookup(d.cfg.FallbackOwner, catalog.FallbackErrorName, tokens)
		node = d.newNode(res, d.cfg.FallbackOwner, 0)
	}
	return node.WithFirstChild(contextBefore).WithLastChild(contextAfter)
}

// HandleFailure is the dispatch entry point, invoked once per call frame on
// failure. It classifies the snapshot, composes the tree, fits it to the
// budget, performs at most one audit update, and returns the re-signaled
// failure. The result is never nil; callers return it to their own caller,
// which repeats the cycle one frame up.
func (d *Dispatcher) HandleFailure(ctx context.Context, frame Frame, auditID audit.ID, snap Snapshot) *Failure {
	ctx, span := d.tracer.Start(ctx, "propagate.HandleFailure")
	defer span.End()

	class, entryName := d.classify(frame, snap)
	span.SetAttributes(
		attribute.String("faultline.classification", string(class)),
		attribute.String("faultline.procedure", frame.Procedure),
		attribute.Int("faultline.number", snap.Number),
	)

	var tree *fault.Node
	number := snap.Number
	switch class {
	case ClassReentry:
		// This frame raised the failure earlier and is seeing it again
		// after a generic recovery pass. Thin context only, root untouched.
		tree = d.Wrap(snap.Message, nil, frameContext(frame, ""))

	case ClassUserDefined:
		tree = d.Wrap(snap.Message, nil, frameContext(frame, snap.Procedure))

	case ClassKnownHostFailure, ClassUnknownHostFailure:
		// The raw low-level message is discarded as user-facing text; the
		// frame's own catalog entry renders the message, with the raw text
		// available to templates through the child-message token.
		tokens := cloneTokens(frame.Tokens)
		tokens.Set(catalog.TokenChildMessage, snap.Message)
		res := d.catalog.Lookup(frame.Procedure, entryName, tokens)
		procedure, line := tokens.Elevate(d.namer)
		if procedure == "" {
			procedure = frame.Procedure
		}
		if line == 0 {
			line = frame.Line
		}
		node := d.newNode(res, procedure, line)
		tree = node.WithLastChild(frameContext(frame, ""))
		number = d.cfg.UserDefinedFloor
	}

	text := fault.Fit(tree, d.cfg.Budget, d.cfg.Limited)

	// At most one audit update per invocation; a failed update must not
	// block the re-signal.
	if d.recorder != nil {
		if err := d.recorder.Fail(ctx, auditID, text); err != nil {
			span.RecordError(err)
		}
	}

	return &Failure{
		Text:      text,
		Number:    number,
		Severity:  defaulted(snap.Severity, DefaultSeverity),
		State:     defaulted(snap.State, DefaultState),
		Procedure: frame.Procedure,
		Line:      frame.Line,
	}
}

// classify evaluates the dispatch states in order; first match wins. For
// host failures it also returns the catalog entry name that path uses.
func (d *Dispatcher) classify(frame Frame, snap Snapshot) (Classification, string) {
	switch {
	case snap.Procedure != "" && snap.Procedure == frame.Procedure:
		return ClassReentry, ""
	case snap.Number >= d.cfg.UserDefinedFloor:
		return ClassUserDefined, ""
	default:
		if name, ok := d.cfg.KnownHostCodes[snap.Number]; ok {
			return ClassKnownHostFailure, name
		}
		return ClassUnknownHostFailure, NameUnknownSystemError
	}
}

// newNode builds a tree node from a lookup resolution. The developer message
// is kept only when debug display is on and it differs from the user
// message.
func (d *Dispatcher) newNode(res catalog.Resolution, procedure string, line int) *fault.Node {
	node := &fault.Node{
		Code:            res.Code,
		UserMessage:     res.UserMessage,
		SourceProcedure: procedure,
		SourceLine:      line,
	}
	if d.debug && res.DeveloperMessage != "" && res.DeveloperMessage != res.UserMessage {
		node.DeveloperMessage = res.DeveloperMessage
	}
	return node
}

// frameContext builds the diagnostic context a frame contributes: who called
// it, the line, session/database identifiers, the thrower when relevant, and
// any non-reserved caller-supplied tokens. Empty values are omitted; an
// entirely empty context is dropped by the tree constructors.
func frameContext(frame Frame, thrower string) *fault.Context {
	ctx := fault.NewContext()
	set := func(name, value string) {
		if value != "" {
			ctx.Set(name, value)
		}
	}
	set("Caller", frame.Caller)
	if frame.Line > 0 {
		set("Line", strconv.Itoa(frame.Line))
	}
	set("Thrower", thrower)
	set("Session", frame.Session)
	set("Database", frame.Database)
	frame.Tokens.Each(func(name, value string) {
		switch name {
		case catalog.TokenProcedureName, catalog.TokenErrorName,
			catalog.TokenErrorCode, catalog.TokenChildMessage,
			catalog.TokenProcedureID, catalog.TokenSourceLine:
			return
		}
		set(name, value)
	})
	return ctx
}

func cloneTokens(t *catalog.TokenSet) *catalog.TokenSet {
	out := catalog.NewTokenSet()
	t.Each(out.Set)
	return out
}

func defaulted(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
