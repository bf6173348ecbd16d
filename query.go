package cypher

import (
	"context"
	"log/slog"
	"sort"
	"time"
)

// ---------------------------------------------------------------------------
// Top-level query surface (spec §6.2). Grounded on the teacher's
// DB.Cypher/DB.CypherWithParams pairing (cypher_exec.go), unified into one
// entry point taking an optional parameter map, and on PrepareCypher's
// cache-then-parse shape (cypher_cache.go) for Engine.Query's cache check.
// Unlike the teacher, which materializes CypherResult.Rows eagerly,
// Engine.Query returns a pull-based ResultStream so spec §5's pipeline model
// reaches all the way to the caller; Engine.Run is the eager convenience
// wrapper the teacher's CypherResult shape maps onto directly.
// ---------------------------------------------------------------------------

// EngineOptions configures an Engine. A zero value is a usable default: no
// query timeout, no read-only retries.
type EngineOptions struct {
	// DefaultQueryTimeout is applied to a query's context when the caller
	// did not already set a deadline. Zero means no default timeout.
	DefaultQueryTimeout time.Duration

	// MaxReadRetries bounds how many times a read-only query's initial
	// backend error is retried when BackendError.Transient() is true.
	// Zero disables retries.
	MaxReadRetries int

	// PlanCacheCapacity overrides the plan cache's entry limit. Zero uses
	// defaultPlanCacheCapacity.
	PlanCacheCapacity int

	// Logger receives structured logs for query lifecycle events. Defaults
	// to slog.Default(), mirroring the teacher's db.log (graphdb.go).
	Logger *slog.Logger
}

// Engine parses, analyzes, plans, caches, and executes Cypher query text
// against a Backend.
type Engine struct {
	backend  Backend
	cache    *planCache
	governor *queryGovernor
	retries  int
	log      *slog.Logger
}

// NewEngine constructs an Engine over backend.
func NewEngine(backend Backend, opts EngineOptions) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		backend:  backend,
		cache:    newPlanCache(opts.PlanCacheCapacity),
		governor: &queryGovernor{defaultTimeout: opts.DefaultQueryTimeout},
		retries:  opts.MaxReadRetries,
		log:      logger,
	}
}

// ResultStream is a pull-based cursor over one query's output rows.
type ResultStream struct {
	columns []string
	op      operator
	tx      Tx
	ctx     context.Context
	cancel  context.CancelFunc
	closed  bool
	failed  bool
}

// Columns returns the result's column names, in RETURN/WITH order.
func (s *ResultStream) Columns() []string { return s.columns }

// Next pulls the next row. ok is false once the stream is exhausted.
func (s *ResultStream) Next() (Row, bool, error) {
	if err := s.ctx.Err(); err != nil {
		return nil, false, ErrCancelled
	}
	row, ok, err := s.op.next(s.ctx)
	if err != nil {
		s.failed = true
	}
	return row, ok, err
}

// Close releases resources held by the stream, committing the bracketing
// transaction (if the backend provided one) on a clean run and rolling it
// back if any Next call returned an error. Safe to call more than once.
func (s *ResultStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	defer s.cancel()

	opErr := s.op.close()

	if s.tx != nil {
		if s.failed || opErr != nil {
			s.tx.Rollback()
		} else if err := s.tx.Commit(); err != nil {
			return err
		}
	}
	return opErr
}

// CypherResult is the eagerly-materialized counterpart to ResultStream,
// mirroring the teacher's CypherResult{Columns, Rows}.
type CypherResult struct {
	Columns []string
	Rows    []Row
}

// Query parses (or reuses a cached plan for) text, binds params, and returns
// a pull-based stream over the result rows. params may be nil.
func (e *Engine) Query(ctx context.Context, text string, params map[string]any) (*ResultStream, error) {
	plan, err := e.planFor(text)
	if err != nil {
		e.log.Error("query plan failed", "error", err)
		return nil, err
	}

	boundParams, err := resolveEngineParams(params)
	if err != nil {
		e.log.Error("query parameter binding failed", "error", err)
		return nil, err
	}

	qctx, cancel := e.governor.wrapContext(ctx)

	tx, err := e.backend.Begin(qctx)
	if err != nil {
		cancel()
		e.log.Error("failed to begin backend transaction", "error", err)
		return nil, err
	}

	op, err := e.openWithRetry(qctx, plan, boundParams)
	if err != nil {
		tx.Rollback()
		cancel()
		e.log.Error("query execution failed to open", "error", err)
		return nil, err
	}
	e.log.Debug("query opened", "columns", columnNames(plan.Schema))

	return &ResultStream{
		tx: tx,
		columns: columnNames(plan.Schema),
		op:      op,
		ctx:     qctx,
		cancel:  cancel,
	}, nil
}

// Run executes text to completion and materializes every row, the eager
// counterpart to Query.
func (e *Engine) Run(ctx context.Context, text string, params map[string]any) (*CypherResult, error) {
	return safeExecuteResult(func() (*CypherResult, error) {
		stream, err := e.Query(ctx, text, params)
		if err != nil {
			return nil, err
		}
		defer stream.Close()

		var rows []Row
		for {
			row, ok, err := stream.Next()
			if err != nil {
				return nil, err
			}
			if !ok {
				break
			}
			rows = append(rows, row)
		}
		return &CypherResult{Columns: stream.Columns(), Rows: rows}, nil
	})
}

// Explain returns the rendered logical plan for text without executing it,
// mirroring the teacher's EXPLAIN handling in executeCypher (cypher_exec.go).
func (e *Engine) Explain(text string) (string, error) {
	plan, err := e.planFor(text)
	if err != nil {
		return "", err
	}
	return ExplainPlan(plan), nil
}

// Profile executes text to completion and returns both the result and the
// annotated plan text, mirroring the teacher's PROFILE handling. Only the
// root operator is measured: it carries the total row count and the elapsed
// time of the whole run, and every other operator is printed with zeros.
func (e *Engine) Profile(ctx context.Context, text string, params map[string]any) (*CypherResult, string, error) {
	plan, err := e.planFor(text)
	if err != nil {
		return nil, "", err
	}
	boundParams, err := resolveEngineParams(params)
	if err != nil {
		return nil, "", err
	}

	qctx, cancel := e.governor.wrapContext(ctx)
	defer cancel()

	tx, err := e.backend.Begin(qctx)
	if err != nil {
		return nil, "", err
	}

	stats := &PlanStats{ActualRows: map[*PlanNode]int{}, Elapsed: map[*PlanNode]time.Duration{}}
	start := time.Now()

	ectx := &execContext{backend: e.backend, params: boundParams}
	op := buildOperator(plan, ectx)
	if err := op.open(qctx); err != nil {
		tx.Rollback()
		return nil, "", err
	}
	defer op.close()

	var rows []Row
	for {
		row, ok, err := op.next(qctx)
		if err != nil {
			tx.Rollback()
			return nil, "", err
		}
		if !ok {
			break
		}
		rows = append(rows, row)
	}
	if err := tx.Commit(); err != nil {
		return nil, "", err
	}
	stats.ActualRows[plan] = len(rows)
	stats.Elapsed[plan] = time.Since(start)

	result := &CypherResult{Columns: columnNames(plan.Schema), Rows: rows}
	return result, ProfilePlan(plan, stats), nil
}

// planFor returns the cached plan for text, analyzing and planning it on a
// cache miss.
func (e *Engine) planFor(text string) (*PlanNode, error) {
	if plan := e.cache.get(text); plan != nil {
		e.log.Debug("plan cache hit")
		return plan, nil
	}

	query, err := parseCypher(text)
	if err != nil {
		return nil, err
	}
	if err := analyzeQuery(query); err != nil {
		return nil, err
	}
	plan, err := planQuery(query)
	if err != nil {
		return nil, err
	}

	e.cache.put(text, plan)
	return plan, nil
}

// openWithRetry builds and opens the operator tree for plan, retrying the
// open step up to e.retries times when the query is read-only and the
// failure is a transient BackendError, per spec §7.
func (e *Engine) openWithRetry(ctx context.Context, plan *PlanNode, params map[string]Value) (operator, error) {
	readOnly := !planHasWrite(plan)

	var lastErr error
	attempts := 1
	if readOnly && e.retries > 0 {
		attempts = e.retries + 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		ectx := &execContext{backend: e.backend, params: params}
		op := buildOperator(plan, ectx)
		err := op.open(ctx)
		if err == nil {
			return op, nil
		}
		lastErr = err

		be, ok := err.(*BackendError)
		if !ok || !be.Transient() {
			return nil, err
		}
		e.log.Warn("retrying read-only query after transient backend error",
			"attempt", attempt+1, "error", err)
	}
	return nil, lastErr
}

// planHasWrite reports whether plan contains a CREATE operator anywhere in
// its tree.
func planHasWrite(plan *PlanNode) bool {
	if plan.Op == PlanCreateGraph {
		return true
	}
	for _, c := range plan.Children {
		if planHasWrite(c) {
			return true
		}
	}
	return false
}

func columnNames(schema *RowSchema) []string {
	names := make([]string, len(schema.Symbols))
	for i, sym := range schema.Symbols {
		names[i] = sym.Name
	}
	return names
}

// resolveEngineParams converts a caller-supplied params map into the typed
// Value map the evaluator expects, mirroring the teacher's resolveParams
// (cypher_exec.go) but performed once up front against $name references
// rather than by rewriting the AST in place.
func resolveEngineParams(params map[string]any) (map[string]Value, error) {
	if len(params) == 0 {
		return nil, nil
	}
	out := make(map[string]Value, len(params))
	for k, v := range params {
		val, err := valueFromAny(v)
		if err != nil {
			return nil, err
		}
		out[k] = val
	}
	return out, nil
}

// valueFromAny converts a plain Go value supplied as a query parameter into
// the engine's typed Value union.
func valueFromAny(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case bool:
		return Bool(x), nil
	case int:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case float64:
		return Float(x), nil
	case string:
		return Str(x), nil
	case []any:
		list := make([]Value, len(x))
		for i, e := range x {
			val, err := valueFromAny(e)
			if err != nil {
				return Value{}, err
			}
			list[i] = val
		}
		return List(list), nil
	case map[string]any:
		m := NewOrderedMap()
		for _, k := range sortedAnyKeys(x) {
			val, err := valueFromAny(x[k])
			if err != nil {
				return Value{}, err
			}
			m.Set(k, val)
		}
		return Map(m), nil
	default:
		return Value{}, newTypeError("unsupported parameter type %T", v)
	}
}

func sortedAnyKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
