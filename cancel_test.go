package cypher

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestQueryGovernor_AppliesDefaultTimeoutWhenCallerDidNot(t *testing.T) {
	g := &queryGovernor{defaultTimeout: 10 * time.Millisecond}
	ctx, cancel := g.wrapContext(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatal("expected a deadline to have been applied")
	}
	if time.Until(deadline) > 10*time.Millisecond {
		t.Fatalf("expected the deadline to be within the default timeout, got %v away", time.Until(deadline))
	}
}

func TestQueryGovernor_RespectsCallerDeadline(t *testing.T) {
	g := &queryGovernor{defaultTimeout: time.Hour}
	callerCtx, callerCancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer callerCancel()

	ctx, cancel := g.wrapContext(callerCtx)
	defer cancel()

	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatal("expected the caller's deadline to survive")
	}
	if time.Until(deadline) > 5*time.Millisecond {
		t.Fatal("expected the caller's shorter deadline to be preserved, not overridden by the default")
	}
}

func TestQueryGovernor_NoTimeoutConfigured(t *testing.T) {
	g := &queryGovernor{}
	ctx, cancel := g.wrapContext(context.Background())
	defer cancel()

	if _, ok := ctx.Deadline(); ok {
		t.Fatal("expected no deadline when defaultTimeout is zero")
	}
}

func TestSafeExecuteResult_RecoversPanic(t *testing.T) {
	_, err := safeExecuteResult(func() (int, error) {
		panic("boom")
	})
	if err == nil {
		t.Fatal("expected an error recovered from the panic")
	}
	if !errors.Is(err, ErrQueryPanic) {
		t.Fatalf("expected ErrQueryPanic in the chain, got %v", err)
	}
}

func TestSafeExecuteResult_PassesThroughNormalResult(t *testing.T) {
	result, err := safeExecuteResult(func() (int, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if result != 42 {
		t.Fatalf("expected 42, got %d", result)
	}
}
