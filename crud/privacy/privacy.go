// Package privacy provides access rules evaluated by crud.Service before an
// operation reaches the document store.
//
// Rules are evaluated in order until one returns a final decision:
//
//   - Allow grants access and stops evaluation
//   - Deny rejects access and stops evaluation
//   - Skip (or nil) continues with the next rule
//
// A policy whose rules all skip allows the operation. End a policy with
// AlwaysDenyRule to deny by default:
//
//	svc := crud.NewService(store, models.ProductEntity, crud.WithPolicy(privacy.Policy{
//		privacy.DenyIfNoViewer(),
//		privacy.HasRole("admin"),
//		privacy.OnOperation(privacy.AlwaysAllowRule(), privacy.OpRead),
//		privacy.AlwaysDenyRule(),
//	}))
package privacy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/syssam/crudgen/docstore"
)

// Policy decision sentinel errors. Use errors.Is to check for them.
var (
	// Allow terminates the evaluation with an allow decision.
	Allow = errors.New("crud/privacy: allow rule")

	// Deny terminates the evaluation with a deny decision.
	Deny = errors.New("crud/privacy: deny rule")

	// Skip continues the evaluation with the next rule.
	Skip = errors.New("crud/privacy: skip rule")
)

// Allowf returns a formatted wrapped Allow decision.
func Allowf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Allow)...)
}

// Denyf returns a formatted wrapped Deny decision.
func Denyf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Deny)...)
}

// Skipf returns a formatted wrapped Skip decision.
func Skipf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Skip)...)
}

// Op is the set of operations a rule applies to.
type Op uint

// Operations of the CRUD service.
const (
	OpCreate Op = 1 << iota
	OpRead
	OpUpdate
	OpDelete

	// OpWrite matches every operation changing a document.
	OpWrite = OpCreate | OpUpdate | OpDelete
)

// Is reports whether o is one of the operations of op.
func (o Op) Is(op Op) bool { return o&op != 0 }

// String returns the operation names joined by "|".
func (o Op) String() string {
	var names []string
	for _, n := range []struct {
		op   Op
		name string
	}{{OpCreate, "create"}, {OpRead, "read"}, {OpUpdate, "update"}, {OpDelete, "delete"}} {
		if o.Is(n.op) {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return fmt.Sprintf("Op(%d)", uint(o))
	}
	return strings.Join(names, "|")
}

// Request describes the operation being authorized.
type Request struct {
	// Collection is the entity collection.
	Collection string
	// Op is the single operation requested.
	Op Op
	// Key is the document key. Empty for creates and list reads.
	Key string
	// Data holds the input document of creates and updates.
	Data docstore.Document
}

// Rule decides whether a request is allowed.
type Rule interface {
	Eval(context.Context, *Request) error
}

// RuleFunc is an adapter which allows the use of ordinary functions as
// rules.
type RuleFunc func(context.Context, *Request) error

// Eval returns f(ctx, r).
func (f RuleFunc) Eval(ctx context.Context, r *Request) error {
	return f(ctx, r)
}

// Policy evaluates its rules in order. It is itself a Rule, so policies
// nest.
type Policy []Rule

// Eval returns nil when the request is allowed and the deny decision
// otherwise. A decision attached with DecisionContext takes precedence over
// the rules.
func (p Policy) Eval(ctx context.Context, r *Request) error {
	if decision, ok := DecisionFromContext(ctx); ok {
		return decision
	}
	for _, rule := range p {
		switch decision := rule.Eval(ctx, r); {
		case decision == nil || errors.Is(decision, Skip):
		case errors.Is(decision, Allow):
			return nil
		default:
			return decision
		}
	}
	return nil
}

// AlwaysAllowRule returns a rule that always allows.
func AlwaysAllowRule() Rule {
	return fixedDecision{Allow}
}

// AlwaysDenyRule returns a rule that always denies.
func AlwaysDenyRule() Rule {
	return fixedDecision{Deny}
}

// ContextRule creates a rule from a context evaluation function. Returning
// nil is equivalent to returning Skip.
func ContextRule(eval func(context.Context) error) Rule {
	return RuleFunc(func(ctx context.Context, _ *Request) error {
		return eval(ctx)
	})
}

// OnOperation evaluates rule only for the given operations.
func OnOperation(rule Rule, op Op) Rule {
	return RuleFunc(func(ctx context.Context, r *Request) error {
		if r.Op.Is(op) {
			return rule.Eval(ctx, r)
		}
		return Skip
	})
}

// DenyOperationRule returns a rule denying the given operations.
func DenyOperationRule(op Op) Rule {
	return OnOperation(RuleFunc(func(_ context.Context, r *Request) error {
		return Denyf("crud/privacy: operation %s on %s is not allowed", r.Op, r.Collection)
	}), op)
}

// AllowOperationRule returns a rule allowing the given operations.
func AllowOperationRule(op Op) Rule {
	return OnOperation(AlwaysAllowRule(), op)
}

type decisionCtxKey struct{}

// DecisionContext returns a context carrying a decision that bypasses every
// policy, e.g. for internal jobs. Skip and nil decisions are not attached.
func DecisionContext(parent context.Context, decision error) context.Context {
	if decision == nil || errors.Is(decision, Skip) {
		return parent
	}
	return context.WithValue(parent, decisionCtxKey{}, decision)
}

// DecisionFromContext retrieves the decision attached to ctx. An Allow
// decision is returned as nil.
func DecisionFromContext(ctx context.Context) (error, bool) {
	decision, ok := ctx.Value(decisionCtxKey{}).(error)
	if ok && errors.Is(decision, Allow) {
		decision = nil
	}
	return decision, ok
}

type fixedDecision struct {
	decision error
}

func (f fixedDecision) Eval(context.Context, *Request) error {
	return f.decision
}
