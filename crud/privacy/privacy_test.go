package privacy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/crudgen/docstore"
)

func TestDecisionErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		is   error
		msg  string
	}{
		{"allowf", Allowf("owner %s", "1"), Allow, "owner 1: crud/privacy: allow rule"},
		{"denyf", Denyf("no %s", "viewer"), Deny, "no viewer: crud/privacy: deny rule"},
		{"skipf", Skipf("abstain"), Skip, "abstain: crud/privacy: skip rule"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.is)
			assert.EqualError(t, tt.err, tt.msg)
		})
	}
}

func TestOp(t *testing.T) {
	assert.True(t, OpCreate.Is(OpWrite))
	assert.False(t, OpRead.Is(OpWrite))
	assert.Equal(t, "read", OpRead.String())
	assert.Equal(t, "create|update|delete", OpWrite.String())
	assert.Equal(t, "Op(0)", Op(0).String())
}

func TestPolicy(t *testing.T) {
	ctx := context.Background()
	read := &Request{Collection: "product", Op: OpRead}
	write := &Request{Collection: "product", Op: OpDelete, Key: "1"}

	t.Run("empty allows", func(t *testing.T) {
		assert.NoError(t, Policy{}.Eval(ctx, write))
	})
	t.Run("all skip allows", func(t *testing.T) {
		p := Policy{ContextRule(func(context.Context) error { return nil }), ContextRule(func(context.Context) error { return Skip })}
		assert.NoError(t, p.Eval(ctx, write))
	})
	t.Run("first decision wins", func(t *testing.T) {
		assert.NoError(t, Policy{AlwaysAllowRule(), AlwaysDenyRule()}.Eval(ctx, write))
		assert.ErrorIs(t, Policy{AlwaysDenyRule(), AlwaysAllowRule()}.Eval(ctx, write), Deny)
	})
	t.Run("custom error denies", func(t *testing.T) {
		boom := errors.New("boom")
		err := Policy{RuleFunc(func(context.Context, *Request) error { return boom })}.Eval(ctx, write)
		assert.ErrorIs(t, err, boom)
	})
	t.Run("operations", func(t *testing.T) {
		p := Policy{DenyOperationRule(OpWrite)}
		assert.NoError(t, p.Eval(ctx, read))
		err := p.Eval(ctx, write)
		assert.ErrorIs(t, err, Deny)
		assert.Contains(t, err.Error(), "operation delete on product is not allowed")

		p = Policy{AllowOperationRule(OpRead), AlwaysDenyRule()}
		assert.NoError(t, p.Eval(ctx, read))
		assert.ErrorIs(t, p.Eval(ctx, write), Deny)
	})
	t.Run("nested", func(t *testing.T) {
		p := Policy{Policy{AlwaysDenyRule()}, AlwaysAllowRule()}
		assert.ErrorIs(t, p.Eval(ctx, read), Deny)
	})
}

func TestDecisionContext(t *testing.T) {
	ctx := context.Background()
	req := &Request{Collection: "product", Op: OpCreate}

	assert.Equal(t, ctx, DecisionContext(ctx, nil))
	assert.Equal(t, ctx, DecisionContext(ctx, Skip))

	_, ok := DecisionFromContext(ctx)
	assert.False(t, ok)

	allowed := DecisionContext(ctx, Allow)
	decision, ok := DecisionFromContext(allowed)
	assert.True(t, ok)
	assert.NoError(t, decision)
	assert.NoError(t, Policy{AlwaysDenyRule()}.Eval(allowed, req))

	denied := DecisionContext(ctx, Denyf("maintenance"))
	assert.ErrorIs(t, Policy{AlwaysAllowRule()}.Eval(denied, req), Deny)
}

func TestViewerRules(t *testing.T) {
	ctx := context.Background()
	admin := WithViewer(ctx, &SimpleViewer{UserID: "1", Roles: []string{"admin"}, TenantID: "acme"})
	editor := WithViewer(ctx, &SimpleViewer{UserID: "2", Roles: []string{"editor"}})
	req := &Request{Collection: "product", Op: OpUpdate, Key: "9"}

	t.Run("viewer context", func(t *testing.T) {
		assert.Nil(t, ViewerFromContext(ctx))
		v := ViewerFromContext(admin)
		require.NotNil(t, v)
		assert.Equal(t, "1", v.GetID())
		assert.Equal(t, []string{"admin"}, v.GetRoles())
		assert.Equal(t, "acme", v.GetTenantID())
	})
	t.Run("deny if no viewer", func(t *testing.T) {
		assert.ErrorIs(t, DenyIfNoViewer().Eval(ctx, req), Deny)
		assert.ErrorIs(t, DenyIfNoViewer().Eval(admin, req), Skip)
	})
	t.Run("roles", func(t *testing.T) {
		assert.ErrorIs(t, HasRole("admin").Eval(admin, req), Allow)
		assert.ErrorIs(t, HasRole("admin").Eval(editor, req), Skip)
		assert.ErrorIs(t, HasRole("admin").Eval(ctx, req), Skip)
		assert.ErrorIs(t, HasAnyRole("admin", "editor").Eval(editor, req), Allow)
	})
	t.Run("owner", func(t *testing.T) {
		owned := &Request{Collection: "product", Op: OpCreate, Data: docstore.Document{"owner_id": "2"}}
		other := &Request{Collection: "product", Op: OpCreate, Data: docstore.Document{"owner_id": "3"}}
		assert.ErrorIs(t, IsOwner("owner_id").Eval(editor, owned), Allow)
		assert.ErrorIs(t, IsOwner("owner_id").Eval(editor, other), Skip)
		assert.ErrorIs(t, IsOwner("owner_id").Eval(editor, req), Skip)
		assert.ErrorIs(t, IsOwner("owner_id").Eval(ctx, owned), Skip)
	})
	t.Run("tenant", func(t *testing.T) {
		same := &Request{Op: OpCreate, Data: docstore.Document{"tenant": "acme"}}
		other := &Request{Op: OpCreate, Data: docstore.Document{"tenant": "globex"}}
		assert.ErrorIs(t, TenantRule("tenant").Eval(admin, same), Allow)
		assert.ErrorIs(t, TenantRule("tenant").Eval(admin, other), Deny)
		assert.ErrorIs(t, TenantRule("tenant").Eval(editor, other), Skip)
		assert.ErrorIs(t, TenantRule("tenant").Eval(admin, req), Skip)
	})
	t.Run("chain", func(t *testing.T) {
		p := Policy{DenyIfNoViewer(), HasRole("admin"), IsOwner("owner_id"), AlwaysDenyRule()}
		assert.NoError(t, p.Eval(admin, req))
		assert.NoError(t, p.Eval(editor, &Request{Op: OpCreate, Data: docstore.Document{"owner_id": "2"}}))
		assert.ErrorIs(t, p.Eval(editor, req), Deny)
		assert.ErrorIs(t, p.Eval(ctx, req), Deny)
	})
}
