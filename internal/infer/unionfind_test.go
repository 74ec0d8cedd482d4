package infer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/slate-ml/slate/internal/dtypes"
	"github.com/slate-ml/slate/internal/infer"
	"github.com/slate-ml/slate/internal/types"
)

func TestUnionFindInsertFind(t *testing.T) {
	uf := infer.NewUnionFind()
	v1 := types.Incomplete(types.KindType)
	v2 := types.Incomplete(types.KindType)

	uf.Insert(v1)
	require.True(t, uf.Contains(v1))
	require.False(t, uf.Contains(v2))

	rep, err := uf.Find(v1)
	require.NoError(t, err)
	require.Same(t, v1, rep)

	// Inserting twice is a no-op.
	uf.Insert(v1)
	rep, err = uf.Find(v1)
	require.NoError(t, err)
	require.Same(t, v1, rep)

	_, err = uf.Find(v2)
	require.Error(t, err, "Find of a variable never inserted must fail")
}

func TestUnionFindUnionChains(t *testing.T) {
	uf := infer.NewUnionFind()
	vs := make([]*types.IncompleteType, 4)
	for i := range vs {
		vs[i] = types.Incomplete(types.KindType)
		uf.Insert(vs[i])
	}

	require.NoError(t, uf.Union(vs[0], vs[1]))
	require.NoError(t, uf.Union(vs[2], vs[3]))

	r0, _ := uf.Find(vs[0])
	r1, _ := uf.Find(vs[1])
	require.Same(t, r0, r1, "united variables have distinct representatives")

	r2, _ := uf.Find(vs[2])
	require.NotSame(t, r0, r2, "separate classes share a representative")

	require.NoError(t, uf.Union(vs[1], vs[2]))
	all, _ := uf.Find(vs[0])
	for _, v := range vs {
		rep, err := uf.Find(v)
		require.NoError(t, err)
		require.Same(t, all, rep)
	}
}

func TestUnionFindBindingCarriedOnUnion(t *testing.T) {
	uf := infer.NewUnionFind()
	v1 := types.Incomplete(types.KindType)
	v2 := types.Incomplete(types.KindType)
	uf.Insert(v1)
	uf.Insert(v2)

	bound := types.Scalar(dtypes.Float32)
	require.NoError(t, uf.Bind(v1, bound))
	require.NoError(t, uf.Union(v1, v2))

	// Whichever side survived, the binding is visible from both.
	b1, err := uf.Binding(v1)
	require.NoError(t, err)
	b2, err := uf.Binding(v2)
	require.NoError(t, err)
	require.True(t, types.Equal(bound, b1))
	require.True(t, types.Equal(bound, b2))
}
