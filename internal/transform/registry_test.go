package transform

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framework-cg/pgload/pkg/pgload"
)

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	op := Operation{Name: "noop", Build: func(Params) (Func, error) {
		return func(ds *pgload.Dataset) (*pgload.Dataset, error) { return ds, nil }, nil
	}}

	require.NoError(t, r.Register(op))
	assert.ErrorIs(t, r.Register(op), pgload.ErrInvalidConfig)
	assert.ErrorIs(t, r.Register(Operation{Name: "nobuild"}), pgload.ErrInvalidConfig)

	_, ok := r.Lookup("noop")
	assert.True(t, ok)
	_, ok = r.Lookup("other")
	assert.False(t, ok)
}

func TestNewDefaultRegistry_Names(t *testing.T) {
	assert.Equal(t,
		[]string{"clean_columns", "clean_text", "row_hash", "select_columns"},
		NewDefaultRegistry().Names())
}

func TestRegistry_Build_FailsFast(t *testing.T) {
	r := NewDefaultRegistry()

	_, err := r.Build([]string{"clean_columns", "pivot"}, nil)
	assert.ErrorIs(t, err, pgload.ErrUnknownOperation)
	assert.Contains(t, err.Error(), "pivot")

	_, err = r.Build([]string{"row_hash"}, Params{})
	assert.ErrorIs(t, err, pgload.ErrMissingParameter)
	assert.Contains(t, err.Error(), "transform row_hash")
}

func TestPipeline_AppliesInOrder(t *testing.T) {
	r := NewRegistry()
	appendCol := func(name string) Operation {
		return Operation{Name: name, Build: func(Params) (Func, error) {
			return func(ds *pgload.Dataset) (*pgload.Dataset, error) {
				out := ds.Clone()
				out.Columns = append(out.Columns, name)
				for i := range out.Rows {
					out.Rows[i] = append(out.Rows[i], len(out.Columns))
				}
				return out, nil
			}, nil
		}}
	}
	require.NoError(t, r.Register(appendCol("first")))
	require.NoError(t, r.Register(appendCol("second")))

	p, err := r.Build([]string{"second", "first"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "first"}, p.Names())

	in := &pgload.Dataset{Columns: []string{"id"}, Rows: [][]any{{1}}}
	out, err := p.Apply(in)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "second", "first"}, out.Columns)
	assert.Equal(t, []any{1, 2, 3}, out.Rows[0])
	assert.Equal(t, []string{"id"}, in.Columns, "input must not be modified")
}

func TestPipeline_StepErrorNamesStep(t *testing.T) {
	r := NewRegistry()
	boom := errors.New("boom")
	require.NoError(t, r.Register(Operation{Name: "fail", Build: func(Params) (Func, error) {
		return func(*pgload.Dataset) (*pgload.Dataset, error) { return nil, boom }, nil
	}}))

	p, err := r.Build([]string{"fail"}, nil)
	require.NoError(t, err)

	_, err = p.Apply(&pgload.Dataset{Columns: []string{"a"}})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "transform fail")
}

func TestPipeline_Empty(t *testing.T) {
	var p *Pipeline
	ds := &pgload.Dataset{Columns: []string{"a"}}
	out, err := p.Apply(ds)
	require.NoError(t, err)
	assert.Same(t, ds, out)
	assert.Zero(t, p.Len())
}

func TestPipeline_RejectsRaggedDataset(t *testing.T) {
	p, err := NewDefaultRegistry().Build([]string{"clean_columns"}, nil)
	require.NoError(t, err)

	_, err = p.Apply(&pgload.Dataset{Columns: []string{"a", "b"}, Rows: [][]any{{1}}})
	assert.ErrorIs(t, err, pgload.ErrInvalidDataset)
}
