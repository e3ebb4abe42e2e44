package params

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framework-cg/pgload/pkg/pgload"
)

func TestParseKeyValuePairs(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []string
		want    map[string]string
		wantErr bool
	}{
		{
			name:  "basic",
			pairs: []string{"columns=name,city", "hash_column=hash"},
			want:  map[string]string{"columns": "name,city", "hash_column": "hash"},
		},
		{
			name:  "value containing equals",
			pairs: []string{"expr=a=b"},
			want:  map[string]string{"expr": "a=b"},
		},
		{
			name:  "empty value",
			pairs: []string{"columns="},
			want:  map[string]string{"columns": ""},
		},
		{
			name:  "later wins",
			pairs: []string{"k=1", "k=2"},
			want:  map[string]string{"k": "2"},
		},
		{
			name:  "key is trimmed",
			pairs: []string{" k =v"},
			want:  map[string]string{"k": "v"},
		},
		{name: "missing equals", pairs: []string{"columns"}, wantErr: true},
		{name: "empty key", pairs: []string{"=v"}, wantErr: true},
		{name: "nil", pairs: nil, want: map[string]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseKeyValuePairs(tt.pairs)
			if tt.wantErr {
				if !errors.Is(err, pgload.ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMerge(t *testing.T) {
	base := map[string]string{"a": "1", "b": "2"}
	got := Merge(base, map[string]string{"b": "3"}, map[string]string{"c": "4"})

	assert.Equal(t, map[string]string{"a": "1", "b": "3", "c": "4"}, got)
	assert.Equal(t, "2", base["b"], "base must not be modified")
}
