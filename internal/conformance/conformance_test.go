package conformance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConformanceCases(t *testing.T) {
	cases, err := LoadDirectory("testdata")
	require.NoError(t, err)
	require.NotEmpty(t, cases, "no cases under testdata")

	seen := make(map[string]bool)
	for _, c := range cases {
		require.Falsef(t, seen[c.ID], "duplicate case id %q", c.ID)
		seen[c.ID] = true

		t.Run(c.ID, func(t *testing.T) {
			Run(t, c)
		})
	}
}

func TestParseCaseValidation(t *testing.T) {
	cases := []struct {
		name string
		data string
		want string
	}{
		{
			name: "missing id",
			data: "name: x\nsources:\n  dbc: text\n",
			want: "case ID is required",
		},
		{
			name: "no sources",
			data: "id: C-1\n",
			want: "case must have at least one source",
		},
		{
			name: "unknown dialect",
			data: "id: C-1\nsources:\n  ini: text\n",
			want: "invalid source dialect",
		},
		{
			name: "malformed yaml",
			data: "id: [",
			want: "failed to parse YAML",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := ParseCase([]byte(c.data))
			require.Error(t, err)

			le, ok := err.(*LoadError)
			require.Truef(t, ok, "expected a *LoadError, got %T", err)
			assert.Equal(t, c.want, le.Message)
		})
	}
}

func TestLoadCaseMissingFile(t *testing.T) {
	_, err := LoadCase("testdata/absent.yaml")
	require.Error(t, err)

	le, ok := err.(*LoadError)
	require.Truef(t, ok, "expected a *LoadError, got %T", err)
	assert.Equal(t, "testdata/absent.yaml", le.File)
	assert.Equal(t, "failed to read file", le.Message)
	assert.ErrorContains(t, err, "absent.yaml")
}
