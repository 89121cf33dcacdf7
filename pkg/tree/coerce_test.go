package tree_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quickstack/kubecfn/pkg/tree"
)

func TestCoerceTypes_Scalars(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		input any
		want  any
	}{
		"lowercase true":          {input: "true", want: true},
		"uppercase false":         {input: "FALSE", want: false},
		"mixed case boolean":      {input: "True", want: true},
		"digits":                  {input: "42", want: 42},
		"leading zeros":           {input: "007", want: 7},
		"decimal stays a string":  {input: "4.5", want: "4.5"},
		"word stays a string":     {input: "on", want: "on"},
		"empty string unchanged":  {input: "", want: ""},
		"signed digits unchanged": {input: "-3", want: "-3"},
		"existing bool unchanged": {input: true, want: true},
		"existing int unchanged":  {input: 7, want: 7},
		"nil unchanged":           {input: nil, want: nil},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, tree.CoerceTypes(tc.input))
		})
	}
}

func TestCoerceTypes_Nested(t *testing.T) {
	t.Parallel()

	in := map[string]any{
		"spec": map[string]any{
			"replicas": "3",
			"paused":   "False",
			"containers": []any{
				map[string]any{
					"name":  "main",
					"ports": []any{map[string]any{"containerPort": "8080"}},
				},
			},
		},
		"metadata": map[string]any{
			"annotations": map[string]any{
				// Coercion is global: digit-string annotation values are
				// rewritten too. Inherited contract, not a bug.
				"build": "20240101",
			},
		},
	}

	out, ok := tree.CoerceTypes(in).(map[string]any)
	assert.True(t, ok)

	spec, _ := out["spec"].(map[string]any)
	assert.Equal(t, 3, spec["replicas"])
	assert.Equal(t, false, spec["paused"])

	containers, _ := spec["containers"].([]any)
	c0, _ := containers[0].(map[string]any)
	ports, _ := c0["ports"].([]any)
	p0, _ := ports[0].(map[string]any)
	assert.Equal(t, 8080, p0["containerPort"])

	md, _ := out["metadata"].(map[string]any)
	ann, _ := md["annotations"].(map[string]any)
	assert.Equal(t, 20240101, ann["build"])
}

func TestCoerceTypes_Idempotent(t *testing.T) {
	t.Parallel()

	in := map[string]any{
		"a": "true",
		"b": "007",
		"c": []any{"FALSE", "42", "4.5", "on"},
	}

	once := tree.CoerceTypes(in)
	twice := tree.CoerceTypes(once)
	assert.Equal(t, once, twice)
}
