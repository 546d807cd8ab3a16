package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeKernel(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewKernelCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestKernelCommandLinear(t *testing.T) {
	out, err := executeKernel(t, &RootOptions{Format: "text"}, "--radius", "2")
	require.NoError(t, err)

	want := "kernel linear r=2 (5x5, sum 1531)\n" +
		"0 0 0 0 0\n" +
		"0 128 191 128 0\n" +
		"0 191 255 191 0\n" +
		"0 128 191 128 0\n" +
		"0 0 0 0 0\n"
	assert.Equal(t, want, out)
}

func TestKernelCommandJSON(t *testing.T) {
	out, err := executeKernel(t, &RootOptions{Format: "json"}, "-r", "1", "--curve", "smooth")
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   KernelResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Radius)
	assert.Equal(t, "smooth", resp.Data.Curve)
	assert.Equal(t, 3, resp.Data.Side)
	assert.Len(t, resp.Data.Values, 9)
	assert.Equal(t, 255, resp.Data.Values[4])
}

func TestKernelCommandSampledCurve(t *testing.T) {
	path := writeConfig(t, `
grid: { width: 8, height: 8 }
layers: [heat]
curves:
  - name: ramp
    points: [[0, 1], [1, 0]]
`)
	out, err := executeKernel(t, &RootOptions{Format: "text"}, "--radius", "2", "--curve", "ramp", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "kernel ramp r=2 (5x5, sum 1531)")
}

func TestKernelCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
		want string
	}{
		{"radius too big", []string{"--radius", "17"}, ExitFailure, "INVALID_RADIUS"},
		{"radius zero", []string{"--radius", "0"}, ExitFailure, "INVALID_RADIUS"},
		{"unknown curve", []string{"--curve", "cubic"}, ExitFailure, "INVALID_CURVE"},
		{"missing config", []string{"--config", "/nonexistent.yaml"}, ExitCommandError, "E002"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := executeKernel(t, &RootOptions{Format: "text"}, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.code, GetExitCode(err))
			assert.Contains(t, out, tt.want)
		})
	}
}
