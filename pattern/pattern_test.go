package pattern

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semsum/encoder"
	"github.com/c360studio/semsum/rdf"
)

func TestNew_Normalizes(t *testing.T) {
	p := New([]int{3, 1, 3, 2}, []int{5, 0, 0})

	assert.Equal(t, []int{1, 2, 3}, p.Rows)
	assert.Equal(t, []int{0, 5}, p.Columns)
	assert.Equal(t, 3, p.Extent())
	assert.True(t, p.HasColumn(5))
	assert.False(t, p.HasColumn(1))
}

func TestPattern_ExtentCountsDistinctRows(t *testing.T) {
	p := Pattern{Rows: []int{4, 4, 7}}
	assert.Equal(t, 2, p.Extent())
	assert.Equal(t, 0, Pattern{}.Extent())
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{name: "defaults", params: DefaultParams()},
		{name: "zero k", params: Params{K: 0, EpsilonRow: 0.5, EpsilonCol: 0.5}, wantErr: true},
		{name: "row epsilon above one", params: Params{K: 1, EpsilonRow: 1.5}, wantErr: true},
		{name: "negative col epsilon", params: Params{K: 1, EpsilonCol: -0.1}, wantErr: true},
		{name: "bounds inclusive", params: Params{K: 1, EpsilonRow: 1, EpsilonCol: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidParams)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestReadText(t *testing.T) {
	input := `# mined patterns
1 3 | 0 2

2 | 1
4
`
	patterns, err := ReadText(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []Pattern{
		{Rows: []int{0, 2}, Columns: []int{0, 2}},
		{Rows: []int{1}, Columns: []int{1}},
		{Rows: []int{}, Columns: []int{3}},
	}, patterns)
}

func TestReadText_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  string
	}{
		{name: "zero item", input: "0 1 | 2", line: "line 1"},
		{name: "non numeric", input: "1 2\nx | 0", line: "line 2"},
		{name: "negative row", input: "1 | -1", line: "line 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadText(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidPattern)
			assert.Contains(t, err.Error(), tt.line)
		})
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	err := WriteText(&buf, []Pattern{New([]int{0, 2}, []int{0, 2}), New(nil, []int{4})})
	require.NoError(t, err)

	assert.Equal(t, "1 3 | 0 2\n5 | \n", buf.String())

	back, err := ReadText(&buf)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, back[0].Columns)
	assert.Equal(t, []int{4}, back[1].Columns)
}

func TestJSONCodec(t *testing.T) {
	patterns, err := ReadJSON(strings.NewReader(`[{"rows":[2,0,2],"columns":[1]},{"rows":[],"columns":[]}]`))
	require.NoError(t, err)
	require.Len(t, patterns, 2)
	assert.Equal(t, []int{0, 2}, patterns[0].Rows)

	_, err = ReadJSON(strings.NewReader(`{"rows":1}`))
	assert.ErrorIs(t, err, ErrInvalidPattern)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, nil))
	assert.JSONEq(t, `[]`, buf.String())
}

func sampleMatrix(t *testing.T) *encoder.Matrix {
	t.Helper()
	a, b := rdf.NamedNode("http://ex.org/a"), rdf.NamedNode("http://ex.org/b")
	res, err := encoder.Encode([]rdf.Triple{
		rdf.T(a, "http://ex.org/knows", b),
		rdf.T(b, rdf.TypePredicate, rdf.NamedNode("http://ex.org/Person")),
	})
	require.NoError(t, err)
	return res.Matrix()
}

func TestWriteTransactions(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTransactions(&buf, sampleMatrix(t)))

	// Columns: Direct(knows)=1, Inverse(knows)=2, Type(Person)=3.
	assert.Equal(t, "1\n2 3\n", buf.String())
}

func TestStatic(t *testing.T) {
	src := Static{New([]int{0}, []int{0})}

	got, err := src.Mine(context.Background(), nil, DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, []Pattern(src), got)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.Mine(ctx, nil, DefaultParams())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	textPath := filepath.Join(dir, "patterns.txt")
	jsonPath := filepath.Join(dir, "patterns.JSON")
	require.NoError(t, os.WriteFile(textPath, []byte("1 2 | 0 1\n"), 0o644))
	require.NoError(t, os.WriteFile(jsonPath, []byte(`[{"rows":[0],"columns":[0,1]}]`), 0o644))

	got, err := FileSource{Path: textPath}.Mine(context.Background(), nil, DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, []Pattern{{Rows: []int{0, 1}, Columns: []int{0, 1}}}, got)

	got, err = FileSource{Path: jsonPath}.Mine(context.Background(), nil, DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, []Pattern{{Rows: []int{0}, Columns: []int{0, 1}}}, got)

	_, err = FileSource{Path: filepath.Join(dir, "missing.txt")}.Mine(context.Background(), nil, DefaultParams())
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecSource(t *testing.T) {
	requireShell(t)

	// The fake miner echoes k and the row count of its input as a pattern.
	src := &ExecSource{Command: []string{"sh", "-c", `n=$(wc -l | tr -d ' '); echo "$1 | $n"`, "miner", "{k}"}}

	got, err := src.Mine(context.Background(), sampleMatrix(t), Params{K: 3, EpsilonRow: 0.5, EpsilonCol: 0.5})
	require.NoError(t, err)
	assert.Equal(t, []Pattern{{Rows: []int{2}, Columns: []int{2}}}, got)
}

func TestExecSource_Failure(t *testing.T) {
	requireShell(t)

	src := &ExecSource{Command: []string{"sh", "-c", "echo boom >&2; exit 3"}}
	_, err := src.Mine(context.Background(), sampleMatrix(t), DefaultParams())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestExecSource_Timeout(t *testing.T) {
	requireShell(t)

	src := &ExecSource{Command: []string{"sh", "-c", "sleep 5"}, Timeout: 50 * time.Millisecond}
	_, err := src.Mine(context.Background(), sampleMatrix(t), DefaultParams())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExecSource_EmptyCommand(t *testing.T) {
	_, err := (&ExecSource{}).Mine(context.Background(), sampleMatrix(t), DefaultParams())
	assert.Error(t, err)
}

func TestExpandArgs(t *testing.T) {
	got := expandArgs([]string{"miner", "-k", "{k}", "--er={epsilon_row}", "--ec={epsilon_col}"},
		Params{K: 10, EpsilonRow: 0.6, EpsilonCol: 0.25})
	assert.Equal(t, []string{"miner", "-k", "10", "--er=0.6", "--ec=0.25"}, got)
}
