package dataset

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/poiesic/dataprep/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeSource writes content to name inside a fresh temp dir and returns the path.
func writeSource(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func decode(t *testing.T, record core.NormalizedRecord) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(record.Metadata), &out))
	return out
}

func TestImportAndNormalize_FiltersEmptyContent(t *testing.T) {
	path := writeSource(t, "data.csv",
		"id,tiny_link,content\n"+
			"1,http://a,hello\n"+
			"2,http://b,\n")

	records, err := ImportAndNormalize(path, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, "1", records[0].ID)
	meta := decode(t, records[0])
	assert.Equal(t, map[string]any{"source": "http://a", "text": "hello"}, meta)
}

func TestImportAndNormalize_PreservesOrderAndTextIDs(t *testing.T) {
	path := writeSource(t, "data.csv",
		"extra,content,id,tiny_link\n"+
			"x,first,007,http://a\n"+
			"y,second,1e5,http://b\n"+
			"z,third,abc-9,http://c\n")

	records, err := ImportAndNormalize(path, Unbounded)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "007", records[0].ID, "leading zeros must survive")
	assert.Equal(t, "1e5", records[1].ID, "numeric-looking ids stay text")
	assert.Equal(t, "abc-9", records[2].ID)
	assert.Equal(t, "first", decode(t, records[0])["text"])
	assert.Equal(t, "third", decode(t, records[2])["text"])
	assert.NotContains(t, records[0].Metadata, "extra", "extra columns are discarded")
}

func TestImportAndNormalize_MaxRows(t *testing.T) {
	var b strings.Builder
	b.WriteString("id,tiny_link,content\n")
	for i := 0; i < 20; i++ {
		content := "text " + strconv.Itoa(i)
		if i%4 == 0 {
			content = ""
		}
		b.WriteString(strconv.Itoa(i) + ",http://x/" + strconv.Itoa(i) + "," + content + "\n")
	}
	path := writeSource(t, "data.csv", b.String())

	tests := []struct {
		name    string
		maxRows int
		want    int
	}{
		{name: "cap below row count", maxRows: 10, want: 7}, // rows 0,4,8 empty
		{name: "cap above row count", maxRows: 100, want: 15},
		{name: "unbounded", maxRows: Unbounded, want: 15},
		{name: "any negative is unbounded", maxRows: -42, want: 15},
		{name: "single row with content", maxRows: 2, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := ImportAndNormalize(path, tt.maxRows)
			require.NoError(t, err)
			assert.Len(t, records, tt.want)
		})
	}
}

func TestImportAndNormalize_NotFound(t *testing.T) {
	_, err := ImportAndNormalize(filepath.Join(t.TempDir(), "missing.csv"), 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestImportAndNormalize_Directory(t *testing.T) {
	_, err := ImportAndNormalize(t.TempDir(), 10)
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestImportAndNormalize_PermissionDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores file permissions")
	}
	path := writeSource(t, "locked.csv", "id,tiny_link,content\n1,a,b\n")
	require.NoError(t, os.Chmod(path, 0o000))
	t.Cleanup(func() { _ = os.Chmod(path, 0o644) })

	_, err := ImportAndNormalize(path, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestImportAndNormalize_EmptyDataset(t *testing.T) {
	tests := []struct {
		name    string
		content string
		maxRows int
	}{
		{name: "empty file", content: "", maxRows: 10},
		{name: "header only", content: "id,tiny_link,content\n", maxRows: 10},
		{name: "zero max rows", content: "id,tiny_link,content\n1,a,b\n", maxRows: 0},
		{name: "header without required columns", content: "foo,bar\n", maxRows: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeSource(t, "data.csv", tt.content)
			_, err := ImportAndNormalize(path, tt.maxRows)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrEmptyDataset)
		})
	}
}

func TestImportAndNormalize_MissingColumns(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		row     string
		missing []string
	}{
		{name: "missing content", header: "id,tiny_link", row: "1,a", missing: []string{"content"}},
		{name: "missing id and link", header: "content,other", row: "hello,x", missing: []string{"id", "tiny_link"}},
		{name: "missing all", header: "a,b,c", row: "1,2,3", missing: []string{"id", "tiny_link", "content"}},
		{name: "case sensitive", header: "ID,tiny_link,Content", row: "1,a,b", missing: []string{"id", "content"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeSource(t, "data.csv", tt.header+"\n"+tt.row+"\n")
			_, err := ImportAndNormalize(path, 10)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMissingColumns)

			var le *LoadError
			require.True(t, errors.As(err, &le))
			assert.Equal(t, tt.missing, le.Missing)
			for _, name := range tt.missing {
				assert.Contains(t, err.Error(), name)
			}
		})
	}
}

func TestImportAndNormalize_NoValidRows(t *testing.T) {
	path := writeSource(t, "data.csv", "id,tiny_link,content\n1,a,\n2,b,\"\"\n")

	_, err := ImportAndNormalize(path, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoValidRows)

	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, path, le.Path)
}

func TestImportAndNormalize_UnexpectedParse(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "row longer than header", content: "id,tiny_link,content\n1,a,b\n2,c,d,e\n"},
		{name: "invalid utf-8", content: "id,tiny_link,content\n1,http://a,caf\xe9\n"},
		{name: "bare quote", content: "id,tiny_link,content\n1,a,b\"c\n"},
		{name: "unterminated quote", content: "id,tiny_link,content\n1,a,\"open\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeSource(t, "data.csv", tt.content)
			_, err := ImportAndNormalize(path, Unbounded)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnexpectedParse)

			var le *LoadError
			require.True(t, errors.As(err, &le))
			assert.NotNil(t, le.Err, "parse errors carry the underlying cause")
		})
	}
}

func TestImportAndNormalize_LongRowBeyondMaxRowsIsNotRead(t *testing.T) {
	path := writeSource(t, "data.csv", "id,tiny_link,content\n1,a,b\n2,c,d,e\n")

	records, err := ImportAndNormalize(path, 1)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestImportAndNormalize_ShortRowsAreDropped(t *testing.T) {
	path := writeSource(t, "data.csv",
		"id,tiny_link,content\n"+
			"1,http://a,hello\n"+
			"2,http://b\n"+
			"3,http://c,world\n")

	records, err := ImportAndNormalize(path, Unbounded)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "1", records[0].ID)
	assert.Equal(t, "3", records[1].ID)
}

func TestImportAndNormalize_InvalidUTF8(t *testing.T) {
	tests := []struct {
		name    string
		content string
		line    string
	}{
		{name: "content", content: "id,tiny_link,content\n1,http://a,caf\xe9\n", line: "line 2"},
		{name: "tiny_link", content: "id,tiny_link,content\n1,http://a,ok\n2,http://\xff,ok\n", line: "line 3"},
		{name: "id", content: "id,tiny_link,content\n\xfe1,http://a,ok\n", line: "line 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeSource(t, "data.csv", tt.content)
			records, err := ImportAndNormalize(path, Unbounded)
			assert.Nil(t, records)
			assert.ErrorIs(t, err, ErrUnexpectedParse)

			var le *LoadError
			require.True(t, errors.As(err, &le))
			require.Error(t, le.Err)
			assert.Contains(t, le.Err.Error(), "record on "+tt.line+": invalid UTF-8")
		})
	}
}

func TestImportAndNormalize_QuotedFields(t *testing.T) {
	path := writeSource(t, "data.csv",
		"id,tiny_link,content\n"+
			"1,\"http://a?x=1,y=2\",\"line one\nline two, with \"\"quotes\"\"\"\n")

	records, err := ImportAndNormalize(path, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	meta := decode(t, records[0])
	assert.Equal(t, "http://a?x=1,y=2", meta["source"])
	assert.Equal(t, "line one\nline two, with \"quotes\"", meta["text"])
}

func TestImportAndNormalize_BOMAndTSV(t *testing.T) {
	t.Run("byte order mark on header", func(t *testing.T) {
		path := writeSource(t, "data.csv", "\ufeffid,tiny_link,content\n1,a,hello\n")
		records, err := ImportAndNormalize(path, 10)
		require.NoError(t, err)
		assert.Equal(t, "1", records[0].ID)
	})

	t.Run("tsv defaults to tab", func(t *testing.T) {
		path := writeSource(t, "data.tsv", "id\ttiny_link\tcontent\n1\thttp://a\thello, world\n")
		records, err := ImportAndNormalize(path, 10)
		require.NoError(t, err)
		assert.Equal(t, "hello, world", decode(t, records[0])["text"])
	})

	t.Run("explicit delimiter", func(t *testing.T) {
		path := writeSource(t, "data.txt", "id;tiny_link;content\n1;http://a;hello\n")
		records, err := ImportAndNormalize(path, 10, WithDelimiter(';'))
		require.NoError(t, err)
		assert.Equal(t, "http://a", decode(t, records[0])["source"])
	})
}
