package state

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theresaanna/san-x-monitor/internal/monitor"
)

func TestEncodeUsesLegacyKeys(t *testing.T) {
	t.Parallel()

	data, err := Encode(monitor.State{
		Fingerprint: "5eb63bbbe01eeed093cb22bb8f5acdc3",
		URL:         "https://shop.san-x.co.jp/feature/index/202403_new",
		Period:      "202403_new",
		LastCheck:   time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	var raw map[string]string
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, map[string]string{
		"hash":       "5eb63bbbe01eeed093cb22bb8f5acdc3",
		"url":        "https://shop.san-x.co.jp/feature/index/202403_new",
		"month_str":  "202403_new",
		"last_check": "2024-03-15T09:30:00Z",
	}, raw)
}

func TestDecodeLegacyFile(t *testing.T) {
	t.Parallel()

	doc := []byte(`{
  "hash": "abc",
  "url": "https://shop.san-x.co.jp/feature/index/202403_new",
  "month_str": "202403_new",
  "last_check": "2024-03-15T09:30:12.345678"
}`)
	st, err := Decode(doc)
	require.NoError(t, err)
	assert.Equal(t, monitor.Fingerprint("abc"), st.Fingerprint)
	assert.Equal(t, "202403_new", st.Period)
	assert.Equal(t, 2024, st.LastCheck.Year())
	assert.Equal(t, 345678000, st.LastCheck.Nanosecond())
	assert.Equal(t, time.Local, st.LastCheck.Location())
}

func TestDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	in := monitor.State{
		Fingerprint: "abc",
		URL:         "https://shop.san-x.co.jp/category/new",
		Period:      "general_new",
		LastCheck:   time.Date(2025, 1, 2, 3, 4, 5, 0, time.FixedZone("JST", 9*3600)),
	}
	data, err := Encode(in)
	require.NoError(t, err)
	out, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, in.Fingerprint, out.Fingerprint)
	assert.Equal(t, in.URL, out.URL)
	assert.Equal(t, in.Period, out.Period)
	assert.True(t, in.LastCheck.Equal(out.LastCheck))
}

func TestDecodeRejectsCorruptDocuments(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"not json":     `{"hash":`,
		"missing hash": `{"url":"https://x","month_str":"202403_new"}`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := Decode([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestDecodeKeepsRecordWithUnreadableTimestamp(t *testing.T) {
	t.Parallel()

	st, err := Decode([]byte(`{"hash":"abc","url":"https://shop.san-x.co.jp/feature/index/202403_new",` +
		`"month_str":"202403_new","last_check":"15/03/2024 10:00"}`))
	require.NoError(t, err)
	assert.Equal(t, monitor.Fingerprint("abc"), st.Fingerprint)
	assert.Equal(t, "https://shop.san-x.co.jp/feature/index/202403_new", st.URL)
	assert.Equal(t, "202403_new", st.Period)
	assert.True(t, st.LastCheck.IsZero())
}

func TestParseTimestampSpaceSeparated(t *testing.T) {
	t.Parallel()

	ts, err := ParseTimestamp("2024-03-15 10:00:00")
	require.NoError(t, err)
	assert.True(t, time.Date(2024, 3, 15, 10, 0, 0, 0, time.Local).Equal(ts))

	_, err = ParseTimestamp("yesterday")
	assert.ErrorContains(t, err, "parse last_check")
}

func TestParseTimestampEmpty(t *testing.T) {
	t.Parallel()

	ts, err := ParseTimestamp("  ")
	require.NoError(t, err)
	assert.True(t, ts.IsZero())
}
