package promote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theresaanna/san-x-monitor/internal/monitor"
)

func TestHeuristicShouldPromote(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(1000)
	tests := []struct {
		name string
		page monitor.Page
		want bool
	}{
		{name: "empty body", page: monitor.Page{StatusCode: 200, Body: []byte("  ")}, want: true},
		{name: "spa marker", page: monitor.Page{StatusCode: 200, Body: []byte(`<div id="__next"></div>`)}, want: true},
		{
			name: "script density",
			page: monitor.Page{StatusCode: 200, Body: []byte(`<html><script>var a=1;</script><p>t</p></html>`)},
			want: true,
		},
		{
			name: "unclosed script tag",
			page: monitor.Page{StatusCode: 200, Body: []byte(`<p>x</p><script src="app.js"`)},
			want: true,
		},
		{
			name: "server rendered listing",
			page: monitor.Page{StatusCode: 200, Body: []byte(`<html><body><div class="products"><p>Rilakkuma mug</p></div></body></html>`)},
			want: false,
		},
		{name: "non 2xx", page: monitor.Page{StatusCode: 404, Body: []byte("")}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, h.ShouldPromote(tt.page))
		})
	}
}

func TestNewHeuristicDefault(t *testing.T) {
	t.Parallel()

	require.Equal(t, DefaultBodyThreshold, NewHeuristic(0).BodyLengthThreshold)
}

type stubFetcher struct {
	page  monitor.Page
	err   error
	calls int
}

func (s *stubFetcher) Fetch(_ context.Context, _ string) (monitor.Page, error) {
	s.calls++
	return s.page, s.err
}

func TestFetchKeepsStaticPage(t *testing.T) {
	t.Parallel()

	static := &stubFetcher{page: monitor.Page{StatusCode: 200, Body: []byte(`<main><p>Sumikko Gurashi</p></main>`)}}
	renderer := &stubFetcher{}
	page, err := New(static, renderer, nil, nil).Fetch(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, static.page.Body, page.Body)
	assert.Zero(t, renderer.calls)
}

func TestFetchPromotes(t *testing.T) {
	t.Parallel()

	static := &stubFetcher{page: monitor.Page{StatusCode: 200, Body: []byte(`<div id="app"></div>`), Duration: time.Second}}
	renderer := &stubFetcher{page: monitor.Page{StatusCode: 200, Body: []byte(`<div id="app"><p>rendered</p></div>`), Duration: time.Second}}
	page, err := New(static, renderer, nil, nil).Fetch(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.Contains(t, string(page.Body), "rendered")
	assert.Equal(t, 2*time.Second, page.Duration)
}

func TestFetchRenderFailureFailsFetch(t *testing.T) {
	t.Parallel()

	static := &stubFetcher{page: monitor.Page{StatusCode: 200, Body: []byte(`<div id="root"></div>`)}}
	renderer := &stubFetcher{err: errors.New("chrome not found")}
	page, err := New(static, renderer, nil, nil).Fetch(context.Background(), "https://example.com")
	require.Error(t, err)
	var transportErr *monitor.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "render", transportErr.Op)
	assert.Equal(t, "https://example.com", transportErr.URL)
	assert.Empty(t, page.Body)
	assert.Equal(t, 1, renderer.calls)
}

func TestFetchRenderStatusErrorKeepsType(t *testing.T) {
	t.Parallel()

	want := &monitor.HTTPStatusError{Op: "render", URL: "u", StatusCode: 503}
	static := &stubFetcher{page: monitor.Page{StatusCode: 200, Body: []byte(`<div id="__next"></div>`)}}
	_, err := New(static, &stubFetcher{err: want}, nil, nil).Fetch(context.Background(), "u")
	assert.ErrorIs(t, err, want)
}

func TestFetchStaticFailure(t *testing.T) {
	t.Parallel()

	want := &monitor.HTTPStatusError{Op: "fetch", URL: "u", StatusCode: 500}
	_, err := New(&stubFetcher{err: want}, &stubFetcher{}, nil, nil).Fetch(context.Background(), "u")
	assert.ErrorIs(t, err, want)
}
