package lyrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"lyricvid/internal/pkg/errs"
	"lyricvid/internal/pkg/httpclient"
)

func TestSplitLines(t *testing.T) {
	Convey("SplitLines 清理原始歌词", t, func() {
		raw := "\r\n  First line \r\nSecond line\n\n\n[00:12.34]Third line\n...\n\n******* This Lyrics is NOT for Commercial use *******\n(1409624012345)\n"
		So(SplitLines(raw), ShouldResemble, []string{"First line", "Second line", "", "Third line"})

		Convey("空文本", func() {
			So(SplitLines(""), ShouldBeEmpty)
			So(SplitLines("\n\n  \n"), ShouldBeEmpty)
		})
	})
}

func TestVerses(t *testing.T) {
	Convey("Verses 按空行分段", t, func() {
		lines := []string{"a", "b", "", "c", "", "", "d", "e", "f"}
		So(Verses(lines), ShouldResemble, [][]string{{"a", "b"}, {"c"}, {"d", "e", "f"}})
		So(Verses(nil), ShouldBeEmpty)
		So(NonEmpty(lines), ShouldResemble, []string{"a", "b", "c", "d", "e", "f"})
	})
}

type fakeProvider struct {
	name  string
	lines []string
	err   error
	calls int
}

func (f *fakeProvider) FetchLyrics(ctx context.Context, artist, title string) ([]string, error) {
	f.calls++
	return f.lines, f.err
}

func (f *fakeProvider) Name() string { return f.name }

func TestChain(t *testing.T) {
	Convey("Chain 依次尝试来源", t, func() {
		ctx := context.Background()
		notFound := &fakeProvider{name: "a", err: fmt.Errorf("%w: nope", errs.ErrNotFound)}
		broken := &fakeProvider{name: "b", err: fmt.Errorf("%w: boom", errs.ErrNetwork)}
		good := &fakeProvider{name: "c", lines: []string{"la"}}

		Convey("第一个失败后使用第二个", func() {
			lines, err := NewChain(notFound, good).FetchLyrics(ctx, "x", "y")
			So(err, ShouldBeNil)
			So(lines, ShouldResemble, []string{"la"})
			So(notFound.calls, ShouldEqual, 1)
		})

		Convey("全部未找到返回 ErrNotFound", func() {
			_, err := NewChain(notFound, notFound).FetchLyrics(ctx, "x", "y")
			So(errors.Is(err, errs.ErrNotFound), ShouldBeTrue)
		})

		Convey("包含网络错误时保留错误类别", func() {
			_, err := NewChain(notFound, broken).FetchLyrics(ctx, "x", "y")
			So(errors.Is(err, errs.ErrNetwork), ShouldBeTrue)
		})

		Convey("没有来源", func() {
			_, err := NewChain().FetchLyrics(ctx, "x", "y")
			So(errors.Is(err, errs.ErrInvalidInput), ShouldBeTrue)
		})

		So(NewChain(notFound, good).Name(), ShouldEqual, "a,c")
	})
}

type memoryCache struct {
	data map[string][]string
	sets int
}

func (m *memoryCache) Get(ctx context.Context, key string, dest any) error {
	v, ok := m.data[key]
	if !ok {
		return errors.New("miss")
	}
	*(dest.(*[]string)) = v
	return nil
}

func (m *memoryCache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	m.sets++
	m.data[key] = value.([]string)
	return nil
}

func TestCachedSource(t *testing.T) {
	Convey("CachedSource 命中后不再请求", t, func() {
		ctx := context.Background()
		upstream := &fakeProvider{name: "up", lines: []string{"one", "two"}}
		cache := &memoryCache{data: map[string][]string{}}
		src := NewCachedSource(upstream, cache, time.Hour)

		lines, err := src.FetchLyrics(ctx, "Lucy Rose", "Middle of the Bed")
		So(err, ShouldBeNil)
		So(lines, ShouldResemble, []string{"one", "two"})
		So(cache.sets, ShouldEqual, 1)
		So(cache.data, ShouldContainKey, "lyrics:lucy rose:middle of the bed")

		lines, err = src.FetchLyrics(ctx, " lucy rose ", "MIDDLE OF THE BED")
		So(err, ShouldBeNil)
		So(lines, ShouldResemble, []string{"one", "two"})
		So(upstream.calls, ShouldEqual, 1)

		Convey("上游错误不写缓存", func() {
			failing := NewCachedSource(&fakeProvider{name: "f", err: errs.ErrNotFound}, cache, time.Hour)
			_, err := failing.FetchLyrics(ctx, "a", "b")
			So(errors.Is(err, errs.ErrNotFound), ShouldBeTrue)
			So(cache.sets, ShouldEqual, 1)
		})
	})
}

func TestLRCLibClient(t *testing.T) {
	Convey("LRCLibClient 解析响应", t, func() {
		status := http.StatusOK
		body := `{"plainLyrics":"Hello\nWorld\n\nAgain","syncedLyrics":"","instrumental":false}`
		var gotQuery string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.RawQuery
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
		}))
		defer srv.Close()

		client := NewLRCLibClient(httpclient.New(httpclient.Config{RetryMax: 0}), srv.URL)
		ctx := context.Background()

		Convey("纯文本歌词", func() {
			lines, err := client.FetchLyrics(ctx, "Lucy Rose", "Middle of the Bed")
			So(err, ShouldBeNil)
			So(lines, ShouldResemble, []string{"Hello", "World", "", "Again"})
			So(gotQuery, ShouldContainSubstring, "artist_name=Lucy+Rose")
			So(gotQuery, ShouldContainSubstring, "track_name=Middle+of+the+Bed")
		})

		Convey("只有同步歌词时去掉时间戳", func() {
			body = `{"plainLyrics":"","syncedLyrics":"[00:01.00]Hello\n[00:02.50]World"}`
			lines, err := client.FetchLyrics(ctx, "a", "b")
			So(err, ShouldBeNil)
			So(lines, ShouldResemble, []string{"Hello", "World"})
		})

		Convey("404 返回 ErrNotFound", func() {
			status = http.StatusNotFound
			body = `{"message":"not found"}`
			_, err := client.FetchLyrics(ctx, "a", "b")
			So(errors.Is(err, errs.ErrNotFound), ShouldBeTrue)
		})

		Convey("纯音乐返回 ErrNotFound", func() {
			body = `{"plainLyrics":"","syncedLyrics":"","instrumental":true}`
			_, err := client.FetchLyrics(ctx, "a", "b")
			So(errors.Is(err, errs.ErrNotFound), ShouldBeTrue)
		})

		Convey("其他状态码返回 ErrNetwork", func() {
			status = http.StatusBadRequest
			_, err := client.FetchLyrics(ctx, "a", "b")
			So(errors.Is(err, errs.ErrNetwork), ShouldBeTrue)
		})
	})
}

func TestIsNotFoundMessage(t *testing.T) {
	Convey("识别 Musixmatch 404", t, func() {
		So(isNotFoundMessage("status code 404"), ShouldBeTrue)
		So(isNotFoundMessage("Resource Not Found"), ShouldBeTrue)
		So(isNotFoundMessage("status code 401"), ShouldBeFalse)
	})

	Convey("缺少 API Key", t, func() {
		_, err := NewMusixmatchClient("", nil)
		So(errors.Is(err, errs.ErrInvalidInput), ShouldBeTrue)
	})
}
