package storagefactory

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"lyricvid/internal/config"
	"lyricvid/internal/pkg/errs"
	"lyricvid/internal/pkg/storage"
)

func TestNewStorage(t *testing.T) {
	Convey("按配置创建存储", t, func() {
		ctx := context.Background()

		Convey("本地存储", func() {
			s, err := NewStorage(ctx, &config.StorageConfig{
				Type:  "local",
				Local: &config.LocalConfig{BasePath: t.TempDir()},
			})
			So(err, ShouldBeNil)
			So(s.GetStorageType(), ShouldEqual, "local")
		})

		Convey("缺少本地配置", func() {
			s, err := NewStorage(ctx, &config.StorageConfig{Type: "local"})
			So(errors.Is(err, errs.ErrInvalidInput), ShouldBeTrue)
			So(s, ShouldBeNil)
		})

		Convey("缺少 OSS bucket", func() {
			s, err := NewStorage(ctx, &config.StorageConfig{Type: "oss", OSS: &config.OSSConfig{Endpoint: "oss-cn-hangzhou.aliyuncs.com"}})
			So(errors.Is(err, errs.ErrInvalidInput), ShouldBeTrue)
			So(s, ShouldBeNil)
		})

		Convey("不支持的类型", func() {
			_, err := NewStorage(ctx, &config.StorageConfig{Type: "s3"})
			So(errors.Is(err, errs.ErrInvalidInput), ShouldBeTrue)
		})
	})
}

func TestLocalStorage_Operations(t *testing.T) {
	Convey("本地存储读写", t, func() {
		ctx := context.Background()
		baseDir := t.TempDir()
		baseURL := "http://localhost:8080/videos/"

		s, err := NewStorage(ctx, &config.StorageConfig{
			Type:  "local",
			Local: &config.LocalConfig{BasePath: baseDir, BaseURL: baseURL},
		})
		So(err, ShouldBeNil)

		key := storage.VideoKey("lucy-rose-middle-of-the-bed", "/tmp/work/lucy-rose-middle-of-the-bed.mp4")
		So(key, ShouldEqual, "videos/lucy-rose-middle-of-the-bed/lucy-rose-middle-of-the-bed.mp4")

		url, err := s.Upload(ctx, key, strings.NewReader("video bytes"), storage.ContentType(key))
		So(err, ShouldBeNil)
		So(url, ShouldEqual, "http://localhost:8080/videos/"+key)

		exists, err := s.Exists(ctx, key)
		So(err, ShouldBeNil)
		So(exists, ShouldBeTrue)

		reader, err := s.Download(ctx, key)
		So(err, ShouldBeNil)
		data, _ := io.ReadAll(reader)
		reader.Close()
		So(string(data), ShouldEqual, "video bytes")

		downloadURL, err := s.GetDownloadURL(ctx, key, time.Hour)
		So(err, ShouldBeNil)
		So(downloadURL, ShouldEqual, url)

		So(s.Delete(ctx, key), ShouldBeNil)
		exists, err = s.Exists(ctx, key)
		So(err, ShouldBeNil)
		So(exists, ShouldBeFalse)

		Convey("不存在的文件", func() {
			_, err := s.Download(ctx, "nope.mp4")
			So(errors.Is(err, errs.ErrNotFound), ShouldBeTrue)
			So(s.Delete(ctx, "nope.mp4"), ShouldBeNil)
		})

		Convey("key 不能跳出基础目录", func() {
			_, err := s.Upload(ctx, "../../escape.txt", strings.NewReader("x"), "text/plain")
			So(err, ShouldBeNil)
			_, statErr := os.Stat(filepath.Join(baseDir, "escape.txt"))
			So(statErr, ShouldBeNil)
		})
	})

	Convey("没有 BaseURL 时返回 file:// 路径", t, func() {
		baseDir := t.TempDir()
		s, err := NewStorage(context.Background(), &config.StorageConfig{
			Type:  "local",
			Local: &config.LocalConfig{BasePath: baseDir},
		})
		So(err, ShouldBeNil)
		url, err := s.Upload(context.Background(), "a/b.mp4", strings.NewReader("x"), "video/mp4")
		So(err, ShouldBeNil)
		So(url, ShouldStartWith, "file://")
		So(url, ShouldEndWith, "/a/b.mp4")
	})
}

func TestContentType(t *testing.T) {
	Convey("根据扩展名获取 Content-Type", t, func() {
		So(storage.ContentType("a.MP4"), ShouldEqual, "video/mp4")
		So(storage.ContentType("bg.gif"), ShouldEqual, "image/gif")
		So(storage.ContentType("x.bin"), ShouldEqual, "application/octet-stream")
	})
}
