package cache

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"lyricvid/internal/config"
)

func TestNewRedisCache(t *testing.T) {
	Convey("Redis 不可达时返回错误", t, func() {
		c, err := NewRedisCache(context.Background(), &config.RedisConfig{Addr: "127.0.0.1:1"})
		So(err, ShouldNotBeNil)
		So(c, ShouldBeNil)
	})
}
