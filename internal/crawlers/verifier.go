package crawlers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/RecoveryAshes/sitecheck/internal/utils"
	"github.com/allegro/bigcache/v3"
	"golang.org/x/sync/singleflight"
)

// checkCacheLifetime 校验结果在缓存中的保留时间,覆盖一次完整运行
const checkCacheLifetime = 6 * time.Hour

// linkVerifier 对站内链接做HEAD校验
// 并发中对同一目标的请求合并为一次;开启缓存后同一次运行内每个目标只校验一次
type linkVerifier struct {
	fetcher Fetcher
	group   singleflight.Group
	cache   *bigcache.BigCache
}

func newLinkVerifier(ctx context.Context, fetcher Fetcher, useCache bool) (*linkVerifier, error) {
	v := &linkVerifier{fetcher: fetcher}
	if !useCache {
		return v, nil
	}

	cfg := bigcache.DefaultConfig(checkCacheLifetime)
	cfg.Shards = 64
	cfg.MaxEntriesInWindow = 64 * 1024
	cfg.MaxEntrySize = 8
	cfg.HardMaxCacheSize = 64 // MB
	cfg.CleanWindow = time.Minute
	cfg.Verbose = false

	cache, err := bigcache.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	v.cache = cache
	return v, nil
}

// Check 返回目标的状态码,网络失败时返回NoResponse
func (v *linkVerifier) Check(ctx context.Context, target string) int {
	if v.cache != nil {
		if cached, err := v.cache.Get(target); err == nil {
			if status, err := strconv.Atoi(string(cached)); err == nil {
				return status
			}
		} else if !errors.Is(err, bigcache.ErrEntryNotFound) {
			utils.Debugf("读取校验缓存失败 [%s]: %v", target, err)
		}
	}

	result, _, _ := v.group.Do(target, func() (any, error) {
		status, err := v.fetcher.Head(ctx, target)
		if err != nil {
			utils.Debugf("HEAD失败 [%s]: %v", target, err)
			return NoResponse, nil
		}
		return status, nil
	})
	status := result.(int)

	// 被取消的请求不能代表目标的真实状态
	if v.cache != nil && ctx.Err() == nil {
		if err := v.cache.Set(target, []byte(strconv.Itoa(status))); err != nil {
			utils.Debugf("写入校验缓存失败 [%s]: %v", target, err)
		}
	}
	return status
}

// Close 释放缓存
func (v *linkVerifier) Close() error {
	if v.cache == nil {
		return nil
	}
	return v.cache.Close()
}
