package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	PostKeyPrefix = "post:%s"
	PostCountKey  = "posts:count"
)

const (
	PostTTL      = 5 * time.Minute
	PostCountTTL = 30 * time.Second
)

func PostKey(postID string) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidatePost(ctx context.Context, postID string) {
	Invalidate(ctx, PostKey(postID))
}

func InvalidatePostCount(ctx context.Context) {
	Invalidate(ctx, PostCountKey)
}
