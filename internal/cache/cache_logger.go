package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern safely invalidates a cache pattern with logging.
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete safely deletes cache keys with logging.
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateExamCache invalidates all exam-related caches after a catalog write.
func InvalidateExamCache(ctx context.Context, cm *CacheManager, examID uint, creatorID string) {
	SafeDelete(ctx, cm.Exam,
		fmt.Sprintf("id:%d", examID),
		fmt.Sprintf("details:%d", examID))

	SafeInvalidatePattern(ctx, cm.Exam, fmt.Sprintf("creator:%s:*", creatorID))
	SafeInvalidatePattern(ctx, cm.Exam, "visible:*")
}

// InvalidateAttemptCache invalidates the fast-path attempt lookups after a
// lifecycle transition.
func InvalidateAttemptCache(ctx context.Context, cm *CacheManager, attemptID uint) {
	SafeDelete(ctx, cm.Fast, fmt.Sprintf("attempt:%d", attemptID))
}
