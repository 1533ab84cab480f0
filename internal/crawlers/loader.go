package crawlers

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// LoaderPolicy 增量加载的时间与收敛策略
type LoaderPolicy struct {
	ExpandPhrases []string      // 展开按钮文本(小写)
	ExpandSettle  time.Duration // 点击展开后等待内容插入
	ScrollDelta   int           // 每轮滚动像素
	ScrollDelay   time.Duration // 滚动后等待
	StableRounds  int           // 连续多少轮帖子数不变视为收敛
	SafetyMargin  time.Duration // 截止时间在任务超时基础上预留的余量
}

// DefaultLoaderPolicy 默认策略
func DefaultLoaderPolicy() LoaderPolicy {
	return LoaderPolicy{
		ExpandPhrases: ExpandPhrases,
		ExpandSettle:  2 * time.Second,
		ScrollDelta:   800,
		ScrollDelay:   1500 * time.Millisecond,
		StableRounds:  5,
		SafetyMargin:  5 * time.Second,
	}
}

// LoadExit 加载循环的退出原因
type LoadExit string

const (
	ExitStable   LoadExit = "stable"
	ExitDeadline LoadExit = "deadline"
	ExitMaxPosts LoadExit = "max_posts"
)

// LoadStats 加载过程统计
type LoadStats struct {
	Rounds int
	Clicks int
	Posts  int
	Exit   LoadExit
}

// LoadAll 反复展开+滚动,直到帖子数收敛、到达截止时间或达到maxPosts
// 三种退出方式结果相同: 交给提取阶段处理当前已渲染的内容
// 只有ctx被取消时返回错误
func LoadAll(ctx context.Context, page Page, deadline time.Time, maxPosts int, policy LoaderPolicy) (LoadStats, error) {
	var (
		stats  LoadStats
		prev   = -1
		stable int
	)

	for {
		if !time.Now().Before(deadline) {
			stats.Exit = ExitDeadline
			return stats, nil
		}
		stats.Rounds++

		// 展开
		clicked, err := page.ClickByText(ctx, ExpandableSelector, policy.ExpandPhrases)
		if err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			log.Debug().Err(err).Int("round", stats.Rounds).Msg("点击展开按钮失败")
		}
		stats.Clicks += clicked

		// 展开会异步插入内容
		if clicked > 0 {
			if err := sleepUntil(ctx, policy.ExpandSettle, deadline); err != nil {
				return stats, err
			}
		}

		// 滚动
		if err := page.ScrollBy(ctx, policy.ScrollDelta); err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			log.Debug().Err(err).Int("round", stats.Rounds).Msg("滚动页面失败")
		}
		if err := sleepUntil(ctx, policy.ScrollDelay, deadline); err != nil {
			return stats, err
		}

		// 收敛检查
		count, err := page.Count(ctx, PostSelector)
		if err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			log.Debug().Err(err).Int("round", stats.Rounds).Msg("统计帖子数量失败")
			count = max(prev, 0)
		}
		if count == prev {
			stable++
		} else {
			stable = 0
		}
		prev = count
		stats.Posts = count

		log.Debug().
			Int("round", stats.Rounds).
			Int("clicked", clicked).
			Int("posts", count).
			Int("stable", stable).
			Msg("增量加载")

		if stable >= policy.StableRounds {
			stats.Exit = ExitStable
			return stats, nil
		}
		if maxPosts > 0 && count >= maxPosts {
			stats.Exit = ExitMaxPosts
			return stats, nil
		}
	}
}

// sleepUntil 等待d,但不越过deadline
func sleepUntil(ctx context.Context, d time.Duration, deadline time.Time) error {
	if remaining := time.Until(deadline); remaining < d {
		d = remaining
	}
	return sleepCtx(ctx, d)
}
