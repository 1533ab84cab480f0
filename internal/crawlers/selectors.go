package crawlers

// 平台DOM选择器
// 平台频繁调整DOM结构,提取失效时优先检查这里

const (
	// PostSelector 单条帖子
	PostSelector = `article[data-testid="tweet"]`

	PostTextSelector     = `[data-testid="tweetText"]`
	UserNameSelector     = `[data-testid="User-Name"]`
	AvatarSelector       = `[data-testid="Tweet-User-Avatar"] img`
	TimeSelector         = `time[datetime]`
	PhotoSelector        = `[data-testid="tweetPhoto"] img`
	VideoSelector        = `video`
	VideoSourceSelector  = `source[src]`
	ReplyStatSelector    = `[data-testid="reply"]`
	RepostStatSelector   = `[data-testid="retweet"], [data-testid="unretweet"]`
	LikeStatSelector     = `[data-testid="like"], [data-testid="unlike"]`
	BookmarkStatSelector = `[data-testid="bookmark"], [data-testid="removeBookmark"]`
	ViewStatSelector     = `a[href$="/analytics"]`

	// ThreadConnectorSelector 同作者连续发帖时头像下方的连接线
	ThreadConnectorSelector = `[data-testid="tweet"] div.r-1bnu78o.r-f8sm7e, [data-testid="tweet"] div[data-testid="thread-connector"]`

	// ExpandableSelector 可能是"展开"入口的可交互元素
	ExpandableSelector = `[role="button"], [role="link"], button, a[href*="/status/"] span`
)

var (
	// ThreadMarkers 自串帖的显式标记文本(小写)
	ThreadMarkers = []string{"show this thread", "continue reading"}

	// ExpandPhrases 触发加载更多内容的按钮文本(小写)
	ExpandPhrases = []string{"continue reading", "show more replies", "show replies", "show more"}
)
