// Package crawlers 提供基于无头浏览器的帖子页面渲染与抓取能力
//
// # 概述
//
// crawlers包负责与渲染页面打交道的全部工作: 渲染实例池、会话准备、串帖判定、
// 增量加载和帖子提取。解析逻辑基于HTML快照(goquery),页面内脚本只用于点击、计数和滚动。
//
// # 核心组件
//
// ## BrowserPool (渲染实例池)
//
// 管理浏览器实例的生命周期,容量固定(可由ResourceMonitor收紧)。
// 核心策略:
//   - 实例按需创建,数量不超过容量
//   - 每个实例同一时刻只借给一个任务
//   - 池满时挂起等待,归还时唤醒一个等待者,不轮询
//   - 获取时检查连接状态,断开的实例原位替换
//
// 使用示例:
//
//	pool := NewBrowserPool(NewRodLauncher(cfg), 2, WithResourceMonitor(monitor))
//	defer pool.Drain()
//
//	pb, err := pool.Acquire(ctx)
//	if err != nil { /* 处理错误 */ }
//	defer pool.Release(pb)
//
// ## PrepareSession (会话准备)
//
// 打开新页面,设置视口和UA,注入登录Cookie,导航并等待首条帖子出现。
// 所有失败都归类为 models.ErrNavigation。
//
// ## IsThread (串帖判定)
//
// 三个信号任一成立即为串帖: 显式标记文本、目标作者至少两条可见帖子、连接线。
//
// ## LoadAll (增量加载)
//
// 循环执行 展开 -> 等待 -> 滚动 -> 计数,直到帖子数连续多轮不变、
// 到达截止时间或达到数量上限。三种退出方式都不是错误。
//
// ## ExtractAll (帖子提取)
//
// 把每条可见帖子转换为 models.RawPostRecord,丢弃没有正文也没有媒体的记录。
//
// ## ResourceMonitor (资源监控器)
//
// 根据可用内存和CPU核数计算实例上限,在创建池时调用一次。
//
// # 测试
//
// Page 和 Browser 都是接口,测试使用脚本化的假实现,不需要真实浏览器。
package crawlers
