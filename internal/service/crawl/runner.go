package crawl

import (
	"context"

	"go.uber.org/zap"

	"github.com/LouYuanbo1/socialagent/internal/faults"
	"github.com/LouYuanbo1/socialagent/param"
)

// RunWithHealing 从全新请求开始执行,治愈状态在进程内循环消费,
// 直到产出结果、终态失败或递归计数超过上限
func (m *Machine) RunWithHealing(ctx context.Context, req *param.JobRequest) (*Outcome, error) {
	if !req.IsValid() {
		return nil, faults.New(faults.Terminal, "任务请求缺少必填字段")
	}
	state := param.NewJobState(req)
	for {
		outcome, healState, err := m.Run(ctx, state)
		if err != nil {
			return nil, err
		}
		if outcome != nil {
			return outcome, nil
		}
		if healState.RecursionCount > m.cfg.Crawl.MaxRecursion {
			return nil, faults.Newf(faults.Terminal,
				"治愈重启超过上限(%d): %s", m.cfg.Crawl.MaxRecursion, healState.HealReason)
		}
		m.log.Warn("进入治愈重启",
			zap.String("phase", string(healState.HealPhase)),
			zap.String("reason", healState.HealReason),
			zap.Int("recursion", healState.RecursionCount))
		state = healState
	}
}
