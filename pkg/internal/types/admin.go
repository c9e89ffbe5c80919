package types

// UsageReport 单个用户的用量核对结果.
type UsageReport struct {
	UserID   string `json:"userId"`
	Recorded int64  `json:"recorded"`
	Actual   int64  `json:"actual"`
	Drift    int64  `json:"drift"`
	Repaired bool   `json:"repaired"`
}

// RepairUsageRequest 管理员修复用量.
type RepairUsageRequest struct {
	// UserID 为空时处理所有用户.
	UserID string `json:"userId"`
	DryRun bool   `json:"dryRun"`
}

// RepairUsageResponse 修复结果.
type RepairUsageResponse struct {
	Reports  []UsageReport `json:"reports"`
	Drifted  int           `json:"drifted"`
	Repaired int           `json:"repaired"`
}

// HealthResponse 组件健康状态.
type HealthResponse struct {
	Component string `json:"component"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// SweepResult 孤儿巡检结果.
type SweepResult struct {
	Checked int `json:"checked"`
	Healed  int `json:"healed"`
}
