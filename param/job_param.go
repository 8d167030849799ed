package param

import "github.com/google/uuid"

type HealPhase string

// 2. 定义常量，限制可能的值
const (
	HealNone           HealPhase = "none"
	HealLinkCollection HealPhase = "link-collection"
	HealProfileParsing HealPhase = "profile-parsing"
)

// JobRequest 一次搜索任务的入参,凭据只以密文形式携带,登录时即时解密
type JobRequest struct {
	TargetCompany         string `json:"target_company"`
	TargetRole            string `json:"target_role"`
	TargetLocation        string `json:"target_location"`
	CredentialsCiphertext string `json:"credentials_ciphertext"`
	AuthToken             string `json:"auth_token"`
}

func (jr *JobRequest) IsValid() bool {
	return jr.TargetCompany != "" && jr.CredentialsCiphertext != ""
}

// JobState 任务状态,状态机独占修改
// HealPhase为none时表示全新任务,从login阶段开始;否则为治愈重启,直接进入对应阶段
type JobState struct {
	TargetCompany     string    `json:"target_company"`
	TargetRole        string    `json:"target_role"`
	TargetLocation    string    `json:"target_location"`
	CredentialsRef    string    `json:"credentials_ref"`
	ResolvedCompanyID string    `json:"resolved_company_id"`
	ResolvedGeoID     string    `json:"resolved_geo_id"`
	HealPhase         HealPhase `json:"heal_phase"`
	HealReason        string    `json:"heal_reason"`
	RecursionCount    int       `json:"recursion_count"`
	ResumeIndex       int       `json:"resume_index"`
	LinkCacheRef      string    `json:"link_cache_ref"`
}

// NewJobState 由请求构建全新任务状态,LinkCacheRef在整个治愈链路中保持不变
func NewJobState(req *JobRequest) *JobState {
	return &JobState{
		TargetCompany:  req.TargetCompany,
		TargetRole:     req.TargetRole,
		TargetLocation: req.TargetLocation,
		CredentialsRef: req.CredentialsCiphertext,
		HealPhase:      HealNone,
		LinkCacheRef:   uuid.NewString(),
	}
}

func (js *JobState) IsValid() bool {
	if js.TargetCompany == "" || js.CredentialsRef == "" || js.LinkCacheRef == "" {
		return false
	}
	switch js.HealPhase {
	case HealNone:
		// 不变量: 非治愈状态必须从头开始
		return js.ResumeIndex == 0
	case HealLinkCollection, HealProfileParsing:
		return js.ResumeIndex >= 0 && js.RecursionCount > 0
	default:
		return false
	}
}

// Heal 构造治愈重启状态: 旧状态 + 阶段/原因/恢复位点,递归计数加一
// 已解析的公司ID/地理ID随状态保留,重启后跳过重复解析
func (js *JobState) Heal(phase HealPhase, reason string, resumeIndex int) *JobState {
	next := *js
	next.HealPhase = phase
	next.HealReason = reason
	next.ResumeIndex = resumeIndex
	next.RecursionCount = js.RecursionCount + 1
	return &next
}
