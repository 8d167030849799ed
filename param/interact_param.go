package param

type InteractionKind string

const (
	InteractionSendMessage   InteractionKind = "send-message"
	InteractionAddConnection InteractionKind = "add-connection"
	InteractionCreatePost    InteractionKind = "create-post"
)

// InteractionRequest 单次交互动作(私信/加好友/发帖),全部经由交互队列串行执行
type InteractionRequest struct {
	Kind            InteractionKind `json:"kind"`
	TargetProfileID string          `json:"target_profile_id"`
	Payload         string          `json:"payload"`
	UserID          string          `json:"user_id"`
	AuthToken       string          `json:"auth_token"`
}

func (ir *InteractionRequest) IsValid() bool {
	if ir.Payload == "" {
		return false
	}
	switch ir.Kind {
	case InteractionCreatePost:
		return true
	case InteractionSendMessage, InteractionAddConnection:
		return ir.TargetProfileID != ""
	default:
		return false
	}
}
