package engine

import (
	"context"
	"errors"
	"fmt"
)

// ActionToggleTranslation 开关命令
const ActionToggleTranslation = "toggleTranslation"

// ErrUnknownAction 无法识别的命令
var ErrUnknownAction = errors.New("engine: unknown action")

// Message 来自设置界面的命令
type Message struct {
	Action  string `json:"action"`
	Enabled bool   `json:"enabled"`
}

// Response 命令应答
type Response struct {
	Success bool `json:"success"`
}

// HandleMessage 执行命令，状态切换完成后应答 success
func (c *Controller) HandleMessage(ctx context.Context, msg Message) (Response, error) {
	switch msg.Action {
	case ActionToggleTranslation:
		if err := c.Toggle(ctx, msg.Enabled); err != nil {
			return Response{}, err
		}
		return Response{Success: true}, nil
	default:
		return Response{}, fmt.Errorf("%w: %q", ErrUnknownAction, msg.Action)
	}
}
