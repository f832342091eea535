package handler

import (
	"fmt"

	"github.com/a3zone/server/internal/net"
	"github.com/a3zone/server/internal/net/packet"
)

// HandleQuit processes QUIT: reply BYE and close once it is written.
// The character is saved by the router's OnClose.
func HandleQuit(sess *net.Session, _ *packet.Reader, deps *Deps) {
	deps.Log.Info(fmt.Sprintf("玩家登出  session=%d  帳號=%s", sess.ID, sess.AccountName))
	sess.Send("BYE", nil)
	sess.CloseAfterFlush()
}
