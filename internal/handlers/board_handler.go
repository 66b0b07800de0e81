package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskdesk/internal/realtime"
)

// BoardHandler streams live task events of the caller's company.
type BoardHandler struct {
	hub *realtime.Hub
}

func NewBoardHandler(hub *realtime.Hub) *BoardHandler {
	return &BoardHandler{hub: hub}
}

// Stream
// @Summary      Живая лента выполнений (WebSocket)
// @Description  Присылает {"type":"task.completed",...} при каждом выполнении задачи в компании. Токен можно передать в ?access_token=.
// @Tags         Tasks
// @Param        access_token  query  string  false  "JWT, если нельзя передать заголовок"
// @Success      101
// @Failure      400  {object}  errorResponse
// @Security     BearerAuth
// @Router       /ws/board [get]
func (h *BoardHandler) Stream(c *gin.Context) {
	actor, ok := mustActor(c, "board")
	if !ok {
		return
	}

	conn, err := realtime.Upgrade(c.Writer, c.Request)
	if err != nil {
		log.Printf("[board][upgrade][err] userID=%d: %v", actor.UserID, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.hub.Register(actor.CompanyID, conn)
	defer h.hub.Unregister(actor.CompanyID, conn)
	log.Printf("[board][open] userID=%d company=%d", actor.UserID, actor.CompanyID)

	// входящие сообщения не нужны, читаем только ради ping/close
	for {
		if _, err := conn.ReadMessage(); err != nil {
			log.Printf("[board][close] userID=%d: %v", actor.UserID, err)
			return
		}
	}
}
