// internal/adapters/rest/shift_handler.go
package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/domain"
	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/shift"
)

const (
	socketTick     = time.Second
	socketWriteTTL = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CORS already vetted the origin of the API
	CheckOrigin: func(r *http.Request) bool { return true },
}

// socketMessage is one frame of the shift stream: either a countdown tick or
// a supervisor event.
type socketMessage struct {
	Type             string `json:"type"`
	IsActive         bool   `json:"isActive"`
	RemainingSeconds int64  `json:"remainingSeconds"`
	ElapsedSeconds   int64  `json:"elapsedSeconds"`
	Remaining        string `json:"remaining"`
}

func (h *handler) listShifts(c *gin.Context) {
	var filter domain.ShiftFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	shifts, page, err := h.Shifts.List(c.Request.Context(), currentUser(c), filter)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	okPage(c, shifts, page)
}

func (h *handler) currentShift(c *gin.Context) {
	st, err := h.Shifts.Current(c.Request.Context(), currentUser(c))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	ok(c, http.StatusOK, "", st)
}

func (h *handler) clockIn(c *gin.Context) {
	st, err := h.Shifts.ClockIn(c.Request.Context(), currentUser(c))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	ok(c, http.StatusOK, "Shift started", st)
}

func (h *handler) clockOut(c *gin.Context) {
	sh, err := h.Shifts.ClockOut(c.Request.Context(), currentUser(c))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	ok(c, http.StatusOK, "Shift ended", sh)
}

func (h *handler) shiftStats(c *gin.Context) {
	stats, err := h.Shifts.Stats(c.Request.Context())
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	ok(c, http.StatusOK, "", stats)
}

// shiftSocket streams the caller's countdown every second plus warning and
// expiry events until the shift ends or the client goes away.
func (h *handler) shiftSocket(c *gin.Context) {
	user := currentUser(c)
	st, err := h.Shifts.Current(c.Request.Context(), user)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warningf("upgrading shift socket for user %d: %v", user.ID, err)
		return
	}
	defer conn.Close()

	events, release := h.Shifts.Supervisor().Subscribe(user.ID)
	defer release()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(v interface{}) bool {
		conn.SetWriteDeadline(time.Now().Add(socketWriteTTL))
		if err := conn.WriteJSON(v); err != nil {
			logger.Debugf("shift socket of user %d: %v", user.ID, err)
			return false
		}
		return true
	}
	tick := func() bool {
		status, watched := h.Shifts.Supervisor().Status(user.ID)
		msg := socketMessage{Type: "tick", IsActive: watched && status.Active}
		if msg.IsActive {
			msg.RemainingSeconds = status.RemainingSeconds()
			msg.ElapsedSeconds = status.ElapsedSeconds()
			msg.Remaining = shift.FormatDuration(status.Remaining)
		}
		return send(msg)
	}

	if !send(gin.H{"type": "state", "shift": st}) {
		return
	}
	for {
		timer := h.clock.NewTimer(socketTick)
		select {
		case <-closed:
			timer.Stop()
			return
		case ev, open := <-events:
			timer.Stop()
			if !open || !send(ev) {
				return
			}
			if ev.Type == shift.EventExpired || ev.Type == shift.EventEnded {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(ev.Type)),
					time.Now().Add(socketWriteTTL))
				return
			}
		case <-timer.Chan():
			if !tick() {
				return
			}
		}
	}
}
