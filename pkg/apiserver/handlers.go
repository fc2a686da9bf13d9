package apiserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !s.auth.checkPassword(req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	token, err := s.auth.issueToken()
	if err != nil {
		s.logger.Error("token issuance failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}
	c.JSON(http.StatusOK, loginResponse{Token: token})
}

func (s *Server) handleSize(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"size": s.queue.Size()})
}

func (s *Server) handleEmpty(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"empty": s.queue.IsEmpty()})
}

// slotMetrics mirrors one dualtree.SlotSnapshot for JSON output.
type slotMetrics struct {
	Index        int      `json:"index"`
	Size         int      `json:"size"`
	NextPriority *float64 `json:"next_priority,omitempty"`
}

// queueMetrics is a point-in-time snapshot of the queue, grounded on the
// teacher's ollama-distributed/pkg/scheduler/task_queue.go QueueMetrics
// struct.
type queueMetrics struct {
	Slots          int           `json:"slots"`
	RemainingTasks int           `json:"remaining_tasks"`
	Empty          bool          `json:"empty"`
	PerSlot        []slotMetrics `json:"per_slot"`
}

func (s *Server) handleMetrics(c *gin.Context) {
	snapshots := s.queue.SlotMetrics()
	perSlot := make([]slotMetrics, len(snapshots))
	for i, snap := range snapshots {
		sm := slotMetrics{Index: snap.Index, Size: snap.Size}
		if snap.HasNext {
			p := snap.NextPriority
			sm.NextPriority = &p
		}
		perSlot[i] = sm
	}

	m := queueMetrics{
		Slots:          s.queue.Size(),
		RemainingTasks: s.queue.RemainingTasks(),
		Empty:          s.queue.IsEmpty(),
		PerSlot:        perSlot,
	}
	c.JSON(http.StatusOK, m)
}
