package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"parley/internal/app"
	"parley/internal/auth"
	"parley/internal/domain"
)

type roomHandlers struct {
	rooms *app.Rooms
}

func identity(c *gin.Context) domain.Identity {
	uid, username := auth.IdentityFrom(c)
	return domain.Identity{UserID: domain.UserID(uid), Username: username}
}

func (h *roomHandlers) list(c *gin.Context) {
	rooms, err := h.rooms.ListRooms(c.Request.Context(), identity(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rooms)
}

type createRoomRequest struct {
	Name        string               `json:"name" binding:"required"`
	Description string               `json:"description"`
	IsPrivate   bool                 `json:"is_private"`
	Settings    *domain.RoomSettings `json:"settings"`
}

func (h *roomHandlers) create(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid room name"})
		return
	}
	room, err := h.rooms.CreateRoom(c.Request.Context(), identity(c), req.Name, req.Description, req.IsPrivate, req.Settings)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, room)
}

func (h *roomHandlers) get(c *gin.Context) {
	room, err := h.rooms.GetRoom(c.Request.Context(), c.Param("roomId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

type updateRoomRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (h *roomHandlers) update(c *gin.Context) {
	var req updateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	room, err := h.rooms.UpdateRoom(c.Request.Context(), identity(c), c.Param("roomId"), req.Name, req.Description)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Room updated successfully", "room": room})
}

type joinRoomRequest struct {
	InviteCode string `json:"invite_code"`
}

func (h *roomHandlers) join(c *gin.Context) {
	var req joinRoomRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}
	}
	status, room, err := h.rooms.JoinRoom(c.Request.Context(), identity(c), c.Param("roomId"), req.InviteCode)
	if err != nil {
		writeError(c, err)
		return
	}
	if status == domain.JoinStatusPending {
		c.JSON(http.StatusOK, gin.H{
			"status":  status.String(),
			"message": "Join request sent, awaiting approval",
			"room_id": room.ID,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  status.String(),
		"message": "Joined room successfully",
		"room":    room,
	})
}

func (h *roomHandlers) pending(c *gin.Context) {
	requests, err := h.rooms.PendingRequests(c.Request.Context(), identity(c), c.Param("roomId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

func (h *roomHandlers) approve(c *gin.Context) {
	username, err := h.rooms.ApproveRequest(c.Request.Context(), identity(c), c.Param("roomId"), domain.UserID(c.Param("userId")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User approved and added to room", "username": username})
}

func (h *roomHandlers) reject(c *gin.Context) {
	username, err := h.rooms.RejectRequest(c.Request.Context(), identity(c), c.Param("roomId"), domain.UserID(c.Param("userId")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Join request rejected", "username": username})
}

func (h *roomHandlers) removeMember(c *gin.Context) {
	deleted, err := h.rooms.RemoveMember(c.Request.Context(), identity(c), c.Param("roomId"), domain.UserID(c.Param("userId")))
	if err != nil {
		writeError(c, err)
		return
	}
	if deleted {
		c.JSON(http.StatusOK, gin.H{"message": "Room deleted as last member left"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Member removed successfully"})
}

func (h *roomHandlers) ban(c *gin.Context) {
	if err := h.rooms.BanUser(c.Request.Context(), identity(c), c.Param("roomId"), domain.UserID(c.Param("userId"))); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User banned successfully"})
}

type transferAdminRequest struct {
	NewAdminID string `json:"new_admin_id" binding:"required"`
}

func (h *roomHandlers) transferAdmin(c *gin.Context) {
	var req transferAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing new admin id"})
		return
	}
	room, err := h.rooms.TransferAdmin(c.Request.Context(), identity(c), c.Param("roomId"), domain.UserID(req.NewAdminID))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Admin rights transferred successfully", "room": room})
}

func (h *roomHandlers) history(c *gin.Context) {
	msgs, err := h.rooms.History(c.Request.Context(), c.Param("room"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}
