package server

import (
	"net/http"

	"bulls-cows/internal/rules"

	"github.com/gin-gonic/gin"
)

type roomURI struct {
	Code string `uri:"code" binding:"required,roomcode"`
}

type gameURI struct {
	GameID string `uri:"gameId" binding:"required,uuid"`
}

type createRoomRequest struct {
	DisplayName string `json:"displayName" binding:"required,displayname"`
}

type joinRoomRequest struct {
	DisplayName string `json:"displayName" binding:"required,displayname"`
	RoomCode    string `json:"roomCode" binding:"required,roomcode"`
}

type settingsRequest struct {
	TurnSeconds *int `json:"turnSeconds" binding:"required,turnseconds"`
}

type chatRequest struct {
	Message string `json:"message" binding:"required,chatmessage"`
}

type musicRequest struct {
	Action       string `json:"action" binding:"required,musicaction"`
	SpectatorKey string `json:"spectatorKey"`
}

type secretRequest struct {
	Secret string `json:"secret" binding:"required,digits4"`
}

type guessRequest struct {
	Guess  string `json:"guess" binding:"required,digits4"`
	TurnNo *int   `json:"turnNo" binding:"omitempty,min=1"`
}

type rematchRequest struct {
	Vote *bool `json:"vote" binding:"required"`
}

type watchQuery struct {
	Key string `form:"key" binding:"required"`
}

func (s *Server) handleCreateRoom(c *gin.Context) {
	var req createRoomRequest
	if !bindJSON(c, &req, createRoomMessages, rules.ErrInvalidRequest) {
		return
	}
	result, err := s.createRoom(c.Request.Context(), currentUserID(c), req.DisplayName)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (s *Server) handleJoinRoom(c *gin.Context) {
	var req joinRoomRequest
	if !bindJSON(c, &req, joinRoomMessages, rules.ErrInvalidRequest) {
		return
	}
	result, err := s.joinRoom(c.Request.Context(), currentUserID(c), req.DisplayName, req.RoomCode)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleHeartbeat(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri, roomURIMessages, rules.ErrInvalidRoomCode) {
		return
	}
	if err := s.heartbeat(c.Request.Context(), currentUserID(c), uri.Code); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleRoomState(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri, roomURIMessages, rules.ErrInvalidRoomCode) {
		return
	}
	state, err := s.fetchPlayerState(c.Request.Context(), currentUserID(c), uri.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) handleWatchState(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri, roomURIMessages, rules.ErrInvalidRoomCode) {
		return
	}
	var query watchQuery
	if !bindQuery(c, &query, watchMessages, rules.ErrInvalidSpectatorKey) {
		return
	}
	state, err := s.fetchSpectatorState(c.Request.Context(), uri.Code, query.Key)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) handleSettings(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri, roomURIMessages, rules.ErrInvalidRoomCode) {
		return
	}
	var req settingsRequest
	if !bindJSON(c, &req, settingsMessages, rules.ErrInvalidTurnSeconds) {
		return
	}
	settings, err := s.updateSettings(c.Request.Context(), currentUserID(c), uri.Code, *req.TurnSeconds)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "settings": settings})
}

func (s *Server) handleChat(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri, roomURIMessages, rules.ErrInvalidRoomCode) {
		return
	}
	var req chatRequest
	if !bindJSON(c, &req, chatMessages, rules.ErrInvalidChatMessage) {
		return
	}
	message, err := s.postChat(c.Request.Context(), currentUserID(c), uri.Code, req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, message)
}

func (s *Server) handleChatHistory(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri, roomURIMessages, rules.ErrInvalidRoomCode) {
		return
	}
	page, perPage := parsePagination(c, s.cfg.ChatTailSize, 200)
	history, err := s.chatHistory(c.Request.Context(), currentUserID(c), uri.Code, page, perPage)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (s *Server) handleMusic(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri, roomURIMessages, rules.ErrInvalidRoomCode) {
		return
	}
	var req musicRequest
	if !bindJSON(c, &req, musicMessages, rules.ErrInvalidMusicAction) {
		return
	}
	actor := musicActor{UserID: currentUserID(c), SpectatorKey: req.SpectatorKey}
	music, err := s.updateMusic(c.Request.Context(), actor, uri.Code, req.Action)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "music": music})
}

func (s *Server) handleSecret(c *gin.Context) {
	var uri gameURI
	if !bindURI(c, &uri, nil, rules.ErrGameNotFound) {
		return
	}
	var req secretRequest
	if !bindJSON(c, &req, secretMessages, rules.ErrInvalidSecret) {
		return
	}
	result, err := s.submitSecret(c.Request.Context(), currentUserID(c), uri.GameID, req.Secret)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleGuess(c *gin.Context) {
	var uri gameURI
	if !bindURI(c, &uri, nil, rules.ErrGameNotFound) {
		return
	}
	var req guessRequest
	if !bindJSON(c, &req, guessMessages, rules.ErrInvalidGuess) {
		return
	}
	result, err := s.submitGuess(c.Request.Context(), currentUserID(c), uri.GameID, req.Guess, req.TurnNo)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleRematchVote(c *gin.Context) {
	var uri gameURI
	if !bindURI(c, &uri, nil, rules.ErrGameNotFound) {
		return
	}
	var req rematchRequest
	if !bindJSON(c, &req, rematchMessages, rules.ErrInvalidVote) {
		return
	}
	result, err := s.voteRematch(c.Request.Context(), currentUserID(c), uri.GameID, *req.Vote)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
