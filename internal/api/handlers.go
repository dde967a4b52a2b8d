package api

import (
	"errors"
	"net/http"
	"strconv"

	"autodialer/internal/command"
	"autodialer/internal/phonenumber"
	"autodialer/internal/telephony"
	"github.com/gin-gonic/gin"
)

type createPhoneNumberRequest struct {
	Number string `json:"number" binding:"required"`
	Source string `json:"source"`
	Notes  string `json:"notes"`
}

func (server *Server) createPhoneNumber(c *gin.Context) {
	var request createPhoneNumberRequest

	err := c.ShouldBindJSON(&request)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if request.Source == "" {
		request.Source = phonenumber.SourceManual
	}

	phone, err := server.Phones.Create(c.Request.Context(), request.Number, request.Source, request.Notes)

	switch {
	case errors.Is(err, phonenumber.ErrInvalidNumber):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, phonenumber.ErrLimitReached):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "phone number limit reached"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create phone number"})
	default:
		c.JSON(http.StatusCreated, phone)
	}
}

func (server *Server) listPhoneNumbers(c *gin.Context) {
	phones, err := server.Phones.List(c.Request.Context(), c.Query("status"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list phone numbers"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"phone_numbers": phones, "count": len(phones)})
}

func (server *Server) getPhoneNumber(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	phone, err := server.Phones.GetByID(c.Request.Context(), id)
	if errors.Is(err, phonenumber.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "phone number not found"})
		return
	}

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch phone number"})
		return
	}

	logs, err := server.Calls.ListByPhoneNumber(c.Request.Context(), phone.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch call logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"phone_number": phone, "call_logs": logs})
}

func (server *Server) deletePhoneNumber(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	err := server.Phones.Delete(c.Request.Context(), id)
	if errors.Is(err, phonenumber.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "phone number not found"})
		return
	}

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete phone number"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (server *Server) dialPhoneNumber(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	dispatch := server.Dialer.DispatchSingle(c.Request.Context(), id)
	if !dispatch.Accepted {
		c.JSON(http.StatusConflict, dispatch)
		return
	}

	c.JSON(http.StatusAccepted, dispatch)
}

func (server *Server) dialAll(c *gin.Context) {
	dispatch := server.Dialer.DispatchBatch(c.Request.Context())
	if !dispatch.Accepted {
		c.JSON(http.StatusServiceUnavailable, dispatch)
		return
	}

	c.JSON(http.StatusAccepted, dispatch)
}

func (server *Server) listCalls(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}

	calls, err := server.Telephony.ListCalls(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list calls"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"calls": calls, "count": len(calls)})
}

func (server *Server) listTodayCalls(c *gin.Context) {
	calls, err := server.Calls.ListToday(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list today's calls"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"calls": calls, "count": len(calls)})
}

func (server *Server) getCall(c *gin.Context) {
	call, err := server.Telephony.GetCall(c.Request.Context(), c.Param("sid"))
	if errors.Is(err, telephony.ErrCallNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "call not found"})
		return
	}

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch call"})
		return
	}

	c.JSON(http.StatusOK, call)
}

func (server *Server) hangupCall(c *gin.Context) {
	call, err := server.Telephony.HangupCall(c.Request.Context(), c.Param("sid"))
	if errors.Is(err, telephony.ErrCallNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "call not found"})
		return
	}

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hang up call"})
		return
	}

	c.JSON(http.StatusOK, call)
}

type commandRequest struct {
	Text string `json:"text" binding:"required"`
	Type string `json:"type"`
}

func (server *Server) processCommand(c *gin.Context) {
	var request commandRequest

	err := c.ShouldBindJSON(&request)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if request.Type == "" {
		request.Type = command.TypeText
	}

	cmd, err := server.Commands.Process(c.Request.Context(), request.Text, request.Type)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process command"})
		return
	}

	c.JSON(http.StatusOK, cmd)
}

func (server *Server) listCommands(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}

	commands, err := server.CommandLog.ListRecent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list commands"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"commands": commands, "count": len(commands)})
}

func (server *Server) listSettings(c *gin.Context) {
	all, err := server.Settings.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list settings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"settings": all})
}

type updateSettingRequest struct {
	Value any `json:"value" binding:"required"`
}

func (server *Server) updateSetting(c *gin.Context) {
	var request updateSettingRequest

	err := c.ShouldBindJSON(&request)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err = server.Settings.Set(c.Request.Context(), c.Param("key"), normalizeJSONValue(request.Value))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update setting"})
		return
	}

	c.Status(http.StatusNoContent)
}

// normalizeJSONValue maps JSON numbers onto int when they are whole, so
// integer settings round-trip without a float type tag.
func normalizeJSONValue(value any) any {
	number, ok := value.(float64)
	if !ok {
		return value
	}

	if number == float64(int(number)) {
		return int(number)
	}

	return number
}

func (server *Server) listVoices(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"voices": server.Voice.AvailableVoices()})
}

type ttsRequest struct {
	Text  string  `json:"text" binding:"required"`
	Voice string  `json:"voice"`
	Speed float64 `json:"speed"`
}

func (server *Server) textToSpeech(c *gin.Context) {
	var request ttsRequest

	err := c.ShouldBindJSON(&request)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, server.Voice.TextToSpeech(request.Text, request.Voice, request.Speed))
}

type callScriptRequest struct {
	Number  string `json:"number" binding:"required"`
	Purpose string `json:"purpose"`
}

func (server *Server) generateCallScript(c *gin.Context) {
	var request callScriptRequest

	err := c.ShouldBindJSON(&request)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if request.Purpose == "" {
		request.Purpose = "general"
	}

	c.JSON(http.StatusOK, server.Voice.GenerateCallScript(request.Number, request.Purpose))
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}

	return uint(id), true
}
