package api

import "github.com/gin-gonic/gin"

// Response is the JSON envelope every endpoint speaks: "ok" with data, or
// "error" with a machine code plus a human message.
type Response struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func respondOK(c *gin.Context, status int, data any) {
	c.JSON(status, Response{Status: "ok", Data: data})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, Response{Status: "error", Error: code, Message: message})
}
