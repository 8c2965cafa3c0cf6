package controller

import "github.com/gin-gonic/gin"

// SuccessResponse 统一成功响应封装
func SuccessResponse(ctx *gin.Context, key string, data interface{}, count int) {
	ctx.JSON(200, gin.H{
		"status": "ok",
		"count":  count,
		key:      data,
	})
}

// ErrorResponse 统一失败响应封装
func ErrorResponse(ctx *gin.Context, status int, code string, message string) {
	ctx.JSON(status, gin.H{
		"status":  "error",
		"code":    code,
		"message": message,
	})
}
