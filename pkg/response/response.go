package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	CodeSuccess       = 0
	CodeParamError    = 400
	CodeUnauthorized  = 401
	CodeForbidden     = 403
	CodeNotFound      = 404
	CodeServerError   = 500
	CodeBusinessError = 1000
)

// 业务结果码：请求合法，但当前状态不允许
const (
	CodeInsufficientStock      = 1001
	CodeInsufficientBalance    = 1002
	CodeAlreadyClaimed         = 1003
	CodeClaimConflict          = 1004
	CodeNotAuthorized          = 1005
	CodeUsernameTaken          = 1006
	CodeInvalidPhone           = 1007
	CodeInvalidGender          = 1008
	CodeWrongPassword          = 1009
	CodeGoodsNameTaken         = 1010
	CodeSenderNotFound         = 1011
	CodeReceiverNotFound       = 1012
	CodeAdminNotFound          = 1013
	CodeConcurrentModification = 1014
)

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
	})
}

func ParamError(c *gin.Context, message string) {
	Error(c, CodeParamError, message)
}

func ServerError(c *gin.Context, message string) {
	Error(c, CodeServerError, message)
}

// BusinessError 业务结果，data 中带上结果详情
func BusinessError(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

func Forbidden(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusForbidden, Response{
		Code:    CodeForbidden,
		Message: message,
	})
}
