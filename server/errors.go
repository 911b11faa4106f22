package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rushteam/carkit/core"
	"github.com/rushteam/carkit/pkg/logging"
)

// 纠正动作，客户端据此引导用户
const (
	ActionRateCars      = "rate_cars"      // 先完成评分问卷
	ActionWidenFeatures = "widen_features" // 补充或放宽特征输入
	ActionRelaxFilters  = "relax_filters"  // 放宽过滤条件
)

const moduleServer = "server"

// ErrorResponse 错误响应体
type ErrorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Action string `json:"action,omitempty"`
}

// statusOf 把领域错误映射为 HTTP 状态码与纠正动作
func statusOf(err error) (int, string) {
	switch {
	case core.IsInvalidInput(err):
		return http.StatusBadRequest, ""
	case core.IsNotFound(err):
		return http.StatusNotFound, ""
	case core.IsNoRatingsYet(err):
		return http.StatusConflict, ActionRateCars
	case core.IsInsufficientFeatures(err):
		return http.StatusUnprocessableEntity, ActionWidenFeatures
	case core.IsEmptyDataset(err):
		return http.StatusUnprocessableEntity, ActionRelaxFilters
	case core.IsNotSupported(err):
		return http.StatusNotImplemented, ""
	default:
		return http.StatusInternalServerError, ""
	}
}

func writeError(c *gin.Context, err error) {
	status, action := statusOf(err)
	resp := ErrorResponse{Code: core.ErrorCodeInternalError, Action: action}
	if de := core.GetDomainError(err); de != nil {
		resp.Code = de.Code
		resp.Error = de.Message
	}
	if status == http.StatusInternalServerError {
		logging.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		resp.Error = "internal error"
	}
	c.AbortWithStatusJSON(status, resp)
}

// badRequest 处理参数绑定失败
func badRequest(c *gin.Context, err error) {
	writeError(c, core.NewInvalidInput(moduleServer, err.Error()))
}
