package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler 暴露默认注册表中的全部指标。
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
