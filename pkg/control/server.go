package control

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"
	"solarbridge/pkg/apis/response"
)

type command struct {
	On *bool `json:"on" binding:"required"`
}

func InstallHandler(group *gin.RouterGroup, output Output) {
	group.PUT("/control", setOutput(output))
}

// setOutput mirrors the control topic for callers without an MQTT client.
func setOutput(output Output) gin.HandlerFunc {
	return func(c *gin.Context) {
		var cmd command
		if err := c.ShouldBindJSON(&cmd); err != nil {
			klog.V(2).InfoS("Failed to parse control command", "err", err)
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrMalformedJSON))
			return
		}
		if err := output.Set(*cmd.On); err != nil {
			klog.V(1).InfoS("Failed to apply control command", "on", *cmd.On, "err", err)
			c.JSON(http.StatusBadGateway, response.NewMultiError(response.ErrControlFailed(err)))
			return
		}
		c.JSON(http.StatusOK, gin.H{"on": *cmd.On})
	}
}
