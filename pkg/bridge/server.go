package bridge

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"solarbridge/pkg/apis/response"
	"solarbridge/pkg/renogy"
)

func InstallHandler(group *gin.RouterGroup, b *Bridge) {
	group.GET("/status", getStatus(b))
	group.GET("/registers", listRegisters())
	group.GET("/registers/:address", getRegister())
}

func getStatus(b *Bridge) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, b.Status())
	}
}

func listRegisters() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, renogy.Registers())
	}
}

// getRegister accepts decimal or 0x-prefixed hex addresses.
func getRegister() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.Param("address")
		address, err := strconv.ParseUint(raw, 0, 16)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrInvalidAddress(raw)))
			return
		}
		d, ok := renogy.Lookup(uint16(address))
		if !ok {
			c.JSON(http.StatusNotFound, response.NewMultiError(response.ErrResourceNotFound("register")))
			return
		}
		c.JSON(http.StatusOK, d)
	}
}
