package handler

import (
	"log"
	"net/http"
	"strconv"

	"storefront-erp/pkg/apperror"
	"storefront-erp/pkg/response"

	"github.com/gin-gonic/gin"
)

// respondError writes err with the status its apperror kind maps to.
// Unclassified errors are logged and answered with a generic message.
func respondError(c *gin.Context, err error) {
	status := apperror.HTTPStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		msg = "Internal server error"
	}
	c.JSON(status, response.Error(status, msg))
}

func badPayload(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return fallback
	}
	return v
}
